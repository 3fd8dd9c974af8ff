package catalog

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor reads tags and durations from audio files.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger

	artworkCache map[string][]byte
	artworkMux   sync.RWMutex
}

// NewExtractor creates an extractor for the given file extensions (".mp3", ...).
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
		artworkCache:     make(map[string][]byte),
	}
}

// ExtractFromFile builds a Track from an audio file's tags. A file with no
// readable tags still yields a Track named after the file; only an unreadable
// file is an error.
func (e *Extractor) ExtractFromFile(filePath string) (Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Track{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	duration, err := e.probeDuration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to probe duration, setting to 0")
		duration = 0
	}

	track := Track{
		ID:         TrackID(filePath),
		URI:        filePath,
		DurationMs: duration.Milliseconds(),
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		// No usable tags; fall back to the filename.
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to read tags, using filename")
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		track.Title = name
		track.Artist = UnknownArtist
		track.Album = UnknownAlbum
		return track, nil
	}

	title := metadata.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	track.Title = title
	track.Artist = normalizeArtist(metadata.Artist())
	track.Album = normalizeAlbum(metadata.Album())
	track.TrackNumber, _ = metadata.Track()
	track.Year = metadata.Year()
	track.ArtworkRef = e.extractArtwork(metadata)

	e.logger.WithFields(logrus.Fields{
		"file_path":   filePath,
		"title":       track.Title,
		"artist":      track.Artist,
		"album":       track.Album,
		"duration_ms": track.DurationMs,
	}).Debug("Extracted track metadata")

	return track, nil
}

// probeDuration determines the playing time of an audio file.
func (e *Extractor) probeDuration(filePath string) (time.Duration, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	case ".m4a":
		return e.durationM4A(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// MP3 duration by decoding frames; falls back to an average-bitrate estimate
// only if no frame decodes at all.
func (e *Extractor) durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

// FLAC duration via STREAMINFO metadata block.
func (e *Extractor) durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration from the header plus file size. Full sample counts would
// require decoding all samples.
func (e *Extractor) durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)
	return time.Duration(secs * float64(time.Second)), nil
}

// M4A (AAC in MP4) duration from the 'mvhd' atom's timescale and duration
// fields. Manual atom scan to avoid a large container dependency.
func (e *Extractor) durationM4A(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if atom == "moov" {
			limit := int64(size) - 8
			for read := int64(0); read < limit; {
				subHead := make([]byte, 8)
				if _, err := io.ReadFull(f, subHead); err != nil {
					return 0, err
				}
				subSize := binary.BigEndian.Uint32(subHead[0:4])
				subAtom := string(subHead[4:8])
				if subAtom == "mvhd" {
					version := make([]byte, 1)
					if _, err := io.ReadFull(f, version); err != nil {
						return 0, err
					}
					var skip int64
					if version[0] == 1 { // 64-bit times
						skip = 3 + 8 + 8
					} else {
						skip = 3 + 4 + 4
					}
					if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
						return 0, err
					}
					tsBuf := make([]byte, 4)
					if _, err := io.ReadFull(f, tsBuf); err != nil {
						return 0, err
					}
					timescale := binary.BigEndian.Uint32(tsBuf)
					durBuf := make([]byte, 4)
					if _, err := io.ReadFull(f, durBuf); err != nil {
						return 0, err
					}
					durUnits := binary.BigEndian.Uint32(durBuf)
					if timescale == 0 {
						return 0, fmt.Errorf("invalid timescale")
					}
					secs := float64(durUnits) / float64(timescale)
					return time.Duration(secs * float64(time.Second)), nil
				}
				if subSize < 8 {
					return 0, fmt.Errorf("invalid sub-atom size")
				}
				if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
					return 0, err
				}
				read += int64(subSize)
			}
			break
		}
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("mvhd atom not found")
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (time.Duration, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	secs := (st.Size() * 8) / int64(bitrate)
	return time.Duration(secs) * time.Second, nil
}

// extractArtwork caches embedded album art and returns its opaque reference,
// or "" when the file has none.
func (e *Extractor) extractArtwork(metadata tag.Metadata) string {
	if metadata == nil {
		return ""
	}
	picture := metadata.Picture()
	if picture == nil {
		return ""
	}
	hash := md5.Sum(picture.Data)
	ref := fmt.Sprintf("%x", hash)

	e.artworkMux.Lock()
	e.artworkCache[ref] = picture.Data
	e.artworkMux.Unlock()
	return ref
}

// ArtworkData resolves an artwork reference to its image bytes.
func (e *Extractor) ArtworkData(ref string) ([]byte, bool) {
	e.artworkMux.RLock()
	data, exists := e.artworkCache[ref]
	e.artworkMux.RUnlock()
	return data, exists
}

// IsAudioFile checks if a file has a supported audio extension.
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
