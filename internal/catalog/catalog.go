// Package catalog holds the read-only snapshot of playable tracks sourced
// from the device library. A refresh swaps the whole snapshot; individual
// tracks are never mutated in place.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrPermissionDenied reports that the library location cannot be read.
// Recoverable only by user action; the previous snapshot stays in effect.
var ErrPermissionDenied = errors.New("library access denied")

// MinTrackDurationMs filters out clips shorter than 30 seconds (ringtones,
// notification sounds).
const MinTrackDurationMs = 30_000

// Source produces a full track listing. Implemented by Scanner for the local
// filesystem and by in-memory fakes in tests.
type Source interface {
	Tracks(ctx context.Context) ([]Track, error)
}

// Catalog is the immutable-per-refresh track snapshot with indexed lookup.
type Catalog struct {
	source Source
	logger *logrus.Logger

	mu     sync.RWMutex
	tracks []Track
	byID   map[int64]Track
}

// New creates an empty catalog backed by the given source.
func New(source Source, logger *logrus.Logger) *Catalog {
	return &Catalog{
		source: source,
		logger: logger,
		byID:   make(map[int64]Track),
	}
}

// Refresh replaces the snapshot with a fresh listing from the source. On any
// error the existing snapshot is left untouched and the error is returned for
// the presentation layer to surface.
func (c *Catalog) Refresh(ctx context.Context) error {
	tracks, err := c.source.Tracks(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Catalog refresh failed, keeping previous snapshot")
		return err
	}

	byID := make(map[int64]Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	c.mu.Lock()
	c.tracks = tracks
	c.byID = byID
	c.mu.Unlock()

	c.logger.WithField("track_count", len(tracks)).Info("Catalog refreshed")
	return nil
}

// Tracks returns the current snapshot. The returned slice is a copy; callers
// may reorder it freely.
func (c *Catalog) Tracks() []Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// ByID resolves a track id against the current snapshot.
func (c *Catalog) ByID(id int64) (Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	return t, ok
}

// Len returns the number of tracks in the current snapshot.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

// Search returns tracks whose title, artist or album contains the query,
// case-insensitively. A blank query returns the full snapshot.
func (c *Catalog) Search(query string) []Track {
	if strings.TrimSpace(query) == "" {
		return c.Tracks()
	}
	q := strings.ToLower(query)

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Track
	for _, t := range c.tracks {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) ||
			strings.Contains(strings.ToLower(t.Album), q) {
			out = append(out, t)
		}
	}
	return out
}

// Scanner walks a library directory and extracts a Track per audio file.
type Scanner struct {
	root      string
	extractor *Extractor
	logger    *logrus.Logger
}

// NewScanner creates a filesystem source rooted at the given directory.
func NewScanner(root string, extractor *Extractor, logger *logrus.Logger) *Scanner {
	return &Scanner{root: root, extractor: extractor, logger: logger}
}

// Tracks walks the library with a worker pool extracting metadata. Files
// shorter than MinTrackDurationMs are skipped. The listing is sorted by title.
func (s *Scanner) Tracks(ctx context.Context) ([]Track, error) {
	if _, err := os.Stat(s.root); err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, s.root)
		}
		return nil, fmt.Errorf("library path unavailable: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var tracks []Track
	jobs := make(chan string, 100)

	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				track, err := s.extractor.ExtractFromFile(path)
				if err != nil {
					s.logger.WithError(err).WithField("file_path", path).Error("Failed to extract metadata")
					wg.Done()
					continue
				}
				if track.DurationMs > 0 && track.DurationMs < MinTrackDurationMs {
					wg.Done()
					continue
				}
				mu.Lock()
				tracks = append(tracks, track)
				mu.Unlock()
				wg.Done()
			}
		}()
	}

	walkErr := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !info.IsDir() && s.extractor.IsAudioFile(path) {
			wg.Add(1)
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Title < tracks[j].Title })
	return tracks, nil
}
