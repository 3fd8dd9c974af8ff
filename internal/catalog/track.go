package catalog

import (
	"fmt"
	"hash/fnv"
)

// UnknownArtist and UnknownAlbum are the normalized values used when a file
// carries no usable tag. Normalization happens at construction time so every
// consumer sees the same value.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// Track represents one playable audio item sourced from the device library.
// Tracks are immutable once constructed; a refresh produces an entirely new
// set. Identity is the ID field.
type Track struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	TrackNumber int    `json:"trackNumber"`
	Year        int    `json:"year"`
	DurationMs  int64  `json:"durationMs"`
	// URI is the opaque playable-content locator handed to the playback
	// engine. For the file scanner this is the absolute file path.
	URI string `json:"-"`
	// ArtworkRef is an opaque locator for embedded album art, empty when the
	// file has none. Resolvable via Extractor.ArtworkData.
	ArtworkRef string `json:"artworkRef,omitempty"`
}

// DurationFormatted returns the duration as m:ss for display.
func (t Track) DurationFormatted() string {
	totalSeconds := t.DurationMs / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// TrackID derives a stable identifier from a content locator. Rescans of the
// same library yield the same ids, so playlist memberships and history rows
// stay valid across refreshes.
func TrackID(uri string) int64 {
	h := fnv.New64a()
	h.Write([]byte(uri))
	return int64(h.Sum64() &^ (1 << 63)) // keep it positive
}

func normalizeArtist(artist string) string {
	if artist == "" || artist == "<unknown>" {
		return UnknownArtist
	}
	return artist
}

func normalizeAlbum(album string) string {
	if album == "" || album == "<unknown>" {
		return UnknownAlbum
	}
	return album
}
