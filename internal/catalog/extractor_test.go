package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIsAudioFile(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac", ".wav", ".m4a"}, testLogger())

	cases := []struct {
		path string
		want bool
	}{
		{"/music/song.mp3", true},
		{"/music/SONG.MP3", true},
		{"/music/track.flac", true},
		{"/music/cover.jpg", false},
		{"/music/notes.txt", false},
		{"/music/noext", false},
	}
	for _, tc := range cases {
		if got := extractor.IsAudioFile(tc.path); got != tc.want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestScannerSkipsNonAudio(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cover.jpg", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("not audio"), 0644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}
	}

	logger := testLogger()
	scanner := NewScanner(dir, NewExtractor([]string{".mp3"}, logger), logger)

	tracks, err := scanner.Tracks(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("Expected no tracks from non-audio files, got %d", len(tracks))
	}
}

func TestScannerMissingRoot(t *testing.T) {
	logger := testLogger()
	scanner := NewScanner(filepath.Join(t.TempDir(), "nope"), NewExtractor([]string{".mp3"}, logger), logger)

	if _, err := scanner.Tracks(context.Background()); err == nil {
		t.Error("Expected error for missing library root")
	}
}
