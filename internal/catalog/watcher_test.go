package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherSignalsOnNewAudioFile(t *testing.T) {
	if testing.Short() {
		t.Skip("Debounced watcher test is slow")
	}

	dir := t.TempDir()
	logger := testLogger()
	w := NewWatcher(dir, NewExtractor([]string{".mp3"}, logger), logger)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "new.mp3"), []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	select {
	case <-w.Refreshes():
		// Debounced refresh arrived.
	case <-time.After(refreshDebounce + 3*time.Second):
		t.Fatal("No refresh signal after creating an audio file")
	}
}
