package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// refreshDebounce coalesces bursts of filesystem events (an album copy drops
// dozens of files) into a single refresh request.
const refreshDebounce = 2 * time.Second

// Watcher monitors the library directory and requests a catalog refresh when
// audio files appear or disappear. Refresh requests are delivered on a
// buffered channel so the owner decides when (and on which goroutine) to act.
type Watcher struct {
	root      string
	extractor *Extractor
	logger    *logrus.Logger

	watcher  *fsnotify.Watcher
	refresh  chan struct{}
	debounce *time.Timer
}

// NewWatcher creates a watcher for the library root. Call Start to begin
// monitoring and Refreshes to receive change notifications.
func NewWatcher(root string, extractor *Extractor, logger *logrus.Logger) *Watcher {
	return &Watcher{
		root:      root,
		extractor: extractor,
		logger:    logger,
		refresh:   make(chan struct{}, 1),
	}
}

// Refreshes delivers one signal per debounced burst of library changes.
func (w *Watcher) Refreshes() <-chan struct{} {
	return w.refresh
}

// Start begins recursive monitoring of the library root.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	go w.watchFiles()

	if err := w.addDirectory(w.root); err != nil {
		watcher.Close()
		return err
	}

	w.logger.WithField("library_path", w.root).Info("Library watcher started")
	return nil
}

// addDirectory recursively adds subdirectories to the watcher.
func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Library watcher error")
		}
	}
}

// handleFileEvent filters noise and schedules a debounced refresh signal.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	switch {
	case (event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) &&
		w.extractor.IsAudioFile(event.Name):
		w.logger.WithField("file_path", event.Name).Debug("Library change detected")
		w.scheduleRefresh()

	case event.Has(fsnotify.Create):
		// New directory: start watching it.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

func (w *Watcher) scheduleRefresh() {
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(refreshDebounce, func() {
		select {
		case w.refresh <- struct{}{}:
		default: // a refresh request is already pending
		}
	})
}

// Stop closes the watcher (idempotent).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
