package sink

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Command is a transport action requested from a widget surface.
type Command int

const (
	CommandPlayPause Command = iota
	CommandSkipNext
	CommandSkipPrevious
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CommandPlayPause:
		return "play_pause"
	case CommandSkipNext:
		return "skip_next"
	case CommandSkipPrevious:
		return "skip_previous"
	default:
		return "unknown"
	}
}

// Widget is a homescreen-style surface. Pushes flow in through the Sink
// contract; button presses flow out through a command channel that the
// player drains. A press while nobody is draining is dropped, never queued
// behind a stale one.
type Widget struct {
	logger *logrus.Logger

	mu     sync.RWMutex
	last   NowPlaying
	active bool

	commands chan Command
}

// NewWidget creates a widget adapter with a buffered command channel.
func NewWidget(logger *logrus.Logger) *Widget {
	return &Widget{
		logger:   logger,
		commands: make(chan Command, 8),
	}
}

// UpdateNowPlaying renders the track and transport state.
func (w *Widget) UpdateNowPlaying(np NowPlaying) {
	w.mu.Lock()
	w.last = np
	w.active = true
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"surface":    "widget",
		"title":      np.Title,
		"artist":     np.Artist,
		"is_playing": np.IsPlaying,
	}).Debug("Rendered now playing")
}

// SetIdle renders the nothing-playing state.
func (w *Widget) SetIdle() {
	w.mu.Lock()
	w.last = NowPlaying{}
	w.active = false
	w.mu.Unlock()

	w.logger.WithField("surface", "widget").Debug("Rendered idle")
}

// Current returns the last rendered payload and whether a track is shown.
func (w *Widget) Current() (NowPlaying, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.active
}

// Commands exposes button presses for the player to drain.
func (w *Widget) Commands() <-chan Command {
	return w.commands
}

// Press records a button press. Presses are dropped when the buffer is full
// so a stalled consumer never blocks the surface.
func (w *Widget) Press(c Command) {
	select {
	case w.commands <- c:
	default:
		w.logger.WithField("command", c.String()).Warn("Dropped widget command, channel full")
	}
}
