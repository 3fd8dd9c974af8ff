package sink

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notification is a media-notification surface. It only renders; transport
// actions from the notification go through the same widget command path.
type Notification struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	last    NowPlaying
	visible bool
}

// NewNotification creates a notification adapter.
func NewNotification(logger *logrus.Logger) *Notification {
	return &Notification{logger: logger}
}

// UpdateNowPlaying shows or refreshes the notification.
func (n *Notification) UpdateNowPlaying(np NowPlaying) {
	n.mu.Lock()
	n.last = np
	n.visible = true
	n.mu.Unlock()

	n.logger.WithFields(logrus.Fields{
		"surface":    "notification",
		"title":      np.Title,
		"artist":     np.Artist,
		"is_playing": np.IsPlaying,
	}).Debug("Rendered now playing")
}

// SetIdle dismisses the notification.
func (n *Notification) SetIdle() {
	n.mu.Lock()
	n.last = NowPlaying{}
	n.visible = false
	n.mu.Unlock()

	n.logger.WithField("surface", "notification").Debug("Dismissed")
}

// Current returns the last rendered payload and whether it is visible.
func (n *Notification) Current() (NowPlaying, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.last, n.visible
}
