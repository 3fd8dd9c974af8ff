package player

import (
	"sync"
	"time"

	"github.com/vagenralexx/smart-player/internal/catalog"
	"github.com/vagenralexx/smart-player/internal/engine"
)

// Snapshot is the canonical playback state published to observers. It is a
// value; observers never share memory with the coordinator. CurrentTrack nil
// means nothing is loaded, and IsPlaying is false whenever CurrentTrack is
// nil.
type Snapshot struct {
	CurrentTrack *catalog.Track    `json:"currentTrack,omitempty"`
	IsPlaying    bool              `json:"isPlaying"`
	PositionMs   int64             `json:"positionMs"`
	DurationMs   int64             `json:"durationMs"`
	Shuffle      bool              `json:"shuffle"`
	Repeat       engine.RepeatMode `json:"repeatMode"`
	// SharePromptAt is nonzero while a lifetime-plays milestone prompt is
	// pending, holding the milestone value. Cleared by DismissSharePrompt.
	SharePromptAt int64     `json:"sharePromptAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StateManager holds the current snapshot and notifies listeners on every
// change.
type StateManager struct {
	state     Snapshot
	mutex     sync.RWMutex
	listeners []chan Snapshot
}

// NewStateManager creates a state manager with an empty, stopped snapshot.
func NewStateManager() *StateManager {
	return &StateManager{
		state:     Snapshot{UpdatedAt: time.Now()},
		listeners: make([]chan Snapshot, 0),
	}
}

// Get returns a copy of the current snapshot (thread-safe).
func (sm *StateManager) Get() Snapshot {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	state := sm.state
	if state.CurrentTrack != nil {
		track := *state.CurrentTrack
		state.CurrentTrack = &track
	}
	return state
}

// Update applies mutate to the snapshot and notifies listeners. The nil-track
// invariant is enforced here so no caller can publish a playing state with
// nothing loaded.
func (sm *StateManager) Update(mutate func(*Snapshot)) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	mutate(&sm.state)
	if sm.state.CurrentTrack == nil {
		sm.state.IsPlaying = false
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for snapshot changes.
func (sm *StateManager) Subscribe() <-chan Snapshot {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan Snapshot, 10) // Buffered channel to prevent blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan Snapshot) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends snapshots to all subscribers (must be called with lock held)
func (sm *StateManager) notifyListeners() {
	state := sm.state
	if state.CurrentTrack != nil {
		track := *state.CurrentTrack
		state.CurrentTrack = &track
	}
	kept := sm.listeners[:0]
	for _, listener := range sm.listeners {
		select {
		case listener <- state:
			kept = append(kept, listener)
		default:
			// Channel is full, listener stopped draining; remove it
			close(listener)
		}
	}
	sm.listeners = kept
}
