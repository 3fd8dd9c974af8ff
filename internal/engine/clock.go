package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrNoMedia is returned by position and duration queries when no queue is
// loaded.
var ErrNoMedia = errors.New("no media loaded")

// tickInterval is how often the clock engine checks for end-of-track.
const tickInterval = 200 * time.Millisecond

// ClockEngine is a wall-clock playback simulation implementing Engine. It
// advances position in real time, auto-advances at end of track honoring
// shuffle and repeat, and emits the same event sequences a real media
// backend would. It decodes no audio.
type ClockEngine struct {
	mu        sync.Mutex
	queue     []MediaItem
	order     []int // play order as queue indices
	pos       int   // index into order, -1 when no queue
	playing   bool
	shuffle   bool
	repeat    RepeatMode
	basePos   time.Duration // accumulated position while paused
	startedAt time.Time     // segment start while playing
	rng       *rand.Rand

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewClockEngine creates a stopped engine with an empty queue.
func NewClockEngine() *ClockEngine {
	e := &ClockEngine{
		pos:    -1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}
	go e.tick()
	return e
}

// Close stops the end-of-track watcher and closes the event stream.
func (e *ClockEngine) Close() {
	e.once.Do(func() {
		close(e.done)
	})
}

// Events returns the engine notification stream.
func (e *ClockEngine) Events() <-chan Event {
	return e.events
}

// emit delivers an event without ever blocking playback. Must be called with
// the lock held.
func (e *ClockEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// SetQueue replaces the queue and positions at startIndex / startPositionMs
// without starting playback.
func (e *ClockEngine) SetQueue(items []MediaItem, startIndex int, startPositionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = make([]MediaItem, len(items))
	copy(e.queue, items)
	e.rebuildOrder(startIndex)
	e.playing = false
	if startPositionMs < 0 {
		startPositionMs = 0
	}
	e.basePos = time.Duration(startPositionMs) * time.Millisecond

	if len(e.queue) == 0 {
		e.pos = -1
	}
	return nil
}

// rebuildOrder recomputes the play order, placing currentIndex first when
// shuffling. Must be called with the lock held.
func (e *ClockEngine) rebuildOrder(currentIndex int) {
	n := len(e.queue)
	e.order = make([]int, n)
	for i := range e.order {
		e.order[i] = i
	}
	if currentIndex < 0 || currentIndex >= n {
		currentIndex = 0
	}
	if !e.shuffle {
		e.pos = currentIndex
		return
	}
	e.rng.Shuffle(n, func(i, j int) {
		e.order[i], e.order[j] = e.order[j], e.order[i]
	})
	for i, qi := range e.order {
		if qi == currentIndex {
			e.order[0], e.order[i] = e.order[i], e.order[0]
			break
		}
	}
	e.pos = 0
}

// PrepareAndPlay starts playback of the current queue item.
func (e *ClockEngine) PrepareAndPlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos < 0 || len(e.queue) == 0 {
		return ErrNoMedia
	}
	e.playing = true
	e.startedAt = time.Now()
	e.emit(Event{Type: EventTrackChanged, MediaID: e.current().ID})
	e.emit(Event{Type: EventPlayingChanged, IsPlaying: true})
	return nil
}

// Pause halts playback, keeping position.
func (e *ClockEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return nil
	}
	e.basePos = e.positionLocked()
	e.playing = false
	e.emit(Event{Type: EventPlayingChanged, IsPlaying: false})
	return nil
}

// Resume continues playback from the paused position.
func (e *ClockEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing || e.pos < 0 {
		return nil
	}
	e.playing = true
	e.startedAt = time.Now()
	e.emit(Event{Type: EventPlayingChanged, IsPlaying: true})
	return nil
}

// Seek moves the position within the current item, clamped to its duration.
func (e *ClockEngine) Seek(positionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos < 0 {
		return ErrNoMedia
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if dur := e.current().DurationMs; dur > 0 && positionMs > dur {
		positionMs = dur
	}
	e.basePos = time.Duration(positionMs) * time.Millisecond
	e.startedAt = time.Now()
	return nil
}

// SkipNext advances to the next item in play order, wrapping at the end.
func (e *ClockEngine) SkipNext() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(1, true)
}

// SkipPrevious steps back one item, wrapping at the start.
func (e *ClockEngine) SkipPrevious() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(-1, true)
}

// advanceLocked moves pos by delta. Explicit skips wrap; auto-advance at the
// queue end honors repeat instead. Must be called with the lock held.
func (e *ClockEngine) advanceLocked(delta int, wrap bool) error {
	if e.pos < 0 || len(e.order) == 0 {
		return ErrNoMedia
	}

	next := e.pos + delta
	if next >= len(e.order) {
		if !wrap {
			return nil
		}
		next = 0
	}
	if next < 0 {
		next = len(e.order) - 1
	}

	e.pos = next
	e.basePos = 0
	e.startedAt = time.Now()
	e.emit(Event{Type: EventTrackChanged, MediaID: e.current().ID})
	return nil
}

// SetShuffle toggles shuffle, reordering the remaining queue around the
// current item.
func (e *ClockEngine) SetShuffle(enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shuffle == enabled {
		return nil
	}
	e.shuffle = enabled
	if e.pos >= 0 && len(e.order) > 0 {
		e.rebuildOrder(e.order[e.pos])
	}
	e.emit(Event{Type: EventShuffleChanged, Shuffle: enabled})
	return nil
}

// SetRepeatMode sets the repeat policy.
func (e *ClockEngine) SetRepeatMode(mode RepeatMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repeat == mode {
		return nil
	}
	e.repeat = mode
	e.emit(Event{Type: EventRepeatChanged, Repeat: mode})
	return nil
}

// IsPlaying reports the authoritative play state.
func (e *ClockEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// ShuffleEnabled reports the authoritative shuffle flag.
func (e *ClockEngine) ShuffleEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

// RepeatMode reports the authoritative repeat mode.
func (e *ClockEngine) RepeatMode() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// PositionMs returns the simulated position within the current item.
func (e *ClockEngine) PositionMs() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos < 0 {
		return 0, ErrNoMedia
	}
	return e.positionLocked().Milliseconds(), nil
}

// DurationMs returns the current item's duration, or DurationUnknown when
// the item carries none.
func (e *ClockEngine) DurationMs() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos < 0 {
		return 0, ErrNoMedia
	}
	dur := e.current().DurationMs
	if dur <= 0 {
		return DurationUnknown, nil
	}
	return dur, nil
}

// current returns the active queue item. Must be called with the lock held
// and a valid pos.
func (e *ClockEngine) current() MediaItem {
	return e.queue[e.order[e.pos]]
}

// positionLocked computes the live position. Must be called with the lock
// held.
func (e *ClockEngine) positionLocked() time.Duration {
	pos := e.basePos
	if e.playing {
		pos += time.Since(e.startedAt)
	}
	if dur := time.Duration(e.current().DurationMs) * time.Millisecond; dur > 0 && pos > dur {
		pos = dur
	}
	return pos
}

// tick watches for end-of-track and applies the repeat policy.
func (e *ClockEngine) tick() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.checkEnded()
		case <-e.done:
			return
		}
	}
}

func (e *ClockEngine) checkEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing || e.pos < 0 {
		return
	}
	dur := time.Duration(e.current().DurationMs) * time.Millisecond
	if dur <= 0 || e.positionLocked() < dur {
		return
	}

	switch {
	case e.repeat == RepeatOne:
		e.basePos = 0
		e.startedAt = time.Now()
		e.emit(Event{Type: EventTrackChanged, MediaID: e.current().ID})
	case e.pos+1 < len(e.order):
		e.advanceLocked(1, false)
	case e.repeat == RepeatAll:
		e.pos = 0
		e.basePos = 0
		e.startedAt = time.Now()
		e.emit(Event{Type: EventTrackChanged, MediaID: e.current().ID})
	default:
		// Ran off the end of the queue.
		e.playing = false
		e.basePos = dur
		e.emit(Event{Type: EventEnded})
		e.emit(Event{Type: EventPlayingChanged, IsPlaying: false})
	}
}
