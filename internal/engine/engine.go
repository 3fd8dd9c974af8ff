// Package engine defines the contract with the opaque media playback
// primitive: a command interface, authoritative state queries, and a pushed
// event stream. The engine owns queue policy (what "next" means under
// shuffle, whether it auto-advances on repeat); the coordinator only reacts
// to the events it emits.
package engine

// RepeatMode is the engine's tri-state repeat setting.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// Next returns the following mode in the cycle off → all → one → off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// DurationUnknown is the sentinel DurationMs returns before the engine has
// determined the current item's length.
const DurationUnknown int64 = -1

// MediaItem is one queue entry handed to the engine: the content locator plus
// the metadata the engine surfaces to system UI (lockscreen, media buttons).
type MediaItem struct {
	ID         int64
	URI        string
	Title      string
	Artist     string
	Album      string
	ArtworkRef string
	DurationMs int64
}

// EventType discriminates Event variants.
type EventType int

const (
	// EventPlayingChanged reports the play/pause state, whatever the cause
	// (user command, phone call, headset unplugged).
	EventPlayingChanged EventType = iota
	// EventTrackChanged reports a transition to the queue item with MediaID.
	EventTrackChanged
	// EventEnded reports that playback ran off the end of the queue.
	EventEnded
	// EventShuffleChanged reports the authoritative shuffle flag.
	EventShuffleChanged
	// EventRepeatChanged reports the authoritative repeat mode.
	EventRepeatChanged
)

// Event is one engine notification. Only the field matching Type is
// meaningful.
type Event struct {
	Type      EventType
	IsPlaying bool       // EventPlayingChanged
	MediaID   int64      // EventTrackChanged
	Shuffle   bool       // EventShuffleChanged
	Repeat    RepeatMode // EventRepeatChanged
}

// Engine is the playback primitive contract. Commands may return errors for
// logging; callers treat command failure as best-effort, never fatal. Events
// are delivered in order on the channel returned by Events.
type Engine interface {
	// SetQueue replaces the play queue, positioning at startIndex and
	// startPositionMs.
	SetQueue(items []MediaItem, startIndex int, startPositionMs int64) error
	// PrepareAndPlay readies the current item and starts playback.
	PrepareAndPlay() error
	Pause() error
	Resume() error
	Seek(positionMs int64) error
	SkipNext() error
	SkipPrevious() error
	SetShuffle(enabled bool) error
	SetRepeatMode(mode RepeatMode) error

	// Authoritative state queries, read by toggle commands so optimistic
	// snapshot values never feed back into command decisions.
	IsPlaying() bool
	ShuffleEnabled() bool
	RepeatMode() RepeatMode
	// PositionMs returns the current playback position. Errors are
	// transient (engine briefly unreachable) and safe to retry.
	PositionMs() (int64, error)
	// DurationMs returns the current item's duration, or DurationUnknown.
	DurationMs() (int64, error)

	// Events returns the engine's pushed notification stream.
	Events() <-chan Event
}
