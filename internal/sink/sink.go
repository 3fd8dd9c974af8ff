// Package sink defines the one-way push contract for external now-playing
// surfaces (homescreen widget, system notification) and the adapters that
// render to them. Delivery is best-effort: a surface that fails to render
// never reports back into playback.
package sink

// NowPlaying is the payload pushed to every registered surface whenever the
// current track or play state changes.
type NowPlaying struct {
	Title      string
	Artist     string
	IsPlaying  bool
	ArtworkRef string
}

// Sink receives now-playing pushes. Implementations must not block; a slow
// surface renders late, it does not slow the player.
type Sink interface {
	// UpdateNowPlaying renders the current track and transport state.
	UpdateNowPlaying(np NowPlaying)
	// SetIdle renders the nothing-playing state.
	SetIdle()
}
