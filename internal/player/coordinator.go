// Package player owns the canonical playback state. Every mutation, whether
// a user command, an engine event, a poll tick, or a store notification, runs
// on a single goroutine so state transitions apply in arrival order. The
// engine remains the source of truth; user commands update the snapshot
// optimistically and engine events overwrite it.
package player

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vagenralexx/smart-player/internal/catalog"
	"github.com/vagenralexx/smart-player/internal/engine"
	"github.com/vagenralexx/smart-player/internal/sink"
	"github.com/vagenralexx/smart-player/internal/store"
)

const (
	// pollInterval is the cadence for reading position and duration from
	// the engine while attached.
	pollInterval = 500 * time.Millisecond

	// EstimatedMinutesPerPlay is the listening-time estimate used by the
	// yearly summary. History records plays, not durations, so hours are
	// derived rather than measured.
	EstimatedMinutesPerPlay = 3
)

// shareMilestones are the lifetime play counts that trigger a share prompt.
var shareMilestones = []int64{5, 15, 30}

// Coordinator mediates between the playback engine, the catalog, the store,
// and the registered now-playing surfaces.
type Coordinator struct {
	catalog *catalog.Catalog
	store   *store.Store
	logger  *logrus.Logger

	state *StateManager

	// Confined to the mutation loop.
	eng         engine.Engine
	queue       []catalog.Track
	recents     *recentsList
	artistPlays map[string]int
	playlists   []store.Playlist
	memberships []store.Membership
	history     []store.HistoryEntry
	sinks       map[string]sink.Sink
	rng         *rand.Rand

	playlistSub   <-chan []store.Playlist
	membershipSub <-chan []store.Membership
	historySub    <-chan []store.HistoryEntry

	pollEvery      time.Duration
	restoreRecents bool

	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once
	writes    sync.WaitGroup
}

// NewCoordinator creates a coordinator and starts its mutation loop. Attach
// an engine with AttachEngine before issuing transport commands.
func NewCoordinator(cat *catalog.Catalog, st *store.Store, logger *logrus.Logger) *Coordinator {
	c := &Coordinator{
		catalog:     cat,
		store:       st,
		logger:      logger,
		state:       NewStateManager(),
		recents:     newRecentsList(),
		artistPlays: make(map[string]int),
		sinks:       make(map[string]sink.Sink),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		pollEvery:   pollInterval,
		jobs:        make(chan func(), 64),
		done:        make(chan struct{}),
	}
	c.playlistSub = st.SubscribePlaylists()
	c.membershipSub = st.SubscribeMemberships()
	c.historySub = st.SubscribeHistory()

	// Each subscription emits its current list on subscribe; take those now
	// so the mirrors are populated before the first command runs.
	select {
	case c.playlists = <-c.playlistSub:
	default:
	}
	select {
	case c.memberships = <-c.membershipSub:
	default:
	}
	select {
	case c.history = <-c.historySub:
	default:
	}

	go c.loop()
	go c.drainStore()
	return c
}

// loop drains the mutation queue in FIFO order.
func (c *Coordinator) loop() {
	for {
		select {
		case job := <-c.jobs:
			job()
		case <-c.done:
			return
		}
	}
}

// dispatch enqueues a mutation. Returns false when the coordinator is closed.
func (c *Coordinator) dispatch(job func()) bool {
	select {
	case c.jobs <- job:
		return true
	case <-c.done:
		return false
	}
}

// call runs job on the mutation loop and waits for it to complete. Used by
// read accessors that need a consistent view of loop-confined state.
func (c *Coordinator) call(job func()) {
	ran := make(chan struct{})
	if !c.dispatch(func() {
		job()
		close(ran)
	}) {
		return
	}
	select {
	case <-ran:
	case <-c.done:
	}
}

// AttachEngine binds the playback engine and starts the event drain and
// position poll. Attaching twice is a no-op.
func (c *Coordinator) AttachEngine(eng engine.Engine) {
	attached := false
	c.call(func() {
		if c.eng != nil {
			return
		}
		c.eng = eng
		if c.restoreRecents {
			c.seedRecents()
		}
		c.state.Update(func(s *Snapshot) {
			s.Shuffle = eng.ShuffleEnabled()
			s.Repeat = eng.RepeatMode()
		})
		attached = true
	})
	if !attached {
		return
	}

	go c.drainEvents(eng)
	go c.pollPosition()
	c.logger.Info("Playback engine attached")
}

// seedRecents rebuilds the recently-played list from the history mirror. Only
// tracks still present in the catalog survive the seed. Runs on the loop.
func (c *Coordinator) seedRecents() {
	// History is newest-first; promote oldest-first so order is preserved.
	for i := len(c.history) - 1; i >= 0; i-- {
		if track, ok := c.catalog.ByID(c.history[i].TrackID); ok {
			c.recents.promote(track)
		}
	}
}

func (c *Coordinator) drainEvents(eng engine.Engine) {
	for ev := range eng.Events() {
		if !c.dispatch(func() { c.handleEvent(ev) }) {
			return
		}
	}
}

// SetPollInterval overrides the position poll cadence. Must be called before
// AttachEngine.
func (c *Coordinator) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollEvery = d
	}
}

// SetRestoreRecents opts in to seeding the recently-played list from stored
// history when the engine attaches. Off by default: the list starts empty
// every run. Must be called before AttachEngine.
func (c *Coordinator) SetRestoreRecents(enabled bool) {
	c.restoreRecents = enabled
}

func (c *Coordinator) pollPosition() {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.dispatch(c.pollOnce)
		case <-c.done:
			return
		}
	}
}

// pollOnce reads position and duration from the engine. Transient read
// errors leave the previous values in place. Runs on the loop.
func (c *Coordinator) pollOnce() {
	if c.eng == nil || c.state.Get().CurrentTrack == nil {
		return
	}

	pos, err := c.eng.PositionMs()
	if err != nil {
		c.logger.WithError(err).Debug("Position read failed")
		return
	}
	if pos < 0 {
		pos = 0
	}

	dur, err := c.eng.DurationMs()
	if err != nil || dur == engine.DurationUnknown {
		dur = 0
	}

	c.state.Update(func(s *Snapshot) {
		s.PositionMs = pos
		s.DurationMs = dur
	})
}

// drainStore merges the store's reactive streams into the mutation queue so
// the mirrors only ever change on the loop.
func (c *Coordinator) drainStore() {
	for {
		select {
		case playlists, ok := <-c.playlistSub:
			if !ok {
				return
			}
			if !c.dispatch(func() { c.playlists = playlists }) {
				return
			}
		case refs, ok := <-c.membershipSub:
			if !ok {
				return
			}
			if !c.dispatch(func() { c.memberships = refs }) {
				return
			}
		case entries, ok := <-c.historySub:
			if !ok {
				return
			}
			if !c.dispatch(func() { c.history = entries }) {
				return
			}
		case <-c.done:
			return
		}
	}
}

// handleEvent reconciles an engine event into the snapshot. Runs on the loop.
func (c *Coordinator) handleEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventPlayingChanged:
		c.state.Update(func(s *Snapshot) { s.IsPlaying = ev.IsPlaying })
		c.pushSinks()

	case engine.EventTrackChanged:
		track, ok := c.catalog.ByID(ev.MediaID)
		if !ok {
			// The engine advanced to something the catalog no longer
			// knows. Surface the stopped state and record nothing.
			c.logger.WithField("media_id", ev.MediaID).Warn("Engine reported unknown track")
			c.state.Update(func(s *Snapshot) {
				s.CurrentTrack = nil
				s.PositionMs = 0
				s.DurationMs = 0
			})
			c.pushSinks()
			return
		}
		c.state.Update(func(s *Snapshot) {
			s.CurrentTrack = &track
			s.PositionMs = 0
			s.DurationMs = track.DurationMs
		})
		c.recents.promote(track)
		c.artistPlays[track.Artist]++
		c.recordPlay(track)
		// A track transition renders as playing even when the engine has
		// not confirmed yet; the next playing-changed event corrects it.
		snap := c.state.Get()
		snap.IsPlaying = true
		c.renderAll(snap)

	case engine.EventEnded:
		c.state.Update(func(s *Snapshot) {
			s.IsPlaying = false
			s.PositionMs = 0
		})
		c.pushSinks()

	case engine.EventShuffleChanged:
		c.state.Update(func(s *Snapshot) { s.Shuffle = ev.Shuffle })

	case engine.EventRepeatChanged:
		c.state.Update(func(s *Snapshot) { s.Repeat = ev.Repeat })
	}
}

// recordPlay persists the play off the loop. A failed write is logged and
// dropped; playback state never depends on it.
func (c *Coordinator) recordPlay(track catalog.Track) {
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()

		if _, err := c.store.AppendHistory(store.HistoryEntry{
			TrackID:    track.ID,
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      track.Album,
			ArtworkRef: track.ArtworkRef,
		}); err != nil {
			c.logger.WithError(err).WithField("track_id", track.ID).Error("Failed to record play")
		}

		total, err := c.store.IncrementTotalPlays()
		if err != nil {
			c.logger.WithError(err).Error("Failed to bump play counter")
			return
		}
		for _, m := range shareMilestones {
			if total == m {
				c.logger.WithField("total_plays", total).Info("Share milestone reached")
				c.dispatch(func() {
					c.state.Update(func(s *Snapshot) { s.SharePromptAt = total })
				})
				break
			}
		}
	}()
}

// DismissSharePrompt clears a pending share-milestone prompt.
func (c *Coordinator) DismissSharePrompt() {
	c.dispatch(func() {
		c.state.Update(func(s *Snapshot) { s.SharePromptAt = 0 })
	})
}

// Play starts playback of track within queue. When queue is empty the track
// plays alone. A track missing from its own queue starts the queue from the
// top.
func (c *Coordinator) Play(track catalog.Track, queue []catalog.Track) {
	c.dispatch(func() {
		if c.eng == nil {
			c.logger.Warn("Play ignored, no engine attached")
			return
		}

		if len(queue) == 0 {
			queue = []catalog.Track{track}
		}
		c.queue = make([]catalog.Track, len(queue))
		copy(c.queue, queue)

		startIndex := 0
		for i, t := range c.queue {
			if t.ID == track.ID {
				startIndex = i
				break
			}
		}

		c.state.Update(func(s *Snapshot) {
			s.CurrentTrack = &track
			s.IsPlaying = true
			s.PositionMs = 0
			s.DurationMs = track.DurationMs
		})

		if err := c.eng.SetQueue(c.mediaItems(), startIndex, 0); err != nil {
			c.logger.WithError(err).Error("Failed to set engine queue")
			return
		}
		if err := c.eng.PrepareAndPlay(); err != nil {
			c.logger.WithError(err).Error("Failed to start playback")
		}
	})
}

// PlayPlaylist starts playback of a stored playlist from its first track.
// The queue comes from the membership mirror; tracks no longer in the
// catalog are skipped.
func (c *Coordinator) PlayPlaylist(playlistID int64) {
	queue := c.PlaylistTracks(playlistID)
	if len(queue) == 0 {
		c.logger.WithField("playlist_id", playlistID).Warn("Playlist has no playable tracks")
		return
	}
	c.Play(queue[0], queue)
}

// PlaylistTracks resolves a playlist's members against the catalog, in stored
// order, as of the last membership notification.
func (c *Coordinator) PlaylistTracks(playlistID int64) []catalog.Track {
	var out []catalog.Track
	c.call(func() {
		for _, ref := range c.memberships {
			if ref.PlaylistID != playlistID {
				continue
			}
			if track, ok := c.catalog.ByID(ref.TrackID); ok {
				out = append(out, track)
			}
		}
	})
	return out
}

// TogglePlayPause pauses or resumes. The engine's own playing flag decides
// which, so a stale snapshot cannot invert the command.
func (c *Coordinator) TogglePlayPause() {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		if c.eng.IsPlaying() {
			if err := c.eng.Pause(); err != nil {
				c.logger.WithError(err).Warn("Pause failed")
			}
			c.state.Update(func(s *Snapshot) { s.IsPlaying = false })
		} else {
			if c.state.Get().CurrentTrack == nil {
				return
			}
			if err := c.eng.Resume(); err != nil {
				c.logger.WithError(err).Warn("Resume failed")
			}
			c.state.Update(func(s *Snapshot) { s.IsPlaying = true })
		}
		c.pushSinks()
	})
}

// SkipNext advances the queue. The snapshot changes only when the engine
// reports the new track.
func (c *Coordinator) SkipNext() {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		if err := c.eng.SkipNext(); err != nil {
			c.logger.WithError(err).Warn("Skip next failed")
		}
	})
}

// SkipPrevious steps the queue back.
func (c *Coordinator) SkipPrevious() {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		if err := c.eng.SkipPrevious(); err != nil {
			c.logger.WithError(err).Warn("Skip previous failed")
		}
	})
}

// SeekTo moves playback to positionMs. Negative positions clamp to zero.
func (c *Coordinator) SeekTo(positionMs int64) {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		if positionMs < 0 {
			positionMs = 0
		}
		c.state.Update(func(s *Snapshot) { s.PositionMs = positionMs })
		if err := c.eng.Seek(positionMs); err != nil {
			c.logger.WithError(err).Warn("Seek failed")
		}
	})
}

// ToggleShuffle flips shuffle from the engine's current value.
func (c *Coordinator) ToggleShuffle() {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		next := !c.eng.ShuffleEnabled()
		c.state.Update(func(s *Snapshot) { s.Shuffle = next })
		if err := c.eng.SetShuffle(next); err != nil {
			c.logger.WithError(err).Warn("Shuffle toggle failed")
		}
	})
}

// CycleRepeatMode advances off, all, one, off.
func (c *Coordinator) CycleRepeatMode() {
	c.dispatch(func() {
		if c.eng == nil {
			return
		}
		next := c.eng.RepeatMode().Next()
		c.state.Update(func(s *Snapshot) { s.Repeat = next })
		if err := c.eng.SetRepeatMode(next); err != nil {
			c.logger.WithError(err).Warn("Repeat change failed")
		}
	})
}

// Snapshot returns the current playback state.
func (c *Coordinator) Snapshot() Snapshot {
	return c.state.Get()
}

// SubscribeState adds a listener for playback state changes.
func (c *Coordinator) SubscribeState() <-chan Snapshot {
	return c.state.Subscribe()
}

// UnsubscribeState removes a state listener.
func (c *Coordinator) UnsubscribeState(ch <-chan Snapshot) {
	c.state.Unsubscribe(ch)
}

// Recents returns the recently-played tracks, most recent first.
func (c *Coordinator) Recents() []catalog.Track {
	var out []catalog.Track
	c.call(func() { out = c.recents.items() })
	return out
}

// ArtistPlayCounts returns this session's per-artist play counts.
func (c *Coordinator) ArtistPlayCounts() map[string]int {
	out := make(map[string]int)
	c.call(func() {
		for artist, n := range c.artistPlays {
			out[artist] = n
		}
	})
	return out
}

// Playlists returns the stored playlists as of the last store notification.
func (c *Coordinator) Playlists() []store.Playlist {
	var out []store.Playlist
	c.call(func() {
		out = make([]store.Playlist, len(c.playlists))
		copy(out, c.playlists)
	})
	return out
}

// History returns the play history mirror, most recent first.
func (c *Coordinator) History() []store.HistoryEntry {
	var out []store.HistoryEntry
	c.call(func() {
		out = make([]store.HistoryEntry, len(c.history))
		copy(out, c.history)
	})
	return out
}

// Queue returns the active playback queue.
func (c *Coordinator) Queue() []catalog.Track {
	var out []catalog.Track
	c.call(func() {
		out = make([]catalog.Track, len(c.queue))
		copy(out, c.queue)
	})
	return out
}

// RegisterSink adds a now-playing surface and renders the current state to
// it immediately. Returns a handle for UnregisterSink.
func (c *Coordinator) RegisterSink(s sink.Sink) string {
	id := uuid.New().String()
	c.dispatch(func() {
		c.sinks[id] = s
		renderSink(s, c.state.Get())
	})
	return id
}

// UnregisterSink removes a surface by handle.
func (c *Coordinator) UnregisterSink(id string) {
	c.dispatch(func() {
		delete(c.sinks, id)
	})
}

// BindCommands drains a surface's transport commands into the coordinator.
func (c *Coordinator) BindCommands(commands <-chan sink.Command) {
	go func() {
		for {
			select {
			case cmd, ok := <-commands:
				if !ok {
					return
				}
				switch cmd {
				case sink.CommandPlayPause:
					c.TogglePlayPause()
				case sink.CommandSkipNext:
					c.SkipNext()
				case sink.CommandSkipPrevious:
					c.SkipPrevious()
				}
			case <-c.done:
				return
			}
		}
	}()
}

// pushSinks renders the current snapshot to every surface. Runs on the loop.
func (c *Coordinator) pushSinks() {
	c.renderAll(c.state.Get())
}

func (c *Coordinator) renderAll(snap Snapshot) {
	for _, s := range c.sinks {
		renderSink(s, snap)
	}
}

func renderSink(s sink.Sink, snap Snapshot) {
	if snap.CurrentTrack == nil {
		s.SetIdle()
		return
	}
	s.UpdateNowPlaying(sink.NowPlaying{
		Title:      snap.CurrentTrack.Title,
		Artist:     snap.CurrentTrack.Artist,
		IsPlaying:  snap.IsPlaying,
		ArtworkRef: snap.CurrentTrack.ArtworkRef,
	})
}

// mediaItems converts the queue for the engine. Runs on the loop.
func (c *Coordinator) mediaItems() []engine.MediaItem {
	items := make([]engine.MediaItem, len(c.queue))
	for i, t := range c.queue {
		items[i] = engine.MediaItem{
			ID:         t.ID,
			URI:        t.URI,
			Title:      t.Title,
			Artist:     t.Artist,
			Album:      t.Album,
			ArtworkRef: t.ArtworkRef,
			DurationMs: t.DurationMs,
		}
	}
	return items
}

// Close stops the mutation loop, the poll, and the store subscriptions, then
// waits for in-flight history writes to land.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.playlistSub != nil {
			c.store.UnsubscribePlaylists(c.playlistSub)
		}
		if c.membershipSub != nil {
			c.store.UnsubscribeMemberships(c.membershipSub)
		}
		if c.historySub != nil {
			c.store.UnsubscribeHistory(c.historySub)
		}
		c.writes.Wait()
	})
}
