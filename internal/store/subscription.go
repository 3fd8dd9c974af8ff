package store

import "sync"

// subscribers tracks listener channels for one reactive stream. Channels are
// buffered; a listener that stops draining is closed and removed rather than
// blocking the writer.
type subscribers[T any] struct {
	mu    sync.Mutex
	chans []chan T
}

func newSubscribers[T any]() *subscribers[T] {
	return &subscribers[T]{}
}

func (s *subscribers[T]) add() chan T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan T, 16)
	s.chans = append(s.chans, ch)
	return ch
}

func (s *subscribers[T]) remove(target <-chan T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range s.chans {
		if ch == target {
			close(ch)
			s.chans = append(s.chans[:i], s.chans[i+1:]...)
			return
		}
	}
}

func (s *subscribers[T]) publish(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chans[:0]
	for _, ch := range s.chans {
		select {
		case ch <- value:
			kept = append(kept, ch)
		default:
			// Listener stopped draining; drop it.
			close(ch)
		}
	}
	s.chans = kept
}

func (s *subscribers[T]) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chans {
		close(ch)
	}
	s.chans = nil
}

// SubscribePlaylists returns a channel receiving the full playlist list:
// once immediately, then after every playlist mutation. Emissions are in
// mutation order. Unsubscribe with UnsubscribePlaylists.
func (s *Store) SubscribePlaylists() <-chan []Playlist {
	ch := s.playlistSubs.add()
	if playlists, err := s.Playlists(); err == nil {
		ch <- playlists
	}
	return ch
}

// UnsubscribePlaylists removes a playlist listener and closes its channel.
func (s *Store) UnsubscribePlaylists(ch <-chan []Playlist) {
	s.playlistSubs.remove(ch)
}

// SubscribeMemberships returns a channel receiving all playlist memberships:
// once immediately, then after every membership mutation.
func (s *Store) SubscribeMemberships() <-chan []Membership {
	ch := s.membershipSubs.add()
	if refs, err := s.Memberships(); err == nil {
		ch <- refs
	}
	return ch
}

// UnsubscribeMemberships removes a membership listener and closes its channel.
func (s *Store) UnsubscribeMemberships(ch <-chan []Membership) {
	s.membershipSubs.remove(ch)
}

// SubscribeHistory returns a channel receiving the play history, most recent
// first: once immediately, then after every append or clear.
func (s *Store) SubscribeHistory() <-chan []HistoryEntry {
	ch := s.historySubs.add()
	if entries, err := s.History(); err == nil {
		ch <- entries
	}
	return ch
}

// UnsubscribeHistory removes a history listener and closes its channel.
func (s *Store) UnsubscribeHistory(ch <-chan []HistoryEntry) {
	s.historySubs.remove(ch)
}

func (s *Store) notifyPlaylists() {
	playlists, err := s.Playlists()
	if err != nil {
		s.logger.WithError(err).Error("Failed to re-read playlists for subscribers")
		return
	}
	s.playlistSubs.publish(playlists)
}

func (s *Store) notifyMemberships() {
	refs, err := s.Memberships()
	if err != nil {
		s.logger.WithError(err).Error("Failed to re-read memberships for subscribers")
		return
	}
	s.membershipSubs.publish(refs)
}

func (s *Store) notifyHistory() {
	entries, err := s.History()
	if err != nil {
		s.logger.WithError(err).Error("Failed to re-read history for subscribers")
		return
	}
	s.historySubs.publish(entries)
}
