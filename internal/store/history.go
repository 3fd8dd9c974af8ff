package store

import (
	"database/sql"
	"time"
)

// HistoryEntry is one recorded play. Track metadata is denormalized at play
// time so history survives catalog changes. Append-only; rows are never
// updated, only bulk-cleared.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	TrackID    int64  `json:"trackId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkRef string `json:"artworkRef,omitempty"`
	PlayedAt   int64  `json:"playedAt"` // unix ms
}

// TopTrack is an aggregate row for the Wrapped summary: one track and its
// play count within the queried range.
type TopTrack struct {
	TrackID    int64  `json:"trackId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkRef string `json:"artworkRef,omitempty"`
	PlayCount  int    `json:"playCount"`
}

// TopArtist is an aggregate row: one artist and their play count.
type TopArtist struct {
	Artist    string `json:"artist"`
	PlayCount int    `json:"playCount"`
}

// AppendHistory records a play. PlayedAt defaults to now when zero. Returns
// the store-assigned row id.
func (s *Store) AppendHistory(entry HistoryEntry) (int64, error) {
	playedAt := entry.PlayedAt
	if playedAt == 0 {
		playedAt = time.Now().UnixMilli()
	}

	var artworkRef any
	if entry.ArtworkRef != "" {
		artworkRef = entry.ArtworkRef
	}

	result, err := s.appendHistoryStmt.Exec(
		entry.TrackID, entry.Title, entry.Artist, entry.Album, artworkRef, playedAt)
	if err != nil {
		s.logger.WithError(err).WithField("track_id", entry.TrackID).Error("Failed to append history entry")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.notifyHistory()
	return id, nil
}

// History returns all play history entries, most recent first.
func (s *Store) History() ([]HistoryEntry, error) {
	rows, err := s.conn.Query(`
		SELECT id, track_id, title, artist, album, artwork_ref, played_at
		FROM play_history
		ORDER BY played_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var artworkRef sql.NullString
		if err := rows.Scan(&e.ID, &e.TrackID, &e.Title, &e.Artist, &e.Album, &artworkRef, &e.PlayedAt); err != nil {
			return nil, err
		}
		if artworkRef.Valid {
			e.ArtworkRef = artworkRef.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory deletes the entire play history.
func (s *Store) ClearHistory() error {
	_, err := s.conn.Exec("DELETE FROM play_history")
	if err != nil {
		return err
	}
	s.notifyHistory()
	return nil
}

// TopTracksByPlayCount returns the most-played tracks within the half-open
// range [fromMs, toMs). Ties keep the grouping order SQLite returns; that
// ordering is explicitly not guaranteed.
func (s *Store) TopTracksByPlayCount(fromMs, toMs int64, limit int) ([]TopTrack, error) {
	rows, err := s.conn.Query(`
		SELECT track_id, title, artist, album, artwork_ref, COUNT(*) as play_count
		FROM play_history
		WHERE played_at >= ? AND played_at < ?
		GROUP BY track_id
		ORDER BY play_count DESC
		LIMIT ?`, fromMs, toMs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []TopTrack
	for rows.Next() {
		var t TopTrack
		var artworkRef sql.NullString
		if err := rows.Scan(&t.TrackID, &t.Title, &t.Artist, &t.Album, &artworkRef, &t.PlayCount); err != nil {
			return nil, err
		}
		if artworkRef.Valid {
			t.ArtworkRef = artworkRef.String
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TopArtistsByPlayCount returns the most-played artists within [fromMs, toMs).
func (s *Store) TopArtistsByPlayCount(fromMs, toMs int64, limit int) ([]TopArtist, error) {
	rows, err := s.conn.Query(`
		SELECT artist, COUNT(*) as play_count
		FROM play_history
		WHERE played_at >= ? AND played_at < ?
		GROUP BY artist
		ORDER BY play_count DESC
		LIMIT ?`, fromMs, toMs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []TopArtist
	for rows.Next() {
		var a TopArtist
		if err := rows.Scan(&a.Artist, &a.PlayCount); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// CountInRange returns the total number of plays within [fromMs, toMs).
func (s *Store) CountInRange(fromMs, toMs int64) (int, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM play_history
		WHERE played_at >= ? AND played_at < ?`, fromMs, toMs).Scan(&count)
	return count, err
}

// IncrementTotalPlays bumps the persisted lifetime play counter and returns
// the new value. Used for the share-prompt milestones.
func (s *Store) IncrementTotalPlays() (int64, error) {
	_, err := s.conn.Exec(`
		INSERT INTO counters (name, value) VALUES ('total_plays', 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1`)
	if err != nil {
		return 0, err
	}
	return s.TotalPlays()
}

// TotalPlays returns the persisted lifetime play count.
func (s *Store) TotalPlays() (int64, error) {
	var value int64
	err := s.conn.QueryRow(`SELECT value FROM counters WHERE name = 'total_plays'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return value, err
}
