// Package store is the durable side of the player: playlists, playlist
// membership and the append-only play history, backed by SQLite. Reads are
// offered both as one-shot queries and as reactive subscriptions that re-emit
// the full list after every mutation.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Playlist is a user-created, named track collection.
type Playlist struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"` // unix ms
}

// Membership is one (playlist, track) pair, ordered by insertion position.
type Membership struct {
	PlaylistID int64 `json:"playlistId"`
	TrackID    int64 `json:"trackId"`
	Position   int   `json:"position"`
	AddedAt    int64 `json:"addedAt"` // unix ms
}

// Store wraps a *sql.DB providing the player's persistence operations. It is
// safe for concurrent use because the underlying *sql.DB is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for the hot write path
	appendHistoryStmt *sql.Stmt
	addMembershipStmt *sql.Stmt

	playlistSubs   *subscribers[[]Playlist]
	membershipSubs *subscribers[[]Membership]
	historySubs    *subscribers[[]HistoryEntry]
}

// Open opens (or creates) the SQLite database at the provided path and
// ensures all required tables and indices exist. Caller should Close() it
// when finished.
func Open(dbPath string, maxConns int, logger *logrus.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	if maxConns < 1 {
		maxConns = 5
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:           conn,
		logger:         logger,
		playlistSubs:   newSubscribers[[]Playlist](),
		membershipSubs: newSubscribers[[]Membership](),
		historySubs:    newSubscribers[[]HistoryEntry](),
	}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Store initialized")
	return s, nil
}

// createTables creates tables and indices if they do not already exist.
// Idempotent and safe to call multiple times.
func (s *Store) createTables() error {
	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	playlistTracksTable := `
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id INTEGER NOT NULL,
		track_id INTEGER NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		added_at INTEGER NOT NULL,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, track_id)
	);`

	historyTable := `
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		artwork_ref TEXT,
		played_at INTEGER NOT NULL
	);`

	countersTable := `
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_history_played_at ON play_history(played_at);",
		"CREATE INDEX IF NOT EXISTS idx_history_track ON play_history(track_id);",
		"CREATE INDEX IF NOT EXISTS idx_history_artist ON play_history(artist);",
	}

	for _, table := range []string{playlistsTable, playlistTracksTable, historyTable, countersTable} {
		if _, err := s.conn.Exec(table); err != nil {
			return err
		}
	}
	for _, index := range indices {
		if _, err := s.conn.Exec(index); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.appendHistoryStmt, err = s.conn.Prepare(`
		INSERT INTO play_history (track_id, title, artist, album, artwork_ref, played_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare append history statement: %w", err)
	}

	s.addMembershipStmt, err = s.conn.Prepare(`
		INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare add membership statement: %w", err)
	}

	return nil
}

// CreatePlaylist inserts a new playlist and returns its ID. Blank names are
// rejected; surrounding whitespace is trimmed.
func (s *Store) CreatePlaylist(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("playlist name cannot be blank")
	}

	result, err := s.conn.Exec(`
		INSERT INTO playlists (name, created_at)
		VALUES (?, ?)`, name, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.notifyPlaylists()
	return id, nil
}

// RenamePlaylist updates a playlist's name. Blank names are rejected.
func (s *Store) RenamePlaylist(id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("playlist name cannot be blank")
	}

	_, err := s.conn.Exec("UPDATE playlists SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return err
	}
	s.notifyPlaylists()
	return nil
}

// DeletePlaylist deletes the playlist; the foreign key cascades to its
// memberships.
func (s *Store) DeletePlaylist(id int64) error {
	_, err := s.conn.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return err
	}
	s.notifyPlaylists()
	s.notifyMemberships()
	return nil
}

// Playlists returns all playlists, most recently created first.
func (s *Store) Playlists() ([]Playlist, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, created_at FROM playlists ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// AddToPlaylist appends a track to the end of a playlist. Re-adding an
// existing member is a no-op, so duplicate command retries are absorbed.
func (s *Store) AddToPlaylist(playlistID, trackID int64) error {
	var maxPosition sql.NullInt64
	err := s.conn.QueryRow(`
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID).Scan(&maxPosition)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	position := 1
	if maxPosition.Valid {
		position = int(maxPosition.Int64) + 1
	}

	_, err = s.addMembershipStmt.Exec(playlistID, trackID, position, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	s.notifyMemberships()
	return nil
}

// RemoveFromPlaylist removes a specific track from the given playlist.
func (s *Store) RemoveFromPlaylist(playlistID, trackID int64) error {
	_, err := s.conn.Exec(`
		DELETE FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)
	if err != nil {
		return err
	}
	s.notifyMemberships()
	return nil
}

// Memberships returns every (playlist, track) pair ordered by playlist and
// stored position. Consumers keep this as one global map, matching the
// reactive read contract.
func (s *Store) Memberships() ([]Membership, error) {
	rows, err := s.conn.Query(`
		SELECT playlist_id, track_id, position, added_at
		FROM playlist_tracks
		ORDER BY playlist_id ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.PlaylistID, &m.TrackID, &m.Position, &m.AddedAt); err != nil {
			return nil, err
		}
		refs = append(refs, m)
	}
	return refs, rows.Err()
}

// Close closes the prepared statements and the database connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.appendHistoryStmt, s.addMembershipStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				s.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	s.playlistSubs.closeAll()
	s.membershipSubs.closeAll()
	s.historySubs.closeAll()

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
