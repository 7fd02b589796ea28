// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 01cd9736-44fc-46d9-9c2d-486c6389a267

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jdfalk/album-enricher/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS provider_states (
		item_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		last_refreshed TEXT NOT NULL DEFAULT '',
		last_attempt_id TEXT NOT NULL DEFAULT '',
		last_status TEXT NOT NULL DEFAULT '',
		matched_artist TEXT NOT NULL DEFAULT '',
		matched_album TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (item_id, provider)
	);

	CREATE INDEX IF NOT EXISTS idx_provider_states_provider ON provider_states(provider);

	CREATE TABLE IF NOT EXISTS album_records (
		id TEXT PRIMARY KEY,
		provider_ids TEXT NOT NULL DEFAULT '{}',
		metadata TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

const stateSelectColumns = `
	item_id, provider, fingerprint, last_refreshed,
	last_attempt_id, last_status, matched_artist, matched_album
`

func scanState(scanner rowScanner, state *models.ProviderState) error {
	var refreshed string
	if err := scanner.Scan(
		&state.ItemID, &state.Provider, &state.Fingerprint, &refreshed,
		&state.LastAttemptID, &state.LastStatus, &state.MatchedArtist, &state.MatchedAlbum,
	); err != nil {
		return err
	}
	t, err := parseTime(refreshed)
	if err != nil {
		return fmt.Errorf("invalid last_refreshed %q: %w", refreshed, err)
	}
	state.LastRefreshed = t
	return nil
}

// Provider state operations

func (s *SQLiteStore) GetProviderState(itemID, provider string) (*models.ProviderState, error) {
	row := s.db.QueryRow(
		`SELECT `+stateSelectColumns+` FROM provider_states WHERE item_id = ? AND provider = ?`,
		itemID, provider,
	)
	var state models.ProviderState
	if err := scanState(row, &state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (s *SQLiteStore) UpsertProviderState(state *models.ProviderState) error {
	if err := validateState(state); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO provider_states (
			item_id, provider, fingerprint, last_refreshed,
			last_attempt_id, last_status, matched_artist, matched_album
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, provider) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			last_refreshed = excluded.last_refreshed,
			last_attempt_id = excluded.last_attempt_id,
			last_status = excluded.last_status,
			matched_artist = excluded.matched_artist,
			matched_album = excluded.matched_album`,
		state.ItemID, state.Provider, state.Fingerprint, formatTime(state.LastRefreshed),
		state.LastAttemptID, state.LastStatus, state.MatchedArtist, state.MatchedAlbum,
	)
	return err
}

func (s *SQLiteStore) ListProviderStates(provider string) ([]models.ProviderState, error) {
	rows, err := s.db.Query(
		`SELECT `+stateSelectColumns+` FROM provider_states WHERE provider = ? ORDER BY item_id`,
		provider,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.ProviderState
	for rows.Next() {
		var state models.ProviderState
		if err := scanState(rows, &state); err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// Album record operations

func (s *SQLiteStore) GetAlbumRecord(id string) (*models.AlbumRecord, error) {
	var ids, meta, updated string
	err := s.db.QueryRow(
		`SELECT provider_ids, metadata, updated_at FROM album_records WHERE id = ?`, id,
	).Scan(&ids, &meta, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &models.AlbumRecord{ID: id}
	if err := json.Unmarshal([]byte(ids), &rec.ProviderIDs); err != nil {
		return nil, fmt.Errorf("invalid provider_ids for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("invalid metadata for %s: %w", id, err)
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("invalid updated_at for %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) SaveAlbumRecord(rec *models.AlbumRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	ids, err := json.Marshal(rec.ProviderIDs)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO album_records (id, provider_ids, metadata, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider_ids = excluded.provider_ids,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		rec.ID, string(ids), string(meta), formatTime(rec.UpdatedAt),
	)
	return err
}
