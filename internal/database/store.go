// file: internal/database/store.go
// version: 3.0.0
// guid: e97fec02-b598-4f5b-8ff9-c9d1d7f8b876

package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jdfalk/album-enricher/internal/models"
)

// Store persists provider state records and album records.
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	Close() error

	// Provider state, keyed by (item, provider). Get returns nil, nil when
	// no record exists yet.
	GetProviderState(itemID, provider string) (*models.ProviderState, error)
	UpsertProviderState(state *models.ProviderState) error
	ListProviderStates(provider string) ([]models.ProviderState, error)

	// Album records. Get returns nil, nil when the album is unknown.
	GetAlbumRecord(id string) (*models.AlbumRecord, error)
	SaveAlbumRecord(rec *models.AlbumRecord) error
}

// Supported store types.
const (
	TypePebble = "pebble"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// ErrInvalidKey is returned for records missing their identifying fields.
var ErrInvalidKey = errors.New("record key fields must not be empty")

// Open creates the store of the requested type.
func Open(dbType, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "", TypePebble:
		return NewPebbleStore(path)
	case TypeSQLite, "sqlite3":
		return NewSQLiteStore(path)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func validateState(state *models.ProviderState) error {
	if state == nil || strings.TrimSpace(state.ItemID) == "" || strings.TrimSpace(state.Provider) == "" {
		return fmt.Errorf("provider state: %w", ErrInvalidKey)
	}
	return nil
}

func validateRecord(rec *models.AlbumRecord) error {
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("album record: %w", ErrInvalidKey)
	}
	return nil
}
