// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 53bb7755-f9de-413a-b1a0-f2216206b8b2

package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/album-enricher/internal/models"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - providerstate:<provider>:<item_id> -> ProviderState JSON
// - album:<id>                          -> AlbumRecord JSON
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

func providerStateKey(provider, itemID string) []byte {
	return []byte(fmt.Sprintf("providerstate:%s:%s", provider, itemID))
}

func albumKey(id string) []byte {
	return []byte(fmt.Sprintf("album:%s", id))
}

// getJSON loads key into v. It reports false when the key does not exist.
func (p *PebbleStore) getJSON(key []byte, v any) (bool, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()

	if err := json.Unmarshal(value, v); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PebbleStore) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.db.Set(key, data, pebble.Sync)
}

// Provider state operations

func (p *PebbleStore) GetProviderState(itemID, provider string) (*models.ProviderState, error) {
	var state models.ProviderState
	ok, err := p.getJSON(providerStateKey(provider, itemID), &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

func (p *PebbleStore) UpsertProviderState(state *models.ProviderState) error {
	if err := validateState(state); err != nil {
		return err
	}
	return p.setJSON(providerStateKey(state.Provider, state.ItemID), state)
}

func (p *PebbleStore) ListProviderStates(provider string) ([]models.ProviderState, error) {
	prefix := fmt.Sprintf("providerstate:%s:", provider)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(fmt.Sprintf("providerstate:%s;", provider)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var states []models.ProviderState
	for iter.First(); iter.Valid(); iter.Next() {
		var state models.ProviderState
		if err := json.Unmarshal(iter.Value(), &state); err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, iter.Error()
}

// Album record operations

func (p *PebbleStore) GetAlbumRecord(id string) (*models.AlbumRecord, error) {
	var rec models.AlbumRecord
	ok, err := p.getJSON(albumKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (p *PebbleStore) SaveAlbumRecord(rec *models.AlbumRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	return p.setJSON(albumKey(rec.ID), rec)
}
