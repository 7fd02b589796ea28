// file: internal/database/memory_store.go
// version: 1.0.0
// guid: 27820e00-76f1-458a-9f7f-62b9a1c819d8

package database

import (
	"sort"
	"sync"

	"github.com/jdfalk/album-enricher/internal/models"
)

// MemoryStore is a process-local Store. Records are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]models.ProviderState
	records map[string]models.AlbumRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]models.ProviderState),
		records: make(map[string]models.AlbumRecord),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) GetProviderState(itemID, provider string) (*models.ProviderState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[string(providerStateKey(provider, itemID))]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryStore) UpsertProviderState(state *models.ProviderState) error {
	if err := validateState(state); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[string(providerStateKey(state.Provider, state.ItemID))] = *state
	return nil
}

func (m *MemoryStore) ListProviderStates(provider string) ([]models.ProviderState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var states []models.ProviderState
	for _, state := range m.states {
		if state.Provider == provider {
			states = append(states, state)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ItemID < states[j].ItemID })
	return states, nil
}

func (m *MemoryStore) GetAlbumRecord(id string) (*models.AlbumRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (m *MemoryStore) SaveAlbumRecord(rec *models.AlbumRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func cloneRecord(rec models.AlbumRecord) models.AlbumRecord {
	if rec.ProviderIDs != nil {
		ids := make(map[string]string, len(rec.ProviderIDs))
		for k, v := range rec.ProviderIDs {
			ids[k] = v
		}
		rec.ProviderIDs = ids
	}
	rec.Metadata.Tags = append([]string(nil), rec.Metadata.Tags...)
	rec.Metadata.LockedFields = append([]string(nil), rec.Metadata.LockedFields...)
	if rec.Metadata.PremiereDate != nil {
		d := *rec.Metadata.PremiereDate
		rec.Metadata.PremiereDate = &d
	}
	return rec
}
