// file: internal/models/album.go
// version: 1.0.0
// guid: 7746ff26-b0b9-43ea-9f93-bf547d7d357c

package models

import "time"

// Provider ID keys stored on an album.
const (
	ProviderMusicBrainzAlbum = "musicbrainz_album"
	ProviderLastfmURL        = "lastfm_url"
)

// Metadata field names that can be locked against provider updates.
const (
	FieldOverview     = "overview"
	FieldPremiereDate = "premiere_date"
	FieldTags         = "tags"
	FieldImage        = "image"
)

// Track is the read-only view of an audio track the enrichment core consumes.
type Track interface {
	AlbumTitle() string
	AlbumArtist() string
}

// Album is the capability view of a music album folder. Tracks returns every
// descendant track, including those in nested disc folders.
type Album interface {
	ID() string
	Name() string
	ParentName() string
	MetaLocation() string
	Tracks() []Track
	ProviderID(key string) string
	SetProviderID(key, value string)
	Metadata() *AlbumMetadata
}

// AlbumMetadata holds the mutable descriptive fields of an album.
type AlbumMetadata struct {
	Overview       string     `json:"overview,omitempty" yaml:"overview,omitempty"`
	PremiereDate   *time.Time `json:"premiere_date,omitempty" yaml:"premiere_date,omitempty"`
	ProductionYear int        `json:"production_year,omitempty" yaml:"production_year,omitempty"`
	Tags           []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	ImageURL       string     `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	LockedFields   []string   `json:"locked_fields,omitempty" yaml:"locked_fields,omitempty"`
}

// IsLocked reports whether field must not be overwritten by providers.
func (m *AlbumMetadata) IsLocked(field string) bool {
	if m == nil {
		return false
	}
	for _, f := range m.LockedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Refresh status values recorded in ProviderState.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusSkipped  = "skipped"
)

// ProviderState is the per-album, per-provider bookkeeping record used to
// decide when an album needs to be refreshed again.
type ProviderState struct {
	ItemID        string    `json:"item_id" yaml:"item_id"`
	Provider      string    `json:"provider" yaml:"provider"`
	Fingerprint   string    `json:"fingerprint" yaml:"fingerprint"`
	LastRefreshed time.Time `json:"last_refreshed" yaml:"last_refreshed"`
	LastAttemptID string    `json:"last_attempt_id,omitempty" yaml:"last_attempt_id,omitempty"`
	LastStatus    string    `json:"last_status,omitempty" yaml:"last_status,omitempty"`
	MatchedArtist string    `json:"matched_artist,omitempty" yaml:"matched_artist,omitempty"`
	MatchedAlbum  string    `json:"matched_album,omitempty" yaml:"matched_album,omitempty"`
}

// AlbumRecord is the persisted part of an album entity: provider IDs and
// merged metadata survive between library scans.
type AlbumRecord struct {
	ID          string            `json:"id" yaml:"id"`
	ProviderIDs map[string]string `json:"provider_ids,omitempty" yaml:"provider_ids,omitempty"`
	Metadata    AlbumMetadata     `json:"metadata" yaml:"metadata"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
}
