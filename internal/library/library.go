// file: internal/library/library.go
// version: 1.0.0
// guid: de238a6b-ef74-4524-a804-9d9e0ee107fd

// Package library models album folders on disk and the audio tracks inside
// them.
package library

import (
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jdfalk/album-enricher/internal/models"
)

// audioExtensions are the file extensions treated as album tracks.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wma":  true,
	".aac":  true,
}

// discFolderPattern matches per-disc subfolders such as "CD1" or "Disc 2".
var discFolderPattern = regexp.MustCompile(`(?i)^(cd|disc|disk)\s*[-_.]?\s*\d+$`)

// IsAudioFile reports whether name has a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsDiscFolder reports whether a directory name denotes one disc of a
// multi-disc album.
func IsDiscFolder(name string) bool {
	return discFolderPattern.MatchString(strings.TrimSpace(name))
}

// AlbumDir returns the album directory that owns tracks found in dir.
func AlbumDir(dir string) string {
	dir = filepath.Clean(dir)
	if IsDiscFolder(filepath.Base(dir)) {
		return filepath.Dir(dir)
	}
	return dir
}

// Track is an audio file with the tag values the enricher reads.
type Track struct {
	path        string
	albumTitle  string
	albumArtist string
}

// NewTrack creates a track with known tag values.
func NewTrack(path, albumTitle, albumArtist string) *Track {
	return &Track{path: path, albumTitle: albumTitle, albumArtist: albumArtist}
}

// Path returns the file path of the track.
func (t *Track) Path() string { return t.path }

// AlbumTitle returns the album tag.
func (t *Track) AlbumTitle() string { return t.albumTitle }

// AlbumArtist returns the album-artist tag.
func (t *Track) AlbumArtist() string { return t.albumArtist }

// Album is an album folder and the tracks beneath it. It is safe for
// concurrent use.
type Album struct {
	id           string
	name         string
	parentName   string
	metaLocation string

	mu          sync.RWMutex
	tracks      []*Track
	providerIDs map[string]string
	metadata    models.AlbumMetadata
}

var _ models.Album = (*Album)(nil)

// NewAlbum creates an album entity.
func NewAlbum(id, name, parentName, metaLocation string, tracks ...*Track) *Album {
	return &Album{
		id:           id,
		name:         name,
		parentName:   parentName,
		metaLocation: metaLocation,
		tracks:       tracks,
		providerIDs:  make(map[string]string),
	}
}

// newAlbumForDir derives the album identity from its directory.
func newAlbumForDir(dir string) *Album {
	dir = filepath.Clean(dir)
	return NewAlbum(dir, filepath.Base(dir), filepath.Base(filepath.Dir(dir)), dir)
}

func (a *Album) ID() string           { return a.id }
func (a *Album) Name() string         { return a.name }
func (a *Album) ParentName() string   { return a.parentName }
func (a *Album) MetaLocation() string { return a.metaLocation }

// Tracks returns a snapshot of every track in the album.
func (a *Album) Tracks() []models.Track {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Track, 0, len(a.tracks))
	for _, t := range a.tracks {
		out = append(out, t)
	}
	return out
}

// TrackCount returns the number of tracks.
func (a *Album) TrackCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tracks)
}

// AddTrack appends a track to the album.
func (a *Album) AddTrack(t *Track) {
	a.mu.Lock()
	a.tracks = append(a.tracks, t)
	a.mu.Unlock()
}

// ProviderID returns the stored ID for key, or "".
func (a *Album) ProviderID(key string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.providerIDs[key]
}

// SetProviderID stores an external ID. An empty value removes the key.
func (a *Album) SetProviderID(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if value == "" {
		delete(a.providerIDs, key)
		return
	}
	a.providerIDs[key] = value
}

// Metadata returns the album's mutable metadata. Callers enriching the same
// album must not run concurrently.
func (a *Album) Metadata() *models.AlbumMetadata {
	return &a.metadata
}

// ApplyRecord loads persisted provider IDs and metadata into the album.
func (a *Album) ApplyRecord(rec *models.AlbumRecord) {
	if rec == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range rec.ProviderIDs {
		if v != "" {
			a.providerIDs[k] = v
		}
	}
	a.metadata = rec.Metadata
	a.metadata.Tags = slices.Clone(rec.Metadata.Tags)
	a.metadata.LockedFields = slices.Clone(rec.Metadata.LockedFields)
}

// Record captures the album's persistable state.
func (a *Album) Record() *models.AlbumRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	meta := a.metadata
	meta.Tags = slices.Clone(a.metadata.Tags)
	meta.LockedFields = slices.Clone(a.metadata.LockedFields)
	return &models.AlbumRecord{
		ID:          a.id,
		ProviderIDs: maps.Clone(a.providerIDs),
		Metadata:    meta,
		UpdatedAt:   time.Now().UTC(),
	}
}
