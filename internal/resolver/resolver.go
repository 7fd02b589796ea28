// file: internal/resolver/resolver.go
// version: 1.0.0
// guid: 2a9cd53b-c44e-4216-a2d8-5cc77b58b5f6

// Package resolver turns an album into the ordered list of (artist, album)
// queries tried against the metadata service.
package resolver

import (
	"fmt"
	"iter"
	"strings"

	"github.com/jdfalk/album-enricher/internal/fingerprint"
	"github.com/jdfalk/album-enricher/internal/models"
)

// Source tells where a candidate came from.
type Source int

const (
	// SourceTags candidates come from track album/album-artist tags.
	SourceTags Source = iota
	// SourceFolder is the final fallback built from folder names.
	SourceFolder
)

func (s Source) String() string {
	switch s {
	case SourceTags:
		return "tags"
	case SourceFolder:
		return "folder"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Candidate is a single artist/album query.
type Candidate struct {
	Artist string
	Album  string
	Source Source
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s - %s (%s)", c.Artist, c.Album, c.Source)
}

// Candidates yields the lookup candidates for album in priority order: one
// per distinct (album-artist, album-title) tag pair in first-seen order,
// followed by the (parent folder, folder) fallback. The sequence is derived
// from the album's tracks at the moment iteration starts; stopping early
// skips the remaining candidates, including the fallback.
func Candidates(album models.Album) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, c := range TagCandidates(album.Tracks()) {
			if !yield(c) {
				return
			}
		}
		yield(FolderCandidate(album))
	}
}

// TagCandidates returns the distinct, non-empty tag pairs of tracks.
func TagCandidates(tracks []models.Track) []Candidate {
	seen := make(map[string]struct{}, len(tracks))
	var out []Candidate
	for _, track := range tracks {
		artist := track.AlbumArtist()
		album := track.AlbumTitle()

		key := fingerprint.Fold(artist) + "\x00" + fingerprint.Fold(album)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if strings.TrimSpace(artist) == "" || strings.TrimSpace(album) == "" {
			continue
		}
		out = append(out, Candidate{
			Artist: strings.TrimSpace(artist),
			Album:  strings.TrimSpace(album),
			Source: SourceTags,
		})
	}
	return out
}

// FolderCandidate builds the fallback query from the album folder name and
// the name of its parent folder.
func FolderCandidate(album models.Album) Candidate {
	return Candidate{
		Artist: strings.TrimSpace(album.ParentName()),
		Album:  strings.TrimSpace(album.Name()),
		Source: SourceFolder,
	}
}
