// file: internal/fingerprint/fingerprint.go
// version: 1.0.0
// guid: 666b3279-b19e-47e3-891c-7c7d60cb8cd0

// Package fingerprint derives the change-detection digest for an album from
// the tag values of its tracks.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/jdfalk/album-enricher/internal/models"
	"golang.org/x/text/cases"
)

// Fingerprint is an MD5 digest over the distinct album-artist and
// album-title values of an album's tracks.
type Fingerprint [md5.Size]byte

// String returns the lowercase hex form stored in provider state records.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Matches reports whether f equals a previously stored hex fingerprint.
func (f Fingerprint) Matches(stored string) bool {
	return stored != "" && strings.EqualFold(f.String(), stored)
}

// Fold normalizes a tag value for case-insensitive comparison. It returns ""
// for empty and whitespace-only input.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

// Compute returns the fingerprint of the given tracks. The result does not
// depend on track order or on the letter case of tag values.
func Compute(tracks []models.Track) Fingerprint {
	artists := distinct(tracks, models.Track.AlbumArtist)
	titles := distinct(tracks, models.Track.AlbumTitle)

	values := make([]string, 0, len(artists)+len(titles))
	values = append(values, artists...)
	values = append(values, titles...)
	sort.Strings(values)

	return md5.Sum([]byte(strings.Join(values, "")))
}

// ForAlbum is shorthand for Compute(album.Tracks()).
func ForAlbum(album models.Album) Fingerprint {
	return Compute(album.Tracks())
}

func distinct(tracks []models.Track, field func(models.Track) string) []string {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]string, 0, len(tracks))
	for _, track := range tracks {
		v := Fold(field(track))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
