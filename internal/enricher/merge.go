// file: internal/enricher/merge.go
// version: 1.0.0
// guid: 61b7bc6c-7240-43b6-ae63-9ee93c4e4f0b

package enricher

import (
	"strings"
	"time"

	"github.com/jdfalk/album-enricher/internal/lastfm"
	"github.com/jdfalk/album-enricher/internal/models"
)

// releaseDateLayout matches album.getInfo's "releasedate", e.g. "6 Apr 1999, 00:00".
const releaseDateLayout = "2 Jan 2006, 15:04"

// minReleaseYear rejects the placeholder dates Last.fm returns for unknown releases.
const minReleaseYear = 1901

// Merge applies a fetch result to the album's mutable metadata and provider
// IDs. Locked fields and empty values are left alone.
func Merge(album models.Album, result *lastfm.Album) {
	if album == nil || result == nil {
		return
	}
	meta := album.Metadata()

	if overview := description(result.Wiki); overview != "" && !meta.IsLocked(models.FieldOverview) {
		meta.Overview = overview
	}

	if date, ok := parseReleaseDate(result.ReleaseDate); ok && !meta.IsLocked(models.FieldPremiereDate) {
		meta.PremiereDate = &date
		meta.ProductionYear = date.Year()
	}

	tags := result.TopTags.Names()
	if len(tags) == 0 {
		tags = result.Tags.Names()
	}
	if len(tags) > 0 && !meta.IsLocked(models.FieldTags) {
		meta.Tags = tags
	}

	if img := result.LargestImage(); img != "" && !meta.IsLocked(models.FieldImage) {
		meta.ImageURL = img
	}

	if mbid := strings.TrimSpace(result.MBID); mbid != "" {
		album.SetProviderID(models.ProviderMusicBrainzAlbum, mbid)
	}
	if u := strings.TrimSpace(result.URL); u != "" {
		album.SetProviderID(models.ProviderLastfmURL, u)
	}
}

// description prefers the full wiki text and strips the trailing
// "Read more on Last.fm" link.
func description(wiki *lastfm.Wiki) string {
	if wiki == nil {
		return ""
	}
	text := wiki.Content
	if strings.TrimSpace(text) == "" {
		text = wiki.Summary
	}
	if i := strings.Index(text, "<a href=\"http"); i >= 0 && strings.Contains(text[i:], "Read more on Last.fm") {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func parseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(releaseDateLayout, s)
	if err != nil || t.Year() <= minReleaseYear {
		return time.Time{}, false
	}
	return t, true
}
