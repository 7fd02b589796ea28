// file: internal/lastfm/types.go
// version: 1.0.0
// guid: a88ec81b-633c-4b91-9e35-552427f76d0d

package lastfm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// AlbumInfoResponse is the album.getInfo response envelope. Error responses
// carry Error and Message instead of Album.
type AlbumInfoResponse struct {
	Album   *Album `json:"album,omitempty"`
	Error   int    `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Album is the album payload returned by album.getInfo.
type Album struct {
	Name        string    `json:"name"`
	Artist      string    `json:"artist"`
	ID          string    `json:"id,omitempty"`
	MBID        string    `json:"mbid,omitempty"`
	URL         string    `json:"url,omitempty"`
	ReleaseDate string    `json:"releasedate,omitempty"`
	Listeners   string    `json:"listeners,omitempty"`
	Playcount   string    `json:"playcount,omitempty"`
	Images      []Image   `json:"image,omitempty"`
	Tags        TagList   `json:"tags"`
	TopTags     TagList   `json:"toptags"`
	Tracks      TrackList `json:"tracks"`
	Wiki        *Wiki     `json:"wiki,omitempty"`
}

// usable reports whether the payload identifies an album at all.
func (a *Album) usable() bool {
	if a == nil {
		return false
	}
	return strings.TrimSpace(a.Name) != "" || a.MBID != "" || a.URL != ""
}

// Image is one size variant of the album artwork.
type Image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// imageSizeRank orders Last.fm image sizes from smallest to largest.
var imageSizeRank = map[string]int{
	"small":      1,
	"medium":     2,
	"large":      3,
	"extralarge": 4,
	"mega":       5,
}

// LargestImage returns the URL of the biggest non-empty image, or "".
func (a *Album) LargestImage() string {
	best, bestRank := "", -1
	for _, img := range a.Images {
		if img.URL == "" {
			continue
		}
		if rank := imageSizeRank[img.Size]; rank > bestRank {
			best, bestRank = img.URL, rank
		}
	}
	return best
}

// Tag is a Last.fm folksonomy tag.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// TagList decodes {"tag": [...]}, {"tag": {...}} and the empty-string form
// Last.fm uses when an album has no tags.
type TagList struct {
	Tag oneOrMany[Tag] `json:"tag,omitempty"`
}

func (l *TagList) UnmarshalJSON(data []byte) error {
	if isEmptyValue(data) {
		*l = TagList{}
		return nil
	}
	type plain TagList
	return json.Unmarshal(data, (*plain)(l))
}

// Names returns the non-empty tag names in order.
func (l TagList) Names() []string {
	var out []string
	for _, t := range l.Tag {
		if name := strings.TrimSpace(t.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// TrackArtist is the artist block nested in a track.
type TrackArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Track is one entry of the album's track listing.
type Track struct {
	Name   string      `json:"name"`
	URL    string      `json:"url,omitempty"`
	Artist TrackArtist `json:"artist"`
}

// TrackList decodes the tracks block, which holds an object instead of an
// array for single-track albums.
type TrackList struct {
	Track oneOrMany[Track] `json:"track,omitempty"`
}

func (l *TrackList) UnmarshalJSON(data []byte) error {
	if isEmptyValue(data) {
		*l = TrackList{}
		return nil
	}
	type plain TrackList
	return json.Unmarshal(data, (*plain)(l))
}

// Wiki holds the album description.
type Wiki struct {
	Published string `json:"published,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Content   string `json:"content,omitempty"`
}

// oneOrMany decodes either a JSON array or a single object into a slice.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyValue(data) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = oneOrMany[T]{item}
	return nil
}

func isEmptyValue(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`))
}
