// file: internal/resolver/resolver_test.go
// version: 1.0.0
// guid: 55e1633f-596d-4381-9e85-1704b033026c

package resolver

import (
	"slices"
	"testing"

	"github.com/jdfalk/album-enricher/internal/library"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlbum(name, parent string, tracks ...*library.Track) *library.Album {
	return library.NewAlbum("/music/"+parent+"/"+name, name, parent, "/music/"+parent+"/"+name, tracks...)
}

func TestCandidates_DedupPreservesOrder(t *testing.T) {
	album := newAlbum("Mixed", "Various",
		library.NewTrack("a.mp3", "Album A", "Artist A"),
		library.NewTrack("b.mp3", "Album B", "Artist B"),
		library.NewTrack("c.mp3", "album a", "ARTIST A"),
	)

	got := slices.Collect(Candidates(album))

	require.Len(t, got, 3)
	assert.Equal(t, Candidate{Artist: "Artist A", Album: "Album A", Source: SourceTags}, got[0])
	assert.Equal(t, Candidate{Artist: "Artist B", Album: "Album B", Source: SourceTags}, got[1])
	assert.Equal(t, Candidate{Artist: "Various", Album: "Mixed", Source: SourceFolder}, got[2])
}

func TestCandidates_SingleArtistAlbum(t *testing.T) {
	album := newAlbum("Abbey Road", "The Beatles",
		library.NewTrack("1.mp3", "Abbey Road", "The Beatles"),
		library.NewTrack("2.mp3", "Abbey Road", "The Beatles"),
		library.NewTrack("3.mp3", "Abbey Road", "The Beatles"),
	)

	var first Candidate
	count := 0
	for c := range Candidates(album) {
		count++
		first = c
		break
	}

	assert.Equal(t, 1, count)
	assert.Equal(t, Candidate{Artist: "The Beatles", Album: "Abbey Road", Source: SourceTags}, first)
	assert.Len(t, TagCandidates(album.Tracks()), 1)
}

func TestCandidates_NoTagsFallsBackToFolder(t *testing.T) {
	album := newAlbum("Unknown", "Music",
		library.NewTrack("1.mp3", "", ""),
		library.NewTrack("2.mp3", "  ", ""),
	)

	got := slices.Collect(Candidates(album))

	require.Len(t, got, 1)
	assert.Equal(t, Candidate{Artist: "Music", Album: "Unknown", Source: SourceFolder}, got[0])
}

func TestCandidates_FiltersHalfTaggedTracks(t *testing.T) {
	album := newAlbum("Album", "Artist",
		library.NewTrack("1.mp3", "Only Title", ""),
		library.NewTrack("2.mp3", "", "Only Artist"),
		library.NewTrack("3.mp3", "Full", "Tagged"),
	)

	got := TagCandidates(album.Tracks())

	require.Len(t, got, 1)
	assert.Equal(t, "Tagged", got[0].Artist)
	assert.Equal(t, "Full", got[0].Album)
}

func TestCandidates_BoundedByDistinctPairsPlusOne(t *testing.T) {
	var tracks []*library.Track
	for i := 0; i < 10; i++ {
		tracks = append(tracks, library.NewTrack("t.mp3", "Same", "Artist"))
		tracks = append(tracks, library.NewTrack("u.mp3", "Other", "Artist"))
	}
	album := newAlbum("Folder", "Parent", tracks...)

	got := slices.Collect(Candidates(album))

	assert.Len(t, got, 3)
}

func TestCandidates_ReflectsCurrentTracks(t *testing.T) {
	album := newAlbum("Folder", "Parent", library.NewTrack("1.mp3", "First", "Artist"))
	seq := Candidates(album)

	album.AddTrack(library.NewTrack("2.mp3", "Second", "Artist"))

	got := slices.Collect(seq)
	assert.Len(t, got, 3)
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "tags", SourceTags.String())
	assert.Equal(t, "folder", SourceFolder.String())
	assert.Equal(t, "source(7)", Source(7).String())
}

var _ models.Album = (*library.Album)(nil)
