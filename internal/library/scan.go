// file: internal/library/scan.go
// version: 1.0.0
// guid: 6ee42b73-0b7a-47d2-a2f6-844b05d717e5

package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// ReadTrack reads album tags from an audio file. Files without readable tags
// yield a track with empty values; AlbumArtist falls back to Artist.
func ReadTrack(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return NewTrack(path, "", ""), nil
	}

	artist := strings.TrimSpace(m.AlbumArtist())
	if artist == "" {
		artist = strings.TrimSpace(m.Artist())
	}
	return NewTrack(path, strings.TrimSpace(m.Album()), artist), nil
}

// Scan walks root and groups audio files into albums. Tracks in disc
// subfolders belong to the enclosing album. Albums are returned in walk order.
func Scan(root string) ([]*Album, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve library root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", root)
	}

	byDir := make(map[string]*Album)
	var order []*Album

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip inaccessible entries
		}
		if d.IsDir() || !IsAudioFile(d.Name()) {
			return nil
		}

		albumDir := AlbumDir(filepath.Dir(path))
		album, ok := byDir[albumDir]
		if !ok {
			album = newAlbumForDir(albumDir)
			byDir[albumDir] = album
			order = append(order, album)
		}

		track, err := ReadTrack(path)
		if err != nil {
			track = NewTrack(path, "", "")
		}
		album.AddTrack(track)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ScanAlbum scans a single album directory (and its disc subfolders). It
// returns nil when the directory holds no audio files.
func ScanAlbum(dir string) (*Album, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	dir = AlbumDir(abs)
	albums, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		if a.ID() == dir {
			return a, nil
		}
	}
	return nil, nil
}
