// file: internal/agent/runner_test.go
// version: 1.1.0
// guid: cd7bd08e-38a0-4dbf-abce-7b7048482be8

package agent

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdfalk/album-enricher/internal/database"
	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/library"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRefresher returns outcomes by album name.
type scriptedRefresher struct {
	mu       sync.Mutex
	statuses map[string]string
	errs     map[string]error
	seen     []string
	gate     chan struct{}

	inFlight, maxInFlight atomic.Int32
}

func (s *scriptedRefresher) Run(ctx context.Context, album models.Album) (*enricher.Outcome, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.seen = append(s.seen, album.Name())
	s.mu.Unlock()

	if err := s.errs[album.Name()]; err != nil {
		return nil, err
	}
	status := s.statuses[album.Name()]
	if status == "" {
		status = models.StatusNotFound
	}
	if status == models.StatusFound {
		album.SetProviderID(models.ProviderMusicBrainzAlbum, "mbid-"+album.Name())
		album.Metadata().Overview = "about " + album.Name()
	}
	return &enricher.Outcome{Status: status}, nil
}

func albumNamed(name string) *library.Album {
	return library.NewAlbum("/music/"+name, name, "music", "",
		library.NewTrack(name+".mp3", name, "Artist"))
}

func TestRunner_SummaryCounts(t *testing.T) {
	refresher := &scriptedRefresher{
		statuses: map[string]string{"a": models.StatusFound, "b": models.StatusSkipped},
		errs:     map[string]error{"d": errors.New("boom"), "e": context.Canceled},
	}
	store := database.NewMemoryStore()
	r := NewRunner(refresher, store)

	albums := []*library.Album{albumNamed("a"), albumNamed("b"), albumNamed("c"), albumNamed("d"), albumNamed("e")}
	summary, err := r.runAlbums(context.Background(), albums)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Scanned)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Canceled)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "/music/d", summary.Errors[0].AlbumID)
	assert.Same(t, summary, r.LastSummary())
}

func TestRunner_PersistsRecordsForFoundAlbums(t *testing.T) {
	refresher := &scriptedRefresher{statuses: map[string]string{"a": models.StatusFound}}
	store := database.NewMemoryStore()
	r := NewRunner(refresher, store)

	_, err := r.runAlbums(context.Background(), []*library.Album{albumNamed("a"), albumNamed("b")})
	require.NoError(t, err)

	rec, err := store.GetAlbumRecord("/music/a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "mbid-a", rec.ProviderIDs[models.ProviderMusicBrainzAlbum])
	assert.Equal(t, "about a", rec.Metadata.Overview)

	rec, err = store.GetAlbumRecord("/music/b")
	require.NoError(t, err)
	assert.Nil(t, rec, "not-found albums write no record")
}

func TestRunner_AppliesStoredRecordBeforeRefresh(t *testing.T) {
	store := database.NewMemoryStore()
	require.NoError(t, store.SaveAlbumRecord(&models.AlbumRecord{
		ID:          "/music/a",
		ProviderIDs: map[string]string{models.ProviderMusicBrainzAlbum: "known"},
	}))

	var got string
	refresher := refresherFunc(func(_ context.Context, album models.Album) (*enricher.Outcome, error) {
		got = album.ProviderID(models.ProviderMusicBrainzAlbum)
		return &enricher.Outcome{Status: models.StatusSkipped}, nil
	})

	_, err := NewRunner(refresher, store).runAlbums(context.Background(), []*library.Album{albumNamed("a")})
	require.NoError(t, err)
	assert.Equal(t, "known", got)
}

type refresherFunc func(ctx context.Context, album models.Album) (*enricher.Outcome, error)

func (f refresherFunc) Run(ctx context.Context, album models.Album) (*enricher.Outcome, error) {
	return f(ctx, album)
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	refresher := &scriptedRefresher{gate: make(chan struct{})}
	r := NewRunner(refresher, nil, WithWorkers(2))

	var albums []*library.Album
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		albums = append(albums, albumNamed(n))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.runAlbums(context.Background(), albums)
	}()

	require.Eventually(t, func() bool { return refresher.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(refresher.gate)
	<-done

	assert.Equal(t, int32(2), refresher.maxInFlight.Load())
	assert.Len(t, refresher.seen, 6)
}

func TestRunner_CanceledPass(t *testing.T) {
	refresher := &scriptedRefresher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewRunner(refresher, nil).runAlbums(ctx, []*library.Album{albumNamed("a"), albumNamed("b")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, summary.Canceled)
	assert.Empty(t, refresher.seen)
}

func TestRunner_RunScansLibrary(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"Artist/Album One/01.mp3",
		"Artist/Album Two/CD1/01.mp3",
		"Artist/Album Two/CD2/01.mp3",
		"Artist/notes.txt",
	} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("not really audio"), 0o644))
	}

	refresher := &scriptedRefresher{}
	var progress bytes.Buffer
	r := NewRunner(refresher, nil, WithProgress(&progress))

	summary, err := r.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.ElementsMatch(t, []string{"Album One", "Album Two"}, refresher.seen)
	assert.NotZero(t, progress.Len())
}

func TestRunner_RunDirsDeduplicatesAlbums(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"Album/CD1/01.mp3", "Album/CD2/01.mp3"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	refresher := &scriptedRefresher{}
	summary, err := NewRunner(refresher, nil).RunDirs(context.Background(), []string{
		filepath.Join(root, "Album", "CD1"),
		filepath.Join(root, "Album", "CD2"),
		filepath.Join(root, "Album"),
		filepath.Join(root, "missing"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, []string{"Album"}, refresher.seen)
}

func TestRunner_StartRejectsConcurrentPass(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "01.mp3"), []byte("x"), 0o644))

	refresher := &scriptedRefresher{gate: make(chan struct{})}
	r := NewRunner(refresher, nil)

	done, err := r.Start(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, r.Running())

	_, err = r.Start(context.Background(), root)
	assert.ErrorIs(t, err, ErrBusy)

	close(refresher.gate)
	summary := <-done
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Scanned)
	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, 5*time.Millisecond)
}

func TestRunner_WaitBlocksUntilPassEnds(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "01.mp3"), []byte("x"), 0o644))

	refresher := &scriptedRefresher{gate: make(chan struct{})}
	r := NewRunner(refresher, nil)

	// The pass is not tied to ctx, so only the gate ends it.
	_, err := r.Start(context.Background(), root)
	require.NoError(t, err)

	waited := make(chan struct{})
	go func() {
		r.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a pass was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(refresher.gate)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the pass ended")
	}
	assert.False(t, r.Running())
	assert.NotNil(t, r.LastSummary())
}

func TestRunner_WaitReturnsWhenIdle(t *testing.T) {
	r := NewRunner(&scriptedRefresher{}, nil)
	r.Wait()
	assert.False(t, r.Running())
}
