// file: internal/watcher/watcher_test.go
// version: 2.1.0
// guid: 4eb7c1a6-be97-4d60-a24c-80790a74580f

package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects callback invocations.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) callback(dirs []string) {
	r.mu.Lock()
	r.calls = append(r.calls, dirs)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func startWatcher(t *testing.T, dir string, debounce time.Duration) *recorder {
	t.Helper()
	rec := &recorder{}
	w := New(rec.callback, debounce)
	require.NoError(t, w.Start(dir))
	t.Cleanup(w.Stop)
	return rec
}

func TestDebounceSingleEvent(t *testing.T) {
	dir := t.TempDir()
	rec := startWatcher(t, dir, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.mp3"), []byte("data"), 0o644))

	// Wait for debounce + buffer.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, [][]string{{dir}}, rec.snapshot())
}

func TestDebounceMultipleEvents(t *testing.T) {
	dir := t.TempDir()
	albumA := filepath.Join(dir, "Artist", "A")
	albumB := filepath.Join(dir, "Artist", "B")
	require.NoError(t, os.MkdirAll(albumA, 0o755))
	require.NoError(t, os.MkdirAll(albumB, 0o755))
	rec := startWatcher(t, dir, 200*time.Millisecond)

	// Rapid-fire writes across two albums within the debounce window.
	for i := 0; i < 3; i++ {
		_ = os.WriteFile(filepath.Join(albumA, "t"+string(rune('a'+i))+".flac"), []byte("data"), 0o644)
		_ = os.WriteFile(filepath.Join(albumB, "t"+string(rune('a'+i))+".mp3"), []byte("data"), 0o644)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, [][]string{{albumA, albumB}}, rec.snapshot())
}

func TestDiscFolderMapsToAlbum(t *testing.T) {
	dir := t.TempDir()
	disc := filepath.Join(dir, "Album", "CD2")
	require.NoError(t, os.MkdirAll(disc, 0o755))
	rec := startWatcher(t, dir, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(disc, "01.mp3"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, [][]string{{filepath.Join(dir, "Album")}}, rec.snapshot())
}

func TestNonAudioFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	rec := startWatcher(t, dir, 100*time.Millisecond)

	// Create non-audio files only, including the local metadata copy.
	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "lastfmalbum.json"), []byte("{}"), 0o644)

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestRecursiveWatching(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "artist", "album")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	rec := startWatcher(t, dir, 100*time.Millisecond)

	_ = os.WriteFile(filepath.Join(subdir, "01.flac"), []byte("audio"), 0o644)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, [][]string{{subdir}}, rec.snapshot())
}

func TestStopIsIdempotent(t *testing.T) {
	w := New(func([]string) {}, 100*time.Millisecond)
	require.NoError(t, w.Start(t.TempDir()))
	w.Stop()
	w.Stop() // should not panic
}

func TestStartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(func([]string) {}, 100*time.Millisecond)
	require.NoError(t, w.Start(dir))
	defer w.Stop()
	// Second start should be a no-op.
	require.NoError(t, w.Start(dir))
}

func TestDeleteTriggers(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(f, []byte("data"), 0o644))
	rec := startWatcher(t, dir, 100*time.Millisecond)

	// Give watcher time to register.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.Remove(f))
	time.Sleep(300 * time.Millisecond)
	assert.NotEmpty(t, rec.snapshot(), "expected callback on file deletion")
}

func TestHasAudio(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, hasAudio(dir))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "CD1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CD1", "01.ogg"), []byte("x"), 0o644))
	assert.True(t, hasAudio(dir))
}

func TestStopWaitsForRunningCallback(t *testing.T) {
	dir := t.TempDir()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	w := New(func([]string) {
		once.Do(func() { close(entered) })
		<-release
	}, 50*time.Millisecond)
	require.NoError(t, w.Start(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.mp3"), []byte("data"), 0o644))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the callback was running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the callback finished")
	}
}

func TestStopDropsPendingChanges(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(rec.callback, time.Hour)
	require.NoError(t, w.Start(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.mp3"), []byte("data"), 0o644))
	time.Sleep(100 * time.Millisecond)
	w.Stop()
	assert.Empty(t, rec.snapshot())
}

func TestStartFailureCanBeRetried(t *testing.T) {
	w := New(func([]string) {}, 100*time.Millisecond)

	missing := filepath.Join(t.TempDir(), "missing")
	require.Error(t, w.Start(missing))

	file := filepath.Join(t.TempDir(), "file.mp3")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o644))
	require.Error(t, w.Start(file))

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop hung after a failed Start")
	}

	dir := t.TempDir()
	require.NoError(t, w.Start(dir))
	w.Stop()
}
