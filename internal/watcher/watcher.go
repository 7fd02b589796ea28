// file: internal/watcher/watcher.go
// version: 3.1.0
// guid: 40df1162-c121-4fed-baea-d81bcd4b5ec4

package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jdfalk/album-enricher/internal/library"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the default debounce period.
const DefaultDebounce = 5 * time.Second

// Callback is invoked after the debounce period with the album directories
// whose audio files changed, sorted.
type Callback func(albumDirs []string)

// Watcher monitors a directory tree for audio file changes and invokes a
// callback after a debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	rootDir   string
	debounce  time.Duration
	callback  Callback
	logger    zerolog.Logger
	stop      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
	timer     *time.Timer
	pending   map[string]struct{}
	running   bool
	flushing  sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger.With().Str("component", "watcher").Logger()
	}
}

// New creates a Watcher. Pass 0 for debounce to use DefaultDebounce.
func New(callback Callback, debounce time.Duration, opts ...Option) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		debounce: debounce,
		callback: callback,
		logger:   zerolog.Nop(),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching rootDir recursively. Calling Start on a running
// watcher is a no-op; a failed Start may be retried.
func (w *Watcher) Start(rootDir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	info, err := os.Stat(rootDir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", rootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", rootDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.rootDir = rootDir

	// Walk the tree and add all directories.
	if err := w.addRecursive(rootDir); err != nil {
		fsw.Close()
		w.fsWatcher = nil
		return err
	}

	w.stop = make(chan struct{})
	w.stopped = make(chan struct{})
	w.running = true
	go w.eventLoop(fsw, w.stop, w.stopped)
	return nil
}

// Stop shuts down the watcher. It waits for the event loop to exit and for a
// callback that is already running to return. Pending changes are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stop, stopped, fsw := w.stop, w.stopped, w.fsWatcher
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	close(stop)
	fsw.Close()
	<-stopped
	w.flushing.Wait()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if watchErr := w.fsWatcher.Add(path); watchErr != nil {
				w.logger.Warn().Err(watchErr).Str("dir", path).Msg("cannot watch directory")
			}
		}
		return nil
	})
}

func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	for {
		select {
		case <-stop:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// On Create, if it's a directory, watch it recursively and pick up any
	// audio files that landed before the watch was in place.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			if hasAudio(event.Name) {
				w.schedule(library.AlbumDir(event.Name))
			}
			return
		}
	}

	relevant := event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
	if !relevant || !library.IsAudioFile(event.Name) {
		return
	}

	w.schedule(library.AlbumDir(filepath.Dir(event.Name)))
}

func (w *Watcher) schedule(albumDir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	w.pending[albumDir] = struct{}{}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	// Added under mu while running, so Stop's Wait sees every callback.
	w.flushing.Add(1)
	defer w.flushing.Done()
	w.timer = nil
	dirs := make([]string, 0, len(w.pending))
	for dir := range w.pending {
		dirs = append(dirs, dir)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(dirs) == 0 {
		return
	}
	sort.Strings(dirs)
	w.logger.Info().Strs("albums", dirs).Msg("changes settled")
	if w.callback != nil {
		w.callback(dirs)
	}
}

func hasAudio(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && library.IsAudioFile(d.Name()) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
