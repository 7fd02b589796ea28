// file: internal/agent/runner.go
// version: 1.1.0
// guid: 613b22fe-24f1-4d9a-b952-deee570229dc

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/library"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the number of albums refreshed concurrently.
const DefaultWorkers = 4

// ErrBusy is returned by Start when a library pass is already running.
var ErrBusy = errors.New("a refresh pass is already running")

// Refresher runs the refresh gate and, when needed, a refresh for one album.
type Refresher interface {
	Run(ctx context.Context, album models.Album) (*enricher.Outcome, error)
}

// RecordStore persists album records between passes.
type RecordStore interface {
	GetAlbumRecord(id string) (*models.AlbumRecord, error)
	SaveAlbumRecord(rec *models.AlbumRecord) error
}

var _ Refresher = (*enricher.Provider)(nil)

// AlbumError records a per-album failure.
type AlbumError struct {
	AlbumID string `json:"album_id" yaml:"album_id"`
	Error   string `json:"error" yaml:"error"`
}

// Summary counts the outcomes of one library pass.
type Summary struct {
	Scanned   int           `json:"scanned" yaml:"scanned"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Found     int           `json:"found" yaml:"found"`
	NotFound  int           `json:"not_found" yaml:"not_found"`
	Failed    int           `json:"failed" yaml:"failed"`
	Canceled  int           `json:"canceled" yaml:"canceled"`
	Errors    []AlbumError  `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Runner drives refreshes over a set of albums with bounded concurrency.
// Only one pass runs at a time.
type Runner struct {
	refresher Refresher
	records   RecordStore
	workers   int
	logger    zerolog.Logger
	progress  io.Writer

	pass *semaphore.Weighted

	mu   sync.Mutex
	last *Summary
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets how many albums are refreshed at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger.With().Str("component", "agent").Logger()
	}
}

// WithProgress renders a progress bar to w during each pass.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) { r.progress = w }
}

// NewRunner creates a Runner. records may be nil, in which case album
// records are neither loaded nor saved.
func NewRunner(refresher Refresher, records RecordStore, opts ...Option) *Runner {
	r := &Runner{
		refresher: refresher,
		records:   records,
		workers:   DefaultWorkers,
		logger:    zerolog.Nop(),
		pass:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans root and refreshes every album found.
func (r *Runner) Run(ctx context.Context, root string) (*Summary, error) {
	if err := r.pass.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.pass.Release(1)
	return r.scanAndRun(ctx, root)
}

// RunDirs refreshes the albums owning dirs. Disc folders resolve to their
// parent album and each album is refreshed once.
func (r *Runner) RunDirs(ctx context.Context, dirs []string) (*Summary, error) {
	if err := r.pass.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.pass.Release(1)
	return r.runAlbums(ctx, r.albumsForDirs(dirs))
}

// Start launches a background pass over root. It returns ErrBusy if a pass
// is already running. The returned channel receives the summary once.
func (r *Runner) Start(ctx context.Context, root string) (<-chan *Summary, error) {
	return r.start(ctx, func(ctx context.Context) (*Summary, error) {
		return r.scanAndRun(ctx, root)
	})
}

// StartDirs is Start for a set of album directories.
func (r *Runner) StartDirs(ctx context.Context, dirs []string) (<-chan *Summary, error) {
	return r.start(ctx, func(ctx context.Context) (*Summary, error) {
		return r.runAlbums(ctx, r.albumsForDirs(dirs))
	})
}

func (r *Runner) start(ctx context.Context, pass func(context.Context) (*Summary, error)) (<-chan *Summary, error) {
	if !r.pass.TryAcquire(1) {
		return nil, ErrBusy
	}
	done := make(chan *Summary, 1)
	go func() {
		defer r.pass.Release(1)
		defer close(done)
		summary, err := pass(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("refresh pass failed")
		}
		done <- summary
	}()
	return done, nil
}

func (r *Runner) albumsForDirs(dirs []string) []*library.Album {
	seen := make(map[string]bool)
	var albums []*library.Album
	for _, dir := range dirs {
		album, err := library.ScanAlbum(dir)
		if err != nil {
			r.logger.Warn().Err(err).Str("dir", dir).Msg("cannot scan album")
			continue
		}
		if album == nil || seen[album.ID()] {
			continue
		}
		seen[album.ID()] = true
		albums = append(albums, album)
	}
	return albums
}

// Running reports whether a pass is in progress.
func (r *Runner) Running() bool {
	if r.pass.TryAcquire(1) {
		r.pass.Release(1)
		return false
	}
	return true
}

// Wait blocks until no pass is running. Callers cancel the pass context
// first and then Wait before closing the stores the runner writes to.
func (r *Runner) Wait() {
	_ = r.pass.Acquire(context.Background(), 1)
	r.pass.Release(1)
}

// LastSummary returns the summary of the most recent completed pass.
func (r *Runner) LastSummary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) scanAndRun(ctx context.Context, root string) (*Summary, error) {
	albums, err := library.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	return r.runAlbums(ctx, albums)
}

func (r *Runner) runAlbums(ctx context.Context, albums []*library.Album) (*Summary, error) {
	summary := &Summary{Scanned: len(albums), StartedAt: time.Now().UTC()}
	var mu sync.Mutex

	var bar *progressbar.ProgressBar
	if r.progress != nil {
		bar = progressbar.NewOptions(len(albums),
			progressbar.OptionSetWriter(r.progress),
			progressbar.OptionSetDescription("refreshing albums"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	// Albums never cancel each other; one failure is recorded and the pass continues.
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, album := range albums {
		g.Go(func() error {
			status, err := r.refreshOne(ctx, album)
			mu.Lock()
			summary.record(album.ID(), status, err)
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	summary.Duration = time.Since(summary.StartedAt)
	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	r.logger.Info().
		Int("scanned", summary.Scanned).
		Int("found", summary.Found).
		Int("not_found", summary.NotFound).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("canceled", summary.Canceled).
		Dur("duration", summary.Duration).
		Msg("refresh pass complete")

	return summary, ctx.Err()
}

func (r *Runner) refreshOne(ctx context.Context, album *library.Album) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.records != nil {
		rec, err := r.records.GetAlbumRecord(album.ID())
		if err != nil {
			return "", fmt.Errorf("load album record: %w", err)
		}
		album.ApplyRecord(rec)
	}

	out, err := r.refresher.Run(ctx, album)
	if err != nil {
		return "", err
	}

	if out.Status == models.StatusFound && r.records != nil {
		if err := r.records.SaveAlbumRecord(album.Record()); err != nil {
			return "", fmt.Errorf("save album record: %w", err)
		}
	}
	return out.Status, nil
}

func (s *Summary) record(albumID, status string, err error) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.Canceled++
	case err != nil:
		s.Failed++
		s.Errors = append(s.Errors, AlbumError{AlbumID: albumID, Error: err.Error()})
	case status == models.StatusFound:
		s.Found++
	case status == models.StatusNotFound:
		s.NotFound++
	default:
		s.Skipped++
	}
}
