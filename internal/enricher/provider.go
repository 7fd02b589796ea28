// file: internal/enricher/provider.go
// version: 1.1.0
// guid: 036721e7-b746-4901-ae0c-16d14da6d3d5

package enricher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdfalk/album-enricher/internal/fileops"
	"github.com/jdfalk/album-enricher/internal/fingerprint"
	"github.com/jdfalk/album-enricher/internal/lastfm"
	"github.com/jdfalk/album-enricher/internal/metrics"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/jdfalk/album-enricher/internal/resolver"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	// ProviderName keys this provider's state records.
	ProviderName = "lastfm-album"
	// LocalMetaFilename is the raw result cache written inside the album folder.
	LocalMetaFilename = "lastfmalbum.json"
)

// ErrLocalWrite wraps failures writing the local metadata copy.
var ErrLocalWrite = errors.New("local metadata write failed")

// AlbumFetcher looks up a single (artist, album) candidate.
// Implementations return lastfm.ErrNotFound when the service has no match.
type AlbumFetcher interface {
	GetAlbumInfo(ctx context.Context, artist, album string) (*lastfm.Album, error)
}

// StateStore persists provider state records keyed by (item, provider).
type StateStore interface {
	GetProviderState(itemID, provider string) (*models.ProviderState, error)
	UpsertProviderState(state *models.ProviderState) error
}

// FileWriter writes the local metadata copy. Writes must be idempotent
// overwrites that honor ctx.
type FileWriter interface {
	Write(ctx context.Context, path string, data []byte) error
}

// Serializer encodes and decodes the local metadata copy.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default Serializer.
type JSONSerializer struct {
	Indent bool
}

func (s JSONSerializer) Marshal(v any) ([]byte, error) {
	if s.Indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var (
	_ FileWriter   = (*fileops.AtomicWriter)(nil)
	_ AlbumFetcher = (*lastfm.Client)(nil)
	_ Serializer   = JSONSerializer{}
)

// Outcome describes one completed refresh attempt.
type Outcome struct {
	AttemptID   string
	Status      string
	Matched     *resolver.Candidate
	Attempts    int
	Fingerprint string
	Result      *lastfm.Album
}

// Provider enriches albums with Last.fm metadata.
type Provider struct {
	fetcher    AlbumFetcher
	store      StateStore
	writer     FileWriter
	serializer Serializer
	policy     StalenessPolicy
	saveLocal  bool
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger.With().Str("component", "enricher").Logger()
	}
}

// WithSaveLocalMeta enables writing LocalMetaFilename after a match.
func WithSaveLocalMeta(enabled bool) Option {
	return func(p *Provider) { p.saveLocal = enabled }
}

// WithPolicy sets the staleness policy consulted by NeedsRefresh.
func WithPolicy(policy StalenessPolicy) Option {
	return func(p *Provider) {
		if policy != nil {
			p.policy = policy
		}
	}
}

// WithFileWriter replaces the local metadata writer.
func WithFileWriter(w FileWriter) Option {
	return func(p *Provider) {
		if w != nil {
			p.writer = w
		}
	}
}

// WithSerializer replaces the local metadata serializer.
func WithSerializer(s Serializer) Option {
	return func(p *Provider) {
		if s != nil {
			p.serializer = s
		}
	}
}

// WithClock sets the time source used for LastRefreshed.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Provider. The provider holds no per-album state and is safe
// for concurrent use on different albums.
func New(fetcher AlbumFetcher, store StateStore, opts ...Option) *Provider {
	p := &Provider{
		fetcher:    fetcher,
		store:      store,
		writer:     fileops.NewAtomicWriter(fileops.DefaultWriterConfig()),
		serializer: JSONSerializer{Indent: true},
		policy:     AgePolicy{MaxAge: DefaultMaxAge},
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the stored provider state for album, or nil if none exists.
func (p *Provider) State(album models.Album) (*models.ProviderState, error) {
	state, err := p.store.GetProviderState(album.ID(), ProviderName)
	if err != nil {
		return nil, fmt.Errorf("load provider state: %w", err)
	}
	return state, nil
}

// NeedsRefresh reports whether album should be fetched again. Unidentified
// albums refresh whenever their track fingerprint drifts; everything else is
// left to the staleness policy.
func (p *Provider) NeedsRefresh(album models.Album, state *models.ProviderState) bool {
	if strings.TrimSpace(album.ProviderID(models.ProviderMusicBrainzAlbum)) == "" {
		var stored string
		if state != nil {
			stored = state.Fingerprint
		}
		if !fingerprint.ForAlbum(album).Matches(stored) {
			return true
		}
	}
	return p.policy.IsStale(album, state)
}

// Run refreshes album only when the refresh gate says so. Skipped albums
// return an Outcome with StatusSkipped.
func (p *Provider) Run(ctx context.Context, album models.Album) (*Outcome, error) {
	state, err := p.State(album)
	if err != nil {
		return nil, err
	}
	if !p.NeedsRefresh(album, state) {
		metrics.IncRefresh(metrics.OutcomeSkipped)
		p.logger.Debug().Str("album", album.ID()).Msg("refresh not needed")
		return &Outcome{Status: models.StatusSkipped}, nil
	}
	return p.Refresh(ctx, album)
}

// Refresh tries each resolver candidate in order until one matches, merges
// the result and records the attempt. NotFound moves on to the next
// candidate; any other fetch error aborts without committing anything.
func (p *Provider) Refresh(ctx context.Context, album models.Album) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		metrics.IncRefresh(metrics.OutcomeCanceled)
		return nil, err
	}

	out := &Outcome{
		AttemptID: ulid.Make().String(),
		Status:    models.StatusNotFound,
	}
	log := p.logger.With().Str("album", album.ID()).Str("attempt", out.AttemptID).Logger()

	for cand := range resolver.Candidates(album) {
		out.Attempts++
		result, err := p.fetcher.GetAlbumInfo(ctx, cand.Artist, cand.Album)
		if errors.Is(err, lastfm.ErrNotFound) {
			log.Debug().Str("artist", cand.Artist).Str("title", cand.Album).Str("source", cand.Source.String()).Msg("no match")
			continue
		}
		if err != nil {
			return nil, p.abort(log, fmt.Errorf("lookup %s: %w", cand, err))
		}
		matched := cand
		out.Matched = &matched
		out.Result = result
		out.Status = models.StatusFound
		break
	}

	if out.Result != nil {
		Merge(album, out.Result)
		if p.saveLocal {
			if err := p.writeLocal(ctx, album, out.Result); err != nil {
				return nil, p.abort(log, err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, p.abort(log, err)
	}

	fp := fingerprint.ForAlbum(album)
	out.Fingerprint = fp.String()
	state := &models.ProviderState{
		ItemID:        album.ID(),
		Provider:      ProviderName,
		Fingerprint:   out.Fingerprint,
		LastRefreshed: p.now().UTC(),
		LastAttemptID: out.AttemptID,
		LastStatus:    out.Status,
	}
	if out.Matched != nil {
		state.MatchedArtist = out.Matched.Artist
		state.MatchedAlbum = out.Matched.Album
	}
	if err := p.store.UpsertProviderState(state); err != nil {
		return nil, p.abort(log, fmt.Errorf("save provider state: %w", err))
	}

	metrics.IncRefresh(out.Status)
	ev := log.Info().Str("status", out.Status).Int("attempts", out.Attempts)
	if out.Matched != nil {
		ev = ev.Str("artist", out.Matched.Artist).Str("title", out.Matched.Album)
	}
	ev.Msg("refresh complete")
	return out, nil
}

// abort records a refresh that ended without committing state.
func (p *Provider) abort(log zerolog.Logger, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		metrics.IncRefresh(metrics.OutcomeCanceled)
		log.Debug().Err(err).Msg("refresh canceled")
		return err
	}
	metrics.IncRefresh(metrics.OutcomeFailed)
	log.Warn().Err(err).Msg("refresh failed")
	return err
}

// LocalMetaPath returns where the local metadata copy for album lives.
func LocalMetaPath(album models.Album) string {
	if album.MetaLocation() == "" {
		return ""
	}
	return filepath.Join(album.MetaLocation(), LocalMetaFilename)
}

func (p *Provider) writeLocal(ctx context.Context, album models.Album, result *lastfm.Album) error {
	path := LocalMetaPath(album)
	if path == "" {
		return fmt.Errorf("%w: album %s has no storage location", ErrLocalWrite, album.ID())
	}
	data, err := p.serializer.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrLocalWrite, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.writer.Write(ctx, path, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrLocalWrite, path, err)
	}
	return nil
}
