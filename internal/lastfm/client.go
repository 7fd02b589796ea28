// file: internal/lastfm/client.go
// version: 1.0.0
// guid: 1414a69f-9f8b-4d90-b908-6c38a7a085e5

// Package lastfm fetches album descriptions from the Last.fm web service,
// bounding concurrent requests through a shared Pool.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jdfalk/album-enricher/internal/cache"
	"github.com/jdfalk/album-enricher/internal/fingerprint"
	"github.com/jdfalk/album-enricher/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the Last.fm 2.0 API root.
const DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "album-enricher/1.0"
	maxBodyBytes     = 4 << 20
)

// cachedResult is a remembered lookup; a nil album records NotFound.
type cachedResult struct {
	album *Album
}

// Client performs album.getInfo lookups.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	pool       *Pool
	cache      *cache.Cache[cachedResult]
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPool shares a request pool between clients.
func WithPool(pool *Pool) Option {
	return func(c *Client) {
		if pool != nil {
			c.pool = pool
		}
	}
}

// WithCacheTTL remembers found and not-found answers for ttl. Failures are
// never cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache.New[cachedResult](ttl)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "lastfm").Logger()
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// newHTTPClient returns a client whose transport never negotiates gzip.
// album.getInfo responses must be requested uncompressed.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}
}

// New creates a Last.fm client. The base URL defaults to LASTFM_BASE_URL or
// DefaultBaseURL.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("lastfm api key required")
	}
	baseURL := os.Getenv("LASTFM_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		userAgent:  defaultUserAgent,
		httpClient: newHTTPClient(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = NewPool(DefaultPoolSize)
	}
	return c, nil
}

// Pool returns the request pool used by the client.
func (c *Client) Pool() *Pool { return c.pool }

// AlbumInfoURL builds the album.getInfo request URL for artist and album.
func (c *Client) AlbumInfoURL(artist, album string) string {
	base := strings.TrimRight(c.baseURL, "?&")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%smethod=album.getInfo&artist=%s&album=%s&api_key=%s&format=json",
		base, sep, url.QueryEscape(artist), url.QueryEscape(album), url.QueryEscape(c.apiKey))
}

func cacheKey(artist, album string) string {
	return fingerprint.Fold(artist) + "\x00" + fingerprint.Fold(album)
}

// GetAlbumInfo looks up one artist/album pair. It returns ErrNotFound when
// the service has no usable album, an error matching ErrTransport for
// network or protocol failures, and ctx.Err() when ctx is done.
func (c *Client) GetAlbumInfo(ctx context.Context, artist, album string) (*Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(artist, album)
	if hit, ok := c.cache.Get(key); ok {
		metrics.IncLastfmRequest(metrics.OutcomeCached)
		if hit.album == nil {
			return nil, ErrNotFound
		}
		return hit.album, nil
	}

	release, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	metrics.IncLastfmInFlight()
	defer metrics.DecLastfmInFlight()

	start := time.Now()
	result, err := c.fetch(ctx, artist, album)
	metrics.ObserveLastfmDuration(time.Since(start))

	log := c.logger.Debug().Str("artist", artist).Str("title", album).Dur("elapsed", time.Since(start))
	switch {
	case err == nil:
		metrics.IncLastfmRequest(metrics.OutcomeFound)
		c.cache.Set(key, cachedResult{album: result})
		log.Msg("album found")
	case errors.Is(err, ErrNotFound):
		metrics.IncLastfmRequest(metrics.OutcomeNotFound)
		c.cache.Set(key, cachedResult{})
		log.Msg("album not found")
	default:
		metrics.IncLastfmRequest(metrics.OutcomeError)
		log.Err(err).Msg("album lookup failed")
	}
	return result, err
}

func (c *Client) fetch(ctx context.Context, artist, album string) (*Album, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AlbumInfoURL(artist, album), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: request failed: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	var payload AlbumInfoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: Last.fm API returned status %d", ErrTransport, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}

	if payload.Error != 0 {
		if payload.Error == errCodeInvalidParameters {
			return nil, ErrNotFound
		}
		return nil, &APIError{Code: payload.Error, Message: payload.Message, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: Last.fm API returned status %d", ErrTransport, resp.StatusCode)
	}
	if !payload.Album.usable() {
		return nil, ErrNotFound
	}
	return payload.Album, nil
}
