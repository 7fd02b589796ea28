// file: internal/server/server_test.go
// version: 2.1.0
// guid: 70713fe4-310f-4fa9-87f0-65633202e994

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdfalk/album-enricher/internal/agent"
	"github.com/jdfalk/album-enricher/internal/database"
	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRefresher blocks every refresh until release is closed.
type gatedRefresher struct {
	release chan struct{}
}

func (g *gatedRefresher) Run(ctx context.Context, _ models.Album) (*enricher.Outcome, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &enricher.Outcome{Status: models.StatusNotFound}, nil
}

type fixture struct {
	server    *Server
	store     *database.MemoryStore
	runner    *agent.Runner
	refresher *gatedRefresher
	root      string
}

func newFixture(t *testing.T, cfg ServerConfig) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Album"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Album", "01.mp3"), []byte("x"), 0o644))

	store := database.NewMemoryStore()
	refresher := &gatedRefresher{release: make(chan struct{})}
	runner := agent.NewRunner(refresher, store)
	srv := NewServer(Deps{
		Store:    store,
		Runner:   runner,
		Root:     root,
		Provider: enricher.ProviderName,
		Logger:   zerolog.Nop(),
	}, cfg)
	f := &fixture{server: srv, store: store, runner: runner, refresher: refresher, root: root}
	t.Cleanup(func() {
		select {
		case <-refresher.release:
		default:
			close(refresher.release)
		}
	})
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "album_enricher_lastfm_requests_in_flight")
}

func TestGetState(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	require.NoError(t, f.store.UpsertProviderState(&models.ProviderState{
		ItemID:      "/music/a",
		Provider:    enricher.ProviderName,
		Fingerprint: "abc",
		LastStatus:  models.StatusFound,
	}))

	rec := f.do(t, http.MethodGet, "/api/v1/state?item=/music/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data models.ProviderState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.Data.Fingerprint)

	rec = f.do(t, http.MethodGet, "/api/v1/state?item=/music/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = f.do(t, http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListStatesAndRecord(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	require.NoError(t, f.store.UpsertProviderState(&models.ProviderState{ItemID: "/a", Provider: enricher.ProviderName}))
	require.NoError(t, f.store.UpsertProviderState(&models.ProviderState{ItemID: "/b", Provider: enricher.ProviderName}))
	require.NoError(t, f.store.SaveAlbumRecord(&models.AlbumRecord{ID: "/a", Metadata: models.AlbumMetadata{Overview: "hi"}}))

	rec := f.do(t, http.MethodGet, "/api/v1/states", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)

	rec = f.do(t, http.MethodGet, "/api/v1/record?item=/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"overview":"hi"`)

	rec = f.do(t, http.MethodGet, "/api/v1/record?item=/zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerRefresh_AcceptedThenConflict(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())

	rec := f.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, f.runner.Running())

	rec = f.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(f.refresher.release)
	require.Eventually(t, func() bool { return !f.runner.Running() }, time.Second, 5*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data RefreshStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Running)
	require.NotNil(t, resp.Data.Last)
	assert.Equal(t, 1, resp.Data.Last.Scanned)
	assert.Equal(t, 1, resp.Data.Last.NotFound)
}

func TestTriggerRefresh_Dirs(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	close(f.refresher.release)

	body := `{"dirs":["` + filepath.ToSlash(filepath.Join(f.root, "Album")) + `"]}`
	rec := f.do(t, http.MethodPost, "/api/v1/refresh", body)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return f.runner.LastSummary() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.runner.LastSummary().Scanned)

	rec = f.do(t, http.MethodPost, "/api/v1/refresh", `{"dirs":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIRateLimit(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RequestsPerMinute = 1
	cfg.Burst = 1
	f := newFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/api/v1/states", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/states", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health and metrics are not limited.
	rec = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
	assert.False(t, strings.Contains(rec.Body.String(), "error"))
}

func TestTriggerRefresh_RejectsDirsOutsideRoot(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	close(f.refresher.release)

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x.mp3"), []byte("x"), 0o644))

	for _, dir := range []string{
		outside,
		"/",
		filepath.Join(f.root, "..", filepath.Base(outside)),
		"../elsewhere",
		"",
	} {
		body, err := json.Marshal(RefreshRequest{Dirs: []string{filepath.Join(f.root, "Album"), dir}})
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/api/v1/refresh", string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, dir)
	}

	assert.False(t, f.runner.Running())
	assert.Nil(t, f.runner.LastSummary(), "no pass was started")
}

func TestTriggerRefresh_RelativeDirsResolveUnderRoot(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	close(f.refresher.release)

	rec := f.do(t, http.MethodPost, "/api/v1/refresh", `{"dirs":["Album"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return f.runner.LastSummary() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.runner.LastSummary().Scanned)
}

func TestTriggerRefresh_RequiresRoot(t *testing.T) {
	store := database.NewMemoryStore()
	runner := agent.NewRunner(&gatedRefresher{release: make(chan struct{})}, store)
	srv := NewServer(Deps{Store: store, Runner: runner, Provider: enricher.ProviderName, Logger: zerolog.Nop()}, DefaultServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", strings.NewReader(`{"dirs":["/music/a"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, runner.Running())
}

func TestStart_WaitsForRunningPass(t *testing.T) {
	f := newFixture(t, DefaultServerConfig())
	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = "0"

	// This pass ignores cancellation and only ends when released.
	done, err := f.runner.Start(context.Background(), f.root)
	require.NoError(t, err)

	var released atomic.Bool
	time.AfterFunc(200*time.Millisecond, func() {
		released.Store(true)
		close(f.refresher.release)
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start(ctx, cfg) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, released.Load(), "Start returned before the pass finished")
	assert.False(t, f.runner.Running())
	require.NotNil(t, <-done)
}
