// file: cmd/app.go
// version: 1.0.0
// guid: e5d0f3b8-4d00-43ea-a8db-43dc46f5bd0e

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jdfalk/album-enricher/internal/agent"
	"github.com/jdfalk/album-enricher/internal/config"
	"github.com/jdfalk/album-enricher/internal/database"
	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/lastfm"
	"github.com/jdfalk/album-enricher/internal/logging"
	"github.com/jdfalk/album-enricher/internal/metrics"
	"github.com/rs/zerolog"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	store    database.Store
	client   *lastfm.Client
	provider *enricher.Provider
	runner   *agent.Runner
}

// appOptions selects which parts of the app a command needs.
type appOptions struct {
	withClient bool
	progress   io.Writer
}

// newApp wires the store, and optionally the Last.fm client, provider and
// runner, from config.AppConfig.
func newApp(opts appOptions) (*app, error) {
	cfg := config.AppConfig
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	logging.SetGlobalLogger(logger)
	metrics.Register()

	store, err := database.Open(cfg.Database.Type, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	if !opts.withClient {
		return a, nil
	}
	if err := cfg.RequireAPIKey(); err != nil {
		store.Close()
		return nil, err
	}

	pool := lastfm.NewPool(cfg.Lastfm.MaxConcurrent,
		lastfm.WithRateLimit(cfg.Lastfm.RequestsPerSecond, cfg.Lastfm.Burst))
	clientOpts := []lastfm.Option{
		lastfm.WithBaseURL(cfg.Lastfm.BaseURL),
		lastfm.WithPool(pool),
		lastfm.WithTimeout(cfg.Lastfm.Timeout),
		lastfm.WithLogger(logger),
	}
	if cfg.Lastfm.CacheTTL > 0 {
		clientOpts = append(clientOpts, lastfm.WithCacheTTL(cfg.Lastfm.CacheTTL))
	}
	client, err := lastfm.New(cfg.Lastfm.APIKey, clientOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.client = client

	a.provider = enricher.New(client, store,
		enricher.WithLogger(logger),
		enricher.WithSaveLocalMeta(cfg.SaveLocalMeta),
		enricher.WithPolicy(enricher.AgePolicy{MaxAge: cfg.Refresh.MaxAge}),
	)

	runnerOpts := []agent.Option{
		agent.WithWorkers(cfg.Refresh.Workers),
		agent.WithLogger(logger),
	}
	if opts.progress != nil {
		runnerOpts = append(runnerOpts, agent.WithProgress(opts.progress))
	}
	a.runner = agent.NewRunner(a.provider, store, runnerOpts...)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// libraryRoot returns the configured root or an error if none is set.
func (a *app) libraryRoot() (string, error) {
	if a.cfg.Library.Root == "" {
		return "", fmt.Errorf("library root not specified (use --dir or library.root)")
	}
	return a.cfg.Library.Root, nil
}
