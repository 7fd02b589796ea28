// file: internal/server/server.go
// version: 2.1.0
// guid: 64a50548-77f8-4d4a-8505-194fdceeb765

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/album-enricher/internal/agent"
	"github.com/jdfalk/album-enricher/internal/metrics"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/jdfalk/album-enricher/internal/server/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StateReader is the read side of the state store the API exposes.
type StateReader interface {
	GetProviderState(itemID, provider string) (*models.ProviderState, error)
	ListProviderStates(provider string) ([]models.ProviderState, error)
	GetAlbumRecord(id string) (*models.AlbumRecord, error)
}

// PassRunner starts background refresh passes.
type PassRunner interface {
	Start(ctx context.Context, root string) (<-chan *agent.Summary, error)
	StartDirs(ctx context.Context, dirs []string) (<-chan *agent.Summary, error)
	Running() bool
	LastSummary() *agent.Summary
	Wait()
}

var _ PassRunner = (*agent.Runner)(nil)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	store      StateReader
	runner     PassRunner
	root       string
	provider   string
	logger     zerolog.Logger
	passCtx    context.Context
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestsPerMinute caps /api requests per client IP.
	RequestsPerMinute int
	Burst             int
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Host:              "localhost",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		RequestsPerMinute: 60,
		Burst:             10,
	}
}

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Store    StateReader
	Runner   PassRunner
	Root     string
	Provider string
	Logger   zerolog.Logger
}

// NewServer creates a new server instance
func NewServer(deps Deps, cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(deps.Logger))
	router.Use(middleware.MaxRequestBodySize(1 << 20))

	// Register metrics (idempotent)
	metrics.Register()

	s := &Server{
		router:   router,
		store:    deps.Store,
		runner:   deps.Runner,
		root:     deps.Root,
		provider: deps.Provider,
		logger:   deps.Logger.With().Str("component", "server").Logger(),
		passCtx:  context.Background(),
	}
	s.setupRoutes(cfg)
	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP until ctx is done, then shuts down gracefully. Refresh
// passes triggered through the API are canceled with ctx, and Start returns
// only after the running pass has finished.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	s.passCtx = ctx
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	if s.runner != nil {
		s.runner.Wait()
	}
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes(cfg ServerConfig) {
	s.router.GET("/healthz", s.healthCheck)
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	api.Use(middleware.NewIPRateLimiter(cfg.RequestsPerMinute, cfg.Burst).Middleware())
	{
		api.GET("/state", s.getState)
		api.GET("/states", s.listStates)
		api.GET("/record", s.getRecord)
		api.GET("/refresh", s.refreshStatus)
		api.POST("/refresh", s.triggerRefresh)
	}
}
