package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/bagcat/portal/internal/api/http"
	"github.com/bagcat/portal/internal/api/middleware"
	"github.com/bagcat/portal/internal/domain/catalog"
	"github.com/bagcat/portal/internal/domain/codec"
	"github.com/bagcat/portal/internal/domain/launch"
	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/config"
	"github.com/bagcat/portal/internal/infrastructure/monitoring"
	"github.com/bagcat/portal/internal/logging"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	catalog    *catalog.Store
	tokens     *launch.Store
	negotiator *negotiator.Negotiator
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	stop       context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	logger.Info("Initializing portal server",
		zap.String("port", cfg.Server.Port),
		zap.String("catalog", cfg.Catalog.Path),
		zap.Bool("alternative", cfg.Proxy.Alternative),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	catalogOpts := catalog.Options{
		Catalog: catalog.NewSource(cfg.Catalog.Path, nil),
		TTL:     cfg.Catalog.CacheTTL(),
		Logger:  logger.Component("catalog"),
	}
	if cfg.Catalog.WhitelistPath != "" {
		catalogOpts.Whitelist = catalog.NewSource(cfg.Catalog.WhitelistPath, nil)
	}
	catalogStore := catalog.NewStore(catalogOpts).WithMetrics(metrics)

	tokens := launch.NewStore(launch.StoreOptions{
		TTL:    cfg.Launch.TTL(),
		Logger: logger.Component("launch"),
	}).WithMetrics(metrics)

	prefixes := route.Prefixes{
		Primary:     cfg.Proxy.PrimaryPrefix,
		Alternative: cfg.Proxy.AlternativePrefix,
	}
	paths := route.NewBuilder(codec.New(nil), prefixes)

	launcher := launch.NewLauncher(catalogStore, tokens, paths, cfg.Proxy.Alternative, logger.Component("launch")).
		WithMetrics(metrics)

	neg := negotiator.New(negotiator.Options{
		Prober:   negotiator.NewWebSocketProber(cfg.Tunnel.ProbeTimeout),
		Prefixes: prefixes,
		Logger:   logger.Component("negotiator"),
	}).WithMetrics(metrics)

	handlers := apihttp.NewHandlers(apihttp.Options{
		Catalog:    catalogStore,
		Launcher:   launcher,
		Tokens:     tokens,
		Paths:      paths,
		Negotiator: neg,
		Transport: negotiator.Config{
			AlternativeEnabled: cfg.Proxy.Alternative,
			UserEndpoint:       cfg.Tunnel.Endpoint,
			DefaultEndpoint:    cfg.Tunnel.DefaultEndpoint,
			Static:             cfg.Tunnel.Static,
			Candidates:         cfg.Tunnel.Candidates,
			DirectFallback:     cfg.Proxy.DirectFallback,
			ActivationTimeout:  cfg.Tunnel.ActivationTimeout,
			ProbeTimeout:       cfg.Tunnel.ProbeTimeout,
		},
		AlternativeEnabled: cfg.Proxy.Alternative,
		SearchEngine:       cfg.Proxy.SearchEngine,
		Logger:             logger.Component("http"),
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Component("access")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Register routes
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	ctx, stop := context.WithCancel(context.Background())
	tokens.Start(ctx, cfg.Launch.PurgeInterval)

	handler := gzhttp.GzipHandler(router)

	logger.Info("Server initialized successfully")

	return &Server{
		handler: handler,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		catalog:    catalogStore,
		tokens:     tokens,
		negotiator: neg,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		stop:       stop,
	}, nil
}

// Handler returns the complete HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the address Run listens on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))

	// Warm the catalog so a broken source shows up at startup.
	if snap, err := s.catalog.Load(context.Background()); err == nil {
		s.logger.Info("Catalog loaded", zap.Int("entries", snap.Len()))
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to drain HTTP server", zap.Error(err))
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return s.Close()
}

// Close releases background resources.
func (s *Server) Close() error {
	s.stop()
	if err := s.tokens.Close(); err != nil {
		return fmt.Errorf("failed to stop launch store: %w", err)
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return nil
}
