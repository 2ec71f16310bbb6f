// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/bridgerank/internal/aggregator"
	"github.com/mbd888/bridgerank/internal/auth"
	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/cache"
	"github.com/mbd888/bridgerank/internal/circuitbreaker"
	"github.com/mbd888/bridgerank/internal/config"
	"github.com/mbd888/bridgerank/internal/dispatch"
	"github.com/mbd888/bridgerank/internal/gas"
	"github.com/mbd888/bridgerank/internal/health"
	"github.com/mbd888/bridgerank/internal/logging"
	"github.com/mbd888/bridgerank/internal/metrics"
	"github.com/mbd888/bridgerank/internal/ratelimit"
	"github.com/mbd888/bridgerank/internal/security"
	"github.com/mbd888/bridgerank/internal/traces"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg        *config.Config
	aggregator *aggregator.Service
	authMgr    *auth.Manager
	limiter    ratelimit.Limiter
	quoteCache cache.Cache
	checks     *health.Registry
	db         *sql.DB // nil if using in-memory
	router     *gin.Engine
	httpSrv    *http.Server
	logger     *slog.Logger

	adapters       []bridge.Adapter
	estimator      aggregator.GasEstimator
	prices         aggregator.PriceSource
	tracesShutdown func(context.Context) error
	cancelRunCtx   context.CancelFunc

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAdapters replaces the default bridge adapters (for testing)
func WithAdapters(adapters ...bridge.Adapter) Option {
	return func(s *Server) {
		s.adapters = adapters
	}
}

// WithCache sets a custom quote cache (for testing)
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		s.quoteCache = c
	}
}

// WithLimiter sets a custom rate limiter (for testing)
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithPricing replaces the gas estimator and price oracle (for testing)
func WithPricing(e aggregator.GasEstimator, p aggregator.PriceSource) Option {
	return func(s *Server) {
		s.estimator = e
		s.prices = p
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may inject adapters/cache/limiter)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var secStore security.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		secStore = security.NewPostgresStore(db)
		s.authMgr = auth.NewManager(auth.NewPostgresStore(db))
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		mem := security.NewMemoryStore()
		for _, rec := range security.SeedRecords() {
			mem.Put(rec)
		}
		secStore = mem
		s.authMgr = auth.NewManager(auth.NewMemoryStore())
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Quote cache (Redis if REDIS_URL set, otherwise in-memory)
	if s.quoteCache == nil {
		if cfg.RedisURL != "" {
			rc, err := cache.NewRedis(ctx, cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			s.quoteCache = rc
			s.logger.Info("using Redis quote cache")
		} else {
			s.quoteCache = cache.NewMemory()
			s.logger.Info("using in-memory quote cache")
		}
	}

	// Rate limiter shares the Redis instance when available
	if s.limiter == nil {
		if cfg.RedisURL != "" {
			rl, err := ratelimit.NewRedis(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect rate limiter to redis: %w", err)
			}
			s.limiter = rl
		} else {
			s.limiter = ratelimit.NewMemory()
		}
	}

	// Bridge adapters
	if s.adapters == nil {
		s.adapters = []bridge.Adapter{
			bridge.NewHop(bridge.DefaultHTTPClient),
			bridge.NewAcross(bridge.DefaultHTTPClient),
			bridge.NewCBridge(bridge.DefaultHTTPClient),
			bridge.NewStargate(bridge.DefaultHTTPClient),
			bridge.NewAxelar(bridge.DefaultHTTPClient),
			bridge.NewWormhole(),
			bridge.NewSynapse(),
		}
	}
	metrics.RegisteredAdapters.Set(float64(len(s.adapters)))

	// Gas estimation: RPC clients where configured, table fallbacks otherwise
	if s.estimator == nil || s.prices == nil {
		oracle := gas.NewPriceOracle(map[string]float64{
			"ETH":   cfg.ETHPriceUSD,
			"MATIC": 0.8,
			"USDC":  1.0,
			"USDT":  1.0,
		}, time.Minute)

		rpcClients := make(map[string]gas.GasPricer)
		for chain, rpcURL := range map[string]string{
			"ethereum": cfg.EthRPCURL,
			"polygon":  cfg.PolygonRPCURL,
		} {
			if rpcURL == "" {
				continue
			}
			client, err := ethclient.DialContext(ctx, rpcURL)
			if err != nil {
				s.logger.Warn("failed to dial chain RPC, using default gas prices", "chain", chain, "error", err)
				continue
			}
			rpcClients[chain] = client
		}
		s.estimator = gas.NewEstimator(rpcClients, oracle)
		s.prices = oracle
	}

	breaker := circuitbreaker.New(3, 30*time.Second)
	dispatcher := dispatch.New(s.adapters, cfg.ProviderTimeout, cfg.GlobalTimeout,
		dispatch.WithBreaker(breaker))
	s.aggregator = aggregator.New(dispatcher, secStore, s.estimator, s.prices, s.quoteCache, cfg.CacheTTL)

	// Health checks
	s.checks = health.NewRegistry()
	if s.db != nil {
		s.checks.Register("database", health.DatabaseChecker(s.db))
	}
	s.checks.Register("cache", health.CacheChecker(s.quoteCache))
	s.checks.Register("adapters", health.AdapterChecker(dispatcher.Adapters()))

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(securityHeadersMiddleware())

	// CORS (allow all origins, this is a read-only quote API)
	s.router.Use(corsMiddleware([]string{"*"}))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// rateLimitMiddleware enforces per-key limits for authenticated callers
// and the shared anonymous tier for everyone else.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, key := auth.ClientKey(c)

		perMinute, perHour := s.cfg.AnonymousPerMinute, s.cfg.AnonymousPerHour
		tier := "anonymous"
		if key != nil {
			perMinute, perHour = key.RateLimitPerMinute, key.RateLimitPerHour
			tier = "key"
		}

		allowed, err := s.limiter.Allow(c.Request.Context(), id, perMinute, perHour)
		if err != nil {
			// a broken limiter backend must not take the API down
			logging.L(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitRejectionsTotal.WithLabelValues(tier).Inc()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Rate limit exceeded. Retry after the current window.",
			})
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group: auth resolution first, then rate limiting keyed on
	// the resolved identity
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.authMgr))
	v1.Use(s.rateLimitMiddleware())

	// Quote aggregation
	v1.GET("/quotes", s.quotesHandler)
	v1.GET("/providers", s.providersHandler)

	// Security assessments
	v1.GET("/security", s.securityOverviewHandler)
	v1.GET("/security/:bridge", s.securityReportHandler)

	// API key administration
	authHandler := auth.NewHandler(s.authMgr)
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAdmin(s.cfg.AdminSecret))
	{
		admin.GET("/keys", authHandler.ListKeys)
		admin.POST("/keys", authHandler.CreateKey)
		admin.DELETE("/keys/:keyId", authHandler.RevokeKey)
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing
	shutdown, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracesShutdown = shutdown
	}

	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"adapters", len(s.adapters),
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel background goroutines (stats collector, tracing batcher)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.tracesShutdown != nil {
		if err := s.tracesShutdown(ctx); err != nil {
			s.logger.Error("traces shutdown error", "error", err)
		}
	}

	if stoppable, ok := s.limiter.(interface{ Stop() }); ok {
		stoppable.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if err := s.quoteCache.Close(); err != nil {
		s.logger.Error("cache close error", "error", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
