package server

import (
	"net/http"
	"time"

	"resumescore/internal/ai"
	"resumescore/internal/assistant"
	"resumescore/internal/auth"
	"resumescore/internal/builder"
	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/extract"
	"resumescore/internal/history"
	"resumescore/internal/model"
	"resumescore/internal/observability"
	"resumescore/internal/scoring"
)

// Server holds configuration and collaborators for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *errors.Logger

	engine    *scoring.Engine
	models    *model.Store
	history   history.Store
	accounts  *auth.Service
	assistant *assistant.Assistant
	advisor   *ai.Advisor
	builder   *builder.Builder
	extractor *extract.Extractor
	om        *observability.Manager
	watcher   *model.Watcher
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies are the services the handlers call. Advisor, Watcher and Observability may be nil.
type Dependencies struct {
	Engine        *scoring.Engine
	Models        *model.Store
	History       history.Store
	Accounts      *auth.Service
	Assistant     *assistant.Assistant
	Advisor       *ai.Advisor
	Builder       *builder.Builder
	Watcher       *model.Watcher
	Observability *observability.Manager
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.Discard()
	}

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	om := deps.Observability
	if om == nil {
		// a disabled manager never fails to build
		om, _ = observability.NewManager(observability.Config{}, logger)
	}

	b := deps.Builder
	if b == nil {
		b = builder.New()
	}
	asst := deps.Assistant
	if asst == nil {
		asst = assistant.New(nil, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,

		engine:    deps.Engine,
		models:    deps.Models,
		history:   deps.History,
		accounts:  deps.Accounts,
		assistant: asst,
		advisor:   deps.Advisor,
		builder:   b,
		extractor: extract.New(logger),
		om:        om,
		watcher:   deps.Watcher,
	}
}

// Handler returns the fully wired handler: routes, middleware and HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}
