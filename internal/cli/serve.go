package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resumescore/internal/assistant"
	"resumescore/internal/builder"
	"resumescore/internal/config"
	"resumescore/internal/history"
	"resumescore/internal/model"
	"resumescore/internal/observability"
	"resumescore/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing the scoring engine, accounts, history,
the chat assistant and the resume builder.

Available endpoints:
- POST /api/v1/score, /api/v1/score/upload: Score a resume (API key or user token)
- POST /api/v1/auth/register, /api/v1/auth/login: Accounts
- POST /api/v1/chat: Ask about a saved result
- GET  /api/v1/history, /api/v1/dashboard: Saved results
- POST /api/v1/builder: Render a resume PDF
- GET  /health, /stats: Health and server statistics

TLS Configuration:
- Use --tls-mode server with --cert-file and --key-file to serve HTTPS`,
	RunE: runServe,
}

var serveFlags struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled or server (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeOverrides copies explicitly set flags over the loaded configuration
func applyServeOverrides(cfg *config.Config) {
	overrides := []struct {
		value  string
		target *string
	}{
		{serveFlags.port, &cfg.Server.Port},
		{serveFlags.host, &cfg.Server.Host},
		{serveFlags.tlsMode, &cfg.Server.TLS.Mode},
		{serveFlags.certFile, &cfg.Server.TLS.CertFile},
		{serveFlags.keyFile, &cfg.Server.TLS.KeyFile},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	applyServeOverrides(cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewManager(observability.FromConfig(cfg, Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	store, err := history.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.LogError(err, "Failed to close history store")
		}
	}()

	accounts, err := newAccounts(cfg, store, logger)
	if err != nil {
		return err
	}

	metrics := om.Metrics()
	engine, models := newEngine(cfg, logger, model.WithReloadHook(func(success bool) {
		metrics.RecordModelReload(context.Background(), success)
	}))
	if err := models.Ready(); err != nil {
		logger.LogError(err, "Model artifacts unavailable, scoring requests will fail until they are fixed")
	}

	var watcher *model.Watcher
	if cfg.Model.Watch {
		watcher = model.NewWatcher(models.Paths(), cfg.Model.WatchDebounce, models, logger)
	}

	advisor, err := newAdvisor(ctx, cfg, logger, om)
	if err != nil {
		return err
	}
	asst := assistant.New(nil, logger)
	if advisor != nil {
		defer func() {
			_ = advisor.Close()
		}()
		asst = assistant.New(advisor, logger)
	}

	maxRequestSize := cfg.Server.MaxRequestSize
	if maxRequestSize <= 0 {
		maxRequestSize = cfg.App.MaxFileSize
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: maxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	deps := server.Dependencies{
		Engine:        engine,
		Models:        models,
		History:       store,
		Accounts:      accounts,
		Assistant:     asst,
		Advisor:       advisor,
		Builder:       builder.New(),
		Watcher:       watcher,
		Observability: om,
	}
	return server.NewServer(cfg, serverCfg, deps, logger).Start(ctx)
}
