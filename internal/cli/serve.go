package cli

import (
	"fmt"

	"personakit/internal/ai"
	"personakit/internal/config"
	"personakit/internal/server"
	"personakit/internal/store"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the persona HTTP server",
	Long: `Start an HTTP server that generates, validates and stores personas.

Available endpoints:
- POST /personas/generate: Generate a persona for a role and job description
- POST /personas/validate: Validate a persona's weight distribution
- POST /personas, GET /personas: Create and list personas
- GET, PUT, DELETE /personas/{id}: Read, update and delete a persona
- POST /job-descriptions, GET /job-descriptions: Register and list job descriptions
- GET /job-descriptions/{id}: Read a job description
- GET /health: Health check endpoint
- GET /stats: Server statistics, rate limiting and cache info

Without an AI API key the server still starts; /personas/generate then answers 503.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveOpts struct {
	host     string
	port     string
	tlsMode  string
	certFile string
	keyFile  string
	caFile   string
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.port, "port", "p", "", "Port to listen on (default from config)")
	f.StringVar(&serveOpts.host, "host", "", "Host to bind to (default from config)")
	f.StringVar(&serveOpts.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	f.StringVar(&serveOpts.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	f.StringVar(&serveOpts.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	f.StringVar(&serveOpts.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	overrides := []struct {
		flag   string
		value  string
		target *string
	}{
		{"host", serveOpts.host, &cfg.Server.Host},
		{"port", serveOpts.port, &cfg.Server.Port},
		{"tls-mode", serveOpts.tlsMode, &cfg.Server.TLS.Mode},
		{"cert-file", serveOpts.certFile, &cfg.Server.TLS.CertFile},
		{"key-file", serveOpts.keyFile, &cfg.Server.TLS.KeyFile},
		{"ca-file", serveOpts.caFile, &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.target = o.value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(db); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()

	deps := server.Dependencies{
		Personas:        store.NewPersonaRepo(db, logger),
		JobDescriptions: store.NewJobDescriptionRepo(db, logger),
		Ping:            func() error { return store.Ping(db) },
	}

	genCfg := cfg.GetGenerateConfig()
	service, err := ai.NewService(&genCfg, logger)
	if err != nil {
		logger.Warn("AI service unavailable, persona generation disabled", "error", err)
	} else {
		deps.Generator = service
		defer func() {
			if err := service.Close(); err != nil {
				logger.Warn("Failed to close AI service", "error", err)
			}
		}()
	}

	if cfg.AI.WatchPrompts {
		watcher := config.NewPromptWatcher(cfg, 0, nil, logger)
		if err := watcher.Start(); err != nil {
			logger.Warn("Prompt file watching disabled", "error", err)
		} else {
			defer func() {
				if err := watcher.Stop(); err != nil {
					logger.Warn("Failed to stop prompt watcher", "error", err)
				}
			}()
		}
	}

	return server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), deps, logger).Start()
}
