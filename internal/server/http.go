package server

import (
	"context"
	"time"

	"personakit/internal/ai"
	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/store"
	"personakit/internal/types"
)

// GenerateRequest is the body of POST /personas/generate. JobDescription may be
// given inline; otherwise it is loaded from the registered job description.
type GenerateRequest struct {
	RoleID           string `json:"role_id"`
	RoleName         string `json:"role_name,omitempty"`
	JobDescriptionID string `json:"job_description_id"`
	JobDescription   string `json:"jobDescription,omitempty"`
	Refresh          bool   `json:"refresh,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BlockedResponse is returned with 422 when a save fails validation
type BlockedResponse struct {
	Detail []persona.Issue `json:"detail"`
}

// RangeConflictResponse is returned with 409 when a save needs save_anyway
type RangeConflictResponse struct {
	Detail   string         `json:"detail"`
	Warnings map[int]string `json:"warnings"`
}

// PersonaResponse is a saved persona together with its baseline
type PersonaResponse struct {
	types.PersonaTree
	Baseline types.Baseline `json:"baseline,omitempty"`
}

// Generator produces personas from job descriptions; ai.Service implements it
type Generator interface {
	GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, *ai.TokenUsage, error)
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	Stats() map[string]any
}

// Dependencies are the collaborators handlers call into. Generator may be nil,
// in which case generation requests fail with 503.
type Dependencies struct {
	Personas        store.PersonaRepo
	JobDescriptions store.JobDescriptionRepo
	Generator       Generator
	// Ping checks the database for /health
	Ping func() error
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Cache *GenerationCache
	Deps  Dependencies

	Logger *errors.Logger
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
	Cache          config.CacheConfig
}

// ServerConfigFrom maps application configuration onto a ServerConfig
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
		Cache:          cfg.Cache,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
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

	var cache *GenerationCache
	if cfg.Cache.Enabled {
		cache = NewGenerationCache(cfg.Cache.Size, cfg.Cache.TTL)
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
		Cache:          cache,
		Deps:           deps,
		Logger:         logger,
	}
}
