package ai

import (
	"context"
	"fmt"
	"strings"

	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"
)

// Service generates persona trees through the configured provider
type Service struct {
	Provider AIProvider // Exported for access from server package
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates the persona generation service. An API key is required here
// rather than at config load so offline commands work without one.
func NewService(cfg *config.OperationAIConfig, logger *errors.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"AI API key is required for persona generation (set ai.apiKey or GEMINI_API_KEY)", nil)
	}

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	var provider AIProvider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, "generate", logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return NewServiceWithProvider(provider, cfg, logger), nil
}

// NewServiceWithProvider wraps an existing provider
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, logger *errors.Logger) *Service {
	return &Service{Provider: provider, config: cfg, logger: logger}
}

// GeneratePersona asks the provider for a persona and normalizes the result so
// both weight levels total 100 before anyone edits it.
func (s *Service) GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, *TokenUsage, error) {
	if strings.TrimSpace(input.JobDescription) == "" {
		return types.PersonaTree{}, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description is required to generate a persona", nil)
	}

	tree, usage, err := s.Provider.GeneratePersona(ctx, input)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}

	tree = persona.Normalize(tree)
	tree.RoleID = input.RoleID
	tree.RoleName = input.RoleName
	tree.JobDescriptionID = input.JobDescriptionID
	if strings.TrimSpace(tree.Name) == "" {
		tree.Name = defaultPersonaName(input.RoleName)
	}

	s.logger.Info("Persona generated",
		"role_id", input.RoleID,
		"job_description_id", input.JobDescriptionID,
		"categories", len(tree.Categories))

	return tree, usage, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Stats returns circuit breaker statistics when the provider tracks them
func (s *Service) Stats() map[string]any {
	if bs, ok := s.Provider.(BreakerStats); ok {
		return bs.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases provider resources
func (s *Service) Close() error {
	return s.Provider.Close()
}

func defaultPersonaName(roleName string) string {
	if roleName = strings.TrimSpace(roleName); roleName != "" {
		return roleName + " Persona"
	}
	return "Generated Persona"
}
