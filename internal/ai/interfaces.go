package ai

import (
	"context"

	"personakit/internal/types"
)

// AIProvider interface for different AI implementations.
// Generation returns token usage; callers can ignore it if not needed.
type AIProvider interface {
	GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// BreakerStats is implemented by providers that guard calls with circuit breakers
type BreakerStats interface {
	GetCircuitBreakerStats() map[string]any
}
