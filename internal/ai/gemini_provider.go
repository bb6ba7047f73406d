package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"personakit/internal/config"
	appErrors "personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const defaultModelCheckTimeout = 10 * time.Second

// generateFunc performs one content generation request
type generateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	generate          generateFunc
	config            *config.OperationAIConfig
	circuitBreaker    *AICircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	modelCheckTimeout time.Duration
	baseBackoff       time.Duration
	logger            *appErrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	g := newGeminiProvider(cfg, operationType, logger)
	g.client = client
	g.generate = func(ctx context.Context, model, prompt string, genCfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, genai.Text(prompt), genCfg)
	}
	return g, nil
}

func newGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *appErrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		config:            cfg,
		circuitBreaker:    NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:      NewModelCircuitBreaker(operationType, cfg, logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		baseBackoff:       time.Second,
		logger:            logger,
	}
}

// SetModelCheckTimeout bounds how long GetModelInfo waits on the API
func (g *GeminiProvider) SetModelCheckTimeout(d time.Duration) {
	if d > 0 {
		g.modelCheckTimeout = d
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}
	if g.client == nil {
		modelInfo.Error = "Gemini client not initialized"
		return modelInfo
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", maxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoff doubles per attempt with up to 10% jitter, capped at 30 seconds
func (g *GeminiProvider) backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * g.baseBackoff
	var jitter time.Duration
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError reports whether err is transient: network failures and
// Google API throttling or server errors
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == http.StatusTooManyRequests || genaiErr.Code >= http.StatusInternalServerError
	}

	return false
}

// generateJSON runs one traced, breaker-guarded, retried generation and returns the raw JSON text
func (g *GeminiProvider) generateJSON(ctx context.Context, operationName, userPrompt, systemPrompt string, genaiConfig *genai.GenerateContentConfig, spanAttributes ...attribute.KeyValue) (string, *TokenUsage, error) {
	tracer := otel.Tracer("personakit.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.generate(ctx, g.config.Model, userPrompt, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return result.Text(), tokenUsage, nil
}

// GeneratePersona implements AIProvider. The model's JSON goes through the same
// lenient decoder as client payloads.
func (g *GeminiProvider) GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, *TokenUsage, error) {
	systemPrompt, userPrompt := g.promptsForGenerate(input)

	text, tokenUsage, err := g.generateJSON(ctx, "generate_persona", userPrompt, systemPrompt, g.buildPersonaSchema(),
		attribute.String("input.role_id", input.RoleID),
		attribute.Int("input.job_length", len(input.JobDescription)),
	)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}

	tree, err := persona.DecodeTree([]byte(text))
	if err != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(err)
		}
		return types.PersonaTree{}, nil, appErrors.NewAIError("AI_RESPONSE_PARSE_FAILED",
			"Failed to parse AI response for generate_persona", err)
	}
	if len(tree.Categories) == 0 {
		return types.PersonaTree{}, nil, appErrors.NewAIError("AI_RESPONSE_PARSE_FAILED",
			"AI response contained no categories", nil)
	}

	return tree, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	return nil
}

// buildPersonaSchema constrains the response to the persona tree shape
func (g *GeminiProvider) buildPersonaSchema() *genai.GenerateContentConfig {
	subcategory := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"position":          {Type: genai.TypeInteger},
			"name":              {Type: genai.TypeString},
			"weight_percentage": {Type: genai.TypeNumber},
			"level_id": {
				Type: genai.TypeString,
				Enum: []string{types.LevelBasic, types.LevelIntermediate, types.LevelProficient, types.LevelAdvanced, types.LevelExpert},
			},
			"skillset": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"technologies": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"technologies"},
			},
			"notes": {Type: genai.TypeString},
		},
		Required: []string{"position", "name", "weight_percentage", "level_id", "skillset"},
	}

	category := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"position":          {Type: genai.TypeInteger},
			"name":              {Type: genai.TypeString},
			"weight_percentage": {Type: genai.TypeNumber},
			"range_min":         {Type: genai.TypeNumber},
			"range_max":         {Type: genai.TypeNumber},
			"subcategories":     {Type: genai.TypeArray, Items: subcategory},
			"notes": {
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"custom_notes": {Type: genai.TypeString}},
			},
		},
		Required: []string{"position", "name", "weight_percentage", "range_min", "range_max", "subcategories"},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":          {Type: genai.TypeString},
				"persona_notes": {Type: genai.TypeString},
				"categories":    {Type: genai.TypeArray, Items: category},
			},
			Required: []string{"name", "categories"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// promptsForGenerate resolves both prompts and formats the user prompt with the role and job description
func (g *GeminiProvider) promptsForGenerate(input types.GeneratePersonaInput) (string, string) {
	loaded := config.GetGeneratePrompts()
	inline := g.config.CustomPrompts

	systemPrompt := resolvePrompt(loaded.SystemPrompt, inline.SystemPrompt, DefaultSystemPrompt)
	userPrompt := resolvePrompt(loaded.UserPrompt, inline.UserPrompt, DefaultUserPrompt)

	roleName := input.RoleName
	if roleName == "" {
		roleName = "(unspecified)"
	}
	return systemPrompt, fmt.Sprintf(userPrompt, roleName, input.JobDescription)
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
