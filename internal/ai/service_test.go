package ai

import (
	"context"
	"math"
	"testing"

	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"
)

type fakeProvider struct {
	tree  types.PersonaTree
	usage *TokenUsage
	err   error
	calls int
}

func (f *fakeProvider) GeneratePersona(context.Context, types.GeneratePersonaInput) (types.PersonaTree, *TokenUsage, error) {
	f.calls++
	return persona.Clone(f.tree), f.usage, f.err
}

func (f *fakeProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake", Available: true}
}

func (f *fakeProvider) Close() error { return nil }

func generateInput() types.GeneratePersonaInput {
	return types.GeneratePersonaInput{
		RoleID:           "role-1",
		RoleName:         "Backend Engineer",
		JobDescriptionID: "jd-1",
		JobDescription:   "Design and run Go services",
	}
}

func unbalancedTree() types.PersonaTree {
	return types.PersonaTree{
		Categories: []types.Category{
			{Position: 1, Name: "Technical", WeightPercentage: 50, RangeMin: -5, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Go", WeightPercentage: 1, LevelID: "9"},
					{Position: 2, Name: "SQL", WeightPercentage: 2, LevelID: "3"},
				}},
			{Position: 2, Name: "Soft", WeightPercentage: 25,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Writing", WeightPercentage: 100, LevelID: "2"},
				}},
		},
	}
}

func TestServiceGeneratePersonaNormalizes(t *testing.T) {
	provider := &fakeProvider{tree: unbalancedTree(), usage: &TokenUsage{TotalTokens: 42}}
	svc := NewServiceWithProvider(provider, testOperationConfig(), testLogger)

	tree, usage, err := svc.GeneratePersona(context.Background(), generateInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !persona.IsTotalValid(tree) {
		t.Errorf("Expected category weights to total 100, got %v", persona.TotalCategoryWeight(tree))
	}
	if !persona.IsEachCategoryValid(tree) {
		t.Error("Expected every subcategory level to total 100")
	}
	if math.Abs(tree.Categories[0].WeightPercentage-66.67) > 0.01 {
		t.Errorf("Expected first category rescaled to 66.67, got %v", tree.Categories[0].WeightPercentage)
	}
	if tree.Categories[0].Subcategories[0].LevelID != types.LevelBasic {
		t.Errorf("Expected invalid level to become Basic, got %q", tree.Categories[0].Subcategories[0].LevelID)
	}
	if tree.Name != "Backend Engineer Persona" {
		t.Errorf("Expected default name, got %q", tree.Name)
	}
	if tree.RoleID != "role-1" || tree.JobDescriptionID != "jd-1" {
		t.Errorf("Expected role and JD ids to be filled, got %q/%q", tree.RoleID, tree.JobDescriptionID)
	}
	if usage.TotalTokens != 42 {
		t.Errorf("Expected usage to pass through, got %+v", usage)
	}
}

func TestServiceGeneratePersonaErrors(t *testing.T) {
	provider := &fakeProvider{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "down", nil)}
	svc := NewServiceWithProvider(provider, testOperationConfig(), testLogger)

	if _, _, err := svc.GeneratePersona(context.Background(), types.GeneratePersonaInput{RoleID: "r"}); !errors.HasCode(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("Expected INVALID_REQUEST for empty job description, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("Expected provider not to be called without a job description")
	}

	if _, _, err := svc.GeneratePersona(context.Background(), generateInput()); !errors.HasCode(err, errors.ErrCodeAIServiceFailed) {
		t.Errorf("Expected provider error to pass through, got %v", err)
	}
}

func TestNewServiceRequiresAPIKey(t *testing.T) {
	cfg := testOperationConfig()
	cfg.APIKey = ""
	if _, err := NewService(cfg, testLogger); !errors.HasCode(err, errors.ErrCodeMissingAPIKey) {
		t.Errorf("Expected MISSING_API_KEY, got %v", err)
	}

	cfg = testOperationConfig()
	cfg.Provider = "openai"
	if _, err := NewService(cfg, testLogger); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Expected INVALID_CONFIG for unsupported provider, got %v", err)
	}
}

func TestServiceStats(t *testing.T) {
	svc := NewServiceWithProvider(&fakeProvider{}, testOperationConfig(), testLogger)
	if stats := svc.Stats(); stats["enabled"] != false {
		t.Errorf("Expected disabled stats for provider without breakers, got %v", stats)
	}

	g := newGeminiProvider(testOperationConfig(), "generate", testLogger)
	svc = NewServiceWithProvider(g, testOperationConfig(), testLogger)
	if _, ok := svc.Stats()["overall_healthy"]; !ok {
		t.Error("Expected breaker stats from Gemini provider")
	}
	if info := svc.GetModelInfo(context.Background()); info.Available {
		t.Error("Expected model to be unavailable without a client")
	}
}
