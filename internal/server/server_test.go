package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"personakit/internal/ai"
	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/observability"
	"personakit/internal/persona"
	"personakit/internal/store"
	"personakit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelError)

type fakeGenerator struct {
	tree  types.PersonaTree
	err   error
	calls int
	input types.GeneratePersonaInput
}

func (f *fakeGenerator) GeneratePersona(_ context.Context, input types.GeneratePersonaInput) (types.PersonaTree, *ai.TokenUsage, error) {
	f.calls++
	f.input = input
	if f.err != nil {
		return types.PersonaTree{}, nil, f.err
	}
	return persona.Clone(f.tree), &ai.TokenUsage{TotalTokens: 10}, nil
}

func (f *fakeGenerator) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake", Available: f.err == nil}
}

func (f *fakeGenerator) Stats() map[string]any { return map[string]any{"enabled": false} }

func personaTree() types.PersonaTree {
	return types.PersonaTree{
		Name: "Backend Engineer",
		Categories: []types.Category{
			{Position: 1, Name: "Technical", WeightPercentage: 40, RangeMin: -5, RangeMax: 10,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Go", WeightPercentage: 70, LevelID: "4"},
					{Position: 2, Name: "SQL", WeightPercentage: 30, LevelID: "3"},
				}},
			{Position: 2, Name: "Communication", WeightPercentage: 60, RangeMin: -10, RangeMax: 10,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Writing", WeightPercentage: 100, LevelID: "2"},
				}},
		},
	}
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	generator *fakeGenerator
	jds       store.JobDescriptionRepo
}

func newTestEnv(t *testing.T, mutate func(*ServerConfig)) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })

	cfg := ServerConfig{
		Host:           "localhost",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
		Cache:          config.CacheConfig{Enabled: true, Size: 8, TTL: time.Minute},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	gen := &fakeGenerator{tree: personaTree()}
	jds := store.NewJobDescriptionRepo(db, testLogger)
	srv := NewServer(nil, cfg, Dependencies{
		Personas:        store.NewPersonaRepo(db, testLogger),
		JobDescriptions: jds,
		Generator:       gen,
		Ping:            func() error { return store.Ping(db) },
	}, testLogger)
	t.Cleanup(func() {
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	return &testEnv{srv: srv, handler: srv.Handler(om), generator: gen, jds: jds}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func saveBody(tree types.PersonaTree, baseline types.Baseline, saveAnyway bool) persona.SaveRequest {
	return persona.SaveRequest{PersonaTree: tree, Baseline: baseline, SaveAnyway: saveAnyway}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	env.generator.err = stderrors.New("down")
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestStatsReportsCache(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	cache := stats["generation_cache"].(map[string]any)
	assert.Equal(t, true, cache["enabled"])
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.APIKeys = []string{"test-key-123456"} })

	rec := env.do(t, http.MethodGet, "/personas", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/personas", nil, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/personas", nil, "Authorization", "Bearer test-key-123456")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/personas", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/personas", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, int64(1), env.srv.RateLimiter.GetStats()["rejected_requests"])
}

func TestGenerateUsesJobDescriptionAndCache(t *testing.T) {
	env := newTestEnv(t, nil)
	jd, err := env.jds.Create(context.Background(), types.JobDescription{
		RoleID: "role-1", RoleName: "Backend Engineer", Content: "Build Go services",
	})
	require.NoError(t, err)

	req := GenerateRequest{RoleID: "role-1", JobDescriptionID: jd.ID}
	rec := env.do(t, http.MethodPost, "/personas/generate", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "Build Go services", env.generator.input.JobDescription)
	assert.Equal(t, "Backend Engineer", env.generator.input.RoleName)

	tree, err := persona.DecodeTree(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, tree.Categories, 2)

	rec = env.do(t, http.MethodPost, "/personas/generate", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, env.generator.calls)

	req.Refresh = true
	rec = env.do(t, http.MethodPost, "/personas/generate", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, env.generator.calls)
}

func TestGenerateErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/personas/generate", GenerateRequest{RoleID: "role-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/personas/generate",
		GenerateRequest{RoleID: "role-1", JobDescriptionID: "7c0e8a4e-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.generator.err = errors.NewAIError(errors.ErrCodeAIServiceFailed, "model unavailable", nil)
	rec = env.do(t, http.MethodPost, "/personas/generate",
		GenerateRequest{RoleID: "role-1", JobDescriptionID: "jd-x", JobDescription: "inline text"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodPost, "/personas/generate", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePersonaBlocked(t *testing.T) {
	env := newTestEnv(t, nil)
	tree := personaTree()
	tree.Name = "  "
	tree.Categories[0].WeightPercentage = 50

	rec := env.do(t, http.MethodPost, "/personas", saveBody(tree, nil, false))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var blocked BlockedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blocked))
	require.Len(t, blocked.Detail, 2)
	assert.Equal(t, []any{"categories"}, blocked.Detail[0].Loc)
	assert.Contains(t, blocked.Detail[0].Msg, "110")
	assert.Equal(t, "Persona name is required", blocked.Detail[1].Msg)
}

func TestCreatePersonaRangeConflictAndSaveAnyway(t *testing.T) {
	env := newTestEnv(t, nil)
	baseline := types.Baseline{1: 40, 2: 60}
	tree := personaTree()
	tree.Categories[0].WeightPercentage = 55
	tree.Categories[1].WeightPercentage = 45

	rec := env.do(t, http.MethodPost, "/personas", saveBody(tree, baseline, false))
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict RangeConflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Contains(t, conflict.Warnings[1], "35")
	assert.Contains(t, conflict.Warnings[1], "50")

	rec = env.do(t, http.MethodPost, "/personas", saveBody(tree, baseline, true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	saved, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 55.0, saved.Categories[0].WeightPercentage)
	assert.Equal(t, baseline, saved.Baseline)
}

func TestPersonaLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/personas", saveBody(personaTree(), nil, false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 40, 2: 60}, created.Baseline, "create without a baseline stores the submitted weights")

	// Update against the stored baseline: 52 is outside [35, 50]
	edited := created.PersonaTree
	edited.Categories[0].WeightPercentage = 52
	edited.Categories[1].WeightPercentage = 48
	rec = env.do(t, http.MethodPost, "/personas/validate", saveBody(edited, types.Baseline{1: 52, 2: 48}, false))
	require.Equal(t, http.StatusOK, rec.Code)
	var report types.ValidationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.HasRangeViolations)

	rec = env.do(t, http.MethodPut, "/personas/"+created.ID, saveBody(edited, nil, false))
	assert.Equal(t, http.StatusConflict, rec.Code)

	edited.Categories[0].WeightPercentage = 45
	edited.Categories[1].WeightPercentage = 55
	edited.Name = "Senior Backend Engineer"
	rec = env.do(t, http.MethodPut, "/personas/"+created.ID, saveBody(edited, nil, false))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/personas/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", fetched.Name)
	assert.Equal(t, types.Baseline{1: 40, 2: 60}, fetched.Baseline)

	rec = env.do(t, http.MethodGet, "/personas?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.PersonaSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodGet, "/personas?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/personas/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/personas/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPut, "/personas/"+created.ID, saveBody(edited, nil, false))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateKeepsStoredBaseline(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/personas", saveBody(personaTree(), types.Baseline{1: 40, 2: 60}, false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)

	// A baseline matching the edited weights must not move the bands
	edited := created.PersonaTree
	edited.Categories[0].WeightPercentage = 52
	edited.Categories[1].WeightPercentage = 48
	rec = env.do(t, http.MethodPost, "/personas/validate", saveBody(edited, types.Baseline{1: 52, 2: 48}, false))
	require.Equal(t, http.StatusOK, rec.Code)
	var report types.ValidationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.HasRangeViolations)

	rec = env.do(t, http.MethodPut, "/personas/"+created.ID, saveBody(edited, types.Baseline{1: 52, 2: 48}, false))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/personas/"+created.ID, saveBody(edited, types.Baseline{1: 52, 2: 48}, true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 40, 2: 60}, updated.Baseline)

	rec = env.do(t, http.MethodGet, "/personas/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched, err := persona.DecodeSaveRequest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.Baseline{1: 40, 2: 60}, fetched.Baseline)
	assert.InDelta(t, 52, fetched.Categories[0].WeightPercentage, 1e-9)
}

func TestValidateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	tree := personaTree()
	tree.Categories[0].WeightPercentage = 34.99
	tree.Categories[1].WeightPercentage = 65.01

	rec := env.do(t, http.MethodPost, "/personas/validate", saveBody(tree, types.Baseline{1: 40, 2: 60}, false))
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.ValidationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.CanSave)
	assert.True(t, report.HasRangeViolations)
	assert.Contains(t, report.RangeWarnings, 1)
	assert.NotContains(t, report.RangeWarnings, 2)
}

func TestJobDescriptionRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/job-descriptions", types.JobDescription{RoleID: "role-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/job-descriptions", types.JobDescription{RoleID: "role-1", Content: "Go"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var jd types.JobDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jd))

	rec = env.do(t, http.MethodGet, "/job-descriptions/"+jd.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/job-descriptions?role_id=role-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.JobDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodGet, "/job-descriptions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{"blocked", errors.NewValidationError(errors.ErrCodeWeightTotalInvalid, "x", nil), http.StatusUnprocessableEntity},
		{"bad request", errors.NewValidationError(errors.ErrCodeInvalidRequest, "x", nil), http.StatusBadRequest},
		{"ai", errors.NewAIError(errors.ErrCodeAIServiceFailed, "x", nil), http.StatusBadGateway},
		{"config", errors.NewConfigError(errors.ErrCodeMissingAPIKey, "x", nil), http.StatusServiceUnavailable},
		{"plain", stderrors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}
