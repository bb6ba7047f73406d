package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelError)

func validTree() types.PersonaTree {
	return types.PersonaTree{
		Name: "Backend Engineer",
		Categories: []types.Category{
			{Position: 1, Name: "Technical", WeightPercentage: 60, RangeMin: -5, RangeMax: 10,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Go", WeightPercentage: 100, LevelID: "4"},
				}},
			{Position: 2, Name: "Communication", WeightPercentage: 40, RangeMin: -5, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Writing", WeightPercentage: 100, LevelID: "2"},
				}},
		},
	}
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "field level detail",
			body: `{"detail":[{"loc":["body","categories",0,"weight_percentage"],"msg":"weight must not be negative"},{"loc":["name"],"msg":"Persona name is required"}]}`,
			want: "categories.0.weight_percentage: weight must not be negative; name: Persona name is required",
		},
		{
			name: "detail string",
			body: `{"detail":"persona \"x\" not found"}`,
			want: `persona "x" not found`,
		},
		{
			name: "message string",
			body: `{"error":"Rate limit exceeded","message":"Too many requests"}`,
			want: "Too many requests",
		},
		{
			name: "unparsable body",
			body: `<html>bad gateway</html>`,
			want: "HTTP 502: Bad Gateway",
		},
		{
			name: "empty object",
			body: `{}`,
			want: "HTTP 502: Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseAPIError(http.StatusBadGateway, "Bad Gateway", []byte(tt.body))
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, http.StatusBadGateway, err.StatusCode)
		})
	}
}

func TestParseAPIErrorWarnings(t *testing.T) {
	err := ParseAPIError(http.StatusConflict, "Conflict",
		[]byte(`{"detail":"range warnings must be confirmed","warnings":{"1":"Weight must be between 35% and 50%"}}`))
	assert.Equal(t, "Weight must be between 35% and 50%", err.Warnings[1])
	assert.True(t, IsRangeConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestGeneratePersonaCoercesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/personas/generate", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jd-1", req.JobDescriptionID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"Gen","categories":[{"position":"1","name":"Tech","weight_percentage":"100",
			"range_min":-5,"range_max":5,"subcategories":[{"position":1,"name":"Go","weight_percentage":100,"level_id":3}]}]}`)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL+"/", "secret", srv.Client(), testLogger)
	tree, err := c.GeneratePersona(context.Background(), types.GeneratePersonaInput{RoleID: "r", JobDescriptionID: "jd-1"})
	require.NoError(t, err)

	require.Len(t, tree.Categories, 1)
	assert.Equal(t, 1, tree.Categories[0].Position)
	assert.Equal(t, 100.0, tree.Categories[0].WeightPercentage)
	assert.Equal(t, "3", tree.Categories[0].Subcategories[0].LevelID)
	assert.Equal(t, []string{}, tree.Categories[0].Subcategories[0].Skillset.Technologies)
}

func TestFetchPersonaWithBaseline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/personas/p-1", r.URL.Path)
		payload := persona.SaveRequest{PersonaTree: validTree(), Baseline: types.Baseline{1: 55, 2: 45}}
		payload.ID = "p-1"
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "", srv.Client(), testLogger)
	tree, baseline, err := c.FetchPersonaWithBaseline(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", tree.ID)
	assert.Equal(t, types.Baseline{1: 55, 2: 45}, baseline)
}

func TestEditorSavesThroughClient(t *testing.T) {
	var got persona.SaveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var err error
		got, err = persona.DecodeSaveRequest(body)
		require.NoError(t, err)

		saved := got.PersonaTree
		saved.ID = "new-id"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(saved)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "", srv.Client(), testLogger)
	initial := validTree()
	editor, err := persona.Open(context.Background(), persona.CreateMode{Initial: &initial}, c, c, testLogger)
	require.NoError(t, err)

	outcome, err := editor.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, persona.OutcomeSaved, outcome)
	assert.Equal(t, "new-id", editor.Tree().ID)
	assert.Equal(t, types.Baseline{1: 60, 2: 40}, got.Baseline)
	assert.False(t, got.SaveAnyway)
}

func TestEditorKeepsTreeWhenServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/personas/p-9", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["name"],"msg":"Persona name is required"}]}`)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "", srv.Client(), testLogger)
	editor := persona.NewEditor(c, testLogger)
	tree := validTree()
	tree.ID = "p-9"
	editor.Load(tree)

	outcome, err := editor.Submit(context.Background())
	assert.Equal(t, persona.OutcomeFailed, outcome)
	require.Error(t, err)
	assert.Equal(t, "name: Persona name is required", err.Error())
	assert.Equal(t, persona.StateEditing, editor.State())
	assert.Equal(t, tree.Categories, editor.Tree().Categories)
}

func TestEditorSavedWhenResponseUndecodable(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{name: "garbled body", body: `{"id":"new-id","categories":[`, wantID: ""},
		{name: "fractional position", body: `{"id":"new-id","categories":[{"position":1.5}]}`, wantID: "new-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewWithHTTPClient(srv.URL, "", srv.Client(), testLogger)
			editor := persona.NewEditor(c, testLogger)
			editor.Load(validTree())

			outcome, err := editor.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, persona.OutcomeSaved, outcome)
			assert.Equal(t, persona.StateSaved, editor.State())
			assert.Equal(t, tt.wantID, editor.Tree().ID)
			assert.Equal(t, persona.SavePayload(validTree()).Categories, editor.Tree().Categories)

			_, err = editor.Submit(context.Background())
			assert.ErrorIs(t, err, persona.ErrSessionClosed)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewWithHTTPClient(url, "", http.DefaultClient, testLogger)
	_, err := c.FetchPersona(context.Background(), "p-1")
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNetwork, appErr.Type)
}
