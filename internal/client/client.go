// Package client talks to a personakit server. It supplies the persona
// editor with generated and saved trees and persists its saves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"personakit/internal/config"
	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseSize bounds how much of a response body is read
const maxResponseSize = 8 << 20

// Client is an HTTP client for the personakit API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *errors.Logger
}

// GenerateRequest is the body of POST /personas/generate
type GenerateRequest struct {
	types.GeneratePersonaInput
	Refresh bool `json:"refresh,omitempty"`
}

// New creates a client from configuration. Requests are traced through otelhttp.
func New(cfg config.ClientConfig, logger *errors.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	hc := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return NewWithHTTPClient(cfg.BaseURL, cfg.APIKey, hc, logger)
}

// NewWithHTTPClient creates a client using hc for transport
func NewWithHTTPClient(baseURL, apiKey string, hc *http.Client, logger *errors.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: hc,
		logger:     logger,
	}
}

// GeneratePersona asks the server to generate a persona for a registered job description
func (c *Client) GeneratePersona(ctx context.Context, input types.GeneratePersonaInput) (types.PersonaTree, error) {
	return c.Generate(ctx, GenerateRequest{GeneratePersonaInput: input})
}

// Generate is GeneratePersona with control over the server-side cache
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (types.PersonaTree, error) {
	body, err := c.do(ctx, http.MethodPost, "/personas/generate", req)
	if err != nil {
		return types.PersonaTree{}, err
	}
	return persona.DecodeTree(body)
}

// FetchPersona loads a saved persona
func (c *Client) FetchPersona(ctx context.Context, id string) (types.PersonaTree, error) {
	tree, _, err := c.FetchPersonaWithBaseline(ctx, id)
	return tree, err
}

// FetchPersonaWithBaseline loads a saved persona together with the baseline stored for it
func (c *Client) FetchPersonaWithBaseline(ctx context.Context, id string) (types.PersonaTree, types.Baseline, error) {
	body, err := c.do(ctx, http.MethodGet, "/personas/"+url.PathEscape(id), nil)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}
	saved, err := persona.DecodeSaveRequest(body)
	if err != nil {
		return types.PersonaTree{}, nil, err
	}
	return saved.PersonaTree, saved.Baseline, nil
}

// ListPersonas lists saved personas, optionally for one role
func (c *Client) ListPersonas(ctx context.Context, roleID string) ([]types.PersonaSummary, error) {
	path := "/personas"
	if roleID != "" {
		path += "?role_id=" + url.QueryEscape(roleID)
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []types.PersonaSummary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeMalformedPayload, "persona list could not be decoded", err)
	}
	return out, nil
}

// CreatePersona persists a new persona
func (c *Client) CreatePersona(ctx context.Context, req persona.SaveRequest) (types.PersonaTree, error) {
	return c.save(ctx, http.MethodPost, "/personas", req)
}

// UpdatePersona persists changes to a saved persona
func (c *Client) UpdatePersona(ctx context.Context, id string, req persona.SaveRequest) (types.PersonaTree, error) {
	return c.save(ctx, http.MethodPut, "/personas/"+url.PathEscape(id), req)
}

// DeletePersona removes a saved persona
func (c *Client) DeletePersona(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/personas/"+url.PathEscape(id), nil)
	return err
}

// ValidatePersona runs the server-side validator without saving
func (c *Client) ValidatePersona(ctx context.Context, tree types.PersonaTree, baseline types.Baseline) (types.ValidationReport, error) {
	body, err := c.do(ctx, http.MethodPost, "/personas/validate", persona.SaveRequest{
		PersonaTree: persona.SavePayload(tree),
		Baseline:    baseline,
	})
	if err != nil {
		return types.ValidationReport{}, err
	}
	var report types.ValidationReport
	if err := json.Unmarshal(body, &report); err != nil {
		return types.ValidationReport{}, errors.NewNetworkError(errors.ErrCodeMalformedPayload, "validation report could not be decoded", err)
	}
	return report, nil
}

// CreateJobDescription registers a job description
func (c *Client) CreateJobDescription(ctx context.Context, jd types.JobDescription) (types.JobDescription, error) {
	body, err := c.do(ctx, http.MethodPost, "/job-descriptions", jd)
	if err != nil {
		return types.JobDescription{}, err
	}
	var out types.JobDescription
	if err := json.Unmarshal(body, &out); err != nil {
		return types.JobDescription{}, errors.NewNetworkError(errors.ErrCodeMalformedPayload, "job description could not be decoded", err)
	}
	return out, nil
}

// ListJobDescriptions lists registered job descriptions, optionally for one role
func (c *Client) ListJobDescriptions(ctx context.Context, roleID string) ([]types.JobDescription, error) {
	path := "/job-descriptions"
	if roleID != "" {
		path += "?role_id=" + url.QueryEscape(roleID)
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []types.JobDescription
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeMalformedPayload, "job description list could not be decoded", err)
	}
	return out, nil
}

func (c *Client) save(ctx context.Context, method, path string, req persona.SaveRequest) (types.PersonaTree, error) {
	req.PersonaTree = persona.SavePayload(req.PersonaTree)
	body, err := c.do(ctx, method, path, req)
	if err != nil {
		return types.PersonaTree{}, err
	}
	saved, err := persona.DecodeTree(body)
	if err == nil {
		return saved, nil
	}

	// A 2xx means the persona is stored. An unreadable body falls back to the
	// submitted tree, keeping any id the body still carries.
	saved = req.PersonaTree
	if id := savedID(body); id != "" {
		saved.ID = id
	}
	if c.logger != nil {
		c.logger.Warn("Saved persona response could not be decoded",
			"method", method,
			"path", path,
			"persona_id", saved.ID,
			"error", err.Error())
	}
	return saved, nil
}

// savedID pulls the id out of a save response that does not decode as a persona
func savedID(body []byte) string {
	var ref struct {
		ID any `json:"id"`
	}
	if json.Unmarshal(body, &ref) != nil {
		return ""
	}
	switch id := ref.ID.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// do sends payload as JSON and returns the body of a 2xx response.
// Any other status becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeMalformedPayload, "request could not be encoded", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeInvalidRequest, "failed to build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.LogError(err, "Request failed", "method", method, "path", path)
		}
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && c.logger != nil {
			c.logger.Debug("Failed to close response body", "error", cerr.Error())
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := ParseAPIError(resp.StatusCode, http.StatusText(resp.StatusCode), body)
		if c.logger != nil {
			c.logger.Debug("API request rejected",
				"method", method,
				"path", path,
				"status", resp.StatusCode,
				"message", apiErr.Message)
		}
		return nil, apiErr
	}
	return body, nil
}
