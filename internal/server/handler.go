package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"personakit/internal/errors"
	"personakit/internal/store"
)

const defaultHealthCheckTimeout = 5 * time.Second

func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig != nil {
		hc := s.AppConfig.Observability.HealthCheck
		if hc.AIModelCheckTimeout > 0 {
			return hc.AIModelCheckTimeout
		}
		if hc.Timeout > 0 {
			return hc.Timeout
		}
	}
	return defaultHealthCheckTimeout
}

// healthHandler reports database and AI model availability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "personakit",
		"version": s.Version,
	}
	healthy := true

	if s.Deps.Ping != nil {
		if err := s.Deps.Ping(); err != nil {
			healthy = false
			response["database"] = map[string]any{"available": false, "error": err.Error()}
		} else {
			response["database"] = map[string]any{"available": true}
		}
	}

	if s.Deps.Generator != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
		defer cancel()
		info := s.Deps.Generator.GetModelInfo(ctx)
		response["ai_model"] = info
		response["circuit_breakers"] = s.Deps.Generator.Stats()
		if info == nil || !info.Available {
			healthy = false
		}
	} else {
		response["ai_model"] = map[string]any{"available": false, "error": "generation is not configured"}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response, s)
}

// statsHandler provides server statistics including rate limiting and cache info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "personakit",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"generation_cache": s.Cache.GetStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Deps.Generator != nil {
		response["circuit_breakers"] = s.Deps.Generator.Stats()
	}

	writeJSON(w, http.StatusOK, response, s)
}

// readJSONBody returns the raw body of a JSON request
func readJSONBody(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("content-type must be application/json")
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	body, err := readJSONBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any, s *Server) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s != nil && s.Logger != nil {
		s.Logger.LogError(err, "Failed to encode response")
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message}, nil)
}

// writeAppError maps err onto an HTTP status and writes it
func (s *Server) writeAppError(w http.ResponseWriter, title string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, title)
	}
	writeErrorResponse(w, title, err.Error(), status)
}

func statusForError(err error) int {
	if stderrors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		switch appErr.Code {
		case errors.ErrCodeWeightTotalInvalid, errors.ErrCodeSubcategoryTotalInvalid, errors.ErrCodePersonaNameRequired:
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case errors.ErrorTypeAI:
		return http.StatusBadGateway
	case errors.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
