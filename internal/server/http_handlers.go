package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"personakit/internal/errors"
	"personakit/internal/observability"
	"personakit/internal/persona"
	"personakit/internal/store"
	"personakit/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "personakit.api"

// createGenerateHandler generates a persona for a job description, serving
// repeated requests from the generation cache unless refresh is set
func (s *Server) createGenerateHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas.generate")
		defer span.End()

		var req GenerateRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.RoleID) == "" || strings.TrimSpace(req.JobDescriptionID) == "" {
			writeErrorResponse(w, "Missing identifiers", "role_id and job_description_id are required", http.StatusBadRequest)
			return
		}
		if s.Deps.Generator == nil {
			writeErrorResponse(w, "Generation unavailable", "no AI provider is configured", http.StatusServiceUnavailable)
			return
		}

		span.SetAttributes(
			attribute.String("role_id", req.RoleID),
			attribute.String("job_description_id", req.JobDescriptionID),
			attribute.Bool("refresh", req.Refresh),
		)

		metrics := om.GetMetrics()
		if req.Refresh {
			s.Cache.Invalidate(req.RoleID, req.JobDescriptionID)
		} else {
			if tree, ok := s.Cache.Get(req.RoleID, req.JobDescriptionID); ok {
				metrics.RecordBusinessMetric(ctx, observability.MetricCacheLookup, true, om, attribute.String("result", "hit"))
				span.SetAttributes(attribute.Bool("cache.hit", true))
				w.Header().Set("X-Cache", "HIT")
				writeJSON(w, http.StatusOK, tree, s)
				return
			}
			if s.Cache != nil {
				metrics.RecordBusinessMetric(ctx, observability.MetricCacheLookup, true, om, attribute.String("result", "miss"))
			}
		}

		input, err := s.generationInput(ctx, req)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Job description unavailable", err)
			return
		}
		span.SetAttributes(attribute.Int("request.job_length", len(input.JobDescription)))

		var tree types.PersonaTree
		err = metrics.TrackAIOperationWithTokens(ctx, "generate_persona", func(ctx context.Context) *observability.AIOperationResult {
			out, usage, aiErr := s.Deps.Generator.GeneratePersona(ctx, input)
			tree = out
			return &observability.AIOperationResult{
				Error:      aiErr,
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, observability.MetricPersonaGenerated, false, om)
			s.writeAppError(w, "Failed to generate persona", err)
			return
		}

		s.Cache.Put(req.RoleID, req.JobDescriptionID, tree)
		metrics.RecordBusinessMetric(ctx, observability.MetricPersonaGenerated, true, om,
			attribute.Int("categories", len(tree.Categories)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.categories", len(tree.Categories)),
		)

		w.Header().Set("X-Cache", "MISS")
		writeJSON(w, http.StatusOK, tree, s)
	}
}

// generationInput resolves the job description text for req
func (s *Server) generationInput(ctx context.Context, req GenerateRequest) (types.GeneratePersonaInput, error) {
	input := types.GeneratePersonaInput{
		RoleID:           req.RoleID,
		RoleName:         req.RoleName,
		JobDescriptionID: req.JobDescriptionID,
		JobDescription:   req.JobDescription,
	}
	if strings.TrimSpace(input.JobDescription) != "" {
		return input, nil
	}
	if s.Deps.JobDescriptions == nil {
		return input, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"jobDescription is required when no job description store is configured", nil)
	}

	jd, err := s.Deps.JobDescriptions.Get(ctx, req.JobDescriptionID)
	if err != nil {
		return input, err
	}
	input.JobDescription = jd.Content
	if input.RoleName == "" {
		input.RoleName = jd.RoleName
	}
	return input, nil
}

// validateHandler returns the validation report for a persona without saving it.
// When the body has an id but no baseline, the stored baseline is used.
func (s *Server) validateHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas.validate")
		defer span.End()

		req, ok := s.decodeSaveRequest(w, r)
		if !ok {
			return
		}

		baseline := req.Baseline
		if req.ID != "" && s.Deps.Personas != nil {
			if _, stored, err := s.Deps.Personas.Get(ctx, req.ID); err == nil && len(stored) > 0 {
				baseline = stored
			}
		}

		report := persona.Validate(req.PersonaTree, baseline)
		span.SetAttributes(
			attribute.Bool("can_save", report.CanSave),
			attribute.Int("range_warnings", len(report.RangeWarnings)),
		)
		writeJSON(w, http.StatusOK, report, s)
	}
}

func (s *Server) createPersonaHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.savePersona(w, r, om, "")
	}
}

func (s *Server) updatePersonaHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.savePersona(w, r, om, r.PathValue("id"))
	}
}

// savePersona re-runs the validator before persisting. Blocked payloads get 422
// with field-level detail; range warnings without save_anyway get 409.
func (s *Server) savePersona(w http.ResponseWriter, r *http.Request, om *observability.ObservabilityManager, id string) {
	operation := "create"
	if id != "" {
		operation = "update"
	}
	ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas."+operation)
	defer span.End()
	metrics := om.GetMetrics()

	req, ok := s.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	issues := append(persona.CheckSchema(req.PersonaTree), persona.SaveBlockers(req.PersonaTree)...)
	if len(issues) > 0 {
		metrics.RecordBusinessMetric(ctx, observability.MetricValidationBlocked, true, om,
			attribute.String("operation", operation),
			attribute.Int("issues", len(issues)))
		span.SetAttributes(attribute.String("error.type", "validation"), attribute.Int("issues", len(issues)))
		s.Logger.Info("Persona save blocked", "operation", operation, "persona_id", id, "issues", persona.JoinIssues(issues))
		writeJSON(w, http.StatusUnprocessableEntity, BlockedResponse{Detail: issues}, s)
		return
	}

	// Updates are always checked against the stored baseline; the submitted
	// one only counts when the record has none.
	baseline := req.Baseline
	if id != "" {
		_, stored, err := s.Deps.Personas.Get(ctx, id)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Persona not found", err)
			return
		}
		if len(stored) > 0 {
			baseline = stored
		}
	}

	warnings := persona.RangeWarnings(req.PersonaTree, baseline)
	if len(warnings) > 0 {
		if !req.SaveAnyway {
			span.SetAttributes(attribute.Int("range_warnings", len(warnings)))
			writeJSON(w, http.StatusConflict, RangeConflictResponse{
				Detail:   fmt.Sprintf("%d category weight(s) outside the recommended range; resubmit with save_anyway to keep them", len(warnings)),
				Warnings: warnings,
			}, s)
			return
		}
		metrics.RecordBusinessMetric(ctx, observability.MetricRangeOverride, true, om,
			attribute.String("operation", operation),
			attribute.Int("range_warnings", len(warnings)))
	}

	var saved types.PersonaTree
	var err error
	if id == "" {
		stored := req.Baseline
		if len(stored) == 0 {
			stored = persona.CaptureBaseline(req.PersonaTree)
		}
		saved, err = s.Deps.Personas.Create(ctx, req.PersonaTree, stored)
		baseline = stored
	} else {
		saved, err = s.Deps.Personas.Update(ctx, id, req.PersonaTree, req.Baseline)
	}
	if err != nil {
		span.RecordError(err)
		metrics.RecordBusinessMetric(ctx, observability.MetricPersonaSaved, false, om, attribute.String("operation", operation))
		s.writeAppError(w, "Failed to save persona", err)
		return
	}

	metrics.RecordBusinessMetric(ctx, observability.MetricPersonaSaved, true, om,
		attribute.String("operation", operation),
		attribute.Bool("save_anyway", req.SaveAnyway && len(warnings) > 0))
	span.SetAttributes(attribute.String("persona_id", saved.ID), attribute.Bool("success", true))

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, PersonaResponse{PersonaTree: saved, Baseline: baseline}, s)
}

func (s *Server) decodeSaveRequest(w http.ResponseWriter, r *http.Request) (persona.SaveRequest, bool) {
	body, err := readJSONBody(r)
	if err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return persona.SaveRequest{}, false
	}
	req, err := persona.DecodeSaveRequest(body)
	if err != nil {
		writeErrorResponse(w, "Invalid persona payload", err.Error(), http.StatusBadRequest)
		return persona.SaveRequest{}, false
	}
	return req, true
}

func (s *Server) getPersonaHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas.get")
		defer span.End()

		tree, baseline, err := s.Deps.Personas.Get(ctx, r.PathValue("id"))
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Persona not found", err)
			return
		}
		writeJSON(w, http.StatusOK, PersonaResponse{PersonaTree: tree, Baseline: baseline}, s)
	}
}

func (s *Server) listPersonasHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas.list")
		defer span.End()

		q := r.URL.Query()
		filter := store.PersonaFilter{
			RoleID:           q.Get("role_id"),
			JobDescriptionID: q.Get("job_description_id"),
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeErrorResponse(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			filter.Limit = limit
		}

		personas, err := s.Deps.Personas.List(ctx, filter)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Failed to list personas", err)
			return
		}
		writeJSON(w, http.StatusOK, personas, s)
	}
}

func (s *Server) deletePersonaHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.personas.delete")
		defer span.End()

		if err := s.Deps.Personas.Delete(ctx, r.PathValue("id")); err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Persona not found", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) createJobDescriptionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.job_descriptions.create")
		defer span.End()

		var jd types.JobDescription
		if err := parseJSONRequest(r, &jd); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		created, err := s.Deps.JobDescriptions.Create(ctx, jd)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Failed to create job description", err)
			return
		}
		writeJSON(w, http.StatusCreated, created, s)
	}
}

func (s *Server) listJobDescriptionsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.job_descriptions.list")
		defer span.End()

		list, err := s.Deps.JobDescriptions.List(ctx, r.URL.Query().Get("role_id"))
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Failed to list job descriptions", err)
			return
		}
		writeJSON(w, http.StatusOK, list, s)
	}
}

func (s *Server) getJobDescriptionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.job_descriptions.get")
		defer span.End()

		jd, err := s.Deps.JobDescriptions.Get(ctx, r.PathValue("id"))
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, "Job description not found", err)
			return
		}
		writeJSON(w, http.StatusOK, jd, s)
	}
}
