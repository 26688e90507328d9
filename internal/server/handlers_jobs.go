package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	cvalignErrors "cvalign/internal/errors"
	"cvalign/internal/jobs"
	"cvalign/internal/llm"
	"cvalign/internal/observability"
	"cvalign/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// createTestJSearchHandler passes one page of raw JSearch postings
// through untouched, so callers can inspect what the upstream returns.
func (s *Server) createTestJSearchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvalign.api")
		ctx, span := tracer.Start(ctx, "api.test_jsearch")
		defer span.End()

		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("query"))
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if query == "" || location == "" {
			err := cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
				"query and location parameters are required", nil)
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("operation", "test_jsearch"),
			attribute.String("request.query", query),
			attribute.String("request.location", location),
		)

		client := jobs.NewClient(&s.AppConfig.JobSearch)
		result, err := client.Search(ctx, query, location)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.postings", len(result.Postings)),
		)

		response := map[string]any{
			"data":     result.Raw,
			"query":    result.Query,
			"location": result.Location,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createMatchJobsHandler ranks live postings against an uploaded CV.
func (s *Server) createMatchJobsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvalign.api")
		ctx, span := tracer.Start(ctx, "api.match_jobs")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, cvText, appErr := s.extractUpload(r, "file")
		if appErr != nil {
			span.RecordError(appErr)
			span.SetAttributes(attribute.String("error.type", "upload"))
			s.writeAppError(w, appErr)
			return
		}

		query := strings.TrimSpace(r.FormValue("query"))
		if query == "" {
			query = strings.TrimSpace(r.URL.Query().Get("query"))
		}
		location := strings.TrimSpace(r.FormValue("location"))
		if location == "" {
			location = strings.TrimSpace(r.URL.Query().Get("location"))
		}
		if query == "" || location == "" {
			err := cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
				"query and location parameters are required", nil)
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("operation", "match_jobs"),
			attribute.String("request.query", query),
			attribute.String("request.location", location),
			attribute.Int("request.cv_length", len(cvText)),
		)

		rankConfig := s.AppConfig.GetRankConfig()
		service, err := llm.NewService(&rankConfig, "rank", s.Logger)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			s.writeAppError(w, err)
			return
		}
		defer service.Close()

		client := jobs.NewClient(&s.AppConfig.JobSearch)
		matcher := jobs.NewMatcher(client, service, &rankConfig, s.Logger)

		metrics := om.GetMetrics()
		var matches []types.RankedMatch
		err = metrics.TrackLLMOperationWithTokens(ctx, "rank", func(ctx context.Context) *observability.LLMOperationResult {
			result, tokenUsage, matchErr := matcher.MatchJobs(ctx, cvText, query, location)
			matches = result
			return &observability.LLMOperationResult{
				Error:      matchErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			if appErr, ok := err.(*cvalignErrors.AppError); ok && appErr.Type == cvalignErrors.ErrorTypeRecovery {
				metrics.RecordBusinessMetric(ctx, "recovery_failure", true, om,
					attribute.String("operation", "rank"))
			}
			metrics.RecordBusinessMetric(ctx, "jobs_matched", false, om)
			s.writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "jobs_matched", true, om,
			attribute.Int("matches", len(matches)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.matches", len(matches)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.MatchJobsOutput{TopMatches: matches}); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}
