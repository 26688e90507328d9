package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cvalignErrors "cvalign/internal/errors"
	"cvalign/internal/extract"
	"cvalign/internal/llm"
	"cvalign/internal/observability"
	"cvalign/internal/recovery"
	"cvalign/internal/render"
	"cvalign/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// extractUpload reads the uploaded CV and extracts its text.
func (s *Server) extractUpload(r *http.Request, field string) (string, string, error) {
	filename, data, appErr := s.readUploadedCV(r, field)
	if appErr != nil {
		return "", "", appErr
	}

	kind, err := extract.KindFromFilename(filename)
	if err != nil {
		return "", "", err
	}

	cvText, err := extract.Extract(data, kind)
	if err != nil {
		return "", "", err
	}

	return filename, cvText, nil
}

// loadTemplate returns the cached LaTeX template, loading it from disk
// on first use.
func (s *Server) loadTemplate() (string, error) {
	if s.Template != "" {
		return s.Template, nil
	}

	template, err := s.AppConfig.LoadTemplate()
	if err != nil {
		return "", err
	}
	s.Template = template
	return template, nil
}

// saveArtifact writes one output artifact, creating the directory when
// needed. Artifact writes are best-effort: the response does not depend
// on them.
func (s *Server) saveArtifact(dir, name string, data []byte) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// createModifyHandler aligns an uploaded CV with a pasted job post and
// returns the recovered LaTeX, or the rendered PDF when as_pdf is set.
func (s *Server) createModifyHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvalign.api")
		ctx, span := tracer.Start(ctx, "api.modify")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filename, cvText, appErr := s.extractUpload(r, "cv_file")
		if appErr != nil {
			span.RecordError(appErr)
			span.SetAttributes(attribute.String("error.type", "upload"))
			s.writeAppError(w, appErr)
			return
		}

		jobPostText := strings.TrimSpace(r.FormValue("job_post_text"))
		if jobPostText == "" {
			err := cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
				"job_post_text form field is required", nil)
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		asPDF, _ := strconv.ParseBool(r.URL.Query().Get("as_pdf"))

		span.SetAttributes(
			attribute.String("operation", "modify"),
			attribute.Int("request.cv_length", len(cvText)),
			attribute.Int("request.job_length", len(jobPostText)),
			attribute.Bool("request.as_pdf", asPDF),
		)

		template, err := s.loadTemplate()
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		modifyConfig := s.AppConfig.GetModifyConfig()
		service, err := llm.NewService(&modifyConfig, "modify", s.Logger)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			s.writeAppError(w, err)
			return
		}
		defer service.Close()

		systemPrompt, userPrompt := llm.BuildModifyPrompt(&modifyConfig, template, jobPostText, cvText)

		metrics := om.GetMetrics()
		var reply string
		err = metrics.TrackLLMOperationWithTokens(ctx, "modify", func(ctx context.Context) *observability.LLMOperationResult {
			text, tokenUsage, llmErr := service.Complete(ctx, systemPrompt, userPrompt)
			reply = text
			return &observability.LLMOperationResult{
				Error:      llmErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "cv_modified", false, om,
				attribute.String("format", "latex"))
			s.writeAppError(w, err)
			return
		}

		latex := recovery.ExtractLaTeX(reply)
		now := time.Now()
		texName := render.ArtifactName(filename, "tex", now)

		if saveErr := s.saveArtifact(s.AppConfig.Output.ProcessedDir, texName, []byte(latex)); saveErr != nil {
			s.Logger.Warn("Failed to save LaTeX artifact",
				"file", texName, "error", saveErr.Error())
		}

		renderer := render.NewRenderer(s.AppConfig.Output.PdflatexPath,
			s.AppConfig.Output.RenderTimeout, s.Logger)
		pdfBytes, renderErr := renderer.RenderPDF(ctx, latex)
		metrics.RecordBusinessMetric(ctx, "render", renderErr == nil, om)

		if renderErr != nil {
			// Terminal only when the caller asked for a PDF
			if asPDF {
				span.RecordError(renderErr)
				metrics.RecordBusinessMetric(ctx, "cv_modified", false, om,
					attribute.String("format", "pdf"))
				s.writeAppError(w, renderErr)
				return
			}
			s.Logger.LogError(renderErr, "Rendering failed, returning LaTeX only",
				"file", texName)
		} else {
			pdfName := render.ArtifactName(filename, "pdf", now)
			if saveErr := s.saveArtifact(s.AppConfig.Output.OutputsDir, pdfName, pdfBytes); saveErr != nil {
				s.Logger.Warn("Failed to save PDF artifact",
					"file", pdfName, "error", saveErr.Error())
			}

			if asPDF {
				metrics.RecordBusinessMetric(ctx, "cv_modified", true, om,
					attribute.String("format", "pdf"))
				span.SetAttributes(attribute.Bool("success", true))
				w.Header().Set("Content-Type", "application/pdf")
				w.Header().Set("Content-Disposition",
					fmt.Sprintf("attachment; filename=%q", pdfName))
				if _, writeErr := w.Write(pdfBytes); writeErr != nil {
					s.Logger.Warn("Failed to write PDF response", "error", writeErr.Error())
				}
				return
			}
		}

		metrics.RecordBusinessMetric(ctx, "cv_modified", true, om,
			attribute.String("format", "latex"),
			attribute.Int("output.latex_length", len(latex)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.latex_length", len(latex)),
		)

		result := types.ModifyCVOutput{
			Message:    "CV modified successfully",
			Filename:   texName,
			ModifiedCV: latex,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createModifyJSONHandler aligns an uploaded CV with a job post and
// returns the recovered CV JSON object verbatim. The object's shape is
// deliberately not enforced.
func (s *Server) createModifyJSONHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvalign.api")
		ctx, span := tracer.Start(ctx, "api.modify_json")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, cvText, appErr := s.extractUpload(r, "cv_file")
		if appErr != nil {
			span.RecordError(appErr)
			span.SetAttributes(attribute.String("error.type", "upload"))
			s.writeAppError(w, appErr)
			return
		}

		jobPostText := strings.TrimSpace(r.FormValue("job_post_text"))
		if jobPostText == "" {
			err := cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
				"job_post_text form field is required", nil)
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("operation", "modify_json"),
			attribute.Int("request.cv_length", len(cvText)),
			attribute.Int("request.job_length", len(jobPostText)),
		)

		modifyConfig := s.AppConfig.GetModifyJSONConfig()
		service, err := llm.NewService(&modifyConfig, "modify_json", s.Logger)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			s.writeAppError(w, err)
			return
		}
		defer service.Close()

		systemPrompt, userPrompt := llm.BuildModifyJSONPrompt(&modifyConfig, jobPostText, cvText)

		metrics := om.GetMetrics()
		var reply string
		err = metrics.TrackLLMOperationWithTokens(ctx, "modify_json", func(ctx context.Context) *observability.LLMOperationResult {
			text, tokenUsage, llmErr := service.Complete(ctx, systemPrompt, userPrompt)
			reply = text
			return &observability.LLMOperationResult{
				Error:      llmErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "cv_modified", false, om,
				attribute.String("format", "json"))
			s.writeAppError(w, err)
			return
		}

		object, fail := recovery.RecoverObject(reply)
		if fail != nil {
			span.RecordError(fail)
			span.SetAttributes(attribute.String("error.type", "recovery"))
			metrics.RecordBusinessMetric(ctx, "recovery_failure", true, om,
				attribute.String("operation", "modify_json"),
				attribute.String("code", fail.Code))
			metrics.RecordBusinessMetric(ctx, "cv_modified", false, om,
				attribute.String("format", "json"))
			s.writeAppError(w, cvalignErrors.NewRecoveryError(cvalignErrors.ErrCodeRecoveryFailed,
				"Failed to recover CV JSON from model reply", fail).
				WithContext("raw_response", fail.RawText))
			return
		}

		metrics.RecordBusinessMetric(ctx, "cv_modified", true, om,
			attribute.String("format", "json"))
		span.SetAttributes(attribute.Bool("success", true))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(object); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createScoreHandler scores an uploaded CV against a pasted job
// description across four alignment dimensions.
func (s *Server) createScoreHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvalign.api")
		ctx, span := tracer.Start(ctx, "api.score")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		jobDescription := strings.TrimSpace(r.URL.Query().Get("job_description"))
		if jobDescription == "" {
			jobDescription = strings.TrimSpace(r.FormValue("job_description"))
		}
		if len(jobDescription) < 10 {
			err := cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
				"job_description must be at least 10 characters", nil)
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}

		_, cvText, appErr := s.extractUpload(r, "file")
		if appErr != nil {
			span.RecordError(appErr)
			span.SetAttributes(attribute.String("error.type", "upload"))
			s.writeAppError(w, appErr)
			return
		}

		span.SetAttributes(
			attribute.String("operation", "score"),
			attribute.Int("request.cv_length", len(cvText)),
			attribute.Int("request.job_length", len(jobDescription)),
		)

		scoreConfig := s.AppConfig.GetScoreConfig()
		service, err := llm.NewService(&scoreConfig, "score", s.Logger)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			s.writeAppError(w, err)
			return
		}
		defer service.Close()

		systemPrompt, userPrompt := llm.BuildScorePrompt(&scoreConfig, jobDescription, cvText)

		metrics := om.GetMetrics()
		var reply string
		err = metrics.TrackLLMOperationWithTokens(ctx, "score", func(ctx context.Context) *observability.LLMOperationResult {
			text, tokenUsage, llmErr := service.Complete(ctx, systemPrompt, userPrompt)
			reply = text
			return &observability.LLMOperationResult{
				Error:      llmErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "cv_scored", false, om)
			s.writeAppError(w, err)
			return
		}

		scores, fail := recovery.RecoverScores(reply)
		if fail != nil {
			span.RecordError(fail)
			span.SetAttributes(attribute.String("error.type", "recovery"))
			metrics.RecordBusinessMetric(ctx, "recovery_failure", true, om,
				attribute.String("operation", "score"),
				attribute.String("code", fail.Code))
			metrics.RecordBusinessMetric(ctx, "cv_scored", false, om)
			s.writeAppError(w, cvalignErrors.NewRecoveryError(cvalignErrors.ErrCodeRecoveryFailed,
				"Failed to recover alignment scores from model reply", fail).
				WithContext("raw_response", fail.RawText))
			return
		}

		metrics.RecordBusinessMetric(ctx, "cv_scored", true, om,
			attribute.Int("scores.fair_match", scores.FairMatch))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("scores.fair_match", scores.FairMatch),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(scores); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}
