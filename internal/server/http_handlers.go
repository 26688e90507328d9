package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	cvalignErrors "cvalign/internal/errors"
	"cvalign/internal/llm"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler provides a health check endpoint including chat-model
// reachability and circuit breaker status for every operation.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "cvalign",
		"version": s.Version,
	}

	modelStatus := s.checkModelsHealth()
	response["llm_models"] = modelStatus

	response["circuit_breakers"] = s.checkCircuitBreakerHealth()

	// Degrade overall status when any operation's model is unreachable
	overallHealthy := true
	for _, status := range modelStatus {
		switch info := status.(type) {
		case *llm.ModelInfo:
			if !info.Available {
				overallHealthy = false
			}
		case map[string]any:
			if avail, ok := info["available"].(bool); ok && !avail {
				overallHealthy = false
			}
		}
		if !overallHealthy {
			break
		}
	}

	if !overallHealthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// checkModelsHealth checks the chat model behind each operation
func (s *Server) checkModelsHealth() map[string]any {
	timeout := s.getHealthCheckTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status := make(map[string]any)
	for op, build := range s.operationServices() {
		service, err := build()
		if err != nil {
			status[op] = map[string]any{
				"available": false,
				"error":     fmt.Sprintf("Failed to create %s service: %v", op, err),
			}
			continue
		}
		status[op] = service.GetModelInfo(ctx)
		_ = service.Close()
	}
	return status
}

// checkCircuitBreakerHealth reports breaker state for every operation
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	status := make(map[string]any)
	for op, build := range s.operationServices() {
		service, err := build()
		if err != nil {
			status[op] = map[string]any{
				"available": false,
				"error":     fmt.Sprintf("Failed to create %s service: %v", op, err),
			}
			continue
		}
		status[op] = service.GetCircuitBreakerStats()
		_ = service.Close()
	}
	return status
}

// operationServices enumerates gateway service constructors per
// operation for the health check.
func (s *Server) operationServices() map[string]func() (*llm.Service, error) {
	return map[string]func() (*llm.Service, error){
		"modify": func() (*llm.Service, error) {
			cfg := s.AppConfig.GetModifyConfig()
			return llm.NewService(&cfg, "modify", s.Logger)
		},
		"modify_json": func() (*llm.Service, error) {
			cfg := s.AppConfig.GetModifyJSONConfig()
			return llm.NewService(&cfg, "modify_json", s.Logger)
		},
		"rank": func() (*llm.Service, error) {
			cfg := s.AppConfig.GetRankConfig()
			return llm.NewService(&cfg, "rank", s.Logger)
		},
		"score": func() (*llm.Service, error) {
			cfg := s.AppConfig.GetScoreConfig()
			return llm.NewService(&cfg, "score", s.Logger)
		},
	}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "cvalign",
		"version": s.Version,
		"server": map[string]any{
			"max_upload_size_bytes": s.MaxUploadSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// readUploadedCV pulls one uploaded document out of a multipart form.
// Returns the original filename and the raw bytes.
func (s *Server) readUploadedCV(r *http.Request, field string) (string, []byte, *cvalignErrors.AppError) {
	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		return "", nil, cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
			"Request must be multipart/form-data with a CV file", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, cvalignErrors.NewValidationError(cvalignErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Missing uploaded file field %q", field), err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.MaxUploadSize+1))
	if err != nil {
		return "", nil, cvalignErrors.NewIOError(cvalignErrors.ErrCodeFileNotReadable,
			"Failed to read uploaded file", err)
	}
	if int64(len(data)) > s.MaxUploadSize {
		return "", nil, cvalignErrors.NewValidationError(cvalignErrors.ErrCodeFileTooLarge,
			fmt.Sprintf("Uploaded file exceeds the %d byte limit", s.MaxUploadSize), nil)
	}

	return header.Filename, data, nil
}

// statusForError maps the error taxonomy onto HTTP status codes:
// validation and extraction are client errors, upstream failures are
// 502 unless the job search carried a concrete upstream status, and
// everything else is a 500.
func statusForError(err *cvalignErrors.AppError) int {
	switch err.Type {
	case cvalignErrors.ErrorTypeValidation:
		if err.Code == cvalignErrors.ErrCodeNoPostingsFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case cvalignErrors.ErrorTypeExtraction:
		return http.StatusBadRequest
	case cvalignErrors.ErrorTypeUpstream:
		if status, ok := err.Context["status"].(int); ok && err.Code == cvalignErrors.ErrCodeJobSearchFailed {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes an error response according to the taxonomy
// mapping. Recovery failures hand back the raw model reply.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*cvalignErrors.AppError)
	if !ok {
		writeErrorResponse(w, "Internal server error", err.Error(), http.StatusInternalServerError)
		return
	}

	if appErr.Type == cvalignErrors.ErrorTypeRecovery {
		raw, _ := appErr.Context["raw_response"].(string)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if encErr := json.NewEncoder(w).Encode(RecoveryFailureResponse{
			Error:       appErr.Message,
			RawResponse: raw,
		}); encErr != nil {
			log.Printf("Failed to encode recovery failure response: %v", encErr)
		}
		return
	}

	writeErrorResponse(w, appErr.Message, appErr.Code, statusForError(appErr))
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
