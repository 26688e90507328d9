package server

import (
	"net/http"

	"cvalign/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimitHandler := s.createRateLimitMiddleware(om)
	requestLimitHandler := s.requestSizeLimitMiddleware()

	// Middleware chain for the API endpoints: request ID, panic
	// recovery, rate limit, body size cap.
	chain := func(h http.HandlerFunc) http.HandlerFunc {
		return s.requestIDMiddleware(
			s.recoverMiddleware(
				rateLimitHandler(
					requestLimitHandler(h),
				),
			),
		)
	}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/cv/modify", chain(s.createModifyHandler(om)))
	mux.HandleFunc("/cv/modify-json", chain(s.createModifyJSONHandler(om)))
	mux.HandleFunc("/test-jsearch/", chain(s.createTestJSearchHandler(om)))
	mux.HandleFunc("/match-jobs/", chain(s.createMatchJobsHandler(om)))
	mux.HandleFunc("/match-cv-description/", chain(s.createScoreHandler(om)))

	return mux
}

// recoverMiddleware turns handler panics into plain 500 responses
// instead of dropped connections.
func (s *Server) recoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Logger.Warn("Recovered from handler panic",
					"endpoint", r.URL.Path,
					"panic", rec,
					"request_id", RequestIDFromContext(r.Context()))
				writeErrorResponse(w, "Internal server error", "", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming request bodies
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxUploadSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)
			}

			next(w, r)
		}
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := originalMiddleware(next)

		return func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
