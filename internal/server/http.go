package server

import (
	"time"

	"cvalign/internal/config"
	cvalignErrors "cvalign/internal/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RecoveryFailureResponse is returned when a model reply could not be
// recovered into the requested shape. The raw reply is handed back so
// the caller can inspect what the model actually said.
type RecoveryFailureResponse struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// LaTeX template body, loaded once at startup
	Template string

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upload size limit
	MaxUploadSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *cvalignErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host          string
	Port          string
	Version       string
	TLSConfig     config.TLSConfig
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxUploadSize int64
	RateLimit     *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *cvalignErrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Version:       cfg.Version,
		AppConfig:     appCfg,
		TLSConfig:     cfg.TLSConfig,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		IdleTimeout:   cfg.IdleTimeout,
		MaxUploadSize: cfg.MaxUploadSize,
		RateLimit:     cfg.RateLimit,
		RateLimiter:   rateLimiter,
		Logger:        logger,
	}
}
