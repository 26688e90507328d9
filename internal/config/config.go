package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
//
// Value precedence order:
// 1. Config file values
// 2. Environment variables (CVALIGN_LLM_APIKEY, etc.)
// 3. Well-known provider variables (OPENROUTER_API_KEY, JSEARCH_API_KEY, ...)
// 4. Default values
type Config struct {
	LLM           LLMConfig           `mapstructure:"llm"`
	JobSearch     JobSearchConfig     `mapstructure:"jobSearch"`
	Template      TemplateConfig      `mapstructure:"template"`
	Output        OutputConfig        `mapstructure:"output"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// LLMConfig holds chat-model gateway configuration
type LLMConfig struct {
	// Global/fallback configuration
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"baseURL"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	Temperature      float32       `mapstructure:"temperature"`
	Referer          string        `mapstructure:"referer"`
	Title            string        `mapstructure:"title"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	// Operation-specific configurations
	Modify     OperationLLMConfig `mapstructure:"modify"`
	ModifyJSON OperationLLMConfig `mapstructure:"modifyJson"`
	Rank       OperationLLMConfig `mapstructure:"rank"`
	Score      OperationLLMConfig `mapstructure:"score"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationLLMConfig holds chat-model configuration for specific operations
type OperationLLMConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	Temperature      *float32             `mapstructure:"temperature"`
	Referer          string               `mapstructure:"referer"`
	Title            string               `mapstructure:"title"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts contains system-level instructions
type SystemPrompts struct {
	ModifyCV     string `mapstructure:"modifyCv"`
	ModifyCVJSON string `mapstructure:"modifyCvJson"`
	RankJobs     string `mapstructure:"rankJobs"`
	ScoreCV      string `mapstructure:"scoreCv"`
}

// UserPrompts contains user-level prompt templates
type UserPrompts struct {
	ModifyCV     string `mapstructure:"modifyCv"`
	ModifyCVJSON string `mapstructure:"modifyCvJson"`
	RankJobs     string `mapstructure:"rankJobs"`
	ScoreCV      string `mapstructure:"scoreCv"`
}

// JobSearchConfig holds JSearch API configuration
type JobSearchConfig struct {
	APIKey     string        `mapstructure:"apiKey"`
	BaseURL    string        `mapstructure:"baseURL"`
	Host       string        `mapstructure:"host"`
	Country    string        `mapstructure:"country"`
	DatePosted string        `mapstructure:"datePosted"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TemplateConfig holds LaTeX template configuration
type TemplateConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig holds artifact output configuration
type OutputConfig struct {
	ProcessedDir  string        `mapstructure:"processedDir"`
	OutputsDir    string        `mapstructure:"outputsDir"`
	PdflatexPath  string        `mapstructure:"pdflatexPath"`
	RenderTimeout time.Duration `mapstructure:"renderTimeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"readTimeout"`
	WriteTimeout  time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	MaxUploadSize int64         `mapstructure:"maxUploadSize"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	LLMOperations   LLMOperationsMetricsConfig  `mapstructure:"llmOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// LLMOperationsMetricsConfig holds chat-model operation metrics configuration
type LLMOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	LLMModelCheckTimeout time.Duration `mapstructure:"llmModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix("CVALIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set up config file handling
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cvalign/")
	v.AddConfigPath("$HOME/.cvalign")
	v.AddConfigPath(".")

	// Read the config file
	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	// Unmarshal the configuration into the Config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable fallbacks for provider keys
	config.applyFallbacks()

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM Configuration - Global defaults
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.model", "openai/gpt-4o-mini")
	v.SetDefault("llm.baseURL", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.referer", "")
	v.SetDefault("llm.title", "")
	v.SetDefault("llm.useSystemPrompts", true)

	// LLM Configuration - Modify operation defaults
	v.SetDefault("llm.modify.provider", "")
	v.SetDefault("llm.modify.model", "")
	v.SetDefault("llm.modify.timeout", 30*time.Second)
	v.SetDefault("llm.modify.temperature", 0.3) // Lower temperature for consistency

	// LLM Configuration - ModifyJSON operation defaults
	v.SetDefault("llm.modifyJson.provider", "")
	v.SetDefault("llm.modifyJson.model", "")
	v.SetDefault("llm.modifyJson.timeout", 30*time.Second)
	v.SetDefault("llm.modifyJson.temperature", 0.2)

	// LLM Configuration - Rank operation defaults
	v.SetDefault("llm.rank.provider", "")
	v.SetDefault("llm.rank.model", "")
	v.SetDefault("llm.rank.timeout", 60*time.Second) // Longer timeout for batch ranking
	v.SetDefault("llm.rank.temperature", 0.2)

	// LLM Configuration - Score operation defaults
	v.SetDefault("llm.score.provider", "")
	v.SetDefault("llm.score.model", "")
	v.SetDefault("llm.score.timeout", 30*time.Second)
	v.SetDefault("llm.score.temperature", 0.1) // Very low temperature for factual scoring

	// Circuit Breaker Configuration defaults for all operations
	for _, op := range []string{"modify", "modifyJson", "rank", "score"} {
		v.SetDefault("llm."+op+".circuitBreaker.enabled", true)
		v.SetDefault("llm."+op+".circuitBreaker.maxRequests", 3)
		v.SetDefault("llm."+op+".circuitBreaker.interval", 60*time.Second)
		v.SetDefault("llm."+op+".circuitBreaker.timeout", 60*time.Second)
		v.SetDefault("llm."+op+".circuitBreaker.minRequests", 3)
		v.SetDefault("llm."+op+".circuitBreaker.failureThreshold", 0.6)
	}

	// Job Search Configuration
	v.SetDefault("jobSearch.apiKey", "")
	v.SetDefault("jobSearch.baseURL", "https://jsearch.p.rapidapi.com")
	v.SetDefault("jobSearch.host", "jsearch.p.rapidapi.com")
	v.SetDefault("jobSearch.country", "us")
	v.SetDefault("jobSearch.datePosted", "all")
	v.SetDefault("jobSearch.timeout", 30*time.Second)

	// Template Configuration
	v.SetDefault("template.path", "assets/templates/template.tex")

	// Output Configuration
	v.SetDefault("output.processedDir", "processed")
	v.SetDefault("output.outputsDir", "outputs")
	v.SetDefault("output.pdflatexPath", "pdflatex")
	v.SetDefault("output.renderTimeout", 60*time.Second)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxUploadSize", 10*1024*1024) // 10MB
	// TLS Configuration defaults
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2") // TLS 1.2 minimum
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvalign")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.llmOperations.enabled", true)
	v.SetDefault("observability.customMetrics.llmOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.llmOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.llmOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.llmModelCheckTimeout", 10*time.Second)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM provider is required")
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server maxUploadSize must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	// Validate TLS configuration
	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// applyFallbacks applies environment variable fallbacks for provider keys
// that predate the CVALIGN_ prefix convention.
func (c *Config) applyFallbacks() {
	if c.LLM.APIKey == "" {
		for _, name := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
			if key := os.Getenv(name); key != "" {
				c.LLM.APIKey = key
				break
			}
		}
	}

	if c.JobSearch.APIKey == "" {
		for _, name := range []string{"JSEARCH_API_KEY", "RAPIDAPI_KEY"} {
			if key := os.Getenv(name); key != "" {
				c.JobSearch.APIKey = key
				break
			}
		}
	}

	// Set default TLS version if not specified
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	// Set dynamic service instance ID if not specified
	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}
