package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"explaincli/internal/explain"
)

// EnvPrefix namespaces every environment variable, e.g. EXPLAIN_SERVER_PORT
const EnvPrefix = "EXPLAIN"

// ConfigFileEnv names the variable that points at a YAML config file
const ConfigFileEnv = "EXPLAIN_CONFIG"

// DefaultConfigFile is read when ConfigFileEnv is unset and the file exists
const DefaultConfigFile = "config/explain.yaml"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Explain   ExplainConfig   `yaml:"explain" envconfig:"EXPLAIN"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"` // json or text
	Output      string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ExplainConfig holds engine settings and the defaults applied to requests
// that leave a parameter out.
type ExplainConfig struct {
	Seed            int64         `yaml:"seed" envconfig:"SEED"`
	Seeded          bool          `yaml:"seeded" envconfig:"SEEDED"`
	MaxConcurrency  int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	KFolds          int           `yaml:"k_folds" envconfig:"K_FOLDS"`
	Scorer          string        `yaml:"scorer" envconfig:"SCORER"`
	MaxEvaluations  int           `yaml:"max_evaluations" envconfig:"MAX_EVALUATIONS"`
	GridSize        int           `yaml:"grid_size" envconfig:"GRID_SIZE"`
	MaxInteractions int           `yaml:"max_interactions" envconfig:"MAX_INTERACTIONS"`
	Permutations    int           `yaml:"permutations" envconfig:"PERMUTATIONS"`
	BackgroundRows  int           `yaml:"background_rows" envconfig:"BACKGROUND_ROWS"`
	BackgroundNoise float64       `yaml:"background_noise" envconfig:"BACKGROUND_NOISE"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	ServiceVersion string  `yaml:"service_version" envconfig:"SERVICE_VERSION"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // stdout or none
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, then the YAML file (if any),
// then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads defaults overlaid with one YAML file, ignoring the environment
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays the YAML document at path; keys it omits keep their value
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// configFilePath returns the config file to read, or "" when there is none
func configFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/explain.log"
	}

	if err := c.Explain.validate(); err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be in [0,1]: %v", c.Telemetry.SampleRatio)
	}
	return nil
}

func (e ExplainConfig) validate() error {
	if e.MaxConcurrency <= 0 {
		return fmt.Errorf("explain max concurrency must be positive")
	}
	if e.Timeout < 0 {
		return fmt.Errorf("explain timeout must not be negative")
	}
	if e.KFolds < 2 {
		return fmt.Errorf("explain k_folds must be at least 2: %d", e.KFolds)
	}
	if _, err := explain.ScorerByName(e.Scorer, nil); err != nil {
		return fmt.Errorf("explain scorer: %w", err)
	}
	if e.MaxEvaluations <= 0 {
		return fmt.Errorf("explain max evaluations must be positive")
	}
	if e.GridSize < 2 {
		return fmt.Errorf("explain grid size must be at least 2: %d", e.GridSize)
	}
	if e.MaxInteractions <= 0 {
		return fmt.Errorf("explain max interactions must be positive")
	}
	if e.Permutations <= 0 {
		return fmt.Errorf("explain permutations must be positive")
	}
	if e.BackgroundRows <= 0 || e.BackgroundNoise < 0 {
		return fmt.Errorf("explain background rows must be positive and noise non-negative")
	}
	return nil
}

// EngineConfig converts the settings into the engine's own configuration
func (e ExplainConfig) EngineConfig() explain.Config {
	return explain.Config{
		Seed:           e.Seed,
		Seeded:         e.Seeded,
		MaxConcurrency: e.MaxConcurrency,
		Timeout:        e.Timeout,
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  55 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    "logs/explain.log",
			Development: false,
		},
		Explain: ExplainConfig{
			MaxConcurrency:  explain.DefaultMaxConcurrency,
			Timeout:         50 * time.Second,
			KFolds:          5,
			Scorer:          explain.ScorerR2,
			MaxEvaluations:  10000,
			GridSize:        20,
			MaxInteractions: 10,
			Permutations:    5,
			BackgroundRows:  explain.DefaultBackgroundRows,
			BackgroundNoise: explain.DefaultBackgroundNoise,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "explain",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			SampleRatio:    1.0,
		},
	}
}
