// Package config loads the process configuration once at startup.
// An optional .env file is loaded into the environment first. Then the
// built-in defaults are overlaid by an optional YAML file (with ${VAR}
// expansion) and finally by the environment. The resulting *Config is never
// mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/llmcore/pkg/types"
)

// Environment variables that override file settings.
const (
	EnvModelType     = "MODEL_TYPE"
	EnvModelName     = "MODEL_NAME"
	EnvModelEndpoint = "MODEL_ENDPOINT"
	EnvModelPath     = "MODEL_PATH"
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvCacheTTL      = "CACHE_TTL"
)

// Defaults.
const (
	DefaultModelName      = "llama2"
	DefaultModelEndpoint  = "http://localhost:11434"
	DefaultCacheTTL       = time.Hour
	DefaultBackendTimeout = 120 * time.Second
)

// Config is the immutable configuration snapshot.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Cache   CacheConfig   `yaml:"cache"`
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig selects and addresses the model backend.
type ModelConfig struct {
	Type     types.ModelType `yaml:"type"`     // local or hosted
	Name     string          `yaml:"name"`     // model tag, e.g. llama2
	Endpoint string          `yaml:"endpoint"` // base URL of the local server
	Path     string          `yaml:"path"`     // weights path, informational for the local server
	APIKey   string          `yaml:"api_key"`  // hosted credential
}

// CacheConfig contains response cache settings.
// In YAML, ttl accepts whole seconds (3600) or a duration ("1h"), matching
// CACHE_TTL.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// UnmarshalYAML decodes ttl with parseTTL so that a bare integer means
// seconds rather than nanoseconds. Absent keys keep their current value.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled *bool     `yaml:"enabled"`
		TTL     yaml.Node `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Enabled != nil {
		c.Enabled = *raw.Enabled
	}
	if raw.TTL.Kind == 0 || raw.TTL.ShortTag() == "!!null" {
		return nil
	}
	if raw.TTL.Kind != yaml.ScalarNode {
		return fmt.Errorf("cache.ttl: expected seconds or a duration")
	}
	ttl, err := parseTTL(raw.TTL.Value)
	if err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	c.TTL = ttl
	return nil
}

// MarshalYAML writes ttl as a duration string so the output reads back
// unchanged.
func (c CacheConfig) MarshalYAML() (any, error) {
	return struct {
		Enabled bool   `yaml:"enabled"`
		TTL     string `yaml:"ttl"`
	}{c.Enabled, c.TTL.String()}, nil
}

// BackendConfig contains backend call settings.
type BackendConfig struct {
	// Timeout bounds a single non-streaming call. Streams are bounded only by
	// the caller's context.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP endpoint (e.g., "localhost:4317")
	ServiceName string  `yaml:"service_name"` // Service name for traces
	SampleRate  float64 `yaml:"sample_rate"`  // Sampling rate (0.0 to 1.0)
	Insecure    bool    `yaml:"insecure"`     // Use insecure connection (no TLS)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Type:     types.ModelTypeLocal,
			Name:     DefaultModelName,
			Endpoint: DefaultModelEndpoint,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     DefaultCacheTTL,
		},
		Backend: BackendConfig{
			Timeout: DefaultBackendTimeout,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // streaming responses outlive any fixed write deadline
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "llmcore",
			SampleRate:  1.0,
			Insecure:    true,
		},
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// File is an optional YAML config path. Empty means defaults only.
	File string
	// EnvFile is an optional dotenv path. A missing file is not an error.
	EnvFile string
	// LookupEnv reads environment variables. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration snapshot.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := DefaultConfig()
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.parse(data, lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) parse(data []byte, lookup func(string) (string, bool)) error {
	expanded := os.Expand(string(data), func(key string) string {
		v, _ := lookup(key)
		return v
	})
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvModelType); ok && v != "" {
		c.Model.Type = types.ModelType(v)
	}
	if v, ok := lookup(EnvModelName); ok && v != "" {
		c.Model.Name = v
	}
	if v, ok := lookup(EnvModelEndpoint); ok && v != "" {
		c.Model.Endpoint = v
	}
	if v, ok := lookup(EnvModelPath); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.Model.APIKey = v
	}
	if v, ok := lookup(EnvCacheTTL); ok && v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

// parseTTL accepts whole seconds ("3600") or a Go duration ("1h").
func parseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the configuration for errors and normalizes the model type.
func (c *Config) Validate() error {
	modelType, err := types.ParseModelType(string(c.Model.Type))
	if err != nil {
		return fmt.Errorf("model.type: %w", err)
	}
	c.Model.Type = modelType

	if err := types.ValidateModelName(c.Model.Name); err != nil {
		return fmt.Errorf("model.name: %w", err)
	}

	if modelType == types.ModelTypeLocal {
		u, err := url.Parse(c.Model.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("model.endpoint: invalid URL %q", c.Model.Endpoint)
		}
		c.Model.Endpoint = strings.TrimRight(c.Model.Endpoint, "/")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}

	return nil
}
