package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// Config holds the annosearch daemon configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	SearchEngine SearchEngineConfig `yaml:"search_engine"`
	MetricsCache MetricsCacheConfig `yaml:"metrics_cache"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds the ops HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// APIKeys protect the ops routes other than /health and /metrics. Empty disables auth.
	APIKeys []string `yaml:"api_keys"`
}

// SearchEngineConfig selects the backend and holds its connection and index settings.
// Index settings apply when an index is created; existing indexes keep theirs.
type SearchEngineConfig struct {
	Backend          string   `yaml:"backend"` // elasticsearch, opensearch (default: elasticsearch)
	Hosts            []string `yaml:"hosts"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	SSLVerify        *bool    `yaml:"ssl_verify"`
	CAPath           string   `yaml:"ca_path"`
	RetryOnTimeout   *bool    `yaml:"retry_on_timeout"`
	MaxRetries       *int     `yaml:"max_retries"`
	NumberOfShards   int      `yaml:"number_of_shards"`
	NumberOfReplicas int      `yaml:"number_of_replicas"`
	TotalFieldsLimit int      `yaml:"total_fields_limit"`
	MaxResultWindow  int      `yaml:"max_result_window"`
	MaxTermsBuckets  int      `yaml:"max_terms_buckets"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// MetricsCacheConfig holds the Redis metrics cache settings.
// The cache is disabled when Addrs is empty.
type MetricsCacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// Enabled reports whether a cache is configured.
func (c MetricsCacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// TracingConfig holds OTLP trace export settings. Tracing is off without an endpoint.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"` // host:port of the OTLP/HTTP collector
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	se := &c.SearchEngine
	if se.Backend == "" {
		se.Backend = "elasticsearch"
	}
	if se.SSLVerify == nil {
		se.SSLVerify = boolPtr(true)
	}
	if se.RetryOnTimeout == nil {
		se.RetryOnTimeout = boolPtr(true)
	}
	if se.MaxRetries == nil {
		se.MaxRetries = intPtr(5)
	}
	if se.NumberOfShards <= 0 {
		se.NumberOfShards = 1
	}
	if se.NumberOfReplicas < 0 {
		se.NumberOfReplicas = 0
	}
	if se.TotalFieldsLimit <= 0 {
		se.TotalFieldsLimit = 2000
	}
	if se.MaxResultWindow <= 0 {
		se.MaxResultWindow = 500000
	}
	if se.MaxTermsBuckets <= 0 {
		se.MaxTermsBuckets = 16384
	}
	if se.ReadinessTimeout <= 0 {
		se.ReadinessTimeout = 30
	}

	if c.MetricsCache.TTLSec <= 0 {
		c.MetricsCache.TTLSec = 60
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	se := c.SearchEngine
	if se.Backend == "" {
		return fmt.Errorf("search_engine.backend is required")
	}
	if len(se.Hosts) == 0 {
		return fmt.Errorf("search_engine.hosts is required")
	}
	if se.MaxRetries != nil && *se.MaxRetries < 0 {
		return fmt.Errorf("search_engine.max_retries must not be negative, got %d", *se.MaxRetries)
	}
	if se.NumberOfReplicas < 0 {
		return fmt.Errorf("search_engine.number_of_replicas must not be negative, got %d", se.NumberOfReplicas)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within (0, 1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// EngineConfig converts the search_engine section into the engine config.
// Call after ApplyDefaults.
func (c *Config) EngineConfig() searchengine.Config {
	se := c.SearchEngine
	return searchengine.Config{
		Hosts:            se.Hosts,
		Username:         se.Username,
		Password:         se.Password,
		SSLVerify:        se.SSLVerify == nil || *se.SSLVerify,
		CAPath:           se.CAPath,
		RetryOnTimeout:   se.RetryOnTimeout == nil || *se.RetryOnTimeout,
		MaxRetries:       derefInt(se.MaxRetries, searchengine.DefaultMaxRetries),
		NumberOfShards:   se.NumberOfShards,
		NumberOfReplicas: se.NumberOfReplicas,
		TotalFieldsLimit: se.TotalFieldsLimit,
		MaxResultWindow:  se.MaxResultWindow,
		MaxTermsBuckets:  se.MaxTermsBuckets,
	}
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
