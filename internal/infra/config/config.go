package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	Predictor    PredictorConfig    `yaml:"predictor"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Queue        QueueConfig        `yaml:"queue"`
	History      HistoryConfig      `yaml:"history"`
	Weather      WeatherConfig      `yaml:"weather"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AuthConfig holds the shared secret for farmer bearer tokens. An empty
// secret disables authentication and every request runs as "anonymous".
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// PredictorConfig points at the authoritative prediction server.
type PredictorConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// ConnectivityConfig drives the online/offline probe.
type ConnectivityConfig struct {
	ProbeURL     string        `yaml:"probeUrl"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
	ForceOffline bool          `yaml:"forceOffline"`
}

// QueueConfig selects and configures the sync queue snapshot store.
type QueueConfig struct {
	Backend          string            `yaml:"backend"`
	AutoSyncInterval time.Duration     `yaml:"autoSyncInterval"`
	Valkey           ValkeyConfig      `yaml:"valkey"`
	Object           ObjectStoreConfig `yaml:"object"`
}

// ValkeyConfig contains connection information for the Valkey snapshot store.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

// ObjectStoreConfig contains credentials for the S3-compatible snapshot store.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Key       string `yaml:"key"`
}

// HistoryConfig controls the prediction history repository.
type HistoryConfig struct {
	Limit    int            `yaml:"limit"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// WeatherConfig contains OpenWeather settings.
type WeatherConfig struct {
	APIBaseURL string        `yaml:"apiBaseUrl"`
	APIKey     string        `yaml:"apiKey"`
	CacheTTL   time.Duration `yaml:"cacheTtl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PREDICTOR_BASE_URL"); v != "" {
		cfg.Predictor.BaseURL = v
	}
	if v := os.Getenv("PREDICTOR_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Predictor.Timeout = parsed
		}
	}
	if v := os.Getenv("CONNECTIVITY_PROBE_URL"); v != "" {
		cfg.Connectivity.ProbeURL = v
	}
	if v := os.Getenv("CONNECTIVITY_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Connectivity.Timeout = parsed
		}
	}
	if v := os.Getenv("CONNECTIVITY_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Connectivity.CacheTTL = parsed
		}
	}
	if v := os.Getenv("CONNECTIVITY_FORCE_OFFLINE"); v != "" {
		cfg.Connectivity.ForceOffline = isTruthy(v)
	}
	if v := os.Getenv("QUEUE_BACKEND"); v != "" {
		cfg.Queue.Backend = v
	}
	if v := os.Getenv("QUEUE_AUTO_SYNC_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Queue.AutoSyncInterval = parsed
		}
	}
	if v := os.Getenv("QUEUE_VALKEY_ADDR"); v != "" {
		cfg.Queue.Valkey.Addr = v
	}
	if v := os.Getenv("QUEUE_VALKEY_KEY"); v != "" {
		cfg.Queue.Valkey.Key = v
	}
	if v := os.Getenv("QUEUE_OBJECT_ENDPOINT"); v != "" {
		cfg.Queue.Object.Endpoint = v
	}
	if v := os.Getenv("QUEUE_OBJECT_ACCESS_KEY"); v != "" {
		cfg.Queue.Object.AccessKey = v
	}
	if v := os.Getenv("QUEUE_OBJECT_SECRET_KEY"); v != "" {
		cfg.Queue.Object.SecretKey = v
	}
	if v := os.Getenv("QUEUE_OBJECT_BUCKET"); v != "" {
		cfg.Queue.Object.Bucket = v
	}
	if v := os.Getenv("QUEUE_OBJECT_REGION"); v != "" {
		cfg.Queue.Object.Region = v
	}
	if v := os.Getenv("QUEUE_OBJECT_KEY"); v != "" {
		cfg.Queue.Object.Key = v
	}
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Limit = parsed
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("WEATHER_API_BASE_URL"); v != "" {
		cfg.Weather.APIBaseURL = v
	}
	if v := os.Getenv("WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Weather.CacheTTL = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTruthy(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = isTruthy(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/predictions",
					"/api/v1/queue/sync",
				},
			},
		},
		Predictor: PredictorConfig{
			BaseURL: "http://localhost:9090",
			Timeout: 10 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			Timeout:  3 * time.Second,
			CacheTTL: 10 * time.Second,
		},
		Queue: QueueConfig{
			Backend:          "memory",
			AutoSyncInterval: time.Minute,
			Valkey: ValkeyConfig{
				Key: "syncqueue:snapshot",
			},
			Object: ObjectStoreConfig{
				Key: "syncqueue/snapshot.json",
			},
		},
		History: HistoryConfig{
			Limit: 20,
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
		},
		Weather: WeatherConfig{
			APIBaseURL: "https://api.openweathermap.org/data/2.5/weather",
			CacheTTL:   time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Predictor.BaseURL) == "" {
		return errors.New("predictor.baseUrl cannot be empty")
	}
	if c.Predictor.Timeout <= 0 {
		return errors.New("predictor.timeout must be positive")
	}
	if c.Connectivity.CacheTTL < 0 {
		return errors.New("connectivity.cacheTtl cannot be negative")
	}
	switch c.Queue.Backend {
	case "memory":
	case "valkey":
		if strings.TrimSpace(c.Queue.Valkey.Addr) == "" {
			return errors.New("queue.valkey.addr cannot be empty when the valkey backend is selected")
		}
	case "object":
		if strings.TrimSpace(c.Queue.Object.Endpoint) == "" {
			return errors.New("queue.object.endpoint cannot be empty when the object backend is selected")
		}
		if strings.TrimSpace(c.Queue.Object.Bucket) == "" {
			return errors.New("queue.object.bucket cannot be empty when the object backend is selected")
		}
	default:
		return fmt.Errorf("queue.backend must be one of memory, valkey, object, got %q", c.Queue.Backend)
	}
	if c.Queue.AutoSyncInterval < 0 {
		return errors.New("queue.autoSyncInterval cannot be negative")
	}
	if c.History.Limit <= 0 {
		return errors.New("history.limit must be positive")
	}
	if strings.TrimSpace(c.Weather.APIBaseURL) == "" {
		return errors.New("weather.apiBaseUrl cannot be empty")
	}
	if c.Weather.CacheTTL < 0 {
		return errors.New("weather.cacheTtl cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
