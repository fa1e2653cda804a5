// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and the environment, in that order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	HTTP     HTTPConfig     `yaml:"http"`
	Backend  BackendConfig  `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Session  SessionConfig  `yaml:"session"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Resolver ResolverConfig `yaml:"resolver"`
}

type HTTPConfig struct {
	Addr        string        `yaml:"addr"`
	CORSOrigins []string      `yaml:"cors_origins"`
	RateLimit   int           `yaml:"rate_limit"`
	RateWindow  time.Duration `yaml:"rate_window"`
}

type BackendConfig struct {
	// BaseURL of the hotel REST API. Empty runs against the in-memory demo backend.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	// Addr enables the Redis session store and lock. Empty keeps sessions in memory.
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Subject string `yaml:"subject"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	ReapInterval  time.Duration `yaml:"reap_interval"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	MaxOrderItems int           `yaml:"max_order_items"`
	ProcessConfig string        `yaml:"process_config"`
	ProcessGrace  time.Duration `yaml:"process_grace"`
	// EncryptionKey is a base64 AES-256 key sealing snapshots in Redis.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys still decrypt snapshots written before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys"`
}

// Keys decodes the snapshot encryption keys. A nil active key means
// snapshots are stored in clear.
func (c SessionConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	decode := func(name, v string) ([]byte, error) {
		k, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(k) != 32 {
			return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(k))
		}
		return k, nil
	}
	if active, err = decode("session.encryption_key", c.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, v := range c.FallbackKeys {
		k, err := decode(fmt.Sprintf("session.fallback_keys[%d]", i), v)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, k)
	}
	return active, fallback, nil
}

type CatalogConfig struct {
	MaxAge       time.Duration `yaml:"max_age"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type ResolverConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
			RateLimit:   120,
			RateWindow:  time.Minute,
		},
		Backend: BackendConfig{Timeout: 10 * time.Second},
		Redis:   RedisConfig{TTL: 2 * time.Hour, Prefix: "roomservice:session:"},
		NATS:    NATSConfig{Subject: "roomservice.orders.placed"},
		Tracing: TracingConfig{ServiceName: "roomservice", SampleRatio: 1},
		Session: SessionConfig{
			IdleTimeout:   5 * time.Minute,
			ReapInterval:  30 * time.Second,
			LockTTL:       30 * time.Second,
			MaxOrderItems: 20,
			ProcessGrace:  3 * time.Second,
		},
		Catalog:  CatalogConfig{FetchTimeout: 10 * time.Second},
		Resolver: ResolverConfig{Threshold: 0.7},
	}
}

// Load builds the configuration. path is an optional YAML file; envFile is an
// optional dotenv file whose variables never override the real environment.
// A missing envFile is ignored, a missing explicit path is an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateWindow <= 0 {
		errs = append(errs, errors.New("http.rate_window must be positive when rate limiting"))
	}
	if c.Resolver.Threshold <= 0 || c.Resolver.Threshold > 1 {
		errs = append(errs, fmt.Errorf("resolver.threshold must be in (0, 1], got %v", c.Resolver.Threshold))
	}
	if c.Session.MaxOrderItems < 1 {
		errs = append(errs, errors.New("session.max_order_items must be at least 1"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be in [0, 1]"))
	}
	if _, _, err := c.Session.Keys(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("ROOMSERVICE_LOG_LEVEL", &c.LogLevel)
	str("ROOMSERVICE_LOG_FORMAT", &c.LogFormat)

	str("ROOMSERVICE_HTTP_ADDR", &c.HTTP.Addr)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.HTTP.Addr = ":" + port
	}
	if v, ok := os.LookupEnv("ROOMSERVICE_CORS_ORIGINS"); ok {
		c.HTTP.CORSOrigins = splitList(v)
	}
	num("ROOMSERVICE_RATE_LIMIT", &c.HTTP.RateLimit)
	dur("ROOMSERVICE_RATE_WINDOW", &c.HTTP.RateWindow)

	str("API_BASE_URL", &c.Backend.BaseURL)
	dur("ROOMSERVICE_BACKEND_TIMEOUT", &c.Backend.Timeout)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	dur("ROOMSERVICE_SESSION_TTL", &c.Redis.TTL)

	str("NATS_URL", &c.NATS.URL)
	str("NATS_TOKEN", &c.NATS.Token)
	str("ROOMSERVICE_NATS_SUBJECT", &c.NATS.Subject)

	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	str("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)

	dur("ROOMSERVICE_IDLE_TIMEOUT", &c.Session.IdleTimeout)
	num("ROOMSERVICE_MAX_ORDER_ITEMS", &c.Session.MaxOrderItems)
	str("ROOMSERVICE_PROCESS_CONFIG", &c.Session.ProcessConfig)
	str("ROOMSERVICE_SESSION_KEY", &c.Session.EncryptionKey)
	if v, ok := os.LookupEnv("ROOMSERVICE_SESSION_FALLBACK_KEYS"); ok {
		c.Session.FallbackKeys = splitList(v)
	}

	dur("ROOMSERVICE_CATALOG_MAX_AGE", &c.Catalog.MaxAge)
	float("ROOMSERVICE_RESOLVER_THRESHOLD", &c.Resolver.Threshold)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
