// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/artpar/documind/domain/quota"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCUMIND_"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Quota   QuotaConfig   `yaml:"quota"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	PDF     PDFConfig     `yaml:"pdf"`
	AI      AIConfig      `yaml:"ai"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TrustProxy     bool          `yaml:"trust_proxy"` // honor X-Forwarded-For / X-Real-IP
}

// QuotaConfig holds the daily limits per pool.
type QuotaConfig struct {
	GuestDaily int64 `yaml:"guest_daily"`
	UserDaily  int64 `yaml:"user_daily"`
	AIDaily    int64 `yaml:"ai_daily"`
}

// Limits converts the section to quota limits.
func (q QuotaConfig) Limits() quota.Limits {
	return quota.Limits{
		Guest:       q.GuestDaily,
		UserGeneral: q.UserDaily,
		UserAIChat:  q.AIDaily,
	}
}

// StoreConfig selects the usage log and chat history backend.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // "memory", "sqlite", "postgres" or "redis"
	DSN    string      `yaml:"dsn"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Retention time.Duration `yaml:"retention"` // 0 keeps events forever
}

// AuthConfig configures session token verification.
// With no secret every caller is a guest.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret,omitempty"`
	Audience  string `yaml:"audience,omitempty"`
}

// PDFConfig configures the PDF engine.
type PDFConfig struct {
	Engine      string         `yaml:"engine"` // "ilovepdf" or "local"
	ILovePDF    ILovePDFConfig `yaml:"ilovepdf"`
	MaxUploadMB int            `yaml:"max_upload_mb"`
}

// MaxFileBytes returns the per-file upload limit.
func (p PDFConfig) MaxFileBytes() int64 {
	return int64(p.MaxUploadMB) << 20
}

// ILovePDFConfig holds the remote PDF API credentials.
type ILovePDFConfig struct {
	PublicKey string        `yaml:"public_key"`
	SecretKey string        `yaml:"secret_key,omitempty"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AIConfig configures the language model.
type AIConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	Models  []string      `yaml:"models"` // tried in order
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	DOCUMIND_SERVER_HOST       - Server host (default: 0.0.0.0)
//	DOCUMIND_SERVER_PORT       - Server port (default: 8080)
//	DOCUMIND_TRUST_PROXY       - Honor forwarding headers (default: false)
//	DOCUMIND_QUOTA_GUEST       - Guest daily limit (default: 1)
//	DOCUMIND_QUOTA_USER        - User daily limit (default: 5)
//	DOCUMIND_QUOTA_AI          - User daily AI chat limit (default: 3)
//	DOCUMIND_STORE_DRIVER      - memory, sqlite, postgres or redis (default: sqlite)
//	DOCUMIND_STORE_DSN         - Database DSN (default: documind.db)
//	DOCUMIND_REDIS_ADDR        - Redis address
//	DOCUMIND_JWT_SECRET        - Session token secret
//	DOCUMIND_PDF_ENGINE        - ilovepdf or local (default: local)
//	DOCUMIND_ILOVEPDF_PUBLIC   - iLovePDF public key
//	DOCUMIND_ILOVEPDF_SECRET   - iLovePDF secret key
//	DOCUMIND_AI_API_KEY        - Gemini API key
//	DOCUMIND_AI_MODELS         - Comma separated model list
//	DOCUMIND_LOG_LEVEL         - Log level (default: info)
//	DOCUMIND_LOG_FORMAT        - json or console (default: json)
//	DOCUMIND_METRICS_ENABLED   - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	loadDotEnv()

	cfg := newConfig()
	return finish(&cfg)
}

// newConfig returns a Config seeded with the quota defaults. Zero is a valid
// limit, so each limit is defaulted before decoding and kept unless the file
// or environment sets it.
func newConfig() Config {
	d := quota.DefaultLimits()
	return Config{
		Quota: QuotaConfig{GuestDaily: d.Guest, UserDaily: d.UserGeneral, AIDaily: d.UserAIChat},
	}
}

// LoadWithFallback loads from path when the file exists and from the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from the working directory. Existing variables win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
}

// applyEnvOverrides applies DOCUMIND_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	envString("SERVER_HOST", &cfg.Server.Host)
	envInt("SERVER_PORT", &cfg.Server.Port)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	envBool("TRUST_PROXY", &cfg.Server.TrustProxy)

	// Quota configuration
	envInt64("QUOTA_GUEST", &cfg.Quota.GuestDaily)
	envInt64("QUOTA_USER", &cfg.Quota.UserDaily)
	envInt64("QUOTA_AI", &cfg.Quota.AIDaily)

	// Store configuration
	envString("STORE_DRIVER", &cfg.Store.Driver)
	envString("STORE_DSN", &cfg.Store.DSN)
	envString("REDIS_ADDR", &cfg.Store.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Store.Redis.Password)
	envInt("REDIS_DB", &cfg.Store.Redis.DB)
	envString("REDIS_KEY_PREFIX", &cfg.Store.Redis.KeyPrefix)
	envDuration("REDIS_RETENTION", &cfg.Store.Redis.Retention)

	// Auth configuration
	envString("JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("JWT_AUDIENCE", &cfg.Auth.Audience)

	// PDF configuration
	envString("PDF_ENGINE", &cfg.PDF.Engine)
	envInt("PDF_MAX_UPLOAD_MB", &cfg.PDF.MaxUploadMB)
	envString("ILOVEPDF_PUBLIC", &cfg.PDF.ILovePDF.PublicKey)
	envString("ILOVEPDF_SECRET", &cfg.PDF.ILovePDF.SecretKey)
	envString("ILOVEPDF_BASE_URL", &cfg.PDF.ILovePDF.BaseURL)
	envDuration("ILOVEPDF_TIMEOUT", &cfg.PDF.ILovePDF.Timeout)

	// AI configuration
	envString("AI_API_KEY", &cfg.AI.APIKey)
	envDuration("AI_TIMEOUT", &cfg.AI.Timeout)
	if v := os.Getenv(EnvPrefix + "AI_MODELS"); v != "" {
		cfg.AI.Models = splitList(v)
	}

	// Logging configuration
	envString("LOG_LEVEL", &cfg.Logging.Level)
	envString("LOG_FORMAT", &cfg.Logging.Format)

	// Metrics configuration
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("METRICS_PATH", &cfg.Metrics.Path)
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 150 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = "documind.db"
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = "documind"
	}

	if cfg.PDF.Engine == "" {
		cfg.PDF.Engine = "local"
	}
	if cfg.PDF.MaxUploadMB == 0 {
		cfg.PDF.MaxUploadMB = 20
	}
	if cfg.PDF.ILovePDF.BaseURL == "" {
		cfg.PDF.ILovePDF.BaseURL = "https://api.ilovepdf.com"
	}
	if cfg.PDF.ILovePDF.Timeout == 0 {
		cfg.PDF.ILovePDF.Timeout = 2 * time.Minute
	}

	if len(cfg.AI.Models) == 0 {
		cfg.AI.Models = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash", "gemini-1.5-flash"}
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Quota.GuestDaily < 0 || cfg.Quota.UserDaily < 0 || cfg.Quota.AIDaily < 0 {
		return fmt.Errorf("quota limits must not be negative")
	}

	switch cfg.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is %q", cfg.Store.Driver)
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required when store.driver is 'redis'")
		}
	default:
		return fmt.Errorf("store.driver must be one of: memory, sqlite, postgres, redis, got %q", cfg.Store.Driver)
	}

	switch cfg.PDF.Engine {
	case "local":
	case "ilovepdf":
		if cfg.PDF.ILovePDF.PublicKey == "" || cfg.PDF.ILovePDF.SecretKey == "" {
			return fmt.Errorf("pdf.ilovepdf.public_key and secret_key are required when pdf.engine is 'ilovepdf'")
		}
	default:
		return fmt.Errorf("pdf.engine must be 'ilovepdf' or 'local', got %q", cfg.PDF.Engine)
	}
	if cfg.PDF.MaxUploadMB < 0 {
		return fmt.Errorf("pdf.max_upload_mb must not be negative")
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
