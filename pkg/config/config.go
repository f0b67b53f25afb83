package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the proxy platform.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8800"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"API_BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                          // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// ForceHTTPSURLs makes share-link public URLs use https even when the
	// forwarded headers don't indicate TLS termination.
	ForceHTTPSURLs bool `yaml:"force_https_urls" env:"FORCE_HTTPS_URLS" env-default:"false"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Platform database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, enables proxy rate limiting)
	Redis RedisConfig `yaml:"redis"`

	// Proxy dispatch configuration
	Proxy ProxyConfig `yaml:"proxy"`

	// Credential encryption key for connector configs and credentials.
	// Should be a 32-byte key, base64 encoded: openssl rand -base64 32.
	// If unset, a key is generated and persisted to EncryptionKeyFile.
	CredentialsKey string `yaml:"-" env:"PROXY_CREDENTIALS_KEY"` // Secret - not in YAML

	// EncryptionKeyFile is the fallback key file path used when
	// PROXY_CREDENTIALS_KEY is not set.
	EncryptionKeyFile string `yaml:"encryption_key_file" env:"ENCRYPTION_KEY_FILE" env-default:".proxy_encryption_key"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether platform JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWTSecret is the HMAC secret shared with the platform auth service.
	JWTSecret string `yaml:"-" env:"PLATFORM_JWT_SECRET"` // Secret - not in YAML

	// Issuer is the expected iss claim on platform tokens.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:"aidatasharing"`
}

// DatabaseConfig holds platform PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"aidatasharing"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"aidatasharing"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds optional Redis configuration. An empty host disables
// Redis-backed features (proxy rate limiting).
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProxyConfig holds dispatch-path settings.
type ProxyConfig struct {
	// DispatchTimeoutSeconds bounds every executor call, SQL and HTTP alike.
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds" env:"PROXY_DISPATCH_TIMEOUT_SECONDS" env-default:"30"`

	// MaxConcurrentDispatches bounds in-flight downstream connections.
	// Requests beyond the bound wait; 0 disables the bound.
	MaxConcurrentDispatches int `yaml:"max_concurrent_dispatches" env:"PROXY_MAX_CONCURRENT_DISPATCHES" env-default:"64"`

	// DefaultLinkExpiryHours is applied when a share link is issued without
	// an explicit expiry. 0 means links never expire by default.
	DefaultLinkExpiryHours int `yaml:"default_link_expiry_hours" env:"PROXY_DEFAULT_LINK_EXPIRY_HOURS" env-default:"0"`

	// RateLimitPerMinute caps proxied requests per client IP when Redis is
	// configured. 0 disables rate limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" env:"PROXY_RATE_LIMIT_PER_MINUTE" env-default:"0"`

	// StandalonePorts maps backend types to dedicated listener ports for
	// the standalone proxy server (proxyd).
	StandalonePorts StandalonePortsConfig `yaml:"standalone_ports"`
}

// StandalonePortsConfig is the static per-backend port table for proxyd.
type StandalonePortsConfig struct {
	MySQL      int `yaml:"mysql" env:"PROXYD_PORT_MYSQL" env-default:"10101"`
	Postgres   int `yaml:"postgres" env:"PROXYD_PORT_POSTGRES" env-default:"10102"`
	API        int `yaml:"api" env:"PROXYD_PORT_API" env-default:"10103"`
	ClickHouse int `yaml:"clickhouse" env:"PROXYD_PORT_CLICKHOUSE" env-default:"10104"`
	MongoDB    int `yaml:"mongodb" env:"PROXYD_PORT_MONGODB" env-default:"10105"`
	S3         int `yaml:"s3" env:"PROXYD_PORT_S3" env-default:"10106"`
	Share      int `yaml:"share" env:"PROXYD_PORT_SHARE" env-default:"10107"`
}

// ByType returns the listener port for a backend type, or 0 if the type has
// no dedicated listener.
func (p *StandalonePortsConfig) ByType(connectorType string) int {
	switch connectorType {
	case "mysql":
		return p.MySQL
	case "postgres":
		return p.Postgres
	case "api":
		return p.API
	case "clickhouse":
		return p.ClickHouse
	case "mongodb":
		return p.MongoDB
	case "s3":
		return p.S3
	default:
		return 0
	}
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set.
	// Use HTTPS scheme if TLS is configured.
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" || cfg.ForceHTTPSURLs {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string for the platform
// database.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
