package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mls-property-api/internal/errs"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Search        SearchConfig        `yaml:"search"`
	MLS           MLSConfig           `yaml:"mls"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling"`
	Storage       StorageConfig       `yaml:"storage"`
	Images        ImagesConfig        `yaml:"images"`
	Redis         RedisConfig         `yaml:"redis"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Migration     MigrationConfig     `yaml:"migration"`
	Server        ServerConfig        `yaml:"server"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type         string         `yaml:"type"`
	URL          string         `yaml:"url"`
	MySQL        MySQLConfig    `yaml:"mysql"`
	Postgres     PostgresConfig `yaml:"postgres"`
	MaxOpenConns int            `yaml:"max_open_conns"`
	MaxIdleConns int            `yaml:"max_idle_conns"`
	LogSQL       bool           `yaml:"log_sql"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains keyword index settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings.
// An empty host disables the keyword mirror.
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// MLSConfig contains upstream feed settings
type MLSConfig struct {
	BaseURL           string `yaml:"base_url"`
	BearerToken       string `yaml:"bearer_token"`
	OriginatingSystem string `yaml:"originating_system"`
	PageSize          int    `yaml:"page_size"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	UserAgent         string `yaml:"user_agent"`
}

// RateLimitConfig contains outbound feed rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// ErrorHandlingConfig contains retry and circuit breaker settings
type ErrorHandlingConfig struct {
	RetryOnNetworkError bool `yaml:"retry_on_network_error"`
	RetryOn5xx          bool `yaml:"retry_on_5xx"`
	BreakerThreshold    int  `yaml:"breaker_threshold"`
	BreakerResetSeconds int  `yaml:"breaker_reset_seconds"`
}

// StorageConfig contains S3-compatible bucket settings (Cloudflare R2 by default)
type StorageConfig struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	CDNDomain       string `yaml:"cdn_domain"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// ImagesConfig contains optimizer, fetch and proxy settings
type ImagesConfig struct {
	MaxDimension        int    `yaml:"max_dimension"`
	WebPQuality         int    `yaml:"webp_quality"`
	CacheControl        string `yaml:"cache_control"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	FetchRetries        int    `yaml:"fetch_retries"`
	FetchRetryDelayMs   int    `yaml:"fetch_retry_delay_ms"`
	MaxSourceBytes      int64  `yaml:"max_source_bytes"`
	ProxyTimeoutSeconds int    `yaml:"proxy_timeout_seconds"`
	ProxyCacheTTLHours  int    `yaml:"proxy_cache_ttl_hours"`
	ProxyCacheMaxBytes  int    `yaml:"proxy_cache_max_bytes"`
}

// RedisConfig contains Redis settings. An empty URL keeps locks in-process
// and disables the proxy cache.
type RedisConfig struct {
	URL            string `yaml:"url"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// IngestConfig contains ingestion job settings
type IngestConfig struct {
	Concurrency     int    `yaml:"concurrency"`
	Limit           int    `yaml:"limit"`
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time"`
}

// MigrationConfig contains image migration job settings
type MigrationConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	Concurrency     int    `yaml:"concurrency"`
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:         "postgres",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{Index: "properties"},
		},
		MLS: MLSConfig{
			BaseURL:           "https://api-demo.mlsgrid.com/v2",
			OriginatingSystem: "nwmls",
			PageSize:          500,
			TimeoutSeconds:    60,
			MaxRetries:        3,
			RetryDelaySeconds: 2,
			UserAgent:         "mls-property-api/1.0",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			RequestsPerHour:   3600,
			RequestsPerDay:    40000,
		},
		ErrorHandling: ErrorHandlingConfig{
			RetryOnNetworkError: true,
			RetryOn5xx:          true,
			BreakerThreshold:    5,
			BreakerResetSeconds: 300,
		},
		Storage: StorageConfig{
			Bucket: "property-images",
			Region: "auto",
			UseSSL: true,
		},
		Images: ImagesConfig{
			MaxDimension:        2000,
			WebPQuality:         85,
			CacheControl:        "public, max-age=31536000",
			FetchTimeoutSeconds: 30,
			FetchRetries:        3,
			FetchRetryDelayMs:   500,
			MaxSourceBytes:      25 << 20,
			ProxyTimeoutSeconds: 15,
			ProxyCacheTTLHours:  24,
			ProxyCacheMaxBytes:  5 << 20,
		},
		Redis: RedisConfig{
			LockTTLSeconds: 600,
		},
		Ingest: IngestConfig{
			Concurrency:  4,
			DailyRunTime: "02:00",
		},
		Migration: MigrationConfig{
			BatchSize:    20,
			Concurrency:  4,
			DailyRunTime: "04:00",
		},
		Server: ServerConfig{
			Port:           "8084",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment overrides
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		switch {
		case os.IsNotExist(err):
			// defaults plus environment
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	config.ApplyEnv(os.Getenv)
	return config, nil
}

// ApplyEnv overrides file values with the deployment environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&c.Database.Type, "DB_TYPE")
	setString(&c.Database.URL, "DATABASE_URL")

	setString(&c.Search.Meilisearch.Host, "MEILISEARCH_HOST")
	setString(&c.Search.Meilisearch.APIKey, "MEILISEARCH_KEY")

	setString(&c.MLS.BaseURL, "MLS_API_URL")
	setString(&c.MLS.BearerToken, "MLS_BEARER_TOKEN")
	setString(&c.MLS.OriginatingSystem, "MLS_ORIGINATING_SYSTEM")
	setInt(&c.MLS.PageSize, "MLS_PAGE_SIZE")

	setString(&c.Storage.AccountID, "CLOUDFLARE_ACCOUNT_ID")
	setString(&c.Storage.AccessKeyID, "CLOUDFLARE_R2_ACCESS_KEY_ID")
	setString(&c.Storage.SecretAccessKey, "CLOUDFLARE_R2_SECRET_ACCESS_KEY")
	setString(&c.Storage.Bucket, "CLOUDFLARE_R2_BUCKET_NAME")
	setString(&c.Storage.CDNDomain, "CLOUDFLARE_R2_CDN_DOMAIN")
	setString(&c.Storage.Endpoint, "OBJECT_STORAGE_ENDPOINT")

	setString(&c.Redis.URL, "REDIS_URL")

	setInt(&c.Migration.BatchSize, "MIGRATION_BATCH_SIZE")
	setInt(&c.Ingest.Concurrency, "INGEST_CONCURRENCY")

	setString(&c.Server.Port, "PORT")
	if v := strings.TrimSpace(getenv("ALLOWED_ORIGINS")); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
}

// Validate checks the settings every process needs at startup.
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Type == "postgres" && c.Database.Postgres.Host == "" {
		return fmt.Errorf("database is not configured: set DATABASE_URL")
	}
	if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	return c.Storage.Validate()
}

// Validate reports every missing bucket setting at once.
func (s *StorageConfig) Validate() error {
	var missing []string
	if s.Endpoint == "" && s.AccountID == "" {
		missing = append(missing, "CLOUDFLARE_ACCOUNT_ID")
	}
	if s.AccessKeyID == "" {
		missing = append(missing, "CLOUDFLARE_R2_ACCESS_KEY_ID")
	}
	if s.SecretAccessKey == "" {
		missing = append(missing, "CLOUDFLARE_R2_SECRET_ACCESS_KEY")
	}
	if s.Bucket == "" {
		missing = append(missing, "CLOUDFLARE_R2_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return &errs.StorageConfigError{Missing: missing}
	}
	return nil
}

// DSN returns the connection string for the configured dialect.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Type == "mysql" {
		m := c.MySQL
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			m.User, m.Password, m.Host, m.Port, m.Database)
	}
	p := c.Postgres
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, sslMode)
}

// GetTimeout returns the feed request timeout as a duration
func (c *MLSConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the base backoff delay as a duration
func (c *MLSConfig) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// GetBreakerReset returns how long an open circuit stays open
func (c *ErrorHandlingConfig) GetBreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// GetFetchTimeout returns the media fetch timeout as a duration
func (c *ImagesConfig) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// GetFetchRetryDelay returns the media fetch backoff as a duration
func (c *ImagesConfig) GetFetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelayMs) * time.Millisecond
}

// GetProxyTimeout returns the gateway proxy timeout as a duration
func (c *ImagesConfig) GetProxyTimeout() time.Duration {
	return time.Duration(c.ProxyTimeoutSeconds) * time.Second
}

// GetProxyCacheTTL returns the proxy cache lifetime as a duration
func (c *ImagesConfig) GetProxyCacheTTL() time.Duration {
	return time.Duration(c.ProxyCacheTTLHours) * time.Hour
}

// GetLockTTL returns the per-property lock lifetime as a duration
func (c *RedisConfig) GetLockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
