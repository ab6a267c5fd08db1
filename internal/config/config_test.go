package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mls-property-api/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 2000, cfg.Images.MaxDimension)
	assert.Equal(t, 85, cfg.Images.WebPQuality)
	assert.Equal(t, 20, cfg.Migration.BatchSize)
	assert.Equal(t, "property-images", cfg.Storage.Bucket)
	assert.Equal(t, 24*time.Hour, cfg.Images.GetProxyCacheTTL())
	assert.Equal(t, 2*time.Second, cfg.MLS.GetRetryDelay())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MLS.PageSize)
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_TYPE", "")
	t.Setenv("MIGRATION_BATCH_SIZE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
database:
  type: mysql
  mysql:
    host: db
    port: 3306
    user: app
    password: secret
    database: listings
migration:
  batch_size: 50
images:
  max_dimension: 1600
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, 50, cfg.Migration.BatchSize)
	assert.Equal(t, 1600, cfg.Images.MaxDimension)
	// untouched keys keep their defaults
	assert.Equal(t, 85, cfg.Images.WebPQuality)
	assert.Equal(t, "app:secret@tcp(db:3306)/listings?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.DSN())
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: ["), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(envMap(map[string]string{
		"DATABASE_URL":                    "postgres://u:p@localhost:5432/mls",
		"CLOUDFLARE_ACCOUNT_ID":           "acct",
		"CLOUDFLARE_R2_ACCESS_KEY_ID":     "key",
		"CLOUDFLARE_R2_SECRET_ACCESS_KEY": "secret",
		"CLOUDFLARE_R2_BUCKET_NAME":       "photos",
		"CLOUDFLARE_R2_CDN_DOMAIN":        "cdn.example.com",
		"ALLOWED_ORIGINS":                 "https://a.example.com, https://b.example.com,",
		"MIGRATION_BATCH_SIZE":            "10",
		"PORT":                            "9000",
	}))

	assert.Equal(t, "postgres://u:p@localhost:5432/mls", cfg.Database.DSN())
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.Equal(t, "cdn.example.com", cfg.Storage.CDNDomain)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Migration.BatchSize)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsMissingStorage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.URL = "postgres://localhost/mls"
	cfg.Storage.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)

	var storageErr *errs.StorageConfigError
	require.True(t, errors.As(err, &storageErr))
	assert.ElementsMatch(t, []string{
		"CLOUDFLARE_ACCOUNT_ID",
		"CLOUDFLARE_R2_ACCESS_KEY_ID",
		"CLOUDFLARE_R2_SECRET_ACCESS_KEY",
		"CLOUDFLARE_R2_BUCKET_NAME",
	}, storageErr.Missing)
}

func TestValidateRequiresDatabase(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg.Database.URL = "postgres://localhost/mls"
	cfg.Database.Type = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database type")
}
