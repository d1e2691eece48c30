package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromEnvFile(t *testing.T) {
	// t.Setenv вернет исходные значения после теста; godotenv не трогает уже заданные переменные
	for _, key := range []string{"STORAGE_DRIVER", "SHEET_TRANSPORT", "XLSX_DIR", "SYNC_WORKERS", "SYNC_ROW_TIMEOUT",
		"CORS_ALLOWED_ORIGINS", "RABBITMQ_ENABLED", "DATABASE_URL", "SYNC_RUN_TIMEOUT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"STORAGE_DRIVER=memory\n"+
			"SHEET_TRANSPORT=xlsx\n"+
			"XLSX_DIR=/tmp/sheets\n"+
			"SYNC_WORKERS=3\n"+
			"SYNC_ROW_TIMEOUT=2s\n"+
			"CORS_ALLOWED_ORIGINS=http://a.test, ,http://b.test\n"), 0o600))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, SheetTransportXLSX, cfg.Sheet.Transport)
	assert.Equal(t, "/tmp/sheets", cfg.Sheet.XLSXDir)
	assert.Equal(t, 3, cfg.Sync.Workers)
	assert.Equal(t, 2*time.Second, cfg.Sync.RowTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RunTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Rest.AllowedOrigins)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestAppConfig_Validate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Storage: StorageConfig{Driver: StorageDriverPostgres, DatabaseURL: "postgres://x"},
			Sheet:   SheetConfig{Transport: SheetTransportGoogle, CredentialsFile: "creds.json"},
			Sync:    SyncConfig{Workers: 1},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*AppConfig){
		"postgres without url":   func(c *AppConfig) { c.Storage.DatabaseURL = "" },
		"unknown driver":         func(c *AppConfig) { c.Storage.Driver = "sqlite" },
		"google without creds":   func(c *AppConfig) { c.Sheet.CredentialsFile = "" },
		"unknown transport":      func(c *AppConfig) { c.Sheet.Transport = "csv" },
		"rabbit enabled, no url": func(c *AppConfig) { c.RabbitMQ.Enabled = true },
		"zero workers":           func(c *AppConfig) { c.Sync.Workers = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-5s")

	assert.Equal(t, 7, getEnvAsInt("X_INT", 7))
	assert.True(t, getEnvAsBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvAsDuration("X_DUR", time.Second))
}
