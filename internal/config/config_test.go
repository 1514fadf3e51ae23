package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "test_", cfg.TablePrefix)
	assert.Equal(t, "postgres", cfg.Store)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.Debug)
	assert.Equal(t, time.Duration(0), cfg.FirstSnapshotTimeout)
	assert.Equal(t, "https://example.supabase.co/auth/v1/.well-known/jwks.json", cfg.SupabaseJWKSURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloudfiles.yaml")
	content := []byte(`
port: "9000"
store: memory
blob_dir: /var/lib/cloudfiles
first_snapshot_timeout: 15s
orphan_sweep_schedule: "@hourly"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "/var/lib/cloudfiles", cfg.BlobDir)
	assert.Equal(t, 15*time.Second, cfg.FirstSnapshotTimeout)
	assert.Equal(t, "@hourly", cfg.OrphanSweepSchedule)
	assert.Equal(t, "dev_", cfg.TablePrefix)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad bool", key: "AUTO_MIGRATE", value: "sometimes"},
		{name: "bad int", key: "MAX_UPLOAD_BYTES", value: "lots"},
		{name: "bad duration", key: "LIVE_FIRST_SNAPSHOT_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsDevUserInProd(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("DEV_USER_ID", "someone")

	_, err := Load()
	assert.Error(t, err)
}

func TestSetupLogFileKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cloudfiles-2024-01-01T00-00-00.log", "cloudfiles-2024-01-02T00-00-00.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "cloudfiles-*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.NotContains(t, files, filepath.Join(dir, "cloudfiles-2024-01-01T00-00-00.log"))
}
