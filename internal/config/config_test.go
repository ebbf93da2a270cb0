package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pottery-gallery-backend/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PUBLIC_BASE_URL", "https://images.example.com")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "supabase", cfg.StorageBackend)
	assert.Equal(t, "gallery", cfg.SupabaseBucket)
	assert.EqualValues(t, 25<<20, cfg.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
	assert.Equal(t, 15*time.Minute, cfg.OrphanGracePeriod)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_MissingPublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_SupabaseBackendRequiresCredentials(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://images.example.com")
	t.Setenv("STORAGE_BACKEND", "supabase")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_MinioBackend(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://images.example.com")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "minio", cfg.StorageBackend)
	assert.Equal(t, "localhost:9000", cfg.MinioEndpoint)
}

func TestLoad_UnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3-direct")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RECONCILE_INTERVAL", "30m")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.EqualValues(t, 1<<20, cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Minute, cfg.ReconcileInterval)
}
