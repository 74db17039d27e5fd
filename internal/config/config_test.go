package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("RENDER_TIMEOUT", "45s")
	t.Setenv("ANNOTATION_COLOR", "00aa00")
	t.Setenv("MAX_UPLOAD_MB", "10")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 45*time.Second, cfg.Render.Timeout)
	assert.Equal(t, "00AA00", cfg.Annotation.Color)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.True(t, cfg.LedgerEnabled())
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "MINIO_ENDPOINT", "MINIO_BUCKET", "SMTP_USER", "MAX_UPLOAD_MB", "RENDER_BINARY"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, "soffice", cfg.Render.Binary)
	assert.Equal(t, "__WATERMARK_NAME__", cfg.Annotation.Marker)
	assert.Equal(t, 70.0, cfg.Annotation.BoxWidthMM)
	assert.Equal(t, 10.0, cfg.Annotation.BoxHeightMM)
	assert.Equal(t, 12.0, cfg.Annotation.MarginRightMM)
	assert.Equal(t, 10.0, cfg.Annotation.MarginBottomMM)
	assert.Equal(t, 12.0, cfg.Annotation.FontSizePt)
	assert.False(t, cfg.LedgerEnabled())
	assert.False(t, cfg.ArchivalEnabled())
	assert.False(t, cfg.NotifierEnabled())
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"

	t.Setenv(key, "2m")
	assert.Equal(t, 2*time.Minute, getEnvDuration(key, time.Second))

	t.Setenv(key, "30")
	assert.Equal(t, 30*time.Second, getEnvDuration(key, time.Second))

	t.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}

func TestGetEnvFloat(t *testing.T) {
	key := "TEST_FLOAT_VAR"

	t.Setenv(key, "12.5")
	assert.Equal(t, 12.5, getEnvFloat(key, 0))

	t.Setenv(key, "x")
	assert.Equal(t, 7.0, getEnvFloat(key, 7))
}
