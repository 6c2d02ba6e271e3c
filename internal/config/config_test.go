package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"textlens/internal/config"
)

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("ANALYTICS_ENDPOINT=http://from-file:9000")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "http://from-file:9000", cfg.AnalyticsEndpoint)
}

func TestLoadConfig_PollingDefaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, 30, cfg.MaxPollTries)
	assert.Equal(t, time.Second, cfg.PollDelay())

	schedule, err := cfg.BackoffSchedule()
	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, schedule)
}

func TestLoadConfig_CustomBackoffSchedule(t *testing.T) {
	os.Setenv("BACKOFF_SCHEDULE_MS", "100, 250,500")
	defer os.Unsetenv("BACKOFF_SCHEDULE_MS")

	cfg, err := config.Load()
	assert.NoError(t, err)

	schedule, err := cfg.BackoffSchedule()
	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond}, schedule)
}

func TestLoadConfig_Toggles(t *testing.T) {
	os.Setenv("ENABLE_API", "false")
	os.Setenv("ENABLE_INDEX_WORKER", "false")
	os.Setenv("ANALYSIS_CONCURRENCY", "10")
	defer os.Unsetenv("ENABLE_API")
	defer os.Unsetenv("ENABLE_INDEX_WORKER")
	defer os.Unsetenv("ANALYSIS_CONCURRENCY")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.False(t, cfg.EnableAPI)
	assert.False(t, cfg.EnableIndexWorker)
	assert.Equal(t, 10, cfg.AnalysisConcurrency)
}
