package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearHivemindEnv(t *testing.T) {
	t.Helper()
	vars := []string{"HIVEMIND_MODEL_SERVICE_URL", "HIVEMIND_MONITOR_INTERVAL", "HIVEMIND_REDIS_URL", "HIVEMIND_OTLP_ENDPOINT", "LOG_LEVEL"}
	saved := map[string]string{}
	for _, v := range vars {
		saved[v] = os.Getenv(v)
		os.Unsetenv(v)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	clearHivemindEnv(t)
	cfg := FromEnv("/tmp/project")
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8000", cfg.ModelServiceURL)
	assert.Equal(t, 30, cfg.MonitorInterval)
	assert.Empty(t, cfg.RedisURL)
}

func TestFromEnvHonorsOverrides(t *testing.T) {
	clearHivemindEnv(t)
	os.Setenv("HIVEMIND_MODEL_SERVICE_URL", "http://models.internal:9000")
	os.Setenv("HIVEMIND_MONITOR_INTERVAL", "45")
	os.Setenv("HIVEMIND_REDIS_URL", "redis://localhost:6379/0")

	cfg := FromEnv("/tmp/project")
	assert.Equal(t, "http://models.internal:9000", cfg.ModelServiceURL)
	assert.Equal(t, 45, cfg.MonitorInterval)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestValidateAccumulatesAllMissingVars(t *testing.T) {
	clearHivemindEnv(t)
	err := Validate(ComponentOrchestrator)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIVEMIND_MODEL_SERVICE_URL")
}

func TestValidatePassesWhenRequiredVarsSet(t *testing.T) {
	clearHivemindEnv(t)
	os.Setenv("HIVEMIND_MODEL_SERVICE_URL", "http://models.internal:9000")
	assert.NoError(t, Validate(ComponentOrchestrator))
}

func TestValidateMonitorHasNoRequiredVars(t *testing.T) {
	clearHivemindEnv(t)
	assert.NoError(t, Validate(ComponentMonitor))
}

func TestValidateUnknownComponentFails(t *testing.T) {
	err := Validate("not-a-real-component")
	assert.Error(t, err)
}

func TestLoadDotEnvIsNoopWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadDotEnv(dir))
}

func TestLoadDotEnvLoadsFileIntoEnvironment(t *testing.T) {
	clearHivemindEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HIVEMIND_MODEL_SERVICE_URL=http://from-dotenv:8000\n"), 0o644))

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "http://from-dotenv:8000", os.Getenv("HIVEMIND_MODEL_SERVICE_URL"))
}
