// Package config loads process configuration from the environment and
// validates it before a component starts, grounded on
// original_source/agents/pydantic_ai/shared/protocols/env_loader.py (the
// project-root .env loading) and config_validator.py (the schema-validate-
// before-start pattern, simplified here to the env vars this core actually
// reads).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

// Config is the process-wide configuration resolved from the environment.
type Config struct {
	ProjectRoot       string
	LogLevel          string
	ModelServiceURL   string
	MonitorInterval   int
	RedisURL          string
	OTLPEndpoint      string
}

// LoadDotEnv loads projectRoot/.env into the process environment if the
// file exists. godotenv.Load is already a no-op when the path is absent,
// so this stays idempotent across repeated calls (mirrors
// env_loader.py's load_project_env).
func LoadDotEnv(projectRoot string) error {
	path := projectRoot + string(os.PathSeparator) + ".env"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return hiveerrors.New("config.LoadDotEnv", hiveerrors.KindProtocolViolation, "", err)
	}
	return nil
}

// FromEnv resolves a Config from the current environment, applying the
// same defaults the rest of the core uses (monitor interval 30s, etc.).
func FromEnv(projectRoot string) *Config {
	return &Config{
		ProjectRoot:     projectRoot,
		LogLevel:        getenvDefault("LOG_LEVEL", "INFO"),
		ModelServiceURL: getenvDefault("HIVEMIND_MODEL_SERVICE_URL", "http://localhost:8000"),
		MonitorInterval: getenvIntDefault("HIVEMIND_MONITOR_INTERVAL", 30),
		RedisURL:        os.Getenv("HIVEMIND_REDIS_URL"),
		OTLPEndpoint:    os.Getenv("HIVEMIND_OTLP_ENDPOINT"),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Component names Validate checks required env vars for (§9 "Config
// validation protocol").
const (
	ComponentOrchestrator = "orchestrator"
	ComponentWorker       = "worker"
	ComponentMonitor      = "monitor"
)

// requiredByComponent mirrors config_validator.py's per-schema required
// fields, narrowed to the env vars this core actually reads per
// component. The orchestrator and worker both need a reachable model
// service; the monitor needs neither.
var requiredByComponent = map[string][]string{
	ComponentOrchestrator: {"HIVEMIND_MODEL_SERVICE_URL"},
	ComponentWorker:       {"HIVEMIND_MODEL_SERVICE_URL"},
	ComponentMonitor:      {},
}

// Validate checks that every env var required_by_component is set,
// returning a ValidationError (§7) listing every missing var rather than
// failing on the first one, mirroring config_validator.py's
// accumulate-then-report style.
func Validate(component string) error {
	required, ok := requiredByComponent[component]
	if !ok {
		return hiveerrors.New("config.Validate", hiveerrors.KindValidation, component,
			fmt.Errorf("%w: unknown component %q", hiveerrors.ErrValidation, component))
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return hiveerrors.New("config.Validate", hiveerrors.KindValidation, component,
			fmt.Errorf("%w: missing required environment variables for %s: %v", hiveerrors.ErrValidation, component, missing))
	}
	return nil
}
