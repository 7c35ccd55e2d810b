package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "safedesk.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SAFEDESK_PORT")
	setString(&cfg.Server.CORSOrigin, "SAFEDESK_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SAFEDESK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SAFEDESK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SAFEDESK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SAFEDESK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SAFEDESK_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "SAFEDESK_MODEL")
	setDuration(&cfg.LiteLLM.Timeout, "SAFEDESK_LLM_TIMEOUT")
	setInt(&cfg.LiteLLM.MaxRetries, "SAFEDESK_LLM_MAX_RETRIES")
	setString(&cfg.Qdrant.URL, "QDRANT_URL")
	setString(&cfg.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&cfg.Qdrant.Collection, "QDRANT_COLLECTION")
	setDuration(&cfg.Qdrant.Timeout, "SAFEDESK_QDRANT_TIMEOUT")
	setString(&cfg.Tavily.APIKey, "TAVILY_API_KEY")
	setString(&cfg.Tavily.URL, "TAVILY_URL")
	setDuration(&cfg.Tavily.Timeout, "SAFEDESK_TAVILY_TIMEOUT")
	setString(&cfg.Logging.Level, "SAFEDESK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SAFEDESK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SAFEDESK_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "SAFEDESK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SAFEDESK_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "SAFEDESK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "SAFEDESK_RATE_BURST")
	setStrings(&cfg.Auth.KeyHashes, "SAFEDESK_API_KEY_HASHES")
	setInt64(&cfg.Cache.MaxCostBytes, "SAFEDESK_CACHE_MAX_COST")
	setDuration(&cfg.Cache.TTL, "SAFEDESK_CACHE_TTL")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setInt64(&cfg.Pipeline.MaxConcurrentTurns, "SAFEDESK_MAX_CONCURRENT_TURNS")
	setFloat64(&cfg.Pipeline.RouteConfidenceThreshold, "SAFEDESK_ROUTE_CONFIDENCE")
	setString(&cfg.Pipeline.Rubric, "SAFEDESK_RUBRIC")
	setString(&cfg.Pipeline.RubricDir, "SAFEDESK_RUBRIC_DIR")
	setInt(&cfg.Pipeline.HistoryTurns, "SAFEDESK_HISTORY_TURNS")
}

// validate rejects configurations that cannot run.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if cfg.LiteLLM.URL == "" {
		return errors.New("litellm url must not be empty")
	}
	if cfg.LiteLLM.Model == "" {
		return errors.New("litellm model must not be empty")
	}
	if cfg.Pipeline.RouteConfidenceThreshold < 0 || cfg.Pipeline.RouteConfidenceThreshold > 1 {
		return errors.New("route confidence threshold must be in [0,1]")
	}
	if cfg.Pipeline.MaxConcurrentTurns < 1 {
		return errors.New("max concurrent turns must be >= 1")
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, env string) {
	if v := os.Getenv(env); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
