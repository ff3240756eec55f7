// Package config loads console configuration from the environment, with an
// optional YAML file layered underneath.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full console configuration.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Media        MediaConfig        `yaml:"media"`
	Kafka        KafkaConfig        `yaml:"kafka"`
}

// ServiceConfig holds the console's own listener settings.
type ServiceConfig struct {
	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`
	LogLevel    string `yaml:"log_level"`
}

// OrchestratorConfig points at the call-orchestration backend.
type OrchestratorConfig struct {
	BaseURL string `yaml:"base_url"`

	// PollIntervalSeconds is the YAML-facing knob; PollInterval is derived.
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
}

// MediaConfig selects and tunes the media session source.
type MediaConfig struct {
	// Source is "bridge" for the platform's websocket event bridge, or
	// "mock" for a scripted call.
	Source string `yaml:"source"`
}

// KafkaConfig holds the transcript fan-out settings.
type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	TopicPartial string   `yaml:"topic_partial"`
	TopicFinal   string   `yaml:"topic_final"`
	Principal    string   `yaml:"principal"`
}

// Load builds the configuration: defaults, then the YAML file named by
// CALLWATCH_CONFIG (if any), then environment variables on top.
func Load() *Config {
	cfg := &Config{
		Service: ServiceConfig{
			HTTPPort:    "8080",
			MetricsPort: "9091",
			LogLevel:    "info",
		},
		Orchestrator: OrchestratorConfig{
			BaseURL:      "http://localhost:8000",
			PollInterval: 5 * time.Second,
		},
		Media: MediaConfig{
			Source: "bridge",
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			TopicPartial: "call.transcript.partial",
			TopicFinal:   "call.transcript.final",
			Principal:    "svc-callwatch",
		},
	}

	if path := os.Getenv("CALLWATCH_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			// A broken file falls back to defaults; env still applies.
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)
	cfg.Service.MetricsPort = envOrDefault("METRICS_PORT", cfg.Service.MetricsPort)
	cfg.Service.LogLevel = envOrDefault("LOG_LEVEL", cfg.Service.LogLevel)

	cfg.Orchestrator.BaseURL = envOrDefault("ORCHESTRATOR_URL", cfg.Orchestrator.BaseURL)
	if cfg.Orchestrator.PollIntervalSeconds > 0 {
		cfg.Orchestrator.PollInterval = time.Duration(cfg.Orchestrator.PollIntervalSeconds) * time.Second
	}
	cfg.Orchestrator.PollInterval = envDuration("ROOM_POLL_INTERVAL", cfg.Orchestrator.PollInterval)

	cfg.Media.Source = envOrDefault("MEDIA_SOURCE", cfg.Media.Source)

	cfg.Kafka.Enabled = envBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitAndTrim(v)
	}
	cfg.Kafka.TopicPartial = envOrDefault("KAFKA_TOPIC_PARTIAL", cfg.Kafka.TopicPartial)
	cfg.Kafka.TopicFinal = envOrDefault("KAFKA_TOPIC_FINAL", cfg.Kafka.TopicFinal)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
