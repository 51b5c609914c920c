package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Log          LogConfig          `koanf:"log"`
	DB           DBConfig           `koanf:"db"`
	LLM          LLMConfig          `koanf:"llm"`
	Memory       MemoryConfig       `koanf:"memory"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr        string   `koanf:"addr"`
	CORSOrigins []string `koanf:"cors_origins"`
	APIKey      string   `koanf:"api_key"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type LLMConfig struct {
	Provider        string  `koanf:"provider"` // auto, anthropic, gemini, mock
	Model           string  `koanf:"model"`
	AnthropicAPIKey string  `koanf:"anthropic_api_key"`
	GoogleAPIKey    string  `koanf:"google_api_key"`
	MaxTokens       int64   `koanf:"max_tokens"`
	Temperature     float64 `koanf:"temperature"`
}

type MemoryConfig struct {
	Enabled         bool    `koanf:"enabled"`
	QdrantAddr      string  `koanf:"qdrant_addr"`
	Collection      string  `koanf:"collection"`
	EmbedderBaseURL string  `koanf:"embedder_base_url"`
	EmbedderModel   string  `koanf:"embedder_model"`
	ScoreThreshold  float64 `koanf:"score_threshold"`
}

type OrchestratorConfig struct {
	MaxQueueSize   int           `koanf:"max_queue_size"`
	WorkerEnabled  bool          `koanf:"worker_enabled"`
	WorkerInterval time.Duration `koanf:"worker_interval"`
	TaskTimeout    time.Duration `koanf:"task_timeout"`
	TaskRetention  time.Duration `koanf:"task_retention"` // 0 keeps tasks forever
	HistoryLimit   int           `koanf:"history_limit"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	// Defaults
	k.Set("server.addr", ":8080")
	k.Set("server.cors_origins", []string{"http://localhost:3000"})
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("db.path", "./helios.db")
	k.Set("llm.provider", "auto")
	k.Set("llm.model", "")
	k.Set("llm.max_tokens", 2048)
	k.Set("llm.temperature", 0.7)

	k.Set("memory.enabled", false)
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "helios_business_memory")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")
	k.Set("memory.score_threshold", 0.6)

	k.Set("orchestrator.max_queue_size", 100)
	k.Set("orchestrator.worker_enabled", false)
	k.Set("orchestrator.worker_interval", "2s")
	k.Set("orchestrator.task_timeout", "120s")
	k.Set("orchestrator.task_retention", "0s")
	k.Set("orchestrator.history_limit", 10)

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_insecure", true)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (HELIOS_LLM_PROVIDER -> llm.provider)
	if err := k.Load(env.Provider("HELIOS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "HELIOS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
