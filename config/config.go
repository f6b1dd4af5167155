package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the assistant and dashboard binaries.
type Config struct {
	App       AppConfig        `json:"app" yaml:"app"`
	Search    SearchConfig     `json:"search" yaml:"search"`
	LLM       LLMConfig        `json:"llm" yaml:"llm"`
	Judge     LLMConfig        `json:"judge" yaml:"judge"`
	Embedding EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig   `json:"vectordb" yaml:"vectordb"`
	Retriever RetrieverConfig  `json:"retriever" yaml:"retriever"`
	Eval      EvalConfig       `json:"eval" yaml:"eval"`
	Store     StoreConfig      `json:"store" yaml:"store"`
	Session   SessionConfig    `json:"session" yaml:"session"`
	Server    ServerConfig     `json:"server" yaml:"server"`
	Cache     CacheConfig      `json:"cache" yaml:"cache"`
	HTTP      HTTPClientConfig `json:"http" yaml:"http"`
	LogLevel  string           `json:"log_level" yaml:"log_level"`
}

// AppConfig identifies the application in interaction records.
type AppConfig struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// SearchConfig configures the managed Cortex Search service.
type SearchConfig struct {
	BaseURL  string   `json:"base_url" yaml:"base_url"`
	Token    string   `json:"token,omitempty" yaml:"token,omitempty"`
	TokenEnv string   `json:"token_env,omitempty" yaml:"token_env,omitempty"`
	Database string   `json:"database" yaml:"database"`
	Schema   string   `json:"schema" yaml:"schema"`
	Service  string   `json:"service" yaml:"service"`
	Columns  []string `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// LLMConfig defines configuration for a hosted LLM endpoint.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai, cortex
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv   string  `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines configuration for embedding models used by the
// optional vector retriever.
type EmbeddingConfig struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv  string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines configuration for the optional Milvus store.
type VectorDBConfig struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: milvus
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	MetricType string `json:"metric_type,omitempty" yaml:"metric_type,omitempty"`
}

// RetrieverConfig selects the retrieval backend and its limits.
type RetrieverConfig struct {
	Provider  string  `json:"provider" yaml:"provider"` // Available options: cortex, vector
	TopK      int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// EvalConfig configures interaction evaluation.
type EvalConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: llm, http
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"` // http provider only
	CorrectTh   float64 `json:"correct_threshold,omitempty" yaml:"correct_threshold,omitempty"`
	IncorrectTh float64 `json:"incorrect_threshold,omitempty" yaml:"incorrect_threshold,omitempty"`
	TimeoutMs   int     `json:"time_out_ms,omitempty" yaml:"time_out_ms,omitempty"`
}

// StoreConfig configures the metrics database.
type StoreConfig struct {
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	DSNEnv string `json:"dsn_env,omitempty" yaml:"dsn_env,omitempty"`
}

// SessionConfig configures chat session persistence.
type SessionConfig struct {
	Provider    string `json:"provider,omitempty" yaml:"provider,omitempty"` // Available options: memory, redis
	TTLSeconds  int    `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	MaxSessions int    `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty"`
	Redis       RedisConfig
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `json:"addr,omitempty" yaml:"addr,omitempty"`
	ReadTimeoutSec  int    `json:"read_timeout_sec,omitempty" yaml:"read_timeout_sec,omitempty"`
	WriteTimeoutSec int    `json:"write_timeout_sec,omitempty" yaml:"write_timeout_sec,omitempty"`
}

// CacheConfig configures the retrieval context cache.
type CacheConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	Capacity   int  `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// HTTPClientConfig tunes the outbound HTTP client.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "CivicSense",
			Version: "1.0.0",
		},
		Search: SearchConfig{
			TokenEnv: "CORTEX_SEARCH_TOKEN",
			Columns:  []string{"chunk", "relative_path"},
		},
		LLM: LLMConfig{
			Provider:    "cortex",
			Model:       "mistral-large2",
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Judge: LLMConfig{
			Provider: "cortex",
			Model:    "mistral-large2",
		},
		Retriever: RetrieverConfig{
			Provider: "cortex",
			TopK:     4,
		},
		Eval: EvalConfig{
			Enabled:     true,
			Provider:    "llm",
			CorrectTh:   0.7,
			IncorrectTh: 0.3,
			TimeoutMs:   30000,
		},
		Store: StoreConfig{
			DSNEnv: "CIVICSENSE_DB_DSN",
		},
		Session: SessionConfig{
			Provider:    "memory",
			TTLSeconds:  86400,
			MaxSessions: 1000,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 120,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Capacity:   512,
			TTLSeconds: 300,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config from path, layers it over defaults, resolves
// env-indirect secrets and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.resolveEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveEnv fills secret fields from their *_env indirections. A value set
// directly in the file wins over the environment.
func (c *Config) resolveEnv() {
	if c.Search.Token == "" && c.Search.TokenEnv != "" {
		c.Search.Token = os.Getenv(c.Search.TokenEnv)
	}
	if c.LLM.APIKey == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
	if c.Judge.APIKey == "" && c.Judge.APIKeyEnv != "" {
		c.Judge.APIKey = os.Getenv(c.Judge.APIKeyEnv)
	}
	if c.Embedding.APIKey == "" && c.Embedding.APIKeyEnv != "" {
		c.Embedding.APIKey = os.Getenv(c.Embedding.APIKeyEnv)
	}
	if c.Store.DSN == "" && c.Store.DSNEnv != "" {
		c.Store.DSN = os.Getenv(c.Store.DSNEnv)
	}
	// The judge shares the answering endpoint unless configured separately.
	if c.Judge.Provider == "" {
		c.Judge = c.LLM
	}
	if strings.EqualFold(c.Judge.Provider, c.LLM.Provider) && c.Judge.BaseURL == "" {
		c.Judge.BaseURL = c.LLM.BaseURL
		if c.Judge.APIKey == "" {
			c.Judge.APIKey = c.LLM.APIKey
		}
	}
}
