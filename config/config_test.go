package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validBase() *Config {
	cfg := Default()
	cfg.Search.BaseURL = "https://account.snowflakecomputing.com"
	cfg.Search.Database = "civics"
	cfg.Search.Schema = "public"
	cfg.Search.Service = "policy_docs"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := validBase().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing search connection",
			mutate: func(c *Config) { c.Search.BaseURL = "" },
			want:   "search base_url",
		},
		{
			name: "vector retriever needs milvus",
			mutate: func(c *Config) {
				c.Retriever.Provider = "vector"
			},
			want: "vectordb address",
		},
		{
			name:   "unknown retriever",
			mutate: func(c *Config) { c.Retriever.Provider = "solr" },
			want:   "unknown retriever provider",
		},
		{
			name:   "openai needs api key",
			mutate: func(c *Config) { c.LLM.Provider = "openai"; c.LLM.APIKeyEnv = "" },
			want:   "api_key",
		},
		{
			name:   "missing model",
			mutate: func(c *Config) { c.LLM.Model = "" },
			want:   "model is required",
		},
		{
			name:   "http eval needs endpoint",
			mutate: func(c *Config) { c.Eval.Provider = "http" },
			want:   "eval endpoint",
		},
		{
			name:   "inverted eval thresholds",
			mutate: func(c *Config) { c.Eval.CorrectTh = 0.3; c.Eval.IncorrectTh = 0.7 },
			want:   "incorrect_threshold",
		},
		{
			name:   "redis session needs addr",
			mutate: func(c *Config) { c.Session.Provider = "redis" },
			want:   "redis addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
search:
  base_url: https://acct.snowflakecomputing.com
  database: civics
  schema: public
  service: policy_docs
retriever:
  top_k: 8
llm:
  model: llama3.1-70b
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retriever.TopK != 8 {
		t.Errorf("top_k = %d", cfg.Retriever.TopK)
	}
	if cfg.LLM.Model != "llama3.1-70b" {
		t.Errorf("model = %s", cfg.LLM.Model)
	}
	// defaults survive where the file is silent
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr default lost: %s", cfg.Server.Addr)
	}
	if cfg.App.Name != "CivicSense" {
		t.Errorf("app name default lost: %s", cfg.App.Name)
	}
}

func TestLoad_ResolvesEnvSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
search:
  base_url: https://acct.snowflakecomputing.com
  database: civics
  schema: public
  service: policy_docs
  token_env: TEST_CORTEX_TOKEN
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_CORTEX_TOKEN", "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Token != "secret-token" {
		t.Errorf("token not resolved from env: %q", cfg.Search.Token)
	}
	// the judge shares the answering endpoint by default
	if cfg.Judge.Provider != cfg.LLM.Provider {
		t.Errorf("judge provider should default to llm provider")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
