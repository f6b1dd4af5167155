// Package llm abstracts the hosted completion endpoints the assistant calls.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicsense/civicsense/common/httpx"
	"github.com/civicsense/civicsense/config"
)

// ChatMessage is a provider-neutral chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports token consumption when the backend provides it. Zero
// values mean the backend did not report usage.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult is a completion with its usage accounting.
type ChatResult struct {
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
}

// Provider is implemented by every hosted LLM adapter.
type Provider interface {
	// GenerateCompletion answers a single prompt.
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
	// ChatCompletion answers a chat transcript and reports token usage.
	ChatCompletion(ctx context.Context, messages []ChatMessage) (*ChatResult, error)
	GetProviderType() string
}

// NewProvider builds a provider from config. The search config supplies
// connection defaults for the cortex provider, which shares the Cortex
// REST surface with the retriever.
func NewProvider(cfg config.LLMConfig, search *config.SearchConfig, client *httpx.Client) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "cortex":
		return NewCortexProvider(cfg, search, client)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
