package llm

import (
	"context"
	"fmt"

	"github.com/civicsense/civicsense/common/httpx"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/cortex"
)

// CortexProvider answers through the Cortex inference REST endpoint.
type CortexProvider struct {
	client      *cortex.CompleteClient
	model       string
	temperature float64
	maxTokens   int
}

// NewCortexProvider builds a Cortex-backed provider. Connection settings fall
// back to the search config when the LLM config leaves them empty, so a single
// account token covers retrieval and inference.
func NewCortexProvider(cfg config.LLMConfig, search *config.SearchConfig, client *httpx.Client) (*CortexProvider, error) {
	baseURL := cfg.BaseURL
	token := cfg.APIKey
	if search != nil {
		if baseURL == "" {
			baseURL = search.BaseURL
		}
		if token == "" {
			token = search.Token
		}
	}
	if baseURL == "" {
		return nil, fmt.Errorf("cortex provider: base url is required")
	}
	return &CortexProvider{
		client:      cortex.NewCompleteClient(baseURL, token, client),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *CortexProvider) GetProviderType() string { return "cortex" }

func (p *CortexProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	res, err := p.ChatCompletion(ctx, []ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (p *CortexProvider) ChatCompletion(ctx context.Context, messages []ChatMessage) (*ChatResult, error) {
	msgs := make([]cortex.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, cortex.Message{Role: m.Role, Content: m.Content})
	}
	content, usage, err := p.client.Complete(ctx, cortex.CompleteRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &ChatResult{
		Content: content,
		Usage: TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	}, nil
}
