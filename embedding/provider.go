// Package embedding adapts hosted embedding endpoints for the vector
// retriever.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/civicsense/civicsense/config"
)

// Provider produces a dense embedding for a text.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetProviderType() string
}

// NewProvider builds an embedding provider from config.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

type openAIProvider struct {
	client openai.Client
	model  string
}

func newOpenAIProvider(cfg config.EmbeddingConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedding provider: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &openAIProvider{client: openai.NewClient(opts...), model: model}, nil
}

func (p *openAIProvider) GetProviderType() string { return "openai" }

func (p *openAIProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}
	out := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
