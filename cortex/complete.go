package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/civicsense/civicsense/common/httpx"
)

// CompleteClient calls the Cortex inference endpoint:
// POST {base}/api/v2/cortex/inference:complete
type CompleteClient struct {
	baseURL string
	token   string
	client  *httpx.Client
}

// Message is a single chat turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteRequest is the inference payload.
type CompleteRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// CompleteResponse mirrors the non-streaming inference response shape.
type CompleteResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewCompleteClient builds an inference client sharing connection settings
// with the search client.
func NewCompleteClient(baseURL, token string, client *httpx.Client) *CompleteClient {
	if client == nil {
		client = httpx.NewFromConfig(nil)
	}
	return &CompleteClient{baseURL: baseURL, token: token, client: client}
}

// Complete runs a non-streaming completion and returns the first choice with
// its token usage.
func (c *CompleteClient) Complete(ctx context.Context, req CompleteRequest) (string, Usage, error) {
	req.Stream = false
	bs, err := json.Marshal(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal complete request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/cortex/inference:complete", bytes.NewReader(bs))
	if err != nil {
		return "", Usage{}, fmt.Errorf("build complete request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", Usage{}, fmt.Errorf("cortex complete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, decodeAPIError("cortex complete", resp)
	}

	var cr CompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", Usage{}, fmt.Errorf("decode complete response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", cr.Usage, fmt.Errorf("cortex complete: empty choices")
	}
	return cr.Choices[0].Message.Content, cr.Usage, nil
}
