package eval

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/civicsense/civicsense/common/logger"
)

// ModelPrice holds per-million-token prices in USD.
type ModelPrice struct {
	Prompt     float64
	Completion float64
}

// Prices for the models the service talks to. Unknown models fall back
// to the "default" entry.
var modelPrices = map[string]ModelPrice{
	"mistral-large2":   {Prompt: 2.00, Completion: 6.00},
	"mistral-7b":       {Prompt: 0.12, Completion: 0.12},
	"llama3.1-70b":     {Prompt: 1.21, Completion: 1.21},
	"llama3.1-8b":      {Prompt: 0.19, Completion: 0.19},
	"gpt-4o":           {Prompt: 2.50, Completion: 10.00},
	"gpt-4o-mini":      {Prompt: 0.15, Completion: 0.60},
	"snowflake-arctic": {Prompt: 0.84, Completion: 0.84},
	"reka-flash":       {Prompt: 0.45, Completion: 0.45},
	"default":          {Prompt: 1.00, Completion: 3.00},
}

// CostEstimator counts tokens and prices a turn. Token counting uses
// tiktoken when the encoding is available and a bytes/4 heuristic when
// it is not (the encoder downloads its table on first use).
type CostEstimator struct {
	Model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewCostEstimator(model string) *CostEstimator {
	return &CostEstimator{Model: model}
}

func (c *CostEstimator) encoder() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warnf("eval: tiktoken unavailable, using heuristic token counts: %v", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

// CountTokens returns the token count for text.
func (c *CostEstimator) CountTokens(text string) int {
	if enc := c.encoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	// roughly 4 bytes per token for English text
	n := len(text) / 4
	if n == 0 && len(strings.TrimSpace(text)) > 0 {
		n = 1
	}
	return n
}

// Estimate prices a turn given the prompt and completion text. When the
// upstream reported exact token usage, use EstimateTokens instead.
func (c *CostEstimator) Estimate(prompt, completion string) (promptTokens, completionTokens int, cost float64) {
	promptTokens = c.CountTokens(prompt)
	completionTokens = c.CountTokens(completion)
	cost = c.EstimateTokens(promptTokens, completionTokens)
	return promptTokens, completionTokens, cost
}

// EstimateTokens prices a turn from token counts.
func (c *CostEstimator) EstimateTokens(promptTokens, completionTokens int) float64 {
	price, ok := modelPrices[strings.ToLower(c.Model)]
	if !ok {
		price = modelPrices["default"]
	}
	return float64(promptTokens)/1e6*price.Prompt + float64(completionTokens)/1e6*price.Completion
}
