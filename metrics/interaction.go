package metrics

import (
	"encoding/json"
	"time"

	"github.com/civicsense/civicsense/common/logger"
)

// InteractionMetrics captures one full chat turn for the metrics log.
type InteractionMetrics struct {
	QueryID   string    `json:"query_id"`
	SessionID string    `json:"session_id,omitempty"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`

	Condensed      bool  `json:"condensed"`
	RetrievedCount int   `json:"retrieved_count"`
	RetrievalMs    int64 `json:"retrieval_ms"`
	CacheHit       bool  `json:"cache_hit,omitempty"`

	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
	GenerationMs     int64   `json:"generation_ms"`

	Scores map[string]float64 `json:"scores,omitempty"`

	TotalMs  int64  `json:"total_ms"`
	Success  bool   `json:"success"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// NewInteractionMetrics starts a metrics record for a turn.
func NewInteractionMetrics(queryID, sessionID, query string) *InteractionMetrics {
	return &InteractionMetrics{
		QueryID:   queryID,
		SessionID: sessionID,
		Query:     query,
		Timestamp: time.Now(),
		Scores:    make(map[string]float64),
	}
}

// Log writes the record as a single JSON log line.
func (m *InteractionMetrics) Log() {
	if data, err := json.Marshal(m); err == nil {
		logger.Infof("[TURN_METRICS] %s", string(data))
	}
}
