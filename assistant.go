// Package civicsense implements a policy chatbot that grounds hosted LLM
// answers in documents retrieved from a managed search service, and scores
// every answered turn with LLM-as-judge feedback functions.
package civicsense

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicsense/civicsense/cache"
	"github.com/civicsense/civicsense/common/httpx"
	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/cortex"
	"github.com/civicsense/civicsense/embedding"
	"github.com/civicsense/civicsense/eval"
	"github.com/civicsense/civicsense/llm"
	"github.com/civicsense/civicsense/metrics"
	"github.com/civicsense/civicsense/retriever"
	"github.com/civicsense/civicsense/schema"
	"github.com/civicsense/civicsense/store"
	"github.com/civicsense/civicsense/vectordb"
)

// TurnResult is one answered chat turn with its accounting.
type TurnResult struct {
	RecordID     string         `json:"record_id"`
	Answer       schema.Answer  `json:"answer"`
	Usage        llm.TokenUsage `json:"usage"`
	CostUSD      float64        `json:"cost_usd"`
	RetrievalMs  int64          `json:"retrieval_ms"`
	GenerationMs int64          `json:"generation_ms"`
	TotalMs      int64          `json:"total_ms"`
}

// Assistant runs the retrieve-then-generate pipeline and hands finished
// turns to the evaluator.
type Assistant struct {
	cfg        *config.Config
	retriever  retriever.Retriever
	llm        llm.Provider
	scorer     eval.Scorer
	thresholds eval.Thresholds
	trend      *eval.TrendManager
	cost       *eval.CostEstimator
	records    *store.Store
	l1         cache.Cache

	mu        sync.Mutex
	topKBoost map[string]int
}

// NewAssistant wires the pipeline from config. The record store is optional;
// without it turns are answered but not persisted.
func NewAssistant(cfg *config.Config, records *store.Store) (*Assistant, error) {
	a := &Assistant{
		cfg:        cfg,
		records:    records,
		thresholds: eval.Thresholds{Correct: cfg.Eval.CorrectTh, Incorrect: cfg.Eval.IncorrectTh},
		trend:      eval.NewTrendManager(5),
		cost:       eval.NewCostEstimator(cfg.LLM.Model),
		topKBoost:  make(map[string]int),
	}
	httpc := httpx.NewFromConfig(&cfg.HTTP)

	switch strings.ToLower(cfg.Retriever.Provider) {
	case "", "cortex":
		sc := cortex.NewSearchClient(&cfg.Search, httpc)
		a.retriever = &retriever.CortexRetriever{
			Client:  sc,
			Columns: cfg.Search.Columns,
			TopK:    cfg.Retriever.TopK,
		}
	case "vector":
		embed, err := embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("create embedding provider: %w", err)
		}
		vs, err := vectordb.NewMilvusStore(context.Background(), &cfg.VectorDB)
		if err != nil {
			return nil, fmt.Errorf("create vector store: %w", err)
		}
		a.retriever = &retriever.VectorRetriever{
			Embed:     embed,
			Store:     vs,
			TopK:      cfg.Retriever.TopK,
			Threshold: cfg.Retriever.Threshold,
		}
	default:
		return nil, fmt.Errorf("unknown retriever provider: %s", cfg.Retriever.Provider)
	}

	provider, err := llm.NewProvider(cfg.LLM, &cfg.Search, httpc)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	a.llm = provider

	if cfg.Eval.Enabled {
		switch strings.ToLower(cfg.Eval.Provider) {
		case "http":
			a.scorer = &eval.HTTPScorer{Endpoint: cfg.Eval.Endpoint, Client: httpc}
		default:
			judge, err := llm.NewProvider(cfg.Judge, &cfg.Search, httpc)
			if err != nil {
				return nil, fmt.Errorf("create judge provider: %w", err)
			}
			a.scorer = &eval.LLMScorer{Provider: judge}
		}
	}

	if cfg.Cache.Enabled {
		a.l1 = cache.NewLRU(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}
	return a, nil
}

// CondenseQuestion rewrites a follow-up question into a standalone one using
// the chat history. On LLM failure the original question is used as-is.
func (a *Assistant) CondenseQuestion(ctx context.Context, query string, history []ChatMessage) string {
	if len(history) == 0 {
		return query
	}
	resp, err := a.llm.GenerateCompletion(ctx, BuildCondensePrompt(query, history))
	if err != nil {
		logger.Warnf("assistant: condense failed, using raw question: %v", err)
		return query
	}
	standalone := strings.TrimSpace(resp)
	if standalone == "" {
		return query
	}
	logger.Debugf("assistant: standalone question: %s", standalone)
	return standalone
}

// RetrieveContext fetches the top-k chunks for a query, consulting the
// context cache first.
func (a *Assistant) RetrieveContext(ctx context.Context, query string, topK int) ([]schema.SearchResult, bool, error) {
	key := a.cacheKey(query, topK)
	if a.l1 != nil {
		if v, ok := a.l1.Get(key); ok {
			if results, ok := v.([]schema.SearchResult); ok {
				return results, true, nil
			}
		}
	}
	results, err := a.retriever.Search(ctx, query, topK)
	if err != nil {
		return nil, false, err
	}
	if a.l1 != nil {
		a.l1.Set(key, results)
	}
	return results, false, nil
}

// GenerateAnswer builds the grounded prompt and calls the LLM. Empty
// retrieval short-circuits to the no-context answer without an LLM call.
func (a *Assistant) GenerateAnswer(ctx context.Context, query string, results []schema.SearchResult) (schema.Answer, llm.TokenUsage, error) {
	if len(results) == 0 {
		return schema.Answer{Text: NoContextAnswer}, llm.TokenUsage{}, nil
	}
	contexts := make([]string, 0, len(results))
	for _, res := range results {
		contexts = append(contexts, strings.ReplaceAll(res.Document.Content, "\n", " "))
	}
	prompt := BuildAnswerPrompt(query, contexts)
	result, err := a.llm.ChatCompletion(ctx, []llm.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return schema.Answer{}, llm.TokenUsage{}, fmt.Errorf("generate completion: %w", err)
	}
	usage := result.Usage
	if usage.TotalTokens == 0 {
		usage.PromptTokens, usage.CompletionTokens, _ = a.cost.Estimate(prompt, result.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return schema.Answer{
		Text:    strings.TrimSpace(result.Content),
		Sources: schema.Sources(results),
	}, usage, nil
}

// Query answers one chat turn: condense, retrieve, generate, then evaluate
// and persist in the background.
func (a *Assistant) Query(ctx context.Context, sessionID, query string, history []ChatMessage) (*TurnResult, error) {
	start := time.Now()
	turn := metrics.NewInteractionMetrics(uuid.NewString(), sessionID, query)

	standalone := a.CondenseQuestion(ctx, query, history)
	turn.Condensed = standalone != query

	retrieveStart := time.Now()
	results, cached, err := a.RetrieveContext(ctx, standalone, a.effectiveTopK(sessionID))
	turn.RetrievalMs = time.Since(retrieveStart).Milliseconds()
	turn.CacheHit = cached
	metrics.ObserveStage(metrics.StageRetrieve, retrieveStart)
	if err != nil {
		turn.ErrorMsg = err.Error()
		turn.Log()
		metrics.IncTurn("error")
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	turn.RetrievedCount = len(results)
	metrics.ObserveRetrieval(len(results))

	generateStart := time.Now()
	answer, usage, err := a.GenerateAnswer(ctx, query, results)
	turn.GenerationMs = time.Since(generateStart).Milliseconds()
	metrics.ObserveStage(metrics.StageGenerate, generateStart)
	if err != nil {
		turn.ErrorMsg = err.Error()
		turn.Log()
		metrics.IncTurn("error")
		return nil, err
	}

	cost := a.cost.EstimateTokens(usage.PromptTokens, usage.CompletionTokens)
	metrics.AddUsage(usage.PromptTokens, usage.CompletionTokens, cost)
	metrics.ObserveStage(metrics.StageTotal, start)
	if len(results) == 0 {
		metrics.IncTurn("no_context")
	} else {
		metrics.IncTurn("ok")
	}

	res := &TurnResult{
		RecordID:     turn.QueryID,
		Answer:       answer,
		Usage:        usage,
		CostUSD:      cost,
		RetrievalMs:  turn.RetrievalMs,
		GenerationMs: turn.GenerationMs,
		TotalMs:      time.Since(start).Milliseconds(),
	}
	turn.Model = a.cfg.LLM.Model
	turn.PromptTokens = usage.PromptTokens
	turn.CompletionTokens = usage.CompletionTokens
	turn.CostUSD = cost
	turn.TotalMs = res.TotalMs
	turn.Success = true

	a.persistRecord(ctx, sessionID, query, res, results)

	if a.scorer != nil && len(results) > 0 {
		sample := eval.Sample{Query: standalone, Answer: answer.Text, Context: contextsOf(results)}
		go a.evaluateTurn(res.RecordID, sessionID, sample, turn)
	} else {
		turn.Log()
	}
	return res, nil
}

func contextsOf(results []schema.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Document.Content)
	}
	return out
}

func (a *Assistant) persistRecord(ctx context.Context, sessionID, query string, res *TurnResult, results []schema.SearchResult) {
	if a.records == nil {
		return
	}
	ctxJSON, _ := json.Marshal(contextsOf(results))
	srcJSON, _ := json.Marshal(res.Answer.Sources)
	rec := &store.InteractionRecord{
		ID:               res.RecordID,
		SessionID:        sessionID,
		Query:            query,
		Answer:           res.Answer.Text,
		Context:          string(ctxJSON),
		Sources:          string(srcJSON),
		Model:            a.cfg.LLM.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		CostUSD:          res.CostUSD,
		RetrievalMs:      res.RetrievalMs,
		GenerationMs:     res.GenerationMs,
		TotalMs:          res.TotalMs,
	}
	if err := a.records.SaveRecord(ctx, rec); err != nil {
		logger.Errorf("assistant: persist record: %v", err)
	}
}

// evaluateTurn scores a finished turn in the background and feeds the
// verdicts back into retrieval sizing.
func (a *Assistant) evaluateTurn(recordID, sessionID string, sample eval.Sample, turn *metrics.InteractionMetrics) {
	timeout := time.Duration(a.cfg.Eval.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	evalStart := time.Now()
	feedback := make([]store.FeedbackResult, 0, len(eval.AllFeedbacks))
	for _, name := range eval.AllFeedbacks {
		score, err := a.scorer.Score(ctx, name, sample)
		if err != nil {
			logger.Warnf("assistant: %s scoring failed for %s: %v", name, recordID, err)
			continue
		}
		verdict := a.thresholds.Classify(score)
		metrics.ObserveFeedback(name, score, verdict.String())
		turn.Scores[name] = score
		feedback = append(feedback, store.FeedbackResult{
			RecordID: recordID,
			Name:     name,
			Score:    score,
			Verdict:  verdict.String(),
		})
		if name == eval.FeedbackGroundedness {
			a.trend.Record(sessionID, verdict, score)
		}
	}
	metrics.ObserveStage(metrics.StageEvaluate, evalStart)
	turn.Log()

	if a.records != nil {
		if err := a.records.SaveFeedback(ctx, feedback); err != nil {
			logger.Errorf("assistant: persist feedback: %v", err)
		}
	}
	a.adjustRetrieval(sessionID)
}

// adjustRetrieval widens top-k for a session after repeated ungrounded
// answers, with a cooldown so one bad streak only bumps once.
func (a *Assistant) adjustRetrieval(sessionID string) {
	trend := a.trend.GetTrend(sessionID)
	if trend.ConsecutiveIncorrect < 2 {
		return
	}
	if a.trend.InCooldown(sessionID, 5*time.Minute) {
		return
	}
	base := a.cfg.Retriever.TopK
	if base <= 0 {
		base = 4
	}
	a.mu.Lock()
	boost := a.topKBoost[sessionID]
	if base+boost < base*2 {
		a.topKBoost[sessionID] = boost + 2
		logger.Infof("assistant: widening retrieval for session %s to top_k=%d", sessionID, base+boost+2)
	}
	a.mu.Unlock()
	a.trend.MarkAdjustment(sessionID)
}

func (a *Assistant) effectiveTopK(sessionID string) int {
	base := a.cfg.Retriever.TopK
	if base <= 0 {
		base = 4
	}
	a.mu.Lock()
	boost := a.topKBoost[sessionID]
	a.mu.Unlock()
	return base + boost
}

func (a *Assistant) cacheKey(query string, topK int) string {
	h := sha1.Sum([]byte(query + "|" + strconv.Itoa(topK)))
	return hex.EncodeToString(h[:])
}
