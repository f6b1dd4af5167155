package civicsense

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicsense/civicsense/cache"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/eval"
	"github.com/civicsense/civicsense/llm"
	"github.com/civicsense/civicsense/schema"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []llm.ChatMessage) (*llm.ChatResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResult{Content: f.response, Usage: llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func (f *fakeProvider) GetProviderType() string { return "fake" }

type fakeRetriever struct {
	results []schema.SearchResult
	err     error
	lastK   int
	calls   int
}

func (f *fakeRetriever) Type() string { return "fake" }

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	f.calls++
	f.lastK = topK
	return f.results, f.err
}

func testAssistant(p llm.Provider, r *fakeRetriever) *Assistant {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	return &Assistant{
		cfg:       cfg,
		retriever: r,
		llm:       p,
		trend:     eval.NewTrendManager(5),
		cost:      eval.NewCostEstimator(cfg.LLM.Model),
		topKBoost: make(map[string]int),
	}
}

func docResult(content, source string) schema.SearchResult {
	return schema.SearchResult{Document: schema.Document{Content: content, Source: source}, Score: 1}
}

func TestCondenseQuestion(t *testing.T) {
	p := &fakeProvider{response: "What is the benefit filing deadline?"}
	a := testAssistant(p, &fakeRetriever{})

	// no history short-circuits without an LLM call
	if got := a.CondenseQuestion(context.Background(), "when?", nil); got != "when?" {
		t.Errorf("expected raw question, got %q", got)
	}
	if p.calls != 0 {
		t.Errorf("condense should not call the LLM without history")
	}

	history := []ChatMessage{{Role: "user", Content: "Tell me about benefits."}}
	if got := a.CondenseQuestion(context.Background(), "when?", history); got != p.response {
		t.Errorf("expected condensed question, got %q", got)
	}

	// provider failure falls back to the raw question
	a = testAssistant(&fakeProvider{err: errors.New("down")}, &fakeRetriever{})
	if got := a.CondenseQuestion(context.Background(), "when?", history); got != "when?" {
		t.Errorf("expected fallback to raw question, got %q", got)
	}
}

func TestGenerateAnswer_NoContext(t *testing.T) {
	p := &fakeProvider{response: "should not be called"}
	a := testAssistant(p, &fakeRetriever{})

	answer, usage, err := a.GenerateAnswer(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if answer.Text != NoContextAnswer {
		t.Errorf("expected no-context answer, got %q", answer.Text)
	}
	if usage.TotalTokens != 0 || p.calls != 0 {
		t.Error("no-context answer must not spend tokens")
	}
}

func TestGenerateAnswer_Sources(t *testing.T) {
	a := testAssistant(&fakeProvider{response: "April 15."}, &fakeRetriever{})
	results := []schema.SearchResult{
		docResult("Filings close April 15.", "deadlines.pdf"),
		docResult("Late filings rejected.", "deadlines.pdf"),
		docResult("Offices open at 9am.", "hours.pdf"),
	}

	answer, usage, err := a.GenerateAnswer(context.Background(), "when?", results)
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if answer.Text != "April 15." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if len(answer.Sources) != 2 || answer.Sources[0] != "deadlines.pdf" || answer.Sources[1] != "hours.pdf" {
		t.Errorf("sources should be deduplicated in retrieval order: %v", answer.Sources)
	}
	if usage.TotalTokens != 15 {
		t.Errorf("expected reported usage, got %+v", usage)
	}
}

func TestQuery_FullTurn(t *testing.T) {
	r := &fakeRetriever{results: []schema.SearchResult{docResult("ctx", "a.pdf")}}
	a := testAssistant(&fakeProvider{response: "the answer"}, r)

	res, err := a.Query(context.Background(), "s1", "question", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Answer.Text != "the answer" {
		t.Errorf("unexpected answer %q", res.Answer.Text)
	}
	if res.RecordID == "" {
		t.Error("turn should carry a record id")
	}
	if res.CostUSD <= 0 {
		t.Errorf("expected positive cost, got %f", res.CostUSD)
	}
	if r.lastK != a.cfg.Retriever.TopK {
		t.Errorf("expected default top_k %d, got %d", a.cfg.Retriever.TopK, r.lastK)
	}
}

func TestQuery_RetrieverError(t *testing.T) {
	r := &fakeRetriever{err: errors.New("search down")}
	a := testAssistant(&fakeProvider{response: "x"}, r)

	if _, err := a.Query(context.Background(), "s1", "q", nil); err == nil {
		t.Fatal("expected error when retrieval fails")
	}
}

func TestRetrieveContext_Cache(t *testing.T) {
	r := &fakeRetriever{results: []schema.SearchResult{docResult("ctx", "a.pdf")}}
	a := testAssistant(&fakeProvider{}, r)
	a.l1 = cache.NewLRU(8, time.Minute)

	if _, cached, err := a.RetrieveContext(context.Background(), "q", 4); err != nil || cached {
		t.Fatalf("first lookup: cached=%v err=%v", cached, err)
	}
	_, cached, err := a.RetrieveContext(context.Background(), "q", 4)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if !cached || r.calls != 1 {
		t.Errorf("expected cache hit (calls=%d cached=%v)", r.calls, cached)
	}

	// a different top_k is a different cache entry
	if _, cached, _ := a.RetrieveContext(context.Background(), "q", 8); cached {
		t.Error("different top_k must miss the cache")
	}
}

func TestAdjustRetrieval(t *testing.T) {
	a := testAssistant(&fakeProvider{}, &fakeRetriever{})
	base := a.cfg.Retriever.TopK

	a.trend.Record("s1", eval.VerdictIncorrect, 0.1)
	a.trend.Record("s1", eval.VerdictIncorrect, 0.2)
	a.adjustRetrieval("s1")
	if got := a.effectiveTopK("s1"); got != base+2 {
		t.Fatalf("expected widened top_k %d, got %d", base+2, got)
	}

	// cooldown blocks an immediate second bump
	a.trend.Record("s1", eval.VerdictIncorrect, 0.1)
	a.adjustRetrieval("s1")
	if got := a.effectiveTopK("s1"); got != base+2 {
		t.Fatalf("cooldown should hold top_k at %d, got %d", base+2, got)
	}

	// other sessions are unaffected
	if got := a.effectiveTopK("s2"); got != base {
		t.Errorf("expected base top_k %d for untouched session, got %d", base, got)
	}
}

func TestBuildAnswerPrompt(t *testing.T) {
	prompt := BuildAnswerPrompt("when?", []string{"chunk one", "chunk two"})
	if !strings.Contains(prompt, "chunk one") || !strings.Contains(prompt, "chunk two") {
		t.Error("prompt should include all context chunks")
	}
	if !strings.Contains(prompt, "when?") {
		t.Error("prompt should include the question")
	}
}
