package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/civicsense/civicsense/llm"
)

// MockLLMProvider is a mock implementation of llm.Provider for testing
type MockLLMProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *MockLLMProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockLLMProvider) ChatCompletion(ctx context.Context, messages []llm.ChatMessage) (*llm.ChatResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResult{Content: m.response}, nil
}

func (m *MockLLMProvider) GetProviderType() string {
	return "mock"
}

func TestLLMScorer_Score(t *testing.T) {
	tests := []struct {
		name          string
		feedback      string
		llmResponse   string
		expectedScore float64
	}{
		{
			name:          "High groundedness score",
			feedback:      FeedbackGroundedness,
			llmResponse:   "0.9",
			expectedScore: 0.9,
		},
		{
			name:          "Low context relevance score",
			feedback:      FeedbackContextRelevance,
			llmResponse:   "0.2",
			expectedScore: 0.2,
		},
		{
			name:          "Score with text prefix",
			feedback:      FeedbackAnswerRelevance,
			llmResponse:   "The relevance score is 0.85",
			expectedScore: 0.85,
		},
		{
			name:          "Invalid score returns default",
			feedback:      FeedbackGroundedness,
			llmResponse:   "invalid",
			expectedScore: 0.5,
		},
		{
			name:          "Score above one returns default",
			feedback:      FeedbackAnswerRelevance,
			llmResponse:   "7",
			expectedScore: 0.5,
		},
	}

	sample := Sample{
		Query:   "When is the next election?",
		Answer:  "The next general election is in November.",
		Context: []string{"General elections are held in November of even years."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &LLMScorer{Provider: &MockLLMProvider{response: tt.llmResponse}}

			score, err := scorer.Score(context.Background(), tt.feedback, sample)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if score != tt.expectedScore {
				t.Errorf("Expected score %f, got %f", tt.expectedScore, score)
			}
		})
	}
}

func TestLLMScorer_UnknownFeedback(t *testing.T) {
	scorer := &LLMScorer{Provider: &MockLLMProvider{response: "0.5"}}

	_, err := scorer.Score(context.Background(), "sentiment", Sample{Query: "q"})
	if err == nil {
		t.Error("Expected error for unknown feedback function")
	}
}

func TestLLMScorer_ProviderError(t *testing.T) {
	scorer := &LLMScorer{Provider: &MockLLMProvider{err: errors.New("upstream down")}}

	score, err := scorer.Score(context.Background(), FeedbackGroundedness, Sample{Query: "q", Answer: "a"})
	if err == nil {
		t.Error("Expected error from failing provider")
	}
	if score != 0.5 {
		t.Errorf("Expected default score 0.5, got %f", score)
	}
}

func TestBuildJudgePrompt_IncludesSampleFields(t *testing.T) {
	sample := Sample{
		Query:   "What is the filing deadline?",
		Answer:  "April 15.",
		Context: []string{"Ballot filings close April 15.", "Late filings are rejected."},
	}

	prompt, err := buildJudgePrompt(FeedbackGroundedness, sample)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(prompt, sample.Answer) {
		t.Error("Groundedness prompt should contain the answer")
	}
	if !strings.Contains(prompt, sample.Context[1]) {
		t.Error("Groundedness prompt should contain every context chunk")
	}
	if strings.Contains(prompt, sample.Query) {
		t.Error("Groundedness prompt should not contain the question")
	}

	prompt, err = buildJudgePrompt(FeedbackAnswerRelevance, sample)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(prompt, sample.Query) || !strings.Contains(prompt, sample.Answer) {
		t.Error("Answer relevance prompt should contain question and answer")
	}
}

func TestThresholds_Classify(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		score      float64
		expected   Verdict
	}{
		{name: "Correct at boundary", thresholds: Thresholds{Correct: 0.7, Incorrect: 0.3}, score: 0.7, expected: VerdictCorrect},
		{name: "Incorrect below boundary", thresholds: Thresholds{Correct: 0.7, Incorrect: 0.3}, score: 0.29, expected: VerdictIncorrect},
		{name: "Ambiguous in between", thresholds: Thresholds{Correct: 0.7, Incorrect: 0.3}, score: 0.5, expected: VerdictAmbiguous},
		{name: "Defaults apply when zero", thresholds: Thresholds{}, score: 0.8, expected: VerdictCorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.thresholds.Classify(tt.score); got != tt.expected {
				t.Errorf("Expected verdict %v, got %v", tt.expected, got)
			}
		})
	}
}
