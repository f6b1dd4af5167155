package eval

import "testing"

func TestCostEstimator_CountTokens(t *testing.T) {
	est := NewCostEstimator("mistral-large2")

	if got := est.CountTokens(""); got != 0 {
		t.Errorf("empty text should count 0 tokens, got %d", got)
	}
	if got := est.CountTokens("hi"); got < 1 {
		t.Errorf("non-empty text should count at least 1 token, got %d", got)
	}
	long := est.CountTokens("The quick brown fox jumps over the lazy dog.")
	short := est.CountTokens("fox")
	if long <= short {
		t.Errorf("longer text should count more tokens: %d <= %d", long, short)
	}
}

func TestCostEstimator_EstimateTokens(t *testing.T) {
	est := NewCostEstimator("mistral-large2")

	// 1M prompt tokens at $2.00 plus 1M completion tokens at $6.00
	if got := est.EstimateTokens(1_000_000, 1_000_000); got != 8.00 {
		t.Errorf("expected cost 8.00, got %f", got)
	}
	if got := est.EstimateTokens(0, 0); got != 0 {
		t.Errorf("expected zero cost, got %f", got)
	}
}

func TestCostEstimator_UnknownModelFallsBack(t *testing.T) {
	est := NewCostEstimator("some-new-model")

	want := modelPrices["default"]
	if got := est.EstimateTokens(1_000_000, 0); got != want.Prompt {
		t.Errorf("expected default prompt price %f, got %f", want.Prompt, got)
	}
}
