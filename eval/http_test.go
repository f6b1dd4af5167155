package eval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPScorer_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{"score": 0.95}
		if len(req.Context) == 0 {
			resp = map[string]interface{}{"score": 0.2}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	scorer := &HTTPScorer{Endpoint: srv.URL}
	sample := Sample{Query: "q", Answer: "a", Context: []string{"ctx"}}

	score, err := scorer.Score(context.Background(), FeedbackGroundedness, sample)
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if score != 0.95 {
		t.Fatalf("unexpected score: %v", score)
	}

	score, err = scorer.Score(context.Background(), FeedbackAnswerRelevance, Sample{Query: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if score != 0.2 {
		t.Fatalf("unexpected score: %v", score)
	}
}

func TestHTTPScorer_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	scorer := &HTTPScorer{Endpoint: srv.URL}
	score, err := scorer.Score(context.Background(), FeedbackGroundedness, Sample{Query: "q"})
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
	if score != 0.5 {
		t.Fatalf("expected default score 0.5, got %v", score)
	}
}
