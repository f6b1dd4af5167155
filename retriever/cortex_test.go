package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/civicsense/civicsense/cortex"
)

type fakeSearchAPI struct {
	resp    *cortex.SearchResponse
	err     error
	lastReq cortex.SearchRequest
}

func (f *fakeSearchAPI) Search(ctx context.Context, req cortex.SearchRequest) (*cortex.SearchResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestCortexRetriever_Search(t *testing.T) {
	api := &fakeSearchAPI{resp: &cortex.SearchResponse{
		Results: []map[string]string{
			{"chunk": "first chunk", "relative_path": "a.pdf"},
			{"chunk": "second chunk", "relative_path": "b.pdf", "category": "housing"},
		},
	}}
	r := &CortexRetriever{Client: api, TopK: 4}

	results, err := r.Search(context.Background(), "deadline", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if api.lastReq.Limit != 4 {
		t.Errorf("expected default top_k 4, got %d", api.lastReq.Limit)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Document.Content != "first chunk" || results[0].Document.Source != "a.pdf" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	// rank-based scores stay descending
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f <= %f", results[0].Score, results[1].Score)
	}
	// extra columns land in metadata
	if got := results[1].Document.Metadata["category"]; got != "housing" {
		t.Errorf("metadata category = %v", got)
	}
}

func TestCortexRetriever_DefaultColumns(t *testing.T) {
	api := &fakeSearchAPI{resp: &cortex.SearchResponse{}}
	r := &CortexRetriever{Client: api}

	if _, err := r.Search(context.Background(), "q", 2); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(api.lastReq.Columns) != 2 || api.lastReq.Columns[0] != "chunk" {
		t.Errorf("unexpected columns %v", api.lastReq.Columns)
	}
}

func TestCortexRetriever_Error(t *testing.T) {
	api := &fakeSearchAPI{err: errors.New("service down")}
	r := &CortexRetriever{Client: api}

	if _, err := r.Search(context.Background(), "q", 2); err == nil {
		t.Fatal("expected error")
	}
}

func TestCortexRetriever_Empty(t *testing.T) {
	api := &fakeSearchAPI{resp: &cortex.SearchResponse{}}
	r := &CortexRetriever{Client: api}

	results, err := r.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
