package schema

import "time"

// Document is a retrieved chunk of source material.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Source    string                 `json:"source,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

// SearchResult pairs a document with its retrieval score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// SearchOptions controls a vector store search.
type SearchOptions struct {
	TopK      int
	Threshold float64
}

// Answer is a grounded completion with its supporting sources.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Sources extracts the deduplicated source list from results, preserving
// retrieval order. Results without a source are skipped.
func Sources(results []SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		src := r.Document.Source
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}
