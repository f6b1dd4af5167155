// Mock Cortex endpoints for local development: serves the search service
// query route and the inference completion route with canned data.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type searchReq struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

var corpus = []map[string]string{
	{"chunk": "Applications for housing benefits must be filed by April 15 each year.", "relative_path": "housing_benefits.pdf"},
	{"chunk": "Late benefit applications are rejected unless a hardship waiver is granted.", "relative_path": "housing_benefits.pdf"},
	{"chunk": "Unemployment insurance claims are processed within 21 days of filing.", "relative_path": "unemployment.pdf"},
	{"chunk": "Childcare subsidies cover up to 75 percent of licensed daycare costs.", "relative_path": "childcare.pdf"},
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > len(corpus) {
		limit = len(corpus)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"results": corpus[:limit]})
}

func handleComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	answer := "Based on the provided context, applications must be filed by April 15."
	if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "scale from 0 to 1") {
		answer = "0.9"
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": answer}}},
		"usage":   map[string]int{"prompt_tokens": 150, "completion_tokens": 20, "total_tokens": 170},
	})
}

func main() {
	addr := ":8090"
	if v := os.Getenv("CORTEX_MOCK_ADDR"); v != "" {
		addr = v
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/cortex/inference:complete", handleComplete)
	mux.HandleFunc("/api/v2/databases/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ":query") {
			handleSearch(w, r)
			return
		}
		http.NotFound(w, r)
	})
	log.Printf("Cortex mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
