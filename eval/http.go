package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/civicsense/civicsense/common/httpx"
)

// HTTPScorer calls an external evaluation service.
// Request: {"name":"groundedness","query":"...","answer":"...","context":["..."]}
// Response: {"score":0.85}
type HTTPScorer struct {
	Endpoint string
	Client   *httpx.Client
}

type scoreReq struct {
	Name    string   `json:"name"`
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Context []string `json:"context,omitempty"`
}

type scoreResp struct {
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, name string, sample Sample) (float64, error) {
	if s.Client == nil {
		s.Client = httpx.NewFromConfig(nil)
	}
	bs, _ := json.Marshal(scoreReq{
		Name:    name,
		Query:   sample.Query,
		Answer:  sample.Answer,
		Context: sample.Context,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(bs))
	if err != nil {
		return 0.5, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return 0.5, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0.5, fmt.Errorf("evaluator http status %d", resp.StatusCode)
	}
	var sr scoreResp
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return 0.5, err
	}
	if sr.Score < 0 || sr.Score > 1 {
		return 0.5, fmt.Errorf("evaluator score %f outside [0,1]", sr.Score)
	}
	return sr.Score, nil
}
