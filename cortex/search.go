// Package cortex holds REST clients for the managed Cortex Search and
// Cortex inference services. Both speak JSON over HTTPS with bearer auth;
// neither endpoint is implemented here, only request/response shaping.
package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/civicsense/civicsense/common/httpx"
	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
)

// SearchClient queries a Cortex Search service:
// POST {base}/api/v2/databases/{db}/schemas/{schema}/cortex-search-services/{name}:query
type SearchClient struct {
	baseURL  string
	token    string
	database string
	schema   string
	service  string
	client   *httpx.Client
}

// SearchRequest is the query payload.
type SearchRequest struct {
	Query   string   `json:"query"`
	Columns []string `json:"columns,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// SearchResponse carries the raw result rows.
type SearchResponse struct {
	Results   []map[string]string `json:"results"`
	RequestID string              `json:"request_id,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewSearchClient builds a search client from config. The httpx client may be
// shared with other REST adapters.
func NewSearchClient(cfg *config.SearchConfig, client *httpx.Client) *SearchClient {
	if client == nil {
		client = httpx.NewFromConfig(nil)
	}
	return &SearchClient{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		database: cfg.Database,
		schema:   cfg.Schema,
		service:  cfg.Service,
		client:   client,
	}
}

func (c *SearchClient) queryURL() string {
	return fmt.Sprintf("%s/api/v2/databases/%s/schemas/%s/cortex-search-services/%s:query",
		c.baseURL, c.database, c.schema, c.service)
}

// Search issues a query and returns the result rows. An empty result set is
// not an error.
func (c *SearchClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	bs, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL(), bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cortex search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError("cortex search", resp)
	}

	var sr SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	logger.Debugf("cortex search: service=%s results=%d", c.service, len(sr.Results))
	return &sr, nil
}

func decodeAPIError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Message != "" {
		return fmt.Errorf("%s: http %d: %s", op, resp.StatusCode, ae.Message)
	}
	return fmt.Errorf("%s: http %d", op, resp.StatusCode)
}
