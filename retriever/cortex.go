package retriever

import (
	"context"
	"fmt"

	"github.com/civicsense/civicsense/cortex"
	"github.com/civicsense/civicsense/schema"
)

// Column names the search service is asked for. The chunk column carries the
// document text, the relative path identifies the source file.
const (
	columnChunk        = "chunk"
	columnRelativePath = "relative_path"
)

// SearchAPI is the subset of the Cortex search client the retriever uses.
type SearchAPI interface {
	Search(ctx context.Context, req cortex.SearchRequest) (*cortex.SearchResponse, error)
}

// CortexRetriever delegates retrieval to a managed Cortex Search service.
type CortexRetriever struct {
	Client  SearchAPI
	Columns []string
	TopK    int
}

func (r *CortexRetriever) Type() string { return "cortex" }

// Search queries the service and maps rows to search results. Rows keep their
// service ranking; the service reports no scores, so results carry rank-based
// descending scores to stay sortable alongside other retrievers.
func (r *CortexRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		if r.TopK > 0 {
			topK = r.TopK
		} else {
			topK = 4
		}
	}
	columns := r.Columns
	if len(columns) == 0 {
		columns = []string{columnChunk, columnRelativePath}
	}

	resp, err := r.Client.Search(ctx, cortex.SearchRequest{
		Query:   query,
		Columns: columns,
		Limit:   topK,
	})
	if err != nil {
		return nil, fmt.Errorf("cortex retrieve: %w", err)
	}

	out := make([]schema.SearchResult, 0, len(resp.Results))
	for i, row := range resp.Results {
		doc := schema.Document{
			ID:      fmt.Sprintf("%s#%d", row[columnRelativePath], i),
			Content: row[columnChunk],
			Source:  row[columnRelativePath],
		}
		if len(row) > 2 {
			doc.Metadata = make(map[string]interface{})
			for k, v := range row {
				if k != columnChunk && k != columnRelativePath {
					doc.Metadata[k] = v
				}
			}
		}
		out = append(out, schema.SearchResult{
			Document: doc,
			Score:    1.0 - float64(i)/float64(len(resp.Results)),
		})
	}
	return out, nil
}
