package retriever

import (
	"context"

	"github.com/civicsense/civicsense/schema"
)

// Retriever defines a unified search interface across different backends.
type Retriever interface {
	Type() string
	Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error)
}
