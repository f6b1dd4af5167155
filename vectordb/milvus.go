// Package vectordb provides the Milvus-backed vector store used by the
// optional vector retriever.
package vectordb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
	"github.com/civicsense/civicsense/schema"
)

// VectorStoreProvider is the surface the retriever needs from a vector store.
type VectorStoreProvider interface {
	SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	Close() error
}

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldSource   = "source"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
)

// MilvusStore implements VectorStoreProvider against a Milvus collection with
// the fixed field layout id/content/source/metadata/vector.
type MilvusStore struct {
	cli        client.Client
	collection string
	metricType entity.MetricType
}

// NewMilvusStore connects to Milvus and verifies the collection exists.
func NewMilvusStore(ctx context.Context, cfg *config.VectorDBConfig) (*MilvusStore, error) {
	cli, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	ok, err := cli.HasCollection(ctx, cfg.Collection)
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !ok {
		_ = cli.Close()
		return nil, fmt.Errorf("milvus collection %q does not exist", cfg.Collection)
	}
	if err := cli.LoadCollection(ctx, cfg.Collection, false); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("load collection: %w", err)
	}
	metric := entity.IP
	if cfg.MetricType != "" {
		metric = entity.MetricType(cfg.MetricType)
	}
	return &MilvusStore{cli: cli, collection: cfg.Collection, metricType: metric}, nil
}

// SearchDocs runs a vector similarity search and maps hits to search results.
// Hits below opts.Threshold are dropped.
func (s *MilvusStore) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	res, err := s.cli.Search(ctx, s.collection, nil, "",
		[]string{fieldID, fieldContent, fieldSource, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, s.metricType, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	out := make([]schema.SearchResult, 0, topK)
	for _, rs := range res {
		ids := columnStrings(rs.Fields.GetColumn(fieldID))
		contents := columnStrings(rs.Fields.GetColumn(fieldContent))
		sources := columnStrings(rs.Fields.GetColumn(fieldSource))
		metas := columnStrings(rs.Fields.GetColumn(fieldMetadata))
		for i := 0; i < rs.ResultCount; i++ {
			score := float64(rs.Scores[i])
			if threshold > 0 && score < threshold {
				continue
			}
			doc := schema.Document{
				ID:      at(ids, i),
				Content: at(contents, i),
				Source:  at(sources, i),
			}
			if raw := at(metas, i); raw != "" {
				var meta map[string]interface{}
				if err := json.Unmarshal([]byte(raw), &meta); err == nil {
					doc.Metadata = meta
				}
			}
			out = append(out, schema.SearchResult{Document: doc, Score: score})
		}
	}
	logger.Debugf("milvus search: collection=%s hits=%d", s.collection, len(out))
	return out, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() error {
	return s.cli.Close()
}

func columnStrings(col entity.Column) []string {
	if col == nil {
		return nil
	}
	n := col.Len()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := col.GetAsString(i)
		if err != nil {
			v = ""
		}
		out = append(out, v)
	}
	return out
}

func at(ss []string, i int) string {
	if i < 0 || i >= len(ss) {
		return ""
	}
	return ss[i]
}
