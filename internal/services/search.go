package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/luftkuhl/ninethree-backend/internal/platform/huggingface"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/pinecone"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

const defaultTopK = 15

// SearchService embeds a query and retrieves the most relevant knowledge
// chunks from the vector index. The index host and dimension are resolved
// once, on first use, and every embedding is checked against the index
// dimension before querying.
type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]types.Passage, error)
	Stats(ctx context.Context) (*pinecone.IndexStats, error)
}

type searchService struct {
	log      *logger.Logger
	embedder huggingface.Client
	index    pinecone.Client
	idxName  string

	connectOnce sync.Once
	connectErr  error
	host        string
	dimension   int
}

func NewSearchService(log *logger.Logger, embedder huggingface.Client, index pinecone.Client, indexName string) SearchService {
	if indexName == "" {
		indexName = "porsche-993"
	}
	return &searchService{
		log:      log.With("service", "SearchService", "index", indexName),
		embedder: embedder,
		index:    index,
		idxName:  indexName,
	}
}

func (s *searchService) connect(ctx context.Context) error {
	s.connectOnce.Do(func() {
		desc, err := s.index.DescribeIndex(ctx, s.idxName)
		if err != nil {
			s.connectErr = fmt.Errorf("describe index %q: %w", s.idxName, err)
			return
		}
		if desc.Host == "" {
			s.connectErr = fmt.Errorf("index %q has no host", s.idxName)
			return
		}
		s.host = desc.Host
		s.dimension = desc.Dimension
		s.log.Info("vector index resolved",
			"host", desc.Host,
			"dimension", desc.Dimension,
			"metric", desc.Metric,
		)
	})
	return s.connectErr
}

func (s *searchService) Search(ctx context.Context, query string, topK int) ([]types.Passage, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if s.dimension > 0 && len(vec) != s.dimension {
		return nil, fmt.Errorf(
			"embedding dimension %d does not match index dimension %d (model %s)",
			len(vec), s.dimension, s.embedder.Model(),
		)
	}

	resp, err := s.index.Query(ctx, s.host, pinecone.QueryRequest{
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	passages := make([]types.Passage, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		passages = append(passages, types.Passage{
			Text:        metaString(m.Metadata, "text"),
			Source:      metaString(m.Metadata, "source"),
			URL:         metaString(m.Metadata, "url"),
			Title:       metaString(m.Metadata, "title"),
			ContentType: metaString(m.Metadata, "content_type"),
			Relevance:   m.Score,
		})
	}
	return passages, nil
}

func (s *searchService) Stats(ctx context.Context) (*pinecone.IndexStats, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s.index.DescribeIndexStats(ctx, s.host)
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
