package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/linkedai/internal/ai"
	"github.com/spigell/linkedai/internal/jobs"
	"go.uber.org/zap"
)

// Index is the nearest-neighbour backend the searcher queries.
type Index interface {
	VerifyCollection(ctx context.Context) error
	Search(ctx context.Context, vector []float32, limit int) ([]*jobs.Posting, error)
}

// Searcher answers free text job queries against the vector index.
type Searcher struct {
	embedder ai.Embedder
	index    Index
	logger   *zap.Logger
}

// New verifies the index is reachable before returning the searcher.
func New(ctx context.Context, embedder ai.Embedder, index Index, logger *zap.Logger) (*Searcher, error) {
	if err := index.VerifyCollection(ctx); err != nil {
		return nil, fmt.Errorf("job index is not available: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Searcher{embedder: embedder, index: index, logger: logger}, nil
}

// Search returns up to n postings for the query in relevance order.
func (s *Searcher) Search(ctx context.Context, query string, n int) (*jobs.SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if n <= 0 {
		return nil, fmt.Errorf("n_results must be positive, got %d", n)
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	postings, err := s.index.Search(ctx, vectors[0], n)
	if err != nil {
		return nil, err
	}

	s.logger.Info("searched jobs", zap.String("query", query), zap.Int("requested", n), zap.Int("found", len(postings)))

	return jobs.NewSearchResults(postings...), nil
}
