package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/linkedai/internal/ai"
	"github.com/spigell/linkedai/internal/jobs"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Config contains settings consumed by the filters and the indexer.
type Config struct {
	BatchSize        int
	ExcludeCompanies []string
	ExcludeFile      string
	Recreate         bool
}

// Store is the vector store the postings are written to.
type Store interface {
	EnsureCollection(ctx context.Context, dimension int, recreate bool) error
	Upsert(ctx context.Context, postings []*jobs.Posting, vectors [][]float32) error
}

// Report summarizes an indexing run.
type Report struct {
	Loaded  int
	Indexed int
	Batches int
}

// Indexer embeds job postings and stores them in the vector store.
type Indexer struct {
	embedder ai.Embedder
	store    Store
	filters  []Filter
	cfg      Config
	logger   *zap.Logger
}

func NewIndexer(embedder ai.Embedder, store Store, filters []Filter, cfg Config, logger *zap.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{embedder: embedder, store: store, filters: filters, cfg: cfg, logger: logger}
}

// Index filters the postings, embeds title and description in batches and upserts them.
// The collection is created on the first batch, sized by the embedding dimension.
func (i *Indexer) Index(ctx context.Context, postings []*jobs.Posting) (Report, error) {
	report := Report{Loaded: len(postings)}

	results, err := RunFilters(ctx, &i.cfg, i.logger, i.filters, jobs.NewSearchResults(postings...))
	if err != nil {
		return report, fmt.Errorf("filter postings: %w", err)
	}

	if results.Len() == 0 {
		i.logger.Warn("nothing to index")
		return report, nil
	}

	ensured := false
	for start := 0; start < results.Len(); start += i.cfg.BatchSize {
		end := min(start+i.cfg.BatchSize, results.Len())
		batch := results.Jobs[start:end]

		documents := make([]string, 0, len(batch))
		for _, posting := range batch {
			documents = append(documents, posting.Document())
		}

		i.logger.Info("embedding job descriptions", zap.Int("from", start), zap.Int("to", end))

		vectors, err := i.embedder.Embed(ctx, documents)
		if err != nil {
			return report, fmt.Errorf("embed batch %d: %w", report.Batches+1, err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return report, errors.New("embedder returned empty vectors")
		}

		if !ensured {
			if err := i.store.EnsureCollection(ctx, len(vectors[0]), i.cfg.Recreate); err != nil {
				return report, err
			}
			ensured = true
		}

		if err := i.store.Upsert(ctx, batch, vectors); err != nil {
			return report, fmt.Errorf("store batch %d: %w", report.Batches+1, err)
		}

		report.Batches++
		report.Indexed += len(batch)
	}

	i.logger.Info("indexing completed",
		zap.Int("loaded", report.Loaded),
		zap.Int("indexed", report.Indexed),
		zap.Int("batches", report.Batches),
	)

	return report, nil
}

func (i *Indexer) Filters() []Status {
	return Describe(i.filters)
}
