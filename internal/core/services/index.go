package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

const (
	// embedBatchSize is the number of passages per EmbedBatch call.
	embedBatchSize = 64

	// embedParallelism bounds concurrent EmbedBatch calls.
	embedParallelism = 4
)

// IndexService imports passages into a knowledge source: the passage
// store, the keyword index and, when embeddings are available, the
// vector index.
type IndexService struct {
	source           string
	store            driven.KnowledgeStore
	searchIndex      driven.SearchEngine
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	log              *slog.Logger
}

// NewIndexService creates an index service. searchIndex, vectorIndex and
// embeddingService are optional.
func NewIndexService(
	source string,
	store driven.KnowledgeStore,
	searchIndex driven.SearchEngine,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) *IndexService {
	return &IndexService{
		source:           source,
		store:            store,
		searchIndex:      searchIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		log:              logger.New("index"),
	}
}

// Import stores passages and indexes them. Passages without an ID or text
// are skipped; a repeated ID keeps its last occurrence.
func (s *IndexService) Import(ctx context.Context, passages []domain.Passage) (int, error) {
	clean := s.normalise(passages)
	if len(clean) == 0 {
		return 0, fmt.Errorf("%w: no passages with an id and text", domain.ErrInvalidInput)
	}

	if err := s.store.SavePassages(ctx, clean); err != nil {
		return 0, fmt.Errorf("save passages: %w", err)
	}

	if s.searchIndex != nil {
		for _, p := range clean {
			if err := s.searchIndex.Index(ctx, p); err != nil {
				return 0, fmt.Errorf("index passage %s: %w", p.ID, err)
			}
		}
	}

	if s.embeddingService != nil {
		if err := s.embed(ctx, clean); err != nil {
			return 0, err
		}
	} else {
		s.log.Warn("no embedding service configured, dense retrieval unavailable for imported passages")
	}

	s.log.Info("passages imported", "source", s.source, "passages", len(clean))
	return len(clean), nil
}

func (s *IndexService) normalise(passages []domain.Passage) []domain.Passage {
	position := make(map[string]int, len(passages))
	out := make([]domain.Passage, 0, len(passages))
	for _, p := range passages {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		if p.Source == "" {
			p.Source = s.source
		}
		p.Score = 0
		if i, ok := position[p.ID]; ok {
			out[i] = p
			continue
		}
		position[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// embed computes embeddings in batches with bounded parallelism and stores
// each in the knowledge store and the vector index.
func (s *IndexService) embed(ctx context.Context, passages []domain.Passage) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedParallelism)

	for start := 0; start < len(passages); start += embedBatchSize {
		batch := passages[start:min(start+embedBatchSize, len(passages))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, p := range batch {
				texts[i] = p.Content()
			}
			vectors, err := s.embeddingService.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed passages: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed passages: got %d vectors for %d passages", len(vectors), len(batch))
			}
			for i, p := range batch {
				if err := s.store.SaveEmbedding(gctx, p.ID, vectors[i]); err != nil {
					return fmt.Errorf("save embedding %s: %w", p.ID, err)
				}
				if s.vectorIndex != nil {
					if err := s.vectorIndex.Add(gctx, p.ID, vectors[i]); err != nil {
						return fmt.Errorf("index embedding %s: %w", p.ID, err)
					}
				}
			}
			logger.Debug("embedded batch", "passages", len(batch))
			return nil
		})
	}
	return g.Wait()
}
