package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure RetrievalService implements the interfaces.
var (
	_ driving.SearchService = (*RetrievalService)(nil)
	_ driven.Retriever      = (*RetrievalService)(nil)
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

// scoredPassage holds intermediate search results before hydration.
type scoredPassage struct {
	passageID string
	score     float64
	source    string // "keyword", "vector", or "merged"
}

// RetrievalConfig selects the knowledge source and retrieval mode.
type RetrievalConfig struct {
	Source string
	Mode   domain.RetrievalMode
	TopK   int
}

// RetrievalService serves Retrieve decisions from one knowledge source.
// The configured mode is resolved once into a search strategy; callers
// never choose how retrieval runs. Safe for concurrent use.
type RetrievalService struct {
	source           string
	mode             domain.RetrievalMode
	topK             int
	store            driven.KnowledgeStore
	searchIndex      driven.SearchEngine
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
}

// NewRetrievalService creates a retrieval service. vectorIndex and
// embeddingService are optional: without them hybrid retrieval degrades
// to keyword search, while dense-only retrieval is a configuration error.
func NewRetrievalService(
	cfg RetrievalConfig,
	store driven.KnowledgeStore,
	searchIndex driven.SearchEngine,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) (*RetrievalService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: knowledge store is required", domain.ErrInvalidInput)
	}
	s := &RetrievalService{
		source:           cfg.Source,
		topK:             cfg.TopK,
		store:            store,
		searchIndex:      searchIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
	}
	if s.topK <= 0 {
		s.topK = domain.DefaultTopK
	}
	mode, err := s.effectiveMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	s.mode = mode
	logger.Info("retrieval configured", "source", cfg.Source, "mode", mode, "requested", cfg.Mode, "top_k", s.topK)
	return s, nil
}

// Mode returns the resolved retrieval mode.
func (s *RetrievalService) Mode() domain.RetrievalMode {
	return s.mode
}

// effectiveMode resolves a requested mode against the available services.
// It gracefully degrades hybrid retrieval if dense search is unavailable.
func (s *RetrievalService) effectiveMode(requested domain.RetrievalMode) (domain.RetrievalMode, error) {
	canDoVector := s.vectorIndex != nil && s.embeddingService != nil
	canDoKeyword := s.searchIndex != nil

	switch requested {
	case domain.RetrievalDenseOnly:
		if !canDoVector {
			return "", domain.NewConfigurationError("retrieval_mode", string(requested),
				"dense retrieval needs an embedding service and a vector index")
		}
		return requested, nil
	case domain.RetrievalHybrid:
		if canDoVector && canDoKeyword {
			return requested, nil
		}
		if canDoKeyword {
			logger.Warn("hybrid retrieval degraded to keyword search", "reason", domain.ErrEmbeddingUnavailable)
			return domain.RetrievalKeywordOnly, nil
		}
		if canDoVector {
			logger.Warn("hybrid retrieval degraded to dense search", "reason", domain.ErrSearchUnavailable)
			return domain.RetrievalDenseOnly, nil
		}
		return "", domain.NewConfigurationError("retrieval_mode", string(requested), "no search backend available")
	case domain.RetrievalKeywordOnly:
		if !canDoKeyword {
			return "", domain.NewConfigurationError("retrieval_mode", string(requested), "keyword search index unavailable")
		}
		return requested, nil
	default:
		return "", domain.NewConfigurationError("retrieval_mode", string(requested),
			"must be one of dense_only, hybrid, keyword_only")
	}
}

// Search returns ranked passages for a query. opts.Source must name the
// configured source when set; opts.Mode, when set, must resolve against
// the available backends.
func (s *RetrievalService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if opts.Source != "" && s.source != "" && opts.Source != s.source {
		return nil, fmt.Errorf("knowledge source %q: %w", opts.Source, domain.ErrNotFound)
	}

	mode := s.mode
	if opts.Mode != "" && opts.Mode != s.mode {
		resolved, err := s.effectiveMode(opts.Mode)
		if err != nil {
			return nil, err
		}
		mode = resolved
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.topK
	}

	var (
		hits []scoredPassage
		err  error
	)
	switch mode {
	case domain.RetrievalDenseOnly:
		hits, err = s.vectorSearch(ctx, query, limit)
	case domain.RetrievalHybrid:
		hits, err = s.hybridSearch(ctx, query, limit)
	default:
		hits, err = s.keywordSearch(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	passages, err := s.hydrate(ctx, hits)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}
	logger.Debug("search", "mode", mode, "query", query, "hits", len(hits), "passages", len(passages))
	return passages, nil
}

// keywordSearch performs full-text search.
func (s *RetrievalService) keywordSearch(ctx context.Context, query string, limit int) ([]scoredPassage, error) {
	if s.searchIndex == nil {
		return nil, domain.ErrSearchUnavailable
	}
	hits, err := s.searchIndex.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	results := make([]scoredPassage, len(hits))
	for i, hit := range hits {
		results[i] = scoredPassage{passageID: hit.PassageID, score: hit.Score, source: "keyword"}
	}
	return results, nil
}

// vectorSearch performs embedding similarity search.
func (s *RetrievalService) vectorSearch(ctx context.Context, query string, limit int) ([]scoredPassage, error) {
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	hits, err := s.vectorIndex.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]scoredPassage, len(hits))
	for i, hit := range hits {
		results[i] = scoredPassage{passageID: hit.PassageID, score: hit.Similarity, source: "vector"}
	}
	return results, nil
}

// hybridSearch runs keyword and vector search in parallel and merges the
// rankings with RRF. One failing side degrades to the other.
func (s *RetrievalService) hybridSearch(ctx context.Context, query string, limit int) ([]scoredPassage, error) {
	var keywordResults, vectorResults []scoredPassage
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keywordResults, keywordErr = s.keywordSearch(ctx, query, limit)
	}()
	go func() {
		defer wg.Done()
		vectorResults, vectorErr = s.vectorSearch(ctx, query, limit)
	}()
	wg.Wait()

	switch {
	case keywordErr != nil && vectorErr != nil:
		return nil, fmt.Errorf("hybrid search: %w", errors.Join(keywordErr, vectorErr))
	case keywordErr != nil:
		logger.Warn("hybrid search: keyword search failed, using vector results only", "error", keywordErr)
		return vectorResults, nil
	case vectorErr != nil:
		logger.Warn("hybrid search: vector search failed, using keyword results only", "error", vectorErr)
		return keywordResults, nil
	}
	return reciprocalRankFusion(keywordResults, vectorResults, rrfK), nil
}

// reciprocalRankFusion merges ranked lists. Ties keep first-seen order so
// results are deterministic.
func reciprocalRankFusion(list1, list2 []scoredPassage, k int) []scoredPassage {
	scores := make(map[string]float64)
	var order []string
	for _, list := range [][]scoredPassage{list1, list2} {
		for rank, p := range list {
			if _, ok := scores[p.passageID]; !ok {
				order = append(order, p.passageID)
			}
			scores[p.passageID] += 1.0 / float64(k+rank+1)
		}
	}
	results := make([]scoredPassage, len(order))
	for i, id := range order {
		results[i] = scoredPassage{passageID: id, score: scores[id], source: "merged"}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	return results
}

// hydrate loads passage bodies, keeping rank order and dropping hits
// whose passage is missing or blank.
func (s *RetrievalService) hydrate(ctx context.Context, hits []scoredPassage) ([]domain.Passage, error) {
	if len(hits) == 0 {
		return []domain.Passage{}, nil
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.passageID
		scores[h.passageID] = h.score
	}
	stored, err := s.store.GetPassages(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Passage, 0, len(stored))
	for _, p := range stored {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		p.Score = scores[p.ID]
		if p.Source == "" {
			p.Source = s.source
		}
		out = append(out, p)
	}
	return out, nil
}
