// Package cache provides an LRU cache in front of the knowledge retriever.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure Retriever implements the interface.
var _ driven.Retriever = (*Retriever)(nil)

// DefaultSize is the number of cached searches.
const DefaultSize = 4096

// Retriever caches search results per (source, mode, limit, query).
// Failed searches are not cached. It is safe for concurrent use.
type Retriever struct {
	next  driven.Retriever
	cache *lru.Cache[string, []domain.Passage]
}

// NewRetriever wraps next with a cache of size entries.
func NewRetriever(next driven.Retriever, size int) (*Retriever, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, []domain.Passage](size)
	if err != nil {
		return nil, fmt.Errorf("create retrieval cache: %w", err)
	}
	return &Retriever{next: next, cache: c}, nil
}

// Search returns the cached result or delegates and caches it.
func (r *Retriever) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Passage, error) {
	key := cacheKey(query, opts)
	if hit, ok := r.cache.Get(key); ok {
		return clonePassages(hit), nil
	}

	passages, err := r.next.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, clonePassages(passages))
	return passages, nil
}

// Len returns the number of cached searches.
func (r *Retriever) Len() int {
	return r.cache.Len()
}

// Purge drops every cached search.
func (r *Retriever) Purge() {
	r.cache.Purge()
}

func cacheKey(query string, opts domain.SearchOptions) string {
	return strings.Join([]string{
		opts.Source,
		string(opts.Mode),
		strconv.Itoa(opts.Limit),
		strings.TrimSpace(query),
	}, "\x00")
}

func clonePassages(p []domain.Passage) []domain.Passage {
	if p == nil {
		return nil
	}
	out := make([]domain.Passage, len(p))
	copy(out, p)
	return out
}
