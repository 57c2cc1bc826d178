package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure SearchEngine implements the interface.
var _ driven.SearchEngine = (*SearchEngine)(nil)

// SearchEngine is an in-memory keyword index scoring passages by summed
// inverse document frequency of matched query terms.
type SearchEngine struct {
	mu       sync.RWMutex
	terms    map[string]map[string]int // term -> passage -> frequency
	passages map[string][]string       // passage -> distinct terms
}

// NewSearchEngine creates an empty keyword index.
func NewSearchEngine() *SearchEngine {
	return &SearchEngine{
		terms:    make(map[string]map[string]int),
		passages: make(map[string][]string),
	}
}

// Index adds or replaces a passage.
func (e *SearchEngine) Index(_ context.Context, p domain.Passage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove(p.ID)

	freq := make(map[string]int)
	for _, t := range Tokenize(p.Content()) {
		freq[t]++
	}
	distinct := make([]string, 0, len(freq))
	for t, n := range freq {
		postings, ok := e.terms[t]
		if !ok {
			postings = make(map[string]int)
			e.terms[t] = postings
		}
		postings[p.ID] = n
		distinct = append(distinct, t)
	}
	e.passages[p.ID] = distinct
	return nil
}

// Delete removes a passage.
func (e *SearchEngine) Delete(_ context.Context, passageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove(passageID)
	return nil
}

// remove must be called with mu held.
func (e *SearchEngine) remove(passageID string) {
	for _, t := range e.passages[passageID] {
		delete(e.terms[t], passageID)
		if len(e.terms[t]) == 0 {
			delete(e.terms, t)
		}
	}
	delete(e.passages, passageID)
}

// Search ranks passages containing any query term. Ties sort by ID.
func (e *SearchEngine) Search(_ context.Context, query string, limit int) ([]driven.SearchHit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := float64(len(e.passages))
	scores := make(map[string]float64)
	seen := make(map[string]bool)
	for _, t := range Tokenize(query) {
		if seen[t] {
			continue
		}
		seen[t] = true
		postings := e.terms[t]
		if len(postings) == 0 {
			continue
		}
		idf := math.Log(1 + total/float64(len(postings)))
		for id, n := range postings {
			scores[id] += idf * (1 + math.Log(float64(n)))
		}
	}

	hits := make([]driven.SearchHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, driven.SearchHit{PassageID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PassageID < hits[j].PassageID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases resources.
func (e *SearchEngine) Close() error {
	return nil
}

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
