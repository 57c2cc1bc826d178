package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an exact nearest-neighbour index using cosine similarity.
// Vectors are normalised on insert so a search is one dot product per
// passage.
type VectorIndex struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

// NewVectorIndex creates an index for vectors of the given dimension.
// Zero accepts the dimension of the first vector added.
func NewVectorIndex(dims int) *VectorIndex {
	return &VectorIndex{
		dims:    dims,
		vectors: make(map[string][]float32),
	}
}

// Add inserts or replaces the vector of a passage.
func (v *VectorIndex) Add(_ context.Context, passageID string, embedding []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dims == 0 {
		v.dims = len(embedding)
	}
	if len(embedding) != v.dims {
		return fmt.Errorf("vector for %s has %d dimensions, index has %d", passageID, len(embedding), v.dims)
	}
	v.vectors[passageID] = unitVector(embedding)
	return nil
}

// Delete removes a vector.
func (v *VectorIndex) Delete(_ context.Context, passageID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vectors, passageID)
	return nil
}

// Search returns the k most similar passages. Ties sort by ID.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.vectors) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != v.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), v.dims)
	}
	q := unitVector(query)

	hits := make([]driven.VectorHit, 0, len(v.vectors))
	for id, vec := range v.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{PassageID: id, Similarity: dot(q, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].PassageID < hits[j].PassageID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vectors)
}

// Dimensions returns the vector dimension, zero until the first Add.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}

func unitVector(vec []float32) []float32 {
	out := slices.Clone(vec)
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
