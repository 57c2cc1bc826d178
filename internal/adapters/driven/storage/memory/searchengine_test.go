package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"who", "directed", "jaws", "1975"}, Tokenize("Who directed 'Jaws' (1975)?"))
	assert.Empty(t, Tokenize("  ?! "))
}

func TestSearchEngine_RanksByTermRarity(t *testing.T) {
	engine := NewSearchEngine()
	ctx := context.Background()
	for _, p := range []domain.Passage{
		{ID: "p1", Text: "The film was directed by Steven Spielberg."},
		{ID: "p2", Text: "The film was released in summer."},
		{ID: "p3", Text: "A novel by Peter Benchley."},
	} {
		require.NoError(t, engine.Index(ctx, p))
	}

	hits, err := engine.Search(ctx, "film directed", 10)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].PassageID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchEngine_LimitAndDelete(t *testing.T) {
	engine := NewSearchEngine()
	ctx := context.Background()
	require.NoError(t, engine.Index(ctx, domain.Passage{ID: "a", Text: "shark"}))
	require.NoError(t, engine.Index(ctx, domain.Passage{ID: "b", Text: "shark"}))

	hits, err := engine.Search(ctx, "shark", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].PassageID)

	require.NoError(t, engine.Delete(ctx, "a"))
	hits, err = engine.Search(ctx, "shark", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].PassageID)
}

func TestSearchEngine_ReindexReplacesTerms(t *testing.T) {
	engine := NewSearchEngine()
	ctx := context.Background()
	require.NoError(t, engine.Index(ctx, domain.Passage{ID: "a", Text: "old words"}))
	require.NoError(t, engine.Index(ctx, domain.Passage{ID: "a", Text: "new text"}))

	hits, err := engine.Search(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
