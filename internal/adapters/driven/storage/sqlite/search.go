package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// searchEngine implements driven.SearchEngine on the passages_fts table.
type searchEngine struct {
	store *Store
}

var _ driven.SearchEngine = (*searchEngine)(nil)

// Index replaces the indexed text of a passage.
func (e *searchEngine) Index(ctx context.Context, p domain.Passage) error {
	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages_fts WHERE passage_id = ?", p.ID); err != nil {
		return fmt.Errorf("unindexing passage %s: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO passages_fts (passage_id, title, text) VALUES (?, ?, ?)", p.ID, p.Title, p.Text,
	); err != nil {
		return fmt.Errorf("indexing passage %s: %w", p.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes a passage from the index.
func (e *searchEngine) Delete(ctx context.Context, passageID string) error {
	if _, err := e.store.db.ExecContext(ctx, "DELETE FROM passages_fts WHERE passage_id = ?", passageID); err != nil {
		return fmt.Errorf("unindexing passage %s: %w", passageID, err)
	}
	return nil
}

// Search ranks passages by bm25. Scores are negated so higher is better.
func (e *searchEngine) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	match := matchExpression(query)
	if match == "" || limit <= 0 {
		return []driven.SearchHit{}, nil
	}

	rows, err := e.store.db.QueryContext(ctx, `
		SELECT passage_id, -bm25(passages_fts) AS score
		FROM passages_fts
		WHERE passages_fts MATCH ?
		ORDER BY score DESC, passage_id
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching passages: %w", err)
	}
	defer rows.Close()

	hits := make([]driven.SearchHit, 0, limit)
	for rows.Next() {
		var h driven.SearchHit
		if err := rows.Scan(&h.PassageID, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// Close is a no-op; the store owns the connection.
func (e *searchEngine) Close() error {
	return nil
}

// matchExpression turns free text into an FTS5 query that ORs every word.
// Words are quoted so FTS5 operators in the input are matched literally.
func matchExpression(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
