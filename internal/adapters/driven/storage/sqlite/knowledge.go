package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// knowledgeStore implements driven.KnowledgeStore.
type knowledgeStore struct {
	store *Store
}

var _ driven.KnowledgeStore = (*knowledgeStore)(nil)

// maxVars keeps IN lists below SQLite's bound variable limit.
const maxVars = 500

// SavePassages stores or replaces passages in one transaction.
func (s *knowledgeStore) SavePassages(ctx context.Context, passages []domain.Passage) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, source, title, text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			text = excluded.text
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Source, p.Title, p.Text); err != nil {
			return fmt.Errorf("saving passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPassage retrieves a passage by ID.
func (s *knowledgeStore) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	var p domain.Passage
	err := s.store.db.QueryRowContext(ctx,
		"SELECT id, source, title, text FROM passages WHERE id = ?", id,
	).Scan(&p.ID, &p.Source, &p.Title, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("passage %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying passage: %w", err)
	}
	return &p, nil
}

// GetPassages retrieves passages in the order of ids, skipping unknown ones.
func (s *knowledgeStore) GetPassages(ctx context.Context, ids []string) ([]domain.Passage, error) {
	found := make(map[string]domain.Passage, len(ids))
	for start := 0; start < len(ids); start += maxVars {
		end := min(start+maxVars, len(ids))
		if err := s.fetch(ctx, ids[start:end], found); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Passage, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *knowledgeStore) fetch(ctx context.Context, ids []string, into map[string]domain.Passage) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	//nolint:gosec // placeholders only
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, source, title, text FROM passages WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ID, &p.Source, &p.Title, &p.Text); err != nil {
			return fmt.Errorf("scanning passage: %w", err)
		}
		into[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating passages: %w", err)
	}
	return nil
}

// CountPassages returns the number of stored passages.
func (s *knowledgeStore) CountPassages(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// SaveEmbedding stores the embedding of an existing passage.
func (s *knowledgeStore) SaveEmbedding(ctx context.Context, passageID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, passageID)
	}
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (passage_id, dims, vector)
		SELECT id, ?, ? FROM passages WHERE id = ?
		ON CONFLICT(passage_id) DO UPDATE SET
			dims = excluded.dims,
			vector = excluded.vector
	`, len(embedding), float32SliceToBytes(embedding), passageID)
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("embedding for passage %s: %w", passageID, domain.ErrNotFound)
	}
	return nil
}

// ListEmbeddings calls fn for every stored embedding in passage insertion order.
func (s *knowledgeStore) ListEmbeddings(ctx context.Context, fn func(passageID string, embedding []float32) error) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.passage_id, e.vector
		FROM embeddings e JOIN passages p ON p.id = e.passage_id
		ORDER BY p.rowid
	`)
	if err != nil {
		return fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("scanning embedding: %w", err)
		}
		if err := fn(id, bytesToFloat32Slice(blob)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating embeddings: %w", err)
	}
	return nil
}
