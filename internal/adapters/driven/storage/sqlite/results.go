package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// resultStore implements driven.ResultStore.
type resultStore struct {
	store *Store
}

var _ driven.ResultStore = (*resultStore)(nil)

// SaveRun stores a run summary and its rows. Saving a run ID again
// replaces the earlier run.
func (s *resultStore) SaveRun(ctx context.Context, summary domain.RunSummary, results []domain.QuestionResult) error {
	forced, err := json.Marshal(summary.Forced)
	if err != nil {
		return fmt.Errorf("marshalling forced counts: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", summary.RunID); err != nil {
		return fmt.Errorf("replacing run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, dataset, questions, answered, forced, fallbacks, errors,
			started_at, completed_at, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, summary.RunID, summary.Dataset, summary.Questions, summary.Answered, string(forced),
		summary.Fallbacks, summary.Errors, summary.StartedAt.UTC(), summary.CompletedAt.UTC(),
		summary.OutputPath); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_results (run_id, position, question_id, termination, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling result %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, summary.RunID, i, r.ID, string(r.Termination), string(data)); err != nil {
			return fmt.Errorf("saving result %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *resultStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, dataset, questions, answered, forced, fallbacks, errors,
			started_at, completed_at, output_path
		FROM runs
		ORDER BY started_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r      domain.RunSummary
			forced string
		)
		if err := rows.Scan(&r.RunID, &r.Dataset, &r.Questions, &r.Answered, &forced,
			&r.Fallbacks, &r.Errors, &r.StartedAt, &r.CompletedAt, &r.OutputPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(forced), &r.Forced); err != nil {
			return nil, fmt.Errorf("decoding forced counts of %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// GetResults returns the rows of a run in input order.
func (s *resultStore) GetResults(ctx context.Context, runID string) ([]domain.QuestionResult, error) {
	var exists int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs WHERE run_id = ?", runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT data FROM question_results WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	results := []domain.QuestionResult{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		var r domain.QuestionResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}
