// Package results writes batch result rows as JSON files.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.ResultWriter = (*Writer)(nil)

// Writer stores each dataset's rows in <dir>/<dataset>_results.json.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. The directory is created on
// the first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// PathFor returns the file a dataset's rows are written to.
func (w *Writer) PathFor(dataset string) string {
	return filepath.Join(w.dir, dataset+"_results.json")
}

// Write replaces the dataset's result file atomically.
func (w *Writer) Write(ctx context.Context, dataset string, rows []domain.QuestionResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if rows == nil {
		rows = []domain.QuestionResult{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	path := w.PathFor(dataset)
	tmp, err := os.CreateTemp(w.dir, "."+dataset+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace results: %w", err)
	}
	return path, nil
}
