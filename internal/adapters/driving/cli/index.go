package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/corpus"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index [file...]",
	Short: "Import passages into a knowledge source",
	Long: `Imports passages from JSON or JSON Lines files into the knowledge
source, creating it on first use. Each passage needs an "id" and a
"text"; "title" is optional ("contents" is accepted for "text").

Plain text, Markdown and HTML documents are stripped of markup and
split into overlapping passages named <file>#<n>.

When an embedding model is configured, passage embeddings are computed
and stored for dense retrieval. Re-importing a passage ID replaces it.

Examples:
  ras index --knowledge_source wiki passages.jsonl
  ras index --knowledge_source wiki part-*.json
  ras index --knowledge_source notes --chunk_size 600 docs/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var (
	indexChunkSize    int
	indexChunkOverlap int
)

func init() {
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk_size", corpus.DefaultChunkSize, "Passage size in characters for text documents")
	indexCmd.Flags().IntVar(&indexChunkOverlap, "chunk_overlap", corpus.DefaultChunkOverlap, "Overlap between passages of text documents")
	addSettingsFlags(indexCmd, knowledgeFlags)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	documents := corpus.New(corpus.WithChunkSize(indexChunkSize), corpus.WithOverlap(indexChunkOverlap))
	var passages []domain.Passage
	for _, path := range args {
		var ps []domain.Passage
		if corpus.Supported(path) {
			ps, err = documents.ReadFile(path)
		} else {
			ps, err = readPassageFile(path)
		}
		if err != nil {
			return err
		}
		passages = append(passages, ps...)
	}

	ctx := cmd.Context()
	index, closeIndex, err := openIndex(ctx, settings)
	if err != nil {
		return err
	}
	defer closeIndex()

	n, err := index.Import(ctx, passages)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	cmd.Printf("Imported %d passages into %s\n", n, settings.Knowledge.Source)
	if skipped := len(passages) - n; skipped > 0 {
		cmd.Printf("Skipped %d passages without an id or text, or with a repeated id\n", skipped)
	}
	return nil
}

// passageRecord accepts the common field names of passage dumps.
type passageRecord struct {
	ID       json.RawMessage `json:"id"`
	Title    string          `json:"title"`
	Text     string          `json:"text"`
	Contents string          `json:"contents"`
}

func (r passageRecord) passage() domain.Passage {
	p := domain.Passage{Title: r.Title, Text: r.Text}
	if p.Text == "" {
		p.Text = r.Contents
	}
	var id string
	if err := json.Unmarshal(r.ID, &id); err == nil {
		p.ID = id
	} else {
		p.ID = strings.TrimSpace(string(r.ID))
	}
	return p
}

func readPassageFile(path string) ([]domain.Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open passages: %w", err)
	}
	defer f.Close()

	var records []passageRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		records, err = readPassageLines(f)
	case ".json":
		err = json.NewDecoder(f).Decode(&records)
		if err != nil {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w: expected .json, .jsonl, .txt, .md or .html", path, domain.ErrUnsupportedType)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]domain.Passage, len(records))
	for i, r := range records {
		out[i] = r.passage()
	}
	return out, nil
}

func readPassageLines(r io.Reader) ([]passageRecord, error) {
	var out []passageRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec passageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
