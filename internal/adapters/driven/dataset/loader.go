// Package dataset loads benchmark questions from files in a data directory.
//
// A dataset named "hotpotqa" is read from the first of hotpotqa.json,
// hotpotqa.jsonl, hotpotqa.yaml and hotpotqa.yml found in the directory.
// JSON and YAML files hold either a list of records or a columnar object
// whose keys map to equally long lists.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.DatasetLoader = (*Loader)(nil)

// LongFormFactor multiplies the answer budget of long-form datasets.
const LongFormFactor = 3

var log = logger.New("dataset")

// Extensions lists the recognised file extensions in lookup order.
var Extensions = []string{".json", ".jsonl", ".yaml", ".yml"}

// Field aliases accepted in records, in priority order.
var (
	idKeys       = []string{"id", "_id", "qid", "question_id"}
	questionKeys = []string{"question", "input", "query", "claim"}
	labelKeys    = []string{"label", "answer", "answers", "output", "golds"}
	choiceKeys   = []string{"choices", "options"}
)

// idNamespace seeds the deterministic ids of records without one.
var idNamespace = uuid.MustParse("9b7d3c52-3f8e-4a51-9d0e-2f6a8b4c1e07")

// Loader reads datasets from a directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Path returns the file backing a dataset.
// Returns domain.ErrNotFound if no file with a known extension exists.
func (l *Loader) Path(dataset string) (string, error) {
	if dataset == "" || strings.ContainsAny(dataset, `/\`) || dataset == "." || dataset == ".." {
		return "", domain.NewConfigurationError("dataset", dataset, "must be a plain name")
	}
	for _, ext := range Extensions {
		p := filepath.Join(l.dir, dataset+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("dataset %q in %s: %w", dataset, l.dir, domain.ErrNotFound)
}

// Load reads the questions of a dataset and sets their answer budget.
// Long-form datasets get LongFormFactor times the budget.
func (l *Loader) Load(ctx context.Context, dataset string, maxAnswerLength int) ([]domain.Question, error) {
	path, err := l.Path(dataset)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := decode(ctx, f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	questions := make([]domain.Question, 0, len(records))
	for i, rec := range records {
		q := toQuestion(dataset, i, rec)
		q.MaxAnswerLength = maxAnswerLength
		if q.IsLongForm() {
			q.MaxAnswerLength = maxAnswerLength * LongFormFactor
		}
		questions = append(questions, q)
	}
	log.Info("dataset loaded", "dataset", dataset, "path", path, "questions", len(questions))
	return questions, nil
}

// decode reads every record of a file into generic maps.
func decode(ctx context.Context, r io.Reader, ext string) ([]map[string]any, error) {
	switch ext {
	case ".jsonl":
		return decodeJSONLines(ctx, r)
	case ".json":
		dec := json.NewDecoder(r)
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return records(doc)
	case ".yaml", ".yml":
		var doc any
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return records(doc)
	}
	return nil, fmt.Errorf("%w: extension %q", domain.ErrUnsupportedType, ext)
}

func decodeJSONLines(ctx context.Context, r io.Reader) ([]map[string]any, error) {
	var out []map[string]any
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return out, nil
}

// records accepts a list of objects, an object wrapping such a list under
// "data", or a columnar object.
func records(doc any) ([]map[string]any, error) {
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("%w: record %d is not an object", domain.ErrInvalidInput, i)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		m, ok := asMap(v)
		if !ok {
			return nil, fmt.Errorf("%w: expected a list or an object", domain.ErrInvalidInput)
		}
		if inner, ok := m["data"].([]any); ok {
			return records(inner)
		}
		return columns(m)
	}
}

// columns turns {"question": [...], "answer": [...]} into records.
func columns(m map[string]any) ([]map[string]any, error) {
	n := -1
	for k, v := range m {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not a list", domain.ErrInvalidInput, k)
		}
		if n >= 0 && len(list) != n {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", domain.ErrInvalidInput, k, len(list), n)
		}
		n = len(list)
	}
	if n < 0 {
		return nil, nil
	}
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = make(map[string]any, len(m))
	}
	for k, v := range m {
		for i, cell := range v.([]any) {
			out[i][k] = cell
		}
	}
	return out, nil
}

// asMap normalises JSON objects and YAML mappings.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func toQuestion(dataset string, index int, rec map[string]any) domain.Question {
	q := domain.Question{Dataset: dataset}
	if v, ok := first(rec, idKeys); ok {
		q.ID = scalar(v)
	}
	if q.ID == "" {
		q.ID = uuid.NewSHA1(idNamespace, []byte(dataset+"#"+strconv.Itoa(index))).String()
	}
	if v, ok := first(rec, questionKeys); ok {
		q.Text = scalar(v)
	}
	if v, ok := first(rec, labelKeys); ok {
		q.Label = stringList(v)
	}
	if v, ok := first(rec, choiceKeys); ok {
		q.Choices = choices(v)
	}
	return q
}

func first(rec map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func stringList(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := scalar(v); s != "" {
		return []string{s}
	}
	return nil
}

// choices accepts a plain list or the {"text": [...], "label": [...]}
// layout of multiple-choice benchmarks.
func choices(v any) []string {
	if m, ok := asMap(v); ok {
		return stringList(m["text"])
	}
	return stringList(v)
}
