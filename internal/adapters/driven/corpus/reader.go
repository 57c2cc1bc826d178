// Package corpus turns plain text, Markdown and HTML documents into
// passages ready for a knowledge source.
//
// Documents are stripped of markup and split into overlapping
// fixed-size windows. Each window becomes one passage carrying the
// document title, with an ID derived from the file name and position.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per passage.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// format is a supported document format.
type format int

const (
	formatText format = iota
	formatMarkdown
	formatHTML
)

var extensions = map[string]format{
	".txt":      formatText,
	".text":     formatText,
	".md":       formatMarkdown,
	".markdown": formatMarkdown,
	".html":     formatHTML,
	".htm":      formatHTML,
}

// Supported reports whether path has a document extension the reader handles.
func Supported(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Reader converts documents into passages.
type Reader struct {
	chunkSize int
	overlap   int
}

// Option configures the reader.
type Option func(*Reader)

// WithChunkSize sets the passage size in characters.
func WithChunkSize(size int) Option {
	return func(r *Reader) {
		if size > 0 {
			r.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive passages in characters.
func WithOverlap(overlap int) Option {
	return func(r *Reader) {
		if overlap >= 0 {
			r.overlap = overlap
		}
	}
}

// New creates a reader with the given options.
func New(opts ...Option) *Reader {
	r := &Reader{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.overlap >= r.chunkSize {
		r.overlap = r.chunkSize / 4
	}
	return r
}

// ReadFile reads the document at path and splits it into passages.
func (r *Reader) ReadFile(path string) ([]domain.Passage, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return r.Read(path, data)
}

// Read splits document content into passages. The name selects the
// format by extension and seeds the title and passage IDs.
func (r *Reader) Read(name string, content []byte) ([]domain.Passage, error) {
	f, ok := extensions[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrUnsupportedType)
	}

	raw := string(content)
	var title, text string
	switch f {
	case formatHTML:
		title, text = htmlTitle(raw, name), stripHTML(raw)
	case formatMarkdown:
		title, text = markdownTitle(raw, name), stripMarkdown(raw)
	default:
		title, text = titleFromName(name), strings.TrimSpace(raw)
	}

	stem := stemOf(name)
	windows := r.chunk(text)
	passages := make([]domain.Passage, 0, len(windows))
	for i, w := range windows {
		passages = append(passages, domain.Passage{
			ID:    fmt.Sprintf("%s#%d", stem, i),
			Title: title,
			Text:  w,
		})
	}
	return passages, nil
}

// chunk splits text into windows of at most chunkSize runes, advancing
// by chunkSize-overlap. A window ends at the last whitespace in its
// second half when there is one, so words are not cut in two.
func (r *Reader) chunk(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); {
		end := start + r.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes[start+r.chunkSize/2 : end]); cut > 0 {
			end = start + r.chunkSize/2 + cut
		}

		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			out = append(out, w)
		}
		if end == len(runes) {
			break
		}

		next := end - r.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		switch rs[i] {
		case ' ', '\n', '\t':
			return i
		}
	}
	return -1
}

func stemOf(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// titleFromName derives a human-readable title from a file name.
func titleFromName(name string) string {
	title := stemOf(name)
	title = strings.ReplaceAll(title, "_", " ")
	return strings.ReplaceAll(title, "-", " ")
}
