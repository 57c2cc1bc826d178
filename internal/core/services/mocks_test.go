package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// --- Index and embedding mocks ---

// mockSearchEngine implements driven.SearchEngine for testing.
type mockSearchEngine struct {
	mu        sync.Mutex
	hits      []driven.SearchHit
	searchErr error
	indexErr  error
	indexed   []string
}

func (m *mockSearchEngine) Index(_ context.Context, p domain.Passage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, p.ID)
	return nil
}

func (m *mockSearchEngine) Delete(_ context.Context, _ string) error {
	return nil
}

func (m *mockSearchEngine) Search(_ context.Context, _ string, limit int) ([]driven.SearchHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:limit], nil
}

func (m *mockSearchEngine) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu        sync.Mutex
	hits      []driven.VectorHit
	searchErr error
	addErr    error
	added     map[string][]float32
}

func (m *mockVectorIndex) Add(_ context.Context, id string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	if m.added == nil {
		m.added = make(map[string][]float32)
	}
	m.added[id] = vec
	return nil
}

func (m *mockVectorIndex) Delete(_ context.Context, _ string) error {
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.added)
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	short     bool
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	n := len(texts)
	if m.short {
		n--
	}
	result := make([][]float32, n)
	for i := range result {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// --- Leaf stage fakes ---

// fakeRetriever serves scripted retrievals. The n-th call (from zero)
// receives hop n's passages; calls beyond the script return no passages.
type fakeRetriever struct {
	mu      sync.Mutex
	hops    [][]domain.Passage
	err     error
	block   bool
	queries []string
}

func (f *fakeRetriever) Search(ctx context.Context, query string, _ domain.SearchOptions) ([]domain.Passage, error) {
	f.mu.Lock()
	call := len(f.queries)
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if call < len(f.hops) {
		return f.hops[call], nil
	}
	return nil, nil
}

func (f *fakeRetriever) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// fakeExtractor returns triples keyed by passage ID.
type fakeExtractor struct {
	mu      sync.Mutex
	triples map[string][]domain.Triple
	err     error
	calls   []string
}

func (f *fakeExtractor) Extract(_ context.Context, p domain.Passage) ([]domain.Triple, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p.ID)
	if f.err != nil {
		return nil, f.err
	}
	return f.triples[p.ID], nil
}

// fakeAnswerer returns a fixed answer or error and records its input.
type fakeAnswerer struct {
	mu       sync.Mutex
	text     string
	err      error
	snapshot domain.EvidenceSnapshot
	calls    int
	ctxAlive bool
}

func (f *fakeAnswerer) Answer(ctx context.Context, _ domain.Question, ev domain.EvidenceSnapshot, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.snapshot = ev
	f.ctxAlive = ctx.Err() == nil
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// charBounder bounds text by rune count.
type charBounder struct{}

func (charBounder) Unit() domain.LengthUnit { return domain.LengthUnitChars }

func (charBounder) Measure(text string) int { return len([]rune(text)) }

func (charBounder) Bound(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit])
}

// recordingTracer captures exported traces.
type recordingTracer struct {
	mu     sync.Mutex
	traces []driven.QuestionTrace
}

func (r *recordingTracer) RecordQuestion(_ context.Context, tr driven.QuestionTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, tr)
}

// --- Batch fakes ---

type fakeLoader struct {
	questions map[string][]domain.Question
}

func (f *fakeLoader) Load(_ context.Context, dataset string, maxLen int) ([]domain.Question, error) {
	qs, ok := f.questions[dataset]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", dataset, domain.ErrNotFound)
	}
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Dataset = dataset
		if q.MaxAnswerLength == 0 {
			q.MaxAnswerLength = maxLen
		}
		out[i] = q
	}
	return out, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written map[string][]domain.QuestionResult
	err     error
}

func (f *fakeWriter) Write(_ context.Context, dataset string, results []domain.QuestionResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.written == nil {
		f.written = make(map[string][]domain.QuestionResult)
	}
	f.written[dataset] = results
	return "out/" + dataset + "_results.json", nil
}

type fakeResultStore struct {
	mu   sync.Mutex
	runs []domain.RunSummary
	err  error
}

func (f *fakeResultStore) SaveRun(_ context.Context, s domain.RunSummary, _ []domain.QuestionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, s)
	return nil
}

func (f *fakeResultStore) ListRuns(_ context.Context, _ int) ([]domain.RunSummary, error) {
	return f.runs, nil
}

func (f *fakeResultStore) GetResults(_ context.Context, _ string) ([]domain.QuestionResult, error) {
	return nil, nil
}

// --- Helpers ---

func passagesOf(ids ...string) []domain.Passage {
	out := make([]domain.Passage, len(ids))
	for i, id := range ids {
		out[i] = domain.Passage{ID: id, Title: "Title " + id, Text: "Text of " + id + ". More text."}
	}
	return out
}

func question(id, text string) domain.Question {
	return domain.Question{ID: id, Text: text, Dataset: "hotpotqa", MaxAnswerLength: 50}
}
