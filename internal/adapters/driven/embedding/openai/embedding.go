// Package openai provides an embedding adapter for the OpenAI embeddings
// API and compatible servers.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 1536

	// MaxBatchInputs is the API limit on inputs per request. Larger
	// batches are split.
	MaxBatchInputs = 2048
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is required unless BaseURL points at a compatible server.
	APIKey string

	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the
	// model's native size.
	Dimensions int

	MaxTries uint
}

// EmbeddingService embeds passages and queries.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates an OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	dimensions, shorten := cfg.Dimensions, false
	if dimensions > 0 {
		shorten = strings.HasPrefix(cfg.Model, "text-embedding-3")
	} else if d, ok := modelDimensions[cfg.Model]; ok {
		dimensions = d
	} else {
		dimensions = DefaultDimensions
	}

	header := map[string]string{}
	if cfg.APIKey != "" {
		header["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &EmbeddingService{
		api: httpapi.New(httpapi.Config{
			Provider:    "openai",
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			Header:      header,
			Unavailable: domain.ErrEmbeddingUnavailable,
			MaxTries:    cfg.MaxTries,
		}),
		model:      cfg.Model,
		dimensions: dimensions,
		shorten:    shorten,
	}, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts, splitting at MaxBatchInputs. Vectors are
// returned in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchInputs {
		end := min(start+MaxBatchInputs, len(texts))
		vectors, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.api.PostJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("openai: bad embedding index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
