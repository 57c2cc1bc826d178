package ai

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

var (
	_ driven.LLMService       = (*RateLimitedLLM)(nil)
	_ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)
)

// NewLimiter returns a token bucket allowing rps requests per second with
// a burst of one second's worth of requests.
func NewLimiter(rps float64) *rate.Limiter {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitedLLM waits on a shared limiter before every model call.
type RateLimitedLLM struct {
	next    driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimitedLLM wraps next.
func NewRateLimitedLLM(next driven.LLMService, limiter *rate.Limiter) *RateLimitedLLM {
	return &RateLimitedLLM{next: next, limiter: limiter}
}

// Complete waits for a token and delegates.
func (l *RateLimitedLLM) Complete(ctx context.Context, prompt driven.Prompt) (driven.Completion, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return driven.Completion{}, err
	}
	return l.next.Complete(ctx, prompt)
}

// ModelName returns the wrapped model name.
func (l *RateLimitedLLM) ModelName() string { return l.next.ModelName() }

// Ping is not rate limited.
func (l *RateLimitedLLM) Ping(ctx context.Context) error { return l.next.Ping(ctx) }

// Close closes the wrapped service.
func (l *RateLimitedLLM) Close() error { return l.next.Close() }

// RateLimitedEmbedding waits on a shared limiter before every embedding call.
// A batch counts as one request.
type RateLimitedEmbedding struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps next.
func NewRateLimitedEmbedding(next driven.EmbeddingService, limiter *rate.Limiter) *RateLimitedEmbedding {
	return &RateLimitedEmbedding{next: next, limiter: limiter}
}

// Embed waits for a token and delegates.
func (e *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.Embed(ctx, text)
}

// EmbedBatch waits for a token and delegates.
func (e *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped vector size.
func (e *RateLimitedEmbedding) Dimensions() int { return e.next.Dimensions() }

// ModelName returns the wrapped model name.
func (e *RateLimitedEmbedding) ModelName() string { return e.next.ModelName() }

// Ping is not rate limited.
func (e *RateLimitedEmbedding) Ping(ctx context.Context) error { return e.next.Ping(ctx) }

// Close closes the wrapped service.
func (e *RateLimitedEmbedding) Close() error { return e.next.Close() }
