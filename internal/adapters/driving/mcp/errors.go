// Package mcp provides an MCP (Model Context Protocol) server adapter for ras.
// It lets AI assistants ask multi-hop questions against a knowledge source,
// search its passages and read the history of batch runs.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// ErrMissingQuestionRunner is returned when the question runner is not provided.
var ErrMissingQuestionRunner = errors.New("mcp: question runner is required")

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// toolError maps a pipeline error to a message an assistant can act on.
// The cause stays available through errors.Is.
func toolError(err error) error {
	var msg string
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = "the request was cancelled before an answer was produced"
	case errors.Is(err, domain.ErrInvalidInput):
		msg = "the request is invalid"
	case errors.Is(err, domain.ErrNotFound):
		msg = "nothing was found for the request"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		msg = "dense retrieval is unavailable because the embedding service cannot be reached"
	case errors.Is(err, domain.ErrLLMUnavailable):
		msg = "the language model service cannot be reached"
	case errors.Is(err, domain.ErrRateLimited):
		msg = "the model provider is rate limiting requests, try again later"
	case errors.Is(err, domain.ErrEmptyKnowledge):
		msg = "the knowledge source holds no passages, import some with 'ras index'"
	default:
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
