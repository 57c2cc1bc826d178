package mcp

import (
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Questions runs the reasoning loop for one question.
	Questions driving.QuestionRunner

	// Search retrieves passages from the knowledge source.
	Search driving.SearchService

	// History reads past batch runs. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Questions == nil {
		return ErrMissingQuestionRunner
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
