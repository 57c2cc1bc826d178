// Package messages defines Bubbletea message types for the progress view.
// Each message mirrors one batch runner event.
package messages

import (
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// DatasetStarted is sent when a dataset's questions are loaded.
type DatasetStarted struct {
	Dataset string
	Total   int
}

// QuestionDone carries the result row of one finished question.
type QuestionDone struct {
	Result domain.QuestionResult
}

// DatasetDone carries the summary of a finished dataset.
type DatasetDone struct {
	Summary domain.RunSummary
}

// RunFinished is sent once the whole run has returned.
type RunFinished struct {
	Err error
}
