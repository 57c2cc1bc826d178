package domain

import (
	"fmt"
	"strings"
)

// Known dataset tags with dataset-specific answer formatting.
const (
	DatasetPubHealth     = "pubhealth"
	DatasetARCChallenge  = "arc_c"
	Dataset2WikiMultiHop = "2wikimultihop"
	DatasetASQA          = "asqa"
	DatasetELI5          = "eli5"
)

const choiceLetters = "ABCDEFGH"

// Question is an immutable input to one reasoning loop.
type Question struct {
	// ID identifies the question within its dataset.
	ID string

	// Text is the raw question text.
	Text string

	// Dataset is the dataset tag the question came from.
	Dataset string

	// MaxAnswerLength bounds the answer, in the configured length unit.
	MaxAnswerLength int

	// Label holds gold answers when the dataset provides them.
	Label []string

	// Choices holds answer candidates for multiple-choice datasets.
	Choices []string
}

// Validate checks the question can enter a reasoning loop.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %q has no text", ErrInvalidInput, q.ID)
	}
	if q.MaxAnswerLength <= 0 {
		return fmt.Errorf("%w: question %q has max answer length %d", ErrInvalidInput, q.ID, q.MaxAnswerLength)
	}
	if len(q.Choices) > len(choiceLetters) {
		return fmt.Errorf("%w: question %q has %d choices", ErrInvalidInput, q.ID, len(q.Choices))
	}
	return nil
}

// IsLongForm reports whether the dataset expects a paragraph answer.
func (q Question) IsLongForm() bool {
	return q.Dataset == DatasetASQA || q.Dataset == DatasetELI5
}

// SubQuestion is the question text shown alongside retrieved evidence.
// Claims and multiple-choice stems are shown without their instructions.
func (q Question) SubQuestion() string {
	return strings.TrimSpace(q.Text)
}

// AnswerPrompt renders the question the way the answer generator expects
// it for the question's dataset.
func (q Question) AnswerPrompt() string {
	text := strings.TrimSpace(q.Text)
	switch q.Dataset {
	case DatasetPubHealth:
		return "Is statement 'true' or 'false'? Only output 'true' or 'false'.\nStatement: " + text
	case DatasetARCChallenge:
		var b strings.Builder
		b.WriteString("Given four answer candidates, A, B, C and D, choose the best answer choice.## Input:\n\n")
		b.WriteString(text)
		for i, c := range q.Choices {
			fmt.Fprintf(&b, "\n%c: %s", choiceLetters[i], c)
		}
		return b.String()
	case Dataset2WikiMultiHop:
		return strings.ReplaceAll(text, "\n### Input:\n", "")
	}
	return text
}

// QuestionHeader prefixes the question line of the answerer input.
func (q Question) QuestionHeader() string {
	if q.IsLongForm() {
		return "[Long Form] Question: "
	}
	return "Question: "
}
