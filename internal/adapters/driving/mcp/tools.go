package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// defaultSearchLimit applies when search_knowledge is called without a limit.
const defaultSearchLimit = 10

// AnswerInput is the input schema for the answer_question tool.
type AnswerInput struct {
	Question        string   `json:"question" jsonschema:"the question to answer from the knowledge source"`
	Dataset         string   `json:"dataset,omitempty" jsonschema:"dataset tag selecting answer formatting, e.g. pubhealth or arc_c"`
	Choices         []string `json:"choices,omitempty" jsonschema:"answer candidates for multiple-choice questions"`
	MaxAnswerLength int      `json:"max_answer_length,omitempty" jsonschema:"answer length budget in the configured unit"`
}

// AnswerOutput is the output schema for the answer_question tool.
type AnswerOutput struct {
	Answer      string         `json:"answer"`
	Termination string         `json:"termination"`
	Fallback    bool           `json:"fallback,omitempty"`
	Steps       []StepOutput   `json:"steps"`
	Triples     []TripleOutput `json:"triples,omitempty"`
}

// StepOutput summarises one loop step.
type StepOutput struct {
	Decision  string `json:"decision"`
	Query     string `json:"query,omitempty"`
	PassageID string `json:"passage_id,omitempty"`
	Forced    bool   `json:"forced,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TripleOutput is one piece of extracted evidence.
type TripleOutput struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find passages"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 10)"`
}

// SearchOutput is the output schema for the search_knowledge tool.
type SearchOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer_question",
		Description: "Answer a question by iteratively retrieving passages, extracting " +
			"knowledge triples and answering from the gathered evidence",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Retrieve passages from the knowledge source",
	}, s.handleSearch)
}

// handleAnswer handles the answer_question tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	text := strings.TrimSpace(input.Question)
	if text == "" {
		return nil, AnswerOutput{}, toolError(fmt.Errorf("%w: question is empty", domain.ErrInvalidInput))
	}

	q := domain.Question{
		ID:              uuid.NewString(),
		Text:            text,
		Dataset:         input.Dataset,
		MaxAnswerLength: input.MaxAnswerLength,
		Choices:         input.Choices,
	}
	if q.Dataset == "" {
		q.Dataset = s.cfg.Dataset
	}
	if q.MaxAnswerLength <= 0 {
		q.MaxAnswerLength = s.cfg.MaxAnswerLength
	}

	answer, err := s.ports.Questions.RunQuestion(ctx, q)
	if err != nil {
		return nil, AnswerOutput{}, toolError(err)
	}
	log.Info("question answered", "question_id", q.ID, "termination", answer.Termination, "steps", len(answer.Steps))

	out := AnswerOutput{
		Answer:      answer.Text,
		Termination: string(answer.Termination),
		Fallback:    answer.Fallback,
		Steps:       make([]StepOutput, len(answer.Steps)),
	}
	for i, st := range answer.Steps {
		out.Steps[i] = StepOutput{
			Decision:  string(st.Decision),
			Query:     st.Query,
			PassageID: st.PassageID,
			Forced:    st.Forced,
			Error:     st.Error,
		}
	}
	for _, t := range answer.Evidence.Triples {
		out.Triples = append(out.Triples, TripleOutput{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object})
	}
	return nil, out, nil
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	passages, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{Limit: limit})
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}

	output := SearchOutput{
		Passages: make([]PassageOutput, len(passages)),
		Count:    len(passages),
	}
	for i := range passages {
		output.Passages[i] = PassageOutput{
			ID:    passages[i].ID,
			Title: passages[i].Title,
			Text:  passages[i].Text,
			Score: passages[i].Score,
		}
	}
	return nil, output, nil
}
