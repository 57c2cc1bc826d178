package domain

// DecisionKind enumerates the planner's possible actions.
type DecisionKind string

// Available decisions.
const (
	// DecisionRetrieve asks the knowledge retriever for more passages.
	DecisionRetrieve DecisionKind = "retrieve"

	// DecisionExtract turns one retrieved passage into triples.
	DecisionExtract DecisionKind = "extract"

	// DecisionAnswer terminates the loop and generates the answer.
	DecisionAnswer DecisionKind = "answer"
)

// IsValid returns true if the decision kind is recognised.
func (k DecisionKind) IsValid() bool {
	switch k {
	case DecisionRetrieve, DecisionExtract, DecisionAnswer:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k DecisionKind) String() string {
	return string(k)
}

// AllDecisionKinds returns the decisions in tie-break priority order.
func AllDecisionKinds() []DecisionKind {
	return []DecisionKind{DecisionAnswer, DecisionExtract, DecisionRetrieve}
}

// Decision is the planner's output for one loop iteration. Query is set
// only for Retrieve, Passage only for Extract.
type Decision struct {
	Kind    DecisionKind
	Query   string
	Passage Passage
}

// Retrieve creates a Retrieve decision.
func Retrieve(query string) Decision {
	return Decision{Kind: DecisionRetrieve, Query: query}
}

// Extract creates an Extract decision.
func Extract(p Passage) Decision {
	return Decision{Kind: DecisionExtract, Passage: p}
}

// AnswerNow creates an Answer decision.
func AnswerNow() Decision {
	return Decision{Kind: DecisionAnswer}
}
