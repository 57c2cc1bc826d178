package domain

const unknownDescription = "Unknown"

// RetrievalMode selects the backend that serves Retrieve decisions.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalDenseOnly ranks passages by embedding similarity.
	RetrievalDenseOnly RetrievalMode = "dense_only"

	// RetrievalHybrid fuses dense and keyword rankings.
	RetrievalHybrid RetrievalMode = "hybrid"

	// RetrievalKeywordOnly ranks passages with full-text search.
	RetrievalKeywordOnly RetrievalMode = "keyword_only"
)

// DefaultTopK is the number of passages returned per retrieval.
const DefaultTopK = 10

// IsValid returns true if the retrieval mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalDenseOnly, RetrievalHybrid, RetrievalKeywordOnly:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m RetrievalMode) RequiresEmbedding() bool {
	return m == RetrievalDenseOnly || m == RetrievalHybrid
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalDenseOnly:
		return "Dense only (vector similarity)"
	case RetrievalHybrid:
		return "Hybrid (dense + keyword, rank fusion)"
	case RetrievalKeywordOnly:
		return "Keyword only (full-text search)"
	default:
		return unknownDescription
	}
}

// AllRetrievalModes returns all available retrieval modes.
func AllRetrievalModes() []RetrievalMode {
	return []RetrievalMode{RetrievalDenseOnly, RetrievalHybrid, RetrievalKeywordOnly}
}

// SearchOptions configures a knowledge search.
type SearchOptions struct {
	// Source is the knowledge source identifier.
	Source string

	// Mode is the retrieval mode.
	Mode RetrievalMode

	// Limit is the maximum number of passages.
	Limit int
}
