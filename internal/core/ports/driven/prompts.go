package driven

// PromptStore serves the templates of the LLM-backed stages. Missing
// overrides fall back to built-in defaults.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Prompt names.
const (
	// PromptTripleExtraction has exactly one %s, replaced by the passage.
	PromptTripleExtraction = "triple_extraction"

	// PromptAnswerer is the instruction line heading the answerer input.
	PromptAnswerer = "answerer"
)
