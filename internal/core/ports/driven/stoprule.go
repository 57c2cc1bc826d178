package driven

import "github.com/custodia-labs/ras-cli/internal/core/domain"

// StopRule decides when further retrieval is unproductive. The planner
// turns a Retrieve decision into Answer when ShouldStop returns true.
// Implementations must be safe for concurrent use.
type StopRule interface {
	// Name identifies the rule in logs.
	Name() string

	// ShouldStop reports whether the planner should answer instead of
	// retrieving again.
	ShouldStop(stats domain.EvidenceStats) bool
}
