package services

import (
	"fmt"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure StallStopRule implements the interface.
var _ driven.StopRule = StallStopRule{}

// stallWindow is the number of unproductive retrievals that trigger a stop.
const stallWindow = 2

// StallStopRule stops retrieval once the evidence holds more than
// PassageThreshold passages and the last two retrievals added no triples.
type StallStopRule struct {
	PassageThreshold int
}

// Name identifies the rule in logs.
func (r StallStopRule) Name() string {
	return fmt.Sprintf("stall(passages>%d)", r.PassageThreshold)
}

// ShouldStop reports whether retrieval has stalled.
func (r StallStopRule) ShouldStop(st domain.EvidenceStats) bool {
	return st.Passages > r.PassageThreshold && st.StalledRetrievals >= stallWindow
}
