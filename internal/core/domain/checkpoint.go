package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Checkpoint format identifiers.
const (
	CheckpointFormat  = "ras-planner"
	CheckpointVersion = 1
)

// Planner feature names a checkpoint may reference.
const (
	FeatureBias            = "bias"
	FeatureSteps           = "steps"
	FeatureHops            = "hops"
	FeaturePassages        = "passages"
	FeatureTriples         = "triples"
	FeaturePending         = "pending"
	FeatureLastHopTriples  = "last_hop_triples"
	FeatureExtractedInHop  = "extracted_in_hop"
	FeatureFailedRetrieve  = "failed_retrieve"
	FeatureFailedExtract   = "failed_extract"
	FeatureQuestionLength  = "question_length"
	FeatureStalledRetrieve = "stalled_retrievals"
)

// KnownPlannerFeatures returns every feature name in canonical order.
func KnownPlannerFeatures() []string {
	return []string{
		FeatureBias,
		FeatureSteps,
		FeatureHops,
		FeaturePassages,
		FeatureTriples,
		FeaturePending,
		FeatureLastHopTriples,
		FeatureExtractedInHop,
		FeatureFailedRetrieve,
		FeatureFailedExtract,
		FeatureQuestionLength,
		FeatureStalledRetrieve,
	}
}

// ActionParams is the linear scorer of one decision kind.
type ActionParams struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Checkpoint holds the parameters of a trainable planner. It is decoded
// once at startup and never mutated afterwards.
type Checkpoint struct {
	Format   string                        `json:"format"`
	Version  int                           `json:"version"`
	Model    string                        `json:"model,omitempty"`
	Features []string                      `json:"features"`
	Actions  map[DecisionKind]ActionParams `json:"actions"`
	Metadata map[string]any                `json:"metadata,omitempty"`
}

// Validate checks the checkpoint matches the expected parameter schema.
func (c *Checkpoint) Validate() error {
	if c.Format != CheckpointFormat {
		return fmt.Errorf("format %q, want %q", c.Format, CheckpointFormat)
	}
	if c.Version != CheckpointVersion {
		return fmt.Errorf("version %d, want %d", c.Version, CheckpointVersion)
	}
	if len(c.Features) == 0 {
		return errors.New("no features")
	}
	known := KnownPlannerFeatures()
	seen := make(map[string]struct{}, len(c.Features))
	for _, f := range c.Features {
		if !slices.Contains(known, f) {
			return fmt.Errorf("unknown feature %q", f)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("duplicate feature %q", f)
		}
		seen[f] = struct{}{}
	}
	for kind := range c.Actions {
		if !kind.IsValid() {
			return fmt.Errorf("unknown action %q", kind)
		}
	}
	for _, kind := range AllDecisionKinds() {
		p, ok := c.Actions[kind]
		if !ok {
			return fmt.Errorf("missing parameters for action %q", kind)
		}
		if len(p.Weights) != len(c.Features) {
			return fmt.Errorf("action %q has %d weights for %d features", kind, len(p.Weights), len(c.Features))
		}
		if !finite(p.Bias) {
			return fmt.Errorf("action %q has non-finite bias", kind)
		}
		for i, w := range p.Weights {
			if !finite(w) {
				return fmt.Errorf("action %q weight %d is not finite", kind, i)
			}
		}
	}
	return nil
}

// TemplateCheckpoint returns a checkpoint whose weights reproduce a
// retrieve, extract, answer rhythm. It is a starting point for training.
func TemplateCheckpoint(model string) *Checkpoint {
	features := []string{FeatureBias, FeatureHops, FeaturePending, FeatureExtractedInHop, FeatureStalledRetrieve}
	return &Checkpoint{
		Format:   CheckpointFormat,
		Version:  CheckpointVersion,
		Model:    model,
		Features: features,
		Actions: map[DecisionKind]ActionParams{
			DecisionRetrieve: {Weights: []float64{1.5, -0.6, -1, 0, -2}},
			DecisionExtract:  {Weights: []float64{0, 0, 2.5, -3, 0}},
			DecisionAnswer:   {Weights: []float64{0, 0.5, -1, 0, 2}},
		},
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
