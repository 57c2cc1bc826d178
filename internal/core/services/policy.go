package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// maxCheckpointSize rejects files that cannot be a planner checkpoint.
const maxCheckpointSize = 64 << 20

// PolicyKind tags the active PlannerPolicy variant.
type PolicyKind string

// Policy variants.
const (
	PolicyFrozen    PolicyKind = "frozen"
	PolicyTrainable PolicyKind = "trainable"
)

// PlannerPolicy is a tagged variant over the frozen and trainable
// policies. Exactly one of the variant fields is set. A policy is
// immutable once constructed and may be shared by concurrent loops.
type PlannerPolicy struct {
	kind      PolicyKind
	frozen    *FrozenPolicy
	trainable *TrainablePolicy
}

// Kind returns the active variant.
func (p PlannerPolicy) Kind() PolicyKind {
	return p.kind
}

// String describes the policy for logs.
func (p PlannerPolicy) String() string {
	switch p.kind {
	case PolicyFrozen:
		return fmt.Sprintf("frozen(max_hops=%d, extract_per_hop=%d)", p.frozen.maxHops, p.frozen.extractPerHop)
	case PolicyTrainable:
		return fmt.Sprintf("trainable(model=%q, features=%d)", p.trainable.model, len(p.trainable.features))
	default:
		return "invalid"
	}
}

// NewFrozenPolicy returns a frozen policy variant.
func NewFrozenPolicy(maxHops, extractPerHop int) PlannerPolicy {
	if maxHops < 1 {
		maxHops = 1
	}
	if extractPerHop < 1 {
		extractPerHop = 1
	}
	return PlannerPolicy{
		kind:   PolicyFrozen,
		frozen: &FrozenPolicy{maxHops: maxHops, extractPerHop: extractPerHop},
	}
}

// NewTrainablePolicy returns a trainable policy variant holding a copy of
// the checkpoint parameters.
func NewTrainablePolicy(cp *domain.Checkpoint, extractPerHop int) (PlannerPolicy, error) {
	if err := cp.Validate(); err != nil {
		return PlannerPolicy{}, err
	}
	if extractPerHop < 1 {
		extractPerHop = 1
	}
	tp := &TrainablePolicy{
		model:         cp.Model,
		features:      append([]string(nil), cp.Features...),
		weights:       make(map[domain.DecisionKind][]float64, len(cp.Actions)),
		bias:          make(map[domain.DecisionKind]float64, len(cp.Actions)),
		extractPerHop: extractPerHop,
	}
	for kind, params := range cp.Actions {
		tp.weights[kind] = append([]float64(nil), params.Weights...)
		tp.bias[kind] = params.Bias
	}
	return PlannerPolicy{kind: PolicyTrainable, trainable: tp}, nil
}

// LoadPolicy builds the policy selected by settings. A trainable policy
// loads its checkpoint here, once, and never falls back to frozen.
func LoadPolicy(settings domain.PlannerSettings) (PlannerPolicy, error) {
	if settings.Frozen {
		logger.Info("planner policy", "kind", PolicyFrozen, "max_hops", settings.MaxHops)
		return NewFrozenPolicy(settings.MaxHops, settings.ExtractPerHop), nil
	}
	if settings.Checkpoint == "" {
		return PlannerPolicy{}, domain.NewConfigurationError("planner_checkpoint", "", "is required when planner_frozen is false")
	}
	cp, err := LoadCheckpoint(settings.Checkpoint, settings.Model)
	if err != nil {
		return PlannerPolicy{}, err
	}
	policy, err := NewTrainablePolicy(cp, settings.ExtractPerHop)
	if err != nil {
		return PlannerPolicy{}, &domain.PolicyLoadError{Path: settings.Checkpoint, Reason: "schema mismatch", Err: err}
	}
	logger.Info("planner policy", "kind", PolicyTrainable, "checkpoint", settings.Checkpoint, "model", cp.Model)
	return policy, nil
}

// LoadCheckpoint reads and validates a planner checkpoint. When
// plannerModel is set, the checkpoint must have been produced for it.
// Every failure is a *domain.PolicyLoadError.
func LoadCheckpoint(path, plannerModel string) (*domain.Checkpoint, error) {
	fail := func(reason string, err error) (*domain.Checkpoint, error) {
		return nil, &domain.PolicyLoadError{Path: path, Reason: reason, Err: err}
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist", err)
	case err != nil:
		return fail("unreadable", err)
	case info.IsDir():
		return fail("is a directory", nil)
	case info.Size() > maxCheckpointSize:
		return fail(fmt.Sprintf("larger than %d bytes", maxCheckpointSize), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("unreadable", err)
	}

	var cp domain.Checkpoint
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cp); err != nil {
		return fail("schema mismatch", err)
	}
	if err := cp.Validate(); err != nil {
		return fail("schema mismatch", err)
	}
	if plannerModel != "" && cp.Model != "" && cp.Model != plannerModel {
		return fail(fmt.Sprintf("trained for planner model %q, configured %q", cp.Model, plannerModel), nil)
	}
	return &cp, nil
}

// WriteCheckpoint stores a checkpoint as indented JSON.
func WriteCheckpoint(path string, cp *domain.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
