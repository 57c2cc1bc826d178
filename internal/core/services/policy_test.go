package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCheckpoint_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	require.NoError(t, WriteCheckpoint(path, domain.TemplateCheckpoint("planner-v1")))

	cp, err := LoadCheckpoint(path, "planner-v1")

	require.NoError(t, err)
	assert.Equal(t, domain.TemplateCheckpoint("planner-v1"), cp)
}

func TestLoadCheckpoint_Failures(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, WriteCheckpoint(valid, domain.TemplateCheckpoint("planner-v1")))

	tests := []struct {
		name   string
		path   string
		model  string
		reason string
	}{
		{"missing file", filepath.Join(dir, "nope.json"), "", "does not exist"},
		{"directory", dir, "", "is a directory"},
		{"not json", writeFile(t, "bad.json", "weights: [1, 2]"), "", "schema mismatch"},
		{"unknown field", writeFile(t, "extra.json", `{"format":"ras-planner","version":1,"layers":3}`), "", "schema mismatch"},
		{"wrong version", writeFile(t, "v2.json", `{"format":"ras-planner","version":2,"features":["bias"],"actions":{}}`), "", "schema mismatch"},
		{"model mismatch", valid, "planner-v2", `trained for planner model "planner-v1", configured "planner-v2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCheckpoint(tt.path, tt.model)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPolicyLoad)
			var ple *domain.PolicyLoadError
			require.True(t, errors.As(err, &ple))
			assert.Equal(t, tt.path, ple.Path)
			assert.Equal(t, tt.reason, ple.Reason)
		})
	}
}

func TestWriteCheckpoint_RejectsInvalid(t *testing.T) {
	cp := domain.TemplateCheckpoint("")
	cp.Version = 9

	err := WriteCheckpoint(filepath.Join(t.TempDir(), "x.json"), cp)

	assert.Error(t, err)
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	require.NoError(t, WriteCheckpoint(path, domain.TemplateCheckpoint("")))

	frozen, err := LoadPolicy(domain.PlannerSettings{Frozen: true, MaxHops: 3, ExtractPerHop: 2})
	require.NoError(t, err)
	assert.Equal(t, PolicyFrozen, frozen.Kind())
	assert.Equal(t, "frozen(max_hops=3, extract_per_hop=2)", frozen.String())

	trainable, err := LoadPolicy(domain.PlannerSettings{Checkpoint: path, Model: "any", ExtractPerHop: 1})
	require.NoError(t, err)
	assert.Equal(t, PolicyTrainable, trainable.Kind())
}

func TestLoadPolicy_TrainableNeverFallsBack(t *testing.T) {
	_, err := LoadPolicy(domain.PlannerSettings{Checkpoint: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, domain.ErrPolicyLoad)

	_, err = LoadPolicy(domain.PlannerSettings{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewFrozenPolicy_ClampsParameters(t *testing.T) {
	p := NewFrozenPolicy(0, -1)
	assert.Equal(t, "frozen(max_hops=1, extract_per_hop=1)", p.String())
}

func TestNewTrainablePolicy_CopiesParameters(t *testing.T) {
	cp := domain.TemplateCheckpoint("")
	p, err := NewTrainablePolicy(cp, 1)
	require.NoError(t, err)

	cp.Actions[domain.DecisionRetrieve].Weights[0] = 100

	scores := p.trainable.Scores(question("q", "Who?"), domain.NewEvidenceState())
	assert.InDelta(t, 1.5, scores[domain.DecisionRetrieve], 1e-9)
}

func TestNewTrainablePolicy_RejectsInvalidCheckpoint(t *testing.T) {
	cp := domain.TemplateCheckpoint("")
	cp.Features = append(cp.Features, "mystery")

	_, err := NewTrainablePolicy(cp, 1)
	assert.Error(t, err)
}

func TestFrozenPolicy_Deterministic(t *testing.T) {
	policy := NewFrozenPolicy(2, 1)
	q := question("q", "Who wrote Jaws?")
	s := domain.NewEvidenceState()
	s.AddRetrieval("Who wrote Jaws?", passagesOf("p1", "p2"))

	first := policy.frozen.decide(q, s)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, policy.frozen.decide(q, s))
	}
	assert.Equal(t, domain.DecisionExtract, first.Kind)
	assert.Equal(t, "p1", first.Passage.ID)
}

func TestFrozenPolicy_AfterRetrieveFailure(t *testing.T) {
	policy := NewFrozenPolicy(3, 1)
	q := question("q", "Who wrote Jaws?")

	// No evidence yet: the first retrieval is retried.
	s := domain.NewEvidenceState()
	s.RecordFailure(0, domain.Retrieve("Who wrote Jaws?"), errors.New("timeout"))
	assert.Equal(t, domain.DecisionRetrieve, policy.frozen.decide(q, s).Kind)

	// With evidence: answer from what is there.
	s = domain.NewEvidenceState()
	s.AddRetrieval("Who wrote Jaws?", passagesOf("p1"))
	s.AddExtraction("p1", nil)
	s.RecordFailure(2, domain.Retrieve("Who wrote Jaws? Benchley"), errors.New("timeout"))
	assert.Equal(t, domain.DecisionAnswer, policy.frozen.decide(q, s).Kind)
}

func TestTrainablePolicy_MasksExtractWithoutPassages(t *testing.T) {
	cp := domain.TemplateCheckpoint("")
	// Extract would win everywhere if it were allowed.
	cp.Actions[domain.DecisionExtract] = domain.ActionParams{Weights: make([]float64, len(cp.Features)), Bias: 100}
	policy, err := NewTrainablePolicy(cp, 1)
	require.NoError(t, err)

	d := policy.trainable.decide(question("q", "Who?"), domain.NewEvidenceState())

	assert.Equal(t, domain.DecisionRetrieve, d.Kind)
}

func TestTrainablePolicy_TiesPreferAnswer(t *testing.T) {
	cp := domain.TemplateCheckpoint("")
	for kind := range cp.Actions {
		cp.Actions[kind] = domain.ActionParams{Weights: make([]float64, len(cp.Features))}
	}
	policy, err := NewTrainablePolicy(cp, 1)
	require.NoError(t, err)

	s := domain.NewEvidenceState()
	s.AddRetrieval("q", passagesOf("p1"))

	assert.Equal(t, domain.DecisionAnswer, policy.trainable.decide(question("q", "Who?"), s).Kind)
}

func TestFeatureValue(t *testing.T) {
	st := domain.EvidenceStats{Hops: 2, Pending: 3, ExtractedInHop: 1, FailedRetrieve: true, StalledRetrievals: 1}

	assert.InDelta(t, 1.0, featureValue(domain.FeatureBias, st), 1e-9)
	assert.InDelta(t, 2.0, featureValue(domain.FeatureHops, st), 1e-9)
	assert.InDelta(t, 1.0, featureValue(domain.FeaturePending, st), 1e-9)
	assert.InDelta(t, 1.0, featureValue(domain.FeatureFailedRetrieve, st), 1e-9)
	assert.InDelta(t, 0.0, featureValue(domain.FeatureFailedExtract, st), 1e-9)
	assert.InDelta(t, 0.0, featureValue(domain.FeaturePassages, st), 1e-9)
	assert.InDelta(t, 0.0, featureValue("unknown", st), 1e-9)
}
