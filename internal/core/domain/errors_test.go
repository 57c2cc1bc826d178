package domain

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrPolicyLoad", ErrPolicyLoad},
		{"ErrStepFailure", ErrStepFailure},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrSearchUnavailable", ErrSearchUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrEmptyKnowledge", ErrEmptyKnowledge},
		{"ErrEmptyAnswer", ErrEmptyAnswer},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("retrieval_mode", "sparse", "must be one of dense_only, hybrid, keyword_only")

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), `retrieval_mode="sparse"`)

	var ce *ConfigurationError
	wrapped := errors.Join(errors.New("other"), err)
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "retrieval_mode", ce.Field)
}

func TestConfigurationError_NoValue(t *testing.T) {
	err := NewConfigurationError("planner_checkpoint", "", "is required")
	assert.Equal(t, "configuration error: planner_checkpoint: is required", err.Error())
}

func TestPolicyLoadError(t *testing.T) {
	err := &PolicyLoadError{Path: "/tmp/missing.json", Reason: "cannot read", Err: os.ErrNotExist}

	assert.True(t, errors.Is(err, ErrPolicyLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "/tmp/missing.json")

	bare := &PolicyLoadError{Path: "p", Reason: "bad schema"}
	assert.True(t, errors.Is(bare, ErrPolicyLoad))
}

func TestStepFailure(t *testing.T) {
	cause := errors.New("connection refused")
	err := &StepFailure{Step: 3, Kind: DecisionRetrieve, Err: cause}

	assert.True(t, errors.Is(err, ErrStepFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "step failure: step 3 (retrieve): connection refused", err.Error())
}
