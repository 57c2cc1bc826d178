package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.api.BaseURL())
}

func TestLLMService_Complete(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response": "(Ohio, capital, Columbus)", "done": true, "done_reason": "stop",
			"prompt_eval_count": 80, "eval_count": 9}`))
	}))
	defer server.Close()

	svc := NewLLMService(Config{BaseURL: server.URL, Model: "qwen2.5"})
	out, err := svc.Complete(context.Background(), driven.Prompt{
		System:    "sys",
		User:      "Columbus is the capital of Ohio.",
		MaxTokens: 128,
		Stop:      []string{"###"},
	})

	require.NoError(t, err)
	assert.Equal(t, driven.Completion{Text: "(Ohio, capital, Columbus)", InputTokens: 80, OutputTokens: 9}, out)
	assert.Equal(t, "qwen2.5", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, "Columbus is the capital of Ohio.", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 128, got.Options.NumPredict)
	assert.Equal(t, []string{"###"}, got.Options.Stop)
}

func TestLLMService_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "Colu", "done_reason": "length"}`))
	}))
	defer server.Close()

	out, err := NewLLMService(Config{BaseURL: server.URL}).Complete(context.Background(), driven.Prompt{User: "q", MaxTokens: 1})
	require.NoError(t, err)
	assert.True(t, out.Truncated)
}

func TestLLMService_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"missing\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := NewLLMService(Config{BaseURL: server.URL}).Complete(context.Background(), driven.Prompt{User: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestLLMService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewLLMService(Config{BaseURL: url, MaxTries: 1})
	err := svc.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
