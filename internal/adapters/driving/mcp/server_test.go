package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing question runner returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}}, Config{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQuestionRunner)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(validPorts(), Config{})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, DefaultMaxAnswerLength, server.cfg.MaxAnswerLength)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil question runner returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingQuestionRunner)
	})

	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Questions: &mockQuestionRunner{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingSearchService)
	})

	t.Run("history is optional", func(t *testing.T) {
		assert.NoError(t, validPorts().Validate())
	})
}

func TestServer_RunHTTP(t *testing.T) {
	server, err := NewServer(validPorts(), Config{})
	require.NoError(t, err)

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.NoError(t, server.RunHTTP(ctx, "127.0.0.1:0"))
	})

	t.Run("bad address fails", func(t *testing.T) {
		err := server.RunHTTP(context.Background(), "127.0.0.1:-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mcp http")
	})
}
