package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		require.NoError(t, Init(false, FormatText, os.Stderr))
	})
}

func TestSetVerbose(t *testing.T) {
	reset(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	reset(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("dispatch", "step", 2)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "msg=dispatch")
	assert.Contains(t, buf.String(), "step=2")
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	reset(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")

	assert.Zero(t, buf.Len())
}

func TestInfo_AlwaysWritten(t *testing.T) {
	reset(t)

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("loaded", "questions", 3)
	Warn("degraded")
	Error("failed")

	out := buf.String()
	assert.Contains(t, out, "msg=loaded")
	assert.Contains(t, out, "questions=3")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}

func TestSection(t *testing.T) {
	reset(t)

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("hidden")
	assert.Zero(t, buf.Len())

	SetVerbose(true)
	Section("Question q1")
	assert.Equal(t, "\n=== Question q1 ===\n", buf.String())
}

func TestNew_FollowsLaterConfiguration(t *testing.T) {
	reset(t)

	log := New("orchestrator")

	var buf bytes.Buffer
	require.NoError(t, Init(false, FormatJSON, &buf))

	log.Info("step", "decision", "retrieve")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "orchestrator", rec["component"])
	assert.Equal(t, "retrieve", rec["decision"])
	assert.Equal(t, "step", rec["msg"])
}

func TestInit_RejectsUnknownFormat(t *testing.T) {
	reset(t)

	err := Init(false, Format("xml"), nil)
	assert.Error(t, err)
}
