package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf).
		WithComponent("workflow").
		WithKind("photo").
		WithRequestID("req-1")

	log.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "workflow", line["component"])
	assert.Equal(t, "photo", line["kind"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestNewWithLevel_FallsBackToInfo(t *testing.T) {
	log := NewWithLevel("console", "production", "nonsense")
	assert.Equal(t, "info", log.GetLevel().String())

	log = NewWithLevel("console", "production", "debug")
	assert.Equal(t, "debug", log.GetLevel().String())
}
