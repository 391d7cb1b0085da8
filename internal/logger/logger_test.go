package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "INFO", "json")
	require.NoError(t, err)

	chatLog := Component(log, "chat")
	chatLog.Info().Str("session_id", "abc").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "chat", entry["component"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Contains(t, entry, "time")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "warn", "json")
	require.NoError(t, err)

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
