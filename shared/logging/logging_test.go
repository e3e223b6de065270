package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/automoto/fpsync/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestNewWithWriter_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(config.LogConfig{Level: "warn"}, &buf), "server")

	l.Info().Msg("hidden")
	l.Warn().Int("dropped", 3).Msg("queue full")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "queue full", entry["message"])
	assert.Equal(t, "server", entry["component"])
	assert.EqualValues(t, 3, entry["dropped"])
}

func TestNewWithWriter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "info", Pretty: true}, &buf)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestSampled_LimitsRepeatedWarnings(t *testing.T) {
	var buf bytes.Buffer
	l := Sampled(NewWithWriter(config.LogConfig{Level: "info"}, &buf))

	for i := 0; i < 50; i++ {
		l.Warn().Int("i", i).Msg("queue full")
	}

	// the burst of 5, then the first of every 100
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 6)
	assert.Contains(t, string(lines[0]), `"sampled":true`)
}
