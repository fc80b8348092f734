package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "debug", Format: "json"}, &buf), "auth")

	log.Debug().Str("user_id", "u1").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "auth", line["component"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "hello", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "loud"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Debug().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "console"}, &buf)
	log.Info().Msg("ready")
	assert.Contains(t, buf.String(), "ready")
	assert.NotContains(t, buf.String(), `"message"`)
}
