// file: internal/logging/logger_test.go
// version: 1.0.0
// guid: db5461b7-7a3c-45f1-8e51-0e5a4bea46fe

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Output: &buf})

	logger.Debug().Str("album", "/music/a").Msg("refresh complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "/music/a", entry["album"])
	assert.Equal(t, "refresh complete", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "WARN", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	for _, lvl := range []string{"", "verbose"} {
		logger := New(Config{Level: lvl, Output: &bytes.Buffer{}})
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel(), lvl)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})

	logger.Info().Str("artist", "The Beatles").Msg("no match")

	out := buf.String()
	assert.Contains(t, out, "no match")
	assert.Contains(t, out, "artist=")
	assert.NotContains(t, out, "\x1b[", "buffers are not terminals")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
