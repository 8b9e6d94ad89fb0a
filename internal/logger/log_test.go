package logger

import (
	"bytes"
	"testing"

	"logship/internal/config"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, zerolog.InfoLevel, Level(cfg))

	cfg.LogLevel = " WARN "
	assert.Equal(t, zerolog.WarnLevel, Level(cfg))

	cfg.LogLevel = "loud"
	assert.Equal(t, zerolog.InfoLevel, Level(cfg))

	cfg.LogLevel = "error"
	cfg.Debug = true
	assert.Equal(t, zerolog.DebugLevel, Level(cfg))
}

func TestNewAddsCommonFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	cfg := config.Default()
	cfg.ServiceName = "logship"
	cfg.InstanceID = "host-1"

	var buf bytes.Buffer
	lg := New(cfg, &buf)
	lg.Debug().Msg("hidden")
	lg.Info().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "logship", line["service"])
	assert.Equal(t, "host-1", line["instance"])
}
