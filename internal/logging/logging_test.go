package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("Trace"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestLogFilePath(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "rocketsim_20240305_140709.log"), LogFilePath("logs", ts))
}

func TestSetup_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer log.Close()

	log.Info().Msg("hidden")
	log.Warn().Str("vehicle", "lander").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "vehicle")
	assert.Contains(t, out, "lander")
}

func TestSetup_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	log, err := Setup(config.LogConfig{Level: "debug", Dir: dir}, &buf)
	require.NoError(t, err)

	log.Debug().Msg("to file")
	require.NoError(t, log.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.NotContains(t, string(data), "\x1b[")
}
