package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	t.Setenv(DebugEnv, "")
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	closer, err := Setup("info", path)
	require.NoError(t, err)

	logger := Component("store")
	logger.Info().Str("thread", "abc").Msg("created")
	logger.Debug().Msg("hidden at info level")
	closer()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"cmp":"store"`)
	assert.Contains(t, out, `"thread":"abc"`)
	assert.NotContains(t, out, "hidden at info level")
}

func TestSetupDebugEnv(t *testing.T) {
	t.Setenv(DebugEnv, "1")
	path := filepath.Join(t.TempDir(), "debug.log")

	closer, err := Setup("error", path)
	require.NoError(t, err)
	log.Debug().Msg("visible")
	closer()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestSetupInvalidLevel(t *testing.T) {
	t.Setenv(DebugEnv, "")
	_, err := Setup("loud", "")
	assert.Error(t, err)
}

func TestDefaultFile(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := DefaultFile(ts)
	assert.True(t, strings.HasSuffix(got, filepath.Join(".codeassist", "logs", "codeassist-2026-01-02_03-04-05.log")), got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))

	// "é" is two bytes; a cut inside it backs off to the rune start.
	got := Truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "aé...", Truncate("aébc", 3))
}
