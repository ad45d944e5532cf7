package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DebugEnv forces debug logging when set to "1".
const DebugEnv = "CODEASSIST_DEBUG"

// Setup configures the global zerolog logger.
//
// Logs never go to stdout: stdout carries protocol responses in serve mode.
// When file is empty and debug logging is requested, a timestamped file under
// ~/.codeassist/logs is used; otherwise logs go to stderr.
// The returned func closes the log file.
func Setup(level, file string) (func(), error) {
	closer := func() {}

	if os.Getenv(DebugEnv) == "1" {
		level = "debug"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return closer, err
	}

	if file == "" && lvl <= zerolog.DebugLevel {
		file = DefaultFile(time.Now())
	}

	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return closer, fmt.Errorf("create logs dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, err
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	zerolog.SetGlobalLevel(lvl)
	return closer, nil
}

// DefaultFile returns the per-run log path for t.
func DefaultFile(t time.Time) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".codeassist", "logs", fmt.Sprintf("codeassist-%s.log", t.Format("2006-01-02_15-04-05")))
}

// Component creates a new logger with a component identifier.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}

// Truncate shortens s to at most max bytes for log payloads, cutting on a
// rune boundary.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
