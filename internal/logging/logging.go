// Package logging builds the zerolog logger shared by the runner and the
// simulation core.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/smentu/AI-guided-rockets/internal/config"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names are info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED", "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// LogFilePath returns the log file for a run started at t.
func LogFilePath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("rocketsim_%s.log", t.UTC().Format("20060102_150405")))
}

// Logger is a configured logger plus the sinks that must be closed with it.
type Logger struct {
	zerolog.Logger
	closers []io.Closer
}

// Close flushes and closes the file and GELF sinks.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Setup builds the logger: console format to console, uncoloured console
// format to a file under cfg.Dir when it is set, and GELF to Graylog when
// enabled.
func Setup(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	if console == nil {
		console = os.Stdout
	}
	l := &Logger{}
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		},
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		file, err := os.OpenFile(LogFilePath(cfg.Dir, time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.closers = append(l.closers, file)
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	if cfg.Graylog {
		gw, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to create graylog writer: %w", err)
		}
		l.closers = append(l.closers, gw)
		writers = append(writers, gw)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Logger()

	l.Info().Str("loglevel", l.GetLevel().String()).Msg("Logging set up")
	return l, nil
}
