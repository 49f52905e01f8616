// Package log configures the process-wide [slog] handler.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Output formats accepted by [CreateHandlerWithStrings].
const (
	TextFormat   = "text"
	LogfmtFormat = "logfmt"
	JSONFormat   = "json"
)

// DefaultFormat picks a format based on whether w is a terminal: styled
// text for interactive sessions, logfmt otherwise.
func DefaultFormat(w io.Writer) string {
	type fder interface{ Fd() uintptr }

	if f, ok := w.(fder); ok && isatty.IsTerminal(f.Fd()) {
		return TextFormat
	}

	return LogfmtFormat
}

// CreateHandlerWithStrings creates a [slog.Handler] writing to w from
// string level and format values, typically sourced from CLI flags.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	if logFormat == "" {
		logFormat = DefaultFormat(w)
	}

	switch strings.ToLower(logFormat) {
	case JSONFormat:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case TextFormat:
		return charmHandler(w, level, charmlog.TextFormatter), nil
	case LogfmtFormat:
		return charmHandler(w, level, charmlog.LogfmtFormatter), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", logFormat)
	}
}

func charmHandler(w io.Writer, level slog.Level, formatter charmlog.Formatter) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// ParseLevel converts a string level into a [slog.Level]. An empty
// string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
