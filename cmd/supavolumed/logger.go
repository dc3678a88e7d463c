package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel is the --log-level value.
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelError: slog.LevelError,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelDebug: slog.LevelDebug,
}

// parseLogLevel accepts a level name in any case; "warning" is an alias for warn.
func parseLogLevel(level string) (LogLevel, error) {
	l := LogLevel(strings.ToLower(level))
	if l == "warning" {
		l = LogLevelWarn
	}
	if _, ok := slogLevels[l]; !ok {
		return "", fmt.Errorf("invalid log level %q (must be error, warn, info, or debug)", level)
	}
	return l, nil
}

// setupLogger returns a text logger on w tagged with the app name.
// Session autostart usually discards stdout, so main passes stderr, which
// ends up in the user journal.
func setupLogger(level LogLevel, w io.Writer) *slog.Logger {
	lvl, ok := slogLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", appName)
}
