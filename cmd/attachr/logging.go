package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"attachr/internal/config"
)

const (
	logLevelEnvKey  = "ATTACHR_LOG_LEVEL"
	logFormatEnvKey = "ATTACHR_LOG_FORMAT"
)

// logWriter receives CLI logs. Tests swap it.
var logWriter io.Writer = os.Stderr

// levelChoice is a raw log level and where it came from.
type levelChoice struct {
	raw    string
	source string
}

// chooseLogLevel picks the first non-blank level in flag, env, config order.
func chooseLogLevel(flagLevel, envLevel, configLevel string) levelChoice {
	for _, c := range []levelChoice{
		{raw: flagLevel, source: "flag"},
		{raw: envLevel, source: "env"},
		{raw: configLevel, source: "config"},
	} {
		if strings.TrimSpace(c.raw) != "" {
			return c
		}
	}
	return levelChoice{source: "default"}
}

// configureLoggerForCLI installs the default logger. A bad --log-level is an
// error; a bad env or config level falls back to info and returns a warning.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	choice := chooseLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(choice.raw)
	if err == nil {
		slog.SetDefault(newLogger(level))
		return "", nil
	}

	var warning string
	switch choice.source {
	case "flag":
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case "env":
		warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel)
	case "config":
		warning = fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel)
	}
	fallback, _ := parseLogLevel(config.DefaultLogLevel)
	slog.SetDefault(newLogger(fallback))
	return warning, nil
}

// parseLogLevel accepts slog names, "warning" and numeric levels. Blank
// means info.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// newLogger builds a text handler, or a JSON one when ATTACHR_LOG_FORMAT=json
// so upload logs can be shipped alongside --json output.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(logFormatEnvKey)), "json") {
		return slog.New(slog.NewJSONHandler(logWriter, opts))
	}
	return slog.New(slog.NewTextHandler(logWriter, opts))
}

// sessionLogger tags every uploader log line with its area and command.
func sessionLogger(area, command string) *slog.Logger {
	logger := slog.Default().With("area", area)
	if command != "" {
		logger = logger.With("cmd", command)
	}
	return logger
}
