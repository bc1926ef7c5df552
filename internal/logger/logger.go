// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger wraps log/slog with the gateway's "[component]"-prefixed
// convention: every operational log line names the subsystem that emitted
// it so operators can grep a single process's output by component.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, nil
	}
}

// getLevelColor returns ANSI color code for a log level.
func getLevelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func isTerminal(file *os.File) bool {
	if fileInfo, err := file.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// componentHandler prefixes every record's message with "[component]" taken
// from the attrs installed by For, and colorizes the level when writing to
// a terminal.
type componentHandler struct {
	handler  slog.Handler
	writer   io.Writer
	useColor bool
	json     bool
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.json {
		return h.handler.Handle(ctx, record)
	}

	var buf strings.Builder
	if !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	levelStr := strings.ToUpper(record.Level.String())
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}
	if h.useColor {
		buf.WriteString(getLevelColor(record.Level))
		buf.WriteString(levelStr)
		buf.WriteString("\033[0m")
	} else {
		buf.WriteString(levelStr)
	}
	buf.WriteString(" ")

	component, rest := "", record
	rest.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" && component == "" {
			component = a.Value.String()
		}
		return true
	})
	if component != "" {
		buf.WriteString("[")
		buf.WriteString(component)
		buf.WriteString("] ")
	}
	buf.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			return true
		}
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{handler: h.handler.WithAttrs(attrs), writer: h.writer, useColor: h.useColor, json: h.json}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{handler: h.handler.WithGroup(name), writer: h.writer, useColor: h.useColor, json: h.json}
}

// Init installs the process-wide default logger. format is "json" for
// structured output or anything else ("simple", "") for the colorized
// "[component] message" text form.
func Init(level slog.Level, output *os.File, format string) {
	opts := &slog.HandlerOptions{Level: level}
	isJSON := format == "json"

	var base slog.Handler
	if isJSON {
		base = slog.NewJSONHandler(output, opts)
	} else {
		base = slog.NewTextHandler(output, opts)
	}

	handler := &componentHandler{
		handler:  base,
		writer:   output,
		useColor: isTerminal(output) && !isJSON,
		json:     isJSON,
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// For returns a logger that tags every record with "component" so
// componentHandler can render the "[component] message" prefix required by
// the error-handling design's propagation policy.
func For(component string) *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger.With("component", component)
}

// OpenLogFile opens or creates a log file at the specified path. Returns the
// file handle and a cleanup function, or an error.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}
