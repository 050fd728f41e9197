// Package logging builds wired.Logger values from configuration.
//
// The slog backend is the default. The zap backend wraps a sugared
// *zap.Logger so applications already logging through zap keep a single
// pipeline.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/junioryono/wired"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Backends accepted by New.
const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects the backend and its output.
type Options struct {
	// Backend is "slog" (default) or "zap".
	Backend string

	// Level is one of debug, info, warn or error. Defaults to info.
	Level string

	// Format is "text" (default) or "json".
	Format string

	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer
}

// New creates a logger from opts.
func New(opts Options) (wired.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendSlog:
		return newSlog(out, level, format), nil
	case BackendZap:
		return NewZap(newZap(out, level, format)), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func newSlog(out io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func newZap(out io.Writer, level slog.Level, format string) *zap.Logger {
	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zapLevel(level))
	return zap.New(core)
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
