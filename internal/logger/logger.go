package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger used across the harvester. kind is a stable event tag.
type Logger interface {
	DebugObj(msg, kind string, fields map[string]any)
	InfoObj(msg, kind string, fields map[string]any)
	WarnObj(msg, kind string, fields map[string]any)
	ErrorObj(msg, kind string, fields map[string]any)
	Sync() error
}

// Options configures the zap logger.
type Options struct {
	Level      string
	Encoding   string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a zap backed Logger writing to stdout and, when File is set, a rotated log file.
func New(opts Options) (Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Encoding)) {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log encoding %q", opts.Encoding)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if file := strings.TrimSpace(opts.File); file != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	return &zapLogger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger{}
	}
	return &zapLogger{z: z}
}

func parseLevel(raw string) (zapcore.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	if raw == "warning" {
		raw = "warn"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return lvl, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return lvl, nil
}

func (l *zapLogger) DebugObj(msg, kind string, fields map[string]any) {
	l.z.Debug(msg, toFields(kind, fields)...)
}

func (l *zapLogger) InfoObj(msg, kind string, fields map[string]any) {
	l.z.Info(msg, toFields(kind, fields)...)
}

func (l *zapLogger) WarnObj(msg, kind string, fields map[string]any) {
	l.z.Warn(msg, toFields(kind, fields)...)
}

func (l *zapLogger) ErrorObj(msg, kind string, fields map[string]any) {
	l.z.Error(msg, toFields(kind, fields)...)
}

func (l *zapLogger) Sync() error { return l.z.Sync() }

func toFields(kind string, fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if kind != "" {
		out = append(out, zap.String("kind", kind))
	}
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) DebugObj(string, string, map[string]any) {}
func (NopLogger) InfoObj(string, string, map[string]any)  {}
func (NopLogger) WarnObj(string, string, map[string]any)  {}
func (NopLogger) ErrorObj(string, string, map[string]any) {}
func (NopLogger) Sync() error                             { return nil }
