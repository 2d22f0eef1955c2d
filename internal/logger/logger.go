// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides module-tagged structured logging for ragdash.
//
// Records go to a rotating JSON file and, unless the console is muted
// (the dashboard owns the terminal), to stderr as well.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Details carries structured fields attached to a log record.
type Details map[string]interface{}

// Options configures a Logger.
type Options struct {
	// FilePath is the rotating log file. Empty disables the file core.
	FilePath string

	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Console enables the stderr core.
	Console bool

	// Console writer override (tests).
	ConsoleWriter io.Writer

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a thin module-tagged wrapper around a zap.Logger.
type Logger struct {
	zl     *zap.Logger
	rotate *lumberjack.Logger
}

// New builds a Logger from opts.
func New(opts Options) *Logger {
	level := parseLevel(opts.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "message"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	var rotator *lumberjack.Logger

	if opts.FilePath != "" {
		_ = os.MkdirAll(filepath.Dir(opts.FilePath), 0700)
		rotator = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	if opts.Console {
		w := opts.ConsoleWriter
		if w == nil {
			w = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(w)),
			level,
		))
	}

	if len(cores) == 0 {
		return Nop()
	}

	return &Logger{
		zl:     zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
		rotate: rotator,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

func (l *Logger) Debug(module, message string, details Details) {
	l.zl.Debug(message, fields(module, details)...)
}

func (l *Logger) Info(module, message string, details Details) {
	l.zl.Info(message, fields(module, details)...)
}

func (l *Logger) Warn(module, message string, details Details) {
	l.zl.Warn(message, fields(module, details)...)
}

func (l *Logger) Error(module, message string, details Details) {
	f := fields(module, details)
	if err, ok := details["error"].(error); ok {
		f = append(f, zap.Error(err))
	}
	l.zl.Error(message, f...)
}

// Sync flushes buffered records and closes the rotator.
func (l *Logger) Sync() error {
	err := l.zl.Sync()
	if l.rotate != nil {
		if cerr := l.rotate.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func fields(module string, details Details) []zap.Field {
	f := []zap.Field{zap.String("module", module)}
	if len(details) > 0 {
		f = append(f, zap.Any("details", map[string]interface{}(details)))
	}
	return f
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// =============================================================================
// GLOBAL LOGGER
// =============================================================================

var (
	globalMu sync.RWMutex
	global   = Nop()
)

// L returns the process-wide logger.
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobal replaces the process-wide logger and returns the previous one.
func SetGlobal(l *Logger) *Logger {
	if l == nil {
		l = Nop()
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := global
	global = l
	return prev
}
