// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger matches newrelic.Logger to allow implementations to be passed to
// internal packages.
type Logger interface {
	Error(msg string, context map[string]interface{})
	Warn(msg string, context map[string]interface{})
	Info(msg string, context map[string]interface{})
	Debug(msg string, context map[string]interface{})
	DebugEnabled() bool
}

// ShimLogger implements Logger and does nothing.
type ShimLogger struct {
	// IsDebugEnabled is useful as it allows DebugEnabled code paths to be
	// tested.
	IsDebugEnabled bool
}

// Error allows ShimLogger to implement Logger.
func (s ShimLogger) Error(string, map[string]interface{}) {}

// Warn allows ShimLogger to implement Logger.
func (s ShimLogger) Warn(string, map[string]interface{}) {}

// Info allows ShimLogger to implement Logger.
func (s ShimLogger) Info(string, map[string]interface{}) {}

// Debug allows ShimLogger to implement Logger.
func (s ShimLogger) Debug(string, map[string]interface{}) {}

// DebugEnabled allows ShimLogger to implement Logger.
func (s ShimLogger) DebugEnabled() bool { return s.IsDebugEnabled }

type basicLogger struct {
	debug bool
	zl    zerolog.Logger
}

// New creates a basic Logger writing JSON lines to w.
func New(w io.Writer, doDebug bool) Logger {
	level := zerolog.InfoLevel
	if doDebug {
		level = zerolog.DebugLevel
	}
	return &basicLogger{
		debug: doDebug,
		zl: zerolog.New(w).
			Level(level).
			With().
			Timestamp().
			Int("pid", os.Getpid()).
			Logger(),
	}
}

func (l *basicLogger) Error(msg string, context map[string]interface{}) {
	l.zl.Error().Fields(context).Msg(msg)
}

func (l *basicLogger) Warn(msg string, context map[string]interface{}) {
	l.zl.Warn().Fields(context).Msg(msg)
}

func (l *basicLogger) Info(msg string, context map[string]interface{}) {
	l.zl.Info().Fields(context).Msg(msg)
}

func (l *basicLogger) Debug(msg string, context map[string]interface{}) {
	l.zl.Debug().Fields(context).Msg(msg)
}

func (l *basicLogger) DebugEnabled() bool { return l.debug }
