// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logger provides leveled logging for the Registry Replicator application.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger defines the logging interface used across the application.
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// logrusLogger implements the Logger interface on top of logrus.
type logrusLogger struct {
	l *logrus.Logger
}

// New creates a logger at info level.
func New() Logger {
	return NewWithLevel(false)
}

// NewWithLevel creates a logger; debug enables debug-level output.
func NewWithLevel(debug bool) Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return &logrusLogger{l: l}
}

func (g *logrusLogger) Info(format string, args ...interface{}) {
	g.l.Infof(format, args...)
}

func (g *logrusLogger) Error(format string, args ...interface{}) {
	g.l.Errorf(format, args...)
}

func (g *logrusLogger) Debug(format string, args ...interface{}) {
	g.l.Debugf(format, args...)
}
