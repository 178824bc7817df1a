/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package vslog is the structured-logging capability every core component
// accepts by injection (never a package-level global, see SPEC_FULL.md
// §10.2). It is a thin field-aware wrapper around logrus, in the shape of
// the teacher's logger/entry package.
package vslog

import (
	"github.com/sirupsen/logrus"
)

// Fields is an alias kept distinct from logrus.Fields so callers of this
// package never need to import logrus directly.
type Fields = logrus.Fields

// Logger is the capability injected into every core component. A nil
// Logger is valid and silently discards everything.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type entry struct {
	log *logrus.Logger
}

// New wraps an existing *logrus.Logger. Passing nil is valid: the returned
// Logger is a no-op.
func New(log *logrus.Logger) Logger {
	if log == nil {
		return nil
	}
	return &entry{log: log}
}

// NewDefault builds a *logrus.Logger writing text-formatted lines to
// stderr at the given level name ("debug", "info", "warn", "error"),
// matching the teacher's logger/config default output.
func NewDefault(level string) Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return New(l)
}

func (e *entry) Debug(msg string, f Fields) { e.log.WithFields(f).Debug(msg) }
func (e *entry) Info(msg string, f Fields)  { e.log.WithFields(f).Info(msg) }
func (e *entry) Warn(msg string, f Fields)  { e.log.WithFields(f).Warn(msg) }
func (e *entry) Error(msg string, f Fields) { e.log.WithFields(f).Error(msg) }

// Debug is a nil-safe package helper so callers don't need to nil-check l
// at every call site.
func Debug(l Logger, msg string, f Fields) {
	if l != nil {
		l.Debug(msg, f)
	}
}

func Info(l Logger, msg string, f Fields) {
	if l != nil {
		l.Info(msg, f)
	}
}

func Warn(l Logger, msg string, f Fields) {
	if l != nil {
		l.Warn(msg, f)
	}
}

func Error(l Logger, msg string, f Fields) {
	if l != nil {
		l.Error(msg, f)
	}
}
