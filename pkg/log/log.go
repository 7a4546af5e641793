// Copyright 2016 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package log provides the context-scoped logging calls used throughout the
// engine. It is a thin wrapper around logrus rather than a reimplementation
// of a logging framework: every call takes a context.Context first, matching
// the call shape the rest of the engine is written against, and forwards to
// a package-level *logrus.Logger that callers may swap out in tests.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Logger is the destination for all calls in this package. Tests may replace
// it with a logger pointed at an in-memory buffer.
var Logger = logrus.StandardLogger()

type ctxTagsKey struct{}

// WithLogTag attaches a key/value pair that subsequent log calls against the
// returned context will include as structured fields, mirroring the
// log.WithLogTag calls sprinkled through the original engine's range and
// replica code.
func WithLogTag(ctx context.Context, key string, value interface{}) context.Context {
	tags, _ := ctx.Value(ctxTagsKey{}).(logrus.Fields)
	merged := make(logrus.Fields, len(tags)+1)
	for k, v := range tags {
		merged[k] = v
	}
	merged[key] = value
	return context.WithValue(ctx, ctxTagsKey{}, merged)
}

func entry(ctx context.Context) *logrus.Entry {
	tags, _ := ctx.Value(ctxTagsKey{}).(logrus.Fields)
	return Logger.WithFields(tags)
}

// Infof logs at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Infof(format, args...)
}

// Warningf logs at warn level.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Warnf(format, args...)
}

// Errorf logs at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Errorf(format, args...)
}

// Fatalf logs at fatal level and terminates the process, matching the
// original engine's use of log.Fatalf for invariant violations that leave
// the engine in an unrecoverable state (e.g. a corrupt MVCCMetadata value).
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Fatalf(format, args...)
}

// Eventf attaches a trace event to the context's tracing span, if any. This
// engine does not wire a tracer, so it degrades to a debug-level log line,
// preserving call sites that mirror the original log.Eventf(ctx, ...) idiom.
func Eventf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Debugf(format, args...)
}

// VEventf is the verbosity-gated counterpart of Eventf. level is accepted for
// call-site compatibility and otherwise ignored, since this package does not
// implement vmodule-style verbosity filtering.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	entry(ctx).Debugf(format, args...)
}
