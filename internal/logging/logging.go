// Package logging holds the logrus helpers shared by the engine packages.
package logging

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// Discard returns an entry that drops everything. Components start with it
// until a caller supplies a logger.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

// Or returns entry when non-nil and a discarding entry otherwise.
func Or(entry *logrus.Entry) *logrus.Entry {
	if entry == nil {
		return Discard()
	}
	return entry
}

// WithContext stores entry on ctx.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, entry)
}

// FromContext extracts a logger stored with WithContext. Bare *logrus.Logger
// values are wrapped in an entry.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return nil
	}
	switch typed := ctx.Value(loggerKey{}).(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return logrus.NewEntry(typed)
	default:
		return nil
	}
}

// Log writes msg at level with fields, preferring the context logger over
// fallback. Nothing is written when neither is set.
func Log(ctx context.Context, fallback *logrus.Entry, level logrus.Level, msg string, fields logrus.Fields) {
	logger := FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}
