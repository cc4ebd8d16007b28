package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerContextKey struct{}

var defaultLogger = logrus.New()

// SetLoggerOptions applies options to the package-level logger
func SetLoggerOptions(optionsFunc func(*logrus.Logger)) {
	optionsFunc(defaultLogger)
}

// NewContextWithFields returns a new context with a log entry that carries the given
// fields in addition to any fields already present on the context
func NewContextWithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, For(ctx).WithFields(fields))
}

// For returns the log entry associated with ctx, or a default entry if ctx is nil or
// has no entry attached. The returned entry always carries ctx so hooks can read
// request-scoped values.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}
	if entry, ok := ctx.Value(loggerContextKey{}).(*logrus.Entry); ok {
		return entry.WithContext(ctx)
	}
	return defaultLogger.WithContext(ctx)
}
