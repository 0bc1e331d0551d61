// Package logging provides the structured logger and the request-id
// plumbing shared by all components.
package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with request-scoped field helpers.
type Logger struct {
	*logrus.Logger
}

// New builds a logger with the given level ("debug", "info", "warn",
// "error") and format ("json" or "text"). Unknown values fall back to
// info/text.
func New(level, format string) *Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		l.SetLevel(lvl)
	}
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{Logger: l}
}

// NewNop returns a logger that discards everything. For tests.
func NewNop() *Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return &Logger{Logger: l}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

type requestIDKey struct{}

// NewRequestID generates a fresh request id.
func NewRequestID() string { return uuid.NewString() }

// WithRequestID stores a request id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored on the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ForRequest returns an entry carrying the context's request id.
func (l *Logger) ForRequest(ctx context.Context) *logrus.Entry {
	if id := RequestID(ctx); id != "" {
		return l.WithField("request_id", id)
	}
	return logrus.NewEntry(l.Logger)
}
