package logger

import (
	"net/http"
	"time"
)

// LogRequest logs a completed portal request at debug level
func LogRequest(l Logger, req *http.Request, status int, elapsed time.Duration) {
	fields := Fields{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   status,
		"duration": elapsed,
	}
	if status >= 400 {
		l.WarnWithFields("portal request failed", fields)
		return
	}
	l.DebugWithFields("portal request completed", fields)
}

// LogArtifact logs the outcome of materializing one link
func LogArtifact(l Logger, url, path, outcome string, err error) {
	entry := l.WithFields(Fields{
		"url":     url,
		"path":    path,
		"outcome": outcome,
	})
	if err != nil {
		entry.WithError(err).Warn("link skipped")
		return
	}
	entry.Debug("link processed")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                           {}
func (nopLogger) Info(string)                            {}
func (nopLogger) Warn(string)                            {}
func (nopLogger) Error(string)                           {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }
func (n nopLogger) WithFields(Fields) Logger             { return n }
func (n nopLogger) WithError(error) Logger               { return n }
func (nopLogger) DebugWithFields(string, Fields)         {}
func (nopLogger) InfoWithFields(string, Fields)          {}
func (nopLogger) WarnWithFields(string, Fields)          {}
func (nopLogger) ErrorWithFields(string, Fields)         {}
