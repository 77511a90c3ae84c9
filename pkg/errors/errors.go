package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies failures raised while syncing the portal
type Kind string

const (
	KindLogin        Kind = "login"
	KindNetwork      Kind = "network"
	KindNetworkFatal Kind = "network_fatal"
	KindParse        Kind = "parse"
	KindFilename     Kind = "filename"
	KindInterrupt    Kind = "interrupt"
	KindConfig       Kind = "config"
	KindUnknown      Kind = "unknown"
)

// Error carries a Kind alongside the wrapped cause
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// HTTPStatus builds a fatal network error for an unexpected response status
func HTTPStatus(code int, url string) *Error {
	return &Error{
		Kind:    KindNetworkFatal,
		Message: fmt.Sprintf("%s returned %s", url, http.StatusText(code)),
		Code:    code,
	}
}

// KindOf reports the kind of the first *Error in err's chain.
// Context cancellation is reported as KindInterrupt.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	if stderrors.Is(err, context.Canceled) {
		return KindInterrupt
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether the error must abort the whole run
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindLogin, KindInterrupt, KindConfig:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code is worth retrying.
// Only gateway failures qualify; the portal returns 500 for genuine faults.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
