package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrAuthRequired  = errors.New("authentication required")
	ErrTransport     = errors.New("transport error")
	ErrTimeout       = errors.New("timeout")
	ErrBackend       = errors.New("backend error")
	ErrStaleResponse = errors.New("stale response discarded")
)

// BackendError reports a non-success status returned by the backend. Message
// holds the server-provided `error` text when the body carried one.
type BackendError struct {
	Operation string
	Status    int
	Message   string
}

func (e *BackendError) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, "backend returned %d", e.Status)
	} else {
		b.WriteString("backend error")
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *BackendError) Unwrap() error { return ErrBackend }

// TransportError reports that the backend could not be reached or did not
// answer before the request deadline.
type TransportError struct {
	Operation string
	Timeout   bool
	Err       error
}

func (e *TransportError) Error() string {
	label := "transport failure"
	if e.Timeout {
		label = "request timed out"
	}
	detail := label
	if e.Err != nil {
		detail = label + ": " + e.Err.Error()
	}
	if e.Operation == "" {
		return detail
	}
	return e.Operation + ": " + detail
}

func (e *TransportError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ClientError is an error raised on the client side of an operation. It
// carries the user-facing message separately from its operation context.
type ClientError struct {
	Marker    error
	Operation string
	Message   string
	Err       error
}

func (e *ClientError) Error() string {
	msg := e.Marker.Error() + ": " + buildDetail(e.Operation, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Marker, e.Err}
	}
	return []error{e.Marker}
}

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransport
	}
	return &ClientError{
		Marker:    marker,
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// Validation is shorthand for Wrap(ErrValidation, operation, message, nil).
func Validation(operation, message string) error {
	return Wrap(ErrValidation, operation, message, nil)
}

// Kind classifies err for logs and the activity journal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStaleResponse):
		return "stale"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrBackend):
		return "backend"
	default:
		return "unknown"
	}
}

// UserMessage returns the text a shell should display for err. Backend
// messages win; validation and auth errors show their own detail; everything
// else falls back to the supplied generic message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		if msg := strings.TrimSpace(backendErr.Message); msg != "" {
			return msg
		}
		return fallback
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrAuthRequired) {
		return detailAfterMarker(err)
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Timeout {
		return "The server took too long to respond. Please try again."
	}
	if errors.Is(err, ErrTransport) {
		return "No response from server. Please check your network connection."
	}
	return fallback
}

// detailAfterMarker returns the bare message of a client-side error, without
// the marker or operation prefix.
func detailAfterMarker(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Message != "" {
		return clientErr.Message
	}
	msg := err.Error()
	for _, marker := range []error{ErrValidation, ErrAuthRequired} {
		prefix := marker.Error() + ": "
		if idx := strings.Index(msg, prefix); idx >= 0 {
			msg = msg[idx+len(prefix):]
		}
	}
	return msg
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "client failure"
	}
	return strings.Join(parts, ": ")
}
