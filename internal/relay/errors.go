package relay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a generation job could not be resolved.
type ErrorKind string

const (
	KindTransientUnavailable ErrorKind = "transient_unavailable"
	KindUpstreamRejected     ErrorKind = "upstream_rejected"
	KindMalformedResponse    ErrorKind = "malformed_response"
	KindGenerationFailed     ErrorKind = "generation_failed"
	KindPollTimeout          ErrorKind = "poll_timeout"
	KindNetwork              ErrorKind = "network_error"
	KindCanceled             ErrorKind = "canceled"
)

// Sentinels for errors.Is comparisons. Only the kind is compared.
var (
	ErrTransientUnavailable = &Error{Kind: KindTransientUnavailable}
	ErrUpstreamRejected     = &Error{Kind: KindUpstreamRejected}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrGenerationFailed     = &Error{Kind: KindGenerationFailed}
	ErrPollTimeout          = &Error{Kind: KindPollTimeout}
	ErrNetwork              = &Error{Kind: KindNetwork}
	ErrCanceled             = &Error{Kind: KindCanceled}
)

// Error is returned by every Client operation that fails after the request
// was built. Body holds the raw upstream response when one was received.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Message    string
	Attempts   int
	URL        string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	sb := &strings.Builder{}
	sb.WriteString("relay: ")
	sb.WriteString(string(e.Kind))
	if e.StatusCode > 0 {
		fmt.Fprintf(sb, " (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(sb, " after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a relay error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the ErrorKind from err, or "" when err is not a relay error.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func canceled(err error) *Error {
	return &Error{Kind: KindCanceled, Err: err}
}
