package search

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad field value at query construction or
// mutation. The failed operation leaves the query untouched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ErrPagingUnavailable is returned by paging operations when the page size is
// zero and the server default is in effect, leaving no defined page boundary.
var ErrPagingUnavailable = errors.New("paging unavailable: no page size set (-n)")

// ErrorKind classifies a failed search call.
type ErrorKind int

const (
	// ErrRateLimited is an HTTP 429 from the instance. Surfaced verbatim and
	// never retried; retrying is the operator's call.
	ErrRateLimited ErrorKind = iota
	// ErrTransport covers network, TLS and timeout failures before any
	// response body was read.
	ErrTransport
	// ErrDecode means the response was not the JSON we asked for. The usual
	// cause is an instance without the json format enabled, which answers
	// with an HTML page instead.
	ErrDecode
	// ErrServer is any other non-2xx response.
	ErrServer
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRateLimited:
		return "rate limited"
	case ErrTransport:
		return "transport failure"
	case ErrDecode:
		return "decode failure"
	default:
		return "server error"
	}
}

// SearchError is the failure of one Execute call. Status is set when a
// response was received, Err when a lower-level error is wrapped.
type SearchError struct {
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

func (e *SearchError) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SearchError) Unwrap() error { return e.Err }

// AsSearchError unwraps err to a *SearchError if one is in the chain.
func AsSearchError(err error) (*SearchError, bool) {
	var se *SearchError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
