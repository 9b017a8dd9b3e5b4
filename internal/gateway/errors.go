// ABOUTME: Error taxonomy for gateway calls: kinds, typed error, and sentinels
// ABOUTME: Describe maps an error to the user-facing message for its kind

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindAuthExpired
	KindNotFound
	KindRateLimited
	KindServer
	KindValidation
	KindInvalidResponse
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindAuthExpired:
		return "auth_expired"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server_error"
	case KindValidation:
		return "validation_error"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinels matched by (*Error).Is, one per kind.
var (
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthExpired  = errors.New("authentication expired")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrValidation   = errors.New("validation error")

	ErrInvalidResponse = errors.New("invalid response")
)

// ErrInvalidPath is returned before any I/O when a request path is not a
// relative API path.
var ErrInvalidPath = errors.New("path must be a relative API path")

var kindSentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindUnauthorized: ErrUnauthorized,
	KindAuthExpired:  ErrAuthExpired,
	KindNotFound:     ErrNotFound,
	KindRateLimited:  ErrRateLimited,
	KindServer:       ErrServer,
	KindValidation:   ErrValidation,

	KindInvalidResponse: ErrInvalidResponse,
}

// Error is returned for every failed gateway call.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Message string
	Body    json.RawMessage // raw response body, when there was one
	Method  string
	Path    string
	Err     error // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
}

// Unwrap returns the underlying transport or decode error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of err, or KindUnknown if err is not a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status
	}
	return 0
}

// kindForStatus maps a non-2xx status to its kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// Describe returns a short message suitable for showing to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		return "Something went wrong. Please try again."
	}

	switch gerr.Kind {
	case KindNetwork:
		return "Unable to reach the server. Please check your connection."
	case KindAuthExpired:
		return "Your session has expired. Please log in again."
	case KindUnauthorized:
		return "You are not authorized to perform this action."
	case KindNotFound:
		return "The requested resource was not found."
	case KindRateLimited:
		return "Too many requests. Please try again later."
	case KindServer:
		return "Server error. Please try again later."
	case KindValidation:
		return fmt.Sprintf("Request failed (%d): %s", gerr.Status, gerr.Message)
	case KindInvalidResponse:
		return "The server sent an invalid response. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
