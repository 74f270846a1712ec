package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUpdateFailed covers network failures and non-success responses to mutations.
	ErrUpdateFailed = errors.New("update failed")
	// ErrLoadFailed covers failures fetching records.
	ErrLoadFailed = errors.New("load failed")
	// ErrAuthRequired is returned for 401/403 responses.
	ErrAuthRequired = errors.New("authentication required")
)

// Error describes a failed backend call. It unwraps to its kind sentinel
// (ErrUpdateFailed or ErrLoadFailed), to ErrAuthRequired for auth failures,
// and to the transport error when there is one.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error

	kind error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	var out []error
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		out = append(out, ErrAuthRequired)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
