package client

import (
	"errors"
	"fmt"
)

// Kind classifies client errors for callers and metrics.
type Kind string

const (
	// KindAuthentication marks credential rejection at connect time.
	KindAuthentication Kind = "authentication"

	// KindUnavailable marks network, timeout or liveness failures.
	KindUnavailable Kind = "unavailable"

	// KindRemote marks a call that failed after a session was valid.
	KindRemote Kind = "remote"

	// KindTooManyRedirects marks an exceeded transport redirect limit.
	// It is a RemoteError subtype.
	KindTooManyRedirects Kind = "too_many_redirects"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrAuthenticationFailed is returned when the remote side rejects
	// the configured credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrTooManyRedirects is returned when the transport redirect hop
	// limit is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// RPCError is a typed failure of a remote call or connection attempt.
type RPCError struct {
	Kind    Kind
	Model   string
	Method  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	target := ""
	if e.Model != "" || e.Method != "" {
		target = fmt.Sprintf(" for %s.%s", e.Model, e.Method)
	}
	if e.Err != nil {
		return fmt.Sprintf("odoo %s error%s: %s: %v", e.Kind, target, e.Message, e.Err)
	}
	return fmt.Sprintf("odoo %s error%s: %s", e.Kind, target, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RPCError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether e is the result of a failed remote call
// (including the redirect-limit subtype).
func (e *RPCError) IsRemote() bool {
	return e.Kind == KindRemote || e.Kind == KindTooManyRedirects
}

// remoteErr wraps err as a RemoteError for a call target.
func remoteErr(model, method, message string, err error) *RPCError {
	kind := KindRemote
	if errors.Is(err, ErrTooManyRedirects) {
		kind = KindTooManyRedirects
	}
	return &RPCError{
		Kind:    kind,
		Model:   model,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// AsRPCError extracts a *RPCError from an error chain, if any.
func AsRPCError(err error) (*RPCError, bool) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}
