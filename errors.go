package enphase

import (
	"errors"
	"fmt"
)

// AuthKind classifies authentication and session failures.
type AuthKind string

const (
	AuthInvalidCredentials    AuthKind = "invalid_credentials"
	AuthMissingCredentials    AuthKind = "missing_credentials"
	AuthNotAuthenticated      AuthKind = "not_authenticated"
	AuthDeviceNotCommissioned AuthKind = "device_not_commissioned"
	AuthTokenExpired          AuthKind = "token_expired"
	AuthRejected              AuthKind = "rejected"
	AuthNetwork               AuthKind = "network"
	AuthUnexpected            AuthKind = "unexpected"
)

// AuthError is a classified authentication or session failure. Callers branch
// on Kind to decide whether to re-login, mint a new token, or abort.
type AuthError struct {
	Kind    AuthKind
	Status  int // HTTP status for AuthUnexpected, zero otherwise
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth %s", e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError with the given kind and message.
func NewAuthError(kind AuthKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// TransportKind classifies transport-level failures.
type TransportKind string

const (
	TransportRetriable        TransportKind = "retriable"         // 5xx responses
	TransportTimeout          TransportKind = "timeout"           // deadline exceeded
	TransportConnectionFailed TransportKind = "connection_failed" // dial/reset failures
)

// TransportError is a transport-level failure. The dispatcher retries at most
// once, with backoff, and only for idempotent reads.
type TransportError struct {
	Kind   TransportKind
	Status int // HTTP status for TransportRetriable, zero otherwise
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport %s (status %d)", e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transport %s", e.Kind)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestError is a non-retriable rejection of a request by the remote end:
// any 4xx other than 401/403.
type RequestError struct {
	Status  int
	Excerpt string // bounded body excerpt for diagnostics
}

func (e *RequestError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("request rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("request rejected (status %d): %s", e.Status, e.Excerpt)
}

// DecodeError reports a response payload that does not match the expected
// schema. Unknown fields are never an error; missing required fields are.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsTokenExpired reports whether err means the bound token is no longer
// accepted and a fresh token must be minted.
func IsTokenExpired(err error) bool { return IsAuthKind(err, AuthTokenExpired) }

// IsNotAuthenticated reports whether err means a login or authenticate call
// is required first.
func IsNotAuthenticated(err error) bool { return IsAuthKind(err, AuthNotAuthenticated) }

// IsRetriable reports whether err is a transport failure that an idempotent
// caller may reasonably retry.
func IsRetriable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
