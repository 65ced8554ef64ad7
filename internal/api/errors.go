package api

import "fmt"

// NetworkError means the request never completed: nothing was committed on
// the server and the caller may safely try again.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RejectedError means the server answered with a failure status. Message
// carries the server-provided reason when the body had one.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

type AuthErrorKind int

const (
	// AuthRejected: the server refused the token (expired, revoked, bogus).
	AuthRejected AuthErrorKind = iota
	// AuthMalformed: the server answered but the payload did not decode into
	// the expected shape. Treated like a rejection at the session layer.
	AuthMalformed
)

// AuthError is the tagged failure result of an identity verification call.
// Malformed payloads are rejected here at the network boundary instead of
// leaking partial user objects inward.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
}

func (e *AuthError) Error() string {
	if e.Kind == AuthMalformed {
		return fmt.Sprintf("identity check returned malformed payload: %s", e.Message)
	}
	return fmt.Sprintf("identity check rejected: %s", e.Message)
}
