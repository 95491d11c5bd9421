package client

import (
	"fmt"

	"github.com/cpu/acmeshell/acme/resources"
)

// TransportError wraps a failure that occurred sending a request or reading
// a response, before any ACME-level interpretation was possible.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: transport error for %q: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError wraps an RFC 7807 problem document the server returned in
// place of a successful response.
type ProtocolError struct {
	URL     string
	Problem *resources.Problem
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("client: %q returned a problem: %s", e.URL, e.Problem.Error())
}

func (e *ProtocolError) Unwrap() error { return e.Problem }

// BadNonceExhausted is returned when the server still returns a "badNonce"
// problem after the single automatic retry Client.Send performs.
type BadNonceExhausted struct {
	URL string
}

func (e *BadNonceExhausted) Error() string {
	return fmt.Sprintf("client: %q returned badNonce after retrying with a fresh nonce", e.URL)
}

// UnexpectedStatus is returned when the server's response didn't carry the
// status code a given operation requires (e.g. a 201 for account creation),
// including error statuses whose body isn't a problem document.
type UnexpectedStatus struct {
	URL      string
	Expected int
	Actual   int
}

func (e *UnexpectedStatus) Error() string {
	return fmt.Sprintf("client: %q returned status %d, expected %d", e.URL, e.Actual, e.Expected)
}

// StateViolation is returned when an operation is attempted against
// a resource that isn't in the status required for that operation, or when
// the server returns data violating a protocol invariant the client
// enforces (e.g. a wildcard authorization offering an http-01 challenge).
type StateViolation struct {
	Resource string
	Expected string
	Actual   string
}

func (e *StateViolation) Error() string {
	return fmt.Sprintf("client: %s: expected status %q, got %q", e.Resource, e.Expected, e.Actual)
}

// Cancelled is returned when a polling operation's context is cancelled
// before the underlying resource reached a terminal state.
type Cancelled struct {
	Resource string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("client: waiting for %s was cancelled", e.Resource)
}

// Timeout is returned when a polling operation's context deadline elapses
// before the underlying resource reached a terminal state.
type Timeout struct {
	Resource string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("client: timed out waiting for %s", e.Resource)
}

// CryptoError wraps a failure constructing or verifying cryptographic
// material (signing, CSR generation, JWK thumbprinting).
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("client: crypto error during %s: %s", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }
