package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the submission path. None of these are fatal;
// every failure is recoverable at the item level.
var (
	// ErrIdentityMissing means no reporter identity could be resolved and no
	// contact capture collaborator produced one. Submission is resumable once
	// contact information exists.
	ErrIdentityMissing = errors.New("no reporter identity available")

	// ErrCooldownDenied means this identity already reported the light in the
	// current open cycle. Not retryable until the cycle closes.
	ErrCooldownDenied = errors.New("already reported this cycle")
)

// ValidationError rejects a row or draft before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConstraintError means the store rejected a value against a schema
// constraint, typically an enum variant it does not know. The submission
// pipeline retries across historical synonyms before surfacing it.
type ConstraintError struct {
	Code    string // store error code, e.g. "22P02" or "23514"
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("store constraint violated (%s): %s", e.Code, e.Message)
}

// UnavailableError wraps a transport failure or 5xx from the store. Single
// submissions abort and roll back; bulk submissions skip the item.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
