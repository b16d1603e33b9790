package domain

import "errors"

// Sentinel errors forming the error taxonomy of the core. Repositories and
// services wrap these with context via fmt.Errorf and %w; callers branch
// with errors.Is and the HTTP layer maps them onto status codes.
var (
	// ErrNotFound means the resource, or an ancestor on its ownership
	// chain, does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the resource exists but its ownership chain does
	// not lead to the calling principal. External responses must render it
	// identically to ErrNotFound.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means a uniqueness invariant was violated, e.g. a second
	// agent for a business or a phone number already in use.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState means the request is well-formed but not permitted in
	// the current state, e.g. ending an already-ended conversation or a
	// temperature outside its bounds.
	ErrInvalidState = errors.New("invalid state")

	// ErrUpstreamFailure means an external collaborator (embeddings,
	// redaction) failed; the operation can be retried.
	ErrUpstreamFailure = errors.New("upstream failure")
)
