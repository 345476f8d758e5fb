package domain

import "errors"

// Operation errors surfaced to the caller. The gateway maps them to a
// caller-scoped error response; only ErrUnauthenticated tears the connection down.
var (
	// ErrUnauthenticated connection cannot be bound to a user
	ErrUnauthenticated = errors.New("authentication failed")
	// ErrNotMember caller is not an active member of the conversation
	ErrNotMember = errors.New("you are not a member of this conversation")
	// ErrNotFound referenced message or conversation absent
	ErrNotFound = errors.New("not found")
	// ErrAlreadyMember add-member target already has an active membership
	ErrAlreadyMember = errors.New("already a member")
	// ErrInvalidStatus update_status payload is not a settable presence state
	ErrInvalidStatus = errors.New("invalid status")
)
