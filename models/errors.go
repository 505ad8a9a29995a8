package models

import "errors"

// Domain error kinds. Services return these (usually wrapped) and the
// handler layer maps them to an HTTP status or a flash message.
var (
	// ErrNotFound indicates a list, task or user lookup matched no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, e.g. registering an
	// email that already has an account.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized indicates a failed credential check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal does not own the resource it
	// tried to mutate.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidToken indicates a signed token failed validation. Token
	// validation fails closed: no state is mutated on this error.
	ErrInvalidToken = errors.New("invalid token")
)
