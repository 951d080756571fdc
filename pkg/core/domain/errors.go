package domain

import "errors"

var (
	// ErrNotFound is returned when the targeted post, tag or session
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("invalid input")

	// ErrUnauthorized is returned when no valid session accompanies a
	// request that requires one.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a valid session belongs to an
	// identity outside the admin allow-list.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a store uniqueness constraint
	// rejected a write. Callers recover it locally (retry an id
	// allocation, treat a duplicate like as already-liked); it is
	// never surfaced to HTTP clients.
	ErrConflict = errors.New("conflict")
)
