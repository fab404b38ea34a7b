package domain

import "errors"

var (
	// ErrNotFound indicates the referenced board, list or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the actor may not perform the operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrValidation indicates a missing or malformed field.
	ErrValidation = errors.New("validation failed")
	// ErrConcurrencyConflict indicates that the underlying storage rejected an
	// update because a newer version of the entity is already persisted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
