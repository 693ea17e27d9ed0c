package store

import "errors"

var (
	// ErrNotFound indicates no presentation has ever been created for the id.
	ErrNotFound = errors.New("store: presentation not found")

	// ErrInvalidID indicates the presentation id failed validation.
	ErrInvalidID = errors.New("store: invalid presentation id")

	// ErrCorruptDocument indicates the stored bytes are not a valid container.
	ErrCorruptDocument = errors.New("store: corrupt presentation document")

	// ErrWriteFailure indicates a persist attempt failed; the previously
	// persisted version remains authoritative.
	ErrWriteFailure = errors.New("store: write failure")
)
