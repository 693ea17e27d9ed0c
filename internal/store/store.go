// Package store defines the presentation storage contract: a validated
// identifier type, the Store interface keyed by it, and the error taxonomy
// shared by implementations and the HTTP layer.
package store

import (
	"context"
	"io"

	"github.com/correlli/dify-pptx-app/internal/pptx"
)

// DocumentHandle is an open, mutable view of one presentation. The handle
// owns the per-identifier mutation lock from OpenOrCreate until Close, so a
// caller must Close it on every exit path, whether or not Persist succeeded.
type DocumentHandle interface {
	// ID returns the identifier the handle was opened for.
	ID() ID

	// Doc returns the in-memory document for mutation.
	Doc() *pptx.Document

	// Close releases the per-identifier lock. Idempotent.
	Close() error
}

// Store owns the durable representation of presentations, one container file
// per identifier.
type Store interface {
	// OpenOrCreate acquires the identifier's mutation lock and opens its
	// document, creating and persisting an empty one if none exists. After a
	// successful return, existence and validity are synonymous. Returns
	// ErrCorruptDocument (lock released) if stored bytes cannot be parsed.
	OpenOrCreate(ctx context.Context, id ID) (DocumentHandle, error)

	// Persist durably replaces the identifier's container with the handle's
	// current document. Atomic from a reader's perspective: concurrent
	// fetches observe fully-old or fully-new bytes, never a torn file. On
	// ErrWriteFailure the prior version remains intact. Persist does not
	// release the handle's lock.
	Persist(ctx context.Context, h DocumentHandle) error

	// Fetch streams the persisted container. Returns ErrNotFound when no
	// document was ever created for the id. Requires no lock; safe
	// concurrently with appends.
	Fetch(ctx context.Context, id ID) (io.ReadCloser, int64, error)
}
