// Package filestore implements the presentation store on the local
// filesystem: one .pptx container per identifier under a base directory,
// atomic temp-file-then-rename persistence, and per-identifier mutation
// locks.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/correlli/dify-pptx-app/internal/pptx"
	"github.com/correlli/dify-pptx-app/internal/store"
)

// Extension is the container suffix appended to the identifier.
const Extension = ".pptx"

// Store keeps presentations as files under baseDir. Mutations against the
// same identifier are serialized by a refcounted keyed mutex; different
// identifiers never contend.
type Store struct {
	baseDir string
	log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*idLock

	// Persistence seams; overridden in tests to simulate I/O failures.
	renameFn func(oldpath, newpath string) error
	syncFn   func(f *os.File) error
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// New creates (if needed) the base directory and returns a store over it.
func New(baseDir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Store{
		baseDir:  baseDir,
		log:      log,
		locks:    make(map[string]*idLock),
		renameFn: os.Rename,
		syncFn:   func(f *os.File) error { return f.Sync() },
	}, nil
}

// path derives the container location. Only a validated store.ID reaches
// this point, so the join cannot escape baseDir.
func (s *Store) path(id store.ID) string {
	return filepath.Join(s.baseDir, id.String()+Extension)
}

// acquire blocks until the identifier's mutation lock is held.
func (s *Store) acquire(id store.ID) *idLock {
	s.mu.Lock()
	l, ok := s.locks[id.String()]
	if !ok {
		l = &idLock{}
		s.locks[id.String()] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

// release unlocks and drops the lock entry once no waiter holds a reference,
// so the lock map does not grow with the number of identifiers ever seen.
func (s *Store) release(id store.ID, l *idLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id.String())
	}
	s.mu.Unlock()
}

type handle struct {
	id       store.ID
	doc      *pptx.Document
	s        *Store
	lock     *idLock
	released bool
	relMu    sync.Mutex
}

func (h *handle) ID() store.ID        { return h.id }
func (h *handle) Doc() *pptx.Document { return h.doc }

func (h *handle) Close() error {
	h.relMu.Lock()
	defer h.relMu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	h.s.release(h.id, h.lock)
	return nil
}

// OpenOrCreate takes the identifier's mutation lock, then loads the stored
// container or persists a fresh empty one. A document that exists is always
// structurally valid, so creation writes the empty container to disk before
// returning.
func (s *Store) OpenOrCreate(ctx context.Context, id store.ID) (store.DocumentHandle, error) {
	if id.IsZero() {
		return nil, store.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.acquire(id)
	h := &handle{id: id, s: s, lock: l}

	data, err := os.ReadFile(s.path(id))
	switch {
	case err == nil:
		doc, perr := pptx.Parse(data)
		if perr != nil {
			s.release(id, l)
			s.log.Warn("stored presentation failed to parse",
				zap.String("presentation_id", id.String()), zap.Error(perr))
			return nil, fmt.Errorf("%w: %v", store.ErrCorruptDocument, perr)
		}
		h.doc = doc
		return h, nil
	case os.IsNotExist(err):
		h.doc = pptx.New()
		if werr := s.writeContainer(id, h.doc); werr != nil {
			s.release(id, l)
			return nil, werr
		}
		s.log.Info("created presentation", zap.String("presentation_id", id.String()))
		return h, nil
	default:
		s.release(id, l)
		return nil, fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
}

// Persist replaces the container with the handle's current document. The
// handle's lock stays held; the caller releases it with Close.
func (s *Store) Persist(ctx context.Context, dh store.DocumentHandle) error {
	h, ok := dh.(*handle)
	if !ok || h.s != s {
		return fmt.Errorf("%w: foreign document handle", store.ErrWriteFailure)
	}
	h.relMu.Lock()
	released := h.released
	h.relMu.Unlock()
	if released {
		return fmt.Errorf("%w: handle already closed", store.ErrWriteFailure)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writeContainer(h.id, h.doc); err != nil {
		return err
	}
	s.log.Info("persisted presentation",
		zap.String("presentation_id", h.id.String()),
		zap.Int("slides", h.doc.SlideCount()))
	return nil
}

// writeContainer marshals and durably swaps the container into place. The
// temp file lives in baseDir so the final rename stays on one filesystem; a
// reader concurrently fetching sees fully-old or fully-new bytes only.
func (s *Store) writeContainer(id store.ID, doc *pptx.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}

	tmp, err := os.CreateTemp(s.baseDir, id.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
	if err := s.syncFn(tmp); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
	if err := s.renameFn(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", store.ErrWriteFailure, err)
	}
	return nil
}

// Fetch streams the persisted container without locking. The atomic swap in
// writeContainer guarantees a torn file is never observable.
func (s *Store) Fetch(ctx context.Context, id store.ID) (io.ReadCloser, int64, error) {
	if id.IsZero() {
		return nil, 0, store.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, store.ErrNotFound
		}
		return nil, 0, fmt.Errorf("open presentation: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat presentation: %w", err)
	}
	return f, info.Size(), nil
}

var _ store.Store = (*Store)(nil)
