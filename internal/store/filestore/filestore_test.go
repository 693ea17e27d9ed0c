package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlli/dify-pptx-app/internal/pptx"
	"github.com/correlli/dify-pptx-app/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func mustID(t *testing.T, raw string) store.ID {
	t.Helper()
	id, err := store.ParseID(raw)
	require.NoError(t, err)
	return id
}

func TestOpenOrCreatePersistsEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "fresh")

	h, err := s.OpenOrCreate(context.Background(), id)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, 0, h.Doc().SlideCount())

	// Existence and validity are synonymous: the empty container is already
	// on disk before any persist call.
	data, err := os.ReadFile(filepath.Join(s.baseDir, "fresh.pptx"))
	require.NoError(t, err)
	doc, err := pptx.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.SlideCount())
}

func TestAppendAndReopen(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "deck")
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.Doc().AppendSlide("Title", "Body", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h))
	require.NoError(t, h.Close())

	h2, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h2.Close()
	slides := h2.Doc().Slides()
	require.Len(t, slides, 1)
	assert.Equal(t, "Title", slides[0].Title)
	assert.Equal(t, "Body", slides[0].Content)
}

func TestSequentialAppendsKeepOrder(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "ordered")
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		h, err := s.OpenOrCreate(ctx, id)
		require.NoError(t, err)
		require.NoError(t, h.Doc().AppendSlide(fmt.Sprintf("slide %d", i), "x", pptx.DefaultLayout))
		require.NoError(t, s.Persist(ctx, h))
		require.NoError(t, h.Close())
	}

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h.Close()
	slides := h.Doc().Slides()
	require.Len(t, slides, n)
	for i, sl := range slides {
		assert.Equal(t, fmt.Sprintf("slide %d", i), sl.Title)
	}
}

func TestConcurrentAppendsLoseNoSlides(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "contended")
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.OpenOrCreate(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			defer h.Close()
			if err := h.Doc().AppendSlide(fmt.Sprintf("w%d", i), "x", pptx.DefaultLayout); err != nil {
				errs[i] = err
				return
			}
			errs[i] = s.Persist(ctx, h)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, workers, h.Doc().SlideCount())
}

func TestDistinctIdentifiersDoNotContend(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Holding one identifier's handle must not block another identifier.
	h1, err := s.OpenOrCreate(ctx, mustID(t, "left"))
	require.NoError(t, err)
	defer h1.Close()

	done := make(chan error, 1)
	go func() {
		h2, err := s.OpenOrCreate(ctx, mustID(t, "right"))
		if err == nil {
			h2.Close()
		}
		done <- err
	}()
	require.NoError(t, <-done)
}

func TestFetchNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Fetch(context.Background(), mustID(t, "never-created"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFetchStreamsPersistedBytes(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "streamy")
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.Doc().AppendSlide("A", "B", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h))
	require.NoError(t, h.Close())

	rc, size, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), size)

	doc, err := pptx.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.SlideCount())
}

func TestControlCharacterContentStaysReadable(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "ctrl")
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.Doc().AppendSlide("title", "bad\vbody", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h))
	require.NoError(t, h.Close())

	// The id must stay appendable: a persisted container is always valid.
	h2, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h2.Close()
	require.NoError(t, h2.Doc().AppendSlide("next", "slide", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h2))
	assert.Equal(t, 2, h2.Doc().SlideCount())
}

func TestCorruptDocumentIsNeverOverwritten(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "mangled")
	path := filepath.Join(s.baseDir, "mangled.pptx")
	garbage := []byte("definitely not a zip archive")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	_, err := s.OpenOrCreate(context.Background(), id)
	require.ErrorIs(t, err, store.ErrCorruptDocument)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, garbage, after, "corrupt bytes must be left untouched")
}

func TestFailedPersistLeavesPriorVersionIntact(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "durable")
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.Doc().AppendSlide("Keep me", "safe", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h))
	require.NoError(t, h.Close())

	path := filepath.Join(s.baseDir, "durable.pptx")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s.renameFn = func(oldpath, newpath string) error {
		return errors.New("simulated rename failure")
	}

	h2, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h2.Close()
	require.NoError(t, h2.Doc().AppendSlide("Lost", "slide", pptx.DefaultLayout))
	require.ErrorIs(t, s.Persist(ctx, h2), store.ErrWriteFailure)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "prior version must be byte-identical after failed persist")

	// The aborted temp file must not linger.
	entries, err := os.ReadDir(s.baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "durable.pptx", entries[0].Name())
}

func TestFailedSyncLeavesPriorVersionIntact(t *testing.T) {
	s := newTestStore(t)
	id := mustID(t, "synced")
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.Doc().AppendSlide("v1", "x", pptx.DefaultLayout))
	require.NoError(t, s.Persist(ctx, h))
	require.NoError(t, h.Close())

	before, err := os.ReadFile(filepath.Join(s.baseDir, "synced.pptx"))
	require.NoError(t, err)

	s.syncFn = func(f *os.File) error { return errors.New("disk full") }

	h2, err := s.OpenOrCreate(ctx, id)
	require.NoError(t, err)
	defer h2.Close()
	require.NoError(t, h2.Doc().AppendSlide("v2", "x", pptx.DefaultLayout))
	require.ErrorIs(t, s.Persist(ctx, h2), store.ErrWriteFailure)

	after, err := os.ReadFile(filepath.Join(s.baseDir, "synced.pptx"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPersistOnClosedHandleFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h, err := s.OpenOrCreate(ctx, mustID(t, "closed"))
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "close is idempotent")

	require.ErrorIs(t, s.Persist(ctx, h), store.ErrWriteFailure)
}

func TestPersistAndCloseDoNotRace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Exercised under -race: Close and Persist touch the handle's released
	// flag from different goroutines.
	for i := 0; i < 20; i++ {
		h, err := s.OpenOrCreate(ctx, mustID(t, fmt.Sprintf("race%d", i)))
		require.NoError(t, err)
		require.NoError(t, h.Doc().AppendSlide("t", "c", pptx.DefaultLayout))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Persist(ctx, h)
		}()
		go func() {
			defer wg.Done()
			_ = h.Close()
		}()
		wg.Wait()
		_ = h.Close()
	}
}

func TestLockMapDoesNotLeak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		h, err := s.OpenOrCreate(ctx, mustID(t, fmt.Sprintf("deck%d", i)))
		require.NoError(t, err)
		require.NoError(t, h.Close())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.locks)
}
