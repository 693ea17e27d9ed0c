package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewMemory()
	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("caller", 5, time.Minute)
		require.True(t, ok, "request %d should pass", i)
	}
	ok, retry := l.Allow("caller", 5, time.Minute)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewMemory()
	ok, _ := l.Allow("a", 1, time.Minute)
	require.True(t, ok)
	ok, _ = l.Allow("a", 1, time.Minute)
	require.False(t, ok)

	ok, _ = l.Allow("b", 1, time.Minute)
	assert.True(t, ok, "other keys keep their own window")
}

func TestExpiredWindowsAreSweptOut(t *testing.T) {
	l := NewMemory()
	current := time.Now()
	l.now = func() time.Time { return current }

	for _, key := range []string{"a", "b", "c"} {
		ok, _ := l.Allow(key, 10, time.Minute)
		require.True(t, ok)
	}

	// Past the windows and the sweep interval, a single access from a new
	// caller drops every stale entry.
	current = current.Add(2 * time.Minute)
	ok, _ := l.Allow("d", 10, time.Minute)
	require.True(t, ok)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, "d")
}

func TestWindowResets(t *testing.T) {
	l := NewMemory()
	current := time.Now()
	l.now = func() time.Time { return current }

	ok, _ := l.Allow("caller", 1, time.Minute)
	require.True(t, ok)
	ok, _ = l.Allow("caller", 1, time.Minute)
	require.False(t, ok)

	current = current.Add(61 * time.Second)
	ok, _ = l.Allow("caller", 1, time.Minute)
	assert.True(t, ok, "expired window starts fresh")
}
