package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	svc, err := NewService("topsecret")
	require.NoError(t, err)

	assert.NoError(t, svc.Authenticate("topsecret"))
	assert.ErrorIs(t, svc.Authenticate("wrong"), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authenticate(""), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authenticate("topsecret "), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authenticate("TOPSECRET"), ErrUnauthorized)
}

func TestNewServiceRequiresKey(t *testing.T) {
	_, err := NewService("")
	require.ErrorIs(t, err, ErrNoKeyConfigured)
}

func TestFingerprint(t *testing.T) {
	a, err := NewService("key-one")
	require.NoError(t, err)
	b, err := NewService("key-two")
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 16)
	assert.Equal(t, a.Fingerprint(), a.Fingerprint(), "fingerprint is stable")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.NotContains(t, a.Fingerprint(), "key-one")
}
