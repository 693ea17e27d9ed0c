// Package auth implements the shared-secret gate in front of the write and
// download endpoints. It emits only an authorized / unauthorized decision;
// nothing downstream sees the key itself.
package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/sha3"
)

var (
	// ErrUnauthorized indicates a missing or non-matching API key.
	ErrUnauthorized = errors.New("auth: invalid api key")

	// ErrNoKeyConfigured indicates the service was started without a key.
	ErrNoKeyConfigured = errors.New("auth: no api key configured")
)

// Service compares presented API keys against the single key injected at
// startup. No process-wide state; construct one and pass it where needed.
type Service struct {
	key []byte
}

// NewService builds the gate around one shared-secret key.
func NewService(key string) (*Service, error) {
	if key == "" {
		return nil, ErrNoKeyConfigured
	}
	return &Service{key: []byte(key)}, nil
}

// Authenticate returns nil when provided matches the configured key. The
// comparison is constant-time so response timing leaks nothing about how
// much of a guess matched.
func (s *Service) Authenticate(provided string) error {
	if provided == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(s.key, []byte(provided)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Fingerprint returns a short Keccak-256 digest of the configured key,
// suitable for startup logs. The key itself is never logged.
func (s *Service) Fingerprint() string {
	h := sha3.NewLegacyKeccak256()
	h.Write(s.key)
	return hex.EncodeToString(h.Sum(nil)[:8])
}
