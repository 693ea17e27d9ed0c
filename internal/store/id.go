package store

import (
	"fmt"
	"regexp"
)

// MaxIDLength bounds the presentation id so it stays a sane filename stem.
const MaxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ID is a validated presentation identifier. It is the only type the store
// accepts for path derivation; the zero value is invalid. Construct one with
// ParseID.
type ID struct {
	value string
}

// ParseID validates a caller-supplied presentation id. The id ends up as a
// filename stem, so everything outside [A-Za-z0-9_-] is rejected: path
// separators, "..", NUL bytes and friends never reach the filesystem.
func ParseID(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(raw) > MaxIDLength {
		return ID{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidID, MaxIDLength)
	}
	if !idPattern.MatchString(raw) {
		return ID{}, fmt.Errorf("%w: must match [A-Za-z0-9_-]+", ErrInvalidID)
	}
	return ID{value: raw}, nil
}

// IsZero reports whether the ID was never validated.
func (id ID) IsZero() bool { return id.value == "" }

func (id ID) String() string { return id.value }
