package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "deck1", true},
		{"mixed", "Q3_review-2026", true},
		{"single char", "a", true},
		{"max length", strings.Repeat("x", MaxIDLength), true},
		{"empty", "", false},
		{"too long", strings.Repeat("x", MaxIDLength+1), false},
		{"slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"parent dir", "../etc/passwd", false},
		{"dots", "a..b", false},
		{"nul byte", "a\x00b", false},
		{"space", "a b", false},
		{"unicode", "präsentation", false},
		{"query chars", "id?x=1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.input, id.String())
				assert.False(t, id.IsZero())
			} else {
				require.ErrorIs(t, err, ErrInvalidID)
				assert.True(t, id.IsZero())
			}
		})
	}
}

func TestZeroIDIsInvalid(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.Equal(t, "", id.String())
}
