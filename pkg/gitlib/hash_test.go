package gitlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
)

func TestHash_RoundTrip(t *testing.T) {
	t.Parallel()

	const hex = "abcdef1234567890abcdef1234567890abcdef12"

	h, err := gitlib.ParseHash(hex)
	require.NoError(t, err)

	assert.Equal(t, hex, h.String())
	assert.Equal(t, "abcdef1", h.Short())
	assert.False(t, h.IsZero())
	assert.True(t, gitlib.Hash{}.IsZero())
	assert.Equal(t, h, gitlib.HashFromOid(h.ToOid()))
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"full lower", "0123456789abcdef0123456789abcdef01234567", true},
		{"full upper", "0123456789ABCDEF0123456789ABCDEF01234567", true},
		{"short", "abc1234", false},
		{"non hex", "zz23456789abcdef0123456789abcdef01234567", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := gitlib.ParseHash(tt.input)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, gitlib.ErrInvalidHash)
			}
		})
	}
}
