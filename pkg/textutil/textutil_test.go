package textutil_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/textutil"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"text", []byte("class C { }"), false},
		{"null at start", []byte{0, 'a'}, true},
		{"null at sniff boundary", append(bytes.Repeat([]byte("a"), textutil.BinarySniffLength-1), 0), true},
		{"null beyond sniff boundary", append(bytes.Repeat([]byte("a"), textutil.BinarySniffLength), 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, textutil.IsBinary(tt.data))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	src := "class C { }"

	got, err := textutil.Normalize([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, src, string(got))

	got, err = textutil.Normalize(append([]byte{0xEF, 0xBB, 0xBF}, src...))
	require.NoError(t, err)
	assert.Equal(t, src, string(got))

	le := []byte{0xFF, 0xFE}
	for _, r := range src {
		le = append(le, byte(r), 0)
	}

	got, err = textutil.Normalize(le)
	require.NoError(t, err)
	assert.Equal(t, src, string(got))

	be := []byte{0xFE, 0xFF}
	for _, r := range src {
		be = append(be, 0, byte(r))
	}

	got, err = textutil.Normalize(be)
	require.NoError(t, err)
	assert.Equal(t, src, string(got))

	_, err = textutil.Normalize([]byte{'M', 'Z', 0, 0, 3})
	require.ErrorIs(t, err, textutil.ErrBinary)
}
