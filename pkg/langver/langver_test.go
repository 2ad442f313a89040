package langver_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
)

func TestKnown_SortedAndComplete(t *testing.T) {
	t.Parallel()

	tags := langver.Known()
	require.Len(t, tags, 8)
	assert.Equal(t, langver.Count(), len(tags))

	assert.True(t, slices.IsSortedFunc(tags, func(a, b langver.Tag) int { return a.Compare(b) }))
	assert.Equal(t, langver.V7_1, tags[0])
	assert.Equal(t, langver.V12_0, tags[len(tags)-1])
}

func TestKnown_ReturnsCopy(t *testing.T) {
	t.Parallel()

	tags := langver.Known()
	tags[0] = langver.Tag{Major: 1}

	assert.Equal(t, langver.V7_1, langver.Known()[0])
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want langver.Tag
		err  error
	}{
		{in: "7.1", want: langver.V7_1},
		{in: "8", want: langver.V8_0},
		{in: " 10.0 ", want: langver.V10_0},
		{in: "6.0", err: langver.ErrUnknownTag},
		{in: "seven", err: langver.ErrMalformedTag},
		{in: "7.x", err: langver.ErrMalformedTag},
	}

	for _, tt := range tests {
		got, err := langver.Parse(tt.in)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, tt.in)

			continue
		}

		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTag_CompareAndString(t *testing.T) {
	t.Parallel()

	assert.True(t, langver.V7_3.Less(langver.V8_0))
	assert.True(t, langver.V7_1.Less(langver.V7_2))
	assert.Equal(t, 0, langver.V9_0.Compare(langver.Tag{Major: 9}))
	assert.Equal(t, 1, langver.V12_0.Compare(langver.V11_0))
	assert.Equal(t, "10.0", langver.V10_0.String())
}

func TestTag_TextRoundTrip(t *testing.T) {
	t.Parallel()

	text, err := langver.V11_0.MarshalText()
	require.NoError(t, err)

	var tag langver.Tag
	require.NoError(t, tag.UnmarshalText(text))
	assert.Equal(t, langver.V11_0, tag)

	require.Error(t, tag.UnmarshalText([]byte("5.0")))
}
