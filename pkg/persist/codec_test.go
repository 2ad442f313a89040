package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState is a struct for codec testing.
type testState struct {
	Name   string         `json:"name"   yaml:"name"`
	Count  int            `json:"count"  yaml:"count"`
	Values map[string]int `json:"values" yaml:"values"`
}

func sampleState() testState {
	return testState{Name: "demo", Count: 42, Values: map[string]int{"8.0": 3, "9.0": 1}}
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	codecs := []Codec{
		NewJSONCodec(),
		NewYAMLCodec(),
		NewLZ4Codec(NewYAMLCodec()),
		NewLZ4Codec(&JSONCodec{}),
	}

	for _, codec := range codecs {
		t.Run(codec.Extension(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			require.NoError(t, codec.Encode(&buf, sampleState()))

			var decoded testState

			require.NoError(t, codec.Decode(&buf, &decoded))
			assert.Equal(t, sampleState(), decoded)
		})
	}
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, (&JSONCodec{}).Encode(&buf, sampleState()))

	// Compact JSON has at most one trailing newline (from json.Encoder).
	assert.LessOrEqual(t, strings.Count(buf.String(), "\n"), 1)
}

func TestYAMLCodec_Keys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, NewYAMLCodec().Encode(&buf, sampleState()))

	out := buf.String()
	assert.Contains(t, out, "name: demo\n")
	assert.Contains(t, out, "\"8.0\": 3")
}

func TestLZ4Codec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".yaml.lz4", NewLZ4Codec(NewYAMLCodec()).Extension())
	assert.Equal(t, ".json", NewJSONCodec().Extension())
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		ext  string
	}{
		{"a/snap.json", ".json"},
		{"snap.YAML", ".yaml"},
		{"snap.yml", ".yaml"},
		{"snap.yaml.lz4", ".yaml.lz4"},
		{"snap.json.lz4", ".json.lz4"},
	}

	for _, tt := range tests {
		codec, err := CodecFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.ext, codec.Extension(), tt.path)
	}

	_, err := CodecFor("snap.txt")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSaveState_NeverOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := SaveState(dir, "state", NewYAMLCodec(), sampleState())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "state.yaml"), path)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	other := sampleState()
	other.Count = 7

	_, err = SaveState(dir, "state", NewYAMLCodec(), other)
	require.ErrorIs(t, err, ErrExists)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveState_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := SaveState(filepath.Join(t.TempDir(), "missing"), "state", NewJSONCodec(), sampleState())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExists)
}

func TestLoadState_ByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := SaveState(dir, "state", NewLZ4Codec(NewJSONCodec()), sampleState())
	require.NoError(t, err)

	var loaded testState

	require.NoError(t, LoadState(path, &loaded))
	assert.Equal(t, sampleState(), loaded)

	require.Error(t, LoadState(filepath.Join(dir, "absent.json"), &loaded))
}
