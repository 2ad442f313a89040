package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// persisterState is a struct for persister testing.
type persisterState struct {
	Label string `json:"label" yaml:"label"`
	Value int    `json:"value" yaml:"value"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	p := NewPersister[persisterState](NewYAMLCodec())

	original := persisterState{Label: "hello", Value: 42}

	path, err := p.Save(dir, "mystate", &original)
	require.NoError(t, err)
	assert.Equal(t, p.Path(dir, "mystate"), path)

	restored, err := p.Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	p := NewPersister[persisterState](NewJSONCodec())

	_, err := p.Load(p.Path(t.TempDir(), "nope"))
	require.Error(t, err)
}
