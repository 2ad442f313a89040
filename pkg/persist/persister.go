package persist

import "path/filepath"

// Persister handles I/O for a specific state type using a Codec.
type Persister[T any] struct {
	codec Codec
}

// NewPersister creates a persister writing with codec.
func NewPersister[T any](codec Codec) *Persister[T] {
	return &Persister[T]{codec: codec}
}

// Codec returns the codec used for writing.
func (p *Persister[T]) Codec() Codec {
	return p.codec
}

// Path returns the file path Save would use.
func (p *Persister[T]) Path(dir, basename string) string {
	return filepath.Join(dir, basename+p.codec.Extension())
}

// Save writes state under dir without overwriting and returns the file path.
func (p *Persister[T]) Save(dir, basename string, state *T) (string, error) {
	return SaveState(dir, basename, p.codec, state)
}

// Load restores a state file of any supported format.
func (p *Persister[T]) Load(path string) (T, error) {
	var state T

	err := LoadState(path, &state)

	return state, err
}
