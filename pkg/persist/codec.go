// Package persist provides codec-based file persistence for snapshot documents.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	ymlExtension  = ".yml"
	lz4Extension  = ".lz4"
)

// Default indentation for pretty-printed output.
const (
	defaultIndent     = "  "
	defaultYAMLIndent = 2
)

// ErrExists is returned when a state file is already present; files are never overwritten.
var ErrExists = errors.New("state file already exists")

// ErrUnknownFormat is returned for file extensions no codec handles.
var ErrUnknownFormat = errors.New("unknown state file format")

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json", ".yaml.lz4").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	err := json.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using YAML encoding.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, state any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultYAMLIndent)

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding.
func (c *YAMLCodec) Decode(r io.Reader, state any) error {
	err := yaml.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// LZ4Codec frames the output of another codec in an LZ4 stream.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec wraps inner with LZ4 compression.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode implements Codec.Encode.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, state)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	return c.Inner.Decode(lz4.NewReader(r), state)
}

// Extension implements Codec.Extension, appending ".lz4" to the inner extension.
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// CodecFor selects a codec from a file name's extension.
func CodecFor(path string) (Codec, error) {
	name := strings.ToLower(filepath.Base(path))

	compressed := strings.HasSuffix(name, lz4Extension)
	name = strings.TrimSuffix(name, lz4Extension)

	var codec Codec

	switch filepath.Ext(name) {
	case jsonExtension:
		codec = NewJSONCodec()
	case yamlExtension, ymlExtension:
		codec = NewYAMLCodec()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if compressed {
		codec = NewLZ4Codec(codec)
	}

	return codec, nil
}

// SaveState writes state to dir/basename plus the codec's extension and
// returns the path. An existing file is left untouched and ErrExists is returned.
func SaveState(dir, basename string, codec Codec, state any) (string, error) {
	path := filepath.Join(dir, basename+codec.Extension())

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, fmt.Errorf("%w: %s", ErrExists, path)
		}

		return path, fmt.Errorf("create state file: %w", err)
	}

	err = codec.Encode(file, state)
	closeErr := file.Close()

	if err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(path)

		return path, fmt.Errorf("encode state: %w", err)
	}

	return path, nil
}

// LoadState decodes the file at path into state, choosing the codec by extension.
// The state parameter must be a pointer to the target struct.
func LoadState(path string, state any) error {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state %s: %w", path, err)
	}

	return nil
}
