// Package textutil prepares source bytes for parsing: byte order marks are
// removed, UTF-16 is transcoded and binary content is detected.
package textutil

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// ErrBinary is returned by Normalize for content that is not text.
var ErrBinary = errors.New("binary content")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// Normalize returns data as BOM-less UTF-8. UTF-16 input is recognized by
// its byte order mark only.
func Normalize(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		decoder := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()

		out, _, err := transform.Bytes(unicode.BOMOverride(decoder), data)
		if err != nil {
			return nil, fmt.Errorf("decode utf-16: %w", err)
		}

		data = out
	}

	if IsBinary(data) {
		return nil, ErrBinary
	}

	return data, nil
}
