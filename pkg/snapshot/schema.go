package snapshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
)

const schemaTemplate = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "modernity snapshot",
  "type": "object",
  "required": ["repository", "commit", "date", "counts"],
  "properties": {
    "repository": {"type": "string", "minLength": 1},
    "commit": {"type": "string", "pattern": "^[0-9a-f]{7,64}$"},
    "date": {"type": "string", "format": "date-time"},
    "counts": {
      "type": "object",
      "patternProperties": {"%s": {"type": "integer", "minimum": 0}},
      "additionalProperties": false
    },
    "files": {"type": "integer", "minimum": 0},
    "failed_files": {"type": "integer", "minimum": 0},
    "failures": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "kind"],
        "properties": {
          "path": {"type": "string"},
          "kind": {"type": "string", "enum": ["parse", "io", "timeout", "too_large", "partial", "binary"]},
          "detail": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(fmt.Sprintf(schemaTemplate, versionKeyPattern()))

// versionKeyPattern matches exactly the known version tags.
func versionKeyPattern() string {
	tags := langver.Known()
	alts := make([]string, len(tags))

	for i, tag := range tags {
		alts[i] = regexp.QuoteMeta(tag.String())
	}

	// Escaped for embedding in a JSON string.
	return strings.ReplaceAll("^("+strings.Join(alts, "|")+")$", `\`, `\\`)
}

// Validate checks a decoded document (maps, slices and scalars as produced
// by a JSON or YAML decoder) against the snapshot schema.
func Validate(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidSnapshot, strings.Join(msgs, "; "))
}
