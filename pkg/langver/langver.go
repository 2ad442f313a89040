// Package langver defines the closed set of C# language versions that
// feature rules may be tagged with.
package langver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownTag is returned when a version string does not name a known tag.
var ErrUnknownTag = errors.New("unknown language version")

// ErrMalformedTag is returned when a version string cannot be parsed at all.
var ErrMalformedTag = errors.New("malformed language version")

// Tag identifies a language revision. Tags are totally ordered by
// (Major, Minor).
type Tag struct {
	Major int
	Minor int
}

// Known tags, oldest first.
var (
	V7_1  = Tag{7, 1}
	V7_2  = Tag{7, 2}
	V7_3  = Tag{7, 3}
	V8_0  = Tag{8, 0}
	V9_0  = Tag{9, 0}
	V10_0 = Tag{10, 0}
	V11_0 = Tag{11, 0}
	V12_0 = Tag{12, 0}
)

// NumTags is the size of the known enumeration.
const NumTags = 8

var known = [NumTags]Tag{V7_1, V7_2, V7_3, V8_0, V9_0, V10_0, V11_0, V12_0}

// Known returns a copy of the fixed tag enumeration in ascending order.
func Known() []Tag {
	out := known

	return out[:]
}

// Count returns the size of the known enumeration.
func Count() int {
	return NumTags
}

// Index returns the position of t in Known, or -1.
func Index(t Tag) int {
	for i, k := range known {
		if k == t {
			return i
		}
	}

	return -1
}

// IsKnown reports whether t belongs to the fixed enumeration.
func IsKnown(t Tag) bool {
	return Index(t) >= 0
}

// Compare returns -1, 0 or +1.
func (t Tag) Compare(other Tag) int {
	switch {
	case t.Major < other.Major:
		return -1
	case t.Major > other.Major:
		return 1
	case t.Minor < other.Minor:
		return -1
	case t.Minor > other.Minor:
		return 1
	default:
		return 0
	}
}

// Less reports whether t sorts before other.
func (t Tag) Less(other Tag) bool {
	return t.Compare(other) < 0
}

// String renders the tag as "major.minor".
func (t Tag) String() string {
	return strconv.Itoa(t.Major) + "." + strconv.Itoa(t.Minor)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Only known tags are accepted.
func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Parse converts "7.1", "8" or "10.0" into a known Tag.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)

	majorStr, minorStr, hasMinor := strings.Cut(s, ".")
	if !hasMinor {
		minorStr = "0"
	}

	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return Tag{}, fmt.Errorf("%w: %q", ErrMalformedTag, s)
	}

	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return Tag{}, fmt.Errorf("%w: %q", ErrMalformedTag, s)
	}

	tag := Tag{Major: major, Minor: minor}
	if !IsKnown(tag) {
		return Tag{}, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}

	return tag, nil
}

// MustParse is Parse for package-level tables; it panics on error.
func MustParse(s string) Tag {
	tag, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return tag
}
