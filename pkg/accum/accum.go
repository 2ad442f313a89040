// Package accum provides the per-version match counter that every stage of
// the pipeline folds into.
package accum

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
)

// ErrNegativeCount is returned by FromMap for counts below zero.
var ErrNegativeCount = errors.New("negative feature count")

// Accumulator maps every known version tag to a non-negative count.
// The zero value is the identity element; it is a plain value and safe to copy.
type Accumulator struct {
	counts [langver.NumTags]int
}

// Zero returns the identity element for Merge.
func Zero() Accumulator {
	return Accumulator{}
}

// Add increments the count for tag by n. Unknown tags and non-positive n are ignored.
func (a *Accumulator) Add(tag langver.Tag, n int) {
	idx := langver.Index(tag)
	if idx < 0 || n <= 0 {
		return
	}

	a.counts[idx] += n
}

// Inc increments the count for tag by one.
func (a *Accumulator) Inc(tag langver.Tag) {
	a.Add(tag, 1)
}

// Get returns the count for tag, zero for unknown tags.
func (a Accumulator) Get(tag langver.Tag) int {
	idx := langver.Index(tag)
	if idx < 0 {
		return 0
	}

	return a.counts[idx]
}

// Total returns the sum over all tags.
func (a Accumulator) Total() int {
	total := 0
	for _, c := range a.counts {
		total += c
	}

	return total
}

// IsZero reports whether every count is zero.
func (a Accumulator) IsZero() bool {
	return a == Accumulator{}
}

// Equal reports whether both accumulators hold the same counts.
func (a Accumulator) Equal(b Accumulator) bool {
	return a == b
}

// Merge returns the component-wise sum of a and b.
func Merge(a, b Accumulator) Accumulator {
	var out Accumulator
	for i := range out.counts {
		out.counts[i] = a.counts[i] + b.counts[i]
	}

	return out
}

// MergeInto adds other into a in place.
func (a *Accumulator) MergeInto(other Accumulator) {
	for i := range a.counts {
		a.counts[i] += other.counts[i]
	}
}

// MergeAll folds any number of accumulators, starting from Zero.
func MergeAll(parts ...Accumulator) Accumulator {
	out := Zero()
	for _, p := range parts {
		out.MergeInto(p)
	}

	return out
}

// Entry is one (tag, count) pair.
type Entry struct {
	Tag   langver.Tag
	Count int
}

// Entries lists every known tag with its count, oldest version first.
func (a Accumulator) Entries() []Entry {
	tags := langver.Known()
	out := make([]Entry, len(tags))

	for i, tag := range tags {
		out[i] = Entry{Tag: tag, Count: a.counts[i]}
	}

	return out
}

// AsMap renders the accumulator as a flat "7.1" -> count document.
// Every known tag is present.
func (a Accumulator) AsMap() map[string]int {
	out := make(map[string]int, langver.NumTags)
	for _, e := range a.Entries() {
		out[e.Tag.String()] = e.Count
	}

	return out
}

// FromMap parses a flat "7.1" -> count document. Missing tags are zero;
// unknown tags and negative counts are rejected.
func FromMap(m map[string]int) (Accumulator, error) {
	var out Accumulator

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, key := range keys {
		tag, err := langver.Parse(key)
		if err != nil {
			return Accumulator{}, fmt.Errorf("accumulator key: %w", err)
		}

		if m[key] < 0 {
			return Accumulator{}, fmt.Errorf("%w: %s=%d", ErrNegativeCount, key, m[key])
		}

		out.counts[langver.Index(tag)] = m[key]
	}

	return out, nil
}

// MarshalYAML renders the flat tag map.
func (a Accumulator) MarshalYAML() (any, error) {
	return a.AsMap(), nil
}

// String renders "7.1=0 7.2=3 ..." for logs.
func (a Accumulator) String() string {
	var sb strings.Builder

	for i, e := range a.Entries() {
		if i > 0 {
			sb.WriteByte(' ')
		}

		fmt.Fprintf(&sb, "%s=%d", e.Tag, e.Count)
	}

	return sb.String()
}
