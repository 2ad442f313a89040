// Package gitlib wraps the libgit2 operations needed to walk a repository's
// history and check commits out into its working tree.
package gitlib

import (
	"encoding/hex"
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// ShortHashSize is the length of an abbreviated hash.
	ShortHashSize = 7
)

// ErrInvalidHash is returned for strings that are not 40 hex digits.
var ErrInvalidHash = errors.New("invalid hash")

// Hash is a git object id (SHA-1).
type Hash [HashSize]byte

// ParseHash parses a full hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash

	if hex.DecodedLen(len(s)) != HashSize {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	return h, nil
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	return Hash(*oid)
}

// String returns the lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form used in snapshot names.
func (h Hash) Short() string {
	return h.String()[:ShortHashSize]
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts h to a libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := git2go.Oid(h)

	return &oid
}
