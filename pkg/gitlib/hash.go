// Package gitlib implements the blocking repository queries behind the dashboard
// on top of libgit2: working-copy status, commit file lists, commit comparison,
// fast-forward merge, stash and discard.
package gitlib

import (
	"bytes"
	"encoding/hex"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	// HashSize is the size of a SHA-1 object id in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 object id.
	HashHexSize = 40
	// shortHashSize is the abbreviated length used in display.
	shortHashSize = 7
)

// Hash is a git object id. The zero value means "no object".
type Hash [HashSize]byte

// ParseHash decodes a full 40-character hex object id.
func ParseHash(hexStr string) (Hash, error) {
	var h Hash

	if len(hexStr) != HashHexSize {
		return h, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	_, err := hex.Decode(h[:], []byte(hexStr))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	return h, nil
}

// HashFromOid converts a libgit2 Oid to Hash. A nil Oid yields the zero hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	if oid == nil {
		return h
	}

	copy(h[:], oid[:])

	return h
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form.
func (h Hash) Short() string {
	return h.String()[:shortHashSize]
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Compare orders hashes bytewise, the same order libgit2 uses for oids.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// ToOid converts Hash back to a libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}

// MarshalText renders the hash as hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a full hex hash.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}
