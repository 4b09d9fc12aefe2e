// Package sha256 derives the dedup keys for catalog release names.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher turns a release name into a fixed-width hex key so the seen-set
// stays bounded no matter how long scene names get.
type Hasher struct{}

// New returns the release-name hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex SHA-256 of name. It never fails.
func (*Hasher) Hash(name []byte) (string, error) {
	digest := sha256.Sum256(name)
	return hex.EncodeToString(digest[:]), nil
}
