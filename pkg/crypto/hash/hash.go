/*
Package hash contains digest functions used to identify trie nodes.
*/
package hash

import (
	"crypto/sha256"

	"github.com/nspcc-dev/ethtrie/pkg/util"
	"golang.org/x/crypto/sha3"
)

// Hasher computes a fixed-size digest of the given data. Implementations
// must be deterministic and collision-resistant.
type Hasher interface {
	Hash(data []byte) util.Uint256
}

// HasherFunc is an adapter allowing to use ordinary functions as Hasher.
type HasherFunc func(data []byte) util.Uint256

// Hash implements Hasher interface.
func (f HasherFunc) Hash(data []byte) util.Uint256 {
	return f(data)
}

var (
	// KeccakHasher is a Hasher using legacy Keccak-256, the digest used by
	// Ethereum tries.
	KeccakHasher Hasher = HasherFunc(Keccak256)
	// Sha256Hasher is a Hasher using SHA-256.
	Sha256Hasher Hasher = HasherFunc(Sha256)
)

// Keccak256 hashes the incoming byte slice using the legacy Keccak-256
// algorithm (not the standardized SHA3-256).
func Keccak256(data []byte) util.Uint256 {
	var h util.Uint256

	d := sha3.NewLegacyKeccak256()
	_, _ = d.Write(data) // hash.Hash never returns an error on Write
	d.Sum(h[:0])
	return h
}

// Sha256 hashes the incoming byte slice using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	return sha256.Sum256(data)
}
