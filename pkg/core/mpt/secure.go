package mpt

import (
	"github.com/nspcc-dev/ethtrie/pkg/crypto/hash"
	"github.com/nspcc-dev/ethtrie/pkg/util"
)

// SecureTrie wraps a Trie hashing all keys with the trie's Hasher before
// use, which keeps the trie balanced whatever keys are used. Original keys
// are not stored anywhere.
type SecureTrie struct {
	trie   *Trie
	hasher hash.Hasher
}

// NewSecureTrie returns new empty SecureTrie.
func NewSecureTrie(cfg Config) *SecureTrie {
	return newSecureTrie(NewTrie(cfg))
}

// OpenSecureTrie returns SecureTrie with the specified root, see OpenTrie.
func OpenSecureTrie(root util.Uint256, cfg Config) (*SecureTrie, error) {
	t, err := OpenTrie(root, cfg)
	if err != nil {
		return nil, err
	}
	return newSecureTrie(t), nil
}

func newSecureTrie(t *Trie) *SecureTrie {
	return &SecureTrie{trie: t, hasher: t.hasher}
}

func (s *SecureTrie) hashKey(key []byte) []byte {
	h := s.hasher.Hash(key)
	return h[:]
}

// Insert puts key-value pair in s, see Trie.Insert.
func (s *SecureTrie) Insert(key, value []byte) error {
	return s.trie.Insert(s.hashKey(key), value)
}

// Get returns value for the provided key, see Trie.Get.
func (s *SecureTrie) Get(key []byte) ([]byte, error) {
	return s.trie.Get(s.hashKey(key))
}

// Contains checks whether key is present in s.
func (s *SecureTrie) Contains(key []byte) (bool, error) {
	return s.trie.Contains(s.hashKey(key))
}

// Remove removes key from s, see Trie.Remove.
func (s *SecureTrie) Remove(key []byte) (bool, error) {
	return s.trie.Remove(s.hashKey(key))
}

// Root commits s and returns its root digest, see Trie.Root.
func (s *SecureTrie) Root() (util.Uint256, error) {
	return s.trie.Root()
}

// GetProof returns a proof for the key, see Trie.GetProof.
func (s *SecureTrie) GetProof(key []byte) ([][]byte, error) {
	return s.trie.GetProof(s.hashKey(key))
}

// Trie returns the underlying trie operating on hashed keys.
func (s *SecureTrie) Trie() *Trie {
	return s.trie
}
