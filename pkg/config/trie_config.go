package config

import (
	"errors"
)

// DefaultCacheSize is the default number of nodes kept in the LRU node cache.
const DefaultCacheSize = 4096

// TrieConfiguration contains trie engine settings.
type TrieConfiguration struct {
	// CacheSize is the number of recently used nodes to keep in memory,
	// 0 disables the cache.
	CacheSize int `yaml:"CacheSize"`
	// CleanCacheMB is the size of the off-heap node cache in megabytes,
	// 0 disables it.
	CleanCacheMB int `yaml:"CleanCacheMB"`
	// SecureKeys enables hashing of all keys before they're used as trie
	// paths.
	SecureKeys bool `yaml:"SecureKeys"`
	// VerifyNodes enables digest checks for every node loaded from storage.
	VerifyNodes bool `yaml:"VerifyNodes"`
}

// Validate checks TrieConfiguration for consistency.
func (t TrieConfiguration) Validate() error {
	if t.CacheSize < 0 {
		return errors.New("negative CacheSize")
	}
	if t.CleanCacheMB < 0 {
		return errors.New("negative CleanCacheMB")
	}
	return nil
}
