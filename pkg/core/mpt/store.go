package mpt

import (
	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/ethtrie/pkg/core/storage"
	"github.com/nspcc-dev/ethtrie/pkg/util"
)

type (
	// Store is a content-addressed node storage used by the Trie. Get must
	// return storage.ErrKeyNotFound for missing nodes. Data stored under
	// some digest is never changed.
	Store interface {
		Get(h util.Uint256) ([]byte, error)
		Put(h util.Uint256, data []byte) error
		Delete(h util.Uint256) error
	}

	// Batcher is implemented by stores able to write a set of nodes
	// atomically. Trie commits use it when available.
	Batcher interface {
		PutBatch(nodes map[util.Uint256][]byte) error
	}
)

// StorageAdapter stores trie nodes in a generic key-value storage.
type StorageAdapter struct {
	store storage.Store
}

var (
	_ Store   = (*StorageAdapter)(nil)
	_ Batcher = (*StorageAdapter)(nil)
)

// NewStorageAdapter returns a Store putting nodes into s with DataMPT prefix.
func NewStorageAdapter(s storage.Store) *StorageAdapter {
	return &StorageAdapter{store: s}
}

func makeStorageKey(h util.Uint256) []byte {
	return append([]byte{byte(storage.DataMPT)}, h[:]...)
}

// Get implements Store interface.
func (s *StorageAdapter) Get(h util.Uint256) ([]byte, error) {
	return s.store.Get(makeStorageKey(h))
}

// Put implements Store interface.
func (s *StorageAdapter) Put(h util.Uint256, data []byte) error {
	return s.store.Put(makeStorageKey(h), data)
}

// Delete implements Store interface.
func (s *StorageAdapter) Delete(h util.Uint256) error {
	return s.store.Delete(makeStorageKey(h))
}

// PutBatch implements Batcher interface.
func (s *StorageAdapter) PutBatch(nodes map[util.Uint256][]byte) error {
	puts := make(map[string][]byte, len(nodes))
	for h, data := range nodes {
		puts[string(makeStorageKey(h))] = data
	}
	return s.store.PutChangeSet(puts)
}

// putBatch writes nodes to s using batch interface when it's available.
func putBatch(s Store, nodes map[util.Uint256][]byte) error {
	if b, ok := s.(Batcher); ok {
		return b.PutBatch(nodes)
	}
	for h, data := range nodes {
		if err := s.Put(h, data); err != nil {
			return err
		}
	}
	return nil
}

// CachedStore is a Store wrapper keeping a fixed number of recently used
// nodes in memory.
type CachedStore struct {
	Store
	cache *lru.Cache
}

var _ Batcher = (*CachedStore)(nil)

// NewCachedStore returns s wrapped into LRU cache of the given size.
func NewCachedStore(s Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: s, cache: cache}, nil
}

// Get implements Store interface.
func (c *CachedStore) Get(h util.Uint256) ([]byte, error) {
	if v, ok := c.cache.Get(h); ok {
		cacheHits.WithLabelValues("lru").Inc()
		return v.([]byte), nil
	}
	data, err := c.Store.Get(h)
	if err != nil {
		return nil, err
	}
	c.cache.Add(h, data)
	return data, nil
}

// Put implements Store interface.
func (c *CachedStore) Put(h util.Uint256, data []byte) error {
	if err := c.Store.Put(h, data); err != nil {
		return err
	}
	c.cache.Add(h, data)
	return nil
}

// Delete implements Store interface.
func (c *CachedStore) Delete(h util.Uint256) error {
	c.cache.Remove(h)
	return c.Store.Delete(h)
}

// PutBatch implements Batcher interface.
func (c *CachedStore) PutBatch(nodes map[util.Uint256][]byte) error {
	if err := putBatch(c.Store, nodes); err != nil {
		return err
	}
	for h, data := range nodes {
		c.cache.Add(h, data)
	}
	return nil
}

// Len returns the number of cached nodes.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}

// CleanCache is a Store wrapper with a byte-limited cache of node encodings.
// Unlike CachedStore it keeps data off the Go heap, so it's better suited for
// large caches.
type CleanCache struct {
	Store
	cache *fastcache.Cache
}

var _ Batcher = (*CleanCache)(nil)

// NewCleanCache returns s wrapped into a cache of the given size in megabytes.
func NewCleanCache(s Store, megabytes int) *CleanCache {
	return &CleanCache{
		Store: s,
		cache: fastcache.New(megabytes * 1024 * 1024),
	}
}

// Get implements Store interface.
func (c *CleanCache) Get(h util.Uint256) ([]byte, error) {
	if blob, found := c.cache.HasGet(nil, h[:]); found && len(blob) > 0 {
		cacheHits.WithLabelValues("clean").Inc()
		return blob, nil
	}
	data, err := c.Store.Get(h)
	if err != nil {
		return nil, err
	}
	c.cache.Set(h[:], data)
	return data, nil
}

// Put implements Store interface.
func (c *CleanCache) Put(h util.Uint256, data []byte) error {
	if err := c.Store.Put(h, data); err != nil {
		return err
	}
	c.cache.Set(h[:], data)
	return nil
}

// Delete implements Store interface.
func (c *CleanCache) Delete(h util.Uint256) error {
	c.cache.Del(h[:])
	return c.Store.Delete(h)
}

// PutBatch implements Batcher interface.
func (c *CleanCache) PutBatch(nodes map[util.Uint256][]byte) error {
	if err := putBatch(c.Store, nodes); err != nil {
		return err
	}
	for h, data := range nodes {
		c.cache.Set(h[:], data)
	}
	return nil
}

// Reset drops all cached data.
func (c *CleanCache) Reset() {
	c.cache.Reset()
}
