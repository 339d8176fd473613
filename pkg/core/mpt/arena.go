package mpt

import (
	"github.com/nspcc-dev/ethtrie/pkg/util"
)

// entry is a single node slot of the arena.
type entry struct {
	node Node
	// dirty is set for nodes changed since the last successful commit, enc and
	// hash are meaningless for them.
	dirty bool
	// enc is the canonical encoding of node.
	enc []byte
	// hash is the digest of enc. It's valid for all clean nodes encoded into
	// at least hashLen bytes and for the root.
	hash util.Uint256
	// stored is set when enc is known to be persisted under hash.
	stored bool
	used   bool
}

// arena is a session-local node table addressed by integer handles. Every
// handle is referenced from exactly one place (parent node or the trie root),
// so nodes can be changed in place.
type arena struct {
	entries []entry
	free    []int
	live    int
}

func (a *arena) put(e entry) int {
	e.used = true
	a.live++
	if l := len(a.free); l != 0 {
		h := a.free[l-1]
		a.free = a.free[:l-1]
		a.entries[h] = e
		return h
	}
	a.entries = append(a.entries, e)
	return len(a.entries) - 1
}

// alloc stores a new dirty node.
func (a *arena) alloc(n Node) int {
	return a.put(entry{node: n, dirty: true})
}

// allocClean stores a node loaded from the storage or from the parent's
// encoding.
func (a *arena) allocClean(n Node, enc []byte, h util.Uint256, stored bool) int {
	return a.put(entry{node: n, enc: enc, hash: h, stored: stored})
}

func (a *arena) get(h int) *entry {
	if h < 0 || h >= len(a.entries) || !a.entries[h].used {
		panic("invalid node handle")
	}
	return &a.entries[h]
}

func (a *arena) node(h int) Node {
	return a.get(h).node
}

// set replaces node at h marking it dirty.
func (a *arena) set(h int, n Node) {
	e := a.get(h)
	*e = entry{node: n, dirty: true, used: true}
}

// markDirty invalidates cached encoding of the node at h.
func (a *arena) markDirty(h int) {
	e := a.get(h)
	e.dirty = true
	e.enc = nil
	e.stored = false
}

// release frees a single slot, children are not touched.
func (a *arena) release(h int) {
	a.get(h)
	a.entries[h] = entry{}
	a.free = append(a.free, h)
	a.live--
}

// len returns the number of live nodes.
func (a *arena) len() int {
	return a.live
}
