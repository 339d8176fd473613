package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nspcc-dev/ethtrie/pkg/core/storage"
	"github.com/nspcc-dev/ethtrie/pkg/crypto/hash"
	"github.com/nspcc-dev/ethtrie/pkg/util"
	"go.uber.org/zap"
)

var (
	// ErrStorage is returned when the underlying Store fails.
	ErrStorage = errors.New("storage failure")
	// ErrDecode is returned for malformed node data.
	ErrDecode = errors.New("malformed node")
	// ErrRootNotFound is returned when opening a trie with an unknown root.
	ErrRootNotFound = errors.New("root not found")
)

// EmptyRoot is the root digest of an empty trie, keccak256(0x80).
var EmptyRoot = hash.Keccak256(rlp.EmptyString)

// Config is the trie configuration.
type Config struct {
	// Store is the node storage, mandatory.
	Store Store
	// Hasher is used to compute node digests, Keccak-256 by default.
	Hasher hash.Hasher
	// Log is used for debug messages, nothing is logged if not set.
	Log *zap.Logger
	// VerifyNodes enables checking that every node read from the Store
	// matches the digest it was requested by.
	VerifyNodes bool
}

// Trie is an MPT trie storing all key-value pairs. It's not safe for
// concurrent use, but multiple tries can share the same Store.
type Trie struct {
	store     Store
	hasher    hash.Hasher
	log       *zap.Logger
	verify    bool
	emptyRoot util.Uint256

	nodes arena
	root  Ref

	// rootHash is valid when committed is set, that is when the trie was
	// not changed since the last successful commit.
	rootHash  util.Uint256
	committed bool
}

func newTrie(cfg Config) *Trie {
	if cfg.Store == nil {
		panic("nil trie store")
	}
	t := &Trie{
		store:  cfg.Store,
		hasher: cfg.Hasher,
		log:    cfg.Log,
		verify: cfg.VerifyNodes,
	}
	if t.hasher == nil {
		t.hasher = hash.KeccakHasher
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	t.emptyRoot = t.hasher.Hash(rlp.EmptyString)
	return t
}

// NewTrie returns new empty MPT trie.
func NewTrie(cfg Config) *Trie {
	return newTrie(cfg)
}

// OpenTrie returns trie with the specified root. The root node is read from
// the Store immediately, other nodes are loaded on demand.
func OpenTrie(root util.Uint256, cfg Config) (*Trie, error) {
	t := newTrie(cfg)
	t.rootHash = root
	t.committed = true
	if root == t.emptyRoot {
		return t, nil
	}
	n, data, err := t.load(root)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root.StringBE())
		}
		return nil, err
	}
	t.root = handleRef(t.nodes.allocClean(n, data, root, true))
	t.log.Debug("trie opened", zap.Stringer("root", root))
	return t, nil
}

// load reads and decodes node stored under h.
func (t *Trie) load(h util.Uint256) (Node, []byte, error) {
	data, err := t.store.Get(h)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: node %s: %w", ErrStorage, h.StringBE(), err)
	}
	nodesLoaded.Inc()
	if t.verify {
		if actual := t.hasher.Hash(data); actual != h {
			return nil, nil, fmt.Errorf("%w: node %s has digest %s", ErrDecode, h.StringBE(), actual.StringBE())
		}
	}
	n, err := DecodeNode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("node %s: %w", h.StringBE(), err)
	}
	if n.Type() == EmptyT {
		return nil, nil, fmt.Errorf("%w: node %s is empty", ErrDecode, h.StringBE())
	}
	return n, data, nil
}

// resolve returns arena handle for non-empty r loading the node if needed.
func (t *Trie) resolve(r Ref) (int, error) {
	switch r.kind {
	case refHandle:
		return r.handle, nil
	case RefHash:
		n, data, err := t.load(r.hash)
		if err != nil {
			return 0, err
		}
		return t.nodes.allocClean(n, data, r.hash, true), nil
	case RefInline:
		return t.nodes.allocClean(r.node, EncodeNode(r.node), util.Uint256{}, false), nil
	default:
		panic("can't resolve empty reference")
	}
}

// Get returns value for the provided key in t. Nil is returned for
// missing keys.
func (t *Trie) Get(key []byte) ([]byte, error) {
	path := toNibbles(key)
	r, val, err := t.getWithPath(t.root, path)
	t.root = r
	if err != nil {
		return nil, err
	}
	return bytes.Clone(val), nil
}

// Contains checks whether key is present in t.
func (t *Trie) Contains(key []byte) (bool, error) {
	val, err := t.Get(key)
	return val != nil, err
}

// getWithPath returns value the provided path in a subtrie rooting in curr.
// It also returns a reference to curr with digest and inline references
// along the path replaced by arena handles.
func (t *Trie) getWithPath(curr Ref, path []byte) (Ref, []byte, error) {
	if curr.IsEmpty() {
		return curr, nil, nil
	}
	h, err := t.resolve(curr)
	if err != nil {
		return curr, nil, err
	}
	switch n := t.nodes.node(h).(type) {
	case *LeafNode:
		if bytes.Equal(n.Path, path) {
			return handleRef(h), n.Value, nil
		}
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.Path) {
			r, val, err := t.getWithPath(n.Next, path[len(n.Path):])
			n.Next = r
			return handleRef(h), val, err
		}
	case *BranchNode:
		if len(path) == 0 {
			return handleRef(h), n.Value, nil
		}
		i, path := splitPath(path)
		r, val, err := t.getWithPath(n.Children[i], path)
		n.Children[i] = r
		return handleRef(h), val, err
	default:
		panic("invalid MPT node type")
	}
	return handleRef(h), nil, nil
}

// Insert puts key-value pair in t. Empty value removes the key.
func (t *Trie) Insert(key, value []byte) error {
	if len(value) == 0 {
		_, err := t.Remove(key)
		return err
	}
	path := toNibbles(key)
	r, err := t.putIntoNode(t.root, path, bytes.Clone(value))
	t.root = r
	if err != nil {
		return err
	}
	t.committed = false
	return nil
}

// putIntoNode puts val to the subtrie rooting in curr. It returns reference
// that should replace curr. The reference is valid even in case of error.
func (t *Trie) putIntoNode(curr Ref, path, val []byte) (Ref, error) {
	if curr.IsEmpty() {
		return handleRef(t.nodes.alloc(NewLeafNode(bytes.Clone(path), val))), nil
	}
	h, err := t.resolve(curr)
	if err != nil {
		return curr, err
	}
	switch n := t.nodes.node(h).(type) {
	case *LeafNode:
		return t.putIntoLeaf(h, n, path, val), nil
	case *ExtensionNode:
		return t.putIntoExtension(h, n, path, val)
	case *BranchNode:
		return t.putIntoBranch(h, n, path, val)
	default:
		panic("invalid MPT node type")
	}
}

// putIntoLeaf puts val to trie if current node is a Leaf.
func (t *Trie) putIntoLeaf(h int, curr *LeafNode, path, val []byte) Ref {
	if bytes.Equal(curr.Path, path) {
		curr.Value = val
		t.nodes.markDirty(h)
		return handleRef(h)
	}
	pref := bytes.Clone(lcp(curr.Path, path))
	b := NewBranchNode()
	if rest := curr.Path[len(pref):]; len(rest) == 0 {
		b.Value = curr.Value
		t.nodes.release(h)
	} else {
		curr.Path = rest[1:]
		t.nodes.markDirty(h)
		b.Children[rest[0]] = handleRef(h)
	}
	t.addToBranch(b, path[len(pref):], val)
	return t.newSubTrie(pref, b)
}

// putIntoExtension puts val to trie if current node is an Extension.
func (t *Trie) putIntoExtension(h int, curr *ExtensionNode, path, val []byte) (Ref, error) {
	if bytes.HasPrefix(path, curr.Path) {
		if err := t.resolveExtensionChild(curr); err != nil {
			return handleRef(h), err
		}
		r, err := t.putIntoNode(curr.Next, path[len(curr.Path):], val)
		curr.Next = r
		if err != nil {
			return handleRef(h), err
		}
		t.nodes.markDirty(h)
		return handleRef(h), nil
	}

	pref := bytes.Clone(lcp(curr.Path, path))
	b := NewBranchNode()
	if rest := curr.Path[len(pref):]; len(rest) == 1 {
		b.Children[rest[0]] = curr.Next
		t.nodes.release(h)
	} else {
		curr.Path = rest[1:]
		t.nodes.markDirty(h)
		b.Children[rest[0]] = handleRef(h)
	}
	t.addToBranch(b, path[len(pref):], val)
	return t.newSubTrie(pref, b), nil
}

// putIntoBranch puts val to trie if current node is a Branch.
func (t *Trie) putIntoBranch(h int, curr *BranchNode, path, val []byte) (Ref, error) {
	if len(path) == 0 {
		curr.Value = val
		t.nodes.markDirty(h)
		return handleRef(h), nil
	}
	i, path := splitPath(path)
	r, err := t.putIntoNode(curr.Children[i], path, val)
	curr.Children[i] = r
	if err != nil {
		return handleRef(h), err
	}
	t.nodes.markDirty(h)
	return handleRef(h), nil
}

// addToBranch puts value with the specified path into a fresh branch node.
func (t *Trie) addToBranch(b *BranchNode, path, val []byte) {
	if len(path) == 0 {
		b.Value = val
		return
	}
	b.Children[path[0]] = handleRef(t.nodes.alloc(NewLeafNode(bytes.Clone(path[1:]), val)))
}

// newSubTrie stores b and returns reference to it, prefixing it with an
// extension node if path is not empty.
func (t *Trie) newSubTrie(path []byte, b *BranchNode) Ref {
	r := handleRef(t.nodes.alloc(b))
	if len(path) == 0 {
		return r
	}
	return handleRef(t.nodes.alloc(NewExtensionNode(path, r)))
}

// Remove removes key from trie. It returns false if there was no such key.
// All nodes needed to restructure the trie are loaded before anything is
// changed, so t is left intact if an error is returned.
func (t *Trie) Remove(key []byte) (bool, error) {
	path := toNibbles(key)
	r, ok, err := t.deleteFromNode(t.root, path)
	t.root = r
	if err != nil {
		return false, err
	}
	if ok {
		t.committed = false
	}
	return ok, nil
}

func (t *Trie) deleteFromNode(curr Ref, path []byte) (Ref, bool, error) {
	if curr.IsEmpty() {
		return curr, false, nil
	}
	h, err := t.resolve(curr)
	if err != nil {
		return curr, false, err
	}
	switch n := t.nodes.node(h).(type) {
	case *LeafNode:
		if !bytes.Equal(n.Path, path) {
			return handleRef(h), false, nil
		}
		t.nodes.release(h)
		return Ref{}, true, nil
	case *ExtensionNode:
		return t.deleteFromExtension(h, n, path)
	case *BranchNode:
		return t.deleteFromBranch(h, n, path)
	default:
		panic("invalid MPT node type")
	}
}

func (t *Trie) deleteFromExtension(h int, n *ExtensionNode, path []byte) (Ref, bool, error) {
	if !bytes.HasPrefix(path, n.Path) {
		return handleRef(h), false, nil
	}
	if err := t.resolveExtensionChild(n); err != nil {
		return handleRef(h), false, err
	}
	r, ok, err := t.deleteFromNode(n.Next, path[len(n.Path):])
	n.Next = r
	if err != nil || !ok {
		return handleRef(h), ok, err
	}
	t.nodes.markDirty(h)
	if r.IsEmpty() {
		panic("extension node lost its branch")
	}
	// Next is always a fresh handle here, collapsed branch could be
	// turned into a leaf or an extension that should be merged.
	switch nxt := t.nodes.node(r.handle).(type) {
	case *LeafNode:
		nxt.Path = concatPath(n.Path, nxt.Path)
	case *ExtensionNode:
		nxt.Path = concatPath(n.Path, nxt.Path)
	default:
		return handleRef(h), true, nil
	}
	t.nodes.markDirty(r.handle)
	t.nodes.release(h)
	return r, true, nil
}

// resolveExtensionChild loads the child of n and checks that it is a Branch.
// Other children can only come from non-canonical stored data.
func (t *Trie) resolveExtensionChild(n *ExtensionNode) error {
	ch, err := t.resolve(n.Next)
	if err != nil {
		return err
	}
	n.Next = handleRef(ch)
	if typ := t.nodes.node(ch).Type(); typ != BranchT {
		return fmt.Errorf("%w: extension followed by %s", ErrDecode, typ)
	}
	return nil
}

func (t *Trie) deleteFromBranch(h int, b *BranchNode, path []byte) (Ref, bool, error) {
	if len(path) == 0 {
		if b.Value == nil {
			return handleRef(h), false, nil
		}
		if err := t.resolveSurvivor(b, -1); err != nil {
			return handleRef(h), false, err
		}
		b.Value = nil
	} else {
		i, path := splitPath(path)
		if err := t.resolveSurvivor(b, int(i)); err != nil {
			return handleRef(h), false, err
		}
		r, ok, err := t.deleteFromNode(b.Children[i], path)
		b.Children[i] = r
		if err != nil || !ok {
			return handleRef(h), ok, err
		}
	}
	t.nodes.markDirty(h)
	r, err := t.collapseBranch(h, b)
	return r, true, err
}

// resolveSurvivor loads the child that would be the only one left in b if
// its value (i < 0) or its i-th child were removed, so that collapseBranch
// never touches the Store after b is changed.
func (t *Trie) resolveSurvivor(b *BranchNode, i int) error {
	count, _ := b.childCount()
	if b.Value != nil {
		if i >= 0 || count != 1 {
			return nil
		}
	} else if count != 2 || b.Children[i].IsEmpty() {
		return nil
	}
	for j := range b.Children {
		if j == i || b.Children[j].IsEmpty() {
			continue
		}
		ch, err := t.resolve(b.Children[j])
		if err != nil {
			return err
		}
		b.Children[j] = handleRef(ch)
	}
	return nil
}

// collapseBranch restores canonical form of a branch that has lost a child
// or a value.
func (t *Trie) collapseBranch(h int, b *BranchNode) (Ref, error) {
	count, index := b.childCount()
	switch {
	case count > 1, count == 1 && b.Value != nil:
		return handleRef(h), nil
	case count == 0:
		if b.Value == nil {
			panic("branch node without children and value")
		}
		t.nodes.set(h, NewLeafNode([]byte{}, b.Value))
		return handleRef(h), nil
	}

	ch, err := t.resolve(b.Children[index])
	if err != nil {
		return handleRef(h), err
	}
	b.Children[index] = handleRef(ch)
	switch c := t.nodes.node(ch).(type) {
	case *LeafNode:
		c.Path = concatPath([]byte{byte(index)}, c.Path)
	case *ExtensionNode:
		c.Path = concatPath([]byte{byte(index)}, c.Path)
	case *BranchNode:
		t.nodes.set(h, NewExtensionNode([]byte{byte(index)}, handleRef(ch)))
		return handleRef(h), nil
	default:
		panic("invalid MPT node type")
	}
	t.nodes.markDirty(ch)
	t.nodes.release(h)
	return handleRef(ch), nil
}

func concatPath(a, b []byte) []byte {
	res := make([]byte, 0, len(a)+len(b))
	res = append(res, a...)
	return append(res, b...)
}

// Root commits all changes to the Store and returns root digest of t.
// Nothing is written if t wasn't changed since the last commit.
func (t *Trie) Root() (util.Uint256, error) {
	if t.committed {
		return t.rootHash, nil
	}
	var (
		batch   = make(map[util.Uint256][]byte)
		flushed []int
		root    util.Uint256
		rootH   = -1
	)
	switch t.root.kind {
	case RefEmpty:
		root = t.emptyRoot
		batch[root] = rlp.EmptyString
	case RefHash:
		root = t.root.hash
	case RefInline:
		h, _ := t.resolve(t.root) // Never fails for inline nodes.
		t.root = handleRef(h)
		fallthrough
	case refHandle:
		rootH = t.root.handle
		t.commitNode(rootH, batch, &flushed)
		e := t.nodes.get(rootH)
		if !e.stored {
			root = t.hasher.Hash(e.enc)
			batch[root] = e.enc
		} else {
			root = e.hash
		}
	}
	if len(batch) != 0 {
		if err := putBatch(t.store, batch); err != nil {
			t.log.Warn("failed to persist trie nodes",
				zap.Stringer("root", root),
				zap.Int("nodes", len(batch)),
				zap.Error(err))
			return util.Uint256{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}
	for _, h := range flushed {
		t.nodes.get(h).dirty = false
	}
	if rootH >= 0 {
		e := t.nodes.get(rootH)
		e.hash = root
		e.stored = true
	}
	var size int
	for _, data := range batch {
		size += len(data)
	}
	updateCommitMetrics(len(batch))
	t.log.Debug("trie committed",
		zap.Stringer("root", root),
		zap.Int("nodes", len(batch)),
		zap.Int("bytes", size))
	t.rootHash = root
	t.committed = true
	return root, nil
}

// commitNode encodes dirty nodes of the subtrie rooting in h bottom-up and
// puts the ones referenced by digest into batch. Committed handles are
// appended to flushed, they're to be marked clean once the batch is stored.
func (t *Trie) commitNode(h int, batch map[util.Uint256][]byte, flushed *[]int) {
	e := t.nodes.get(h)
	if !e.dirty {
		return
	}
	switch n := e.node.(type) {
	case *LeafNode:
	case *ExtensionNode:
		if n.Next.kind == refHandle {
			t.commitNode(n.Next.handle, batch, flushed)
		}
	case *BranchNode:
		for i := range n.Children {
			if n.Children[i].kind == refHandle {
				t.commitNode(n.Children[i].handle, batch, flushed)
			}
		}
	default:
		panic("invalid MPT node type")
	}
	e.enc = encodeNode(e.node, t.childRef)
	e.stored = false
	if len(e.enc) >= hashLen {
		e.hash = t.hasher.Hash(e.enc)
		e.stored = true
		batch[e.hash] = e.enc
	}
	*flushed = append(*flushed, h)
}

// childRef returns encoded reference to the committed node at h.
func (t *Trie) childRef(h int) []byte {
	e := t.nodes.get(h)
	if len(e.enc) < hashLen {
		return e.enc
	}
	res := make([]byte, 0, hashLen+1)
	res = append(res, 0x80+hashLen)
	return append(res, e.hash[:]...)
}

// Collapse compresses all nodes at depth n to the hash nodes releasing
// memory occupied by them. Only nodes committed with Root are compressed,
// changed ones are kept intact.
func (t *Trie) Collapse(depth int) {
	if depth < 0 {
		panic("negative depth")
	}
	t.root = t.collapse(depth, t.root)
}

func (t *Trie) collapse(depth int, r Ref) Ref {
	if r.kind != refHandle {
		return r
	}
	e := t.nodes.get(r.handle)
	if depth == 0 && !e.dirty {
		var res Ref
		if e.stored {
			res = NewHashRef(e.hash)
		} else {
			n, err := DecodeNode(e.enc)
			if err != nil {
				panic(fmt.Errorf("can't decode committed node: %w", err))
			}
			res = NewInlineRef(n)
		}
		t.releaseSubTrie(r.handle)
		return res
	}
	if depth == 0 {
		depth = 1 // Dirty nodes are kept, but their children can be collapsed.
	}
	switch n := e.node.(type) {
	case *BranchNode:
		for i := range n.Children {
			n.Children[i] = t.collapse(depth-1, n.Children[i])
		}
	case *ExtensionNode:
		n.Next = t.collapse(depth-1, n.Next)
	case *LeafNode:
	default:
		panic("invalid MPT node type")
	}
	return r
}

// releaseSubTrie frees all arena slots of the subtrie rooting in h.
func (t *Trie) releaseSubTrie(h int) {
	switch n := t.nodes.node(h).(type) {
	case *BranchNode:
		for i := range n.Children {
			if n.Children[i].kind == refHandle {
				t.releaseSubTrie(n.Children[i].handle)
			}
		}
	case *ExtensionNode:
		if n.Next.kind == refHandle {
			t.releaseSubTrie(n.Next.handle)
		}
	}
	t.nodes.release(h)
}
