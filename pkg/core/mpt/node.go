package mpt

import (
	"github.com/nspcc-dev/ethtrie/pkg/util"
)

// NodeType represents node type.
type NodeType byte

// Node types definitions.
const (
	EmptyT NodeType = iota
	LeafT
	ExtensionT
	BranchT
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case EmptyT:
		return "empty"
	case LeafT:
		return "leaf"
	case ExtensionT:
		return "extension"
	case BranchT:
		return "branch"
	default:
		return "unknown"
	}
}

// Node represents common interface of all MPT nodes. The set of
// implementations is closed: EmptyNode, *LeafNode, *ExtensionNode and
// *BranchNode.
type Node interface {
	Type() NodeType
}

// hashLen is the length of the digest used as a child reference. Nodes
// encoded into fewer bytes are embedded into their parent.
const hashLen = util.Uint256Size

// RefKind tells how a child node is referenced from its parent.
type RefKind byte

// Reference kinds.
const (
	// RefEmpty is an absent child.
	RefEmpty RefKind = iota
	// RefHash is a child stored separately under its digest.
	RefHash
	// RefInline is a child embedded into the parent's encoding.
	RefInline
	// refHandle is a child living in the trie's node arena.
	refHandle
)

// Ref is a reference to a child node. Zero value is an empty reference.
type Ref struct {
	kind   RefKind
	hash   util.Uint256
	node   Node
	handle int
}

// NewHashRef returns a reference to the node stored under h.
func NewHashRef(h util.Uint256) Ref {
	return Ref{kind: RefHash, hash: h}
}

// NewInlineRef returns a reference embedding n. It's up to the caller to
// ensure n encodes into less than 32 bytes.
func NewInlineRef(n Node) Ref {
	return Ref{kind: RefInline, node: n}
}

func handleRef(h int) Ref {
	return Ref{kind: refHandle, handle: h}
}

// Kind returns reference kind.
func (r Ref) Kind() RefKind { return r.kind }

// IsEmpty returns true if r references nothing.
func (r Ref) IsEmpty() bool { return r.kind == RefEmpty }

// Hash returns referenced digest, it's only meaningful for RefHash.
func (r Ref) Hash() util.Uint256 { return r.hash }

// Node returns embedded node, it's only meaningful for RefInline.
func (r Ref) Node() Node { return r.node }
