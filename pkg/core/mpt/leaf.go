package mpt

// LeafNode represents MPT's leaf node. Path holds the remaining key nibbles.
type LeafNode struct {
	Path  []byte
	Value []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns leaf node with the specified path suffix and value.
// Note: path must be mangled, i.e. must contain only bytes with high half = 0.
func NewLeafNode(path, value []byte) *LeafNode {
	return &LeafNode{Path: path, Value: value}
}

// Type implements Node interface.
func (n LeafNode) Type() NodeType { return LeafT }
