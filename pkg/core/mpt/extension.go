package mpt

// ExtensionNode represents an MPT's extension node. It shares a non-empty
// nibble path among all keys of the branch it points to.
type ExtensionNode struct {
	Path []byte
	Next Ref
}

var _ Node = (*ExtensionNode)(nil)

// NewExtensionNode returns an extension node with the specified path and the next node.
// Note: since it is a part of a Trie, the path must be mangled, i.e. must contain only bytes with high half = 0.
func NewExtensionNode(path []byte, next Ref) *ExtensionNode {
	return &ExtensionNode{
		Path: path,
		Next: next,
	}
}

// Type implements Node interface.
func (e ExtensionNode) Type() NodeType { return ExtensionT }
