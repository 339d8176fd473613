package mpt

// EmptyNode represents empty node.
type EmptyNode struct{}

// Type implements Node interface.
func (e EmptyNode) Type() NodeType {
	return EmptyT
}
