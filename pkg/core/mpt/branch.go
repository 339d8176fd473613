package mpt

const (
	// childrenCount represents the number of children of a branch node.
	childrenCount = 16
)

// BranchNode represents an MPT's branch node. Value is nil when the branch
// doesn't terminate any key.
type BranchNode struct {
	Children [childrenCount]Ref
	Value    []byte
}

var _ Node = (*BranchNode)(nil)

// NewBranchNode returns a new branch node.
func NewBranchNode() *BranchNode {
	return new(BranchNode)
}

// Type implements Node interface.
func (b BranchNode) Type() NodeType { return BranchT }

// childCount returns the number of non-empty children and the index of the
// last one of them.
func (b *BranchNode) childCount() (int, int) {
	var count, index int
	for i := range b.Children {
		if !b.Children[i].IsEmpty() {
			index = i
			count++
		}
	}
	return count, index
}
