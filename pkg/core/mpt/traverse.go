package mpt

import (
	"fmt"
)

// Traverse calls f for every key-value pair of t in ascending key order
// until f returns false. Key and value must not be retained or modified by f.
func (t *Trie) Traverse(f func(key, value []byte) bool) error {
	r, _, err := t.traverse(t.root, nil, f)
	t.root = r
	return err
}

// traverse walks subtrie rooting in curr, path holds nibbles of all the
// nodes above. It returns false if traversal should be stopped.
func (t *Trie) traverse(curr Ref, path []byte, f func(key, value []byte) bool) (Ref, bool, error) {
	if curr.IsEmpty() {
		return curr, true, nil
	}
	h, err := t.resolve(curr)
	if err != nil {
		return curr, false, err
	}
	var cont = true
	switch n := t.nodes.node(h).(type) {
	case *LeafNode:
		cont, err = emit(concatPath(path, n.Path), n.Value, f)
	case *ExtensionNode:
		n.Next, cont, err = t.traverse(n.Next, concatPath(path, n.Path), f)
	case *BranchNode:
		if n.Value != nil {
			cont, err = emit(path, n.Value, f)
		}
		for i := 0; i < childrenCount && cont && err == nil; i++ {
			n.Children[i], cont, err = t.traverse(n.Children[i], concatPath(path, []byte{byte(i)}), f)
		}
	default:
		panic("invalid MPT node type")
	}
	return handleRef(h), cont, err
}

func emit(path, value []byte, f func(key, value []byte) bool) (bool, error) {
	if len(path)%2 != 0 {
		return false, fmt.Errorf("%w: value at odd nibble path", ErrDecode)
	}
	return f(fromNibbles(path), value), nil
}
