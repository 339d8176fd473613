package mpt

import (
	"bytes"
)

// GetProof returns a proof that key belongs to t or is missing from it.
// Proof consists of encoded nodes referenced by digest occurring on the path
// from the root to the key, root first. The trie is committed before
// building the proof.
func (t *Trie) GetProof(key []byte) ([][]byte, error) {
	if _, err := t.Root(); err != nil {
		return nil, err
	}
	if t.root.IsEmpty() {
		return [][]byte{bytes.Clone(EncodeNode(EmptyNode{}))}, nil
	}
	var proof [][]byte
	path := toNibbles(key)
	r, err := t.getProof(t.root, path, true, &proof)
	t.root = r
	if err != nil {
		return nil, err
	}
	return proof, nil
}

func (t *Trie) getProof(curr Ref, path []byte, isRoot bool, proofs *[][]byte) (Ref, error) {
	if curr.IsEmpty() {
		return curr, nil
	}
	h, err := t.resolve(curr)
	if err != nil {
		return curr, err
	}
	e := t.nodes.get(h)
	// Embedded nodes are already a part of their parent's encoding.
	if isRoot || len(e.enc) >= hashLen {
		*proofs = append(*proofs, bytes.Clone(e.enc))
	}
	switch n := e.node.(type) {
	case *LeafNode:
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.Path) {
			n.Next, err = t.getProof(n.Next, path[len(n.Path):], false, proofs)
		}
	case *BranchNode:
		if len(path) != 0 {
			i, path := splitPath(path)
			n.Children[i], err = t.getProof(n.Children[i], path, false, proofs)
		}
	default:
		panic("invalid MPT node type")
	}
	return handleRef(h), err
}
