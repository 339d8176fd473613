package mpt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// refResolver returns encoded reference (digest string or embedded node) for
// the arena handle.
type refResolver func(handle int) []byte

// EncodeNode returns canonical RLP encoding of n. Children referenced via
// arena handles can't be encoded without the trie, so n must contain only
// empty, digest or inline references.
func EncodeNode(n Node) []byte {
	return encodeNode(n, nil)
}

func encodeNode(n Node, resolve refResolver) []byte {
	w := rlp.NewEncoderBuffer(nil)
	writeNode(w, n, resolve)
	result := w.ToBytes()
	_ = w.Flush() // no writer, buffer is returned to the pool
	return result
}

func writeNode(w rlp.EncoderBuffer, n Node, resolve refResolver) {
	switch n := n.(type) {
	case EmptyNode:
		_, _ = w.Write(rlp.EmptyString)
	case *LeafNode:
		offset := w.List()
		w.WriteBytes(encodeCompact(n.Path, true))
		w.WriteBytes(n.Value)
		w.ListEnd(offset)
	case *ExtensionNode:
		offset := w.List()
		w.WriteBytes(encodeCompact(n.Path, false))
		writeRef(w, n.Next, resolve)
		w.ListEnd(offset)
	case *BranchNode:
		offset := w.List()
		for i := range n.Children {
			writeRef(w, n.Children[i], resolve)
		}
		if n.Value != nil {
			w.WriteBytes(n.Value)
		} else {
			_, _ = w.Write(rlp.EmptyString)
		}
		w.ListEnd(offset)
	default:
		panic("invalid MPT node type")
	}
}

func writeRef(w rlp.EncoderBuffer, r Ref, resolve refResolver) {
	switch r.kind {
	case RefEmpty:
		_, _ = w.Write(rlp.EmptyString)
	case RefHash:
		w.WriteBytes(r.hash[:])
	case RefInline:
		writeNode(w, r.node, resolve)
	case refHandle:
		if resolve == nil {
			panic("can't encode unresolved node handle")
		}
		_, _ = w.Write(resolve(r.handle))
	default:
		panic("invalid MPT reference kind")
	}
}

// DecodeNode decodes canonical node encoding. Any deviation from the format
// results in ErrDecode. Returned node may share memory with b.
func DecodeNode(b []byte) (Node, error) {
	if bytes.Equal(b, rlp.EmptyString) {
		return EmptyNode{}, nil
	}
	elems, rest, err := rlp.SplitList(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(rest))
	}
	c, err := rlp.CountValues(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	switch c {
	case 2:
		return decodeShort(elems)
	case childrenCount + 1:
		return decodeBranch(elems)
	default:
		return nil, fmt.Errorf("%w: invalid number of list elements: %d", ErrDecode, c)
	}
}

func decodeShort(elems []byte) (Node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: path: %w", ErrDecode, err)
	}
	path, leaf, err := decodeCompact(kbuf)
	if err != nil {
		return nil, err
	}
	if leaf {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf value: %w", ErrDecode, err)
		}
		if len(val) == 0 {
			return nil, fmt.Errorf("%w: empty leaf value", ErrDecode)
		}
		return NewLeafNode(path, val), nil
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty extension path", ErrDecode)
	}
	r, _, err := decodeRef(rest)
	if err != nil {
		return nil, err
	}
	if r.IsEmpty() {
		return nil, fmt.Errorf("%w: extension without child", ErrDecode)
	}
	if r.Kind() == RefInline && r.Node().Type() != BranchT {
		return nil, fmt.Errorf("%w: extension followed by %s", ErrDecode, r.Node().Type())
	}
	return NewExtensionNode(path, r), nil
}

func decodeBranch(elems []byte) (Node, error) {
	var (
		b   = NewBranchNode()
		err error
	)
	for i := range b.Children {
		b.Children[i], elems, err = decodeRef(elems)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %w", ErrDecode, err)
	}
	if len(val) > 0 {
		b.Value = val
	}
	return b, nil
}

func decodeRef(buf []byte) (Ref, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return Ref{}, buf, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	switch {
	case kind == rlp.List:
		// Embedded nodes are always shorter than a digest.
		if size := len(buf) - len(rest); size >= hashLen {
			return Ref{}, buf, fmt.Errorf("%w: oversized embedded node (size %d)", ErrDecode, size)
		}
		n, err := DecodeNode(buf[:len(buf)-len(rest)])
		if err != nil {
			return Ref{}, buf, err
		}
		return NewInlineRef(n), rest, nil
	case kind == rlp.String && len(val) == 0:
		return Ref{}, rest, nil
	case kind == rlp.String && len(val) == hashLen:
		var h [hashLen]byte
		copy(h[:], val)
		return NewHashRef(h), rest, nil
	default:
		return Ref{}, buf, fmt.Errorf("%w: invalid reference (%d bytes)", ErrDecode, len(val))
	}
}
