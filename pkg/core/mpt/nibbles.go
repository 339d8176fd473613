package mpt

import (
	"fmt"
)

// toNibbles mangles path by splitting every byte into 2 containing low- and high- 4-byte part.
func toNibbles(path []byte) []byte {
	result := make([]byte, len(path)*2)
	for i := range path {
		result[i*2] = path[i] >> 4
		result[i*2+1] = path[i] & 0x0F
	}
	return result
}

// fromNibbles performs operation opposite to toNibbles and does no path validity checks.
func fromNibbles(path []byte) []byte {
	if len(path)%2 != 0 {
		panic("odd nibble path length")
	}
	result := make([]byte, len(path)/2)
	for i := range result {
		result[i] = path[2*i]<<4 + path[2*i+1]
	}
	return result
}

// Hex-prefix flag nibble values.
const (
	flagOdd  = 1
	flagLeaf = 2
)

// encodeCompact packs nibble path into bytes prefixing it with a flag nibble
// (2*leaf + odd). Odd-length paths keep their first nibble in the flag byte,
// even-length ones get a zero padding nibble.
func encodeCompact(path []byte, leaf bool) []byte {
	var flag byte
	if leaf {
		flag = flagLeaf
	}
	result := make([]byte, len(path)/2+1)
	if len(path)%2 == 1 {
		flag |= flagOdd
		result[0] = flag<<4 | path[0]
		path = path[1:]
	} else {
		result[0] = flag << 4
	}
	for i := 0; i < len(path); i += 2 {
		result[i/2+1] = path[i]<<4 | path[i+1]
	}
	return result
}

// decodeCompact is the inverse of encodeCompact.
func decodeCompact(b []byte) ([]byte, bool, error) {
	if len(b) == 0 {
		return nil, false, fmt.Errorf("%w: empty compact path", ErrDecode)
	}
	flag := b[0] >> 4
	if flag > flagLeaf|flagOdd {
		return nil, false, fmt.Errorf("%w: invalid compact flag %d", ErrDecode, flag)
	}
	var path []byte
	if flag&flagOdd != 0 {
		path = make([]byte, 0, len(b)*2-1)
		path = append(path, b[0]&0x0F)
	} else {
		if b[0]&0x0F != 0 {
			return nil, false, fmt.Errorf("%w: non-zero compact padding", ErrDecode)
		}
		path = make([]byte, 0, len(b)*2-2)
	}
	for _, c := range b[1:] {
		path = append(path, c>>4, c&0x0F)
	}
	return path, flag&flagLeaf != 0, nil
}

// lcp returns the longest common prefix of a and b.
// Note: it does no allocations.
func lcp(a, b []byte) []byte {
	if len(a) < len(b) {
		return lcp(b, a)
	}

	var i int
	for i = 0; i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
	}

	return a[:i]
}

// splitPath splits path for a branch node.
func splitPath(path []byte) (byte, []byte) {
	return path[0], path[1:]
}
