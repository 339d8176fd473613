package mpt

import (
	"testing"

	"github.com/nspcc-dev/ethtrie/internal/random"
	"github.com/stretchr/testify/require"
)

func TestToNibbles(t *testing.T) {
	check := func(t *testing.T, expected []byte, actual []byte) {
		require.Equal(t, expected, toNibbles(actual))
		require.Equal(t, actual, fromNibbles(expected))
	}
	t.Run("empty", func(t *testing.T) {
		check(t, []byte{}, []byte{})
	})
	t.Run("non-empty", func(t *testing.T) {
		check(t, []byte{0x01, 0x0A, 0x0B, 0x0C}, []byte{0x1A, 0xBC})
	})
	t.Run("random", func(t *testing.T) {
		key := random.Bytes(33)
		require.Equal(t, key, fromNibbles(toNibbles(key)))
	})
	t.Run("odd", func(t *testing.T) {
		require.Panics(t, func() { fromNibbles([]byte{0x01}) })
	})
}

func TestCompact(t *testing.T) {
	testCases := []struct {
		path    []byte
		leaf    bool
		compact []byte
	}{
		{[]byte{}, false, []byte{0x00}},
		{[]byte{}, true, []byte{0x20}},
		{[]byte{1, 2, 3, 4, 5}, false, []byte{0x11, 0x23, 0x45}},
		{[]byte{0, 1, 2, 3, 4, 5}, false, []byte{0x00, 0x01, 0x23, 0x45}},
		{[]byte{15, 1, 12, 11, 8}, true, []byte{0x3f, 0x1c, 0xb8}},
		{[]byte{0, 15, 1, 12, 11, 8}, true, []byte{0x20, 0x0f, 0x1c, 0xb8}},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.compact, encodeCompact(tc.path, tc.leaf))
		path, leaf, err := decodeCompact(tc.compact)
		require.NoError(t, err)
		require.Equal(t, tc.path, path)
		require.Equal(t, tc.leaf, leaf)
	}
}

func TestDecodeCompactInvalid(t *testing.T) {
	testCases := map[string][]byte{
		"empty":           {},
		"bad flag":        {0x40, 0x12},
		"non-zero pad":    {0x01, 0x23},
		"leaf non-zero p": {0x2f},
	}
	for name, b := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeCompact(b)
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestLCP(t *testing.T) {
	require.Equal(t, []byte{1, 2}, lcp([]byte{1, 2, 3}, []byte{1, 2, 4, 5}))
	require.Equal(t, []byte{1, 2}, lcp([]byte{1, 2}, []byte{1, 2, 4, 5}))
	require.Equal(t, []byte{}, lcp([]byte{3}, []byte{1, 2}))
}
