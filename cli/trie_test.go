package main

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/ethtrie/cli/trie"
	"github.com/nspcc-dev/ethtrie/pkg/core/mpt"
	"github.com/nspcc-dev/ethtrie/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
)

const dogsRoot = "8aad789dff2f538bca5d8ea56e8abe10f4c7ba3a5dea95fea4cd6e7c3a1168d3"

func putDogs(t *testing.T, e *executor) string {
	e.RunTrie(t, "put", "doe", "reindeer")
	e.RunTrie(t, "put", "dog", "puppy")
	e.RunTrie(t, "put", "dogglesworth", "cat")
	return e.getNextLine(t)
}

func TestTrie_PutGet(t *testing.T) {
	e := newExecutor(t)

	e.RunTrie(t, "root")
	e.checkNextLine(t, "^"+mpt.EmptyRoot.StringBE()+"$")
	e.checkEOF(t)

	require.Equal(t, dogsRoot, putDogs(t, e))
	e.checkEOF(t)

	e.RunTrie(t, "root")
	e.checkNextLine(t, "^"+dogsRoot+"$")

	e.RunTrie(t, "get", "dog")
	e.checkNextLine(t, "^"+hex.EncodeToString([]byte("puppy"))+"$")
	e.checkEOF(t)

	e.RunTrie(t, "get", "--hex", hex.EncodeToString([]byte("doe")))
	e.checkNextLine(t, "^"+hex.EncodeToString([]byte("reindeer"))+"$")

	t.Run("missing key", func(t *testing.T) {
		e.RunWithError(t, "ethtrie", "get", "--config-file", e.ConfigFile, "cat")
	})
	t.Run("bad hex", func(t *testing.T) {
		e.RunWithError(t, "ethtrie", "get", "--config-file", e.ConfigFile, "--hex", "zz")
	})
	t.Run("wrong args", func(t *testing.T) {
		e.RunWithError(t, "ethtrie", "put", "--config-file", e.ConfigFile, "dog")
		e.RunWithError(t, "ethtrie", "root", "--config-file", e.ConfigFile, "extra")
	})
	t.Run("missing config", func(t *testing.T) {
		e.RunWithError(t, "ethtrie", "root", "--config-file", e.ConfigFile+".missing")
	})
}

func TestTrie_Delete(t *testing.T) {
	e := newExecutor(t)
	putDogs(t, e)

	e.RunTrie(t, "delete", "dogglesworth")
	afterDelete := e.getNextLine(t)
	require.NotEqual(t, dogsRoot, afterDelete)

	// Missing key doesn't change anything.
	e.RunTrie(t, "delete", "cat")
	e.checkNextLine(t, "^"+afterDelete+"$")

	e.RunTrie(t, "delete", "dog")
	e.getNextLine(t)
	e.RunTrie(t, "delete", "doe")
	e.checkNextLine(t, "^"+mpt.EmptyRoot.StringBE()+"$")
}

func TestTrie_HistoricRoot(t *testing.T) {
	e := newExecutor(t)
	e.RunTrie(t, "put", "dog", "puppy")
	old := e.getNextLine(t)
	e.RunTrie(t, "put", "dog", "hound")
	e.getNextLine(t)

	e.RunTrie(t, "get", "--root", old, "dog")
	e.checkNextLine(t, "^"+hex.EncodeToString([]byte("puppy"))+"$")
	e.RunTrie(t, "get", "dog")
	e.checkNextLine(t, "^"+hex.EncodeToString([]byte("hound"))+"$")

	e.RunWithError(t, "ethtrie", "get", "--config-file", e.ConfigFile, "--root", "bad", "dog")
	unknown := hash.Keccak256([]byte("unknown")).StringBE()
	e.RunWithError(t, "ethtrie", "get", "--config-file", e.ConfigFile, "--root", unknown, "dog")
}

func TestTrie_Dump(t *testing.T) {
	e := newExecutor(t)
	putDogs(t, e)

	e.RunTrie(t, "dump")
	for _, kv := range [][2]string{{"doe", "reindeer"}, {"dog", "puppy"}, {"dogglesworth", "cat"}} {
		var p trie.KVPair
		require.NoError(t, json.Unmarshal([]byte(e.getNextLine(t)), &p))
		require.Equal(t, trie.KVPair{
			Key:   hex.EncodeToString([]byte(kv[0])),
			Value: hex.EncodeToString([]byte(kv[1])),
		}, p)
	}
	e.checkEOF(t)
}

func TestTrie_Proof(t *testing.T) {
	e := newExecutor(t)
	putDogs(t, e)

	e.RunTrie(t, "proof", "dog")
	first, err := hex.DecodeString(e.getNextLine(t))
	require.NoError(t, err)
	require.Equal(t, dogsRoot, hash.Keccak256(first).StringBE())
}

func TestTrie_SecureKeys(t *testing.T) {
	e := newExecutorWithConfig(t, "Trie:\n  SecureKeys: true\n  CacheSize: 16\n  CleanCacheMB: 1\n  VerifyNodes: true\n")
	e.RunTrie(t, "put", "dog", "puppy")
	e.getNextLine(t)

	e.RunTrie(t, "get", "dog")
	e.checkNextLine(t, "^"+hex.EncodeToString([]byte("puppy"))+"$")

	h := hash.Keccak256([]byte("dog"))
	e.RunTrie(t, "dump")
	var p trie.KVPair
	require.NoError(t, json.Unmarshal([]byte(e.getNextLine(t)), &p))
	require.Equal(t, hex.EncodeToString(h[:]), p.Key)
	e.checkEOF(t)
}
