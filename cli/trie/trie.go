/*
Package trie contains commands working with a trie kept in the configured
storage.
*/
package trie

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/ethtrie/cli/options"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// KVPair represents a key-value pair printed by dump command.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var errKeyNotFound = errors.New("key not found")

// NewCommands returns trie commands.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{
		options.ConfigFile,
		options.Debug,
		cli.StringFlag{
			Name:  "root, r",
			Usage: "trie root to open (hex), the last saved root is used by default",
		},
	}
	keyFlags := append([]cli.Flag{
		cli.BoolFlag{
			Name:  "hex",
			Usage: "keys and values are hex-encoded",
		},
	}, cfgFlags...)
	return []cli.Command{
		{
			Name:      "put",
			Usage:     "Insert a key-value pair and save the new root",
			UsageText: "ethtrie put [--config-file file] [--root root] [--hex] KEY VALUE",
			Action:    put,
			Flags:     keyFlags,
		},
		{
			Name:      "get",
			Usage:     "Print hex-encoded value stored under the key",
			UsageText: "ethtrie get [--config-file file] [--root root] [--hex] KEY",
			Action:    get,
			Flags:     keyFlags,
		},
		{
			Name:      "delete",
			Usage:     "Remove the key and save the new root",
			UsageText: "ethtrie delete [--config-file file] [--root root] [--hex] KEY",
			Action:    remove,
			Flags:     keyFlags,
		},
		{
			Name:      "root",
			Usage:     "Print the current trie root",
			UsageText: "ethtrie root [--config-file file]",
			Action:    root,
			Flags:     cfgFlags,
		},
		{
			Name:      "dump",
			Usage:     "Print all key-value pairs as JSON lines",
			UsageText: "ethtrie dump [--config-file file] [--root root]",
			Description: `Prints all pairs in ascending key order. Keys are
   trie paths, so they are hashes of the original keys if SecureKeys
   option is enabled.`,
			Action: dump,
			Flags:  cfgFlags,
		},
		{
			Name:      "proof",
			Usage:     "Print hex-encoded proof nodes for the key",
			UsageText: "ethtrie proof [--config-file file] [--root root] [--hex] KEY",
			Action:    proof,
			Flags:     keyFlags,
		},
	}
}

// parseArgs checks the number of arguments and decodes them.
func parseArgs(ctx *cli.Context, n int) ([][]byte, error) {
	args := ctx.Args()
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	res := make([][]byte, n)
	for i, a := range args {
		if !ctx.Bool("hex") {
			res[i] = []byte(a)
			continue
		}
		b, err := hex.DecodeString(strings.TrimPrefix(a, "0x"))
		if err != nil {
			return nil, fmt.Errorf("argument %d is not a valid hex string: %w", i+1, err)
		}
		res[i] = b
	}
	return res, nil
}

func put(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 2)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	if err := s.keyed.Insert(args[0], args[1]); err != nil {
		return cli.NewExitError(err, 1)
	}
	r, err := s.commit()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, r.StringBE())
	return nil
}

func get(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 1)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	v, err := s.keyed.Get(args[0])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if v == nil {
		return cli.NewExitError(errKeyNotFound, 1)
	}
	fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(v))
	return nil
}

func remove(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 1)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	ok, err := s.keyed.Remove(args[0])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ok {
		s.log.Info("key is missing, nothing to delete")
	}
	r, err := s.commit()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, r.StringBE())
	return nil
}

func root(ctx *cli.Context) error {
	if _, err := parseArgs(ctx, 0); err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	r, err := s.keyed.Root()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, r.StringBE())
	return nil
}

func dump(ctx *cli.Context) error {
	if _, err := parseArgs(ctx, 0); err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	var (
		count  int
		encErr error
		enc    = json.NewEncoder(ctx.App.Writer)
	)
	err = s.trie.Traverse(func(k, v []byte) bool {
		encErr = enc.Encode(KVPair{
			Key:   hex.EncodeToString(k),
			Value: hex.EncodeToString(v),
		})
		count++
		return encErr == nil
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s.log.Debug("trie dumped", zap.Int("pairs", count))
	return nil
}

func proof(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 1)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s, err := openSession(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	nodes, err := s.keyed.GetProof(args[0])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for _, n := range nodes {
		fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(n))
	}
	return nil
}
