package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspcc-dev/ethtrie/cli/app"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// ConfigFile is a path to the configuration file with persistent storage.
	ConfigFile string
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
}

func newExecutor(t *testing.T) *executor {
	return newExecutorWithConfig(t, "")
}

// newExecutorWithConfig creates an executor with BoltDB storage in a
// temporary directory, extra YAML is appended to the configuration.
func newExecutorWithConfig(t *testing.T, extra string) *executor {
	dir := t.TempDir()
	cfg := `Storage:
  Type: "boltdb"
  BoltDBOptions:
    FilePath: "` + filepath.ToSlash(filepath.Join(dir, "trie.bolt")) + `"
Logger:
  LogLevel: "error"
` + extra
	cfgPath := filepath.Join(dir, "ethtrie.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	e := &executor{
		CLI:        app.New(),
		ConfigFile: cfgPath,
		Out:        bytes.NewBuffer(nil),
		Err:        bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	return e
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

// RunTrie runs trie command with executor's configuration file.
func (e *executor) RunTrie(t *testing.T, cmd string, args ...string) {
	e.Run(t, append([]string{"ethtrie", cmd, "--config-file", e.ConfigFile}, args...)...)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	return e.CLI.Run(args)
}
