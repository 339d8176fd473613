package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/ethtrie/cli/trie"
	"github.com/nspcc-dev/ethtrie/pkg/config"
	"github.com/urfave/cli"
)

// devVersion is reported when no version is set at build time.
const devVersion = "dev"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "ethtrie\nVersion: %s\nGoVersion: %s\n",
		c.App.Version,
		runtime.Version(),
	)
}

// New creates an ethtrie instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "ethtrie"
	ctl.Version = config.Version
	if ctl.Version == "" {
		ctl.Version = devVersion
	}
	ctl.Usage = "Merkle Patricia Trie storage tool"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, trie.NewCommands()...)
	return ctl
}
