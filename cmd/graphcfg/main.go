// Command graphcfg validates dataflow graph configurations.
package main

import (
	"os"

	"github.com/roach88/graphcfg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
