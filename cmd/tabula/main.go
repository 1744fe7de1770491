// Command tabula validates, plays and replays declarative turn-based games.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tabula/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
