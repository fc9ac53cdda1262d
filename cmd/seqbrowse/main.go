// Command seqbrowse validates, plays and saves sequence browsing scenes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/slicer/sequences/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seqbrowse: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
