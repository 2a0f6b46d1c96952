// Command cascade runs Cascade information-reconciliation experiments from the command
// line: a matrix of variants, error rates and key sizes, executed across a worker pool and
// written out as a CSV report.
package main

import (
	"fmt"
	"os"

	"github.com/qkd-net/cascade/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
