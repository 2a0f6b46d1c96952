// Package cli builds the cobra command tree for the cascade binary. It is kept separate
// from cmd/cascade so the command tree itself can be constructed and exercised in tests
// without going through os.Args/os.Exit.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the cascade command tree: "run" executes an experiment matrix,
// "variants" lists the predefined algorithm presets.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cascade",
		Short:         "Run and inspect Cascade information-reconciliation experiments",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newVariantsCommand())
	return root
}
