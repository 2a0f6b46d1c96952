package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/qkd-net/cascade/internal/cascade"
)

func newVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the predefined Cascade algorithm variants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := cascade.VariantNames()
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPASSES\tBICONF ITERATIONS\tSUB-BLOCK REUSE")
			for _, name := range names {
				algo, err := cascade.VariantByName(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", algo.Name, algo.CascadeIterations, algo.BiconfIterations, algo.SubBlockReuse)
			}
			return w.Flush()
		},
	}
}
