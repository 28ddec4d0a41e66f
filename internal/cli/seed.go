package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/seed"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the embedded starter emission factors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			count, warnings, err := seed.Apply(cmd.Context(), st)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				cmd.PrintErrf("warning: %s\n", w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d seed factor(s)\n", count)
			return nil
		},
	}
}
