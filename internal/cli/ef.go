package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/importer"
)

func newEFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ef",
		Short: "Manage the emission-factor registry",
	}
	cmd.AddCommand(newEFListCmd(), newEFImportCmd())
	return cmd
}

func newEFListCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered emission factors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListEmissionFactors(cmd.Context(), query, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, record := range list {
				value := "gas breakdown"
				if record.Value != nil {
					value = fmt.Sprintf("%g kgCO2e/%s", *record.Value, record.Unit)
				}
				fmt.Fprintf(out, "%-28s %-32s %-8s %s\n", record.Key, record.Name, record.Scope, value)
			}
			fmt.Fprintf(out, "%d factor(s)\n", len(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "filter by key or name substring")
	return cmd
}

func newEFImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import emission factors from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			count, err := importer.ImportEmissionFactors(cmd.Context(), st, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d emission factor(s)\n", count)
			return nil
		},
	}
}
