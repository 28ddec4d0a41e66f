package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/importer"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage recorded activities",
	}
	cmd.AddCommand(newActivityListCmd(), newActivityImportCmd())
	return cmd
}

func newActivityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded activities, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListActivities(cmd.Context(), 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range list {
				inputs, _ := json.Marshal(a.Inputs)
				fmt.Fprintf(out, "%-6d %-28s %-24s %s\n", a.ID, a.Name, a.EFKey, inputs)
			}
			fmt.Fprintf(out, "%d activity(ies)\n", len(list))
			return nil
		},
	}
}

func newActivityImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import activities from a CSV file",
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

			count, err := importer.ImportActivities(cmd.Context(), st, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d activity(ies)\n", count)
			return nil
		},
	}
}
