package cli

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/report"
	"github.com/opencarbon/carbonfocus/internal/store"
	"github.com/opencarbon/carbonfocus/internal/tui"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect stored calculation runs",
	}
	cmd.AddCommand(newRunListCmd(), newRunViewCmd(), newRunExportCmd())
	return cmd
}

func newRunListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), 50)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, run := range runs {
				fmt.Fprintf(out, "%-6d %-8s %12.6f tCO2e  %s  %s\n",
					run.ID, run.RunType, run.TotalTCO2e,
					run.CreatedAt.Format("2006-01-02 15:04"), run.ReportID)
			}
			fmt.Fprintf(out, "%d run(s)\n", len(runs))
			return nil
		},
	}
}

func newRunViewCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "view <run-id>",
		Short: "Browse a run's rows and traces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, st, err := runByArg(cmd, args[0])
			if err != nil {
				return err
			}
			defer st.Close()

			// Fall back to the plain summary when not attached to a
			// terminal.
			if plain || !isTerminal(os.Stdout) {
				return report.RenderSummary(cmd.OutOrStdout(), record)
			}

			model, err := tui.NewRunModel(record)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print a plain summary instead of the interactive browser")
	return cmd
}

func newRunExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, st, err := runByArg(cmd, args[0])
			if err != nil {
				return err
			}
			defer st.Close()

			switch format {
			case "csv":
				return report.ExportCSV(cmd.OutOrStdout(), record)
			case "json":
				return report.ExportJSON(cmd.OutOrStdout(), record)
			default:
				return fmt.Errorf("unsupported format %q (use csv or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or json")
	return cmd
}

// runByArg parses a run id argument and loads the record. On success the
// caller owns the returned store.
func runByArg(cmd *cobra.Command, arg string) (*store.RunRecord, *store.Store, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid run id %q", arg)
	}

	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	record, found, err := st.RunByID(cmd.Context(), id)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if !found {
		st.Close()
		return nil, nil, fmt.Errorf("run %d not found", id)
	}
	return record, st, nil
}
