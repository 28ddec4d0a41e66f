package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/audit"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Verify stored runs against the current registry",
	}
	cmd.AddCommand(newAuditRunCmd())
	return cmd
}

func newAuditRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <run-id>",
		Short: "Recompute a run and report discrepancies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, st, err := runByArg(cmd, args[0])
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := audit.VerifyRun(cmd.Context(), st, record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %d (%s): %s\n", result.RunID, result.RunType, result.Status)
			fmt.Fprintf(out, "Rows checked: %d\n", result.RowsChecked)
			fmt.Fprintf(out, "Stored total: %.6f kgCO2e, recomputed: %.6f kgCO2e\n",
				result.StoredTotalKg, result.RecomputedTotal)

			for _, finding := range result.Findings {
				fmt.Fprintf(out, "  - activity %d: %s (stored %.6f, recomputed %.6f)\n",
					finding.ActivityID, finding.Message, finding.Stored, finding.Recomputed)
			}
			if result.Status != audit.StatusPass {
				return fmt.Errorf("audit failed with %d finding(s)", len(result.Findings))
			}
			return nil
		},
	}
}
