package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/report"
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run emission calculations",
	}
	cmd.AddCommand(newCalcRunCmd())
	return cmd
}

func newCalcRunCmd() *cobra.Command {
	var (
		activityIDs []int64
		runType     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Calculate CO2e for a set of recorded activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(activityIDs) == 0 {
				return fmt.Errorf("at least one activity id is required (--ids)")
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := engine.ComputeRun(cmd.Context(), st, activityIDs, runType)
			if err != nil {
				return err
			}

			record, err := st.SaveRun(cmd.Context(), result)
			if err != nil {
				return err
			}

			logger.Info().
				Int64("run_id", record.ID).
				Str("report_id", record.ReportID).
				Float64("total_kgco2e", result.TotalKgCO2e).
				Msg("run complete")

			return report.RenderSummary(cmd.OutOrStdout(), record)
		},
	}

	cmd.Flags().Int64SliceVar(&activityIDs, "ids", nil, "activity ids to include")
	cmd.Flags().StringVar(&runType, "type", "CFO", "run type (CFO or CFP)")
	return cmd
}
