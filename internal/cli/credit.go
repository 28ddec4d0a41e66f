package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opencarbon/carbonfocus/internal/credit"
	"github.com/opencarbon/carbonfocus/internal/engine"
)

func newCreditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Work with carbon-credit projects",
	}
	cmd.AddCommand(newCreditCalcCmd())
	return cmd
}

func newCreditCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc <project-code>",
		Short: "Net a project's reductions into issuable credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			project, found, err := st.CreditProjectByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("credit project %q not found", args[0])
			}

			trace, err := credit.Calculate(&credit.Project{
				ProjectCode:   project.ProjectCode,
				Name:          project.Name,
				Methodology:   project.Methodology,
				BaselineTCO2e: project.BaselineTCO2e,
				ProjectTCO2e:  project.ProjectTCO2e,
				LeakageTCO2e:  project.LeakageTCO2e,
				BufferPct:     project.BufferPct,
				Vintage:       project.Vintage,
			})
			if err != nil {
				return err
			}

			record, err := st.SaveRunRecord(cmd.Context(), "CREDIT",
				trace.NetTCO2e*engine.KgPerTonne, trace.NetTCO2e,
				map[string]any{"credit_trace": trace})
			if err != nil {
				return err
			}

			p := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			p.Fprintf(out, "Project:    %s (%s)\n", project.ProjectCode, project.Name)
			p.Fprintf(out, "Baseline:   %.3f tCO2e\n", trace.BaselineTCO2e)
			p.Fprintf(out, "Project:    %.3f tCO2e\n", trace.ProjectTCO2e)
			p.Fprintf(out, "Leakage:    %.3f tCO2e\n", trace.LeakageTCO2e)
			p.Fprintf(out, "Reduction:  %.3f tCO2e\n", trace.ReductionTCO2e)
			p.Fprintf(out, "Buffer:     %.3f tCO2e (%.1f%%)\n", trace.BufferTCO2e, trace.BufferPct)
			p.Fprintf(out, "Net issued: %.3f tCO2e (run %d)\n", trace.NetTCO2e, record.ID)
			return nil
		},
	}
}
