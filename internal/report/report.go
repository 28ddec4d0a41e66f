// Package report turns persisted calculation runs into exportable artifacts:
// CSV and JSON files for downstream tooling, and a terminal summary for
// interactive use.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/equiv"
	"github.com/opencarbon/carbonfocus/internal/store"
)

const summaryBoxWidth = 64

var csvHeader = []string{
	"activity_id", "activity_name", "ef_key", "method", "quantity", "kgco2e", "inputs",
}

// ExportCSV writes the run's rows as CSV, one line per activity plus a
// trailing TOTAL line.
func ExportCSV(w io.Writer, record *store.RunRecord) error {
	details, err := record.Rows()
	if err != nil {
		return fmt.Errorf("decode run %d rows: %w", record.ID, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range details.Rows {
		inputs, err := json.Marshal(row.Inputs)
		if err != nil {
			return fmt.Errorf("marshal inputs for activity %d: %w", row.ActivityID, err)
		}
		line := []string{
			strconv.FormatInt(row.ActivityID, 10),
			row.ActivityName,
			row.EFKey,
			string(row.Trace.Method),
			formatFloat(row.Trace.Quantity),
			formatFloat(row.KgCO2e),
			string(inputs),
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	total := []string{"", "TOTAL", "", "", "", formatFloat(record.TotalKgCO2e), ""}
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes the full run record, with details decoded rather than
// left as a raw blob.
func ExportJSON(w io.Writer, record *store.RunRecord) error {
	var details any
	if err := json.Unmarshal(record.Details, &details); err != nil {
		return fmt.Errorf("decode run %d details: %w", record.ID, err)
	}

	out := map[string]any{
		"id":            record.ID,
		"report_id":     record.ReportID,
		"run_type":      record.RunType,
		"total_kgco2e":  record.TotalKgCO2e,
		"total_tco2e":   record.TotalTCO2e,
		"details":       details,
		"created_at":    record.CreatedAt,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// RenderSummary writes a human-readable run summary. Styled output is used
// when w is a terminal, plain text otherwise.
func RenderSummary(w io.Writer, record *store.RunRecord) error {
	details, err := record.Rows()
	if err != nil {
		return fmt.Errorf("decode run %d rows: %w", record.ID, err)
	}

	if isWriterTerminal(w) {
		return renderStyledSummary(w, record, details.Rows)
	}
	return renderPlainSummary(w, record, details.Rows)
}

func renderStyledSummary(w io.Writer, record *store.RunRecord, rows []engine.RunRow) error {
	p := message.NewPrinter(language.English)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35"))
	labelStyle := lipgloss.NewStyle().Bold(true)
	borderStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(summaryBoxWidth)

	var content strings.Builder
	content.WriteString(titleStyle.Render(p.Sprintf("RUN %d (%s)", record.ID, record.RunType)))
	content.WriteString("\n")
	content.WriteString(p.Sprintf("Report ID: %s\n\n", record.ReportID))

	for _, row := range rows {
		content.WriteString(labelStyle.Render(rowLabel(row)))
		content.WriteString("\n")
		content.WriteString(p.Sprintf("  %s via %s: %.3f kgCO2e\n",
			row.EFKey, row.Trace.Method, row.KgCO2e))
	}
	if len(rows) > 0 {
		content.WriteString("\n")
	}

	content.WriteString(labelStyle.Render("TOTAL"))
	content.WriteString(p.Sprintf("  %.3f kgCO2e  (%.6f tCO2e)", record.TotalKgCO2e, record.TotalTCO2e))

	if sentence := equivSentence(record.TotalKgCO2e); sentence != "" {
		content.WriteString("\n")
		content.WriteString(sentence)
	}

	_, err := fmt.Fprintln(w, borderStyle.Render(content.String()))
	return err
}

func renderPlainSummary(w io.Writer, record *store.RunRecord, rows []engine.RunRow) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "RUN %d (%s)\n", record.ID, record.RunType); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "Report ID: %s\n", record.ReportID); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := p.Fprintf(w, "  %s | %s via %s: %.3f kgCO2e\n",
			rowLabel(row), row.EFKey, row.Trace.Method, row.KgCO2e); err != nil {
			return err
		}
	}
	if _, err := p.Fprintf(w, "TOTAL: %.3f kgCO2e (%.6f tCO2e)\n", record.TotalKgCO2e, record.TotalTCO2e); err != nil {
		return err
	}
	if sentence := equivSentence(record.TotalKgCO2e); sentence != "" {
		if _, err := fmt.Fprintln(w, sentence); err != nil {
			return err
		}
	}
	return nil
}

// equivSentence returns the real-world comparison line for a total, or ""
// when the total is too small or invalid to translate.
func equivSentence(kg float64) string {
	summary, err := equiv.ForKilograms(kg)
	if err != nil || summary.Empty {
		return ""
	}
	return summary.Sentence
}

func rowLabel(row engine.RunRow) string {
	if row.ActivityName != "" {
		return fmt.Sprintf("#%d %s", row.ActivityID, row.ActivityName)
	}
	return fmt.Sprintf("#%d", row.ActivityID)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// isWriterTerminal reports whether w is attached to an interactive terminal.
func isWriterTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
