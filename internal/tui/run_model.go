// Package tui implements the interactive run browser: a navigable table of a
// calculation run's rows with a per-activity trace detail view.
package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/equiv"
	"github.com/opencarbon/carbonfocus/internal/store"
)

// RunState represents the browser's current screen.
type RunState int

const (
	// RunStateTable shows the row table.
	RunStateTable RunState = iota
	// RunStateDetail shows one row's trace.
	RunStateDetail
	// RunStateQuitting means the program is exiting.
	RunStateQuitting
)

const (
	runTableHeight     = 12
	nameColumnWidth    = 28
	truncationEllipsis = "..."
)

// RunModel is the Bubble Tea model browsing one calculation run.
type RunModel struct {
	record *store.RunRecord
	rows   []engine.RunRow

	table table.Model
	state RunState

	width  int
	height int
}

// NewRunModel builds the browser for a stored run. Credit runs have no
// activity rows and are rejected.
func NewRunModel(record *store.RunRecord) (*RunModel, error) {
	details, err := record.Rows()
	if err != nil {
		return nil, fmt.Errorf("decode run %d: %w", record.ID, err)
	}
	if len(details.Rows) == 0 {
		return nil, fmt.Errorf("run %d has no activity rows to browse", record.ID)
	}

	return &RunModel{
		record: record,
		rows:   details.Rows,
		table:  newRunTable(details.Rows),
		state:  RunStateTable,
	}, nil
}

func newRunTable(rows []engine.RunRow) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Activity", Width: nameColumnWidth},
		{Title: "EF Key", Width: 22},
		{Title: "Method", Width: 14},
		{Title: "Quantity", Width: 12},
		{Title: "kgCO2e", Width: 12},
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		name := row.ActivityName
		if len(name) > nameColumnWidth {
			name = name[:nameColumnWidth-len(truncationEllipsis)] + truncationEllipsis
		}
		tableRows[i] = table.Row{
			strconv.FormatInt(row.ActivityID, 10),
			name,
			row.EFKey,
			string(row.Trace.Method),
			fmt.Sprintf("%.3f", row.Trace.Quantity),
			fmt.Sprintf("%.3f", row.KgCO2e),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(runTableHeight),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	return t
}

// Init implements tea.Model.
func (m *RunModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *RunModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.state = RunStateQuitting
		return m, tea.Quit

	case "enter":
		if m.state == RunStateTable {
			m.state = RunStateDetail
		}
		return m, nil

	case "esc":
		if m.state == RunStateDetail {
			m.state = RunStateTable
			return m, nil
		}
		m.state = RunStateQuitting
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// SelectedRow returns the row the cursor is on.
func (m *RunModel) SelectedRow() engine.RunRow {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.rows) {
		return m.rows[0]
	}
	return m.rows[cursor]
}

// View implements tea.Model.
func (m *RunModel) View() string {
	switch m.state {
	case RunStateQuitting:
		return ""
	case RunStateDetail:
		return m.detailView()
	case RunStateTable:
	}
	return m.tableView()
}

func (m *RunModel) tableView() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(p.Sprintf("RUN %d (%s)", m.record.ID, m.record.RunType)))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Report ID: "))
	b.WriteString(ValueStyle.Render(m.record.ReportID))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Total:     "))
	b.WriteString(ValueStyle.Render(p.Sprintf("%.3f kgCO2e (%.6f tCO2e)", m.record.TotalKgCO2e, m.record.TotalTCO2e)))
	b.WriteString("\n")
	if summary, err := equiv.ForKilograms(m.record.TotalKgCO2e); err == nil && !summary.Empty {
		b.WriteString(HelpStyle.Render(summary.Sentence))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("enter: trace  ↑/↓: navigate  q: quit"))

	return b.String()
}

func (m *RunModel) detailView() string {
	row := m.SelectedRow()
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("ACTIVITY TRACE"))
	b.WriteString("\n\n")
	b.WriteString(LabelStyle.Render("Activity:   "))
	b.WriteString(ValueStyle.Render(fmt.Sprintf("#%d %s", row.ActivityID, row.ActivityName)))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("EF Key:     "))
	b.WriteString(ValueStyle.Render(row.EFKey))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Conversion: "))
	b.WriteString(ValueStyle.Render(string(row.Trace.Method)))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Quantity:   "))
	b.WriteString(ValueStyle.Render(p.Sprintf("%.3f (via %s)", row.Trace.Quantity, row.Trace.QTrace.Method)))
	b.WriteString("\n")
	if row.Trace.EFValue != nil {
		b.WriteString(LabelStyle.Render("EF Value:   "))
		b.WriteString(ValueStyle.Render(p.Sprintf("%.6f", *row.Trace.EFValue)))
		b.WriteString("\n")
	}
	if row.Trace.PerUnitCO2e != nil {
		b.WriteString(LabelStyle.Render("Per Unit:   "))
		b.WriteString(ValueStyle.Render(p.Sprintf("%.6f kgCO2e", *row.Trace.PerUnitCO2e)))
		b.WriteString("\n")
	}
	b.WriteString(LabelStyle.Render("kgCO2e:     "))
	b.WriteString(ValueStyle.Render(p.Sprintf("%.3f", row.KgCO2e)))
	b.WriteString("\n\n")

	if inputs, err := json.MarshalIndent(row.Inputs, "", "  "); err == nil {
		b.WriteString(HeaderStyle.Render("INPUTS"))
		b.WriteString("\n")
		b.Write(inputs)
		b.WriteString("\n\n")
	}

	b.WriteString(HelpStyle.Render("esc: back  q: quit"))
	return BoxStyle.Render(b.String())
}
