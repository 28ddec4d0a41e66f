package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	// HeaderStyle renders section headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35"))

	// LabelStyle renders field labels.
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle renders the key-binding help line.
	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// BoxStyle wraps views in a rounded border.
	BoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	// TableHeaderStyle styles the run table header row.
	TableHeaderStyle = table.DefaultStyles().Header.
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				BorderBottom(true).
				Bold(true)

	// TableSelectedStyle styles the highlighted table row.
	TableSelectedStyle = table.DefaultStyles().Selected.
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57")).
				Bold(false)
)
