package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Width(11)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().Padding(0, 1)

	ErrorCellStyle = CellStyle.
			Foreground(lipgloss.Color("196"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	BorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// maxCellWidth bounds the width of a rendered cell, except filenames.
const maxCellWidth = 48

// newTable returns a bordered table. failed reports, for a data row, whether
// it is rendered as an error row.
func newTable(headers []string, rows [][]string, failed func(row int) bool) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case failed != nil && failed(row):
				return ErrorCellStyle
			}
			return CellStyle
		}).
		Headers(headers...).
		Rows(rows...)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// label renders a "Name:  value" line of a summary.
func label(name, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(name+":"), value)
}
