package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/johan-st/sparql-tui/internal/console"
)

const (
	minColWidth = 8
	colPadding  = 2
)

// columnWidths returns the content width of every column of d, capped at maxWidth.
func columnWidths(d console.Display, maxWidth int) []int {
	widths := make([]int, len(d.Columns))
	for i, col := range d.Columns {
		w := ansi.StringWidth(col)
		for _, row := range d.Rows {
			if i < len(row) {
				if cw := ansi.StringWidth(row[i]); cw > w {
					w = cw
				}
			}
		}
		w += colPadding
		if w > maxWidth {
			w = maxWidth
		}
		if w < minColWidth {
			w = minColWidth
		}
		widths[i] = w
	}
	return widths
}

// visibleColumns returns how many columns starting at offset fit in width.
// At least one column is always visible.
func visibleColumns(widths []int, offset, width int) int {
	used, n := 0, 0
	for i := offset; i < len(widths); i++ {
		// the table style adds its own cell padding
		w := widths[i] + colPadding
		if n > 0 && used+w > width {
			break
		}
		used += w
		n++
	}
	if n == 0 && offset < len(widths) {
		n = 1
	}
	return n
}

// updateResultsTable rebuilds the results table from the session display.
func (a *App) updateResultsTable() {
	d := a.session.Display()
	if d.Kind != console.ViewTable || len(d.Columns) == 0 {
		a.results.SetRows([]table.Row{})
		a.results.SetColumns([]table.Column{})
		a.visibleCols = 0
		return
	}

	totalCols := len(d.Columns)

	// Clamp colOffset to valid range
	if a.colOffset >= totalCols {
		a.colOffset = totalCols - 1
	}
	if a.colOffset < 0 {
		a.colOffset = 0
	}

	innerWidth := a.width - 4
	widths := columnWidths(d, innerWidth)
	a.visibleCols = visibleColumns(widths, a.colOffset, innerWidth)
	endCol := a.colOffset + a.visibleCols

	columns := make([]table.Column, 0, a.visibleCols)
	for i := a.colOffset; i < endCol; i++ {
		columns = append(columns, table.Column{
			Title: truncateString(d.Columns[i], widths[i]),
			Width: widths[i],
		})
	}

	rows := make([]table.Row, len(d.Rows))
	for r, row := range d.Rows {
		cells := make([]string, 0, a.visibleCols)
		for i := a.colOffset; i < endCol; i++ {
			cell := ""
			if i < len(row) {
				cell = truncateString(row[i], widths[i])
			}
			cells = append(cells, cell)
		}
		rows[r] = cells
	}

	cursor := a.results.Cursor()

	// Must set rows before columns to avoid index panic in bubbles/table
	a.results.SetRows([]table.Row{})
	a.results.SetColumns(columns)
	a.results.SetRows(rows)
	a.results.SetHeight(a.tableHeight())
	if cursor < len(rows) {
		a.results.SetCursor(cursor)
	} else {
		a.results.SetCursor(0)
	}
}

// columnIndicator describes the horizontal scroll position, or "" when every
// column is visible.
func (a *App) columnIndicator() string {
	total := len(a.session.Display().Columns)
	endCol := a.colOffset + a.visibleCols
	if endCol > total {
		endCol = total
	}
	if a.colOffset == 0 && endCol >= total {
		return ""
	}
	left, right := "", ""
	if a.colOffset > 0 {
		left = fmt.Sprintf("← %d ", a.colOffset)
	}
	if endCol < total {
		right = fmt.Sprintf(" %d →", total-endCol)
	}
	return fmt.Sprintf("%scols %d-%d/%d%s", left, a.colOffset+1, endCol, total, right)
}

func (a *App) renderResultsBody(width, height int) string {
	var b strings.Builder

	if a.session.Busy() {
		b.WriteString(a.spinner.View())
		b.WriteString(statusValueStyle.Render(" Executing query..."))
		b.WriteString("\n")
	}

	d := a.session.Display()
	inner := width - 4
	if inner < 1 {
		inner = 1
	}

	switch d.Kind {
	case console.ViewNone:
		if !a.session.Busy() {
			b.WriteString(dimItemStyle.Render("Run a query to see results here"))
		}

	case console.ViewEmpty:
		block := lipgloss.JoinVertical(lipgloss.Center,
			d.Icon,
			titleStyle.Render(d.Title),
			dimItemStyle.Render(d.Message),
		)
		b.WriteString(lipgloss.Place(inner, height-3, lipgloss.Center, lipgloss.Center, block))

	case console.ViewError:
		b.WriteString(errorStyle.Render(d.Icon + " " + d.Title))
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(d.Message))

	case console.ViewTable:
		if ind := a.columnIndicator(); ind != "" {
			b.WriteString(dimItemStyle.Render(ind))
			b.WriteString("\n")
		}
		b.WriteString(a.results.View())
	}

	return b.String()
}

func (a *App) resultsTitle() string {
	d := a.session.Display()
	if d.Kind == console.ViewNone {
		return "Results"
	}
	return "Results · " + d.Count
}

// tableHeight is the number of lines the table may use inside the results pane.
func (a *App) tableHeight() int {
	h := a.resultsPaneHeight() - 2
	if a.session.Busy() {
		h--
	}
	if a.columnIndicator() != "" {
		h--
	}
	if h < 2 {
		h = 2
	}
	return h
}
