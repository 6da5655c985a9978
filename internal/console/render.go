package console

import (
	"fmt"

	"github.com/johan-st/sparql-tui/internal/service"
)

// ViewKind tells a surface which representation to draw.
type ViewKind int

const (
	ViewNone ViewKind = iota
	ViewTable
	ViewEmpty
	ViewError
)

func (k ViewKind) String() string {
	switch k {
	case ViewTable:
		return "table"
	case ViewEmpty:
		return "empty"
	case ViewError:
		return "error"
	}
	return "none"
}

const (
	emptyIcon    = "📊"
	emptyTitle   = "No Results"
	emptyMessage = "The query executed successfully but returned no results"
	errorIcon    = "⚠️"
	errorTitle   = "Error"
)

// Display is a surface-independent rendering of a result or an error.
// Every string in it is already escaped for display.
type Display struct {
	Kind    ViewKind
	Icon    string
	Title   string
	Message string
	Columns []string
	Rows    [][]string
	Count   string
}

// CountLabel returns "1 result" or "N results".
func CountLabel(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// Render turns a tabular result into a Display. Columns follow
// result.Variables; a variable missing from a row renders as "".
// A nil result or one without rows yields the empty state.
func Render(result *service.TabularResult) Display {
	if result == nil || len(result.Rows) == 0 {
		return Display{
			Kind:    ViewEmpty,
			Icon:    emptyIcon,
			Title:   emptyTitle,
			Message: emptyMessage,
			Count:   CountLabel(0),
		}
	}

	columns := make([]string, len(result.Variables))
	for i, v := range result.Variables {
		columns[i] = EscapeForDisplay(v)
	}

	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(result.Variables))
		for j, v := range result.Variables {
			cells[j] = EscapeForDisplay(row[v])
		}
		rows[i] = cells
	}

	return Display{
		Kind:    ViewTable,
		Columns: columns,
		Rows:    rows,
		Count:   CountLabel(len(rows)),
	}
}

// RenderError turns a failure message into a Display.
func RenderError(message string) Display {
	return Display{
		Kind:    ViewError,
		Icon:    errorIcon,
		Title:   errorTitle,
		Message: EscapeForDisplay(message),
		Count:   errorTitle,
	}
}
