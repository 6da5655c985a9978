package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/service"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Output formats accepted by --format.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// ParseFormat normalizes a --format value. An empty value means table.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json, csv or md)", s)
	}
}

// WriteDisplay writes a rendered result to w. JSON output uses the raw
// result rows; the other formats use the escaped cells of d. Error
// displays are not written here.
func WriteDisplay(w io.Writer, d console.Display, result *service.TabularResult, format string) error {
	if format == FormatJSON {
		return writeResultJSON(w, result)
	}

	switch d.Kind {
	case console.ViewEmpty:
		if format == FormatTable {
			_, _ = fmt.Fprintf(w, "%s %s\n%s\n", d.Icon, d.Title, d.Message)
		}
		return nil
	case console.ViewNone, console.ViewError:
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(d.Columns))
	for i, col := range d.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, cells := range d.Rows {
		row := make(table.Row, len(cells))
		for i, cell := range cells {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
		_, _ = fmt.Fprintf(w, "(%s)\n", d.Count)
	}
	return nil
}

func writeResultJSON(w io.Writer, result *service.TabularResult) error {
	if result == nil {
		result = &service.TabularResult{}
	}
	out := service.TabularResult{Variables: result.Variables, Rows: result.Rows}
	if out.Variables == nil {
		out.Variables = []string{}
	}
	if out.Rows == nil {
		out.Rows = []service.Row{}
	}
	return printJSON(w, out)
}

// printJSON writes JSON to a writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
