package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/johan-st/sparql-tui/internal/catalog"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/service"
)

const snippetLength = 60

// cmdExamples lists the example queries offered by the service.
func (h *Handler) cmdExamples(ctx *CommandContext) {
	examples, err := h.svc.Examples(ctx.ctx())
	if err != nil {
		fmt.Fprintf(ctx.Err, "Failed to load examples: %v\n", err)
		ctx.Exit(1)
		return
	}

	if ctx.GetFlag("format") == FormatJSON {
		if examples == nil {
			examples = []service.Example{}
		}
		_ = printJSON(ctx.Out, examples)
		return
	}

	if len(examples) == 0 {
		fmt.Fprintln(ctx.Out, "No examples available.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(ctx.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Description", "Query"})
	for i, ex := range examples {
		t.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			console.EscapeForDisplay(ex.Name),
			console.EscapeForDisplay(ex.Description),
			console.EscapeForDisplay(catalog.Snippet(ex.Query, snippetLength)),
		})
	}
	t.Render()

	noun := "examples"
	if len(examples) == 1 {
		noun = "example"
	}
	fmt.Fprintf(ctx.Out, "(%s %s)\n", humanize.Comma(int64(len(examples))), noun)
}

// cmdExample prints one example query, or runs it with --run.
func (h *Handler) cmdExample(ctx *CommandContext) {
	if _, ok := ctx.RequireArg(0, "number or name"); !ok {
		return
	}
	ref := strings.Join(ctx.GetPositionalArgs(), " ")

	examples, err := h.svc.Examples(ctx.ctx())
	if err != nil {
		fmt.Fprintf(ctx.Err, "Failed to load examples: %v\n", err)
		ctx.Exit(1)
		return
	}

	ex, found := catalog.Find(examples, ref)
	if !found {
		fmt.Fprintf(ctx.Err, "No example %s\n", ref)
		ctx.Exit(1)
		return
	}

	if !ctx.HasFlag("run") {
		fmt.Fprintln(ctx.Out, ex.Query)
		return
	}

	format, err := ParseFormat(ctx.GetFlag("format"))
	if err != nil {
		fmt.Fprintln(ctx.Err, err)
		ctx.Exit(1)
		return
	}
	h.runQuery(ctx, ex.Query, format)
}
