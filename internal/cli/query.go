package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/sparql"
)

// cmdQuery executes a SPARQL query through the query service.
func (h *Handler) cmdQuery(ctx *CommandContext) {
	format, err := ParseFormat(ctx.GetFlag("format"))
	if err != nil {
		fmt.Fprintln(ctx.Err, err)
		ctx.Exit(1)
		return
	}

	query := strings.Join(ctx.GetPositionalArgs(), " ")
	h.runQuery(ctx, query, format)
}

// runQuery submits query once and writes the outcome. Any failed attempt
// sets exit code 1.
func (h *Handler) runQuery(ctx *CommandContext, query, format string) {
	var notices []string
	notify := console.NotifierFunc(func(message string) {
		notices = append(notices, message)
	})

	session := console.NewSession()
	ctl := console.NewController(session, h.svc, notify, console.WithLogger(h.logger))

	attempt, ok := ctl.Begin(query)
	if !ok {
		ReportFailure(ctx.Err, notices, session.Display())
		ctx.Exit(1)
		return
	}

	outcome := ctl.Run(ctx.ctx(), attempt)
	d := ctl.Complete(outcome)

	h.logger.Debug("query finished",
		"session", ctx.SessionName(),
		"kind", d.Kind,
		"count", d.Count,
		"took", outcome.Took)

	if d.Kind == console.ViewError {
		ReportFailure(ctx.Err, notices, d)
		ctx.Exit(1)
		return
	}

	if err := WriteDisplay(ctx.Out, d, session.Result(), format); err != nil {
		fmt.Fprintf(ctx.Err, "Failed to write results: %v\n", err)
		ctx.Exit(1)
	}
}

// ReportFailure prints the notifications raised by an attempt and the error
// detail when it adds to them.
func ReportFailure(w io.Writer, notices []string, d console.Display) {
	last := ""
	for _, n := range notices {
		last = console.EscapeForDisplay(n)
		fmt.Fprintf(w, "Error: %s\n", last)
	}
	if d.Kind == console.ViewError && d.Message != last {
		fmt.Fprintf(w, "Details: %s\n", d.Message)
	}
}

// cmdFormat reformats a query without running it.
func (h *Handler) cmdFormat(ctx *CommandContext) {
	query := strings.TrimSpace(strings.Join(ctx.GetPositionalArgs(), " "))
	if query == "" {
		fmt.Fprintf(ctx.Err, "Error: %s\n", console.MsgEmptyQuery)
		ctx.Exit(1)
		return
	}
	fmt.Fprintln(ctx.Out, sparql.Format(query))
}

// cmdStatus probes the query service once.
func (h *Handler) cmdStatus(ctx *CommandContext) {
	prober := console.NewProber(h.svc, h.timeout)
	status := prober.Probe(ctx.ctx())

	if ctx.GetFlag("format") == FormatJSON {
		_ = printJSON(ctx.Out, map[string]any{
			"service":   h.serviceURL,
			"connected": status == console.Connected,
			"status":    status.String(),
		})
	} else {
		fmt.Fprintf(ctx.Out, "Service:\t%s\n", h.serviceURL)
		fmt.Fprintf(ctx.Out, "Status:\t%s\n", status)
	}

	if status != console.Connected {
		ctx.Exit(1)
	}
}
