package cli

import (
	"fmt"
)

// cmdHelp shows help information.
func (h *Handler) cmdHelp(ctx *CommandContext) {
	args := ctx.GetPositionalArgs()

	if len(args) > 0 {
		h.showCommandHelp(ctx, args[0])
		return
	}

	fmt.Fprintln(ctx.Out, `sparql-tui - Terminal client for a SPARQL query service

USAGE:
  sparql-tui command [arguments] [options]
  ssh host command [arguments] [options]

QUERY COMMANDS:
  query "<sparql>"                 Execute a SPARQL query
  format "<sparql>"                Reformat a query without running it

EXAMPLE COMMANDS:
  examples                         List example queries
  example <n|name>                 Print an example query (--run to execute)

UTILITY COMMANDS:
  status                           Check connectivity to the query service
  help [command]                   Show help
  version                          Show version

COMMON OPTIONS:
  --format=table                   Output as a table (default)
  --format=json                    Output as JSON
  --format=csv                     Output as CSV
  --format=md                      Output as a Markdown table

Run 'help <command>' for detailed help on a specific command.`)
}

// showCommandHelp shows help for a specific command.
func (h *Handler) showCommandHelp(ctx *CommandContext, command string) {
	help := map[string]string{
		"query": `query - Execute a SPARQL query

USAGE:
  query "<sparql>" [options]

OPTIONS:
  --format=table   Output results as a table (default)
  --format=json    Output results as JSON
  --format=csv     Output results as CSV
  --format=md      Output results as a Markdown table

Exits with status 1 when the query fails.

EXAMPLES:
  query "SELECT * WHERE { ?s ?p ?o } LIMIT 10"
  query "$(sparql-tui example 1)" --format=json`,

		"format": `format - Reformat a SPARQL query

USAGE:
  format "<sparql>"

EXAMPLES:
  format "SELECT ?s WHERE { ?s ?p ?o . }"`,

		"examples": `examples - List example queries

USAGE:
  examples [--format=json]

OPTIONS:
  --format=json    Output the full example list as JSON`,

		"example": `example - Show one example query

USAGE:
  example <n|name> [--run] [--format=...]

OPTIONS:
  --run            Execute the example instead of printing it
  --format=...     Output format when running (see 'help query')

EXAMPLES:
  example 1
  example "Student Enrollments" --run`,

		"status": `status - Check connectivity to the query service

USAGE:
  status [--format=json]

Exits with status 1 when the service cannot be reached.`,

		"version": `version - Show version

USAGE:
  version [--format=json]`,
	}

	if text, ok := help[command]; ok {
		fmt.Fprintln(ctx.Out, text)
	} else {
		fmt.Fprintf(ctx.Err, "No help available for '%s'\n", command)
		ctx.Exit(1)
	}
}

// cmdVersion shows version information.
func (h *Handler) cmdVersion(ctx *CommandContext) {
	format := ctx.GetFlag("format")
	if format == FormatJSON {
		_ = printJSON(ctx.Out, map[string]string{"version": h.version})
		return
	}
	fmt.Fprintf(ctx.Out, "sparql-tui %s\n", h.version)
}
