// Package repl is the line-mode console. Queries are typed over several
// lines and submitted with a blank line or a trailing ";;".
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chzyer/readline"
	"github.com/johan-st/sparql-tui/internal/catalog"
	"github.com/johan-st/sparql-tui/internal/cli"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/history"
	"github.com/johan-st/sparql-tui/internal/service"
	"github.com/johan-st/sparql-tui/internal/sparql"
)

const (
	prompt         = "sparql> "
	continuePrompt = "   ...> "
	submitSuffix   = ";;"
)

// Service is the remote query service as seen by the REPL.
type Service interface {
	console.Executor
	console.Pinger
	Examples(ctx context.Context) ([]service.Example, error)
}

// Options configures a REPL.
type Options struct {
	UI           config.UIConfig
	ServiceURL   string
	ProbeTimeout time.Duration
	Format       string
	HistoryFile  string
	Logger       *log.Logger

	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
}

// REPL is one line-mode session.
type REPL struct {
	svc        Service
	session    *console.Session
	ctl        *console.Controller
	store      *history.Store
	prober     *console.Prober
	serviceURL string
	format     string
	ui         config.UIConfig
	opts       Options
	logger     *log.Logger

	out     io.Writer
	errOut  io.Writer
	notices []string

	buf      strings.Builder
	examples []service.Example
	last     string
}

// New creates a REPL session on svc.
func New(svc Service, opts Options) (*REPL, error) {
	format, err := cli.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = opts.Stdout
	}

	session := console.NewSession()
	store, err := history.NewStore(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	r := &REPL{
		svc:        svc,
		session:    session,
		store:      store,
		prober:     console.NewProber(svc, opts.ProbeTimeout),
		serviceURL: opts.ServiceURL,
		format:     format,
		ui:         opts.UI,
		opts:       opts,
		logger:     logger,
		out:        opts.Stdout,
		errOut:     opts.Stderr,
	}
	notify := console.NotifierFunc(func(message string) {
		r.notices = append(r.notices, message)
	})
	r.ctl = console.NewController(session, svc, notify,
		console.WithRecorder(store),
		console.WithLogger(logger))
	return r, nil
}

// Session returns the REPL's session state.
func (r *REPL) Session() *console.Session { return r.session }

// Close releases the session history.
func (r *REPL) Close() error {
	return r.store.Close()
}

// Prompt returns the prompt for the next line.
func (r *REPL) Prompt() string {
	if r.buf.Len() > 0 {
		return continuePrompt
	}
	return prompt
}

// Run reads lines until .quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     r.opts.HistoryFile,
		HistoryLimit:    r.ui.HistoryLimit,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           r.opts.Stdin,
		Stdout:          r.out,
		Stderr:          r.errOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	_, _ = fmt.Fprintf(r.out, "sparql-tui REPL (service: %s)\n", r.serviceURL)
	_, _ = fmt.Fprintln(r.out, "Type .help for commands, .quit to exit")
	r.status(ctx)
	_, _ = fmt.Fprintln(r.out)

	for {
		rl.SetPrompt(r.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			r.buf.Reset()
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read line: %w", err)
		}

		if quit := r.HandleLine(ctx, line); quit {
			return nil
		}
	}
}

// HandleLine feeds one input line. It returns true when the session should end.
func (r *REPL) HandleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)

	if r.buf.Len() == 0 && trimmed == "" {
		return false
	}
	if isDotCommand(trimmed, r.buf.Len() == 0) {
		return r.dotCommand(ctx, trimmed)
	}

	if trimmed == "" {
		r.submit(ctx)
		return false
	}

	if strings.HasSuffix(trimmed, submitSuffix) {
		r.appendLine(strings.TrimSuffix(strings.TrimRight(line, " \t"), submitSuffix))
		r.submit(ctx)
		return false
	}

	r.appendLine(line)
	return false
}

// Buffer returns the query typed so far.
func (r *REPL) Buffer() string {
	return r.buf.String()
}

func (r *REPL) appendLine(line string) {
	if r.buf.Len() > 0 {
		r.buf.WriteByte('\n')
	}
	r.buf.WriteString(line)
}

func (r *REPL) submit(ctx context.Context) {
	query := r.buf.String()
	r.buf.Reset()
	r.notices = r.notices[:0]

	d, ok := r.ctl.Submit(ctx, query)
	if !ok {
		cli.ReportFailure(r.errOut, r.notices, console.Display{})
		return
	}
	r.last = strings.TrimSpace(query)

	if d.Kind == console.ViewError {
		cli.ReportFailure(r.errOut, r.notices, d)
		return
	}
	if err := cli.WriteDisplay(r.out, d, r.session.Result(), r.format); err != nil {
		_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(r.out)
}

func (r *REPL) status(ctx context.Context) {
	c := r.prober.ProbeSession(ctx, r.session)
	_, _ = fmt.Fprintf(r.out, "Status: %s\n", c)
}

func (r *REPL) loadExamples(ctx context.Context) ([]service.Example, error) {
	if r.examples != nil {
		return r.examples, nil
	}
	examples, err := r.svc.Examples(ctx)
	if err != nil {
		return nil, err
	}
	r.examples = examples
	return examples, nil
}

func (r *REPL) snippetLength() int {
	if r.ui.SnippetLength > 0 {
		return r.ui.SnippetLength
	}
	return 60
}

func (r *REPL) historyLimit() int {
	if r.ui.HistoryLimit > 0 {
		return r.ui.HistoryLimit
	}
	return 20
}

var dotCommands = map[string]bool{
	".help": true, ".examples": true, ".load": true, ".format": true,
	".clear": true, ".status": true, ".history": true, ".quit": true, ".exit": true,
}

// isDotCommand reports whether line is a REPL command. SPARQL uses "." as a
// triple terminator, so inside a query only known command names count.
func isDotCommand(line string, emptyBuffer bool) bool {
	if !strings.HasPrefix(line, ".") {
		return false
	}
	if emptyBuffer {
		return true
	}
	return dotCommands[strings.ToLower(strings.Fields(line)[0])]
}

func (r *REPL) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printHelp(r.out)

	case ".examples":
		examples, err := r.loadExamples(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Failed to load examples: %v\n", err)
			return false
		}
		if len(examples) == 0 {
			_, _ = fmt.Fprintln(r.out, "No examples available.")
			return false
		}
		for i, ex := range examples {
			_, _ = fmt.Fprintf(r.out, "%3d. %s\n", i+1, console.EscapeForDisplay(ex.Name))
			if ex.Description != "" {
				_, _ = fmt.Fprintf(r.out, "     %s\n", console.EscapeForDisplay(ex.Description))
			}
		}

	case ".load":
		if arg == "" {
			_, _ = fmt.Fprintln(r.errOut, "Usage: .load <n|name>")
			return false
		}
		examples, err := r.loadExamples(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Failed to load examples: %v\n", err)
			return false
		}
		ex, ok := catalog.Find(examples, arg)
		if !ok {
			_, _ = fmt.Fprintf(r.errOut, "No example %s\n", arg)
			return false
		}
		r.buf.Reset()
		r.buf.WriteString(ex.Query)
		_, _ = fmt.Fprintf(r.out, "Loaded %q. Press Enter on an empty line to run it.\n", ex.Name)
		_, _ = fmt.Fprintln(r.out, console.EscapeForDisplay(ex.Query))

	case ".format":
		source := strings.TrimSpace(r.buf.String())
		if arg != "" {
			source = arg
		}
		if source == "" {
			source = r.last
		}
		if source == "" {
			_, _ = fmt.Fprintln(r.errOut, console.MsgEmptyQuery)
			return false
		}
		formatted := sparql.Format(source)
		r.buf.Reset()
		r.buf.WriteString(formatted)
		_, _ = fmt.Fprintln(r.out, console.EscapeForDisplay(formatted))

	case ".clear":
		r.buf.Reset()
		r.session.Clear()
		_, _ = fmt.Fprintln(r.out, "Cleared.")

	case ".status":
		r.status(ctx)

	case ".history":
		entries, err := r.store.Recent(r.historyLimit())
		if err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Failed to read history: %v\n", err)
			return false
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(r.out, "No queries yet.")
			return false
		}
		for _, e := range entries {
			_, _ = fmt.Fprintf(r.out, "%3d. %s\n     %s\n",
				e.ID,
				console.EscapeForDisplay(truncate(e.Title(), r.snippetLength())),
				e.Summary())
		}

	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func printHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .examples        List example queries
  .load <n|name>   Load an example into the buffer
  .format [query]  Reformat the buffer, the given query or the last one
  .clear           Clear the buffer and the last result
  .status          Check connectivity to the query service
  .history         Show the queries run in this session
  .quit / .exit    Exit the REPL

Tips:
  - Finish a query with an empty line or end its last line with ;;
  - Use arrow keys to navigate line history
  - Tab completes dot-commands
`
	_, _ = fmt.Fprintln(w, help)
}

func newCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".examples"),
		readline.PcItem(".load"),
		readline.PcItem(".format"),
		readline.PcItem(".clear"),
		readline.PcItem(".status"),
		readline.PcItem(".history"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("SELECT"),
		readline.PcItem("PREFIX"),
		readline.PcItem("ASK"),
	)
}
