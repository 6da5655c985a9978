package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/johan-st/sparql-tui/internal/catalog"
	"github.com/johan-st/sparql-tui/internal/cli"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/gateway"
	"github.com/johan-st/sparql-tui/internal/logging"
	"github.com/johan-st/sparql-tui/internal/repl"
	"github.com/johan-st/sparql-tui/internal/server"
	"github.com/johan-st/sparql-tui/internal/service"
	"github.com/johan-st/sparql-tui/internal/sparql"
	"github.com/johan-st/sparql-tui/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// runtime holds what PersistentPreRunE prepared for a command.
type runtime struct {
	cfgFile  string
	cfg      *config.Config
	logger   *log.Logger
	closeLog logging.Closer
}

// interactive commands own the terminal, so they only log to a file.
var interactive = map[string]bool{
	"sparql-tui": true,
	"tui":        true,
	"repl":       true,
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:   "sparql-tui",
		Short: "Terminal client for a SPARQL query service",
		Long: `sparql-tui edits and runs SPARQL queries against a query service.

Without a subcommand it opens the interactive terminal UI. The same
service can be used from a line-mode REPL, from one-shot commands, or
served over HTTP and SSH with 'serve'.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(rt.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr(), interactive[cmd.Name()])
			if err != nil {
				return err
			}

			rt.cfg = cfg
			rt.logger = logger
			rt.closeLog = closer
			if path := cfg.Path(); path != "" {
				logger.Debug("using config file", "path", path)
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if rt.closeLog != nil {
				return rt.closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runTUI(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
` + fmt.Sprintf("  commit: %s\n  built: %s\n", commit, buildDate))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rt.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	flags.String("service-url", "", "base URL of the query service")
	flags.String("service-timeout", "", "timeout for one request to the query service")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "write logs to this file")
	flags.String("notify-delay", "", "how long notifications stay visible")

	rootCmd.AddCommand(
		newTUICommand(rt),
		newREPLCommand(rt),
		newServeCommand(rt),
		newQueryCommand(rt),
		newCLICommand(rt, "examples", "List example queries", cobra.NoArgs),
		newExampleCommand(rt),
		newCLICommand(rt, "format <sparql>", "Reformat a query without running it", cobra.ArbitraryArgs),
		newCLICommand(rt, "status", "Check connectivity to the query service", cobra.NoArgs),
		newVersionCommand(),
	)

	return rootCmd
}

func (rt *runtime) client() (*service.Client, error) {
	client, err := service.NewClient(rt.cfg.Service, service.WithLogger(rt.logger.WithPrefix("service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create service client: %w", err)
	}
	return client, nil
}

func (rt *runtime) cliHandler() (*cli.Handler, error) {
	client, err := rt.client()
	if err != nil {
		return nil, err
	}
	return cli.NewHandler(client, rt.cfg.Service, version, rt.logger), nil
}

func newTUICommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runTUI(cmd)
		},
	}
}

func (rt *runtime) runTUI(cmd *cobra.Command) error {
	client, err := rt.client()
	if err != nil {
		return err
	}

	width, height := 80, 24
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "local"
	}

	app, err := tui.NewApp(client, tui.Options{
		UI:           rt.cfg.UI,
		User:         user,
		Logger:       rt.logger.WithPrefix("tui"),
		ProbeTimeout: rt.cfg.Service.GetTimeout(),
	}, width, height)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func newREPLCommand(rt *runtime) *cobra.Command {
	var (
		format      string
		historyFile string
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start a line-mode query console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}

			r, err := repl.New(client, repl.Options{
				UI:           rt.cfg.UI,
				ServiceURL:   rt.cfg.Service.URL,
				ProbeTimeout: rt.cfg.Service.GetTimeout(),
				Format:       format,
				HistoryFile:  historyFile,
				Logger:       rt.logger.WithPrefix("repl"),
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			return r.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&format, "format", cli.FormatTable, "result format (table|json|csv|md)")
	cmd.Flags().StringVar(&historyFile, "history-file", "", "keep line history in this file")
	return cmd
}

func newServeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query service over HTTP, and optionally the console over SSH",
		Long: `serve runs the HTTP query service in front of a SPARQL protocol endpoint.

With --ssh it also accepts SSH connections: sessions with a terminal get
the interactive UI, sessions with a command run it like the one-shot
commands (for example: ssh -p 2222 host query "SELECT ...").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.serve(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "HTTP listen address")
	flags.String("endpoint", "", "SPARQL protocol endpoint URL")
	flags.StringSlice("examples", nil, "glob patterns of YAML example files")
	flags.Bool("ssh", false, "also serve over SSH")
	flags.String("ssh-listen", "", "SSH listen address")
	flags.String("host-key", "", "SSH host key path")
	return cmd
}

func (rt *runtime) serve(cmd *cobra.Command) error {
	cfg, logger := rt.cfg, rt.logger

	endpoint, err := sparql.NewEndpoint(cfg.Gateway.Endpoint, cfg.Gateway.GetTimeout())
	if err != nil {
		return err
	}

	examples := catalog.New(cfg.Gateway.Examples, logger.WithPrefix("catalog"))
	if err := examples.Load(); err != nil {
		logger.Warn("some example files could not be read", "err", err)
	}
	logger.Info("examples loaded", "count", len(examples.Examples()), "files", len(examples.Files()))

	watcher, err := catalog.NewWatcher(examples)
	if err != nil {
		logger.Warn("failed to create examples watcher", "err", err)
	} else {
		watcher.OnReload(func(list []service.Example) {
			logger.Info("examples reloaded", "count", len(list))
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to start examples watcher", "err", err)
		}
		defer watcher.Stop()
	}

	gw := gateway.New(endpoint, examples, gateway.Options{
		Listen:      cfg.Gateway.Listen,
		ShortenURIs: cfg.Gateway.ShortenURIs,
		Logger:      logger.WithPrefix("gateway"),
	})

	var sshServer *server.Server
	if cfg.SSH.Enabled {
		client, err := rt.client()
		if err != nil {
			return err
		}
		sshServer = server.NewServer(cfg.SSH, logger.WithPrefix("ssh"))
		sshServer.SetCLIHandler(cli.NewHandler(client, cfg.Service, version, logger.WithPrefix("cli")).Handle)
		sshServer.SetTUIHandler(tui.Handler(client, cfg.UI, logger.WithPrefix("tui")))
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return gw.Serve(ctx)
	})
	if sshServer != nil {
		g.Go(func() error {
			return sshServer.Serve(ctx)
		})
	}

	return g.Wait()
}

// newQueryCommand runs one query. Flags are parsed by cobra and handed to
// the cli handler in its --name=value form.
func newQueryCommand(rt *runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <sparql>",
		Short: "Execute a SPARQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runCLI(cmd, "query", withFormat(args, format))
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "result format (table|json|csv|md)")
	return cmd
}

func newExampleCommand(rt *runtime) *cobra.Command {
	var (
		format string
		run    bool
	)

	cmd := &cobra.Command{
		Use:   "example <n|name>",
		Short: "Print an example query, or run it with --run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			args = withFormat(args, format)
			if run {
				args = append(args, "--run")
			}
			return rt.runCLI(cmd, "example", args)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "result format when running (table|json|csv|md)")
	cmd.Flags().BoolVar(&run, "run", false, "execute the example")
	return cmd
}

// newCLICommand wraps a cli command that takes at most a --format flag.
func newCLICommand(rt *runtime, use, short string, args cobra.PositionalArgs) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return rt.runCLI(c, cmd.Name(), withFormat(args, format))
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (table|json)")
	return cmd
}

func withFormat(args []string, format string) []string {
	if format == "" {
		return args
	}
	return append(append([]string(nil), args...), "--format="+format)
}

func (rt *runtime) runCLI(cmd *cobra.Command, name string, args []string) error {
	handler, err := rt.cliHandler()
	if err != nil {
		return err
	}
	return handler.HandleLocal(cmd.Context(), append([]string{name}, args...), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func newVersionCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := cli.NewHandler(nil, config.ServiceConfig{}, version, log.New(io.Discard))
			return handler.HandleLocal(cmd.Context(), withFormat([]string{"version"}, format), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (json)")
	return cmd
}
