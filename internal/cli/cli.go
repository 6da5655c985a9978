// Package cli implements the one-shot commands for both SSH exec and local mode.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/server"
	"github.com/johan-st/sparql-tui/internal/service"
)

// Service is the remote query service as seen by the commands.
type Service interface {
	console.Executor
	console.Pinger
	Examples(ctx context.Context) ([]service.Example, error)
}

// Handler handles CLI commands over SSH or locally.
type Handler struct {
	svc        Service
	serviceURL string
	timeout    time.Duration
	version    string
	logger     *log.Logger
}

// NewHandler creates a new CLI handler.
func NewHandler(svc Service, cfg config.ServiceConfig, version string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		svc:        svc,
		serviceURL: cfg.URL,
		timeout:    cfg.GetTimeout(),
		version:    version,
		logger:     logger,
	}
}

// HandleLocal processes a CLI command in local mode (no SSH session).
func (h *Handler) HandleLocal(ctx context.Context, args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, "No command specified. Run 'help' for usage.")
		return nil
	}

	cctx := &CommandContext{
		Context: ctx,
		Args:    args[1:],
		Out:     out,
		Err:     errOut,
	}

	h.routeCommand(args[0], cctx)

	if cctx.exitCode != 0 {
		return &ExitError{Code: cctx.exitCode}
	}
	return nil
}

// Handle processes an SSH session with a CLI command.
func (h *Handler) Handle(s ssh.Session) {
	cmd := s.Command()
	if len(cmd) == 0 {
		fmt.Fprintln(s, "No command specified. Run 'help' for usage.")
		return
	}

	ctx := &CommandContext{
		Context:     s.Context(),
		SessionInfo: server.GetSessionFromSSH(s),
		Args:        cmd[1:],
		Out:         s,
		Err:         s.Stderr(),
	}

	h.routeCommand(cmd[0], ctx)

	if ctx.exitCode != 0 {
		_ = s.Exit(ctx.exitCode)
	}
}

// routeCommand routes a command to its handler.
func (h *Handler) routeCommand(cmd string, ctx *CommandContext) {
	h.logger.Debug("cli command", "cmd", cmd, "args", len(ctx.Args), "session", ctx.SessionName())

	switch cmd {
	// Query commands
	case "query":
		h.cmdQuery(ctx)
	case "format":
		h.cmdFormat(ctx)

	// Example commands
	case "examples":
		h.cmdExamples(ctx)
	case "example":
		h.cmdExample(ctx)

	// Utility commands
	case "status":
		h.cmdStatus(ctx)
	case "help":
		h.cmdHelp(ctx)
	case "version":
		h.cmdVersion(ctx)

	default:
		fmt.Fprintf(ctx.Err, "Unknown command: %s\n", cmd)
		fmt.Fprintln(ctx.Err, "Run 'help' for usage.")
		ctx.Exit(1)
	}
}

// ExitError reports a command that finished with a non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed with exit code %d", e.Code)
}

// CommandContext provides context for command execution.
type CommandContext struct {
	Context     context.Context
	SessionInfo *server.Session // nil in local mode
	Args        []string
	Out         io.Writer
	Err         io.Writer
	exitCode    int
}

// Exit sets the exit code (used instead of calling Session.Exit directly).
func (c *CommandContext) Exit(code int) {
	c.exitCode = code
}

// SessionName returns the SSH session name or "local".
func (c *CommandContext) SessionName() string {
	if c.SessionInfo != nil {
		return c.SessionInfo.Name
	}
	return "local"
}

func (c *CommandContext) ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// RequireArg ensures an argument is provided.
func (c *CommandContext) RequireArg(index int, name string) (string, bool) {
	args := c.GetPositionalArgs()
	if index >= len(args) {
		fmt.Fprintf(c.Err, "Missing required argument: %s\n", name)
		c.Exit(1)
		return "", false
	}
	return args[index], true
}

// GetFlag returns a flag value from args (e.g., --format=json).
func (c *CommandContext) GetFlag(name string) string {
	prefix := "--" + name + "="
	shortPrefix := "-" + name + "="
	for _, arg := range c.Args {
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
		if strings.HasPrefix(arg, shortPrefix) {
			return strings.TrimPrefix(arg, shortPrefix)
		}
	}
	return ""
}

// HasFlag checks if a boolean flag is present.
func (c *CommandContext) HasFlag(name string) bool {
	flag := "--" + name
	shortFlag := "-" + name
	for _, arg := range c.Args {
		if arg == flag || arg == shortFlag {
			return true
		}
	}
	return false
}

// GetPositionalArgs returns args that are not flags.
func (c *CommandContext) GetPositionalArgs() []string {
	var result []string
	for _, arg := range c.Args {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			result = append(result, arg)
		}
	}
	return result
}
