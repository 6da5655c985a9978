// Package server exposes the console over SSH: interactive sessions get the
// TUI, sessions with a command get the CLI.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/johan-st/sparql-tui/internal/config"
	"golang.org/x/sync/errgroup"
)

// Server is the SSH server for sparql-tui.
type Server struct {
	config        config.SSHConfig
	sessionMgr    *SessionManager
	authenticator *Authenticator
	logger        *log.Logger
	sshServer     *ssh.Server
	tuiHandler    bubbletea.Handler
	cliHandler    func(ssh.Session)
}

// NewServer creates a new SSH server.
func NewServer(cfg config.SSHConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		config:        cfg,
		sessionMgr:    NewSessionManager(),
		authenticator: NewAuthenticator(NewNameGenerator(), logger),
		logger:        logger,
	}
}

// SetTUIHandler sets the Bubble Tea handler for interactive sessions.
func (s *Server) SetTUIHandler(handler bubbletea.Handler) {
	s.tuiHandler = handler
}

// SetCLIHandler sets the handler for CLI commands.
func (s *Server) SetCLIHandler(handler func(ssh.Session)) {
	s.cliHandler = handler
}

func (s *Server) build() (*ssh.Server, error) {
	// Ensure host key directory exists
	keyDir := filepath.Dir(s.config.HostKeyPath)
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create host key directory: %w", err)
	}

	// Order matters: last middleware wraps first
	middleware := []wish.Middleware{
		s.routingMiddleware(),
		LoggingMiddleware(s.logger),
		SessionMiddleware(s.sessionMgr),
	}

	opts := []ssh.Option{
		wish.WithAddress(s.config.Listen),
		wish.WithHostKeyPath(s.config.HostKeyPath),
		wish.WithPublicKeyAuth(s.authenticator.PublicKeyHandler()),
		wish.WithKeyboardInteractiveAuth(s.authenticator.KeyboardInteractiveHandler()),
		wish.WithMiddleware(middleware...),
	}

	if d := s.config.GetIdleTimeout(); d > 0 {
		opts = append(opts, wish.WithIdleTimeout(d))
	}
	if d := s.config.GetMaxTimeout(); d > 0 {
		opts = append(opts, wish.WithMaxTimeout(d))
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	return server, nil
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	server, err := s.build()
	if err != nil {
		return err
	}
	s.sshServer = server

	s.logger.Info("starting SSH server", "addr", s.config.Listen)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("SSH server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.logger.Debug("shutting down SSH server")
		return s.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sshServer != nil {
		return s.sshServer.Shutdown(ctx)
	}
	return nil
}

// GetAddr returns the server's listen address string.
func (s *Server) GetAddr() string {
	if s.sshServer != nil {
		return s.sshServer.Addr
	}
	return ""
}

// routingMiddleware routes requests to either TUI or CLI handler.
func (s *Server) routingMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if len(sess.Command()) > 0 {
				if s.cliHandler != nil {
					s.cliHandler(sess)
				} else {
					wish.Fatalln(sess, "CLI commands are not available")
				}
				return
			}

			_, _, hasPty := sess.Pty()
			if !hasPty {
				wish.Fatalln(sess, "PTY required for interactive mode. Use -t flag or provide a command.")
				return
			}

			if s.tuiHandler != nil {
				bubbletea.Middleware(s.tuiHandler)(next)(sess)
			} else {
				wish.Fatalln(sess, "Interactive mode is not available")
			}
		}
	}
}

// GetSessionManager returns the session manager.
func (s *Server) GetSessionManager() *SessionManager {
	return s.sessionMgr
}
