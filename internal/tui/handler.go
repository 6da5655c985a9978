package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/server"
)

// Handler returns a bubbletea middleware handler for SSH sessions. Every
// connection gets its own console session.
func Handler(svc Service, ui config.UIConfig, logger *log.Logger) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		pty, _, ok := s.Pty()
		if !ok {
			// This shouldn't happen as routing middleware checks for PTY
			return nil, nil
		}

		name := "anonymous"
		if sess := server.GetSessionFromSSH(s); sess != nil {
			name = sess.Name
		}

		app, err := NewApp(svc, Options{UI: ui, User: name, Logger: logger}, pty.Window.Width, pty.Window.Height)
		if err != nil {
			logger.Error("failed to start session", "remote", s.RemoteAddr(), "err", err)
			return nil, nil
		}

		go func() {
			<-s.Context().Done()
			app.Close()
		}()

		return app, []tea.ProgramOption{
			tea.WithAltScreen(),
		}
	}
}
