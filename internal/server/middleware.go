package server

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

// Context keys for middleware values
type ctxKey string

const (
	ctxKeySession    ctxKey = "session"
	ctxKeySessionMgr ctxKey = "session_mgr"
)

// SessionMiddleware creates sessions for each connection.
func SessionMiddleware(sessionMgr *SessionManager) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			name := NameFromContext(s.Context())
			if name == "" {
				name = "anonymous"
			}

			session := sessionMgr.CreateSession(name, FingerprintFromContext(s.Context()),
				s.RemoteAddr().String(), s.Command())

			// Store session in context
			s.Context().SetValue(ctxKeySession, session)
			s.Context().SetValue(ctxKeySessionMgr, sessionMgr)

			// Ensure session is cleaned up
			defer sessionMgr.EndSession(session.ID)

			next(s)
		}
	}
}

// LoggingMiddleware logs connections.
func LoggingMiddleware(logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			name := "anonymous"
			if session := GetSessionFromSSH(s); session != nil {
				name = session.Name
			}
			start := time.Now()

			logger.Info("ssh connect", "remote", s.RemoteAddr(), "name", name, "command", s.Command())

			next(s)

			logger.Info("ssh disconnect", "remote", s.RemoteAddr(), "name", name, "duration", time.Since(start).Round(time.Millisecond))
		}
	}
}

// GetSessionFromSSH retrieves the session from the SSH session context.
func GetSessionFromSSH(s ssh.Session) *Session {
	if session, ok := s.Context().Value(ctxKeySession).(*Session); ok {
		return session
	}
	return nil
}

// GetSessionMgrFromSSH retrieves the session manager from the SSH session context.
func GetSessionMgrFromSSH(s ssh.Session) *SessionManager {
	if mgr, ok := s.Context().Value(ctxKeySessionMgr).(*SessionManager); ok {
		return mgr
	}
	return nil
}
