package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session represents an active SSH session.
type Session struct {
	ID          string
	Name        string
	Fingerprint string
	RemoteAddr  string
	Command     []string
	StartTime   time.Time

	mu           sync.RWMutex
	lastActivity time.Time
}

// NewSession creates a new session.
func NewSession(name, fingerprint, remoteAddr string, command []string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Name:         name,
		Fingerprint:  fingerprint,
		RemoteAddr:   remoteAddr,
		Command:      command,
		StartTime:    now,
		lastActivity: now,
	}
}

// Touch updates the last activity time.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// Duration returns how long the session has been active.
func (s *Session) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// IdleTime returns how long since the last activity.
func (s *Session) IdleTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity)
}

// Interactive reports whether the session runs the TUI.
func (s *Session) Interactive() bool {
	return len(s.Command) == 0
}

// SessionManager manages active sessions.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates and registers a new session.
func (sm *SessionManager) CreateSession(name, fingerprint, remoteAddr string, command []string) *Session {
	session := NewSession(name, fingerprint, remoteAddr, command)

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session
}

// GetSession returns a session by ID.
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// EndSession ends a session.
func (sm *SessionManager) EndSession(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

// ListActiveSessions returns all active sessions, oldest first.
func (sm *SessionManager) ListActiveSessions() []*Session {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// UpdateActivity updates the activity time for a session.
func (sm *SessionManager) UpdateActivity(id string) {
	sm.mu.RLock()
	session := sm.sessions[id]
	sm.mu.RUnlock()

	if session != nil {
		session.Touch()
	}
}
