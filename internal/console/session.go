// Package console holds the query submission lifecycle shared by every
// interactive surface: validation, the busy state, the call to the query
// service, and turning the outcome into something displayable.
package console

import (
	"sync"

	"github.com/google/uuid"
	"github.com/johan-st/sparql-tui/internal/service"
)

// Phase is the submission state of a session.
type Phase int

const (
	Idle Phase = iota
	Pending
	Displaying
	DisplayingError
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Displaying:
		return "displaying"
	case DisplayingError:
		return "error"
	}
	return "idle"
}

// Connectivity is the last known reachability of the query service.
type Connectivity int

const (
	Unknown Connectivity = iota
	Connected
	Disconnected
)

func (c Connectivity) String() string {
	switch c {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	}
	return "Checking..."
}

// Session is the state owned by one interactive session. Surfaces read it;
// only the Controller and the Prober's caller change it.
type Session struct {
	ID string

	mu           sync.RWMutex
	phase        Phase
	inflight     int
	display      Display
	result       *service.TabularResult
	connectivity Connectivity
}

// NewSession creates an idle session with a fresh ID.
func NewSession() *Session {
	return &Session{ID: uuid.New().String()}
}

// Phase reports Pending while any attempt is in flight, else the phase left
// by the last completed attempt.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inflight > 0 {
		return Pending
	}
	return s.phase
}

// Busy reports whether the busy indicator should be shown.
func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Display returns what the results area currently shows.
func (s *Session) Display() Display {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// Result returns the last successful result, or nil.
func (s *Session) Result() *service.TabularResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Connectivity returns the last known connectivity.
func (s *Session) Connectivity() Connectivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectivity
}

// SetConnected records the outcome of a probe or a completed attempt.
func (s *Session) SetConnected(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.connectivity = Connected
	} else {
		s.connectivity = Disconnected
	}
}

// Clear empties the results area. It does not touch in-flight attempts.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = Display{}
	s.result = nil
	s.phase = Idle
}

func (s *Session) beginPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
}

func (s *Session) endPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
}

func (s *Session) show(d Display, result *service.TabularResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = d
	if d.Kind == ViewError {
		s.phase = DisplayingError
		return
	}
	s.phase = Displaying
	s.result = result
}
