package tui

import (
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/history"
	"github.com/johan-st/sparql-tui/internal/service"
)

// Messages for async operations

// OutcomeMsg is sent when a query attempt's network call returns.
type OutcomeMsg struct {
	Outcome console.Outcome
}

// ProbedMsg is sent when the connectivity probe finishes.
type ProbedMsg struct {
	Connectivity console.Connectivity
	Manual       bool
}

// ExamplesLoadedMsg is sent when the example list is fetched.
type ExamplesLoadedMsg struct {
	Examples []service.Example
	Error    error
}

// HistoryLoadedMsg is sent when the session's attempt log is read.
type HistoryLoadedMsg struct {
	Entries []*history.Entry
	Queries []string
	Error   error
}

// ToastExpiredMsg is sent when a notification's timer fires.
type ToastExpiredMsg struct {
	Gen uint64
}
