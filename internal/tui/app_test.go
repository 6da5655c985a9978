package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/service"
)

type fakeService struct {
	mu       sync.Mutex
	resp     *service.ExecutionResponse
	err      error
	pingErr  error
	examples []service.Example
	queries  []string
}

func (f *fakeService) Execute(_ context.Context, q string) (*service.ExecutionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.resp, f.err
}

func (f *fakeService) Ping(context.Context) error { return f.pingErr }

func (f *fakeService) Examples(context.Context) ([]service.Example, error) {
	return f.examples, nil
}

func newTestApp(t *testing.T, svc *fakeService) *App {
	t.Helper()
	app, err := NewApp(svc, Options{UI: config.DefaultConfig().UI, User: "brave-otter-07"}, 100, 40)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// drain runs cmd and every command it batches, returning the messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// send feeds msg to the app and keeps feeding the messages its commands return.
func send(a *App, msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		_, cmd := a.Update(next)
		for _, m := range drain(cmd) {
			switch m.(type) {
			case OutcomeMsg, HistoryLoadedMsg, ExamplesLoadedMsg, ProbedMsg:
				queue = append(queue, m)
			}
		}
	}
}

func keyMsg(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func tableResponse() *service.ExecutionResponse {
	return &service.ExecutionResponse{
		Success: true,
		Results: &service.TabularResult{
			Variables: []string{"student", "courseTitle"},
			Rows: []service.Row{
				{"student": "student1", "courseTitle": "Databases"},
				{"student": "student2"},
			},
		},
	}
}

func TestNewAppStartsWithDefaultQuery(t *testing.T) {
	app := newTestApp(t, &fakeService{})
	if got := app.editor.Value(); got != config.DefaultQuery {
		t.Errorf("editor = %q", got)
	}
	if app.focus != FocusEditor {
		t.Error("editor should be focused")
	}
	if !strings.Contains(app.View(), "Checking...") {
		t.Error("connectivity should start as Checking...")
	}
}

func TestRunShowsTable(t *testing.T) {
	svc := &fakeService{resp: tableResponse()}
	app := newTestApp(t, svc)

	_, cmd := app.Update(keyMsg(tea.KeyCtrlR))
	if !app.session.Busy() {
		t.Fatal("session should be busy while the attempt is in flight")
	}
	for _, m := range drain(cmd) {
		if _, ok := m.(OutcomeMsg); ok {
			send(app, m)
		}
	}

	if app.session.Busy() {
		t.Error("session still busy after completion")
	}
	d := app.session.Display()
	if d.Kind != console.ViewTable || d.Count != "2 results" {
		t.Fatalf("unexpected display: %+v", d)
	}
	if len(app.results.Rows()) != 2 {
		t.Errorf("table has %d rows", len(app.results.Rows()))
	}
	if app.session.Connectivity() != console.Connected {
		t.Error("successful attempt should mark the session connected")
	}
	if len(svc.queries) != 1 || svc.queries[0] != strings.TrimSpace(config.DefaultQuery) {
		t.Errorf("unexpected queries: %q", svc.queries)
	}

	view := app.View()
	for _, want := range []string{"Results · 2 results", "Databases", "Connected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRunEmptyQueryNotifies(t *testing.T) {
	svc := &fakeService{resp: tableResponse()}
	app := newTestApp(t, svc)
	app.editor.SetValue("   \n  ")

	_, cmd := app.Update(keyMsg(tea.KeyCtrlR))
	if cmd != nil {
		t.Error("empty query should not start a request")
	}
	if msg, ok := app.toast.Current(); !ok || msg != console.MsgEmptyQuery {
		t.Errorf("toast = %q, %v", msg, ok)
	}
	if len(svc.queries) != 0 {
		t.Error("service called for empty query")
	}
	if !strings.Contains(app.View(), console.MsgEmptyQuery) {
		t.Error("notification not rendered")
	}
}

func TestRunFailureShowsError(t *testing.T) {
	tests := []struct {
		name  string
		svc   *fakeService
		toast string
	}{
		{"service error", &fakeService{resp: &service.ExecutionResponse{Error: "SPARQL endpoint error: 400"}}, "SPARQL endpoint error: 400"},
		{"transport error", &fakeService{err: &service.TransportError{Op: "query request", Err: errors.New("connection refused")}}, console.MsgConnectFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.svc)
			send(app, keyMsg(tea.KeyCtrlR))

			d := app.session.Display()
			if d.Kind != console.ViewError || d.Count != "Error" {
				t.Fatalf("unexpected display: %+v", d)
			}
			if msg, _ := app.toast.Current(); msg != tt.toast {
				t.Errorf("toast = %q, want %q", msg, tt.toast)
			}
			if app.session.Connectivity() != console.Disconnected {
				t.Error("failure should mark the session disconnected")
			}
			if !strings.Contains(app.View(), "Error") {
				t.Error("error panel not rendered")
			}
		})
	}
}

func TestEmptyResultPanel(t *testing.T) {
	svc := &fakeService{resp: &service.ExecutionResponse{Success: true}}
	app := newTestApp(t, svc)
	send(app, keyMsg(tea.KeyCtrlR))

	view := app.View()
	for _, want := range []string{"No Results", "0 results"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestClearKey(t *testing.T) {
	app := newTestApp(t, &fakeService{resp: tableResponse()})
	send(app, keyMsg(tea.KeyCtrlR))
	send(app, keyMsg(tea.KeyCtrlL))

	if app.session.Display().Kind != console.ViewNone {
		t.Error("results not cleared")
	}
	if len(app.results.Rows()) != 0 {
		t.Error("table not cleared")
	}
}

func TestFormatKey(t *testing.T) {
	app := newTestApp(t, &fakeService{})
	app.editor.SetValue("select ?s where { ?s ?p ?o }")
	send(app, keyMsg(tea.KeyCtrlF))

	if got := app.editor.Value(); !strings.Contains(got, "{\n") {
		t.Errorf("query not reformatted: %q", got)
	}
}

func TestColumnScrolling(t *testing.T) {
	vars := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	row := service.Row{}
	for _, v := range vars {
		row[v] = strings.Repeat(v, 3)
	}
	svc := &fakeService{resp: &service.ExecutionResponse{
		Success: true,
		Results: &service.TabularResult{Variables: vars, Rows: []service.Row{row}},
	}}
	app := newTestApp(t, svc)
	send(app, tea.WindowSizeMsg{Width: 60, Height: 30})
	send(app, keyMsg(tea.KeyCtrlR))

	if app.visibleCols >= len(vars) {
		t.Fatalf("expected horizontal scrolling, %d columns visible", app.visibleCols)
	}
	if !strings.Contains(app.columnIndicator(), "cols 1-") {
		t.Errorf("indicator = %q", app.columnIndicator())
	}

	send(app, keyMsg(tea.KeyTab))
	if app.focus != FocusResults {
		t.Fatal("tab should focus results")
	}
	send(app, keyMsg(tea.KeyRight))
	if app.colOffset != 1 {
		t.Errorf("colOffset = %d after right", app.colOffset)
	}
	if got := app.results.Columns()[0].Title; got != "bravo" {
		t.Errorf("first visible column = %q", got)
	}
	send(app, keyMsg(tea.KeyLeft))
	send(app, keyMsg(tea.KeyLeft))
	if app.colOffset != 0 {
		t.Errorf("colOffset = %d after left", app.colOffset)
	}
}

func TestCommandLine(t *testing.T) {
	app := newTestApp(t, &fakeService{resp: tableResponse()})
	send(app, keyMsg(tea.KeyCtrlR))
	send(app, keyMsg(tea.KeyTab))

	send(app, runes(":"))
	if !app.commandActive {
		t.Fatal(": should open the command line")
	}
	send(app, runes("clear"))
	send(app, keyMsg(tea.KeyEnter))

	if app.commandActive {
		t.Error("command line still open")
	}
	if app.session.Display().Kind != console.ViewNone {
		t.Error("clear command did not clear")
	}
}

func TestExecCommand(t *testing.T) {
	svc := &fakeService{
		resp:     tableResponse(),
		examples: []service.Example{{Name: "One", Query: "SELECT ?one {}"}, {Name: "Two", Query: "SELECT ?two {}"}},
	}
	app := newTestApp(t, svc)
	send(app, ExamplesLoadedMsg{Examples: svc.examples})

	app.execCommand("example 2")
	if app.editor.Value() != "SELECT ?two {}" {
		t.Errorf("example 2 loaded %q", app.editor.Value())
	}

	app.execCommand(`load "SELECT ?x\nWHERE { ?x ?p \"q\" }"`)
	if want := "SELECT ?x\nWHERE { ?x ?p \"q\" }"; app.editor.Value() != want {
		t.Errorf("load loaded %q", app.editor.Value())
	}

	app.execCommand("example 9")
	if msg, _ := app.toast.Current(); msg != "No example 9" {
		t.Errorf("toast = %q", msg)
	}

	app.execCommand("bogus")
	if msg, _ := app.toast.Current(); msg != "Unknown command: bogus" {
		t.Errorf("toast = %q", msg)
	}

	app.execCommand("help")
	if app.modal != modalHelp || !strings.Contains(app.View(), "Commands") {
		t.Error("help modal not shown")
	}

	_, cmd := app.execCommand("quit")
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit should quit")
	}
}

func TestExamplesModalLoadsQuery(t *testing.T) {
	query := "PREFIX uni: <http://example.org/university#>\nSELECT ?s WHERE { ?s uni:name \"Ann \\\"A\\\"\" }"
	svc := &fakeService{examples: []service.Example{{Name: "Quoted", Description: "has quotes", Query: query}}}
	app := newTestApp(t, svc)
	send(app, ExamplesLoadedMsg{Examples: svc.examples})

	send(app, keyMsg(tea.KeyCtrlE))
	if app.modal != modalExamples {
		t.Fatal("examples modal not open")
	}
	view := app.View()
	if !strings.Contains(view, "1. Quoted") || !strings.Contains(view, "...") {
		t.Error("examples modal should list the example with a snippet")
	}

	send(app, keyMsg(tea.KeyEnter))
	if app.modal != modalNone {
		t.Error("modal should close after loading")
	}
	if app.editor.Value() != query {
		t.Errorf("editor = %q", app.editor.Value())
	}
}

func TestHistoryRecall(t *testing.T) {
	svc := &fakeService{resp: tableResponse()}
	app := newTestApp(t, svc)

	for _, q := range []string{"SELECT ?a {}", "SELECT ?b {}"} {
		app.editor.SetValue(q)
		send(app, keyMsg(tea.KeyCtrlR))
	}
	app.editor.SetValue("draft")

	send(app, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	if app.editor.Value() != "SELECT ?b {}" {
		t.Errorf("first recall = %q", app.editor.Value())
	}
	send(app, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	if app.editor.Value() != "SELECT ?a {}" {
		t.Errorf("second recall = %q", app.editor.Value())
	}
	send(app, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	if app.editor.Value() != "SELECT ?a {}" {
		t.Errorf("recall past the oldest = %q", app.editor.Value())
	}
	send(app, tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	send(app, tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	if app.editor.Value() != "draft" {
		t.Errorf("draft not restored: %q", app.editor.Value())
	}
}

func TestHistoryModal(t *testing.T) {
	app := newTestApp(t, &fakeService{resp: tableResponse()})
	app.editor.SetValue("SELECT ?h {}")
	send(app, keyMsg(tea.KeyCtrlR))
	app.editor.SetValue("")

	send(app, keyMsg(tea.KeyCtrlO))
	if app.modal != modalHistory {
		t.Fatal("history modal not open")
	}
	if !strings.Contains(app.View(), "SELECT ?h {}") {
		t.Error("history modal should list the query")
	}
	send(app, keyMsg(tea.KeyEnter))
	if app.editor.Value() != "SELECT ?h {}" {
		t.Errorf("editor = %q", app.editor.Value())
	}
}

func TestProbe(t *testing.T) {
	app := newTestApp(t, &fakeService{pingErr: errors.New("down")})
	send(app, ProbedMsg{Connectivity: app.prober.Probe(context.Background())})
	if app.session.Connectivity() != console.Disconnected {
		t.Error("failed probe should mark the session disconnected")
	}
	if _, ok := app.toast.Current(); ok {
		t.Error("startup probe should not notify")
	}

	send(app, ProbedMsg{Connectivity: console.Connected, Manual: true})
	if msg, _ := app.toast.Current(); msg != "Server is reachable" {
		t.Errorf("toast = %q", msg)
	}
}

func TestToastExpiry(t *testing.T) {
	app := newTestApp(t, &fakeService{})
	app.toast.Notify("first")
	stale := app.toast.Generation()
	app.toast.Notify("second")

	send(app, ToastExpiredMsg{Gen: stale})
	if msg, ok := app.toast.Current(); !ok || msg != "second" {
		t.Errorf("stale expiry hid the newer message: %q, %v", msg, ok)
	}

	send(app, ToastExpiredMsg{Gen: app.toast.Generation()})
	if _, ok := app.toast.Current(); ok {
		t.Error("current expiry should hide the message")
	}
}

func TestQuitKeys(t *testing.T) {
	app := newTestApp(t, &fakeService{})

	// q types into the editor
	send(app, runes("q"))
	if !strings.HasSuffix(app.editor.Value(), "q") {
		t.Error("q should be typed in the editor")
	}

	send(app, keyMsg(tea.KeyTab))
	_, cmd := app.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q in results pane should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestTerminalTooSmall(t *testing.T) {
	app := newTestApp(t, &fakeService{})
	send(app, tea.WindowSizeMsg{Width: 30, Height: 8})
	if !strings.Contains(app.View(), "Terminal too small") {
		t.Error("expected size warning")
	}
}
