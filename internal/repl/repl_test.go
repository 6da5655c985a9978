package repl

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/console"
	"github.com/johan-st/sparql-tui/internal/service"
	"github.com/johan-st/sparql-tui/internal/sparql"
	"github.com/johan-st/sparql-tui/internal/testutil"
)

type testREPL struct {
	*REPL
	fake   *testutil.FakeService
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestREPL(t *testing.T) *testREPL {
	t.Helper()

	fake := testutil.NewFakeService(t)
	client, err := service.NewClient(fake.Config())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var stdout, stderr bytes.Buffer
	r, err := New(client, Options{
		UI:         config.UIConfig{SnippetLength: 40, HistoryLimit: 10},
		ServiceURL: fake.URL,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	if err != nil {
		t.Fatalf("failed to create REPL: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	return &testREPL{REPL: r, fake: fake, stdout: &stdout, stderr: &stderr}
}

func (r *testREPL) feed(lines ...string) bool {
	quit := false
	for _, line := range lines {
		quit = r.HandleLine(context.Background(), line)
	}
	return quit
}

var enrollments = &service.TabularResult{
	Variables: []string{"student", "course"},
	Rows: []service.Row{
		{"student": "Alice Johnson", "course": "Databases"},
		{"student": "Bob Smith", "course": "Semantic Web"},
	},
}

func TestBlankLineSubmitsBuffer(t *testing.T) {
	r := newTestREPL(t)
	r.fake.RespondResult(enrollments)

	r.feed("SELECT ?student ?course", "WHERE { ?s ?p ?o }")
	if r.Prompt() != continuePrompt {
		t.Errorf("expected continuation prompt, got %q", r.Prompt())
	}
	if got := r.fake.Queries(); len(got) != 0 {
		t.Fatalf("query sent before submission: %q", got)
	}

	r.feed("")

	got := r.fake.Queries()
	if len(got) != 1 || got[0] != "SELECT ?student ?course\nWHERE { ?s ?p ?o }" {
		t.Fatalf("unexpected queries: %q", got)
	}
	if !strings.Contains(r.stdout.String(), "Alice Johnson") || !strings.Contains(r.stdout.String(), "(2 results)") {
		t.Errorf("expected results table, got:\n%s", r.stdout.String())
	}
	if r.Prompt() != prompt {
		t.Errorf("prompt should reset after submission, got %q", r.Prompt())
	}
	if r.Session().Connectivity() != console.Connected {
		t.Errorf("expected connected session, got %v", r.Session().Connectivity())
	}
}

func TestTrailingSemicolonsSubmit(t *testing.T) {
	r := newTestREPL(t)

	r.feed("SELECT * WHERE { ?s ?p ?o } LIMIT 1;;  ")

	got := r.fake.Queries()
	if len(got) != 1 || got[0] != "SELECT * WHERE { ?s ?p ?o } LIMIT 1" {
		t.Fatalf("unexpected queries: %q", got)
	}
}

func TestBlankLinesWithoutBufferAreIgnored(t *testing.T) {
	r := newTestREPL(t)

	r.feed("", "   ", "")

	if got := r.fake.Queries(); len(got) != 0 {
		t.Errorf("unexpected queries: %q", got)
	}
	if r.stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", r.stderr.String())
	}
}

func TestEmptySubmissionIsRejected(t *testing.T) {
	r := newTestREPL(t)

	r.feed(";;")

	if got := r.fake.Queries(); len(got) != 0 {
		t.Errorf("unexpected queries: %q", got)
	}
	if !strings.Contains(r.stderr.String(), console.MsgEmptyQuery) {
		t.Errorf("expected %q, got %q", console.MsgEmptyQuery, r.stderr.String())
	}
}

func TestTripleTerminatorIsNotACommand(t *testing.T) {
	r := newTestREPL(t)

	r.feed("SELECT * WHERE {", "  ?s ?p ?o", ". ?s a ?type }")
	if !strings.HasSuffix(r.Buffer(), ". ?s a ?type }") {
		t.Errorf("line starting with a dot should join the buffer, got %q", r.Buffer())
	}

	r.feed(".clear")
	if r.Buffer() != "" {
		t.Errorf("known command should still run inside a query, buffer=%q", r.Buffer())
	}
}

func TestFailureIsReported(t *testing.T) {
	r := newTestREPL(t)
	r.fake.Respond(testutil.JSONReply(http.StatusBadRequest, service.ExecutionResponse{Error: "Parse error at line 1"}))

	r.feed("SELEC nonsense;;")

	if !strings.Contains(r.stderr.String(), "Error: Parse error at line 1") {
		t.Errorf("expected service error, got %q", r.stderr.String())
	}
	if r.Session().Connectivity() != console.Disconnected {
		t.Errorf("failed attempt should mark the session disconnected")
	}
	if r.Session().Phase() != console.DisplayingError {
		t.Errorf("expected error phase, got %v", r.Session().Phase())
	}
}

func TestExamplesAndLoad(t *testing.T) {
	r := newTestREPL(t)
	examples := []service.Example{
		{Name: "All Triples", Description: "Everything", Query: "SELECT * WHERE { ?s ?p ?o } LIMIT 10"},
		{Name: "Courses", Query: "SELECT ?c WHERE { ?c a uni:Course }"},
	}
	r.fake.SetExamples(testutil.JSONReply(http.StatusOK, examples))

	r.feed(".examples")
	out := r.stdout.String()
	if !strings.Contains(out, "1. All Triples") || !strings.Contains(out, "2. Courses") || !strings.Contains(out, "Everything") {
		t.Errorf("unexpected example list:\n%s", out)
	}

	r.feed(".load courses")
	if r.Buffer() != examples[1].Query {
		t.Fatalf("buffer = %q, want %q", r.Buffer(), examples[1].Query)
	}
	if got := r.fake.Queries(); len(got) != 0 {
		t.Fatalf(".load must not run the query, got %q", got)
	}

	r.feed("")
	if got := r.fake.Queries(); len(got) != 1 || got[0] != examples[1].Query {
		t.Errorf("unexpected queries: %q", got)
	}

	r.stderr.Reset()
	r.feed(".load 9")
	if !strings.Contains(r.stderr.String(), "No example 9") {
		t.Errorf("expected missing example, got %q", r.stderr.String())
	}

	r.stderr.Reset()
	r.feed(".load")
	if !strings.Contains(r.stderr.String(), "Usage: .load") {
		t.Errorf("expected usage, got %q", r.stderr.String())
	}
}

func TestFormatCommand(t *testing.T) {
	r := newTestREPL(t)
	q := "select ?s where { ?s ?p ?o . }"

	r.feed(".format")
	if !strings.Contains(r.stderr.String(), console.MsgEmptyQuery) {
		t.Errorf("expected empty-query notice, got %q", r.stderr.String())
	}

	r.feed(q + ";;")
	r.feed(".format")
	if r.Buffer() != sparql.Format(q) {
		t.Errorf("buffer = %q, want %q", r.Buffer(), sparql.Format(q))
	}
}

func TestHistoryCommand(t *testing.T) {
	r := newTestREPL(t)

	r.feed(".history")
	if !strings.Contains(r.stdout.String(), "No queries yet.") {
		t.Errorf("expected empty history, got %q", r.stdout.String())
	}

	r.fake.RespondResult(enrollments)
	r.feed("SELECT ?student WHERE { ?student a uni:Student };;")
	r.fake.Respond(testutil.JSONReply(http.StatusOK, service.ExecutionResponse{Error: "boom"}))
	r.feed("ASK { ?s ?p ?o };;")

	r.stdout.Reset()
	r.feed(".history")
	out := r.stdout.String()
	for _, want := range []string{"ASK { ?s ?p ?o }", "failed", "SELECT ?student", "2 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in history, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "ASK") > strings.Index(out, "SELECT") {
		t.Errorf("history should list newest first:\n%s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	r := newTestREPL(t)

	r.feed(".status")
	if !strings.Contains(r.stdout.String(), "Status: Connected") {
		t.Errorf("unexpected status: %q", r.stdout.String())
	}

	r.fake.SetExamples(testutil.Reply{Status: http.StatusServiceUnavailable, Body: "down"})
	r.feed(".status")
	if !strings.Contains(r.stdout.String(), "Status: Disconnected") {
		t.Errorf("unexpected status: %q", r.stdout.String())
	}
}

func TestClearResetsSession(t *testing.T) {
	r := newTestREPL(t)
	r.fake.RespondResult(enrollments)

	r.feed("SELECT * WHERE { ?s ?p ?o };;")
	r.feed(".clear")

	if r.Session().Result() != nil {
		t.Error("clear should drop the last result")
	}
	if r.Session().Phase() != console.Idle {
		t.Errorf("expected idle phase, got %v", r.Session().Phase())
	}
}

func TestQuitAndUnknownCommands(t *testing.T) {
	r := newTestREPL(t)

	if r.feed(".help") {
		t.Error(".help should not quit")
	}
	if !strings.Contains(r.stdout.String(), ".history") {
		t.Errorf("help should list commands, got %q", r.stdout.String())
	}

	if r.feed(".frobnicate") {
		t.Error("unknown command should not quit")
	}
	if !strings.Contains(r.stderr.String(), "Unknown command: .frobnicate") {
		t.Errorf("unexpected stderr: %q", r.stderr.String())
	}

	if !r.feed(".quit") {
		t.Error(".quit should end the session")
	}
	if !r.feed(".EXIT") {
		t.Error(".exit should end the session")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	fake := testutil.NewFakeService(t)
	client, err := service.NewClient(fake.Config())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(client, Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
