// Package testutil provides test utilities for sparql-tui tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/johan-st/sparql-tui/internal/config"
	"github.com/johan-st/sparql-tui/internal/service"
)

// FindFixturesDir locates the testdata/fixtures directory.
func FindFixturesDir(t *testing.T) string {
	t.Helper()

	// Walk up from current directory looking for testdata
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for i := 0; i < 10; i++ {
		fixturesDir := filepath.Join(dir, "testdata", "fixtures")
		if info, err := os.Stat(fixturesDir); err == nil && info.IsDir() {
			return fixturesDir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatalf("could not find testdata/fixtures directory")
	return ""
}

// Fixture reads a file from testdata/fixtures.
func Fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(FindFixturesDir(t), name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

// CopyFixture copies a fixture into dir and returns the new path.
func CopyFixture(t *testing.T, name, dir string) string {
	t.Helper()
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, Fixture(t, name), 0o644); err != nil {
		t.Fatalf("failed to copy fixture %s: %v", name, err)
	}
	return dst
}

// Reply is a scripted HTTP response.
type Reply struct {
	Status int
	Body   string
}

// JSONReply encodes v as the body of a reply.
func JSONReply(status int, v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Status: status, Body: string(data)}
}

// FakeService is a scripted query service speaking the /api/query and
// /api/examples contract.
type FakeService struct {
	*httptest.Server

	mu       sync.Mutex
	queries  []string
	reply    Reply
	examples Reply
}

// NewFakeService starts a fake service that answers every query with an
// empty successful result and lists no examples.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	f := &FakeService{
		reply:    JSONReply(http.StatusOK, service.ExecutionResponse{Success: true}),
		examples: Reply{Status: http.StatusOK, Body: "[]"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req service.ExecutionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.queries = append(f.queries, req.Query)
		reply := f.reply
		f.mu.Unlock()

		write(w, reply)
	})
	mux.HandleFunc("/api/examples", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		reply := f.examples
		f.mu.Unlock()
		write(w, reply)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func write(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = io.WriteString(w, reply.Body)
}

// Respond sets the reply for subsequent queries.
func (f *FakeService) Respond(reply Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// RespondResult answers subsequent queries with a successful result.
func (f *FakeService) RespondResult(result *service.TabularResult) {
	f.Respond(JSONReply(http.StatusOK, service.ExecutionResponse{Success: true, Results: result}))
}

// SetExamples sets the example list reply.
func (f *FakeService) SetExamples(reply Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.examples = reply
}

// Queries returns the queries received so far.
func (f *FakeService) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Config returns a service configuration pointing at the fake.
func (f *FakeService) Config() config.ServiceConfig {
	return config.ServiceConfig{
		URL:          f.URL,
		QueryPath:    "/api/query",
		ExamplesPath: "/api/examples",
		Timeout:      "5s",
	}
}

// FakeEndpoint is a scripted SPARQL protocol endpoint.
type FakeEndpoint struct {
	*httptest.Server

	mu      sync.Mutex
	forms   []url.Values
	accepts []string
	reply   Reply
}

// NewFakeEndpoint starts an endpoint that answers every query with reply.
func NewFakeEndpoint(t *testing.T, reply Reply) *FakeEndpoint {
	t.Helper()

	f := &FakeEndpoint{reply: reply}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.forms = append(f.forms, r.PostForm)
		f.accepts = append(f.accepts, r.Header.Get("Accept"))
		reply := f.reply
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.WriteHeader(reply.Status)
		_, _ = io.Copy(w, bytes.NewBufferString(reply.Body))
	}))
	t.Cleanup(f.Close)
	return f
}

// Respond sets the reply for subsequent requests.
func (f *FakeEndpoint) Respond(reply Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// Queries returns the query form values received so far.
func (f *FakeEndpoint) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.forms))
	for i, form := range f.forms {
		out[i] = form.Get("query")
	}
	return out
}

// Accepts returns the Accept headers received so far.
func (f *FakeEndpoint) Accepts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.accepts...)
}

// OutputCapture is a helper for capturing CLI output.
type OutputCapture struct {
	Out bytes.Buffer
	Err bytes.Buffer
}

// Stdout returns captured stdout as string.
func (c *OutputCapture) Stdout() string {
	return c.Out.String()
}

// Stderr returns captured stderr as string.
func (c *OutputCapture) Stderr() string {
	return c.Err.String()
}
