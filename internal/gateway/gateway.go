// Package gateway serves the query service HTTP API on top of a SPARQL
// protocol endpoint.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/johan-st/sparql-tui/internal/service"
	"github.com/johan-st/sparql-tui/internal/sparql"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestBytes = 1 << 20

// Querier runs a query against a SPARQL endpoint.
type Querier interface {
	Select(ctx context.Context, query string) (*sparql.Response, error)
	URL() string
}

// ExampleSource provides the current example list.
type ExampleSource interface {
	Examples() []service.Example
}

// Options configures a Server.
type Options struct {
	Listen      string
	ShortenURIs bool
	Logger      *log.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	endpoint Querier
	examples ExampleSource
	listen   string
	shorten  bool
	logger   *log.Logger
}

// New creates a gateway.
func New(endpoint Querier, examples ExampleSource, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		endpoint: endpoint,
		examples: examples,
		listen:   opts.Listen,
		shorten:  opts.ShortenURIs,
		logger:   logger,
	}
}

// queryReply is the body of every /api/query response.
type queryReply struct {
	Success bool                   `json:"success"`
	Results *service.TabularResult `json:"results,omitempty"`
	Data    jsoniter.RawMessage    `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details string                 `json:"details,omitempty"`
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Post("/api/query", s.handleQuery)
	r.Get("/api/examples", s.handleExamples)
	r.Get("/healthz", s.handleHealth)

	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting gateway", "addr", ln.Addr().String(), "endpoint", s.endpoint.URL())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down gateway")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req service.ExecutionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryReply{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, queryReply{Error: "No query provided"})
		return
	}

	resp, err := s.endpoint.Select(r.Context(), req.Query)
	if err != nil {
		status, reply := s.failure(err)
		s.logger.Warn("query failed", "status", status, "err", err)
		writeJSON(w, status, reply)
		return
	}

	results := sparql.Tabulate(resp.Results, s.shorten)
	if results.Variables == nil {
		results.Variables = []string{}
	}
	if results.Rows == nil {
		results.Rows = []service.Row{}
	}
	writeJSON(w, http.StatusOK, queryReply{Success: true, Results: results, Data: resp.Raw})
}

// failure maps an endpoint error to a status and reply body.
func (s *Server) failure(err error) (int, queryReply) {
	var statusErr *sparql.StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.Code, queryReply{
			Error:   fmt.Sprintf("SPARQL endpoint error: %d", statusErr.Code),
			Details: statusErr.Body,
		}
	case errors.Is(err, sparql.ErrUnreachable):
		return http.StatusServiceUnavailable, queryReply{
			Error: "Cannot connect to SPARQL endpoint at " + s.endpoint.URL(),
		}
	default:
		return http.StatusInternalServerError, queryReply{Error: err.Error()}
	}
}

func (s *Server) handleExamples(w http.ResponseWriter, _ *http.Request) {
	examples := s.examples.Examples()
	if examples == nil {
		examples = []service.Example{}
	}
	writeJSON(w, http.StatusOK, examples)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
