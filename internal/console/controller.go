package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/johan-st/sparql-tui/internal/service"
)

// User-facing notification texts.
const (
	MsgEmptyQuery    = "Please enter a query"
	MsgQueryFailed   = "Query execution failed"
	MsgConnectFailed = "Failed to connect to server"
)

// Executor performs the network call for one attempt.
type Executor interface {
	Execute(ctx context.Context, query string) (*service.ExecutionResponse, error)
}

// Notifier shows transient messages.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Recorder receives one record per completed attempt.
type Recorder interface {
	RecordAttempt(query string, took time.Duration, rows int, failure string) error
}

// Attempt is a validated submission waiting for its network call.
type Attempt struct {
	Seq     uint64
	Query   string
	Started time.Time
}

// Outcome is the result of running an Attempt.
type Outcome struct {
	Attempt  Attempt
	Response *service.ExecutionResponse
	Err      error
	Took     time.Duration
}

// Controller owns the submission lifecycle of one Session.
//
// Begin and Complete mutate the session and must be called from the
// surface's event sequence. Run only performs the network call and may run
// anywhere. Overlapping attempts are allowed; the last to complete decides
// what is displayed.
type Controller struct {
	session  *Session
	exec     Executor
	notify   Notifier
	recorder Recorder
	logger   *log.Logger
	now      func() time.Time
	seq      uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRecorder records every completed attempt.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the controller's logger.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a controller for session.
func NewController(session *Session, exec Executor, notify Notifier, opts ...ControllerOption) *Controller {
	c := &Controller{
		session: session,
		exec:    exec,
		notify:  notify,
		logger:  log.New(io.Discard),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the controlled session.
func (c *Controller) Session() *Session { return c.session }

// Begin validates raw. Empty input raises MsgEmptyQuery and returns false
// without touching the session. Otherwise the session turns busy and the
// returned Attempt must be passed to Run and then Complete.
func (c *Controller) Begin(raw string) (Attempt, bool) {
	query := strings.TrimSpace(raw)
	if query == "" {
		c.notify.Notify(MsgEmptyQuery)
		return Attempt{}, false
	}

	c.seq++
	c.session.beginPending()
	return Attempt{Seq: c.seq, Query: query, Started: c.now()}, true
}

// Run performs exactly one request for a. A panic in the executor is
// reported as a transport failure.
func (c *Controller) Run(ctx context.Context, a Attempt) (out Outcome) {
	out.Attempt = a
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.Response = nil
			out.Err = &service.TransportError{Op: "query request", Detail: fmt.Sprintf("unexpected failure: %v", r)}
		}
		out.Took = time.Since(start)
	}()

	out.Response, out.Err = c.exec.Execute(ctx, a.Query)
	if out.Err == nil && out.Response == nil {
		out.Err = &service.TransportError{Op: "query request", Detail: "empty response"}
	}
	return out
}

// Complete applies o to the session: one render or one error display, one
// connectivity update, and a notification on failure. The busy state taken
// by Begin is released on every path.
func (c *Controller) Complete(o Outcome) Display {
	defer c.session.endPending()

	var (
		d       Display
		failure string
	)
	switch {
	case o.Err != nil || o.Response == nil:
		err := o.Err
		if err == nil {
			err = &service.TransportError{Op: "query request", Detail: "empty response"}
		}
		failure = err.Error()
		var te *service.TransportError
		if !errors.As(err, &te) {
			c.logger.Warn("query failed without transport error", "err", o.Err)
		}
		c.notify.Notify(MsgConnectFailed)
		d = RenderError(failure)
		c.session.show(d, nil)
		c.session.SetConnected(false)

	case o.Response.Success:
		d = Render(o.Response.Results)
		c.session.show(d, o.Response.Results)
		c.session.SetConnected(true)

	default:
		failure = strings.TrimSpace(o.Response.Error)
		if failure == "" {
			failure = MsgQueryFailed
		}
		c.notify.Notify(failure)
		d = RenderError(failure)
		c.session.show(d, nil)
		c.session.SetConnected(false)
	}

	c.logger.Debug("query completed",
		"seq", o.Attempt.Seq,
		"kind", d.Kind,
		"count", d.Count,
		"took", o.Took)

	if c.recorder != nil {
		rows := 0
		if d.Kind != ViewError {
			rows = o.Response.Results.Len()
		}
		if err := c.recorder.RecordAttempt(o.Attempt.Query, o.Took, rows, failure); err != nil {
			c.logger.Warn("failed to record attempt", "err", err)
		}
	}
	return d
}

// Submit runs the whole lifecycle synchronously. It returns false when the
// input was rejected.
func (c *Controller) Submit(ctx context.Context, raw string) (Display, bool) {
	a, ok := c.Begin(raw)
	if !ok {
		return c.session.Display(), false
	}
	return c.Complete(c.Run(ctx, a)), true
}
