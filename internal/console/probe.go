package console

import (
	"context"
	"time"
)

// Pinger is the lightweight reachability check of the query service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober performs the one-shot connectivity check.
type Prober struct {
	pinger  Pinger
	timeout time.Duration
}

// NewProber creates a prober. A positive timeout bounds each probe.
func NewProber(p Pinger, timeout time.Duration) *Prober {
	return &Prober{pinger: p, timeout: timeout}
}

// Probe returns Connected iff the ping succeeds. It does not retry.
func (p *Prober) Probe(ctx context.Context) Connectivity {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.pinger.Ping(ctx); err != nil {
		return Disconnected
	}
	return Connected
}

// ProbeSession probes and records the result on s.
func (p *Prober) ProbeSession(ctx context.Context, s *Session) Connectivity {
	c := p.Probe(ctx)
	s.SetConnected(c == Connected)
	return c
}
