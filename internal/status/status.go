// Package status polls the backend and database probes for the shell header.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Prober is the part of the library client that answers health checks.
type Prober interface {
	Health(ctx context.Context) error
	DBStatus(ctx context.Context) error
}

type State string

const (
	StateUnknown State = "unknown"
	StateUp      State = "up"
	StateDown    State = "down"
)

type Probe struct {
	State   State         `json:"state"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

type Snapshot struct {
	Backend   Probe     `json:"backend"`
	Database  Probe     `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
}

func unknownSnapshot() Snapshot {
	return Snapshot{Backend: Probe{State: StateUnknown}, Database: Probe{State: StateUnknown}}
}

type Poller struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	observer func(Snapshot)
}

func NewPoller(prober Prober, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		prober:   prober,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		snap:     unknownSnapshot(),
	}
}

// OnChange registers fn to be called whenever either probe changes state.
func (p *Poller) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()
}

func (p *Poller) Latest() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Run checks immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check runs both probes in parallel and stores the result.
func (p *Poller) Check(ctx context.Context) Snapshot {
	var backend, database Probe
	var g errgroup.Group
	g.Go(func() error {
		backend = p.probe(ctx, p.prober.Health)
		return nil
	})
	g.Go(func() error {
		database = p.probe(ctx, p.prober.DBStatus)
		return nil
	})
	_ = g.Wait()

	next := Snapshot{Backend: backend, Database: database, CheckedAt: p.now()}

	p.mu.Lock()
	prev := p.snap
	p.snap = next
	observer := p.observer
	p.mu.Unlock()

	if prev.Backend.State != next.Backend.State || prev.Database.State != next.Database.State {
		p.logger.Info("connectivity changed",
			"backend", next.Backend.State, "database", next.Database.State)
		if observer != nil {
			observer(next)
		}
	}
	return next
}

func (p *Poller) probe(ctx context.Context, fn func(context.Context) error) Probe {
	start := p.now()
	err := fn(ctx)
	pr := Probe{State: StateUp, Latency: p.now().Sub(start)}
	if err != nil {
		pr.State = StateDown
		pr.Error = err.Error()
	}
	return pr
}
