// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/nexus-tui/internal/apierr"
)

// =============================================================================
// STATE
// =============================================================================

// State is the gateway liveness as last observed.
type State int

const (
	StateChecking State = iota
	StateOnline
	StateDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateDown:
		return "down"
	default:
		return "checking"
	}
}

// Status is a snapshot of the monitor.
type Status struct {
	State       State
	LastChecked time.Time // zero until the first cycle completes
}

// Pinger performs one liveness probe. *gateway.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the monitor timings.
type Config struct {
	// ProbeTimeout bounds each probe (default: 4s)
	ProbeTimeout time.Duration

	// RetryDelay is the wait between a failed first probe and the second (default: 1.5s)
	RetryDelay time.Duration

	// Interval is the time from one cycle start to the next (default: 5m)
	Interval time.Duration
}

// DefaultConfig returns the default monitor timings.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout: 4 * time.Second,
		RetryDelay:   1500 * time.Millisecond,
		Interval:     5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	return c
}

// =============================================================================
// MONITOR
// =============================================================================

// Monitor owns the liveness status. It is safe for concurrent use.
type Monitor struct {
	pinger Pinger
	cfg    Config
	logger *slog.Logger
	notify func(Status)

	mu     sync.RWMutex
	status Status

	// cycleMu keeps cycles strictly one after another.
	cycleMu sync.Mutex

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// NewMonitor creates a monitor in the Checking state.
func NewMonitor(p Pinger, cfg Config) *Monitor {
	return &Monitor{
		pinger:  p,
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		trigger: make(chan struct{}, 1),
	}
}

// WithLogger sets the monitor logger.
func (m *Monitor) WithLogger(l *slog.Logger) *Monitor {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithNotify registers fn to receive every status change. fn runs on the
// monitor goroutine and must not block.
func (m *Monitor) WithNotify(fn func(Status)) *Monitor {
	m.notify = fn
	return m
}

// Config returns the effective timings.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) set(state State, checked bool) {
	m.mu.Lock()
	m.status.State = state
	if checked {
		m.status.LastChecked = time.Now()
	}
	st := m.status
	m.mu.Unlock()

	if m.notify != nil {
		m.notify(st)
	}
}

// RunCycle performs one check cycle and returns the resulting status. If ctx
// is cancelled mid-cycle the status is left at Checking and the context error
// is returned.
func (m *Monitor) RunCycle(ctx context.Context) (Status, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.set(StateChecking, false)

	err := m.probe(ctx)
	if apierr.Reachable(err) {
		m.set(StateOnline, true)
		return m.Status(), nil
	}
	if ctx.Err() != nil {
		return m.Status(), ctx.Err()
	}
	m.logger.Debug("health probe failed, retrying", "err", err, "delay", m.cfg.RetryDelay)

	timer := time.NewTimer(m.cfg.RetryDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return m.Status(), ctx.Err()
	case <-timer.C:
	}

	err = m.probe(ctx)
	if apierr.Reachable(err) {
		m.set(StateOnline, true)
		return m.Status(), nil
	}
	if ctx.Err() != nil {
		return m.Status(), ctx.Err()
	}

	m.logger.Warn("gateway unreachable", "err", err)
	m.set(StateDown, true)
	return m.Status(), nil
}

func (m *Monitor) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	return m.pinger.Ping(ctx)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start launches the monitor goroutine. It returns false if the monitor is
// already running. The goroutine stops when Stop is called or ctx ends.
func (m *Monitor) Start(ctx context.Context) bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx, m.done)
	return true
}

// Stop cancels any pending wait or in-flight probe and waits for the monitor
// goroutine to exit. Calling Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.drainTrigger()
}

func (m *Monitor) drainTrigger() {
	select {
	case <-m.trigger:
	default:
	}
}

// Trigger asks the running monitor for an extra cycle as soon as the current
// one ends. It returns false when the monitor is not running. The cycle runs
// on the monitor goroutine, so Stop cancels it like any scheduled cycle.
func (m *Monitor) Trigger() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return false
	}
	select {
	case m.trigger <- struct{}{}:
	default:
	}
	return true
}

// Running reports whether the monitor goroutine is active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.cancel != nil
}

// loop runs a cycle now and then on every tick. The ticker fires relative to
// cycle starts, so a slow cycle does not push the schedule back.
func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.exited(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.RunCycle(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.trigger:
		}
	}
}

// exited clears the run state when the loop ends on its own, so Running
// reports false and Start works again without a Stop.
func (m *Monitor) exited(done chan struct{}) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.cancel, m.done = nil, nil
	m.drainTrigger()
}
