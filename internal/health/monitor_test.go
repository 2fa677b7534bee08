// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// scriptedPinger returns results in order, then repeats the last one.
// With hang set every probe blocks until its context ends.
type scriptedPinger struct {
	mu      sync.Mutex
	results []error
	hang    bool
	calls   atomic.Int32
}

func (p *scriptedPinger) Ping(ctx context.Context) error {
	n := int(p.calls.Add(1)) - 1
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil
	}
	if n >= len(p.results) {
		n = len(p.results) - 1
	}
	return p.results[n]
}

var errDown = errors.New("connection refused")

func fastConfig() Config {
	return Config{
		ProbeTimeout: 50 * time.Millisecond,
		RetryDelay:   30 * time.Millisecond,
		Interval:     time.Hour,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.Interval)

	m := NewMonitor(&scriptedPinger{}, Config{RetryDelay: time.Second})
	assert.Equal(t, time.Second, m.Config().RetryDelay)
	assert.Equal(t, 4*time.Second, m.Config().ProbeTimeout)
}

func TestInitialStatusIsChecking(t *testing.T) {
	m := NewMonitor(&scriptedPinger{}, fastConfig())
	st := m.Status()
	assert.Equal(t, StateChecking, st.State)
	assert.True(t, st.LastChecked.IsZero())
}

func TestRunCycle_FirstProbeSucceeds(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	m := NewMonitor(p, fastConfig())

	st, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOnline, st.State)
	assert.False(t, st.LastChecked.IsZero())
	assert.EqualValues(t, 1, p.calls.Load(), "second probe not invoked")
}

func TestRunCycle_RetrySucceeds(t *testing.T) {
	p := &scriptedPinger{results: []error{errDown, nil}}
	m := NewMonitor(p, fastConfig())

	start := time.Now()
	st, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOnline, st.State)
	assert.EqualValues(t, 2, p.calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunCycle_BothFail(t *testing.T) {
	p := &scriptedPinger{results: []error{errDown}}
	cfg := fastConfig()
	m := NewMonitor(p, cfg)

	start := time.Now()
	st, err := m.RunCycle(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, StateDown, st.State)
	assert.False(t, st.LastChecked.IsZero())
	assert.EqualValues(t, 2, p.calls.Load())
	assert.GreaterOrEqual(t, elapsed, cfg.RetryDelay)
}

func TestRunCycle_HungProbesAreBounded(t *testing.T) {
	p := &scriptedPinger{hang: true}
	cfg := fastConfig()
	m := NewMonitor(p, cfg)

	start := time.Now()
	st, err := m.RunCycle(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, StateDown, st.State)
	assert.GreaterOrEqual(t, elapsed, cfg.RetryDelay+2*cfg.ProbeTimeout)
	assert.Less(t, elapsed, cfg.RetryDelay+2*cfg.ProbeTimeout+time.Second)
}

func TestRunCycle_CancelledLeavesChecking(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	m := NewMonitor(p, fastConfig())
	_, err := m.RunCycle(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.hang = true

	st, err := m.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateChecking, st.State)
}

func TestNotifySequence(t *testing.T) {
	var mu sync.Mutex
	var states []State
	p := &scriptedPinger{results: []error{errDown, errDown, nil}}
	m := NewMonitor(p, fastConfig()).WithNotify(func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	_, _ = m.RunCycle(context.Background())
	_, _ = m.RunCycle(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateChecking, StateDown, StateChecking, StateOnline}, states)
}

func TestStartRunsImmediatelyAndPeriodically(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	cfg := fastConfig()
	cfg.Interval = 20 * time.Millisecond
	m := NewMonitor(p, cfg)

	require.True(t, m.Start(context.Background()))
	assert.False(t, m.Start(context.Background()), "second start is a no-op")
	assert.True(t, m.Running())

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	assert.False(t, m.Running())

	after := p.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, p.calls.Load(), "no probes after Stop")
	assert.Equal(t, StateOnline, m.Status().State)
}

func TestStopCancelsInFlightProbe(t *testing.T) {
	p := &scriptedPinger{hang: true}
	cfg := fastConfig()
	cfg.ProbeTimeout = time.Hour
	m := NewMonitor(p, cfg)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight probe")
	}
	m.Stop()
}

func TestStopDuringRetryDelay(t *testing.T) {
	p := &scriptedPinger{results: []error{errDown}}
	cfg := fastConfig()
	cfg.RetryDelay = time.Hour
	m := NewMonitor(p, cfg)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	m.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestParentContextStopsLoop(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	m := NewMonitor(p, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	require.Eventually(t, func() bool { return m.Status().State == StateOnline }, time.Second, time.Millisecond)
	cancel()

	require.Eventually(t, func() bool { return !m.Running() }, time.Second, time.Millisecond)
	assert.False(t, m.Trigger(), "no trigger after the loop exited")

	// A monitor whose parent ended can be started again without Stop.
	require.True(t, m.Start(context.Background()))
	assert.True(t, m.Running())
	m.Stop()
	assert.False(t, m.Running())
}

func TestTriggerRunsCycleOnMonitorGoroutine(t *testing.T) {
	p := &scriptedPinger{results: []error{nil}}
	m := NewMonitor(p, fastConfig())

	assert.False(t, m.Trigger(), "stopped monitor ignores triggers")
	assert.Zero(t, p.calls.Load())

	require.True(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	// The interval is an hour, so only a trigger can cause the second probe.
	require.True(t, m.Trigger())
	require.Eventually(t, func() bool { return p.calls.Load() == 2 }, time.Second, time.Millisecond)
	m.Stop()
}

func TestNoNotifyAfterStopWithPendingTrigger(t *testing.T) {
	p := &scriptedPinger{hang: true}
	cfg := fastConfig()
	cfg.ProbeTimeout = time.Hour

	var stopped atomic.Bool
	var late atomic.Int32
	m := NewMonitor(p, cfg).WithNotify(func(Status) {
		if stopped.Load() {
			late.Add(1)
		}
	})

	m.Start(context.Background())
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
	m.Trigger()

	m.Stop()
	stopped.Store(true)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, late.Load(), "notify ran after Stop returned")
	assert.EqualValues(t, 1, p.calls.Load(), "the pending trigger never ran")
}

func TestSharedClientProbeIgnoresChatLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/chat" {
			_, _ = w.Write([]byte(`{"message":"hi","model":"m"}`))
			return
		}
		_, _ = w.Write([]byte(`{"models":{}}`))
	}))
	t.Cleanup(srv.Close)

	client := gateway.NewClient(&gateway.Config{BaseURL: srv.URL, RequestsPerSecond: 0.2, Burst: 1})
	_, err := client.Chat(context.Background(), &gateway.ChatRequest{Model: "m"})
	require.NoError(t, err)

	m := NewMonitor(client, Config{ProbeTimeout: time.Second, RetryDelay: 10 * time.Millisecond, Interval: time.Hour})
	st, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOnline, st.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "online", StateOnline.String())
	assert.Equal(t, "down", StateDown.String())
}
