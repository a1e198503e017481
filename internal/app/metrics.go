package app

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/dshills/capstyle/internal/renderer/highlight"
)

// Metrics tracks highlight pass outcomes and timing.
type Metrics struct {
	passCount   atomic.Uint64
	passTotalNs atomic.Int64
	passMinNs   atomic.Int64
	passMaxNs   atomic.Int64
	lastPassNs  atomic.Int64

	cancelled   atomic.Uint64
	deallocated atomic.Uint64
	panics      atomic.Uint64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

// RecordPass records a completed pass.
func (m *Metrics) RecordPass(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.passCount.Add(1)
	m.passTotalNs.Add(ns)
	m.lastPassNs.Store(ns)

	for {
		old := m.passMinNs.Load()
		if ns >= old || m.passMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.passMaxNs.Load()
		if ns <= old || m.passMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordOutcome records how an asynchronous pass ended.
func (m *Metrics) RecordOutcome(err error, duration time.Duration) {
	switch {
	case err == nil:
		m.RecordPass(duration)
	case errors.Is(err, highlight.ErrDeallocated):
		m.deallocated.Add(1)
	case errors.Is(err, highlight.ErrCancelled):
		m.cancelled.Add(1)
	case errors.Is(err, highlight.ErrFailed):
		m.panics.Add(1)
	}
}

// RecordPanic records a panic recovered from a worker outside a pass.
func (m *Metrics) RecordPanic() {
	m.panics.Add(1)
}

// Timer returns a function that records a pass when called.
func (m *Metrics) Timer() func() {
	start := time.Now()
	return func() {
		m.RecordPass(time.Since(start))
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.passCount.Load()

	var avg int64
	if count > 0 {
		avg = m.passTotalNs.Load() / int64(count)
	}

	minNs := m.passMinNs.Load()
	if minNs == 1<<63-1 {
		minNs = 0
	}

	return MetricsSnapshot{
		Uptime:      time.Since(time.Unix(0, m.startTime.Load())),
		Passes:      count,
		AvgPassNs:   avg,
		MinPassNs:   minNs,
		MaxPassNs:   m.passMaxNs.Load(),
		LastPassNs:  m.lastPassNs.Load(),
		Cancelled:   m.cancelled.Load(),
		Deallocated: m.deallocated.Load(),
		Panics:      m.panics.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.passCount.Store(0)
	m.passTotalNs.Store(0)
	m.passMinNs.Store(1<<63 - 1)
	m.passMaxNs.Store(0)
	m.lastPassNs.Store(0)
	m.cancelled.Store(0)
	m.deallocated.Store(0)
	m.panics.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime      time.Duration
	Passes      uint64
	AvgPassNs   int64
	MinPassNs   int64
	MaxPassNs   int64
	LastPassNs  int64
	Cancelled   uint64
	Deallocated uint64
	Panics      uint64
}
