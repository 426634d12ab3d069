package dml

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives submission events from execution paths.
type MetricsCollector interface {
	// RecordSubmit is called after every submission attempt.
	RecordSubmit(path string, op Opcode, st Status, duration time.Duration)
	// RecordFallback is called when the automatic path retries in software.
	RecordFallback(op Opcode, st Status)
}

// NoopMetrics discards all events.
type NoopMetrics struct{}

func (NoopMetrics) RecordSubmit(string, Opcode, Status, time.Duration) {}
func (NoopMetrics) RecordFallback(Opcode, Status)                      {}

// BasicMetrics counts events in memory.
type BasicMetrics struct {
	Submits    atomic.Int64
	Failures   atomic.Int64
	QueueBusy  atomic.Int64
	Fallbacks  atomic.Int64
	TotalNanos atomic.Int64

	opcodes [256]atomic.Int64
}

func (b *BasicMetrics) RecordSubmit(_ string, op Opcode, st Status, duration time.Duration) {
	b.Submits.Add(1)
	b.TotalNanos.Add(duration.Nanoseconds())
	b.opcodes[op].Add(1)
	switch st {
	case StatusOK:
	case StatusQueueBusy:
		b.QueueBusy.Add(1)
		b.Failures.Add(1)
	default:
		b.Failures.Add(1)
	}
}

func (b *BasicMetrics) RecordFallback(Opcode, Status) {
	b.Fallbacks.Add(1)
}

// Submitted returns the number of submissions of op.
func (b *BasicMetrics) Submitted(op Opcode) int64 {
	return b.opcodes[op].Load()
}

// BasicMetricsStats is a snapshot of BasicMetrics.
type BasicMetricsStats struct {
	Submits   int64
	Failures  int64
	QueueBusy int64
	Fallbacks int64
	AvgNanos  int64
}

// Stats returns a snapshot of the counters.
func (b *BasicMetrics) Stats() BasicMetricsStats {
	s := BasicMetricsStats{
		Submits:   b.Submits.Load(),
		Failures:  b.Failures.Load(),
		QueueBusy: b.QueueBusy.Load(),
		Fallbacks: b.Fallbacks.Load(),
	}
	if s.Submits > 0 {
		s.AvgNanos = b.TotalNanos.Load() / s.Submits
	}
	return s
}

// Reset zeroes all counters.
func (b *BasicMetrics) Reset() {
	b.Submits.Store(0)
	b.Failures.Store(0)
	b.QueueBusy.Store(0)
	b.Fallbacks.Store(0)
	b.TotalNanos.Store(0)
	for i := range b.opcodes {
		b.opcodes[i].Store(0)
	}
}
