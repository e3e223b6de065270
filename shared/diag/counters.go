// Package diag collects the synchronization diagnostics of one role:
// message counters, round-trip times and divergence records.
package diag

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter names one monotonically increasing total.
type Counter int

const (
	MessagesSent Counter = iota
	MessagesReceived
	MessagesDropped
	CommandsSent
	CommandsReceived
	CommandsDropped
	SnapshotsStale
	TicksPaused
	HistoryEvicted
	Divergences

	counterCount
)

var counterNames = [counterCount]string{
	MessagesSent:     "messages_sent",
	MessagesReceived: "messages_received",
	MessagesDropped:  "messages_dropped",
	CommandsSent:     "commands_sent",
	CommandsReceived: "commands_received",
	CommandsDropped:  "commands_dropped",
	SnapshotsStale:   "snapshots_stale",
	TicksPaused:      "ticks_paused",
	HistoryEvicted:   "history_evicted",
	Divergences:      "divergences",
}

func (c Counter) String() string {
	if c < 0 || c >= counterCount {
		return "unknown"
	}
	return counterNames[c]
}

// Counters keeps in-process totals and mirrors them to OpenTelemetry
// instruments. Safe for concurrent use.
type Counters struct {
	role    string
	attrs   metric.MeasurementOption
	totals  [counterCount]atomic.Int64
	metrics [counterCount]metric.Int64Counter

	rtt       metric.Float64Histogram
	rttSumUs  atomic.Int64
	rttCount  atomic.Int64
	rttLastUs atomic.Int64
}

// NewCounters registers the instruments for role ("server" or "client")
// on the global meter provider.
func NewCounters(role string) (*Counters, error) {
	m := meter()
	c := &Counters{
		role:  role,
		attrs: metric.WithAttributes(attribute.String("role", role)),
	}

	var err error
	for i := Counter(0); i < counterCount; i++ {
		c.metrics[i], err = m.Int64Counter(
			"fpsync."+i.String(),
			metric.WithUnit("{count}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", i, err)
		}
	}

	c.rtt, err = m.Float64Histogram(
		"fpsync.round_trip",
		metric.WithDescription("Time between issuing a command and its acknowledgement"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create round trip histogram: %w", err)
	}
	return c, nil
}

// Add increments counter by n.
func (c *Counters) Add(counter Counter, n int64) {
	if c == nil || n == 0 {
		return
	}
	c.totals[counter].Add(n)
	c.metrics[counter].Add(context.Background(), n, c.attrs)
}

// Inc increments counter by one.
func (c *Counters) Inc(counter Counter) {
	c.Add(counter, 1)
}

// Get returns the current total of counter.
func (c *Counters) Get(counter Counter) int64 {
	if c == nil {
		return 0
	}
	return c.totals[counter].Load()
}

// ObserveRTT records one round-trip sample.
func (c *Counters) ObserveRTT(d time.Duration) {
	if c == nil || d < 0 {
		return
	}
	c.rttSumUs.Add(d.Microseconds())
	c.rttCount.Add(1)
	c.rttLastUs.Store(d.Microseconds())
	c.rtt.Record(context.Background(), float64(d)/float64(time.Millisecond), c.attrs)
}

// Summary is a point-in-time copy of the totals.
type Summary struct {
	Role       string
	Totals     [counterCount]int64
	RTTSamples int64
	RTTMean    time.Duration
	RTTLast    time.Duration
}

// Summary snapshots the current totals.
func (c *Counters) Summary() Summary {
	s := Summary{Role: c.role}
	for i := range s.Totals {
		s.Totals[i] = c.totals[i].Load()
	}
	s.RTTSamples = c.rttCount.Load()
	if s.RTTSamples > 0 {
		s.RTTMean = time.Duration(c.rttSumUs.Load()/s.RTTSamples) * time.Microsecond
	}
	s.RTTLast = time.Duration(c.rttLastUs.Load()) * time.Microsecond
	return s
}

// Get returns the total of counter in the summary.
func (s Summary) Get(counter Counter) int64 {
	return s.Totals[counter]
}

// MarshalZerologObject lets a Summary be logged with Event.Object.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("role", s.Role)
	for i, v := range s.Totals {
		if v != 0 {
			e.Int64(Counter(i).String(), v)
		}
	}
	if s.RTTSamples > 0 {
		e.Dur("rtt_mean", s.RTTMean).Dur("rtt_last", s.RTTLast)
	}
}
