package transport

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/protocol"
)

// LoopbackOptions shape the simulated network between the two ends.
type LoopbackOptions struct {
	Latency  time.Duration // One way
	Jitter   time.Duration // Added uniformly in [0, Jitter)
	LossRate float64       // Probability in [0, 1] that a frame is dropped
	Seed     uint64
}

type pending struct {
	due  time.Time
	seq  uint64
	to   Role
	data []byte
}

// Loopback connects one server end to one client end in memory. Frames are
// encoded with the wire codec on send and decoded on delivery, and nothing
// is delivered until Pump is called with a time at or after its due time.
type Loopback struct {
	opts LoopbackOptions

	mu       sync.Mutex
	rng      *rand.Rand
	now      time.Time
	seq      uint64
	queue    []pending
	handlers [2]func(messages.Message)
	dropped  int
	errors   int
}

// NewLoopback creates a pair whose clock starts at start.
func NewLoopback(opts LoopbackOptions, start time.Time) *Loopback {
	return &Loopback{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		now:  start,
	}
}

// End returns the Link for role.
func (l *Loopback) End(role Role) Link {
	return &loopbackEnd{loop: l, role: role}
}

// Pump advances the link clock to now and delivers every frame that is due,
// in due order. Handlers run on the calling goroutine.
func (l *Loopback) Pump(now time.Time) int {
	l.mu.Lock()
	if now.After(l.now) {
		l.now = now
	}
	sort.SliceStable(l.queue, func(i, j int) bool {
		if l.queue[i].due.Equal(l.queue[j].due) {
			return l.queue[i].seq < l.queue[j].seq
		}
		return l.queue[i].due.Before(l.queue[j].due)
	})
	n := 0
	for n < len(l.queue) && !l.queue[n].due.After(l.now) {
		n++
	}
	due := append([]pending(nil), l.queue[:n]...)
	l.queue = l.queue[n:]
	handlers := l.handlers
	l.mu.Unlock()

	delivered := 0
	for _, p := range due {
		msg, err := protocol.Unmarshal(p.data)
		if err != nil {
			l.mu.Lock()
			l.errors++
			l.mu.Unlock()
			continue
		}
		if h := handlers[p.to]; h != nil {
			h(msg)
			delivered++
		}
	}
	return delivered
}

// InFlight returns the number of frames not yet delivered.
func (l *Loopback) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Dropped returns the number of frames lost to LossRate.
func (l *Loopback) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Loopback) send(from, to Role, msg messages.Message) error {
	if from == to {
		return ErrWrongRole
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("loopback send %s: %w", msg.Kind(), err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opts.LossRate > 0 && l.rng.Float64() < l.opts.LossRate {
		l.dropped++
		return nil
	}
	delay := l.opts.Latency
	if l.opts.Jitter > 0 {
		delay += time.Duration(l.rng.Int64N(int64(l.opts.Jitter)))
	}
	l.seq++
	l.queue = append(l.queue, pending{due: l.now.Add(delay), seq: l.seq, to: to, data: data})
	return nil
}

type loopbackEnd struct {
	loop *Loopback
	role Role
}

func (e *loopbackEnd) Send(to Role, msg messages.Message) error {
	return e.loop.send(e.role, to, msg)
}

func (e *loopbackEnd) OnReceive(fn func(messages.Message)) {
	e.loop.mu.Lock()
	e.loop.handlers[e.role] = fn
	e.loop.mu.Unlock()
}
