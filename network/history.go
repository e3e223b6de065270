package network

import (
	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/movement"
	"github.com/automoto/fpsync/shared/physics"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// HistoryEntry is a command the client issued together with the state it
// was predicted from.
type HistoryEntry struct {
	Command        messages.Command
	Before         movement.State
	FlagsBefore    physics.ContactFlags
	PredictedAfter mgl32.Vec3
}

// History is the bounded, timestamp-ordered log of unacknowledged commands.
// When full, the oldest entry is evicted to make room.
type History struct {
	capacity int
	entries  *orderedmap.OrderedMap[float64, HistoryEntry]
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		entries:  orderedmap.NewOrderedMap[float64, HistoryEntry](),
	}
}

// Push appends e and returns how many old entries were evicted. Timestamps
// must arrive in increasing order.
func (h *History) Push(e HistoryEntry) int {
	evicted := 0
	for h.entries.Len() >= h.capacity {
		h.entries.Delete(h.entries.Front().Key)
		evicted++
	}
	h.entries.Set(e.Command.Timestamp, e)
	return evicted
}

func (h *History) Len() int {
	return h.entries.Len()
}

func (h *History) Capacity() int {
	return h.capacity
}

// Oldest returns the entry with the smallest timestamp.
func (h *History) Oldest() (HistoryEntry, bool) {
	el := h.entries.Front()
	if el == nil {
		return HistoryEntry{}, false
	}
	return el.Value, true
}

// Get returns the entry issued at exactly ts.
func (h *History) Get(ts float64) (HistoryEntry, bool) {
	return h.entries.Get(ts)
}

// EvictThrough removes every entry with a timestamp at or before ts and
// returns how many were removed.
func (h *History) EvictThrough(ts float64) int {
	removed := 0
	for el := h.entries.Front(); el != nil && el.Key <= ts; el = h.entries.Front() {
		h.entries.Delete(el.Key)
		removed++
	}
	return removed
}

// Entries returns the remaining entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, 0, h.entries.Len())
	for el := h.entries.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

func (h *History) Clear() {
	h.entries = orderedmap.NewOrderedMap[float64, HistoryEntry]()
}
