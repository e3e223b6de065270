package network

import (
	"testing"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(ts float64) HistoryEntry {
	return HistoryEntry{Command: messages.Command{Timestamp: ts}}
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(3)
	evicted := 0
	for i := 1; i <= 5; i++ {
		evicted += h.Push(entryAt(float64(i)))
	}
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 3, h.Len())

	oldest, ok := h.Oldest()
	require.True(t, ok)
	assert.Equal(t, 3.0, oldest.Command.Timestamp)

	var stamps []float64
	for _, e := range h.Entries() {
		stamps = append(stamps, e.Command.Timestamp)
	}
	assert.Equal(t, []float64{3, 4, 5}, stamps)
}

func TestHistory_EvictThrough(t *testing.T) {
	h := NewHistory(10)
	for _, ts := range []float64{1, 2, 2.5, 3, 4} {
		h.Push(entryAt(ts))
	}

	assert.Zero(t, h.EvictThrough(0.5))
	assert.Equal(t, 3, h.EvictThrough(2.7))
	assert.Equal(t, 2, h.Len())

	_, ok := h.Get(2)
	assert.False(t, ok)
	e, ok := h.Get(3)
	require.True(t, ok)
	assert.Equal(t, 3.0, e.Command.Timestamp)

	assert.Equal(t, 2, h.EvictThrough(100))
	_, ok = h.Oldest()
	assert.False(t, ok)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Capacity())
	h.Push(entryAt(1))
	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Entries())
}
