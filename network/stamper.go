package network

import (
	"math"
	"time"
)

// Stamper issues command timestamps: seconds since start, strictly
// increasing even when the clock stalls or steps back.
type Stamper struct {
	start time.Time
	last  float64
}

func NewStamper(start time.Time) *Stamper {
	return &Stamper{start: start, last: math.Inf(-1)}
}

// Stamp returns the timestamp for now.
func (s *Stamper) Stamp(now time.Time) float64 {
	ts := now.Sub(s.start).Seconds()
	if ts <= s.last {
		ts = math.Nextafter(s.last, math.Inf(1))
	}
	s.last = ts
	return ts
}

// Last returns the most recent timestamp, or -Inf before the first stamp.
func (s *Stamper) Last() float64 {
	return s.last
}

// Since returns how long ago, as of now, the timestamp ts was issued.
func (s *Stamper) Since(ts float64, now time.Time) time.Duration {
	issued := s.start.Add(time.Duration(ts * float64(time.Second)))
	return now.Sub(issued)
}
