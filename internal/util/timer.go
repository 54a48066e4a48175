package util

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Stopwatch measures a run and the named phases within it.
type Stopwatch struct {
	start  time.Time
	last   time.Time
	phases []phase
}

type phase struct {
	name     string
	duration time.Duration
}

// StartStopwatch creates a stopwatch starting at the current time.
func StartStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap closes the current phase under name and returns its duration.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.phases = append(s.phases, phase{name: name, duration: d})
	return d
}

// ElapsedMs returns the elapsed milliseconds since start.
func (s *Stopwatch) ElapsedMs() int64 {
	if s == nil || s.start.IsZero() {
		return 0
	}
	return time.Since(s.start).Milliseconds()
}

// Fields renders every recorded phase as "<name>_ms" plus "total_ms".
func (s *Stopwatch) Fields() logrus.Fields {
	fields := logrus.Fields{"total_ms": s.ElapsedMs()}
	if s == nil {
		return fields
	}
	for _, p := range s.phases {
		fields[p.name+"_ms"] = p.duration.Milliseconds()
	}
	return fields
}
