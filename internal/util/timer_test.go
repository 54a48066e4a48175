package util

import (
	"testing"
	"time"
)

func TestStopwatchPhases(t *testing.T) {
	sw := StartStopwatch()
	time.Sleep(2 * time.Millisecond)
	if d := sw.Lap("search"); d < 2*time.Millisecond {
		t.Fatalf("expected lap of at least 2ms got %s", d)
	}
	sw.Lap("classify")

	fields := sw.Fields()
	for _, key := range []string{"search_ms", "classify_ms", "total_ms"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected field %s in %v", key, fields)
		}
	}
	if sw.ElapsedMs() < 2 {
		t.Fatalf("expected elapsed of at least 2ms got %d", sw.ElapsedMs())
	}
}

func TestNilStopwatch(t *testing.T) {
	var sw *Stopwatch
	if sw.ElapsedMs() != 0 {
		t.Fatalf("expected 0 for nil stopwatch")
	}
	if fields := sw.Fields(); fields["total_ms"] != int64(0) {
		t.Fatalf("expected total_ms 0 got %v", fields["total_ms"])
	}
}
