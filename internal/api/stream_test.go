package api

import "testing"

func TestNotifierKeepsLastAnalysis(t *testing.T) {
	n := NewAnalysisNotifier()
	if n.LastStatus() != nil {
		t.Fatalf("expected no status before any broadcast")
	}

	n.Broadcast(AnalysisEvent{Type: EventAnalysis, CaseID: "a"})
	n.Broadcast(AnalysisEvent{Type: EventDeleted, CaseID: "b"})

	last := n.LastStatus()
	if last == nil || last.CaseID != "a" {
		t.Fatalf("expected last analysis for case a got %+v", last)
	}
	if last.Timestamp.IsZero() {
		t.Fatalf("expected broadcast to stamp the event")
	}
	if n.ClientCount() != 0 {
		t.Fatalf("expected no clients got %d", n.ClientCount())
	}
}

func TestNotifierForgetsDeletedCase(t *testing.T) {
	tests := []struct {
		name      string
		events    []AnalysisEvent
		expectID  string
		expectNil bool
	}{
		{"delete of another case keeps status", []AnalysisEvent{
			{Type: EventAnalysis, CaseID: "a"},
			{Type: EventDeleted, CaseID: "b"},
		}, "a", false},
		{"delete of the replayed case clears it", []AnalysisEvent{
			{Type: EventAnalysis, CaseID: "a"},
			{Type: EventDeleted, CaseID: "a"},
		}, "", true},
		{"rescore after delete is replayed", []AnalysisEvent{
			{Type: EventAnalysis, CaseID: "a"},
			{Type: EventDeleted, CaseID: "a"},
			{Type: EventRescored, CaseID: "c"},
		}, "c", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := NewAnalysisNotifier()
			for _, event := range tc.events {
				n.Broadcast(event)
			}
			last := n.LastStatus()
			if tc.expectNil {
				if last != nil {
					t.Fatalf("expected no status got %+v", last)
				}
				return
			}
			if last == nil || last.CaseID != tc.expectID {
				t.Fatalf("expected status for %s got %+v", tc.expectID, last)
			}
		})
	}
}
