package trace

import (
	"testing"
)

func TestNewSimulationTrace_NoneLevelDisablesRecording(t *testing.T) {
	// GIVEN tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are added to the nil trace
	st.RecordRouting(RoutingRecord{MessageID: 1})
	st.RecordSync(SyncRecord{Worker: "worker-0"})

	// THEN nothing panics and the trace stays nil
	if st != nil {
		t.Fatal("expected nil trace for level none")
	}
}

func TestSimulationTrace_RecordRouting_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a routing record is recorded
	st.RecordRouting(RoutingRecord{
		MessageID:       7,
		UserID:          3,
		Clock:           12.5,
		ChosenWorker:    "worker-2",
		WorkerVersions:  []int{2},
		ProfileVersions: []int{1},
		Outcome:         OutcomeForwardBounce,
	})

	// THEN the trace contains one routing record with correct data
	if len(st.Routings) != 1 {
		t.Fatalf("expected 1 routing, got %d", len(st.Routings))
	}
	if st.Routings[0].ChosenWorker != "worker-2" {
		t.Errorf("expected worker-2, got %s", st.Routings[0].ChosenWorker)
	}
	if st.Routings[0].Outcome != OutcomeForwardBounce {
		t.Errorf("expected forward-bounce, got %s", st.Routings[0].Outcome)
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	st.RecordRouting(RoutingRecord{MessageID: 1, Clock: 1})
	st.RecordRouting(RoutingRecord{MessageID: 2, Clock: 2})
	st.RecordSync(SyncRecord{Worker: "worker-0", Clock: 3})

	if len(st.Routings) != 2 {
		t.Fatalf("expected 2 routings, got %d", len(st.Routings))
	}
	if st.Routings[0].MessageID != 1 || st.Routings[1].MessageID != 2 {
		t.Error("routing order not preserved")
	}
	if len(st.Syncs) != 1 || st.Syncs[0].Worker != "worker-0" {
		t.Error("sync record not preserved")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"", true},
		{"none", true},
		{"decisions", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
