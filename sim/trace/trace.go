package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures all routing and version-sync decisions.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a simulation.
type SimulationTrace struct {
	Config   TraceConfig
	Routings []RoutingRecord
	Syncs    []SyncRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
// Returns nil when the level disables tracing; recording on a nil trace is a no-op.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &SimulationTrace{
		Config:   config,
		Routings: make([]RoutingRecord, 0),
		Syncs:    make([]SyncRecord, 0),
	}
}

// RecordRouting appends a routing decision record.
func (st *SimulationTrace) RecordRouting(record RoutingRecord) {
	if st == nil {
		return
	}
	st.Routings = append(st.Routings, record)
}

// RecordSync appends a version-table refresh record.
func (st *SimulationTrace) RecordSync(record SyncRecord) {
	if st == nil {
		return
	}
	st.Syncs = append(st.Syncs, record)
}
