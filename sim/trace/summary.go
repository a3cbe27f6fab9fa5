package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int             `yaml:"total_decisions"`
	OutcomeCounts      map[Outcome]int `yaml:"outcome_counts"`
	UniqueTargets      int             `yaml:"unique_targets"`
	TargetDistribution map[string]int  `yaml:"target_distribution"` // worker name → count of decisions routed to it
	TotalSyncs         int             `yaml:"total_syncs"`
	StaleSyncs         int             `yaml:"stale_syncs"` // refreshes that changed the cached version
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OutcomeCounts:      make(map[Outcome]int),
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Routings)
	for _, r := range st.Routings {
		summary.OutcomeCounts[r.Outcome]++
		summary.TargetDistribution[r.ChosenWorker]++
	}
	summary.UniqueTargets = len(summary.TargetDistribution)

	summary.TotalSyncs = len(st.Syncs)
	for _, s := range st.Syncs {
		if s.Changed {
			summary.StaleSyncs++
		}
	}

	return summary
}
