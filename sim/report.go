package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/speakerver-sim/speakerver-sim/sim/trace"
)

// DefaultWorkloadBins is the number of time bins of the per-worker workload histogram.
const DefaultWorkloadBins = 12

// Distribution summarizes a sample of values.
type Distribution struct {
	Mean  float64 `yaml:"mean"`
	P50   float64 `yaml:"p50"`
	P90   float64 `yaml:"p90"`
	P99   float64 `yaml:"p99"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Count int     `yaml:"count"`
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// percentile interpolates linearly between the closest ranks of sorted at rank p/100*(n-1).
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// WorkerLoad is the compute one worker executed during the run.
type WorkerLoad struct {
	Name       string  `yaml:"name"`
	Inferences int     `yaml:"inferences"`
	TotalFlops float64 `yaml:"total_flops"`
	// Flops executed per equal-width time bin over [0, time_to_run).
	Bins []float64 `yaml:"bins"`
}

// Report is the post-run summary of one simulation.
type Report struct {
	Strategy Strategy `yaml:"strategy"`
	Messages int      `yaml:"messages"`

	E2ELatency Distribution `yaml:"e2e_latency"`
	TotalFlops Distribution `yaml:"total_flops"`

	// Bounces per completed message.
	BackwardBounceRate float64 `yaml:"backward_bounce_rate"`
	ForwardBounceRate  float64 `yaml:"forward_bounce_rate"`

	Workers []WorkerLoad `yaml:"workers"`

	Trace *trace.TraceSummary `yaml:"trace,omitempty"`
}

// NewReport summarizes aggregated stats. numBins <= 0 selects DefaultWorkloadBins.
func NewReport(stats *GlobalStats, numBins int) (*Report, error) {
	if len(stats.FinalMessages) == 0 {
		return nil, errors.Wrap(ErrNoCompletedMessages, "report")
	}
	if numBins <= 0 {
		numBins = DefaultWorkloadBins
	}

	latencies := make([]float64, 0, len(stats.FinalMessages))
	flops := make([]float64, 0, len(stats.FinalMessages))
	for _, msg := range stats.FinalMessages {
		latency, err := msg.E2ELatency()
		if err != nil {
			return nil, err
		}
		latencies = append(latencies, latency)
		flops = append(flops, msg.TotalFlops)
	}

	n := float64(len(stats.FinalMessages))
	r := &Report{
		Strategy:           stats.Config.Strategy,
		Messages:           len(stats.FinalMessages),
		E2ELatency:         NewDistribution(latencies),
		TotalFlops:         NewDistribution(flops),
		BackwardBounceRate: float64(stats.BackwardBounceCount) / n,
		ForwardBounceRate:  float64(stats.ForwardBounceCount) / n,
	}
	if stats.Trace != nil {
		r.Trace = trace.Summarize(stats.Trace)
	}

	dividers := floats.Span(make([]float64, numBins+1), 0, stats.Config.TimeToRun)
	names := make([]string, 0, len(stats.Workload))
	for name := range stats.Workload {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Workers = append(r.Workers, newWorkerLoad(name, stats.Workload[name], dividers))
	}
	return r, nil
}

// newWorkerLoad bins samples, which are in execution (time) order.
func newWorkerLoad(name string, samples []WorkloadSample, dividers []float64) WorkerLoad {
	times := make([]float64, len(samples))
	weights := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
		weights[i] = s.Flops
	}
	load := WorkerLoad{
		Name:       name,
		Inferences: len(samples),
		TotalFlops: floats.Sum(weights),
		Bins:       make([]float64, len(dividers)-1),
	}
	// The histogram only accepts samples inside [first, last) divider.
	end := sort.SearchFloat64s(times, dividers[len(dividers)-1])
	if end > 0 {
		stat.Histogram(load.Bins, dividers, times[:end], weights[:end])
	}
	return load
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "=== %s ===\n", r.Strategy)
	fmt.Fprintf(w, "Completed messages   : %d\n", r.Messages)
	fmt.Fprintf(w, "E2E latency (s)      : mean=%.4f p50=%.4f p90=%.4f p99=%.4f max=%.4f\n",
		r.E2ELatency.Mean, r.E2ELatency.P50, r.E2ELatency.P90, r.E2ELatency.P99, r.E2ELatency.Max)
	fmt.Fprintf(w, "Total flops          : mean=%.4g p50=%.4g p90=%.4g p99=%.4g max=%.4g\n",
		r.TotalFlops.Mean, r.TotalFlops.P50, r.TotalFlops.P90, r.TotalFlops.P99, r.TotalFlops.Max)
	fmt.Fprintf(w, "Backward bounce rate : %.4f\n", r.BackwardBounceRate)
	fmt.Fprintf(w, "Forward bounce rate  : %.4f\n", r.ForwardBounceRate)

	fmt.Fprintln(w, "Workers:")
	for _, wl := range r.Workers {
		fmt.Fprintf(w, "  %-12s inferences=%-6d flops=%.4g bins=%v\n", wl.Name, wl.Inferences, wl.TotalFlops, wl.Bins)
	}

	if r.Trace != nil {
		fmt.Fprintf(w, "Trace: %d decisions, %d syncs (%d stale)\n",
			r.Trace.TotalDecisions, r.Trace.TotalSyncs, r.Trace.StaleSyncs)
		outcomes := make([]string, 0, len(r.Trace.OutcomeCounts))
		for o := range r.Trace.OutcomeCounts {
			outcomes = append(outcomes, string(o))
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Fprintf(w, "  %-18s %d\n", o, r.Trace.OutcomeCounts[trace.Outcome(o)])
		}
	}
}
