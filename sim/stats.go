package sim

import (
	"math"

	"github.com/pkg/errors"

	"github.com/speakerver-sim/speakerver-sim/sim/trace"
)

// WorkloadSample is one inference executed by a worker.
type WorkloadSample struct {
	Time  float64 `yaml:"time"`
	Flops float64 `yaml:"flops"`
}

// GlobalStats is the result record of one run. The client appends final
// messages, frontends count bounces, workers append workload samples;
// Aggregate derives the rest after the run.
type GlobalStats struct {
	// Routed to a worker older than the user's profile.
	BackwardBounceCount int `yaml:"backward_bounce_count"`
	// Routed to a worker newer than the user's profile.
	ForwardBounceCount int `yaml:"forward_bounce_count"`

	AverageE2ELatency float64 `yaml:"average_e2e_latency"`
	MaxE2ELatency     float64 `yaml:"max_e2e_latency"`
	AverageTotalFlops float64 `yaml:"average_total_flops"`
	MaxTotalFlops     float64 `yaml:"max_total_flops"`

	Config Config `yaml:"config"`

	// Length of FinalMessages.
	TotalNumMessages int `yaml:"total_num_messages"`

	// Worker name → one sample per inference, in execution order.
	Workload map[string][]WorkloadSample `yaml:"workload,omitempty"`

	FinalMessages []*Message `yaml:"final_messages,omitempty"`

	// Nil unless trace_level is "decisions".
	Trace *trace.SimulationTrace `yaml:"-"`
}

// NewGlobalStats creates empty stats for a run of cfg.
func NewGlobalStats(cfg Config) *GlobalStats {
	return &GlobalStats{
		Config:        cfg,
		Workload:      make(map[string][]WorkloadSample),
		FinalMessages: make([]*Message, 0),
		Trace:         trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)}),
	}
}

// RecordBounce counts a version mismatch found while routing.
func (s *GlobalStats) RecordBounce(workerVersion, profileVersion int) {
	if workerVersion < profileVersion {
		s.BackwardBounceCount++
	} else {
		s.ForwardBounceCount++
	}
}

// RecordWorkload appends an inference sample for worker.
func (s *GlobalStats) RecordWorkload(worker string, now, flops float64) {
	s.Workload[worker] = append(s.Workload[worker], WorkloadSample{Time: now, Flops: flops})
}

// RecordFinal appends a terminated message.
func (s *GlobalStats) RecordFinal(msg *Message) {
	s.FinalMessages = append(s.FinalMessages, msg)
}

// Aggregate derives the message count and the latency and compute aggregates
// from FinalMessages in a single pass. A run with no completed messages is a
// configuration error.
func (s *GlobalStats) Aggregate() error {
	s.TotalNumMessages = len(s.FinalMessages)
	if s.TotalNumMessages == 0 {
		return errors.Wrapf(ErrNoCompletedMessages, "time_to_run=%v client_request_interval=%v",
			s.Config.TimeToRun, s.Config.ClientRequestInterval)
	}

	sumLatency, maxLatency := 0.0, math.Inf(-1)
	sumFlops, maxFlops := 0.0, math.Inf(-1)
	for _, msg := range s.FinalMessages {
		latency, err := msg.E2ELatency()
		if err != nil {
			return err
		}
		sumLatency += latency
		maxLatency = math.Max(maxLatency, latency)
		sumFlops += msg.TotalFlops
		maxFlops = math.Max(maxFlops, msg.TotalFlops)
	}

	n := float64(s.TotalNumMessages)
	s.AverageE2ELatency = sumLatency / n
	s.MaxE2ELatency = maxLatency
	s.AverageTotalFlops = sumFlops / n
	s.MaxTotalFlops = maxFlops
	return nil
}

// Brief returns a copy without the per-message and per-inference payloads.
func (s *GlobalStats) Brief() GlobalStats {
	brief := *s
	brief.FinalMessages = nil
	brief.Workload = nil
	brief.Trace = nil
	return brief
}
