package sim

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// testConfig returns the example config for strategy with logging silenced.
func testConfig(strategy Strategy) Config {
	cfg := DefaultConfig()
	cfg.Strategy = strategy
	cfg.LogVerbosity = 0
	return cfg
}

// testRig holds the shared pieces actors are built from in unit tests.
type testRig struct {
	env    *engine.Environment
	config *Config
	stats  *GlobalStats
	logger *logrus.Logger
}

func newTestRig(cfg Config) *testRig {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &testRig{
		env:    engine.NewEnvironment(cfg.Seed),
		config: &cfg,
		stats:  NewGlobalStats(cfg),
		logger: logger,
	}
}

func (r *testRig) frontend(policy Policy, workers ...Worker) *Frontend {
	f := NewFrontend(r.env, "frontend", r.config, r.stats, r.logger, policy)
	f.SetWorkers(workers)
	for _, w := range workers {
		w.SetFrontend(f)
	}
	return f
}

func (r *testRig) singleWorker(t *testing.T, name string, version int) *SingleVersionWorker {
	t.Helper()
	w := NewSingleVersionWorker(r.env, name, r.config, r.stats, r.logger)
	require.NoError(t, w.SetModelVersions([]int{version}))
	return w
}

// runSimulation runs cfg without printing and fails the test on error.
func runSimulation(t *testing.T, cfg Config) *GlobalStats {
	t.Helper()
	stats, err := SimulateWithOutput(cfg, io.Discard)
	require.NoError(t, err)
	return stats
}
