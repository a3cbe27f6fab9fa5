package sim

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skewedConfig has many users and unbounded frequent rollovers, so versions diverge often.
func skewedConfig(strategy Strategy) Config {
	cfg := testConfig(strategy)
	cfg.MaxWorkerUpdates = 0
	cfg.NumUsers = 100
	cfg.NumCloudWorkers = 10
	cfg.ClientRequestInterval = 1
	cfg.WorkerUpdateMeanTime = 600
	cfg.TimeToRun = 3600
	return cfg
}

func TestSimulate_ExampleConfigCompletesEveryRequest(t *testing.T) {
	for _, s := range Strategies {
		t.Run(string(s), func(t *testing.T) {
			// GIVEN the example config: one request every 10s for 10800s
			cfg := testConfig(s)

			// WHEN simulated
			stats := runSimulation(t, cfg)

			// THEN every request sent before the horizon came back
			assert.Equal(t, 1080, len(stats.FinalMessages))
			assert.Equal(t, len(stats.FinalMessages), stats.TotalNumMessages)
		})
	}
}

func TestSimulate_AverageFlopsMatchesSum(t *testing.T) {
	for _, s := range Strategies {
		t.Run(string(s), func(t *testing.T) {
			stats := runSimulation(t, skewedConfig(s))

			sum := 0.0
			for _, msg := range stats.FinalMessages {
				sum += msg.TotalFlops
				assert.GreaterOrEqual(t, msg.TotalFlops, stats.Config.FlopsPerInference)
			}
			assert.InDelta(t, sum, stats.AverageTotalFlops*float64(stats.TotalNumMessages), 1e-3)
		})
	}
}

func TestSimulate_ExampleConfigBounceBounds(t *testing.T) {
	// GIVEN the example config: one user, every worker rolls over once
	for _, s := range []Strategy{StrategyHash, StrategyMultiProfile, StrategyDoubleVersion} {
		for seed := int64(1); seed <= 20; seed++ {
			cfg := testConfig(s)
			cfg.Seed = seed

			// WHEN simulated
			stats := runSimulation(t, cfg)

			// THEN the profile is never newer than the worker, and is refreshed at most once
			assert.Equal(t, 0, stats.BackwardBounceCount, "%s seed=%d", s, seed)
			assert.LessOrEqual(t, stats.ForwardBounceCount, 1, "%s seed=%d", s, seed)
			if s == StrategyDoubleVersion {
				assert.Equal(t, 0, stats.ForwardBounceCount, "%s seed=%d", s, seed)
			}
		}
	}
}

func TestSimulate_HashNeverBouncesBackward(t *testing.T) {
	t.Run("skewed", func(t *testing.T) {
		stats := runSimulation(t, skewedConfig(StrategyHash))

		assert.Equal(t, 0, stats.BackwardBounceCount)
		assert.Greater(t, stats.ForwardBounceCount, 0)
	})
}

func TestSimulate_MultiProfileNeverBouncesBackward(t *testing.T) {
	t.Run("many users single rollover", func(t *testing.T) {
		// Every set is {1} or {1, 2} and every worker is at 1 or 2.
		cfg := skewedConfig(StrategyMultiProfile)
		cfg.MaxWorkerUpdates = 1
		stats := runSimulation(t, cfg)

		assert.Equal(t, 0, stats.BackwardBounceCount)
		assert.Greater(t, stats.ForwardBounceCount, 0)
	})
	t.Run("single worker", func(t *testing.T) {
		// One worker's versions only grow, so a missing version is always newer.
		cfg := skewedConfig(StrategyMultiProfile)
		cfg.NumCloudWorkers = 1
		stats := runSimulation(t, cfg)

		assert.Equal(t, 0, stats.BackwardBounceCount)
		assert.Greater(t, stats.ForwardBounceCount, 0)
	})
}

func TestSimulate_DoubleVersionHidesSkew(t *testing.T) {
	for name, cfg := range map[string]Config{
		"example": testConfig(StrategyDoubleVersion),
		"skewed":  skewedConfig(StrategyDoubleVersion),
	} {
		t.Run(name, func(t *testing.T) {
			stats := runSimulation(t, cfg)

			assert.Equal(t, 0, stats.BackwardBounceCount)
			assert.Equal(t, 0, stats.ForwardBounceCount)
		})
	}
}

func TestSimulate_DoubleVersionChargesBackgroundEnrollment(t *testing.T) {
	stats := runSimulation(t, skewedConfig(StrategyDoubleVersion))

	// Rollovers force background enrollments, whose inference is folded back.
	assert.Greater(t, stats.MaxTotalFlops, stats.Config.FlopsPerInference)
}

func TestSimulate_RandomRoutingBouncesBothWays(t *testing.T) {
	for _, s := range []Strategy{StrategyForeground, StrategySync} {
		t.Run(string(s), func(t *testing.T) {
			stats := runSimulation(t, skewedConfig(s))

			assert.Greater(t, stats.BackwardBounceCount, 0)
			assert.Greater(t, stats.ForwardBounceCount, 0)
		})
	}
}

func TestSimulate_IsDeterministic(t *testing.T) {
	for _, s := range Strategies {
		t.Run(string(s), func(t *testing.T) {
			a := runSimulation(t, skewedConfig(s))
			b := runSimulation(t, skewedConfig(s))

			if diff := cmp.Diff(a, b); diff != "" {
				t.Errorf("same seed gave different stats (-first +second):\n%s", diff)
			}
		})
	}
}

func TestSimulate_SeedChangesRun(t *testing.T) {
	cfg := skewedConfig(StrategyForeground)
	a := runSimulation(t, cfg)
	cfg.Seed = 7
	b := runSimulation(t, cfg)

	assert.NotEqual(t, a.AverageE2ELatency, b.AverageE2ELatency)
}

func TestSimulate_UnknownStrategy(t *testing.T) {
	cfg := testConfig("SSO-xyz")
	_, err := Simulate(cfg)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSimulate_InvalidConfig(t *testing.T) {
	cfg := testConfig(StrategyForeground)
	cfg.NumCloudWorkers = 0
	_, err := Simulate(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimulate_NothingCompletedIsAnError(t *testing.T) {
	// The first response needs ~0.7s to come back.
	cfg := testConfig(StrategyForeground)
	cfg.TimeToRun = 0.1
	_, err := Simulate(cfg)
	assert.ErrorIs(t, err, ErrNoCompletedMessages)
}

func TestSimulateStrategy_RejectsMismatch(t *testing.T) {
	runners := map[Strategy]func(Config) (*GlobalStats, error){
		StrategyForeground:    SimulateForeground,
		StrategySync:          SimulateSync,
		StrategyHash:          SimulateHash,
		StrategyMultiProfile:  SimulateMultiProfile,
		StrategyDoubleVersion: SimulateDoubleVersion,
	}
	for s, run := range runners {
		t.Run(string(s), func(t *testing.T) {
			other := StrategyForeground
			if s == StrategyForeground {
				other = StrategyDoubleVersion
			}
			_, err := run(testConfig(other))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSimulate_PrintStats(t *testing.T) {
	cfg := testConfig(StrategyHash)
	cfg.PrintStats = true
	var out bytes.Buffer

	_, err := SimulateWithOutput(cfg, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "==============================")
	assert.Contains(t, out.String(), "total_num_messages: 1080")
	assert.NotContains(t, out.String(), "final_messages")
}

func TestSimulate_DecisionTrace(t *testing.T) {
	cfg := skewedConfig(StrategySync)
	cfg.TraceLevel = "decisions"
	stats := runSimulation(t, cfg)

	require.NotNil(t, stats.Trace)
	assert.GreaterOrEqual(t, len(stats.Trace.Routings), stats.TotalNumMessages)
	assert.NotEmpty(t, stats.Trace.Syncs)
}

func TestNewSimulation_WorkersStartAtInitialVersions(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     []int
	}{
		{StrategyForeground, []int{1}},
		{StrategySync, []int{1}},
		{StrategyHash, []int{1}},
		{StrategyMultiProfile, []int{1}},
		{StrategyDoubleVersion, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			system, err := NewSimulation(testConfig(tt.strategy), nil)
			require.NoError(t, err)

			require.Len(t, system.Workers(), 10)
			for _, w := range system.Workers() {
				assert.Equal(t, tt.want, w.Versions())
			}
			assert.Equal(t, tt.strategy, system.Frontend().Policy().Strategy())
		})
	}
}
