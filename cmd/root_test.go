package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	sim "github.com/speakerver-sim/speakerver-sim/sim"
)

func TestPrintStrategies_ListsEveryStrategy(t *testing.T) {
	var buf bytes.Buffer
	printStrategies(&buf)

	for _, s := range sim.Strategies {
		assert.Contains(t, buf.String(), string(s))
		assert.NotEmpty(t, strategyDescriptions[s], s)
	}
}

func TestRunAndReport_PrintsReportAndWritesResult(t *testing.T) {
	// GIVEN an output file
	old := outputPath
	outputPath = filepath.Join(t.TempDir(), "result.yaml")
	defer func() { outputPath = old }()

	cfg := sim.DefaultConfig()
	cfg.Strategy = sim.StrategyMultiProfile
	cfg.LogVerbosity = 0
	cfg.PrintStats = true

	// WHEN run
	var out bytes.Buffer
	require.NoError(t, runAndReport(cfg, &out))

	// THEN the stats and the report are printed
	assert.Contains(t, out.String(), "total_num_messages: 1080")
	assert.Contains(t, out.String(), "=== SSO-mul ===")

	// AND the result file holds the brief stats and the report
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var got runResult
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 1080, got.Stats.TotalNumMessages)
	assert.Empty(t, got.Stats.FinalMessages)
	require.NotNil(t, got.Report)
	assert.Equal(t, 1080, got.Report.Messages)
	assert.Equal(t, sim.StrategyMultiProfile, got.Stats.Config.Strategy)
}

func TestRunConfig_FlagsWinOverFile(t *testing.T) {
	// GIVEN a config file and explicit --strategy and --seed flags
	path := writeFile(t, "config.yaml", "strategy: SSO-hash\nseed: 3\n")
	oldPath, oldStrategy, oldSeed := configPath, strategyName, seed
	defer func() {
		configPath, strategyName, seed = oldPath, oldStrategy, oldSeed
		runCmd.Flags().Lookup("strategy").Changed = false
		runCmd.Flags().Lookup("seed").Changed = false
	}()
	configPath = path
	require.NoError(t, runCmd.Flags().Set("strategy", "SD"))
	require.NoError(t, runCmd.Flags().Set("seed", "99"))

	// WHEN resolved
	cfg, err := runConfig(runCmd)

	// THEN the flags win
	require.NoError(t, err)
	assert.Equal(t, sim.StrategyDoubleVersion, cfg.Strategy)
	assert.Equal(t, int64(99), cfg.Seed)
}
