package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/speakerver-sim/speakerver-sim/sim"
)

var (
	// CLI flags for a single run
	configPath   string   // YAML config file
	overrides    []string // key=value config overrides
	strategyName string   // Strategy override
	seed         int64    // Master seed
	logLevel     string   // Log verbosity level
	traceLevel   string   // Decision trace level
	outputPath   string   // Result file
	workloadBins int      // Time bins of the per-worker workload histogram
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "speakerver-sim",
	Short: "Discrete-event simulator for speaker-verification model version skew",
}

// runResult is what `run --output` writes.
type runResult struct {
	Stats  sim.GlobalStats `yaml:"stats"`
	Report *sim.Report     `yaml:"report"`
}

// runCmd executes one simulation using the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := runConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		logrus.Infof("Starting %s simulation: %d workers, %d users, horizon=%vs",
			cfg.Strategy, cfg.NumCloudWorkers, cfg.NumUsers, cfg.TimeToRun)
		startTime := time.Now()

		if err := runAndReport(cfg, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// runConfig resolves the config of `run`; explicitly set flags win over the file and --set.
func runConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg, err := resolveConfig(configPath, overrides)
	if err != nil {
		return sim.Config{}, err
	}
	if cmd.Flags().Changed("strategy") {
		s, err := sim.ParseStrategy(strategyName)
		if err != nil {
			return sim.Config{}, err
		}
		cfg.Strategy = s
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("trace") {
		cfg.TraceLevel = traceLevel
	}
	if cmd.Flags().Changed("log") {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return sim.Config{}, err
		}
		cfg.LogVerbosity = sim.VerbosityForLevel(level)
		logrus.SetLevel(level)
	} else {
		logrus.SetLevel(cfg.LogLevel())
	}
	return cfg, cfg.Validate()
}

// runAndReport simulates cfg, prints the report to out and writes the result file if requested.
func runAndReport(cfg sim.Config, out io.Writer) error {
	stats, err := sim.SimulateWithOutput(cfg, out)
	if err != nil {
		return err
	}
	report, err := sim.NewReport(stats, workloadBins)
	if err != nil {
		return err
	}
	report.Print(out)

	if outputPath != "" {
		if err := writeYAML(outputPath, runResult{Stats: stats.Brief(), Report: report}); err != nil {
			return err
		}
		logrus.Infof("Results written to %s", outputPath)
	}
	return nil
}

// strategiesCmd lists the supported strategies
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the supported version-reconciliation strategies",
	Run: func(cmd *cobra.Command, args []string) {
		printStrategies(cmd.OutOrStdout())
	},
}

var strategyDescriptions = map[sim.Strategy]string{
	sim.StrategyForeground:    "random routing; a version mismatch re-enrolls in the foreground",
	sim.StrategySync:          "random routing corrected by a periodically polled worker version table",
	sim.StrategyHash:          "each user pinned to worker user_id mod num_cloud_workers",
	sim.StrategyMultiProfile:  "every enrolled version kept; re-enroll only when the worker's version is missing",
	sim.StrategyDoubleVersion: "workers serve two versions; re-enrollment runs in the background",
}

func printStrategies(w io.Writer) {
	for _, s := range sim.Strategies {
		fmt.Fprintf(w, "%-9s %s\n", s, strategyDescriptions[s])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML config file (defaults to the built-in example config)")
	runCmd.Flags().StringArrayVar(&overrides, "set", nil, "Config override key=value, repeatable (e.g. --set num_users=100)")
	runCmd.Flags().StringVar(&strategyName, "strategy", string(sim.StrategyForeground), "Strategy (SSO, SSO-sync, SSO-hash, SSO-mul, SD)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for every random stream of the run")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write brief stats and report as YAML to this file")
	runCmd.Flags().IntVar(&workloadBins, "bins", sim.DefaultWorkloadBins, "Time bins of the per-worker workload histogram")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(strategiesCmd)
}
