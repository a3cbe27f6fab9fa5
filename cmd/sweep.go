package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/speakerver-sim/speakerver-sim/sim"
)

// sweepOptions is one sweep grid.
type sweepOptions struct {
	Strategies []sim.Strategy
	Workers    []int
	Users      []int
	Runs       int
	// Request interval used when there is more than one user; 0 keeps the config's.
	MultiUserInterval float64
	// When set, SSO-sync is swept over these version_query_interval values instead of Strategies.
	QueryIntervals []float64
	OutputDir      string
}

// sweepFile is one result file: every run of one (workers, users) cell.
type sweepFile struct {
	BatchID    string                       `yaml:"batch_id"`
	NumWorkers int                          `yaml:"num_cloud_workers"`
	NumUsers   int                          `yaml:"num_users"`
	Runs       int                          `yaml:"runs"`
	Results    map[string][]sim.GlobalStats `yaml:"results"`
}

var (
	sweepConfigPath    string
	sweepOverrides     []string
	sweepStrategyNames []string
	sweepWorkers       []int
	sweepUsers         []int
	sweepRuns          int
	sweepUserInterval  float64
	sweepQueryInterval []float64
	sweepOutputDir     string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every strategy over a grid of worker and user counts",
	Run: func(cmd *cobra.Command, args []string) {
		base, err := resolveConfig(sweepConfigPath, sweepOverrides)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		opts := sweepOptions{
			Workers:           sweepWorkers,
			Users:             sweepUsers,
			Runs:              sweepRuns,
			MultiUserInterval: sweepUserInterval,
			QueryIntervals:    sweepQueryInterval,
			OutputDir:         sweepOutputDir,
		}
		for _, name := range sweepStrategyNames {
			s, err := sim.ParseStrategy(name)
			if err != nil {
				logrus.Fatalf("Invalid strategy: %v", err)
			}
			opts.Strategies = append(opts.Strategies, s)
		}

		files, err := runSweep(base, opts)
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		if err != nil {
			logrus.Fatalf("Sweep finished with failures: %v", err)
		}
	},
}

// runSweep runs the grid and writes one YAML file per (workers, users) cell.
// A failed run is recorded and the sweep goes on; the returned error collects every failure.
func runSweep(base sim.Config, opts sweepOptions) ([]string, error) {
	if opts.Runs <= 0 {
		return nil, errors.Errorf("runs must be positive, got %d", opts.Runs)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", opts.OutputDir)
	}

	batchID := uuid.NewString()
	logrus.WithField("batch", batchID).Infof("Sweep over workers=%v users=%v, %d runs", opts.Workers, opts.Users, opts.Runs)

	// Sweeps are quiet whatever the base config says.
	base.LogVerbosity = 0
	base.PrintStats = false

	var result *multierror.Error
	var files []string
	for _, numUsers := range opts.Users {
		for _, numWorkers := range opts.Workers {
			cfg := base
			cfg.NumUsers = numUsers
			cfg.NumCloudWorkers = numWorkers
			// With more users, also increase the request rate.
			if numUsers > 1 && opts.MultiUserInterval > 0 {
				cfg.ClientRequestInterval = opts.MultiUserInterval
			}

			file := sweepFile{
				BatchID:    batchID,
				NumWorkers: numWorkers,
				NumUsers:   numUsers,
				Runs:       opts.Runs,
				Results:    make(map[string][]sim.GlobalStats),
			}
			for run := 0; run < opts.Runs; run++ {
				cfg.Seed = base.Seed + int64(run)
				for key, cellCfg := range sweepVariants(cfg, opts) {
					stats, err := sim.SimulateWithOutput(cellCfg, nil)
					if err != nil {
						result = multierror.Append(result, errors.Wrapf(err, "%s workers=%d users=%d run=%d", key, numWorkers, numUsers, run))
						continue
					}
					file.Results[key] = append(file.Results[key], stats.Brief())
				}
			}

			path := filepath.Join(opts.OutputDir, sweepFileName(numWorkers, numUsers, opts))
			if err := writeYAML(path, file); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			logrus.WithField("batch", batchID).Infof("Wrote %s", path)
			files = append(files, path)
		}
	}
	return files, result.ErrorOrNil()
}

// sweepVariants returns the configs run for one seed, keyed by their result key.
func sweepVariants(cfg sim.Config, opts sweepOptions) map[string]sim.Config {
	variants := make(map[string]sim.Config)
	if len(opts.QueryIntervals) > 0 {
		for _, interval := range opts.QueryIntervals {
			c := cfg
			c.Strategy = sim.StrategySync
			c.VersionQueryInterval = interval
			variants[strconv.FormatFloat(interval, 'g', -1, 64)] = c
		}
		return variants
	}
	for _, s := range opts.Strategies {
		c := cfg
		c.Strategy = s
		variants[string(s)] = c
	}
	return variants
}

func sweepFileName(numWorkers, numUsers int, opts sweepOptions) string {
	name := fmt.Sprintf("results_%dworkers_%dusers_%druns", numWorkers, numUsers, opts.Runs)
	if len(opts.QueryIntervals) > 0 {
		name += "_sweep_interval"
	}
	return name + ".yaml"
}

func init() {
	all := make([]string, 0, len(sim.Strategies))
	for _, s := range sim.Strategies {
		all = append(all, string(s))
	}

	sweepCmd.Flags().StringVar(&sweepConfigPath, "config", "", "Base YAML config file")
	sweepCmd.Flags().StringArrayVar(&sweepOverrides, "set", nil, "Base config override key=value, repeatable")
	sweepCmd.Flags().StringSliceVar(&sweepStrategyNames, "strategies", all, "Strategies to compare")
	sweepCmd.Flags().IntSliceVar(&sweepWorkers, "workers", []int{10, 100, 500}, "num_cloud_workers values")
	sweepCmd.Flags().IntSliceVar(&sweepUsers, "users", []int{1, 100, 1000}, "num_users values")
	sweepCmd.Flags().IntVar(&sweepRuns, "runs", 100, "Runs per grid cell; run i uses seed+i")
	sweepCmd.Flags().Float64Var(&sweepUserInterval, "multi-user-interval", 1, "client_request_interval when num_users > 1 (0 keeps the config's)")
	sweepCmd.Flags().Float64SliceVar(&sweepQueryInterval, "query-intervals", nil, "Sweep SSO-sync over these version_query_interval values instead of the strategies")
	sweepCmd.Flags().StringVar(&sweepOutputDir, "output-dir", "result_stats", "Directory for result files")

	rootCmd.AddCommand(sweepCmd)
}
