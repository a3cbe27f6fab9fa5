package sim

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// workerFactory builds one worker of a strategy's pool.
type workerFactory func(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) Worker

// topology is the (frontend policy, worker, database) triple a strategy runs on.
type topology struct {
	policy       Policy
	newWorker    workerFactory
	newDatabase  func(env *engine.Environment, config *Config, stats *GlobalStats, logger *logrus.Logger) ProfileStore
	initVersions []int
}

func singleVersionWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) Worker {
	return NewSingleVersionWorker(env, name, config, stats, logger)
}

func versionSyncWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) Worker {
	return NewVersionSyncWorker(env, name, config, stats, logger)
}

func doubleVersionWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) Worker {
	return NewDoubleVersionWorker(env, name, config, stats, logger)
}

// singleVersionStore creates a single-version database with every user at initVersion.
func singleVersionStore(initVersion int) func(*engine.Environment, *Config, *GlobalStats, *logrus.Logger) ProfileStore {
	return func(env *engine.Environment, config *Config, stats *GlobalStats, logger *logrus.Logger) ProfileStore {
		db := NewSingleVersionDatabase(env, "database", config, stats, logger)
		db.Create(initVersion)
		return db
	}
}

// multiVersionStore creates a multi-version database with every user enrolled in initVersions.
func multiVersionStore(initVersions []int) func(*engine.Environment, *Config, *GlobalStats, *logrus.Logger) ProfileStore {
	return func(env *engine.Environment, config *Config, stats *GlobalStats, logger *logrus.Logger) ProfileStore {
		db := NewMultiVersionDatabase(env, "database", config, stats, logger)
		db.Create(initVersions)
		return db
	}
}

// topologyFor returns a fresh topology; policies hold per-run state.
func topologyFor(strategy Strategy) (topology, error) {
	switch strategy {
	case StrategyForeground:
		return topology{
			policy:       &ForegroundReenrollPolicy{},
			newWorker:    singleVersionWorker,
			newDatabase:  singleVersionStore(1),
			initVersions: []int{1},
		}, nil
	case StrategySync:
		return topology{
			policy:       &VersionSyncPolicy{},
			newWorker:    versionSyncWorker,
			newDatabase:  singleVersionStore(1),
			initVersions: []int{1},
		}, nil
	case StrategyHash:
		return topology{
			policy:       &UserHashPolicy{},
			newWorker:    singleVersionWorker,
			newDatabase:  singleVersionStore(1),
			initVersions: []int{1},
		}, nil
	case StrategyMultiProfile:
		return topology{
			policy:       &MultiProfilePolicy{},
			newWorker:    singleVersionWorker,
			newDatabase:  multiVersionStore([]int{1}),
			initVersions: []int{1},
		}, nil
	case StrategyDoubleVersion:
		return topology{
			policy:       &BackgroundReenrollPolicy{},
			newWorker:    doubleVersionWorker,
			newDatabase:  multiVersionStore([]int{1, 2}),
			initVersions: []int{1, 2},
		}, nil
	default:
		return topology{}, errors.Wrapf(ErrUnknownStrategy, "%q", strategy)
	}
}

// NewSimulation builds a ready-to-run network system for cfg.Strategy. Brief
// stats are printed to out when print_stats is set.
func NewSimulation(cfg Config, out io.Writer) (*NetworkSystem, error) {
	topo, err := topologyFor(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config := &cfg
	env := engine.NewEnvironment(cfg.Seed)
	stats := NewGlobalStats(cfg)
	logger := newRunLogger(config)
	logger.WithField("strategy", cfg.Strategy).Debugf("building %d workers for %d users", cfg.NumCloudWorkers, cfg.NumUsers)

	client, err := NewClient(env, "client", config, stats, logger)
	if err != nil {
		return nil, err
	}
	frontend := NewFrontend(env, "frontend", config, stats, logger, topo.policy)
	workers := make([]Worker, cfg.NumCloudWorkers)
	for i := range workers {
		workers[i] = topo.newWorker(env, fmt.Sprintf("worker-%d", i), config, stats, logger)
	}
	database := topo.newDatabase(env, config, stats, logger)

	return NewNetworkSystem(env, config, stats, client, frontend, workers, database, topo.initVersions, out)
}

// SimulateWithOutput runs one simulation of cfg.Strategy to completion.
func SimulateWithOutput(cfg Config, out io.Writer) (*GlobalStats, error) {
	system, err := NewSimulation(cfg, out)
	if err != nil {
		return nil, err
	}
	return system.Simulate()
}

// Simulate runs one simulation, selecting the topology by cfg.Strategy.
// An unrecognized strategy fails with ErrUnknownStrategy.
func Simulate(cfg Config) (*GlobalStats, error) {
	return SimulateWithOutput(cfg, os.Stdout)
}

func simulateStrategy(cfg Config, want Strategy) (*GlobalStats, error) {
	if cfg.Strategy != want {
		return nil, errors.Wrapf(ErrInvalidConfig, "strategy %q passed to the %s simulation", cfg.Strategy, want)
	}
	return Simulate(cfg)
}

// SimulateForeground runs the SSO strategy: random routing, foreground re-enrollment.
func SimulateForeground(cfg Config) (*GlobalStats, error) {
	return simulateStrategy(cfg, StrategyForeground)
}

// SimulateSync runs the SSO-sync strategy.
func SimulateSync(cfg Config) (*GlobalStats, error) {
	return simulateStrategy(cfg, StrategySync)
}

// SimulateHash runs the SSO-hash strategy.
func SimulateHash(cfg Config) (*GlobalStats, error) {
	return simulateStrategy(cfg, StrategyHash)
}

// SimulateMultiProfile runs the SSO-mul strategy.
func SimulateMultiProfile(cfg Config) (*GlobalStats, error) {
	return simulateStrategy(cfg, StrategyMultiProfile)
}

// SimulateDoubleVersion runs the SD strategy.
func SimulateDoubleVersion(cfg Config) (*GlobalStats, error) {
	return simulateStrategy(cfg, StrategyDoubleVersion)
}
