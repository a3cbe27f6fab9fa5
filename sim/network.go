package sim

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// NetworkSystem wires one client, one frontend, the worker pool and the
// profile database into a runnable simulation.
type NetworkSystem struct {
	env      *engine.Environment
	config   *Config
	stats    *GlobalStats
	client   *Client
	frontend *Frontend
	workers  []Worker
	database ProfileStore

	// Out receives the brief stats when print_stats is set.
	Out io.Writer
}

// NewNetworkSystem sets every worker's initial versions, connects the actors
// and starts their processes in a fixed order: client, frontend, workers.
// The frontend's policy sees workers with their initial versions already set.
func NewNetworkSystem(env *engine.Environment, config *Config, stats *GlobalStats, client *Client,
	frontend *Frontend, workers []Worker, database ProfileStore, initVersions []int, out io.Writer) (*NetworkSystem, error) {
	if len(workers) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "network system needs at least one worker")
	}
	for _, w := range workers {
		if err := w.SetModelVersions(initVersions); err != nil {
			return nil, err
		}
	}

	client.SetFrontend(frontend)
	frontend.SetClient(client)
	frontend.SetWorkers(workers)
	frontend.SetDatabase(database)
	for _, w := range workers {
		w.SetFrontend(frontend)
	}

	if err := client.Setup(); err != nil {
		return nil, err
	}
	if err := frontend.Setup(); err != nil {
		return nil, err
	}
	for _, w := range workers {
		if err := w.Setup(); err != nil {
			return nil, err
		}
	}

	return &NetworkSystem{
		env:      env,
		config:   config,
		stats:    stats,
		client:   client,
		frontend: frontend,
		workers:  workers,
		database: database,
		Out:      out,
	}, nil
}

// Frontend returns the frontend of the system.
func (n *NetworkSystem) Frontend() *Frontend {
	return n.frontend
}

// Workers returns the worker pool.
func (n *NetworkSystem) Workers() []Worker {
	return n.workers
}

// Simulate runs the clock to time_to_run and aggregates the stats.
func (n *NetworkSystem) Simulate() (*GlobalStats, error) {
	if err := n.env.Run(n.config.TimeToRun); err != nil {
		return nil, err
	}
	if err := n.stats.Aggregate(); err != nil {
		return nil, err
	}
	if n.config.PrintStats && n.Out != nil {
		if err := n.printStats(); err != nil {
			return nil, err
		}
	}
	return n.stats, nil
}

func (n *NetworkSystem) printStats() error {
	out, err := yaml.Marshal(n.stats.Brief())
	if err != nil {
		return errors.Wrap(err, "marshal stats")
	}
	_, err = fmt.Fprintf(n.Out, "==============================\n%s", out)
	return err
}
