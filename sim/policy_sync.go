package sim

import (
	"github.com/pkg/errors"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
	"github.com/speakerver-sim/speakerver-sim/sim/trace"
)

// versionQueryable is a worker that answers out-of-band version queries.
type versionQueryable interface {
	Worker
	Queries() *engine.Store[*VersionQuery]
}

// VersionSyncPolicy (SSO-sync) reconciles like SSO, but keeps a table of
// each worker's last known version, refreshed every version_query_interval.
// When the random pick is known to be older than the user's profile, it
// re-picks among workers known to serve the profile version. The table can
// be stale, so bounces still happen between refreshes.
type VersionSyncPolicy struct {
	ForegroundReenrollPolicy
	table map[string]int
}

func (p *VersionSyncPolicy) Strategy() Strategy {
	return StrategySync
}

// Setup seeds the table from the workers' initial versions and starts polling.
func (p *VersionSyncPolicy) Setup(f *Frontend) error {
	p.table = make(map[string]int, len(f.workers))
	for _, w := range f.workers {
		if _, ok := w.(versionQueryable); !ok {
			return errors.Wrapf(ErrInvalidConfig, "%s does not answer version queries", w.Name())
		}
		p.table[w.Name()] = w.NewestVersion()
	}
	f.env.Process(func() error { return p.sendVersionQueries(f) })
	f.env.Process(func() error { return p.handleVersionResponses(f) })
	return nil
}

// KnownVersion returns the cached version of a worker.
func (p *VersionSyncPolicy) KnownVersion(worker string) (int, bool) {
	v, ok := p.table[worker]
	return v, ok
}

func (p *VersionSyncPolicy) SelectWorker(f *Frontend, msg *Message) (Worker, error) {
	if !msg.HasProfileVersion() {
		return nil, protocolViolation("selecting a worker for message %d without a profile version", msg.ID)
	}
	worker := f.randomWorker()
	if p.table[worker.Name()] >= msg.ProfileVersion {
		return worker, nil
	}
	// The pick is known to be stale: prefer a worker known to match.
	var updated []Worker
	for _, w := range f.workers {
		if p.table[w.Name()] == msg.ProfileVersion {
			updated = append(updated, w)
		}
	}
	// Empty when a worker has rolled over but not been polled since.
	if len(updated) > 0 {
		return updated[f.rng.Intn(len(updated))], nil
	}
	return worker, nil
}

func (p *VersionSyncPolicy) sendVersionQueries(f *Frontend) error {
	return f.env.Timeout(f.config.VersionQueryInterval, func() error {
		for _, w := range f.workers {
			worker := w.(versionQueryable)
			f.env.Process(func() error { return p.sendOneVersionQuery(f, worker) })
		}
		return p.sendVersionQueries(f)
	})
}

func (p *VersionSyncPolicy) sendOneVersionQuery(f *Frontend, worker versionQueryable) error {
	query := NewVersionQuery()
	return f.networkDelay(f.config.FrontendWorkerLatency, func() error {
		worker.Queries().Put(query)
		return nil
	})
}

func (p *VersionSyncPolicy) handleVersionResponses(f *Frontend) error {
	f.queryPool.Get(func(query *VersionQuery) error {
		if query.IsRequest || query.Version == NoVersion || query.WorkerName == "" {
			return protocolViolation("invalid version query response %+v", *query)
		}
		old := p.table[query.WorkerName]
		p.table[query.WorkerName] = query.Version
		if f.stats.Trace != nil {
			f.stats.Trace.RecordSync(trace.SyncRecord{
				Clock:      f.env.Now(),
				Worker:     query.WorkerName,
				OldVersion: old,
				NewVersion: query.Version,
				Changed:    old != query.Version,
			})
		}
		return p.handleVersionResponses(f)
	})
	return nil
}
