package sim

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// Worker is a cloud worker serving one or more enrollment-model versions.
// Only the worker's own rollover process changes the versions it serves.
type Worker interface {
	Name() string
	Mailbox() *engine.Store[*Message]
	// Versions returns the served versions, oldest first.
	Versions() []int
	// NewestVersion returns the most recent served version.
	NewestVersion() int
	// SetModelVersions sets the initial served versions.
	SetModelVersions(versions []int) error
	SetFrontend(frontend *Frontend)
	Setup() error
}

// baseWorker holds the request path shared by all worker variants: receive,
// optionally enroll, run inference, return to the frontend.
type baseWorker struct {
	Actor
	frontend *Frontend
	updates  int

	// enroll sets msg.ProfileVersion for an enrollment request.
	enroll func(msg *Message) error
	// rollover advances the served versions by one step.
	rollover func()
}

func newBaseWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) baseWorker {
	return baseWorker{Actor: newActor(env, name, config, stats, logger)}
}

func (w *baseWorker) SetFrontend(frontend *Frontend) {
	w.frontend = frontend
}

// Updates returns how many rollovers the worker has gone through.
func (w *baseWorker) Updates() int {
	return w.updates
}

func (w *baseWorker) setup() error {
	w.env.Process(w.scheduleRollover)
	w.env.Process(w.handleRequests)
	return nil
}

// scheduleRollover waits an exponential interval, rolls the model forward and repeats,
// until max_worker_updates is reached (forever when it is 0).
func (w *baseWorker) scheduleRollover() error {
	if limit := w.config.MaxWorkerUpdates; limit > 0 && w.updates >= limit {
		return nil
	}
	wait := engine.ExponentialDelay(w.rng, w.config.WorkerUpdateMeanTime)
	return w.env.Timeout(wait, func() error {
		w.rollover()
		w.updates++
		return w.scheduleRollover()
	})
}

func (w *baseWorker) handleRequests() error {
	w.mailbox.Get(func(msg *Message) error {
		if !msg.IsRequest {
			return protocolViolation("%s received response %d", w.name, msg.ID)
		}
		w.env.Process(func() error { return w.handleOneRequest(msg) })
		return w.handleRequests()
	})
	return nil
}

func (w *baseWorker) handleOneRequest(msg *Message) error {
	w.logf("handle request %d (enroll=%v)", msg.ID, msg.IsEnroll)
	msg.Stamp(StageWorkerReceive, w.env.Now())
	msg.WorkerName = w.name

	if msg.IsEnroll {
		if err := w.enroll(msg); err != nil {
			return err
		}
	}

	return w.runInference(msg, func() error {
		w.logf("complete request %d", msg.ID)
		msg.IsRequest = false
		return w.sendToFrontend(msg)
	})
}

// runInference simulates one speech-engine pass and charges its compute to msg.
func (w *baseWorker) runInference(msg *Message, then engine.Action) error {
	return w.env.Timeout(engine.GaussianDelay(w.rng, w.config.WorkerInferenceLatency), func() error {
		msg.TotalFlops += w.config.FlopsPerInference
		w.stats.RecordWorkload(w.name, w.env.Now(), w.config.FlopsPerInference)
		return then()
	})
}

func (w *baseWorker) sendToFrontend(msg *Message) error {
	msg.Stamp(StageWorkerReturn, w.env.Now())
	return w.networkDelay(w.config.FrontendWorkerLatency, func() error {
		w.frontend.Mailbox().Put(msg)
		return nil
	})
}

// SingleVersionWorker serves exactly one model version; each rollover increments it.
type SingleVersionWorker struct {
	baseWorker
	version int
}

// NewSingleVersionWorker creates a worker; its version is set by the network system.
func NewSingleVersionWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) *SingleVersionWorker {
	w := &SingleVersionWorker{baseWorker: newBaseWorker(env, name, config, stats, logger)}
	w.enroll = func(msg *Message) error {
		msg.ProfileVersion = w.version
		return nil
	}
	w.rollover = func() {
		w.version++
		w.logf("update model version to v%d", w.version)
	}
	return w
}

func (w *SingleVersionWorker) Versions() []int {
	return []int{w.version}
}

func (w *SingleVersionWorker) NewestVersion() int {
	return w.version
}

func (w *SingleVersionWorker) SetModelVersions(versions []int) error {
	if len(versions) != 1 {
		return errors.Wrapf(ErrInvalidConfig, "%s serves one version, got %v", w.name, versions)
	}
	w.version = versions[0]
	return nil
}

func (w *SingleVersionWorker) Setup() error {
	return w.setup()
}

// VersionSyncWorker is a single-version worker that also answers version queries.
type VersionSyncWorker struct {
	*SingleVersionWorker
	queries *engine.Store[*VersionQuery]
}

// NewVersionSyncWorker creates a worker for the SSO-sync strategy.
func NewVersionSyncWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) *VersionSyncWorker {
	return &VersionSyncWorker{
		SingleVersionWorker: NewSingleVersionWorker(env, name, config, stats, logger),
		queries:             engine.NewStore[*VersionQuery](env),
	}
}

// Queries returns the inbound version-query mailbox.
func (w *VersionSyncWorker) Queries() *engine.Store[*VersionQuery] {
	return w.queries
}

func (w *VersionSyncWorker) Setup() error {
	if err := w.SingleVersionWorker.Setup(); err != nil {
		return err
	}
	w.env.Process(w.handleVersionQueries)
	return nil
}

func (w *VersionSyncWorker) handleVersionQueries() error {
	w.queries.Get(func(query *VersionQuery) error {
		w.env.Process(func() error { return w.handleOneQuery(query) })
		return w.handleVersionQueries()
	})
	return nil
}

func (w *VersionSyncWorker) handleOneQuery(query *VersionQuery) error {
	if !query.IsRequest {
		return protocolViolation("%s received a version query response", w.name)
	}
	query.IsRequest = false
	query.WorkerName = w.name
	query.Version = w.version
	return w.networkDelay(w.config.FrontendWorkerLatency, func() error {
		w.frontend.QueryPool().Put(query)
		return nil
	})
}
