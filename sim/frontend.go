package sim

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
	"github.com/speakerver-sim/speakerver-sim/sim/trace"
)

// Policy is a version-reconciliation strategy plugged into the frontend.
type Policy interface {
	Strategy() Strategy
	// Setup runs once all actors are wired; it may spawn background processes.
	Setup(f *Frontend) error
	// SelectWorker picks the worker a request is sent to.
	SelectWorker(f *Frontend, msg *Message) (Worker, error)
	// SendWorkerRequest handles a fresh request from the client.
	SendWorkerRequest(f *Frontend, msg *Message) error
	// HandleEnrollResponse handles a returned enrollment, already converted
	// back into an ordinary request.
	HandleEnrollResponse(f *Frontend, msg *Message) error
}

// Frontend routes client requests to workers and relays responses back.
// The reconciliation logic lives in its Policy.
type Frontend struct {
	Actor
	policy    Policy
	client    *Client
	workers   []Worker
	database  ProfileStore
	queryPool *engine.Store[*VersionQuery]
}

// NewFrontend creates a frontend running policy.
func NewFrontend(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger, policy Policy) *Frontend {
	return &Frontend{
		Actor:     newActor(env, name, config, stats, logger),
		policy:    policy,
		queryPool: engine.NewStore[*VersionQuery](env),
	}
}

func (f *Frontend) SetClient(client *Client) {
	f.client = client
}

func (f *Frontend) SetWorkers(workers []Worker) {
	f.workers = workers
}

func (f *Frontend) SetDatabase(database ProfileStore) {
	f.database = database
}

// Policy returns the reconciliation policy.
func (f *Frontend) Policy() Policy {
	return f.policy
}

// Workers returns the worker pool.
func (f *Frontend) Workers() []Worker {
	return f.workers
}

// QueryPool is the mailbox version-query responses are returned to.
func (f *Frontend) QueryPool() *engine.Store[*VersionQuery] {
	return f.queryPool
}

// Setup starts the dispatch loop and the policy's own processes.
func (f *Frontend) Setup() error {
	f.env.Process(f.handleMessages)
	return f.policy.Setup(f)
}

func (f *Frontend) handleMessages() error {
	f.mailbox.Get(func(msg *Message) error {
		switch {
		case msg.IsRequest:
			f.env.Process(func() error { return f.policy.SendWorkerRequest(f, msg) })
		case msg.IsEnroll:
			msg.IsEnroll = false
			msg.IsRequest = true
			f.env.Process(func() error { return f.policy.HandleEnrollResponse(f, msg) })
		default:
			f.env.Process(func() error { return f.sendToClient(msg) })
		}
		return f.handleMessages()
	})
	return nil
}

// randomWorker picks a worker uniformly at random.
func (f *Frontend) randomWorker() Worker {
	return f.workers[f.rng.Intn(len(f.workers))]
}

// sendToWorker delivers msg to the worker after one network hop, then
// continues with then (which may be nil).
func (f *Frontend) sendToWorker(worker Worker, msg *Message, then engine.Action) error {
	f.logf("send request %d to %s (enroll=%v)", msg.ID, worker.Name(), msg.IsEnroll)
	if msg.IsEnroll {
		msg.Stamp(StageFrontendSendWorkerEnroll, f.env.Now())
	} else {
		msg.Stamp(StageFrontendSendWorker, f.env.Now())
	}
	return f.networkDelay(f.config.FrontendWorkerLatency, func() error {
		worker.Mailbox().Put(msg)
		if then == nil {
			return nil
		}
		return then()
	})
}

func (f *Frontend) sendToClient(msg *Message) error {
	f.logf("send response %d", msg.ID)
	msg.Stamp(StageFrontendReturn, f.env.Now())
	return f.networkDelay(f.config.ClientFrontendLatency, func() error {
		f.client.Mailbox().Put(msg)
		return nil
	})
}

// fetchSingleProfile loads the single stored profile version into a message
// that must not have one yet.
func (f *Frontend) fetchSingleProfile(msg *Message, then engine.Action) error {
	if msg.HasProfileVersion() {
		return protocolViolation("message %d reached the frontend with profile version %d", msg.ID, msg.ProfileVersion)
	}
	f.logf("fetch database for message %d", msg.ID)
	return f.database.FetchProfile(msg, func() error {
		if !msg.HasProfileVersion() {
			return protocolViolation("fetch profile left message %d without a version", msg.ID)
		}
		return then()
	})
}

// fetchProfileSet loads the stored version set into a message whose set must be empty.
func (f *Frontend) fetchProfileSet(msg *Message, then engine.Action) error {
	if len(msg.ProfileVersions) != 0 {
		return protocolViolation("message %d reached the frontend with profile versions %v", msg.ID, msg.ProfileVersions)
	}
	f.logf("fetch database for message %d", msg.ID)
	return f.database.FetchProfile(msg, func() error {
		if len(msg.ProfileVersions) == 0 {
			return protocolViolation("fetch profile left message %d without versions", msg.ID)
		}
		return then()
	})
}

// resendAfterEnroll persists the version a worker enrolled the user in, then
// routes the request again as an ordinary runtime request.
func (f *Frontend) resendAfterEnroll(msg *Message) error {
	f.logf("update database for message %d", msg.ID)
	return f.database.UpdateProfile(msg, func() error {
		worker, err := f.policy.SelectWorker(f, msg)
		if err != nil {
			return err
		}
		f.recordRouting(msg, worker, trace.OutcomeResend)
		return f.sendToWorker(worker, msg, nil)
	})
}

// recordRouting appends a routing decision to the trace, if tracing is on.
func (f *Frontend) recordRouting(msg *Message, worker Worker, outcome trace.Outcome) {
	if f.stats.Trace == nil {
		return
	}
	profile := slices.Clone(msg.ProfileVersions)
	if len(profile) == 0 && msg.HasProfileVersion() {
		profile = []int{msg.ProfileVersion}
	}
	f.stats.Trace.RecordRouting(trace.RoutingRecord{
		MessageID:       msg.ID,
		UserID:          msg.UserID,
		Clock:           f.env.Now(),
		ChosenWorker:    worker.Name(),
		WorkerVersions:  worker.Versions(),
		ProfileVersions: profile,
		Outcome:         outcome,
	})
}
