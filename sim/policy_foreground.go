package sim

import "github.com/speakerver-sim/speakerver-sim/sim/trace"

// ForegroundReenrollPolicy (SSO) routes uniformly at random. When the chosen
// worker serves a different version than the user's profile, the request is
// turned into an enrollment and the user waits for the whole round trip:
// enroll, write the database, route again, run the real request.
type ForegroundReenrollPolicy struct{}

func (p *ForegroundReenrollPolicy) Strategy() Strategy {
	return StrategyForeground
}

func (p *ForegroundReenrollPolicy) Setup(*Frontend) error {
	return nil
}

func (p *ForegroundReenrollPolicy) SelectWorker(f *Frontend, _ *Message) (Worker, error) {
	return f.randomWorker(), nil
}

func (p *ForegroundReenrollPolicy) SendWorkerRequest(f *Frontend, msg *Message) error {
	return sendSingleVersionRequest(f, msg)
}

func (p *ForegroundReenrollPolicy) HandleEnrollResponse(f *Frontend, msg *Message) error {
	return f.resendAfterEnroll(msg)
}

// sendSingleVersionRequest is the request path shared by the strategies
// backed by a single-version database; only worker selection differs.
func sendSingleVersionRequest(f *Frontend, msg *Message) error {
	return f.fetchSingleProfile(msg, func() error {
		worker, err := f.policy.SelectWorker(f, msg)
		if err != nil {
			return err
		}
		outcome := trace.OutcomeMatch
		if served := worker.NewestVersion(); served != msg.ProfileVersion {
			f.stats.RecordBounce(served, msg.ProfileVersion)
			outcome = bounceOutcome(served, msg.ProfileVersion)
			msg.IsEnroll = true
		}
		f.recordRouting(msg, worker, outcome)
		return f.sendToWorker(worker, msg, nil)
	})
}

func bounceOutcome(workerVersion, profileVersion int) trace.Outcome {
	if workerVersion < profileVersion {
		return trace.OutcomeBackwardBounce
	}
	return trace.OutcomeForwardBounce
}
