package sim

import "github.com/speakerver-sim/speakerver-sim/sim/trace"

// MultiProfilePolicy (SSO-mul) keeps every version a user was ever enrolled
// in. Routing is random; a request re-enrolls in the foreground only when the
// worker's version is missing from the set, and the new version is added
// rather than replacing the old ones.
type MultiProfilePolicy struct{}

func (p *MultiProfilePolicy) Strategy() Strategy {
	return StrategyMultiProfile
}

func (p *MultiProfilePolicy) Setup(*Frontend) error {
	return nil
}

func (p *MultiProfilePolicy) SelectWorker(f *Frontend, _ *Message) (Worker, error) {
	return f.randomWorker(), nil
}

func (p *MultiProfilePolicy) SendWorkerRequest(f *Frontend, msg *Message) error {
	return f.fetchProfileSet(msg, func() error {
		worker, err := f.policy.SelectWorker(f, msg)
		if err != nil {
			return err
		}
		outcome := trace.OutcomeMatch
		if served := worker.NewestVersion(); !msg.EnrolledIn(served) {
			// Newer than everything enrolled is an upgrade; anything else is a gap behind.
			newest := maxVersion(msg.ProfileVersions)
			if served > newest {
				f.stats.ForwardBounceCount++
				outcome = trace.OutcomeForwardBounce
			} else {
				f.stats.BackwardBounceCount++
				outcome = trace.OutcomeBackwardBounce
			}
			msg.IsEnroll = true
		}
		f.recordRouting(msg, worker, outcome)
		return f.sendToWorker(worker, msg, nil)
	})
}

func (p *MultiProfilePolicy) HandleEnrollResponse(f *Frontend, msg *Message) error {
	return f.resendAfterEnroll(msg)
}
