package sim

import (
	"github.com/pkg/errors"

	"github.com/speakerver-sim/speakerver-sim/sim/trace"
)

// BackgroundReenrollPolicy (SD) pairs with double-version workers. The
// request is always served right away; when the worker's newest version is
// not enrolled yet, a copy of the request enrolls in the background. The
// user-visible path never bounces.
type BackgroundReenrollPolicy struct {
	// Original messages waiting for their background enrollment's compute,
	// keyed by message id. Entries are removed once folded.
	pending map[int64]*Message
}

func (p *BackgroundReenrollPolicy) Strategy() Strategy {
	return StrategyDoubleVersion
}

func (p *BackgroundReenrollPolicy) Setup(*Frontend) error {
	p.pending = make(map[int64]*Message)
	return nil
}

// Pending returns the number of background enrollments not yet folded back.
func (p *BackgroundReenrollPolicy) Pending() int {
	return len(p.pending)
}

func (p *BackgroundReenrollPolicy) SelectWorker(f *Frontend, _ *Message) (Worker, error) {
	return f.randomWorker(), nil
}

func (p *BackgroundReenrollPolicy) SendWorkerRequest(f *Frontend, msg *Message) error {
	return f.fetchProfileSet(msg, func() error {
		worker, err := f.policy.SelectWorker(f, msg)
		if err != nil {
			return err
		}
		return f.sendToWorker(worker, msg, func() error {
			if msg.EnrolledIn(worker.NewestVersion()) {
				f.recordRouting(msg, worker, trace.OutcomeMatch)
				return nil
			}
			f.recordRouting(msg, worker, trace.OutcomeBackgroundEnroll)
			enrollMsg := msg.Clone()
			enrollMsg.IsEnroll = true
			enrollMsg.TotalFlops = 0
			if _, dup := p.pending[msg.ID]; dup {
				return protocolViolation("message %d already has a background enrollment", msg.ID)
			}
			p.pending[msg.ID] = msg
			f.env.Process(func() error { return f.sendToWorker(worker, enrollMsg, nil) })
			return nil
		})
	})
}

// HandleEnrollResponse folds the enrollment's compute into the original
// message and writes the new version; it never dispatches to a worker.
func (p *BackgroundReenrollPolicy) HandleEnrollResponse(f *Frontend, msg *Message) error {
	original, ok := p.pending[msg.ID]
	if !ok {
		return errors.Wrapf(ErrProtocolViolation, "enrollment response %d has no pending original", msg.ID)
	}
	original.TotalFlops += msg.TotalFlops
	delete(p.pending, msg.ID)
	f.logf("update database for message %d", msg.ID)
	return f.database.UpdateProfile(msg, func() error { return nil })
}
