package sim

// UserHashPolicy (SSO-hash) reconciles like SSO but pins every user to the
// worker at user_id mod worker_count. A user can only ever see its own
// worker's versions, which never go backwards, so backward bounces cannot happen.
type UserHashPolicy struct {
	ForegroundReenrollPolicy
}

func (p *UserHashPolicy) Strategy() Strategy {
	return StrategyHash
}

func (p *UserHashPolicy) SelectWorker(f *Frontend, msg *Message) (Worker, error) {
	return f.workers[msg.UserID%len(f.workers)], nil
}
