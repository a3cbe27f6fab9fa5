package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// Actor is the state every participant shares: a name, the run's config and
// stats, its own random stream, and one inbound mailbox.
type Actor struct {
	name    string
	env     *engine.Environment
	config  *Config
	stats   *GlobalStats
	rng     *rand.Rand
	mailbox *engine.Store[*Message]
	logger  *logrus.Entry
}

func newActor(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) Actor {
	return Actor{
		name:    name,
		env:     env,
		config:  config,
		stats:   stats,
		rng:     env.RNG().Stream(name),
		mailbox: engine.NewStore[*Message](env),
		logger:  logger.WithField("actor", name),
	}
}

// Name returns the actor's name.
func (a *Actor) Name() string {
	return a.name
}

// Mailbox returns the actor's inbound message store.
func (a *Actor) Mailbox() *engine.Store[*Message] {
	return a.mailbox
}

// logf logs a protocol step at info level, stamped with the current virtual time.
func (a *Actor) logf(format string, args ...any) {
	if !a.logger.Logger.IsLevelEnabled(logrus.InfoLevel) {
		return
	}
	a.logger.WithField("t", a.env.Now()).Infof(format, args...)
}

// networkDelay suspends for one network hop (or I/O) whose mean latency is mu.
func (a *Actor) networkDelay(mu float64, then engine.Action) error {
	return a.env.Timeout(engine.GaussianDelay(a.rng, mu), then)
}

// newRunLogger creates the logger shared by all actors of one run. It writes
// wherever the standard logger does, at the level log_verbosity selects.
func newRunLogger(cfg *Config) *logrus.Logger {
	std := logrus.StandardLogger()
	logger := logrus.New()
	logger.SetOutput(std.Out)
	logger.SetFormatter(std.Formatter)
	logger.SetLevel(cfg.LogLevel())
	return logger
}
