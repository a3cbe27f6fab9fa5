package engine

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrInvalidDelay is returned when a timer is requested with a negative or NaN delay.
var ErrInvalidDelay = errors.New("invalid delay")

// Environment is the discrete-event kernel: it owns virtual time and the event queue.
// Processes are chains of Actions; they suspend only on Timeout and Store.Get.
//
// Thread-safety: NOT thread-safe. All actions run on the goroutine calling Run.
type Environment struct {
	now    float64
	queue  eventQueue
	nextID uint64
	rng    *PartitionedRNG

	// Executed counts processed events, for diagnostics.
	Executed uint64
}

// NewEnvironment creates an environment at time zero whose random streams derive from seed.
func NewEnvironment(seed int64) *Environment {
	return &Environment{
		rng: NewPartitionedRNG(seed),
	}
}

// Now returns the current virtual time.
func (env *Environment) Now() float64 {
	return env.now
}

// RNG returns the partitioned random source of this run.
func (env *Environment) RNG() *PartitionedRNG {
	return env.rng
}

// Pending returns the number of scheduled, not yet executed events.
func (env *Environment) Pending() int {
	return env.queue.Len()
}

func (env *Environment) newEventID() uint64 {
	env.nextID++
	return env.nextID
}

// Timeout resumes action after delay units of virtual time.
func (env *Environment) Timeout(delay float64, action Action) error {
	if delay < 0 || math.IsNaN(delay) {
		return errors.Wrapf(ErrInvalidDelay, "delay %v at t=%v", delay, env.now)
	}
	env.queue.schedule(&Event{
		Time:   env.now + delay,
		ID:     env.newEventID(),
		Action: action,
	})
	return nil
}

// Process spawns a new process. It starts in its own event at the current time,
// after everything already scheduled for now.
func (env *Environment) Process(action Action) {
	env.queue.schedule(&Event{
		Time:   env.now,
		ID:     env.newEventID(),
		Action: action,
	})
}

// Run processes events in time order until the next event is at or past until,
// or the queue drains. The first error returned by an action aborts the run.
func (env *Environment) Run(until float64) error {
	for env.queue.Len() > 0 {
		next := env.queue.peek()
		if next.Time >= until {
			break
		}
		ev := env.queue.next()
		if ev.Time < env.now {
			return errors.Errorf("clock went backwards: %v < %v", ev.Time, env.now)
		}
		env.now = ev.Time
		logrus.Tracef("[t=%.5f] executing event %d", env.now, ev.ID)
		env.Executed++
		if err := ev.Action(); err != nil {
			return errors.Wrapf(err, "simulation aborted at t=%.5f", env.now)
		}
	}
	if until > env.now && !math.IsInf(until, 1) {
		env.now = until
	}
	return nil
}
