package sim

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// DoubleVersionWorker serves two consecutive versions at once. A rollover
// evicts the oldest and appends one past the newest.
type DoubleVersionWorker struct {
	baseWorker
	versions []int // exactly two, strictly increasing
}

// NewDoubleVersionWorker creates a worker; its versions are set by the network system.
func NewDoubleVersionWorker(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) *DoubleVersionWorker {
	w := &DoubleVersionWorker{baseWorker: newBaseWorker(env, name, config, stats, logger)}
	w.enroll = w.enrollMissingVersion
	w.rollover = func() {
		newest := w.versions[len(w.versions)-1]
		w.versions = []int{newest, newest + 1}
		w.logf("update model versions to %v", w.versions)
	}
	return w
}

// enrollMissingVersion enrolls the message into the first served version it
// is not enrolled in yet.
func (w *DoubleVersionWorker) enrollMissingVersion(msg *Message) error {
	for _, v := range w.versions {
		if !msg.EnrolledIn(v) {
			msg.ProfileVersion = v
			return nil
		}
	}
	return errors.Wrapf(ErrNothingToEnroll, "%s serves %v, message %d already enrolled in %v",
		w.name, w.versions, msg.ID, msg.ProfileVersions)
}

func (w *DoubleVersionWorker) Versions() []int {
	return slices.Clone(w.versions)
}

func (w *DoubleVersionWorker) NewestVersion() int {
	return w.versions[len(w.versions)-1]
}

func (w *DoubleVersionWorker) SetModelVersions(versions []int) error {
	if len(versions) != 2 || versions[0] >= versions[1] {
		return errors.Wrapf(ErrInvalidConfig, "%s needs two increasing versions, got %v", w.name, versions)
	}
	w.versions = slices.Clone(versions)
	return nil
}

func (w *DoubleVersionWorker) Setup() error {
	return w.setup()
}
