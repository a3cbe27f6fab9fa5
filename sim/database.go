package sim

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
)

// ProfileStore is the user-profile database. Both operations are latency
// gated: they suspend for one I/O delay and then resume with then.
type ProfileStore interface {
	Name() string
	// FetchProfile fills the message's profile version(s) for its user.
	FetchProfile(msg *Message, then engine.Action) error
	// UpdateProfile records msg.ProfileVersion for its user.
	UpdateProfile(msg *Message, then engine.Action) error
}

// checkRuntimeRequest gates database access to ordinary runtime requests.
func checkRuntimeRequest(msg *Message, op string) error {
	if !msg.IsRequest {
		return protocolViolation("%s: message %d is not a request", op, msg.ID)
	}
	if msg.IsEnroll {
		return protocolViolation("%s: message %d is an enrollment", op, msg.ID)
	}
	return nil
}

// SingleVersionDatabase keeps one enrolled version per user.
type SingleVersionDatabase struct {
	Actor
	data map[int]int
}

// NewSingleVersionDatabase creates an empty database; call Create before use.
func NewSingleVersionDatabase(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) *SingleVersionDatabase {
	return &SingleVersionDatabase{
		Actor: newActor(env, name, config, stats, logger),
		data:  make(map[int]int),
	}
}

// Create enrolls every user in [0, num_users) at initVersion.
func (d *SingleVersionDatabase) Create(initVersion int) {
	d.data = make(map[int]int, d.config.NumUsers)
	for userID := 0; userID < d.config.NumUsers; userID++ {
		d.data[userID] = initVersion
	}
}

// Version returns the stored version of a user.
func (d *SingleVersionDatabase) Version(userID int) (int, bool) {
	v, ok := d.data[userID]
	return v, ok
}

func (d *SingleVersionDatabase) FetchProfile(msg *Message, then engine.Action) error {
	if err := checkRuntimeRequest(msg, "fetch profile"); err != nil {
		return err
	}
	msg.Stamp(StageFetchDatabase, d.env.Now())
	return d.networkDelay(d.config.DatabaseReadLatency, func() error {
		v, ok := d.data[msg.UserID]
		if !ok {
			return errors.Wrapf(ErrUnknownUser, "missing profile for user %d", msg.UserID)
		}
		msg.ProfileVersion = v
		return then()
	})
}

func (d *SingleVersionDatabase) UpdateProfile(msg *Message, then engine.Action) error {
	if err := checkRuntimeRequest(msg, "update profile"); err != nil {
		return err
	}
	msg.Stamp(StageUpdateDatabase, d.env.Now())
	return d.networkDelay(d.config.DatabaseWriteLatency, func() error {
		if _, ok := d.data[msg.UserID]; !ok {
			return errors.Wrapf(ErrUnknownUser, "missing profile for user %d", msg.UserID)
		}
		if !msg.HasProfileVersion() {
			return protocolViolation("update profile: message %d has no profile version", msg.ID)
		}
		d.data[msg.UserID] = msg.ProfileVersion
		d.logf("user %d profile now v%d", msg.UserID, msg.ProfileVersion)
		return then()
	})
}

// MultiVersionDatabase keeps every version a user has been enrolled in.
type MultiVersionDatabase struct {
	Actor
	data map[int][]int
}

// NewMultiVersionDatabase creates an empty database; call Create before use.
func NewMultiVersionDatabase(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) *MultiVersionDatabase {
	return &MultiVersionDatabase{
		Actor: newActor(env, name, config, stats, logger),
		data:  make(map[int][]int),
	}
}

// Create enrolls every user in [0, num_users) at initVersions. Each user gets its own copy.
func (d *MultiVersionDatabase) Create(initVersions []int) {
	d.data = make(map[int][]int, d.config.NumUsers)
	for userID := 0; userID < d.config.NumUsers; userID++ {
		d.data[userID] = slices.Clone(initVersions)
	}
}

// Versions returns a copy of the stored versions of a user.
func (d *MultiVersionDatabase) Versions(userID int) ([]int, bool) {
	v, ok := d.data[userID]
	return slices.Clone(v), ok
}

func (d *MultiVersionDatabase) FetchProfile(msg *Message, then engine.Action) error {
	if err := checkRuntimeRequest(msg, "fetch profile"); err != nil {
		return err
	}
	msg.Stamp(StageFetchDatabase, d.env.Now())
	return d.networkDelay(d.config.DatabaseReadLatency, func() error {
		versions, ok := d.data[msg.UserID]
		if !ok {
			return errors.Wrapf(ErrUnknownUser, "missing profile for user %d", msg.UserID)
		}
		msg.ProfileVersions = slices.Clone(versions)
		return then()
	})
}

// UpdateProfile adds msg.ProfileVersion to the user's set; a version already
// present is not duplicated.
func (d *MultiVersionDatabase) UpdateProfile(msg *Message, then engine.Action) error {
	if err := checkRuntimeRequest(msg, "update profile"); err != nil {
		return err
	}
	msg.Stamp(StageUpdateDatabase, d.env.Now())
	return d.networkDelay(d.config.DatabaseWriteLatency, func() error {
		if !msg.HasProfileVersion() {
			return protocolViolation("update profile: message %d has no profile version", msg.ID)
		}
		versions, ok := d.data[msg.UserID]
		if !ok {
			return errors.Wrapf(ErrUnknownUser, "missing profile for user %d", msg.UserID)
		}
		if !slices.Contains(versions, msg.ProfileVersion) {
			d.data[msg.UserID] = append(versions, msg.ProfileVersion)
			d.logf("user %d enrolled in v%d", msg.UserID, msg.ProfileVersion)
		}
		return then()
	})
}
