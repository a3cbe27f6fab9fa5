package sim

import (
	"slices"

	"github.com/pkg/errors"
)

// NoVersion marks an unset profile version. Real versions start at 1.
const NoVersion = 0

// Stage names a hop at which a message is timestamped.
type Stage string

const (
	StageClientSend               Stage = "client_send"
	StageFetchDatabase            Stage = "fetch_database"
	StageFrontendSendWorkerEnroll Stage = "frontend_send_worker_enroll"
	StageUpdateDatabase           Stage = "update_database"
	StageFrontendSendWorker       Stage = "frontend_send_worker"
	StageWorkerReceive            Stage = "worker_receive"
	StageWorkerReturn             Stage = "worker_return"
	StageFrontendReturn           Stage = "frontend_return"
	StageClientReturn             Stage = "client_return"
)

// Timestamp is one entry of a message's timing trace.
type Timestamp struct {
	Stage Stage   `yaml:"stage"`
	Time  float64 `yaml:"time"`
}

// Message is the unit of work flowing client → frontend → worker → frontend → client.
// It is mutated in place as it moves; the timeline is for latency accounting only.
type Message struct {
	ID     int64 `yaml:"msg_id"`
	UserID int   `yaml:"user_id"`

	// Filled by a single-version database fetch, or by a worker on enrollment.
	ProfileVersion int `yaml:"profile_version,omitempty"`
	// Filled by a multi-version database fetch.
	ProfileVersions []int `yaml:"profile_versions,omitempty"`

	IsRequest bool `yaml:"is_request"`
	IsEnroll  bool `yaml:"is_enroll"`

	TotalFlops float64 `yaml:"total_flops"`
	WorkerName string  `yaml:"worker_name"`

	Timeline []Timestamp `yaml:"timeline"`
}

// NewRequest creates a fresh runtime request.
func NewRequest(id int64, userID int) *Message {
	return &Message{
		ID:        id,
		UserID:    userID,
		IsRequest: true,
	}
}

// HasProfileVersion reports whether ProfileVersion is set.
func (m *Message) HasProfileVersion() bool {
	return m.ProfileVersion != NoVersion
}

// EnrolledIn reports whether v is among the fetched profile versions.
func (m *Message) EnrolledIn(v int) bool {
	return slices.Contains(m.ProfileVersions, v)
}

// Stamp appends a timestamp for stage.
func (m *Message) Stamp(stage Stage, now float64) {
	m.Timeline = append(m.Timeline, Timestamp{Stage: stage, Time: now})
}

// StampTime returns the most recent time recorded for stage.
func (m *Message) StampTime(stage Stage) (float64, bool) {
	for i := len(m.Timeline) - 1; i >= 0; i-- {
		if m.Timeline[i].Stage == stage {
			return m.Timeline[i].Time, true
		}
	}
	return 0, false
}

// E2ELatency is the time between the client sending and receiving the message.
func (m *Message) E2ELatency() (float64, error) {
	sent, ok := m.StampTime(StageClientSend)
	if !ok {
		return 0, errors.Errorf("message %d has no client send time", m.ID)
	}
	returned, ok := m.StampTime(StageClientReturn)
	if !ok {
		return 0, errors.Errorf("message %d has no client return time", m.ID)
	}
	return returned - sent, nil
}

// Clone returns a deep copy; the copy shares nothing with m.
func (m *Message) Clone() *Message {
	c := *m
	c.ProfileVersions = slices.Clone(m.ProfileVersions)
	c.Timeline = slices.Clone(m.Timeline)
	return &c
}

// VersionQuery is the out-of-band request/response the SSO-sync frontend uses
// to learn which version a worker serves.
type VersionQuery struct {
	IsRequest  bool
	WorkerName string
	Version    int
}

// NewVersionQuery creates an unanswered query.
func NewVersionQuery() *VersionQuery {
	return &VersionQuery{IsRequest: true}
}

func maxVersion(versions []int) int {
	if len(versions) == 0 {
		return NoVersion
	}
	return slices.Max(versions)
}
