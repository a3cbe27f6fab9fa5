package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleVersionWorker_RollsUntilLimit(t *testing.T) {
	// GIVEN a worker that rolls every ~1s, at most 3 times
	cfg := testConfig(StrategyForeground)
	cfg.WorkerUpdateMeanTime = 1
	cfg.MaxWorkerUpdates = 3
	rig := newTestRig(cfg)
	w := rig.singleWorker(t, "worker-0", 1)
	require.NoError(t, w.Setup())

	// WHEN the clock runs far past the expected rollovers
	require.NoError(t, rig.env.Run(1000))

	// THEN it stopped at the limit
	assert.Equal(t, 3, w.Updates())
	assert.Equal(t, 4, w.NewestVersion())
	assert.Equal(t, []int{4}, w.Versions())
}

func TestSingleVersionWorker_SetModelVersionsNeedsOne(t *testing.T) {
	rig := newTestRig(testConfig(StrategyForeground))
	w := NewSingleVersionWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)
	assert.ErrorIs(t, w.SetModelVersions([]int{1, 2}), ErrInvalidConfig)
	assert.ErrorIs(t, w.SetModelVersions(nil), ErrInvalidConfig)
}

func TestSingleVersionWorker_EnrollsAndReturns(t *testing.T) {
	// GIVEN a worker at v3 wired to a frontend
	cfg := testConfig(StrategyForeground)
	cfg.WorkerUpdateMeanTime = 1e9
	rig := newTestRig(cfg)
	w := rig.singleWorker(t, "worker-0", 3)
	f := rig.frontend(&ForegroundReenrollPolicy{}, w)
	require.NoError(t, w.Setup())

	// WHEN an enrollment request arrives
	msg := NewRequest(1, 0)
	msg.IsEnroll = true
	w.Mailbox().Put(msg)
	require.NoError(t, rig.env.Run(10))

	// THEN it comes back to the frontend enrolled in v3, charged one inference
	require.Equal(t, 1, f.Mailbox().Len())
	assert.Equal(t, 3, msg.ProfileVersion)
	assert.False(t, msg.IsRequest)
	assert.True(t, msg.IsEnroll)
	assert.Equal(t, "worker-0", msg.WorkerName)
	assert.Equal(t, cfg.FlopsPerInference, msg.TotalFlops)
	assert.Len(t, rig.stats.Workload["worker-0"], 1)
}

func TestWorker_ResponseInMailboxIsFatal(t *testing.T) {
	cfg := testConfig(StrategyForeground)
	cfg.WorkerUpdateMeanTime = 1e9
	rig := newTestRig(cfg)
	w := rig.singleWorker(t, "worker-0", 1)
	require.NoError(t, w.Setup())

	msg := NewRequest(1, 0)
	msg.IsRequest = false
	w.Mailbox().Put(msg)

	assert.ErrorIs(t, rig.env.Run(10), ErrProtocolViolation)
}

func TestVersionSyncWorker_AnswersQueries(t *testing.T) {
	// GIVEN a sync worker at v3
	cfg := testConfig(StrategySync)
	cfg.WorkerUpdateMeanTime = 1e9
	rig := newTestRig(cfg)
	w := NewVersionSyncWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)
	require.NoError(t, w.SetModelVersions([]int{3}))
	f := rig.frontend(&VersionSyncPolicy{}, w)
	require.NoError(t, w.Setup())

	var answer *VersionQuery
	f.QueryPool().Get(func(q *VersionQuery) error {
		answer = q
		return nil
	})

	// WHEN a query is sent
	w.Queries().Put(NewVersionQuery())
	require.NoError(t, rig.env.Run(10))

	// THEN the answer lands in the frontend's query pool
	require.NotNil(t, answer)
	assert.False(t, answer.IsRequest)
	assert.Equal(t, "worker-0", answer.WorkerName)
	assert.Equal(t, 3, answer.Version)
}

func TestVersionSyncWorker_AnsweredQueryIsFatal(t *testing.T) {
	cfg := testConfig(StrategySync)
	cfg.WorkerUpdateMeanTime = 1e9
	rig := newTestRig(cfg)
	w := NewVersionSyncWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)
	require.NoError(t, w.SetModelVersions([]int{1}))
	rig.frontend(&VersionSyncPolicy{}, w)
	require.NoError(t, w.Setup())

	w.Queries().Put(&VersionQuery{IsRequest: false, WorkerName: "x", Version: 1})
	assert.ErrorIs(t, rig.env.Run(10), ErrProtocolViolation)
}

func TestDoubleVersionWorker_VersionsStayAPairOfConsecutiveVersions(t *testing.T) {
	// GIVEN a double-version worker rolling every ~1s
	cfg := testConfig(StrategyDoubleVersion)
	cfg.WorkerUpdateMeanTime = 1
	rig := newTestRig(cfg)
	w := NewDoubleVersionWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)
	require.NoError(t, w.SetModelVersions([]int{1, 2}))
	require.NoError(t, w.Setup())

	// WHEN sampled every 0.5s across many rollovers
	var violations []string
	var check func() error
	check = func() error {
		v := w.Versions()
		if len(v) != 2 || v[0] >= v[1] {
			violations = append(violations, "bad pair")
		}
		return rig.env.Timeout(0.5, check)
	}
	rig.env.Process(check)
	require.NoError(t, rig.env.Run(200))

	// THEN the pair is always two strictly increasing versions
	assert.Empty(t, violations)
	assert.Greater(t, w.Updates(), 10)
	assert.Equal(t, []int{w.Updates() + 1, w.Updates() + 2}, w.Versions())
}

func TestDoubleVersionWorker_SetModelVersionsValidates(t *testing.T) {
	rig := newTestRig(testConfig(StrategyDoubleVersion))
	w := NewDoubleVersionWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)

	assert.ErrorIs(t, w.SetModelVersions([]int{1}), ErrInvalidConfig)
	assert.ErrorIs(t, w.SetModelVersions([]int{2, 2}), ErrInvalidConfig)
	assert.ErrorIs(t, w.SetModelVersions([]int{3, 1}), ErrInvalidConfig)
	require.NoError(t, w.SetModelVersions([]int{4, 5}))
	assert.Equal(t, 5, w.NewestVersion())
}

func TestDoubleVersionWorker_EnrollMissingVersion(t *testing.T) {
	rig := newTestRig(testConfig(StrategyDoubleVersion))
	w := NewDoubleVersionWorker(rig.env, "worker-0", rig.config, rig.stats, rig.logger)
	require.NoError(t, w.SetModelVersions([]int{2, 3}))

	tests := []struct {
		name     string
		enrolled []int
		want     int
		wantErr  error
	}{
		{name: "none enrolled takes oldest", enrolled: []int{1}, want: 2},
		{name: "oldest enrolled takes newest", enrolled: []int{1, 2}, want: 3},
		{name: "both enrolled", enrolled: []int{2, 3}, wantErr: ErrNothingToEnroll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewRequest(1, 0)
			msg.ProfileVersions = tt.enrolled
			err := w.enrollMissingVersion(msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.ProfileVersion)
		})
	}
}
