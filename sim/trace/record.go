// Package trace provides decision-trace recording for reconciliation policy analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// Outcome classifies what a routing decision did about version skew.
type Outcome string

const (
	// OutcomeMatch means the chosen worker already serves a version the user is enrolled in.
	OutcomeMatch Outcome = "match"
	// OutcomeForwardBounce means the worker is newer than the profile and a foreground re-enrollment follows.
	OutcomeForwardBounce Outcome = "forward-bounce"
	// OutcomeBackwardBounce means the worker is older than the profile and a foreground re-enrollment follows.
	OutcomeBackwardBounce Outcome = "backward-bounce"
	// OutcomeBackgroundEnroll means the request proceeds and a re-enrollment runs off the critical path.
	OutcomeBackgroundEnroll Outcome = "background-enroll"
	// OutcomeResend is the re-route that follows a completed foreground re-enrollment.
	OutcomeResend Outcome = "resend"
)

// RoutingRecord captures a single worker-selection decision made by the frontend.
type RoutingRecord struct {
	MessageID       int64
	UserID          int
	Clock           float64
	ChosenWorker    string
	WorkerVersions  []int // versions served by the worker at decision time, oldest first
	ProfileVersions []int // versions the user was enrolled in at decision time
	Outcome         Outcome
}

// SyncRecord captures one refresh of the frontend's worker version table.
type SyncRecord struct {
	Clock      float64
	Worker     string
	OldVersion int
	NewVersion int
	Changed    bool // true when the refresh changed the cached version
}
