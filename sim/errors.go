package sim

import "github.com/pkg/errors"

// Protocol invariant violations: a message reached a stage in a state the
// protocol guarantees is impossible. They abort the run; nothing retries.
var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrNothingToEnroll   = errors.New("no version to enroll")
)

// Configuration errors.
var (
	ErrInvalidConfig       = errors.New("invalid config")
	ErrUnknownStrategy     = errors.New("unknown strategy")
	ErrUnknownUser         = errors.New("unknown user")
	ErrNoCompletedMessages = errors.New("no completed messages")
)

func protocolViolation(format string, args ...any) error {
	return errors.Wrapf(ErrProtocolViolation, format, args...)
}
