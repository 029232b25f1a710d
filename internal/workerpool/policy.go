package workerpool

import (
	"github.com/cockroachdb/errors"

	"github.com/angeloszaimis/exception-flow/config"
)

// RejectionPolicy decides what happens to a task the pool has no room for.
type RejectionPolicy string

const (
	// CallerRuns runs the task on the submitting goroutine, which throttles
	// the submitter.
	CallerRuns RejectionPolicy = config.PolicyCallerRuns
	// Abort refuses the task with ErrRejected.
	Abort RejectionPolicy = config.PolicyAbort
	// Discard drops the task silently.
	Discard RejectionPolicy = config.PolicyDiscard
	// DiscardOldest drops the oldest queued task and queues the new one.
	DiscardOldest RejectionPolicy = config.PolicyDiscardOldest
)

func ParsePolicy(s string) (RejectionPolicy, error) {
	switch p := RejectionPolicy(s); p {
	case CallerRuns, Abort, Discard, DiscardOldest:
		return p, nil
	case "":
		return CallerRuns, nil
	default:
		return "", errors.Newf("unknown rejection policy %q", s)
	}
}
