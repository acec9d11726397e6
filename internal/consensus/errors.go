package consensus

import "errors"

// Errors surfaced to callers. Everything else (durable-write
// failures, worker-creation failures) is fatal and never returned —
// see the OnFatal wiring in lifecycle.go.
var (
	// ErrElectionDisabled is returned by wait_term_outcome when Raft
	// becomes disabled while the wait is pending.
	ErrElectionDisabled = errors.New("consensus: election disabled")

	// ErrCancelled is returned by the term-wait primitives when their
	// caller's context is cancelled before the wait resolves.
	ErrCancelled = errors.New("consensus: waiter cancelled")

	// ErrNotInitialized is the use-before-init assertion-level error:
	// calling the public surface before Init or after Close.
	ErrNotInitialized = errors.New("consensus: node not initialized")
)
