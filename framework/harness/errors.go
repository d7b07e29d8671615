package harness

import "errors"

// These errors are returned, wrapped with more specific information, by harness operations.
// Use errors.Is to check for them.
var (
	// ErrSpawnFailure means an endpoint process could not be started, or exited before it
	// reported that it was ready.
	ErrSpawnFailure = errors.New("endpoint process failed to start")

	// ErrSpawnTimeout means an endpoint process did not report that it was ready in time.
	ErrSpawnTimeout = errors.New("timed out waiting for endpoint to become ready")

	// ErrUnknownEndpoint means an operation referred to a role that has no live endpoint.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrDuplicateEndpoint means a role was spawned while an endpoint for it was still live.
	ErrDuplicateEndpoint = errors.New("endpoint is already running")

	// ErrWaitTimeout means an awaited event did not arrive in time.
	ErrWaitTimeout = errors.New("timed out waiting for event")

	// ErrPortExhaustion means no free port was found within the attempt budget.
	ErrPortExhaustion = errors.New("no free port available")
)
