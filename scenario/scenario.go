// Package scenario builds multi-step interactions between endpoints out of the harness's
// primitives: spawning, sending commands, and waiting for events.
//
// Every function returns at the first failed step. Nothing is retried.
package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Harness is the subset of *harness.Supervisor that scenarios use.
type Harness interface {
	SpawnEndpoint(role string, config servicedef.EndpointConfig, scenario string) (*harness.Endpoint, error)
	SendCommand(role, command string, params ...map[string]interface{}) error
	WaitFor(role, eventType string, timeout time.Duration) (servicedef.Event, error)
	GetPort(role string) (int, bool)
	CleanupAll() error
}

// ErrUnexpectedEvent means an endpoint sent the expected type of event, but its contents were
// wrong.
var ErrUnexpectedEvent = errors.New("unexpected event")

// StepError describes which step of a scenario failed.
type StepError struct {
	Step string
	Role string
	Err  error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Step, e.Role, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

func stepFailed(step, role string, err error) error {
	return StepError{Step: step, Role: role, Err: err}
}

func unexpected(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedEvent, fmt.Sprintf(format, args...))
}

// request sends a command and waits for the event that acknowledges it.
func request(
	h Harness,
	role, command, replyType string,
	params ...map[string]interface{},
) (servicedef.Event, error) {
	if err := h.SendCommand(role, command, params...); err != nil {
		return servicedef.Event{}, err
	}
	return h.WaitFor(role, replyType, 0)
}

// checkSessionID verifies the sessionId property of an event, if the endpoint included one.
func checkSessionID(e servicedef.Event, expected string) error {
	if got := e.Get("sessionId"); !got.IsNull() && got.StringValue() != expected {
		return unexpected("%s event has sessionId %q, expected %q", e.Type, got.StringValue(), expected)
	}
	return nil
}
