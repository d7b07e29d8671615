package endpointtests

import (
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/scenario"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Endpoints is the set of endpoint processes belonging to one test. They are all shut down when
// the test exits.
type Endpoints struct {
	supervisor *harness.Supervisor
}

// NewEndpoints creates a Supervisor for the current test and spawns the specified endpoints in
// order. Harness activity is written to the test's debug output.
func NewEndpoints(t *ldtest.T, specs ...scenario.EndpointSpec) *Endpoints {
	c := requireContext(t)
	logger := t.DebugLogger()
	if c.logger != nil {
		logger = framework.MultiLogger(logger, framework.PrefixedLogger(c.logger, "["+t.ID().String()+"] "))
	}
	s, err := harness.NewSupervisor(c.config, logger)
	require.NoError(t, err)
	t.Defer(func() {
		if err := s.CleanupAll(); err != nil {
			t.Errorf("endpoints were not shut down cleanly: %s", err)
		}
	})
	require.NoError(t, scenario.SpawnAll(s, specs...))
	return &Endpoints{supervisor: s}
}

// NewEndpointPair spawns the conventional active and passive endpoints.
func NewEndpointPair(t *ldtest.T, scenarioName string) *Endpoints {
	return NewEndpoints(t, scenario.DefaultSpecs(scenarioName)...)
}

// NewConnectedPair spawns the conventional pair, creates a session on each, and completes the
// session description handshake between them.
func NewConnectedPair(t *ldtest.T, scenarioName string) (*Endpoints, scenario.Negotiation) {
	e := NewEndpointPair(t, scenarioName)
	result, err := scenario.Connect(e.supervisor, scenario.DefaultPair())
	require.NoError(t, err)
	return e, result
}

func (e *Endpoints) Harness() *harness.Supervisor {
	return e.supervisor
}

func (e *Endpoints) Send(t *ldtest.T, role, command string, params ...map[string]interface{}) {
	require.NoError(t, e.supervisor.SendCommand(role, command, params...))
}

// RequireEvent waits for the next event of the given type from an endpoint, failing the test if
// none arrives within the wait timeout.
func (e *Endpoints) RequireEvent(t *ldtest.T, role, eventType string) servicedef.Event {
	event, err := e.supervisor.WaitFor(role, eventType, 0)
	require.NoError(t, err, "expected %q event from %s endpoint", eventType, role)
	t.Debug("received from %s: %s", role, event)
	return event
}

// RequireError waits for the next error event from an endpoint and checks that its message
// contains the expected text.
func (e *Endpoints) RequireError(t *ldtest.T, role, expectedText string) servicedef.Event {
	event := e.RequireEvent(t, role, servicedef.EventError)
	assert.Contains(t, event.ErrorMessage(), expectedText)
	return event
}

// RequireNoEvent fails the test if an event of the given type arrives within the specified time.
func (e *Endpoints) RequireNoEvent(t *ldtest.T, role, eventType string, within time.Duration) {
	event, err := e.supervisor.WaitFor(role, eventType, within)
	if err == nil {
		require.Fail(t, "received unexpected event", "from %s endpoint: %s", role, event)
	}
	require.True(t, errors.Is(err, harness.ErrWaitTimeout), "unexpected error: %s", err)
}

// RequireMessages returns every event of the given type that an endpoint has emitted so far.
func (e *Endpoints) RequireMessages(t *ldtest.T, role, eventType string) []servicedef.Event {
	events, err := e.supervisor.GetMessages(role, eventType)
	require.NoError(t, err)
	return events
}

func (e *Endpoints) RequirePort(t *ldtest.T, role string) int {
	port, ok := e.supervisor.GetPort(role)
	require.True(t, ok, "%s endpoint has no port", role)
	return port
}

func (e *Endpoints) CreateSession(t *ldtest.T, role, sessionID string) {
	require.NoError(t, scenario.CreateSession(e.supervisor, role, sessionID))
}

func (e *Endpoints) RequireStatus(t *ldtest.T, role string) scenario.Status {
	status, err := scenario.GetStatus(e.supervisor, role)
	require.NoError(t, err)
	return status
}

// RequireExit waits for an endpoint process to exit, failing the test if it is still running
// after the specified time. The endpoint may already have been removed from the harness.
func RequireExit(t *ldtest.T, endpoint *harness.Endpoint, within time.Duration) {
	deadline := time.NewTimer(within)
	defer deadline.Stop()
	select {
	case <-endpoint.Exited():
	case <-deadline.C:
		require.Fail(t, "endpoint did not exit", "%s endpoint was still running after %s", endpoint.Role(), within)
	}
}

func (e *Endpoints) RequireEndpoint(t *ldtest.T, role string) *harness.Endpoint {
	endpoint, ok := e.supervisor.Endpoint(role)
	require.True(t, ok, "%s endpoint is not running", role)
	return endpoint
}
