package scenario

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

type sentCommand struct {
	role   string
	params map[string]interface{}
}

func (c sentCommand) name() string {
	s, _ := c.params["command"].(string)
	return s
}

func (c sentCommand) get(key string) string {
	s, _ := c.params[key].(string)
	return s
}

// scriptedHarness answers commands immediately with whatever events its responder returns,
// without starting any processes.
type scriptedHarness struct {
	events   *harness.Correlator
	respond  func(cmd sentCommand) []servicedef.Event
	commands []sentCommand
	ports    map[string]int
	nextPort int
	cleanups int
	lock     sync.Mutex
}

func newScriptedHarness(t *testing.T, roles ...string) *scriptedHarness {
	h := &scriptedHarness{
		events:   harness.NewCorrelator(time.Millisecond * 200),
		respond:  wellBehaved,
		ports:    make(map[string]int),
		nextPort: 7000,
	}
	for _, role := range roles {
		_, err := h.SpawnEndpoint(role, servicedef.DefaultEndpointConfig(role), "")
		require.NoError(t, err)
	}
	return h
}

func (h *scriptedHarness) SpawnEndpoint(role string, _ servicedef.EndpointConfig, _ string) (*harness.Endpoint, error) {
	if err := h.events.Register(role); err != nil {
		return nil, err
	}
	h.lock.Lock()
	h.nextPort++
	h.ports[role] = h.nextPort
	h.lock.Unlock()
	return nil, nil
}

func (h *scriptedHarness) SendCommand(role, command string, params ...map[string]interface{}) error {
	if !h.events.IsRegistered(role) {
		return fmt.Errorf("%w: %q", harness.ErrUnknownEndpoint, role)
	}
	data, err := servicedef.EncodeCommand(command, params...)
	if err != nil {
		return err
	}
	cmd := sentCommand{role: role}
	if err := json.Unmarshal(data, &cmd.params); err != nil {
		return err
	}
	h.lock.Lock()
	h.commands = append(h.commands, cmd)
	h.lock.Unlock()
	// Responses go through the same encoding and parsing as real endpoint output.
	for _, e := range h.respond(cmd) {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		parsed, err := servicedef.ParseEvent(line)
		if err != nil {
			return err
		}
		if err := h.events.Publish(role, parsed); err != nil {
			return err
		}
	}
	return nil
}

func (h *scriptedHarness) WaitFor(role, eventType string, timeout time.Duration) (servicedef.Event, error) {
	return h.events.WaitFor(role, eventType, timeout)
}

func (h *scriptedHarness) GetPort(role string) (int, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	port, ok := h.ports[role]
	return port, ok
}

func (h *scriptedHarness) CleanupAll() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for role := range h.ports {
		h.events.Unregister(role)
	}
	h.ports = make(map[string]int)
	h.cleanups++
	return nil
}

func (h *scriptedHarness) sent() []sentCommand {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]sentCommand(nil), h.commands...)
}

func event(eventType string, fields map[string]interface{}) servicedef.Event {
	return servicedef.NewEvent(eventType, fields)
}

func fakeSDP(role, sessionID string) string {
	return fmt.Sprintf("v=0\r\ns=%s\r\na=path:msrp://127.0.0.1:1/%s;tcp\r\n", role, sessionID)
}

// wellBehaved responds the way a correct endpoint would.
func wellBehaved(cmd sentCommand) []servicedef.Event {
	sessionID := cmd.get("sessionId")
	switch cmd.name() {
	case servicedef.CommandCreateSession:
		return []servicedef.Event{event(servicedef.EventSessionCreated, map[string]interface{}{"sessionId": sessionID})}
	case servicedef.CommandGenerateSDP:
		return []servicedef.Event{event(servicedef.EventSDPGenerated, map[string]interface{}{
			"sessionId": sessionID, "sdp": fakeSDP(cmd.role, sessionID),
		})}
	case servicedef.CommandSetRemoteSDP:
		return []servicedef.Event{event(servicedef.EventRemoteSDPSet, map[string]interface{}{"sessionId": sessionID})}
	case servicedef.CommandSendMessage:
		return []servicedef.Event{event(servicedef.EventMessageSent, map[string]interface{}{
			"sessionId": sessionID, "content": cmd.get("content"),
		})}
	case servicedef.CommandGetStatus:
		return []servicedef.Event{event(servicedef.EventStatus, map[string]interface{}{
			"role": cmd.role, "port": 7001, "serverListening": true, "sessions": []interface{}{"a", "b"},
		})}
	}
	return []servicedef.Event{event(servicedef.EventError, map[string]interface{}{
		"error": "Unknown command: " + cmd.name(),
	})}
}

// except wraps a responder so that commands with the given name are answered by override.
func except(command string, override func(cmd sentCommand) []servicedef.Event) func(sentCommand) []servicedef.Event {
	return func(cmd sentCommand) []servicedef.Event {
		if cmd.name() == command {
			return override(cmd)
		}
		return wellBehaved(cmd)
	}
}

func ignore(sentCommand) []servicedef.Event { return nil }
