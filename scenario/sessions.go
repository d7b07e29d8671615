package scenario

import (
	"fmt"
	"sort"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// CreateSession asks an endpoint to create a session and waits for it to confirm.
func CreateSession(h Harness, role, sessionID string) error {
	step := fmt.Sprintf("create session %q", sessionID)
	e, err := request(h, role, servicedef.CommandCreateSession, servicedef.EventSessionCreated,
		servicedef.SessionParams(sessionID))
	if err != nil {
		return stepFailed(step, role, err)
	}
	if got := e.GetString("sessionId"); got != sessionID {
		return stepFailed(step, role, unexpected("session_created for %q", got))
	}
	return nil
}

// CreateSessions asks an endpoint to create several sessions without waiting in between, then
// waits for a session_created event for each of them. The events may arrive in any order, but
// each requested ID must be confirmed exactly once.
func CreateSessions(h Harness, role string, sessionIDs []string) error {
	if err := sendCreateSessions(h, role, sessionIDs); err != nil {
		return err
	}
	return awaitSessionsCreated(h, role, sessionIDs)
}

func sendCreateSessions(h Harness, role string, sessionIDs []string) error {
	for _, id := range sessionIDs {
		if err := h.SendCommand(role, servicedef.CommandCreateSession, servicedef.SessionParams(id)); err != nil {
			return stepFailed(fmt.Sprintf("create session %q", id), role, err)
		}
	}
	return nil
}

func awaitSessionsCreated(h Harness, role string, sessionIDs []string) error {
	step := fmt.Sprintf("create %d sessions", len(sessionIDs))
	pending := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		pending[id] = true
	}
	for range sessionIDs {
		e, err := h.WaitFor(role, servicedef.EventSessionCreated, 0)
		if err != nil {
			return stepFailed(step, role, fmt.Errorf("%w (still waiting for %v)", err, sortedKeys(pending)))
		}
		id := e.GetString("sessionId")
		if !pending[id] {
			return stepFailed(step, role, unexpected("session_created for %q, which was not requested or was already confirmed", id))
		}
		delete(pending, id)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
