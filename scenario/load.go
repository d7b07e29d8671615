package scenario

import "fmt"

// LoadSessionID is the session ID used for the i'th session of a role in the load scenario.
func LoadSessionID(role string, i int) string {
	return fmt.Sprintf("%s_session_%d", role, i)
}

// Load creates n sessions on each of two endpoints, waits until every session has been
// confirmed, and then negotiates each active session with the passive session of the same
// index. It returns the pairs that were connected, in order.
func Load(h Harness, active, passive string, n int) ([]Pair, error) {
	pairs := make([]Pair, 0, n)
	activeIDs := make([]string, 0, n)
	passiveIDs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := Pair{
			Active:         active,
			Passive:        passive,
			ActiveSession:  LoadSessionID(active, i),
			PassiveSession: LoadSessionID(passive, i),
		}
		pairs = append(pairs, p)
		activeIDs = append(activeIDs, p.ActiveSession)
		passiveIDs = append(passiveIDs, p.PassiveSession)
	}

	if err := sendCreateSessions(h, active, activeIDs); err != nil {
		return nil, err
	}
	if err := sendCreateSessions(h, passive, passiveIDs); err != nil {
		return nil, err
	}
	if err := awaitSessionsCreated(h, active, activeIDs); err != nil {
		return nil, err
	}
	if err := awaitSessionsCreated(h, passive, passiveIDs); err != nil {
		return nil, err
	}

	for i, p := range pairs {
		if _, err := Negotiate(h, p); err != nil {
			return pairs[:i], fmt.Errorf("negotiating session %d: %w", i, err)
		}
	}
	return pairs, nil
}
