package scenario

import (
	"fmt"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Pair identifies two endpoints and the session on each of them that should be connected.
type Pair struct {
	Active         string
	Passive        string
	ActiveSession  string
	PassiveSession string
}

// DefaultPair is the conventional "active"/"passive" pair with sessions "active_session" and
// "passive_session".
func DefaultPair() Pair {
	return Pair{
		Active:         servicedef.RoleActive,
		Passive:        servicedef.RolePassive,
		ActiveSession:  servicedef.SessionIDFor(servicedef.RoleActive),
		PassiveSession: servicedef.SessionIDFor(servicedef.RolePassive),
	}
}

// Negotiation is the result of a successful session description exchange.
type Negotiation struct {
	// Offer is the description generated by the active endpoint and given to the passive one.
	Offer string
	// Answer is the description generated by the passive endpoint and given to the active one.
	Answer string
}

// Negotiate performs the four-step handshake: the active endpoint generates a session
// description, the passive endpoint consumes it, the passive endpoint generates its own, and the
// active endpoint consumes that. The sessions must already exist.
func Negotiate(h Harness, pair Pair) (Negotiation, error) {
	var result Negotiation

	offer, err := generateDescription(h, "step 1: generate offer", pair.Active, pair.ActiveSession)
	if err != nil {
		return result, err
	}
	result.Offer = offer

	if err := applyDescription(h, "step 2: apply offer", pair.Passive, pair.PassiveSession, offer); err != nil {
		return result, err
	}

	answer, err := generateDescription(h, "step 3: generate answer", pair.Passive, pair.PassiveSession)
	if err != nil {
		return result, err
	}
	result.Answer = answer

	if err := applyDescription(h, "step 4: apply answer", pair.Active, pair.ActiveSession, answer); err != nil {
		return result, err
	}
	return result, nil
}

func generateDescription(h Harness, step, role, sessionID string) (string, error) {
	e, err := request(h, role, servicedef.CommandGenerateSDP, servicedef.EventSDPGenerated,
		servicedef.SessionParams(sessionID))
	if err != nil {
		return "", stepFailed(step, role, err)
	}
	if err := checkSessionID(e, sessionID); err != nil {
		return "", stepFailed(step, role, err)
	}
	sdp := e.GetString("sdp")
	if sdp == "" {
		return "", stepFailed(step, role, unexpected("sdp_generated event has no sdp"))
	}
	return sdp, nil
}

func applyDescription(h Harness, step, role, sessionID, sdp string) error {
	e, err := request(h, role, servicedef.CommandSetRemoteSDP, servicedef.EventRemoteSDPSet,
		servicedef.SessionParams(sessionID), map[string]interface{}{"sdp": sdp})
	if err != nil {
		return stepFailed(step, role, err)
	}
	if err := checkSessionID(e, sessionID); err != nil {
		return stepFailed(step, role, err)
	}
	return nil
}

// Connect creates the pair's sessions and negotiates between them.
func Connect(h Harness, pair Pair) (Negotiation, error) {
	if err := CreateSession(h, pair.Active, pair.ActiveSession); err != nil {
		return Negotiation{}, err
	}
	if err := CreateSession(h, pair.Passive, pair.PassiveSession); err != nil {
		return Negotiation{}, err
	}
	return Negotiate(h, pair)
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s <-> %s/%s", p.Active, p.ActiveSession, p.Passive, p.PassiveSession)
}
