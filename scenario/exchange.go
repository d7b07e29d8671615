package scenario

import (
	"fmt"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Send is one step of a message exchange.
type Send struct {
	// From is the role of the sending endpoint.
	From string
	// SessionID is the sender's session. If empty, the conventional ID for the role is used.
	SessionID string
	Content   string
	// ContentType is omitted from the command if empty.
	ContentType string

	// To, if set, is the role of the peer, which must then report a message_received event
	// with the same content. ToSessionID works like SessionID.
	To          string
	ToSessionID string
}

// Script is an ordered list of sends.
type Script []Send

// AlternatingScript builds a script in which the pair's endpoints take turns sending the given
// contents, starting with the active endpoint. Delivery to the peer is not checked.
func AlternatingScript(pair Pair, contents ...string) Script {
	ret := make(Script, 0, len(contents))
	for i, content := range contents {
		s := Send{From: pair.Active, SessionID: pair.ActiveSession, Content: content}
		if i%2 == 1 {
			s = Send{From: pair.Passive, SessionID: pair.PassiveSession, Content: content}
		}
		ret = append(ret, s)
	}
	return ret
}

// WithDelivery returns a copy of an alternating script for the pair in which every send also
// checks that the other endpoint received the message.
func (s Script) WithDelivery(pair Pair) Script {
	ret := make(Script, 0, len(s))
	for _, send := range s {
		switch send.From {
		case pair.Active:
			send.To, send.ToSessionID = pair.Passive, pair.PassiveSession
		case pair.Passive:
			send.To, send.ToSessionID = pair.Active, pair.ActiveSession
		}
		ret = append(ret, send)
	}
	return ret
}

// Exchange performs each send in order. After each one, the sender must report a message_sent
// event whose content equals what was requested and whose sessionId belongs to the sender. It
// returns the message_sent events.
func Exchange(h Harness, script Script) ([]servicedef.Event, error) {
	sent := make([]servicedef.Event, 0, len(script))
	for i, send := range script {
		e, err := exchangeOne(h, fmt.Sprintf("send %d of %d", i+1, len(script)), send)
		if err != nil {
			return sent, err
		}
		sent = append(sent, e)
	}
	return sent, nil
}

func exchangeOne(h Harness, step string, send Send) (servicedef.Event, error) {
	sessionID := send.SessionID
	if sessionID == "" {
		sessionID = servicedef.SessionIDFor(send.From)
	}
	params := map[string]interface{}{"content": send.Content}
	if send.ContentType != "" {
		params["contentType"] = send.ContentType
	}

	e, err := request(h, send.From, servicedef.CommandSendMessage, servicedef.EventMessageSent,
		servicedef.SessionParams(sessionID), params)
	if err != nil {
		return e, stepFailed(step, send.From, err)
	}
	if got := e.GetString("content"); got != send.Content {
		return e, stepFailed(step, send.From, unexpected("message_sent has content %q, expected %q", got, send.Content))
	}
	if got := e.GetString("sessionId"); got != sessionID {
		return e, stepFailed(step, send.From, unexpected("message_sent has sessionId %q, expected %q", got, sessionID))
	}

	if send.To == "" {
		return e, nil
	}
	received, err := h.WaitFor(send.To, servicedef.EventMessageReceived, 0)
	if err != nil {
		return e, stepFailed(step, send.To, err)
	}
	if got := received.GetString("content"); got != send.Content {
		return e, stepFailed(step, send.To, unexpected("message_received has content %q, expected %q", got, send.Content))
	}
	toSessionID := send.ToSessionID
	if toSessionID == "" {
		toSessionID = servicedef.SessionIDFor(send.To)
	}
	if err := checkSessionID(received, toSessionID); err != nil {
		return e, stepFailed(step, send.To, err)
	}
	return e, nil
}
