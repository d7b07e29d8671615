package endpointtests

import (
	"strconv"

	"github.com/stretchr/testify/assert"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoNegotiationTests(t *ldtest.T) {
	t.Run("handshake completes", func(t *ldtest.T) {
		_, result := NewConnectedPair(t, "negotiation")
		assert.NotEmpty(t, result.Offer)
		assert.NotEmpty(t, result.Answer)
	})

	t.Run("each side generates one description, which its peer receives", func(t *ldtest.T) {
		e, result := NewConnectedPair(t, "negotiation")

		activeSDP := e.RequireMessages(t, servicedef.RoleActive, servicedef.EventSDPGenerated)
		passiveSDP := e.RequireMessages(t, servicedef.RolePassive, servicedef.EventSDPGenerated)
		if assert.Len(t, activeSDP, 1) {
			assert.Equal(t, result.Offer, activeSDP[0].GetString("sdp"))
		}
		if assert.Len(t, passiveSDP, 1) {
			assert.Equal(t, result.Answer, passiveSDP[0].GetString("sdp"))
		}
		assert.Len(t, e.RequireMessages(t, servicedef.RoleActive, servicedef.EventRemoteSDPSet), 1)
		assert.Len(t, e.RequireMessages(t, servicedef.RolePassive, servicedef.EventRemoteSDPSet), 1)
	})

	t.Run("descriptions advertise each endpoint's listener", func(t *ldtest.T) {
		e, result := NewConnectedPair(t, "negotiation")
		activePort := strconv.Itoa(e.RequirePort(t, servicedef.RoleActive))
		passivePort := strconv.Itoa(e.RequirePort(t, servicedef.RolePassive))

		assert.Contains(t, result.Offer, "m=message "+activePort+" TCP/MSRP")
		assert.Contains(t, result.Offer, ":"+activePort+"/active_session;tcp")
		assert.Contains(t, result.Offer, "a=setup:active")
		assert.Contains(t, result.Answer, "m=message "+passivePort+" TCP/MSRP")
		assert.Contains(t, result.Answer, ":"+passivePort+"/passive_session;tcp")
		assert.Contains(t, result.Answer, "a=setup:passive")
	})

	t.Run("description for a session that does not exist", func(t *ldtest.T) {
		e := NewEndpointPair(t, "negotiation")
		e.Send(t, servicedef.RoleActive, servicedef.CommandGenerateSDP,
			servicedef.SessionParams(servicedef.SessionIDFor(servicedef.RoleActive)))
		e.RequireError(t, servicedef.RoleActive, "Session not found")
		assert.Len(t, e.RequireMessages(t, servicedef.RoleActive, servicedef.EventSDPGenerated), 0)
	})
}
