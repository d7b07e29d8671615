package endpointtests

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/scenario"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoSessionTests(t *ldtest.T) {
	t.Run("each endpoint confirms its own session", func(t *ldtest.T) {
		e := NewEndpointPair(t, "sessions")
		e.CreateSession(t, servicedef.RolePassive, servicedef.SessionIDFor(servicedef.RolePassive))
		e.CreateSession(t, servicedef.RoleActive, servicedef.SessionIDFor(servicedef.RoleActive))

		for _, role := range []string{servicedef.RoleActive, servicedef.RolePassive} {
			created := e.RequireMessages(t, role, servicedef.EventSessionCreated)
			if assert.Len(t, created, 1, "session_created events from %s", role) {
				assert.Equal(t, servicedef.SessionIDFor(role), created[0].GetString("sessionId"))
			}
		}
	})

	t.Run("several sessions on one endpoint", func(t *ldtest.T) {
		e := NewEndpointPair(t, "sessions")
		var ids []string
		for i := 0; i < 5; i++ {
			ids = append(ids, fmt.Sprintf("session_%d", i))
		}
		require.NoError(t, scenario.CreateSessions(e.Harness(), servicedef.RoleActive, ids))

		status := e.RequireStatus(t, servicedef.RoleActive)
		assert.ElementsMatch(t, ids, status.Sessions)

		assert.Len(t, e.RequireMessages(t, servicedef.RolePassive, servicedef.EventSessionCreated), 0,
			"sessions created on one endpoint should not appear on the other")
	})

	t.Run("status describes the endpoint", func(t *ldtest.T) {
		e := NewEndpointPair(t, "sessions")
		for _, role := range []string{servicedef.RoleActive, servicedef.RolePassive} {
			status := e.RequireStatus(t, role)
			assert.Equal(t, role, status.Role)
			assert.Equal(t, e.RequirePort(t, role), status.Port)
			assert.True(t, status.ServerListening)
			assert.Len(t, status.Sessions, 0)
		}
	})
}
