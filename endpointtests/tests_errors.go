package endpointtests

import (
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoErrorTests(t *ldtest.T) {
	t.Run("unknown command", func(t *ldtest.T) {
		e := NewEndpointPair(t, "errors")
		e.Send(t, servicedef.RolePassive, "invalid_command")
		e.RequireError(t, servicedef.RolePassive, "Unknown command")
	})

	t.Run("session not found", func(t *ldtest.T) {
		commands := []struct {
			name   string
			params map[string]interface{}
		}{
			{servicedef.CommandGenerateSDP, nil},
			{servicedef.CommandSetRemoteSDP, map[string]interface{}{"sdp": "v=0\r\n"}},
			{servicedef.CommandSendMessage, map[string]interface{}{"content": "Hello"}},
		}
		for _, c := range commands {
			c := c
			t.Run(c.name, func(t *ldtest.T) {
				e := NewEndpointPair(t, "errors")
				e.Send(t, servicedef.RoleActive, c.name,
					servicedef.SessionParams(servicedef.SessionIDFor(servicedef.RoleActive)), c.params)
				e.RequireError(t, servicedef.RoleActive, "Session not found")
			})
		}
	})

	t.Run("endpoint keeps working after an error", func(t *ldtest.T) {
		e := NewEndpointPair(t, "errors")
		e.Send(t, servicedef.RoleActive, "invalid_command")
		e.RequireError(t, servicedef.RoleActive, "Unknown command")
		e.CreateSession(t, servicedef.RoleActive, servicedef.SessionIDFor(servicedef.RoleActive))
	})
}
