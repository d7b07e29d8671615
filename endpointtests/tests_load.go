package endpointtests

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/scenario"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoLoadTests(t *ldtest.T) {
	for _, n := range []int{5, 20} {
		n := n
		t.Run(fmt.Sprintf("%d concurrent sessions", n), func(t *ldtest.T) {
			e := NewEndpointPair(t, "load")
			pairs, err := scenario.Load(e.Harness(), servicedef.RoleActive, servicedef.RolePassive, n)
			require.NoError(t, err)
			assert.Len(t, pairs, n)

			for _, role := range []string{servicedef.RoleActive, servicedef.RolePassive} {
				assert.Len(t, e.RequireStatus(t, role).Sessions, n, "sessions on %s endpoint", role)
				assert.Len(t, e.RequireMessages(t, role, servicedef.EventSDPGenerated), n)
			}
		})
	}

	t.Run("messages on every session", func(t *ldtest.T) {
		e := NewEndpointPair(t, "load")
		pairs, err := scenario.Load(e.Harness(), servicedef.RoleActive, servicedef.RolePassive, 3)
		require.NoError(t, err)

		var script scenario.Script
		for i, pair := range pairs {
			script = append(script, scenario.AlternatingScript(pair,
				fmt.Sprintf("ping %d", i), fmt.Sprintf("pong %d", i)).WithDelivery(pair)...)
		}
		_, err = scenario.Exchange(e.Harness(), script)
		require.NoError(t, err)
	})
}
