package endpointtests

import (
	"runtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/scenario"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoLifecycleTests(t *ldtest.T) {
	t.Run("ready event reports a listening port", func(t *ldtest.T) {
		e := NewEndpointPair(t, "lifecycle")
		for _, role := range []string{servicedef.RoleActive, servicedef.RolePassive} {
			assert.True(t, e.Harness().IsReady(role))
			assert.Greater(t, e.RequirePort(t, role), 0)
		}
		assert.NotEqual(t, e.RequirePort(t, servicedef.RoleActive), e.RequirePort(t, servicedef.RolePassive))
	})

	t.Run("killing one endpoint does not affect the other", func(t *ldtest.T) {
		e := NewEndpointPair(t, "lifecycle")
		activePort := e.RequirePort(t, servicedef.RoleActive)

		require.NoError(t, e.Harness().KillProcess(servicedef.RolePassive))
		assert.False(t, e.Harness().IsReady(servicedef.RolePassive))
		_, hasPort := e.Harness().GetPort(servicedef.RolePassive)
		assert.False(t, hasPort)

		assert.True(t, e.Harness().IsReady(servicedef.RoleActive))
		assert.Equal(t, activePort, e.RequirePort(t, servicedef.RoleActive))
		e.CreateSession(t, servicedef.RoleActive, servicedef.SessionIDFor(servicedef.RoleActive))
	})

	t.Run("killed endpoint can be spawned again", func(t *ldtest.T) {
		e := NewEndpointPair(t, "lifecycle")
		require.NoError(t, e.Harness().KillProcess(servicedef.RolePassive))

		require.NoError(t, scenario.SpawnAll(e.Harness(), scenario.DefaultSpecs("lifecycle")[0]))
		_, err := scenario.Connect(e.Harness(), scenario.DefaultPair())
		assert.NoError(t, err)
	})

	t.Run("endpoint exits by itself when interrupted", func(t *ldtest.T) {
		if runtime.GOOS == "windows" {
			t.SkipWithReason("endpoints cannot be interrupted on this platform")
		}
		e := NewEndpointPair(t, "lifecycle")
		endpoint := e.RequireEndpoint(t, servicedef.RoleActive)
		timeouts := e.Harness().Config().Timeouts

		require.NoError(t, e.Harness().KillProcess(servicedef.RoleActive))
		RequireExit(t, endpoint, timeouts.KillGrace+timeouts.Cleanup)
		assert.NotEqual(t, -1, endpoint.ExitCode(),
			"endpoint should exit normally when interrupted, instead of being terminated by a signal")
	})

	t.Run("restart yields new ports", func(t *ldtest.T) {
		e, _ := NewConnectedPair(t, "lifecycle")
		result, err := scenario.Restart(e.Harness(), scenario.DefaultSpecs("lifecycle")...)
		require.NoError(t, err)
		assert.Equal(t, []string{servicedef.RoleActive, servicedef.RolePassive}, result.Changed())

		_, err = scenario.Connect(e.Harness(), scenario.DefaultPair())
		assert.NoError(t, err, "restarted endpoints should negotiate normally")
	})
}
