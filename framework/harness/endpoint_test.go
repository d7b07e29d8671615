package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func newUnstartedEndpoint(t *testing.T, c *Correlator, role string) *Endpoint {
	stream, err := c.register(role)
	require.NoError(t, err)
	return &Endpoint{
		role:          role,
		stream:        stream,
		logger:        framework.NullLogger(),
		readyCh:       make(chan struct{}),
		exitedCh:      make(chan struct{}),
		exitCode:      -1,
		requestedPort: 4321,
	}
}

func TestReadyEventIsInHistoryWhenReadyIsSignalled(t *testing.T) {
	c := NewCorrelator(time.Second)
	e := newUnstartedEndpoint(t, c, servicedef.RolePassive)

	history := make(chan int, 1)
	go func() {
		<-e.readyCh
		ready, _ := c.GetMessages(servicedef.RolePassive, servicedef.EventReady)
		history <- len(ready)
	}()

	e.handleOutputLine([]byte(`{"type":"ready"}`), c)
	select {
	case n := <-history:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		require.Fail(t, "ready was never signalled")
	}

	port, ok := e.Port()
	assert.True(t, ok)
	assert.Equal(t, 4321, port, "a ready event without a port means the requested port")

	e.handleOutputLine([]byte(`{"type":"ready","port":9}`), c)
	port, _ = e.Port()
	assert.Equal(t, 4321, port, "only the first ready event counts")
	ready, err := c.GetMessages(servicedef.RolePassive, servicedef.EventReady)
	require.NoError(t, err)
	assert.Len(t, ready, 2)
}
