package harness

import (
	"os"
	"testing"
	"time"

	helpers "github.com/launchdarkly/go-test-helpers/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultSpawnTimeout, c.Timeouts.Spawn)
	assert.Equal(t, DefaultWaitTimeout, c.Timeouts.Wait)
	assert.Equal(t, DefaultKillGrace, c.Timeouts.KillGrace)
	assert.Equal(t, DefaultCleanupTimeout, c.Timeouts.Cleanup)
	assert.Equal(t, PortRange{Min: DefaultMinPort, Max: DefaultMaxPort, Attempts: DefaultPortAttempts}, c.Ports)
	assert.Equal(t, defaultStderrTailBytes, c.Endpoint.StderrTailBytes)
}

func TestConfigDefaultsKeepExplicitValues(t *testing.T) {
	c := Config{
		Timeouts: Timeouts{Spawn: time.Second},
		Ports:    PortRange{Min: 31000, Max: 30000},
	}.withDefaults()
	assert.Equal(t, time.Second, c.Timeouts.Spawn)
	assert.Equal(t, DefaultWaitTimeout, c.Timeouts.Wait)
	assert.Equal(t, 30000, c.Ports.Min)
	assert.Equal(t, 31000, c.Ports.Max)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Endpoint: EndpointCommand{Command: []string{""}}}.Validate())
	assert.NoError(t, Config{Endpoint: EndpointCommand{Command: []string{"./endpoint"}}}.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	helpers.WithTempFile(func(path string) {
		require.NoError(t, os.WriteFile(path, []byte(`
endpoint:
  command: [node, endpoint.js, --verbose]
  dir: ./endpoints
  env:
    DEBUG: msrp
timeouts:
  spawn: 15s
  killGrace: 500ms
ports:
  min: 21000
  max: 22000
`), 0o600))

		c, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"node", "endpoint.js", "--verbose"}, c.Endpoint.Command)
		assert.Equal(t, "./endpoints", c.Endpoint.Dir)
		assert.Equal(t, map[string]string{"DEBUG": "msrp"}, c.Endpoint.Env)
		assert.Equal(t, 15*time.Second, c.Timeouts.Spawn)
		assert.Equal(t, 500*time.Millisecond, c.Timeouts.KillGrace)
		assert.Equal(t, time.Duration(0), c.Timeouts.Wait)
		assert.Equal(t, PortRange{Min: 21000, Max: 22000}, c.Ports)
	})
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile("./no/such/file.yaml")
	assert.Error(t, err)

	helpers.WithTempFile(func(path string) {
		require.NoError(t, os.WriteFile(path, []byte("timeouts:\n  spawn: soon\n"), 0o600))
		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})
}
