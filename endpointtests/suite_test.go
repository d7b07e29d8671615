package endpointtests

import (
	"bufio"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/fakeendpoint"
	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
)

const (
	helperProcessEnv = "ENDPOINT_TESTS_HELPER_PROCESS"
	helperModeEnv    = "ENDPOINT_TESTS_HELPER_MODE"
)

// TestEndpointTestsHelperProcess is the endpoint process that the suite is run against; it is
// the test binary itself, started again with the helper environment variables set.
func TestEndpointTestsHelperProcess(t *testing.T) {
	if os.Getenv(helperProcessEnv) != "1" {
		return
	}
	if os.Getenv(helperModeEnv) == "mute" {
		// Reports that it is ready and then ignores every command.
		fmt.Println(`{"type":"ready","port":1}`)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
		}
		os.Exit(0)
	}
	os.Exit(fakeendpoint.Main())
}

func helperConfig(mode string, wait time.Duration) harness.Config {
	return harness.Config{
		Endpoint: harness.EndpointCommand{
			Command: []string{os.Args[0], "-test.run=^TestEndpointTestsHelperProcess$"},
			Env:     map[string]string{helperProcessEnv: "1", helperModeEnv: mode},
		},
		Timeouts: harness.Timeouts{Wait: wait},
	}
}

func logFailures(t *testing.T, results ldtest.Results) {
	for _, f := range results.Failures {
		for _, err := range f.Errors {
			t.Logf("[%s] %s", f.TestID, err)
		}
	}
}

func TestReferenceEndpointPassesSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("launches many endpoint processes")
	}
	results := RunTestSuite(helperConfig("endpoint", time.Second*5), nil, nil, nil)
	logFailures(t, results)
	assert.True(t, results.OK())

	for _, group := range []string{"lifecycle", "sessions", "negotiation", "messaging", "errors", "load"} {
		r, ok := results.Find(group)
		if assert.True(t, ok, "group %q did not run", group) {
			assert.False(t, r.Skipped)
		}
	}
	r, ok := results.Find("errors", "session not found", "send_message")
	assert.True(t, ok)
	assert.Empty(t, r.Errors)
}

func TestFilterSkipsExcludedTests(t *testing.T) {
	filter := func(id ldtest.TestID) bool {
		return len(id.Path) > 0 && id.Path[0] == "errors"
	}
	results := RunTestSuite(helperConfig("endpoint", time.Second*5), filter, nil, nil)
	logFailures(t, results)
	assert.True(t, results.OK())

	sessions, ok := results.Find("sessions")
	require.True(t, ok)
	assert.True(t, sessions.Skipped)
	unknown, ok := results.Find("errors", "unknown command")
	require.True(t, ok)
	assert.False(t, unknown.Skipped)
}

func TestUnresponsiveEndpointFailsSuite(t *testing.T) {
	filter := func(id ldtest.TestID) bool {
		return len(id.Path) < 2 || id.String() == "errors/unknown command" ||
			id.String() == "sessions/each endpoint confirms its own session"
	}
	results := RunTestSuite(helperConfig("mute", time.Millisecond*200), filter, nil, nil)

	require.False(t, results.OK())
	var failed []string
	for _, f := range results.Failures {
		failed = append(failed, f.TestID.String())
	}
	assert.ElementsMatch(t, []string{"errors/unknown command", "sessions/each endpoint confirms its own session"}, failed)
}

func TestSuiteWithoutContextPanics(t *testing.T) {
	results := ldtest.Run(ldtest.TestConfiguration{}, func(t *ldtest.T) {
		t.Run("lifecycle", DoLifecycleTests)
	})
	require.False(t, results.OK())
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "EndpointTestContext was not included")
}
