package endpointtests

import (
	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
)

// RunTestSuite runs every contract test against endpoints launched with the given configuration.
// Each test gets its own Supervisor, so one misbehaving test cannot leave processes behind for
// the next. Harness activity goes to each test's debug output and also to logger, if it is not nil.
func RunTestSuite(
	config harness.Config,
	filter ldtest.Filter,
	testLogger ldtest.TestLogger,
	logger framework.Logger,
) ldtest.Results {
	return ldtest.Run(ldtest.TestConfiguration{
		Filter:     filter,
		TestLogger: testLogger,
		Context:    EndpointTestContext{config: config, logger: logger},
	}, func(t *ldtest.T) {
		t.Run("lifecycle", DoLifecycleTests)
		t.Run("sessions", DoSessionTests)
		t.Run("negotiation", DoNegotiationTests)
		t.Run("messaging", DoMessagingTests)
		t.Run("errors", DoErrorTests)
		t.Run("load", DoLoadTests)
	})
}
