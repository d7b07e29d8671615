package endpointtests

import (
	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/framework/harness"
	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
)

type EndpointTestContext struct {
	config harness.Config
	logger framework.Logger
}

func requireContext(t *ldtest.T) EndpointTestContext {
	if c, ok := t.Context().(EndpointTestContext); ok {
		return c
	}
	panic("EndpointTestContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}
