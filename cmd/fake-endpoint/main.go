// Command fake-endpoint is a reference endpoint for the contract tests. Run the tests against it
// with:
//
//	msrp-contract-tests --endpoint "go run ./cmd/fake-endpoint"
package main

import (
	"os"

	"github.com/msrp-tools/msrp-contract-tests/fakeendpoint"
)

func main() {
	os.Exit(fakeendpoint.Main())
}
