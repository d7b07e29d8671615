// Package ldtest provides a test context similar to Go's testing.T, for running a test suite
// outside of "go test" and collecting the results.
package ldtest
