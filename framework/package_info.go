// Package framework contains the low-level logging infrastructure shared by the rest of the
// test harness.
//
// The general model is:
//
// 1. The harness package launches endpoint processes and correlates the events they emit.
//
// 2. The ldtest package provides a test context similar to Go's *testing.T, allowing pieces of
// test logic to be associated with a test identifier and to accumulate results.
//
// 3. Everything logs through the minimal Logger interface defined here, so that output can be
// captured per test and shown only when it is useful.
package framework
