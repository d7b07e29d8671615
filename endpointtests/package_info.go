// Package endpointtests contains the endpoint contract tests themselves and their supporting API.
//
// Infrastructure that is not specific to these tests, such as launching endpoint processes and
// correlating their events, is in the lower-level framework/harness package; multi-step
// interactions that the tests share are in the scenario package.
package endpointtests
