// Package harness launches endpoint processes and collects their events.
//
// A Supervisor starts each endpoint as a separate process, passing it a servicedef.LaunchConfig
// in the environment. Commands are written to the process's standard input as JSON lines, and
// every JSON line the process writes to standard output becomes a servicedef.Event. Events are
// kept per endpoint by a Correlator, which lets tests wait for events of a given type.
package harness
