package ldtest

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/msrp-tools/msrp-contract-tests/framework"
)

type environment struct {
	config  TestConfiguration
	results Results
}

// TestConfiguration contains the global parameters for a test run.
type TestConfiguration struct {
	// Filter, if set, decides which tests run; excluded tests are reported as skipped.
	Filter Filter

	// TestLogger receives progress notifications. If nil, nothing is reported.
	TestLogger TestLogger

	// Context is an arbitrary value that the domain-specific test code can retrieve with
	// T.Context(), for instance to find the harness it should be talking to.
	Context interface{}
}

// T represents a test or subtest. It implements the same basic functionality as Go's testing.T,
// but in an environment that is outside of the Go test runner, and with per-test debug output
// that is only shown when it is useful.
//
// T implements the TestingT interfaces of testify's assert and require packages, so those can
// be used for assertions just as with *testing.T.
type T struct {
	env         *environment
	id          TestID
	debugLogger framework.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	cleanups    []func()
}

// Run starts a top-level test scope and returns the accumulated results of every test that
// ran inside it.
func Run(config TestConfiguration, action func(*T)) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	env := &environment{config: config}
	t := &T{env: env}
	t.run(action)
	return env.results
}

func (t *T) run(action func(*T)) {
	defer func() {
		if r := recover(); r != nil {
			if t.skipped {
				t.runCleanups()
				t.env.results.Tests = append(t.env.results.Tests, TestResult{TestID: t.id, Skipped: true})
				return
			}
			t.failed = true
			var addError error
			if _, ok := r.(*T); ok {
				if len(t.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				t.errors = append(t.errors, addError)
				t.env.config.TestLogger.TestError(t.id, addError)
			}
		}
		t.runCleanups()
		result := TestResult{TestID: t.id, Errors: t.errors}
		t.env.results.Tests = append(t.env.results.Tests, result)
		if t.failed {
			t.env.results.Failures = append(t.env.results.Failures, result)
		}
	}()

	action(t)
}

func (t *T) runCleanups() {
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		func(f func()) {
			defer func() {
				if r := recover(); r != nil {
					t.debugLogger.Printf("panic in deferred cleanup: %+v", r)
				}
			}()
			f()
		}(t.cleanups[i])
	}
	t.cleanups = nil
}

// ID returns the identifier of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Context returns the value that was set in TestConfiguration.Context.
func (t *T) Context() interface{} {
	return t.env.config.Context
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) {
	id := t.id.Plus(name)

	t.env.config.TestLogger.TestStarted(id)
	if t.env.config.Filter != nil && !t.env.config.Filter(id) {
		t.env.results.Tests = append(t.env.results.Tests, TestResult{TestID: id, Skipped: true})
		t.env.config.TestLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	t1 := &T{
		id:  id,
		env: t.env,
	}
	t1.run(action)
	if t1.skipped {
		t.env.config.TestLogger.TestSkipped(id, t1.skipReason)
	} else {
		t.env.config.TestLogger.TestFinished(id, t1.failed, t1.debugLogger.Output())
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	err := fmt.Errorf(format, args...)
	t.errors = append(t.errors, err)
	t.env.config.TestLogger.TestError(t.id, err)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	panic(t)
}

// Failed returns true if the test or any of its subtests has failed.
func (t *T) Failed() bool {
	return t.failed
}

// Skip marks the test as skipped and exits immediately.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is the same as Skip, but records a reason that is shown in the output.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Defer schedules a function to run when the current test exits, whether it passed, failed or
// was skipped. Deferred functions run in reverse order.
func (t *T) Defer(cleanup func()) {
	t.cleanups = append(t.cleanups, cleanup)
}

// Debug logs some debug output for the test. The output is passed to the test logger at the end
// of the test.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger that writes to this test's debug output.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}
