package harness

import (
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Endpoint is the Supervisor's record of one endpoint process.
//
// The record is created when SpawnEndpoint is called and stops being usable as soon as the
// process is killed or cleaned up, even if the OS process takes a while to go away.
type Endpoint struct {
	role          string
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	stream        *eventStream
	stdout        *lineWriter
	stderrLines   *lineWriter
	stderr        *tailBuffer
	reservedPort  int
	requestedPort int
	logger        framework.Logger

	readyCh  chan struct{}
	exitedCh chan struct{}

	port     int
	ready    bool
	removed  bool
	exitErr  error
	exitCode int

	terminateOnce sync.Once
	writeLock     sync.Mutex
	lock          sync.Mutex
}

// Role returns the name the endpoint was spawned with.
func (e *Endpoint) Role() string { return e.role }

// PID returns the operating system's process ID, or 0 if the process never started.
func (e *Endpoint) PID() int {
	if e.cmd == nil || e.cmd.Process == nil {
		return 0
	}
	return e.cmd.Process.Pid
}

// IsReady returns true if the endpoint has sent its first "ready" event and has not been removed.
func (e *Endpoint) IsReady() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.ready && !e.removed
}

// Port returns the port reported in the "ready" event, or the port it was asked to use if the
// event did not include one. The second return value is false if the endpoint is not ready.
func (e *Endpoint) Port() (int, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.ready || e.removed {
		return 0, false
	}
	return e.port, true
}

// Exited returns a channel that is closed once the process has exited and its output has been
// fully processed.
func (e *Endpoint) Exited() <-chan struct{} { return e.exitedCh }

// ExitCode returns the process exit code, or -1 if it has not exited or was killed by a signal.
func (e *Endpoint) ExitCode() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.exitCode
}

// StderrTail returns the last part of what the process wrote to standard error.
func (e *Endpoint) StderrTail() string {
	return e.stderr.String()
}

func (e *Endpoint) handleOutputLine(line []byte, correlator *Correlator) {
	event, err := servicedef.ParseEvent(line)
	if err != nil {
		e.logger.Printf("output: %s", line)
		return
	}
	e.logger.Printf("event: %s", line)
	firstReady := false
	if event.Type == servicedef.EventReady {
		e.lock.Lock()
		if !e.ready {
			e.ready = true
			e.port = event.GetInt("port")
			if e.port == 0 {
				e.port = e.requestedPort
			}
			firstReady = true
		}
		e.lock.Unlock()
	}
	// The ready event must be in history before SpawnEndpoint returns.
	correlator.publishTo(e.stream, event)
	if firstReady {
		close(e.readyCh)
	}
}

func (e *Endpoint) handleStderrLine(line []byte) {
	e.logger.Printf("stderr: %s", line)
}

func (e *Endpoint) waitForExit() {
	err := e.cmd.Wait()
	e.stdout.Flush()
	e.stderrLines.Flush()

	e.lock.Lock()
	e.exitErr = err
	if e.cmd.ProcessState != nil {
		e.exitCode = e.cmd.ProcessState.ExitCode()
	}
	e.lock.Unlock()

	if err != nil {
		e.logger.Printf("Process exited: %s", err)
	} else {
		e.logger.Printf("Process exited normally")
	}
	close(e.exitedCh)
}

func (e *Endpoint) exitError() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.exitErr
}

func (e *Endpoint) hasExited() bool {
	select {
	case <-e.exitedCh:
		return true
	default:
		return false
	}
}

func (e *Endpoint) writeLine(data []byte) error {
	e.writeLock.Lock()
	defer e.writeLock.Unlock()
	_, err := e.stdin.Write(append(data, '\n'))
	return err
}

func (e *Endpoint) markRemoved() {
	e.lock.Lock()
	e.removed = true
	e.lock.Unlock()
}

// terminate starts the shutdown sequence if it has not already been started: interrupt the
// process group and close stdin, then kill the process group if it is still running after the
// grace period. It does not wait for the process to exit.
func (e *Endpoint) terminate(grace time.Duration) {
	e.terminateOnce.Do(func() {
		e.markRemoved()
		go e.escalate(grace)
	})
}

func (e *Endpoint) escalate(grace time.Duration) {
	if e.hasExited() {
		return
	}
	if err := interruptProcess(e.cmd.Process); err != nil {
		e.logger.Printf("Unable to interrupt process: %s", err)
	}
	_ = e.stdin.Close()

	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	select {
	case <-e.exitedCh:
		return
	case <-deadline.C:
	}

	e.logger.Printf("Process did not exit within %s of interrupt; killing it", grace)
	if err := killProcess(e.cmd.Process); err != nil {
		e.logger.Printf("Unable to kill process: %s", err)
	}
}

// awaitExit waits for the process to exit, returning false if it did not within the timeout.
func (e *Endpoint) awaitExit(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-e.exitedCh:
		return true
	case <-deadline.C:
		return false
	}
}
