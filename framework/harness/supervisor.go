package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// How long Wait keeps reading a process's output after it has exited, in case a grandchild
// process is still holding the pipes open.
const outputDrainDelay = time.Second

// Supervisor launches endpoint processes, sends them commands, and tracks their events.
//
// Each endpoint is identified by a role name, such as "active" or "passive". There can be at
// most one live endpoint per role; once an endpoint has been killed, the role can be used again.
// All methods are safe for concurrent use.
type Supervisor struct {
	config    Config
	runID     string
	ports     *PortReservations
	events    *Correlator
	endpoints map[string]*Endpoint
	dying     map[*Endpoint]struct{}
	logger    framework.Logger
	lock      sync.Mutex
}

// NewSupervisor creates a Supervisor. It does not start any processes.
func NewSupervisor(config Config, logger framework.Logger) (*Supervisor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	c := config.withDefaults()
	return &Supervisor{
		config:    c,
		runID:     uuid.NewString(),
		ports:     NewPortReservations(c.Ports),
		events:    NewCorrelator(c.Timeouts.Wait),
		endpoints: make(map[string]*Endpoint),
		dying:     make(map[*Endpoint]struct{}),
		logger:    logger,
	}, nil
}

// RunID returns the identifier that is passed to every endpoint launched by this Supervisor.
func (s *Supervisor) RunID() string { return s.runID }

// Config returns the Supervisor's configuration, with defaults filled in.
func (s *Supervisor) Config() Config { return s.config }

// Events returns the Correlator that receives the events of all endpoints.
func (s *Supervisor) Events() *Correlator { return s.events }

// Ports returns the port reservations used for endpoints that do not specify a port.
func (s *Supervisor) Ports() *PortReservations { return s.ports }

// SpawnEndpoint launches an endpoint process and waits until it reports that it is ready.
//
// If config.Port is undefined, a free port is reserved and passed to the endpoint; it is released
// when the endpoint is killed or cleaned up. The returned error wraps ErrDuplicateEndpoint if the
// role is already in use, ErrSpawnFailure if the process could not be started or exited before it
// was ready, or ErrSpawnTimeout if it did not become ready within the spawn timeout.
func (s *Supervisor) SpawnEndpoint(
	role string,
	config servicedef.EndpointConfig,
	scenario string,
) (*Endpoint, error) {
	if role == "" {
		return nil, fmt.Errorf("%w: endpoint role must not be empty", ErrSpawnFailure)
	}

	e, err := s.createRecord(role, &config)
	if err != nil {
		return nil, err
	}

	launch := servicedef.LaunchConfig{
		Type:     role,
		Scenario: scenario,
		RunID:    s.runID,
		Config:   config,
	}
	if err := s.startProcess(e, launch); err != nil {
		s.discard(e)
		return nil, err
	}

	deadline := time.NewTimer(s.config.Timeouts.Spawn)
	defer deadline.Stop()
	select {
	case <-e.readyCh:
	case <-e.exitedCh:
		select {
		case <-e.readyCh:
			// It became ready before exiting; whatever the caller does next will find out
			// that it is gone.
		default:
			s.discard(e)
			return nil, fmt.Errorf("%w: %s endpoint exited before it was ready (%s)%s",
				ErrSpawnFailure, role, describeExit(e.exitError()), stderrSuffix(e))
		}
	case <-deadline.C:
		s.remove(e)
		return nil, fmt.Errorf("%w: %s endpoint did not report ready within %s%s",
			ErrSpawnTimeout, role, s.config.Timeouts.Spawn, stderrSuffix(e))
	}

	port, _ := e.Port()
	e.logger.Printf("Endpoint is ready on port %d", port)
	return e, nil
}

func (s *Supervisor) createRecord(role string, config *servicedef.EndpointConfig) (*Endpoint, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.endpoints[role]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateEndpoint, role)
	}
	stream, err := s.events.register(role)
	if err != nil {
		return nil, err
	}

	e := &Endpoint{
		role:     role,
		stream:   stream,
		stderr:   newTailBuffer(s.config.Endpoint.StderrTailBytes),
		logger:   framework.PrefixedLogger(s.logger, fmt.Sprintf("[%s] ", role)),
		readyCh:  make(chan struct{}),
		exitedCh: make(chan struct{}),
		exitCode: -1,
	}
	if !config.Port.IsDefined() {
		port, err := s.ports.Allocate()
		if err != nil {
			s.events.unregisterStream(stream)
			return nil, err
		}
		e.reservedPort = port
		config.Port = ldvalue.NewOptionalInt(port)
	}
	e.requestedPort = config.Port.OrElse(0)
	s.endpoints[role] = e
	return e, nil
}

func (s *Supervisor) startProcess(e *Endpoint, launch servicedef.LaunchConfig) error {
	launchJSON, err := json.Marshal(launch)
	if err != nil {
		return fmt.Errorf("%w: cannot encode launch configuration: %s", ErrSpawnFailure, err)
	}

	command := s.config.Endpoint.Command
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = s.config.Endpoint.Dir
	cmd.Env = os.Environ()
	for k, v := range s.config.Endpoint.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, servicedef.ConfigEnvVar+"="+string(launchJSON))
	cmd.WaitDelay = outputDrainDelay
	configureProcessGroup(cmd)

	e.cmd = cmd
	e.stdout = newLineWriter(func(line []byte) { e.handleOutputLine(line, s.events) })
	e.stderrLines = newLineWriter(e.handleStderrLine)
	cmd.Stdout = e.stdout
	cmd.Stderr = io.MultiWriter(e.stderr, e.stderrLines)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSpawnFailure, err)
	}
	e.stdin = stdin

	e.logger.Printf("Starting endpoint: %s", quoteCommandLine(command))
	e.logger.Printf("Launch configuration: %s", launchJSON)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s endpoint: %s", ErrSpawnFailure, e.role, err)
	}
	go e.waitForExit()
	return nil
}

// discard forgets an endpoint whose process is not running.
func (s *Supervisor) discard(e *Endpoint) {
	s.lock.Lock()
	if s.endpoints[e.role] == e {
		delete(s.endpoints, e.role)
	}
	s.lock.Unlock()
	e.markRemoved()
	s.retire(e)
}

// remove takes an endpoint out of the registry and starts terminating it. The process is tracked
// until it exits, so that CleanupAll can wait for it.
func (s *Supervisor) remove(e *Endpoint) {
	s.lock.Lock()
	if s.endpoints[e.role] == e {
		delete(s.endpoints, e.role)
	}
	s.dying[e] = struct{}{}
	s.lock.Unlock()

	s.retire(e)
	e.terminate(s.config.Timeouts.KillGrace)
	go func() {
		<-e.exitedCh
		s.lock.Lock()
		delete(s.dying, e)
		s.lock.Unlock()
	}()
}

func (s *Supervisor) retire(e *Endpoint) {
	s.events.unregisterStream(e.stream)
	if e.reservedPort != 0 {
		s.ports.Release(e.reservedPort)
	}
}

// SendCommand writes one command to an endpoint's standard input. It does not wait for the
// endpoint to act on the command; the effects can only be observed through events.
func (s *Supervisor) SendCommand(role, command string, params ...map[string]interface{}) error {
	e := s.lookup(role)
	if e == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, role)
	}
	data, err := servicedef.EncodeCommand(command, params...)
	if err != nil {
		return err
	}
	e.logger.Printf("Sending command: %s", data)
	if err := e.writeLine(data); err != nil {
		return fmt.Errorf("sending %q command to %s endpoint: %w", command, role, err)
	}
	return nil
}

// KillProcess removes an endpoint and starts terminating its process: first an interrupt, then,
// if the process is still running after the kill grace period, a kill. It returns without
// waiting for the process to exit.
func (s *Supervisor) KillProcess(role string) error {
	e := s.lookup(role)
	if e == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, role)
	}
	e.logger.Printf("Killing endpoint")
	s.remove(e)
	return nil
}

// CleanupAll terminates every endpoint process, including ones that are already being killed,
// and waits for each to exit up to the cleanup timeout. It then releases all reserved ports.
// Problems with individual processes are logged and returned together; they do not stop the
// cleanup of the others. Calling CleanupAll when there are no endpoints does nothing.
func (s *Supervisor) CleanupAll() error {
	s.lock.Lock()
	all := make([]*Endpoint, 0, len(s.endpoints)+len(s.dying))
	for _, e := range s.endpoints {
		all = append(all, e)
	}
	for e := range s.dying {
		all = append(all, e)
	}
	s.endpoints = make(map[string]*Endpoint)
	s.dying = make(map[*Endpoint]struct{})
	s.lock.Unlock()

	var (
		errs    error
		errLock sync.Mutex
		wg      sync.WaitGroup
	)
	for _, e := range all {
		s.retire(e)
		e.terminate(s.config.Timeouts.KillGrace)
		wg.Add(1)
		go func(e *Endpoint) {
			defer wg.Done()
			if e.awaitExit(s.config.Timeouts.Cleanup) {
				return
			}
			err := fmt.Errorf("%s endpoint (pid %d) did not exit within %s",
				e.role, e.PID(), s.config.Timeouts.Cleanup)
			e.logger.Printf("Cleanup failed: %s", err)
			errLock.Lock()
			errs = multierr.Append(errs, err)
			errLock.Unlock()
		}(e)
	}
	wg.Wait()
	s.ports.ReleaseAll()
	if len(all) > 0 {
		s.logger.Printf("Cleaned up %d endpoint(s)", len(all))
	}
	return errs
}

// IsReady returns true if there is a live endpoint for the role that has reported ready.
func (s *Supervisor) IsReady(role string) bool {
	e := s.lookup(role)
	return e != nil && e.IsReady()
}

// GetPort returns the port that a live endpoint reported when it became ready.
func (s *Supervisor) GetPort(role string) (int, bool) {
	e := s.lookup(role)
	if e == nil {
		return 0, false
	}
	return e.Port()
}

// Endpoint returns the live endpoint for a role, if any.
func (s *Supervisor) Endpoint(role string) (*Endpoint, bool) {
	e := s.lookup(role)
	return e, e != nil
}

// Roles returns the roles of all live endpoints, sorted.
func (s *Supervisor) Roles() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]string, 0, len(s.endpoints))
	for role := range s.endpoints {
		ret = append(ret, role)
	}
	sort.Strings(ret)
	return ret
}

// WaitFor is shorthand for Events().WaitFor.
func (s *Supervisor) WaitFor(role, eventType string, timeout time.Duration) (servicedef.Event, error) {
	return s.events.WaitFor(role, eventType, timeout)
}

// GetMessages is shorthand for Events().GetMessages.
func (s *Supervisor) GetMessages(role, eventType string) ([]servicedef.Event, error) {
	return s.events.GetMessages(role, eventType)
}

func (s *Supervisor) lookup(role string) *Endpoint {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.endpoints[role]
}

func quoteCommandLine(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, shellescape.Quote(a))
	}
	return strings.Join(quoted, " ")
}

func describeExit(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ProcessState.String()
	}
	if err != nil {
		return err.Error()
	}
	return "exit status 0"
}

func stderrSuffix(e *Endpoint) string {
	tail := strings.TrimSpace(e.stderr.String())
	if tail == "" {
		return ""
	}
	return "; stderr: " + tail
}
