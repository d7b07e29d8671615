package harness

import (
	"fmt"
	"sync"
	"time"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// Correlator collects the events received from each endpoint and lets callers wait for events
// of a given type.
//
// Every event is handed to at most one waiter. A call to WaitFor is first satisfied from the
// oldest matching event in the history that no earlier WaitFor call has taken; otherwise it waits
// for the next matching event. So, several calls to WaitFor for the same role and type, whether
// sequential or concurrent, each receive a different event, in arrival order.
type Correlator struct {
	streams        map[string]*eventStream
	defaultTimeout time.Duration
	lock           sync.Mutex
}

type eventStream struct {
	role    string
	history []servicedef.Event
	claimed []bool
	waiters map[string][]*waiter
	closed  bool
}

type waiter struct {
	ch chan servicedef.Event
}

// NewCorrelator creates a Correlator. If defaultTimeout is zero, DefaultWaitTimeout is used for
// WaitFor calls that do not specify a timeout.
func NewCorrelator(defaultTimeout time.Duration) *Correlator {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultWaitTimeout
	}
	return &Correlator{
		streams:        make(map[string]*eventStream),
		defaultTimeout: defaultTimeout,
	}
}

// Register starts a new, empty event history for a role. It fails if the role is already
// registered.
func (c *Correlator) Register(role string) error {
	_, err := c.register(role)
	return err
}

func (c *Correlator) register(role string) (*eventStream, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.streams[role]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateEndpoint, role)
	}
	s := &eventStream{role: role, waiters: make(map[string][]*waiter)}
	c.streams[role] = s
	return s, nil
}

// Unregister discards a role's history. Any pending WaitFor calls for the role fail with
// ErrUnknownEndpoint. Unregistering a role that is not registered does nothing.
func (c *Correlator) Unregister(role string) {
	c.lock.Lock()
	s := c.streams[role]
	c.lock.Unlock()
	if s != nil {
		c.unregisterStream(s)
	}
}

// unregisterStream is like Unregister, but has no effect on a newer registration for the same
// role.
func (c *Correlator) unregisterStream(s *eventStream) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.streams[s.role] == s {
		delete(c.streams, s.role)
	}
	if s.closed {
		return
	}
	s.closed = true
	for _, ws := range s.waiters {
		for _, w := range ws {
			close(w.ch)
		}
	}
	s.waiters = nil
}

// Publish adds an event to a role's history and delivers it to the oldest pending waiter for
// that event type, if any.
func (c *Correlator) Publish(role string, event servicedef.Event) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	s := c.streams[role]
	if s == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, role)
	}
	s.append(event)
	return nil
}

// publishTo is used by the Supervisor, which holds on to the stream it registered. If the role
// has been unregistered, or registered again for a new process, the event is dropped.
func (c *Correlator) publishTo(s *eventStream, event servicedef.Event) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if s.closed || c.streams[s.role] != s {
		return false
	}
	s.append(event)
	return true
}

// WaitFor returns the next unclaimed event of the given type from the given role, waiting up to
// the timeout for one to arrive. A timeout of zero means the Correlator's default.
func (c *Correlator) WaitFor(role, eventType string, timeout time.Duration) (servicedef.Event, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	c.lock.Lock()
	s := c.streams[role]
	if s == nil {
		c.lock.Unlock()
		return servicedef.Event{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, role)
	}
	if e, ok := s.claimOldest(eventType); ok {
		c.lock.Unlock()
		return e, nil
	}
	w := &waiter{ch: make(chan servicedef.Event, 1)}
	s.waiters[eventType] = append(s.waiters[eventType], w)
	c.lock.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case e, ok := <-w.ch:
		if !ok {
			return servicedef.Event{}, fmt.Errorf("%w: %q was removed while waiting for %q event",
				ErrUnknownEndpoint, role, eventType)
		}
		return e, nil
	case <-deadline.C:
	}

	c.lock.Lock()
	removed := s.removeWaiter(eventType, w)
	c.lock.Unlock()
	if !removed {
		// An event was delivered, or the role was unregistered, just as the timer fired.
		if e, ok := <-w.ch; ok {
			return e, nil
		}
		return servicedef.Event{}, fmt.Errorf("%w: %q was removed while waiting for %q event",
			ErrUnknownEndpoint, role, eventType)
	}
	return servicedef.Event{}, fmt.Errorf("%w: no %q event from %q within %s",
		ErrWaitTimeout, eventType, role, timeout)
}

// GetMessages returns a copy of a role's event history. If eventType is not empty, only events
// of that type are returned.
func (c *Correlator) GetMessages(role, eventType string) ([]servicedef.Event, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	s := c.streams[role]
	if s == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, role)
	}
	ret := make([]servicedef.Event, 0, len(s.history))
	for _, e := range s.history {
		if eventType == "" || e.Type == eventType {
			ret = append(ret, e)
		}
	}
	return ret, nil
}

// IsRegistered returns true if the role currently has an event history.
func (c *Correlator) IsRegistered(role string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.streams[role] != nil
}

// pendingWaiters is used in tests to verify that timed-out waiters are removed.
func (c *Correlator) pendingWaiters(role string) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	s := c.streams[role]
	if s == nil {
		return 0
	}
	n := 0
	for _, ws := range s.waiters {
		n += len(ws)
	}
	return n
}

// The methods below must be called with the Correlator's lock held.

func (s *eventStream) append(event servicedef.Event) {
	s.history = append(s.history, event)
	s.claimed = append(s.claimed, false)
	ws := s.waiters[event.Type]
	if len(ws) == 0 {
		return
	}
	w := ws[0]
	if len(ws) == 1 {
		delete(s.waiters, event.Type)
	} else {
		s.waiters[event.Type] = ws[1:]
	}
	s.claimed[len(s.claimed)-1] = true
	w.ch <- event
}

func (s *eventStream) claimOldest(eventType string) (servicedef.Event, bool) {
	for i, e := range s.history {
		if !s.claimed[i] && e.Type == eventType {
			s.claimed[i] = true
			return e, true
		}
	}
	return servicedef.Event{}, false
}

func (s *eventStream) removeWaiter(eventType string, target *waiter) bool {
	ws := s.waiters[eventType]
	for i, w := range ws {
		if w == target {
			ws = append(ws[:i:i], ws[i+1:]...)
			if len(ws) == 0 {
				delete(s.waiters, eventType)
			} else {
				s.waiters[eventType] = ws
			}
			return true
		}
	}
	return false
}
