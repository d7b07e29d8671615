package harness

import (
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// PortReservations hands out TCP ports for endpoint processes and remembers which ones are in
// use by this test run, so that two allocations made close together cannot return the same port
// before either process has bound it.
//
// It does not hold the ports open itself: a candidate is accepted if a listener can be opened on
// it at the moment of allocation.
type PortReservations struct {
	portRange PortRange
	reserved  map[int]struct{}
	rand      *rand.Rand
	probe     func(port int) bool
	lock      sync.Mutex
}

// NewPortReservations creates an empty reservation set for the given range.
func NewPortReservations(portRange PortRange) *PortReservations {
	return &PortReservations{
		portRange: portRange.withDefaults(),
		reserved:  make(map[int]struct{}),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		probe:     portIsFree,
	}
}

// Allocate returns a port that is not currently bound on this host and is not already reserved,
// and adds it to the reservation set.
func (p *PortReservations) Allocate() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	span := p.portRange.Max - p.portRange.Min + 1
	for attempt := 0; attempt < p.portRange.Attempts; attempt++ {
		port := p.portRange.Min + p.rand.Intn(span)
		if _, taken := p.reserved[port]; taken {
			continue
		}
		if !p.probe(port) {
			continue
		}
		p.reserved[port] = struct{}{}
		return port, nil
	}
	return 0, fmt.Errorf("%w: tried %d ports in range %d-%d",
		ErrPortExhaustion, p.portRange.Attempts, p.portRange.Min, p.portRange.Max)
}

// Release removes a port from the reservation set. It is safe to release a port that was never
// reserved.
func (p *PortReservations) Release(port int) {
	p.lock.Lock()
	delete(p.reserved, port)
	p.lock.Unlock()
}

// ReleaseAll clears the reservation set.
func (p *PortReservations) ReleaseAll() {
	p.lock.Lock()
	p.reserved = make(map[int]struct{})
	p.lock.Unlock()
}

// Reserved returns the currently reserved ports in ascending order.
func (p *PortReservations) Reserved() []int {
	p.lock.Lock()
	ret := make([]int, 0, len(p.reserved))
	for port := range p.reserved {
		ret = append(ret, port)
	}
	p.lock.Unlock()
	sort.Ints(ret)
	return ret
}

func portIsFree(port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}
