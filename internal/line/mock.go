package line

import (
	"sort"
	"sync"
)

// Mock is a test double for Driver that records calls without requiring
// GPIO hardware. A test drives the bus by calling FireEdge / SetLevel;
// Mock drives scheduled alarms itself via a virtual clock that Advance
// moves forward, firing any alarm whose deadline has passed.
type Mock struct {
	mu      sync.Mutex
	level   Level
	low     int // AssertLow calls not yet matched by a Release
	output  bool
	now     uint64
	handler EdgeFunc
	edges   []Edge
	alarms  []mockAlarm
	history []string
}

type mockAlarm struct {
	at   uint64
	fn   func()
	live bool
}

// NewMock returns a Mock with the line released (High, as the bus
// pull-up would present it) at virtual time 0.
func NewMock() *Mock {
	return &Mock{level: High}
}

func (m *Mock) Release() error {
	m.mu.Lock()
	wasLow := m.level == Low
	m.output = false
	if m.low > 0 {
		m.low--
	}
	if m.low == 0 {
		m.level = High
	}
	rose := wasLow && m.level == High
	m.history = append(m.history, "release")
	now := m.now
	fn := m.handler
	m.mu.Unlock()

	// The wire is open-drain: once the last asserter releases it, the
	// pull-up takes it high, which is itself an edge any armed RX handler observes --
	// including this same device's own, since Send and Receive are
	// never concurrently active on one Codec but a test harness may
	// legitimately have one Codec transmit while another (on the same
	// shared Mock) receives.
	if rose && fn != nil {
		fn(now, EdgeRising)
	}

	return nil
}

func (m *Mock) AssertLow() error {
	m.mu.Lock()
	wasHigh := m.level == High
	m.output = true
	m.low++
	m.level = Low
	m.history = append(m.history, "assert-low")
	now := m.now
	fn := m.handler
	m.mu.Unlock()

	if wasHigh && fn != nil {
		fn(now, EdgeFalling)
	}

	return nil
}

func (m *Mock) Read() (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.level, nil
}

func (m *Mock) EnableEdgeIRQ(edges []Edge, fn EdgeFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edges = edges
	m.handler = fn

	return nil
}

func (m *Mock) DisableEdgeIRQ() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edges = nil
	m.handler = nil

	return nil
}

func (m *Mock) NowUS() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

func (m *Mock) ScheduleAt(atUS uint64, fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &mockAlarm{at: atUS, fn: fn, live: true}
	m.alarms = append(m.alarms, *a)
	idx := len(m.alarms) - 1

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.alarms[idx].live = false
	}
}

// SetLevel changes the externally-driven level (simulating a follower
// device asserting or releasing the wired-AND bus) without going
// through AssertLow/Release, which represent this side's own driving.
func (m *Mock) SetLevel(l Level) {
	m.mu.Lock()
	m.level = l
	m.mu.Unlock()
}

// FireEdge advances the virtual clock to tsUS and invokes the armed
// edge handler, if any, with the given edge.
func (m *Mock) FireEdge(tsUS uint64, e Edge) {
	m.mu.Lock()
	m.now = tsUS
	fn := m.handler
	m.mu.Unlock()

	if fn != nil {
		fn(tsUS, e)
	}
}

// Advance moves the virtual clock forward by deltaUS, firing any
// scheduled alarms whose deadline falls within the new window in
// deadline order.
func (m *Mock) Advance(deltaUS uint64) {
	m.mu.Lock()
	target := m.now + deltaUS
	m.now = target

	var due []mockAlarm
	for i := range m.alarms {
		a := &m.alarms[i]
		if a.live && a.at <= target {
			a.live = false
			due = append(due, *a)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })

	for _, a := range due {
		a.fn()
	}
}

// History returns the recorded sequence of AssertLow/Release calls,
// for assertions about ACK timing in tests.
func (m *Mock) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.history))
	copy(out, m.history)

	return out
}
