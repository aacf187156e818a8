// Package line abstracts the single open-drain CEC wire: release to
// input, assert low, read level, take edge interrupts and schedule
// one-shot alarms at absolute microsecond timestamps.
//
// The bus is wired-AND. Asserting low is unilateral; "high" just means
// nobody is asserting. All timing is anchored on Driver.NowUS, captured
// once at the start of each bit, never on wall-clock deltas measured
// after the fact.
package line

// Level is the electrical state of the bus. Low is the asserted state.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Edge is a transition direction reported to an edge handler.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeRising {
		return "rising"
	}
	return "falling"
}

// EdgeFunc is invoked from the edge-handling goroutine with the
// timestamp (microseconds, Driver.NowUS domain) at which the edge was
// observed. It must not block: callers are expected to do the minimum
// work to update a state machine and return.
type EdgeFunc func(tsUS uint64, e Edge)

// Driver is the single-wire GPIO line the frame codec drives.
type Driver interface {
	// Release switches the line to high-impedance input. The bus
	// pull-up takes it high unless another device is asserting.
	Release() error

	// AssertLow unilaterally drives the line low.
	AssertLow() error

	// Read returns the current level.
	Read() (Level, error)

	// EnableEdgeIRQ arms edge notification for the given edge set
	// (EdgeRising, EdgeFalling, or both in one call) and installs fn
	// as the handler. Only one handler is live at a time; a second
	// call replaces it.
	EnableEdgeIRQ(edges []Edge, fn EdgeFunc) error

	// DisableEdgeIRQ tears down edge notification.
	DisableEdgeIRQ() error

	// NowUS returns a free-running, monotonic microsecond counter.
	NowUS() uint64

	// ScheduleAt arms a one-shot callback to fire at absolute time
	// atUS in the NowUS domain. The returned cancel func is safe to
	// call after the alarm has already fired.
	ScheduleAt(atUS uint64, fn func()) (cancel func())
}
