package cecproto

import (
	"context"
	"runtime"
	"time"

	"github.com/pico-cec/bridge/internal/line"
)

// pumpUntil advances mock's virtual clock in small steps, giving any
// alarm armed during a prior step a chance to be observed on the next
// one (yielding after each step so goroutines blocked in Send or
// Receive can run and arm their next alarm), until done fires or the
// iteration budget is exhausted. It
// mirrors how a real event loop would service the scheduled-alarm
// chain the codec's state machines rely on.
func pumpUntil(mock *line.Mock, done <-chan struct{}, step uint64, maxIters int) bool {
	for i := 0; i < maxIters; i++ {
		select {
		case <-done:
			return true
		default:
		}

		mock.Advance(step)
		runtime.Gosched()
	}

	select {
	case <-done:
		return true
	default:
		return false
	}
}

const (
	pumpStep     = 20
	pumpMaxIters = 60000 // 1.2s of virtual bus time, generous for a 16-byte frame
)

// testContext returns a context with a long real-wall-clock deadline:
// the codec's blocking selects key off ctx.Done(), not the virtual
// clock, so this just needs to outlast the real time pumpUntil takes
// to run, not the simulated CEC timing.
func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
