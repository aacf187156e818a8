package line

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// GPIOCdev drives the CEC pin through the Linux GPIO character device
// via go-gpiocdev, alternating the single requested line between
// high-impedance input (edge-interrupt driven RX) and open-drain
// output (unilateral low assertion, TX and ACK pull-down).
type GPIOCdev struct {
	chip   string
	offset int

	mu      sync.Mutex
	line    *gpiocdev.Line
	output  bool
	handler EdgeFunc
}

// NewGPIOCdev requests offset on chip (e.g. "gpiochip0") as an input
// line with no bias configured: the CEC bus supplies its own pull-up,
// same as the Pico firmware's gpio_disable_pulls call.
func NewGPIOCdev(chip string, offset int) (*GPIOCdev, error) {
	d := &GPIOCdev{chip: chip, offset: offset}

	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput)
	if err != nil {
		return nil, fmt.Errorf("line: request %s:%d: %w", chip, offset, err)
	}
	d.line = l

	return d, nil
}

func (d *GPIOCdev) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.output {
		return nil
	}

	if err := d.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return fmt.Errorf("line: release: %w", err)
	}
	d.output = false

	return nil
}

func (d *GPIOCdev) AssertLow() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.output {
		if err := d.line.Reconfigure(gpiocdev.AsOutput(0), gpiocdev.AsOpenDrain); err != nil {
			return fmt.Errorf("line: assert low: %w", err)
		}
		d.output = true
		return nil
	}

	if err := d.line.SetValue(0); err != nil {
		return fmt.Errorf("line: assert low: %w", err)
	}

	return nil
}

func (d *GPIOCdev) Read() (Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.line.Value()
	if err != nil {
		return High, fmt.Errorf("line: read: %w", err)
	}

	return Level(v != 0), nil
}

func (d *GPIOCdev) EnableEdgeIRQ(edges []Edge, fn EdgeFunc) error {
	d.mu.Lock()
	d.handler = fn
	d.mu.Unlock()

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithEventHandler(d.dispatch)}

	wantRise, wantFall := false, false
	for _, e := range edges {
		if e == EdgeRising {
			wantRise = true
		} else {
			wantFall = true
		}
	}

	switch {
	case wantRise && wantFall:
		opts = append(opts, gpiocdev.WithBothEdges)
	case wantRise:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case wantFall:
		opts = append(opts, gpiocdev.WithFallingEdge)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.line.Reconfigure(opts...); err != nil {
		return fmt.Errorf("line: enable edge irq: %w", err)
	}
	d.output = false

	return nil
}

func (d *GPIOCdev) dispatch(evt gpiocdev.LineEvent) {
	d.mu.Lock()
	fn := d.handler
	d.mu.Unlock()

	if fn == nil {
		return
	}

	edge := EdgeFalling
	if evt.Type == gpiocdev.LineEventRisingEdge {
		edge = EdgeRising
	}

	fn(uint64(evt.Timestamp/time.Microsecond), edge)
}

func (d *GPIOCdev) DisableEdgeIRQ() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handler = nil

	if err := d.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return fmt.Errorf("line: disable edge irq: %w", err)
	}

	return nil
}

func (d *GPIOCdev) NowUS() uint64 {
	return nowUSMonotonic()
}

func nowUSMonotonic() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return uint64(time.Now().UnixMicro())
	}

	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1000
}

func (d *GPIOCdev) ScheduleAt(atUS uint64, fn func()) (cancel func()) {
	now := d.NowUS()

	var delay time.Duration
	if atUS > now {
		delay = time.Duration(atUS-now) * time.Microsecond
	}

	t := time.AfterFunc(delay, fn)

	return func() { t.Stop() }
}

func (d *GPIOCdev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.line.Close()
}
