package cecproto

import (
	"context"
	"errors"

	"github.com/pico-cec/bridge/internal/line"
)

// ErrAbort signals that an in-progress receive hit a bit-timing
// violation (a measured low duration outside every valid window) and
// transitioned to ABORT. It is not a fault: the codec resynchronises on
// the next start bit.
var ErrAbort = errors.New("cecproto: rx abort (bit timing violation)")

// rxState and txState are explicit tagged variants, not a shared
// sentinel enum, per the "tagged variant, not sentinel" design note:
// RX and TX never occupy overlapping states even though several names
// mirror each other.
type rxState int

const (
	rxStartLow rxState = iota
	rxStartHigh
	rxDataLow
	rxDataHigh
	rxEOMLow
	rxEOMHigh
	rxAckLow
	rxAckHigh
	rxAckEnd
	rxEnd
	rxAbort
)

type txState int

const (
	txStartLow txState = iota
	txStartHigh
	txDataLow
	txDataHigh
	txEOMLow
	txEOMHigh
	txAckLow
	txAckHigh
	txAckWait
	txEnd
)

// Codec serialises Messages onto the wire and deserialises them back.
// One Codec instance owns one physical line; Send and Receive are
// never active at the same time (enforced by the caller, the protocol
// engine).
type Codec struct {
	drv   line.Driver
	stats *Stats
}

// NewCodec builds a Codec driving drv, recording into stats.
func NewCodec(drv line.Driver, stats *Stats) *Codec {
	return &Codec{drv: drv, stats: stats}
}

type rxSession struct {
	buf     [16]byte
	byteIdx int
	bitIdx  int
	first   bool
	eom     bool
	ackSent bool
	anchor  uint64
	state   rxState
	local   LogicalAddress
	done    chan rxResult
}

type rxResult struct {
	length int
	abort  bool
}

// Receive blocks until one complete frame is assembled or a timing
// violation aborts it, or ctx is cancelled. local is the codec's own
// logical address, used to decide whether to assert ACK on directed
// traffic (broadcast, address 15, is never ACKed by us at this layer).
func (c *Codec) Receive(ctx context.Context, local LogicalAddress) (Message, error) {
	s := &rxSession{state: rxStartLow, local: local, done: make(chan rxResult, 1)}

	if err := c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeFalling}, func(ts uint64, e line.Edge) {
		c.rxEdge(s, ts, e)
	}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		_ = c.drv.DisableEdgeIRQ()
		return nil, ctx.Err()
	case res := <-s.done:
		_ = c.drv.DisableEdgeIRQ()

		if res.abort {
			c.stats.RXAbortFrames.Add(1)
			return nil, ErrAbort
		}

		c.stats.RXFrames.Add(1)
		msg := make(Message, res.length)
		copy(msg, s.buf[:res.length])

		return msg, nil
	}
}

// rxEdge is the RX state machine transition function. It is the
// direct analogue of the firmware's hdmi_rx_frame_isr: it must do no
// blocking work, only update s and, on a terminal state, signal s.done.
func (c *Codec) rxEdge(s *rxSession, now uint64, _ line.Edge) {
	switch s.state {
	case rxStartLow:
		s.anchor = now
		s.state = rxStartHigh
		_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeRising}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })

	case rxStartHigh:
		low := now - s.anchor
		if !withinWindow(low, startLowMin, startLowMax) {
			c.rxFinishAbort(s)
			return
		}

		s.first = true
		s.byteIdx = 0
		s.bitIdx = 0
		s.state = rxDataLow
		_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeFalling}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })

	case rxEOMLow:
		s.byteIdx++
		s.bitIdx = 0

		fallthrough
	case rxDataLow:
		min, max := uint64(bitRXMin), uint64(bitRXMax)
		if s.first {
			min, max = bitRXFirstMin, bitRXFirstMax
		}

		bitTime := now - s.anchor
		if !withinWindow(bitTime, min, max) {
			c.rxFinishAbort(s)
			return
		}

		s.anchor = now
		if s.state == rxEOMLow {
			s.state = rxEOMHigh
		} else {
			s.state = rxDataHigh
		}

		s.first = false
		_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeRising}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })

	case rxEOMHigh, rxDataHigh:
		low := now - s.anchor

		var bit bool
		switch {
		case withinWindow(low, dataLowMin, dataLowMax):
			bit = true
		case withinWindow(low, dataLowLongMin, dataLowLongMax):
			bit = false
		default:
			c.rxFinishAbort(s)
			return
		}

		if s.state == rxEOMHigh {
			s.eom = bit
			s.state = rxAckLow
		} else {
			s.buf[s.byteIdx] <<= 1
			if bit {
				s.buf[s.byteIdx] |= 0x01
			}

			s.bitIdx++
			if s.bitIdx > 7 {
				s.state = rxEOMLow
			} else {
				s.state = rxDataLow
			}
		}

		_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeFalling}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })

	case rxAckLow:
		s.anchor = now

		tgt := LogicalAddress(s.buf[0] & 0x0f)
		if tgt != AddressBroadcast && tgt == s.local {
			s.ackSent = true
			_ = c.drv.AssertLow()
			releaseAt := s.anchor + ackReleaseDelay
			c.drv.ScheduleAt(releaseAt, func() { _ = c.drv.Release() })
		}

		s.state = rxAckHigh
		_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeRising}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })

	case rxAckHigh:
		low := now - s.anchor
		if !withinWindow(low, dataLowMin, dataLowMax) && !withinWindow(low, dataLowLongMin, dataLowLongMax) {
			c.rxFinishAbort(s)
			return
		}

		s.state = rxAckEnd

		fallthrough
	case rxAckEnd:
		if s.eom {
			s.state = rxEnd
		} else {
			s.state = rxDataLow
			_ = c.drv.EnableEdgeIRQ([]line.Edge{line.EdgeFalling}, func(ts uint64, e line.Edge) { c.rxEdge(s, ts, e) })
			return
		}

		fallthrough
	case rxEnd:
		s.done <- rxResult{length: s.byteIdx}
	}
}

func (c *Codec) rxFinishAbort(s *rxSession) {
	s.state = rxAbort
	s.done <- rxResult{abort: true}
}

type txSession struct {
	msg        Message
	byteIdx    int
	bit        int
	anchor     uint64
	state      txState
	ack        bool
	perByteAck []bool
	done       chan struct{}
}

// Send transmits msg (1-16 bytes). It waits for 7 bit-times of
// observed bus idleness before driving the start bit (spec §4.2 step
// 2), so it may block for an unbounded but re-checked duration before
// the frame itself begins. The returned acked flag is the final
// byte's ACK sample; TXNoAckFrames/TXFrames are updated accordingly.
func (c *Codec) Send(ctx context.Context, msg Message) (acked bool, err error) {
	if err := c.waitIdle(ctx); err != nil {
		return false, err
	}

	s := &txSession{msg: msg, bit: 7, perByteAck: make([]bool, len(msg)), done: make(chan struct{}, 1)}
	s.state = txStartLow
	s.anchor = c.drv.NowUS()

	c.txStep(s)

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.done:
	}

	if s.ack {
		c.stats.TXFrames.Add(1)
	} else {
		c.stats.TXNoAckFrames.Add(1)
	}

	return s.ack, nil
}

// waitIdle polls the line every data-bit period until idleBitTimes
// consecutive high samples are seen; any low sample resets the count.
func (c *Codec) waitIdle(ctx context.Context) error {
	consecutive := 0
	for consecutive < idleBitTimes {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lvl, err := c.drv.Read()
		if err != nil {
			return err
		}

		if lvl == line.High {
			consecutive++
		} else {
			consecutive = 0
		}

		waitCh := make(chan struct{})
		c.drv.ScheduleAt(c.drv.NowUS()+dataPeriod, func() { close(waitCh) })

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waitCh:
		}
	}

	return nil
}

// txStep is the direct analogue of the firmware's hdmi_tx_callback: it
// drives or releases the line for the current phase, computes the
// absolute deadline for the next phase, and schedules itself (or the
// next phase's bit) at that deadline. It is not recursive in the call
// stack sense: each invocation returns after arming exactly one alarm.
func (c *Codec) txStep(s *txSession) {
	switch s.state {
	case txStartLow:
		_ = c.drv.AssertLow()
		s.anchor = c.drv.NowUS()
		s.state = txStartHigh
		c.armNext(s, s.anchor+startLowNom)

	case txStartHigh:
		_ = c.drv.Release()
		s.state = txDataLow
		c.armNext(s, s.anchor+startPeriod)

	case txDataLow:
		_ = c.drv.AssertLow()
		s.anchor = c.drv.NowUS()

		low := uint64(dataLow0)
		if s.msg[s.byteIdx]&(1<<uint(s.bit)) != 0 {
			low = dataLow1
		}

		s.state = txDataHigh
		c.armNext(s, s.anchor+low)

	case txDataHigh:
		_ = c.drv.Release()

		if s.bit > 0 {
			s.bit--
			s.state = txDataLow
		} else {
			s.byteIdx++
			s.state = txEOMLow
		}

		c.armNext(s, s.anchor+dataPeriod)

	case txEOMLow:
		_ = c.drv.AssertLow()
		s.anchor = c.drv.NowUS()

		// EOM is 0 (long low) while more bytes follow, 1 (short low)
		// on the last byte of the message.
		low := uint64(dataLow1)
		if s.byteIdx < len(s.msg) {
			low = dataLow0
		}

		s.state = txEOMHigh
		c.armNext(s, s.anchor+low)

	case txEOMHigh:
		_ = c.drv.Release()
		s.state = txAckLow
		c.armNext(s, s.anchor+dataPeriod)

	case txAckLow:
		_ = c.drv.AssertLow()
		s.anchor = c.drv.NowUS()
		s.state = txAckHigh
		c.armNext(s, s.anchor+dataLow1)

	case txAckHigh:
		_ = c.drv.Release()

		if s.byteIdx < len(s.msg) {
			s.bit = 7
			s.state = txDataLow
			c.armNext(s, s.anchor+dataPeriod)
		} else {
			s.state = txAckWait
			c.armNext(s, s.anchor+sampleAckAt)
		}

	case txAckWait:
		lvl, _ := c.drv.Read()
		last := s.byteIdx - 1
		if lvl == line.Low {
			s.ack = true
			if last >= 0 && last < len(s.perByteAck) {
				s.perByteAck[last] = true
			}
		}

		s.state = txEnd
		c.armNext(s, s.anchor+dataPeriod)

	case txEnd:
		s.done <- struct{}{}
	}
}

func (c *Codec) armNext(s *txSession, atUS uint64) {
	c.drv.ScheduleAt(atUS, func() { c.txStep(s) })
}
