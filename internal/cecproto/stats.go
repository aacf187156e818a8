package cecproto

import "sync/atomic"

// Stats holds the four monotonically increasing frame counters.
// Updates are single-word atomic; readers may observe a slightly stale
// snapshot across fields, which spec §5 accepts.
type Stats struct {
	RXFrames      atomic.Uint32
	TXFrames      atomic.Uint32
	RXAbortFrames atomic.Uint32
	TXNoAckFrames atomic.Uint32
}

// Snapshot is a point-in-time, non-atomic copy for reporting, as
// returned by Engine.Stats.
type Snapshot struct {
	RXFrames      uint32
	TXFrames      uint32
	RXAbortFrames uint32
	TXNoAckFrames uint32
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		RXFrames:      s.RXFrames.Load(),
		TXFrames:      s.TXFrames.Load(),
		RXAbortFrames: s.RXAbortFrames.Load(),
		TXNoAckFrames: s.TXNoAckFrames.Load(),
	}
}
