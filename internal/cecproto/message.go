// Package cecproto implements the CEC frame codec and protocol engine:
// the bit-level transmit/receive state machines, logical-address
// arbitration, and the per-opcode message dispatcher.
package cecproto

import "fmt"

// LogicalAddress is the 4-bit role identifier on the CEC bus. 0 is TV
// (never claimed by this device), 15 is broadcast/unregistered.
type LogicalAddress uint8

const (
	AddressTV        LogicalAddress = 0
	AddressBroadcast LogicalAddress = 15
)

// PlaybackCandidates is the ordered list of logical addresses this
// device attempts to claim at startup, per spec §4.4.
var PlaybackCandidates = []LogicalAddress{4, 8, 11}

// PhysicalAddress is the 16-bit a.b.c.d HDMI topology position. Zero is
// reserved for the TV and, internally, means "unknown, query over DDC".
type PhysicalAddress uint16

func (p PhysicalAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", (p>>12)&0xf, (p>>8)&0xf, (p>>4)&0xf, p&0xf)
}

// Hi returns the high byte of the physical address, as transmitted on
// the wire.
func (p PhysicalAddress) Hi() uint8 { return uint8(p >> 8) }

// Lo returns the low byte of the physical address, as transmitted on
// the wire.
func (p PhysicalAddress) Lo() uint8 { return uint8(p) }

// Message is a CEC frame: 1 to 16 bytes, byte 0 is the header (high
// nibble initiator, low nibble destination), byte 1 when present is
// the opcode, bytes 2-15 are operands. A length-1 message is a polling
// message used for address probing.
type Message []byte

// Header builds the single header byte from an initiator/destination
// pair.
func Header(initiator, destination LogicalAddress) byte {
	return byte(initiator)<<4 | byte(destination)&0x0f
}

// Initiator returns the high nibble of byte 0.
func (m Message) Initiator() LogicalAddress {
	if len(m) == 0 {
		return AddressBroadcast
	}

	return LogicalAddress(m[0] >> 4)
}

// Destination returns the low nibble of byte 0.
func (m Message) Destination() LogicalAddress {
	if len(m) == 0 {
		return AddressBroadcast
	}

	return LogicalAddress(m[0] & 0x0f)
}

// IsPolling reports whether this is a single-byte polling message (no
// opcode, the codec-layer ACK already conveys the whole result).
func (m Message) IsPolling() bool {
	return len(m) <= 1
}

// Opcode returns byte 1, or 0 with ok=false if the message has no
// opcode (a polling message).
func (m Message) Opcode() (op Opcode, ok bool) {
	if len(m) < 2 {
		return 0, false
	}

	return Opcode(m[1]), true
}

// Operand returns operand byte at index i (0-based within the operand
// region, i.e. m[2+i]), or 0 with ok=false if out of range.
func (m Message) Operand(i int) (b byte, ok bool) {
	idx := 2 + i
	if idx >= len(m) {
		return 0, false
	}

	return m[idx], true
}

// PollingMessage builds the single-byte polling message used to probe
// whether addr is free (header with both nibbles equal to addr).
func PollingMessage(addr LogicalAddress) Message {
	return Message{Header(addr, addr)}
}
