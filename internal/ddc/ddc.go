// Package ddc resolves the CEC physical address by reading and
// parsing the downstream display's EDID over the DDC I2C channel.
package ddc

import (
	"bytes"
	"context"

	"github.com/charmbracelet/log"
)

const (
	edidAddr      = 0x50
	edidBlockSize = 128
	edidReadSize  = edidBlockSize * 2
	ctaDTDStart   = 0x02
	ctaDBCOffset  = 0x04
)

var (
	edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}
	ctaHeader  = []byte{0x02, 0x03}
	vsbHeader  = []byte{0x03, 0x0c, 0x00}
)

// Bus is the subset of periph.io/x/conn/v3/i2c.Bus this package needs,
// mirrored as a local interface the way the corpus's own I2C device
// drivers do (see driver/ap33772s.Bus), so tests can supply a fake bus
// without pulling in periph.io.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Prober resolves the currently-attached display's CEC physical
// address, or 0x0000 if it cannot be determined.
type Prober interface {
	PhysicalAddress(ctx context.Context) uint16
}

// I2CProber reads and parses EDID over a real (or faked) I2C bus.
type I2CProber struct {
	bus    Bus
	logger *log.Logger
}

// NewI2CProber wraps bus. logger may be nil to discard diagnostics.
func NewI2CProber(bus Bus, logger *log.Logger) *I2CProber {
	return &I2CProber{bus: bus, logger: logger}
}

func (p *I2CProber) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Debugf(format, args...)
	}
}

// PhysicalAddress issues a DDC reset then reads, verifies and parses
// two 128-byte EDID blocks, returning the physical address advertised
// in the HDMI vendor-specific data block of the CTA extension, or
// 0x0000 on any failure.
func (p *I2CProber) PhysicalAddress(ctx context.Context) uint16 {
	if err := p.bus.Tx(edidAddr, []byte{0x00}, nil); err != nil {
		p.logf("ddc reset failed: %v", err)
		return 0x0000
	}

	edid := make([]byte, edidReadSize)
	if err := p.bus.Tx(edidAddr, nil, edid); err != nil {
		p.logf("ddc read failed: %v", err)
		return 0x0000
	}

	if !verifyChecksum(edid) {
		p.logf("edid checksum mismatch")
		return 0x0000
	}

	if !bytes.Equal(edid[:8], edidHeader) {
		p.logf("not an edid block")
		return 0x0000
	}

	if edid[126] == 0x00 {
		p.logf("missing cta extension")
		return 0x0000
	}

	cta := edid[edidBlockSize:]
	if !bytes.Equal(cta[:2], ctaHeader) {
		return 0x0000
	}

	return physicalAddressFromCTA(cta)
}

func verifyChecksum(edid []byte) bool {
	var sum uint16
	for _, b := range edid {
		sum += uint16(b)
	}

	return sum&0xff == 0x00
}

// physicalAddressFromCTA walks the CTA extension's data block
// collection looking for an HDMI vendor-specific data block (OUI
// 00-0C-03, stored little endian as 03 0C 00), returning the physical
// address it carries.
func physicalAddressFromCTA(cta []byte) uint16 {
	dtdStart := cta[ctaDTDStart]

	for i := ctaDBCOffset; i < int(dtdStart) && i < len(cta); {
		db := cta[i:]
		length := int(db[0] & 0x1f)

		if length == 0 {
			i++
			continue
		}

		if addr := findPhysicalAddress(db, length); addr != 0x0000 {
			return addr
		}

		i += length + 1
	}

	return 0x0000
}

func findPhysicalAddress(block []byte, length int) uint16 {
	if length < 5 || len(block) < 6 {
		return 0x0000
	}

	if !bytes.Equal(block[1:4], vsbHeader) {
		return 0x0000
	}

	return uint16(block[4])<<8 | uint16(block[5])
}

// StaticProber always reports a configured address, used when the
// physical address is pinned by configuration rather than probed.
type StaticProber uint16

func (p StaticProber) PhysicalAddress(context.Context) uint16 { return uint16(p) }

// NilProber always reports 0x0000, modelling a DDC probe that never
// finds a display.
type NilProber struct{}

func (NilProber) PhysicalAddress(context.Context) uint16 { return 0x0000 }
