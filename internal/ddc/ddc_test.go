package ddc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	writes [][]byte
	edid   []byte
	failTx bool
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.failTx {
		return assert.AnError
	}

	if w != nil {
		b.writes = append(b.writes, append([]byte{}, w...))
	}

	if r != nil {
		copy(r, b.edid)
	}

	return nil
}

// buildEDID assembles a two-block EDID with a CTA extension carrying a
// single HDMI vendor-specific data block advertising physAddr, with
// both blocks' checksum bytes set so the low byte of the sum is zero.
func buildEDID(physAddr uint16) []byte {
	edid := make([]byte, edidReadSize)
	copy(edid[:8], edidHeader)
	edid[126] = 0x01 // one CTA extension present

	cta := edid[edidBlockSize:]
	cta[0] = 0x02
	cta[1] = 0x03
	cta[2] = 0x0a // DTD start offset: the data block collection is bytes 4-9

	db := cta[ctaDBCOffset:]
	db[0] = 0x65 // tag 3 (vendor-specific data block), length 5
	db[1] = vsbHeader[0]
	db[2] = vsbHeader[1]
	db[3] = vsbHeader[2]
	db[4] = byte(physAddr >> 8)
	db[5] = byte(physAddr)

	fixChecksums(edid)

	return edid
}

func fixChecksums(edid []byte) {
	for _, block := range [][]byte{edid[:edidBlockSize], edid[edidBlockSize:]} {
		block[127] = 0
		var sum uint16
		for _, b := range block {
			sum += uint16(b)
		}
		block[127] = byte((0x100 - (sum & 0xff)) & 0xff)
	}
}

func TestPhysicalAddressFromValidEDID(t *testing.T) {
	bus := &fakeBus{edid: buildEDID(0x1200)}
	p := NewI2CProber(bus, nil)

	addr := p.PhysicalAddress(context.Background())

	assert.Equal(t, uint16(0x1200), addr)
	require.Len(t, bus.writes, 1)
	assert.Equal(t, []byte{0x00}, bus.writes[0])
}

func TestPhysicalAddressReturnsZeroOnBusFailure(t *testing.T) {
	p := NewI2CProber(&fakeBus{failTx: true}, nil)

	assert.Equal(t, uint16(0x0000), p.PhysicalAddress(context.Background()))
}

func TestPhysicalAddressReturnsZeroWithoutCTAExtension(t *testing.T) {
	edid := buildEDID(0x1200)
	edid[126] = 0x00
	fixChecksums(edid)

	p := NewI2CProber(&fakeBus{edid: edid}, nil)

	assert.Equal(t, uint16(0x0000), p.PhysicalAddress(context.Background()))
}

func TestStaticProber(t *testing.T) {
	assert.Equal(t, uint16(0x2100), StaticProber(0x2100).PhysicalAddress(context.Background()))
}

func TestNilProber(t *testing.T) {
	assert.Equal(t, uint16(0x0000), NilProber{}.PhysicalAddress(context.Background()))
}
