// Package nvs persists Config across restarts in a CRC32-guarded,
// versioned record, backed by an erase-by-sector byte region standing
// in for raw flash.
package nvs

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/pico-cec/bridge/internal/config"
)

// CurrentVersion is the body layout Save always writes.
const CurrentVersion uint8 = 2

const (
	v1BodyLen = 4 + 2 + config.NumUserControlCodes
	v2BodyLen = 4 + 2 + 1 + 1 + 1 + config.NumUserControlCodes
)

// crcTable is IEEE 802.3 (poly 0xEDB88320), the same polynomial the
// firmware's crc32() helper uses. hash/crc32 is the standard library,
// used here because no third-party CRC32 implementation appears
// anywhere in the retrieved corpus; see DESIGN.md.
var crcTable = crc32.IEEETable

// header is the fixed-size record preamble.
type header struct {
	Version uint8
	Length  uint32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, 5)
	buf[0] = h.Version
	binary.LittleEndian.PutUint32(buf[1:], h.Length)
	return buf
}

func decodeHeader(b []byte) header {
	return header{Version: b[0], Length: binary.LittleEndian.Uint32(b[1:5])}
}

// encodeBodyV2 serialises cfg into the current body layout.
func encodeBodyV2(cfg config.Config) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, cfg.EDIDDelayMS)
	binary.Write(buf, binary.LittleEndian, cfg.PhysicalAddress)
	buf.WriteByte(cfg.LogicalAddress)
	buf.WriteByte(uint8(cfg.DeviceType))
	buf.WriteByte(uint8(cfg.KeymapType))

	for i := range cfg.Keymap {
		buf.WriteByte(cfg.Keymap[i].Key)
	}

	return buf.Bytes()
}

// decodeBodyV2 fills the addressing, device-class and keymap-key
// fields of cfg from a v2 body. Names are left for FinaliseNames.
func decodeBodyV2(b []byte, cfg *config.Config) {
	r := bytes.NewReader(b)
	binary.Read(r, binary.LittleEndian, &cfg.EDIDDelayMS)
	binary.Read(r, binary.LittleEndian, &cfg.PhysicalAddress)

	var laddr, dtype, ktype uint8
	binary.Read(r, binary.LittleEndian, &laddr)
	binary.Read(r, binary.LittleEndian, &dtype)
	binary.Read(r, binary.LittleEndian, &ktype)

	cfg.LogicalAddress = laddr
	cfg.DeviceType = config.DeviceType(dtype)
	cfg.KeymapType = config.KeymapType(ktype)

	for i := 0; i < config.NumUserControlCodes && r.Len() > 0; i++ {
		var k uint8
		binary.Read(r, binary.LittleEndian, &k)
		cfg.Keymap[i].Key = k
	}
}

// decodeBodyV1 fills only the fields the v1 layout carried.
func decodeBodyV1(b []byte, cfg *config.Config) {
	r := bytes.NewReader(b)
	binary.Read(r, binary.LittleEndian, &cfg.EDIDDelayMS)
	binary.Read(r, binary.LittleEndian, &cfg.PhysicalAddress)

	for i := 0; i < config.NumUserControlCodes && r.Len() > 0; i++ {
		var k uint8
		binary.Read(r, binary.LittleEndian, &k)
		cfg.Keymap[i].Key = k
	}
}

func crcOf(b []byte) uint32 {
	return crc32.Checksum(b, crcTable)
}
