package nvs

import (
	"github.com/pico-cec/bridge/internal/config"
	"github.com/pico-cec/bridge/internal/keymap"
)

const headerLen = 5 // version(1) + length(4)

// Load implements spec load sequence steps 1-6: defaults, header CRC
// check, version-specific body CRC check and deserialisation, preset
// fill, and name finalisation.
func Load(flash FlashDevice) config.Config {
	cfg := config.Default()

	if !loadInto(flash, &cfg) {
		cfg = config.Default()
		cfg.KeymapType = config.KeymapKodi
	}

	if cfg.KeymapType != config.KeymapCustom {
		keymap.FillPreset(&cfg, cfg.KeymapType)
	}

	keymap.FinaliseNames(&cfg)

	return cfg
}

// loadInto attempts to deserialise a valid record from flash into cfg,
// returning false (leaving cfg untouched) on any CRC mismatch.
func loadInto(flash FlashDevice, cfg *config.Config) bool {
	if flash.Len() < headerLen+4 {
		return false
	}

	hdrBytes := flash.ReadAt(0, headerLen)
	hdrCRC := flash.ReadAt(headerLen, 4)

	if crcOf(hdrBytes) != leUint32(hdrCRC) {
		return false
	}

	hdr := decodeHeader(hdrBytes)
	bodyOff := headerLen + 4

	switch hdr.Version {
	case 1:
		if bodyOff+v1BodyLen+4 > flash.Len() {
			return false
		}

		body := flash.ReadAt(bodyOff, v1BodyLen)
		bodyCRC := flash.ReadAt(bodyOff+v1BodyLen, 4)

		if crcOf(body) != leUint32(bodyCRC) {
			return false
		}

		decodeBodyV1(body, cfg)
		cfg.KeymapType = config.KeymapKodi

		return true

	case 2:
		if bodyOff+v2BodyLen+4 > flash.Len() {
			return false
		}

		body := flash.ReadAt(bodyOff, v2BodyLen)
		bodyCRC := flash.ReadAt(bodyOff+v2BodyLen, 4)

		if crcOf(body) != leUint32(bodyCRC) {
			return false
		}

		decodeBodyV2(body, cfg)

		// Legacy bug compensation: a handful of early images stored
		// TV as the advertised device type, which confuses Report
		// Physical Address receivers expecting a source device here.
		if cfg.DeviceType == config.DeviceTV {
			cfg.DeviceType = config.DevicePlayback
		}

		return true

	default:
		return false
	}
}

// Save serialises cfg as a current-version record and programs it at
// the start of flash, returning false if it would not fit in the
// reserved region.
func Save(flash FlashDevice, cfg config.Config) bool {
	body := encodeBodyV2(cfg)
	hdr := encodeHeader(header{Version: CurrentVersion, Length: uint32(len(body))})
	hdrCRC := crcOf(hdr)
	bodyCRC := crcOf(body)

	record := make([]byte, 0, len(hdr)+4+len(body)+4)
	record = append(record, hdr...)
	record = appendLE32(record, hdrCRC)
	record = append(record, body...)
	record = appendLE32(record, bodyCRC)

	return flash.EraseProgram(record)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func appendLE32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
