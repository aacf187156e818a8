package keymap

import "github.com/pico-cec/bridge/internal/config"

// kodi is the built-in keymap tuned for Kodi's default keyboard
// bindings, transcribed from the firmware's default_kodi_user_keymap.
var kodi = map[uint8]uint8{
	0x00: hidKeyEnter,
	0x01: hidKeyArrowUp,
	0x02: hidKeyArrowDown,
	0x03: hidKeyArrowLeft,
	0x04: hidKeyArrowRight,
	0x0a: hidKeyC,
	0x0d: hidKeyBackspace,
	0x20: hidKey0,
	0x21: hidKey1,
	0x22: hidKey2,
	0x23: hidKey3,
	0x24: hidKey4,
	0x25: hidKey5,
	0x26: hidKey6,
	0x27: hidKey7,
	0x28: hidKey8,
	0x29: hidKey9,
	0x35: hidKeyI,
	0x44: hidKeyP,
	0x45: hidKeyX,
	0x46: hidKeySpace,
	0x48: hidKeyR,
	0x49: hidKeyF,
	0x51: hidKeyL,
}

// mister is tuned for the MiSTer menu core: navigation and digits keep
// their natural bindings, and the other keys the Kodi preset binds,
// except Options (0x0a), fold to F12 (MiSTer's "exit core" / OSD
// toggle), so those remote buttons still do something useful. The
// remaining labelled codes (diagonals, volume, F1-F5) are unmapped.
var mister = map[uint8]uint8{
	0x00: hidKeyEnter,
	0x01: hidKeyArrowUp,
	0x02: hidKeyArrowDown,
	0x03: hidKeyArrowLeft,
	0x04: hidKeyArrowRight,
	0x0d: hidKeyF12,
	0x20: hidKey0,
	0x21: hidKey1,
	0x22: hidKey2,
	0x23: hidKey3,
	0x24: hidKey4,
	0x25: hidKey5,
	0x26: hidKey6,
	0x27: hidKey7,
	0x28: hidKey8,
	0x29: hidKey9,
	0x35: hidKeyF12,
	0x44: hidKeyF12,
	0x45: hidKeyF12,
	0x46: hidKeyF12,
	0x48: hidKeyF12,
	0x49: hidKeyF12,
	0x51: hidKeyF12,
}

// FillPreset is load-sequence step 5 (spec §4.3): overwrite cfg.Keymap
// with one of the built-in tables. KeymapCustom leaves whatever the
// NVS overlay already populated untouched.
func FillPreset(cfg *config.Config, t config.KeymapType) {
	var table map[uint8]uint8

	switch t {
	case config.KeymapKodi:
		table = kodi
	case config.KeymapMiSTer:
		table = mister
	default:
		return
	}

	for i := range cfg.Keymap {
		cfg.Keymap[i] = config.Command{}
	}

	for code, key := range table {
		cfg.Keymap[code] = config.Command{Key: key}
	}
}
