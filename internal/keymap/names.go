// Package keymap provides the canonical CEC User Control Code name
// table and the built-in keymap presets (Kodi, MiSTer), transcribed
// from "High-Definition Multimedia Interface Specification Version
// 1.3, CEC Table 23, User Control Codes".
//
// The table is intentionally incomplete: codes with no entry here have
// no canonical display name, matching the original firmware's partial
// transcription.
package keymap

import "github.com/pico-cec/bridge/internal/config"

// UserControlNames maps a CEC user-control code to its canonical
// display name. Indices without an entry are unlabelled.
var UserControlNames = map[uint8]string{
	0x00: "Select",
	0x01: "Up",
	0x02: "Down",
	0x03: "Left",
	0x04: "Right",
	0x05: "Right-Up",
	0x06: "Right-Down",
	0x07: "Left-Up",
	0x08: "Left-Down",
	0x0a: "Options",
	0x0d: "Exit",
	0x20: "0",
	0x21: "1",
	0x22: "2",
	0x23: "3",
	0x24: "4",
	0x25: "5",
	0x26: "6",
	0x27: "7",
	0x28: "8",
	0x29: "9",
	0x35: "Display Information",
	0x41: "Volume Up",
	0x42: "Volume Down",
	0x44: "Play",
	0x45: "Stop",
	0x46: "Pause",
	0x48: "Rewind",
	0x49: "Fast Forward",
	0x51: "Sub Picture",
	0x71: "F1 (Blue)",
	0x72: "F2 (Red)",
	0x73: "F3 (Green)",
	0x74: "F4 (Yellow)",
	0x75: "F5",
}

// FinaliseNames is load-sequence step 6 (spec §4.3): for every keymap
// slot with a non-zero key, set its name to the canonical name for
// that user-control code. A slot whose code has no canonical name
// keeps whatever key was assigned but stays unnamed, same as the
// firmware's cec_config_complete.
func FinaliseNames(cfg *config.Config) {
	for i := range cfg.Keymap {
		if cfg.Keymap[i].Key == 0 {
			continue
		}

		cfg.Keymap[i].Name = UserControlNames[uint8(i)]
	}
}
