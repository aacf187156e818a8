package keymap

// USB HID usage IDs (Keyboard/Keypad page), the subset the presets
// below emit. Matches the firmware's tinyusb hid.h constants.
const (
	hidKeyEnter      uint8 = 0x28
	hidKeyBackspace  uint8 = 0x2a
	hidKeySpace      uint8 = 0x2c
	hidKey1          uint8 = 0x1e
	hidKey2          uint8 = 0x1f
	hidKey3          uint8 = 0x20
	hidKey4          uint8 = 0x21
	hidKey5          uint8 = 0x22
	hidKey6          uint8 = 0x23
	hidKey7          uint8 = 0x24
	hidKey8          uint8 = 0x25
	hidKey9          uint8 = 0x26
	hidKey0          uint8 = 0x27
	hidKeyC          uint8 = 0x06
	hidKeyF          uint8 = 0x09
	hidKeyI          uint8 = 0x0c
	hidKeyL          uint8 = 0x0f
	hidKeyP          uint8 = 0x13
	hidKeyR          uint8 = 0x15
	hidKeyX          uint8 = 0x1b
	hidKeyArrowRight uint8 = 0x4f
	hidKeyArrowLeft  uint8 = 0x50
	hidKeyArrowDown  uint8 = 0x51
	hidKeyArrowUp    uint8 = 0x52
	hidKeyF12        uint8 = 0x45
)
