package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pico-cec/bridge/internal/config"
)

func TestFillPresetKodi(t *testing.T) {
	cfg := config.Default()
	FillPreset(&cfg, config.KeymapKodi)

	assert.Equal(t, hidKeyEnter, cfg.Keymap[0x00].Key)
	assert.Equal(t, hidKeyArrowUp, cfg.Keymap[0x01].Key)
	assert.Equal(t, hidKey5, cfg.Keymap[0x25].Key)
	assert.Equal(t, uint8(0), cfg.Keymap[0xfe].Key)
}

func TestFillPresetMiSTerFoldsUnknownToF12(t *testing.T) {
	cfg := config.Default()
	FillPreset(&cfg, config.KeymapMiSTer)

	assert.Equal(t, hidKeyF12, cfg.Keymap[0x0d].Key)
	assert.Equal(t, hidKey1, cfg.Keymap[0x21].Key)
	assert.Equal(t, hidKeyArrowLeft, cfg.Keymap[0x03].Key)
}

func TestFillPresetCustomLeavesKeymapAlone(t *testing.T) {
	cfg := config.Default()
	cfg.Keymap[0x25] = config.Command{Key: 0x99}

	FillPreset(&cfg, config.KeymapCustom)

	assert.Equal(t, uint8(0x99), cfg.Keymap[0x25].Key)
}

func TestFinaliseNamesOnlyNamesAssignedSlots(t *testing.T) {
	cfg := config.Default()
	FillPreset(&cfg, config.KeymapKodi)

	FinaliseNames(&cfg)

	assert.Equal(t, "5", cfg.Keymap[0x25].Name)
	assert.Equal(t, "", cfg.Keymap[0xfe].Name)
}
