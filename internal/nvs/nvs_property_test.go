package nvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pico-cec/bridge/internal/config"
)

// TestSaveLoadRoundTripProperty checks load(save(c)) == c for any
// Custom-keymap configuration (KeymapType != Custom would have Load
// overwrite the keymap with a preset, which is the documented
// behaviour, not a round-trip violation). ChromecastPowerQuirk is not
// part of the record, so it must come back as its default.
func TestSaveLoadRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := config.Config{
			EDIDDelayMS:          rapid.Uint32().Draw(rt, "edid_delay_ms"),
			PhysicalAddress:      rapid.Uint16().Draw(rt, "physical_address"),
			LogicalAddress:       uint8(rapid.IntRange(0, 15).Draw(rt, "logical_address")),
			DeviceType:           config.DeviceType(rapid.IntRange(1, 5).Draw(rt, "device_type")), // exclude TV: legacy rewrite
			KeymapType:           config.KeymapCustom,
			ChromecastPowerQuirk: rapid.Bool().Draw(rt, "chromecast_quirk"),
		}

		for i := range cfg.Keymap {
			cfg.Keymap[i].Key = uint8(rapid.IntRange(0, 255).Draw(rt, "key"))
		}

		flash := NewMemFlash(8192, 4096)
		require.True(t, Save(flash, cfg))

		got := Load(flash)

		assert.Equal(t, cfg.EDIDDelayMS, got.EDIDDelayMS)
		assert.Equal(t, cfg.PhysicalAddress, got.PhysicalAddress)
		assert.Equal(t, cfg.LogicalAddress, got.LogicalAddress)
		assert.Equal(t, cfg.DeviceType, got.DeviceType)
		assert.Equal(t, config.Default().ChromecastPowerQuirk, got.ChromecastPowerQuirk)

		for i := range cfg.Keymap {
			assert.Equal(t, cfg.Keymap[i].Key, got.Keymap[i].Key, "slot %d", i)
		}
	})
}
