package nvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pico-cec/bridge/internal/config"
)

func newTestFlash() *MemFlash {
	return NewMemFlash(4096, 4096)
}

func TestLoadOnBlankFlashReturnsDefaults(t *testing.T) {
	cfg := Load(newTestFlash())

	assert.Equal(t, config.DefaultEDIDDelayMS, cfg.EDIDDelayMS)
	assert.Equal(t, config.KeymapKodi, cfg.KeymapType)
	assert.NotZero(t, cfg.Keymap[0x21].Key) // preset-filled
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	flash := newTestFlash()

	cfg := config.Default()
	cfg.EDIDDelayMS = 1234
	cfg.PhysicalAddress = 0x1200
	cfg.LogicalAddress = 4
	cfg.DeviceType = config.DevicePlayback
	cfg.KeymapType = config.KeymapCustom
	cfg.Keymap[0x21] = config.Command{Key: 0x42}

	require.True(t, Save(flash, cfg))

	got := Load(flash)

	assert.Equal(t, uint32(1234), got.EDIDDelayMS)
	assert.Equal(t, uint16(0x1200), got.PhysicalAddress)
	assert.Equal(t, uint8(4), got.LogicalAddress)
	assert.Equal(t, config.DevicePlayback, got.DeviceType)
	assert.Equal(t, uint8(0x42), got.Keymap[0x21].Key)
}

func TestLoadRejectsCorruptBody(t *testing.T) {
	flash := newTestFlash()
	cfg := config.Default()

	require.True(t, Save(flash, cfg))

	corrupt := flash.ReadAt(0, flash.Len())
	corrupt[headerLen+4+2] ^= 0xff
	flash.data = corrupt

	got := Load(flash)

	assert.Equal(t, config.DefaultEDIDDelayMS, got.EDIDDelayMS)
}

func TestLoadMigratesV1AndAppliesPreset(t *testing.T) {
	flash := newTestFlash()

	body := make([]byte, v1BodyLen)
	body[0], body[1], body[2], body[3] = 0x88, 0x13, 0x00, 0x00 // edid_delay_ms = 5000
	body[4], body[5] = 0x00, 0x12                               // physical_address = 0x1200

	hdr := encodeHeader(header{Version: 1, Length: uint32(len(body))})
	hdrCRC := crcOf(hdr)
	bodyCRC := crcOf(body)

	record := append([]byte{}, hdr...)
	record = appendLE32(record, hdrCRC)
	record = append(record, body...)
	record = appendLE32(record, bodyCRC)

	require.True(t, flash.EraseProgram(record))

	got := Load(flash)

	assert.Equal(t, uint16(0x1200), got.PhysicalAddress)
	assert.Equal(t, config.KeymapKodi, got.KeymapType)
	assert.NotZero(t, got.Keymap[0x21].Key)
}

func TestLoadRewritesLegacyTVDeviceTypeToPlayback(t *testing.T) {
	flash := newTestFlash()
	cfg := config.Default()
	cfg.DeviceType = config.DeviceTV

	require.True(t, Save(flash, cfg))

	got := Load(flash)

	assert.Equal(t, config.DevicePlayback, got.DeviceType)
}

func TestSaveFailsWhenRecordExceedsRegion(t *testing.T) {
	flash := NewMemFlash(16, 16)

	assert.False(t, Save(flash, config.Default()))
}
