package keymap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pico-cec/bridge/internal/config"
)

func TestExportImportYAMLRoundTrip(t *testing.T) {
	cfg := config.Default()
	FillPreset(&cfg, config.KeymapKodi)
	FinaliseNames(&cfg)

	path := filepath.Join(t.TempDir(), "keymap.yaml")
	require.NoError(t, ExportYAML(path, cfg))

	var got config.Config
	require.NoError(t, ImportYAML(path, &got))

	assert.Equal(t, cfg.Keymap[0x25].Key, got.Keymap[0x25].Key)
	assert.Equal(t, cfg.Keymap[0x21].Key, got.Keymap[0x21].Key)
}
