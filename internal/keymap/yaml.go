package keymap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pico-cec/bridge/internal/config"
)

// entry is one YAML-visible keymap slot: the user-control code as a
// two-digit hex string key in the document, the HID key value and the
// (informational, regenerated on load) canonical name.
type entry struct {
	Key  uint8  `yaml:"key"`
	Name string `yaml:"name,omitempty"`
}

// ExportYAML writes cfg's non-zero keymap slots as a map keyed by the
// two-digit hex user-control code, e.g. "25: {key: 34, name: \"5\"}".
func ExportYAML(path string, cfg config.Config) error {
	doc := make(map[string]entry)

	for i, cmd := range cfg.Keymap {
		if cmd.Key == 0 {
			continue
		}

		doc[fmt.Sprintf("%02x", i)] = entry{Key: cmd.Key, Name: cmd.Name}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("keymap: marshal: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("keymap: write %s: %w", path, err)
	}

	return nil
}

// ImportYAML replaces cfg.Keymap with the contents of a YAML file in
// ExportYAML's format. Names are ignored on import: FinaliseNames
// regenerates them from the canonical table.
func ImportYAML(path string, cfg *config.Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("keymap: read %s: %w", path, err)
	}

	var doc map[string]entry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("keymap: unmarshal %s: %w", path, err)
	}

	for i := range cfg.Keymap {
		cfg.Keymap[i] = config.Command{}
	}

	for code, e := range doc {
		var idx uint8
		if _, err := fmt.Sscanf(code, "%02x", &idx); err != nil {
			return fmt.Errorf("keymap: invalid user-control code %q: %w", code, err)
		}

		cfg.Keymap[idx] = config.Command{Key: e.Key}
	}

	return nil
}
