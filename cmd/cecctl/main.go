// cecctl inspects and edits a cecd configuration record: dump the
// decoded record, write defaults, or import/export the keymap as
// YAML for hand-editing a Custom mapping.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/pico-cec/bridge/internal/config"
	"github.com/pico-cec/bridge/internal/keymap"
	"github.com/pico-cec/bridge/internal/nvs"
)

func main() {
	var (
		nvsPath   = pflag.StringP("nvs", "n", "/var/lib/cecd/config.bin", "Path to the persisted configuration record.")
		nvsSize   = pflag.Int("nvs-size", 4096, "Size in bytes of the reserved configuration region.")
		nvsSector = pflag.Int("nvs-sector", 4096, "Erase granularity of the configuration region.")
		help      = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cecctl - inspect and edit a cecd configuration record\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  show                 Print the decoded configuration.\n")
		fmt.Fprintf(os.Stderr, "  reset                Write compile-time defaults to the record.\n")
		fmt.Fprintf(os.Stderr, "  export-keymap FILE   Write the current keymap as YAML.\n")
		fmt.Fprintf(os.Stderr, "  import-keymap FILE   Replace the keymap with a YAML file's contents.\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(0)
	}

	flash, err := nvs.OpenFileFlash(*nvsPath, *nvsSize, *nvsSector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open nvs region: %v\n", err)
		os.Exit(1)
	}
	defer flash.Close()

	switch cmd := pflag.Arg(0); cmd {
	case "show":
		runShow(flash)
	case "reset":
		runReset(flash)
	case "export-keymap":
		runExportKeymap(flash, requireArg(1, "export-keymap"))
	case "import-keymap":
		runImportKeymap(flash, requireArg(1, "import-keymap"))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		pflag.Usage()
		os.Exit(1)
	}
}

func requireArg(n int, cmd string) string {
	if pflag.NArg() <= n {
		fmt.Fprintf(os.Stderr, "%s requires a file argument\n", cmd)
		os.Exit(1)
	}

	return pflag.Arg(n)
}

func runShow(flash *nvs.FileFlash) {
	cfg := nvs.Load(flash)

	fmt.Printf("edid_delay_ms:    %d\n", cfg.EDIDDelayMS)
	fmt.Printf("physical_address: %s\n", formatPhysicalAddress(cfg.PhysicalAddress))
	fmt.Printf("logical_address:  %d\n", cfg.LogicalAddress)
	fmt.Printf("device_type:      %d\n", cfg.DeviceType)
	fmt.Printf("keymap_type:      %s\n", cfg.KeymapType)
	fmt.Printf("chromecast_quirk: %t\n", cfg.ChromecastPowerQuirk)

	fmt.Printf("keymap:\n")
	for i, cmd := range cfg.Keymap {
		if cmd.Key == 0 {
			continue
		}

		fmt.Printf("  0x%02x %-24s -> hid 0x%02x\n", i, cmd.Name, cmd.Key)
	}
}

func formatPhysicalAddress(addr uint16) string {
	return fmt.Sprintf("%d.%d.%d.%d", (addr>>12)&0xf, (addr>>8)&0xf, (addr>>4)&0xf, addr&0xf)
}

func runReset(flash *nvs.FileFlash) {
	cfg := config.Default()
	keymap.FillPreset(&cfg, cfg.KeymapType)
	keymap.FinaliseNames(&cfg)

	if !nvs.Save(flash, cfg) {
		fmt.Fprintf(os.Stderr, "record does not fit in the reserved region\n")
		os.Exit(1)
	}

	fmt.Println("wrote compile-time defaults")
}

func runExportKeymap(flash *nvs.FileFlash, path string) {
	cfg := nvs.Load(flash)

	if err := keymap.ExportYAML(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "export keymap: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("exported keymap to %s\n", path)
}

func runImportKeymap(flash *nvs.FileFlash, path string) {
	cfg := nvs.Load(flash)

	if err := keymap.ImportYAML(path, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "import keymap: %v\n", err)
		os.Exit(1)
	}

	cfg.KeymapType = config.KeymapCustom
	keymap.FinaliseNames(&cfg)

	if !nvs.Save(flash, cfg) {
		fmt.Fprintf(os.Stderr, "record does not fit in the reserved region\n")
		os.Exit(1)
	}

	fmt.Printf("imported keymap from %s\n", path)
}
