// cecd bridges an HDMI-CEC bus to a USB HID key stream: it owns the
// line, the protocol engine and the persisted configuration, and
// hands every key to drainKeys below, which only logs it; writing keys
// to the host's HID gadget is not done here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/pico-cec/bridge/internal/cecproto"
	"github.com/pico-cec/bridge/internal/ddc"
	"github.com/pico-cec/bridge/internal/hidqueue"
	"github.com/pico-cec/bridge/internal/line"
	"github.com/pico-cec/bridge/internal/nvs"
)

func main() {
	var (
		chip       = pflag.StringP("chip", "c", "gpiochip0", "GPIO character device for the CEC line.")
		offset     = pflag.IntP("line", "l", 4, "GPIO line offset the CEC bus is wired to.")
		nvsPath    = pflag.StringP("nvs", "n", "/var/lib/cecd/config.bin", "Path to the persisted configuration record.")
		nvsSize    = pflag.Int("nvs-size", 4096, "Size in bytes of the reserved configuration region.")
		nvsSector  = pflag.Int("nvs-sector", 4096, "Erase granularity of the configuration region.")
		i2cBus     = pflag.StringP("i2c-bus", "i", "", "periph.io I2C bus name for DDC EDID probing (empty selects the default bus).")
		noDDC      = pflag.Bool("no-ddc", false, "Skip the DDC probe; rely entirely on the configured physical address.")
		queueDepth = pflag.Int("queue-depth", hidqueue.DefaultCapacity, "HID key output queue capacity.")
		verbose    = pflag.BoolP("verbose", "v", false, "Enable debug-level logging.")
		help       = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cecd - HDMI-CEC to USB-HID bridge daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	flash, err := nvs.OpenFileFlash(*nvsPath, *nvsSize, *nvsSector)
	if err != nil {
		logger.Fatal("open nvs region", "err", err)
	}
	defer flash.Close()

	cfg := nvs.Load(flash)

	drv, err := line.NewGPIOCdev(*chip, *offset)
	if err != nil {
		logger.Fatal("open gpio line", "err", err)
	}
	defer drv.Close()

	var prober ddc.Prober = ddc.NilProber{}
	if !*noDDC {
		bus, err := ddc.OpenPlatformBus(*i2cBus)
		if err != nil {
			logger.Warn("ddc bus unavailable, physical address probing disabled", "err", err)
		} else {
			defer bus.Close()
			prober = ddc.NewI2CProber(bus, logger)
		}
	}

	stats := &cecproto.Stats{}
	codec := cecproto.NewCodec(drv, stats)
	keys := hidqueue.New(*queueDepth)
	engine := cecproto.NewEngine(codec, cfg, keys, prober, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go drainKeys(ctx, keys, logger)
	go reloadOnSIGHUP(ctx, flash, engine, logger)

	logger.Info("starting cec engine", "chip", *chip, "line", *offset, "device_type", cfg.DeviceType)

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("engine stopped", "err", err)
	}
}

// reloadOnSIGHUP re-reads the configuration record on SIGHUP, picking
// up a keymap or device-type change cecctl wrote while cecd stayed up
// (claimed addresses and open handles are untouched; only the cfg
// snapshot the dispatch table reads from is swapped).
func reloadOnSIGHUP(ctx context.Context, flash *nvs.FileFlash, engine *cecproto.Engine, logger *log.Logger) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sighup:
			engine.ReloadConfig(nvs.Load(flash))
			logger.Info("configuration reloaded")
		}
	}
}

// drainKeys logs every key the engine produces. A real deployment
// would instead write HID reports to a USB gadget endpoint; that
// transport is out of scope here, so this stands in as the documented
// consumer contract.
func drainKeys(ctx context.Context, keys *hidqueue.Queue, logger *log.Logger) {
	done := ctx.Done()
	for {
		key, ok := keys.Pop(done)
		if !ok {
			return
		}

		if key == hidqueue.KeyNone {
			logger.Debug("key released")
			continue
		}

		logger.Debug("key pressed", "hid_key", key)
	}
}
