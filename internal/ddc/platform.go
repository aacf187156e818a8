package ddc

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenPlatformBus initialises the periph.io host drivers and opens the
// named I2C bus (empty string selects the default), returning a Bus
// usable with NewI2CProber. The caller owns the returned bus.Closer.
func OpenPlatformBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ddc: init periph host: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("ddc: open i2c bus %q: %w", name, err)
	}

	return bus, nil
}
