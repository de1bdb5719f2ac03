//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers/flash"
)

// SPIFlash configures an external SPI NOR chip and returns it as a Flash
// target.
func SPIFlash(spi *machine.SPI, sdo, sdi, sck, cs machine.Pin) (Flash, error) {
	dev := flash.NewSPI(spi, sdo, sdi, sck, cs)
	if err := dev.Configure(&flash.DeviceConfig{Identifier: flash.DefaultDeviceIdentifier}); err != nil {
		return nil, fmt.Errorf("spi flash configure: %w", err)
	}
	return FlashFromBlockDevice(dev), nil
}
