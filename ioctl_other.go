//go:build !linux

package hifiberry

import "fmt"

// I2CDev is a register Bus on a Linux /dev/i2c-N character device.
type I2CDev struct{}

// OpenI2CDev is only supported on Linux.
func OpenI2CDev(path string, addr uint16, force bool) (*I2CDev, error) {
	return nil, fmt.Errorf("i2c-dev %s: %w", path, ErrInvalidArgument)
}

// ReadReg reads one register.
func (d *I2CDev) ReadReg(uint8) (uint8, error) {
	return 0, ErrClosed
}

// WriteReg writes one register.
func (d *I2CDev) WriteReg(uint8, uint8) error {
	return ErrClosed
}

// Close releases the device.
func (d *I2CDev) Close() error {
	return nil
}
