package hifiberry

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// Default I2C addresses of the supported chips.
const (
	PCM512x_I2C_ADDR    = 0x4d
	PCM1796_I2C_ADDR    = 0x4c
	DAC2HD_CLK_I2C_ADDR = 0x60
)

// I2CBus is a register Bus on a periph.io I2C device.
type I2CBus struct {
	mu sync.Mutex
	d  i2c.Dev
}

// NewI2CBus returns a Bus for the device at addr on b.
func NewI2CBus(b i2c.Bus, addr uint16) *I2CBus {
	return &I2CBus{d: i2c.Dev{Bus: b, Addr: addr}}
}

// String implements fmt.Stringer.
func (b *I2CBus) String() string {
	if b == nil || b.d.Bus == nil {
		return "i2c(closed)"
	}

	return fmt.Sprintf("%s@%#02x", b.d.Bus, b.d.Addr)
}

// ReadReg reads one register with a combined write/read transaction.
func (b *I2CBus) ReadReg(reg uint8) (uint8, error) {
	if b == nil || b.d.Bus == nil {
		return 0, ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var r [1]byte
	if err := b.d.Tx([]byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("%s: read %#02x: %w", b, reg, err)
	}

	return r[0], nil
}

// WriteReg writes one register.
func (b *I2CBus) WriteReg(reg, val uint8) error {
	if b == nil || b.d.Bus == nil {
		return ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.d.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("%s: write %#02x=%#02x: %w", b, reg, val, err)
	}

	return nil
}

// OpenI2C opens a registered periph.io I2C bus by name ("" for the first one)
// and optionally sets its clock. host.Init must have run.
func OpenI2C(name string, speed physic.Frequency) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", name, err)
	}

	if speed != 0 {
		if err := bus.SetSpeed(speed); err != nil {
			bus.Close()

			return nil, fmt.Errorf("i2c %q speed %s: %w", name, speed, err)
		}
	}

	return bus, nil
}

// FormatRate renders a clock rate in Hz with an SI unit.
func FormatRate(hz uint64) string {
	return (physic.Frequency(hz) * physic.Hertz).String()
}
