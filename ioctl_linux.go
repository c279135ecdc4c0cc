//go:build linux

package hifiberry

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// i2c-dev requests and message flags from linux/i2c-dev.h and linux/i2c.h.
const (
	I2C_SLAVE       = 0x0703
	I2C_SLAVE_FORCE = 0x0706
	I2C_RDWR        = 0x0707
	I2C_M_RD        = 0x0001
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	_     uint16
	buf   *byte
}

type i2cRdwrIoctlData struct {
	msgs  *i2cMsg
	nmsgs uint32
}

// ioctl performs a generic ioctl syscall.
func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}

// I2CDev is a register Bus on a Linux /dev/i2c-N character device.
type I2CDev struct {
	mu   sync.Mutex
	fd   int
	path string
	addr uint16
}

// OpenI2CDev opens path and binds it to the device at addr.
// force claims the address even when a kernel driver holds it.
func OpenI2CDev(path string, addr uint16, force bool) (*I2CDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	req := uintptr(I2C_SLAVE)
	if force {
		req = I2C_SLAVE_FORCE
	}

	if err := ioctl(uintptr(fd), req, uintptr(addr)); err != nil {
		unix.Close(fd)

		if errors.Is(err, unix.EBUSY) {
			return nil, fmt.Errorf("%s@%#02x claimed by a kernel driver: %w", path, addr, ErrBusy)
		}

		return nil, fmt.Errorf("%s: bind %#02x: %w", path, addr, err)
	}

	return &I2CDev{fd: fd, path: path, addr: addr}, nil
}

// String implements fmt.Stringer.
func (d *I2CDev) String() string {
	return fmt.Sprintf("%s@%#02x", d.path, d.addr)
}

// ReadReg reads one register with a repeated-start write/read pair.
func (d *I2CDev) ReadReg(reg uint8) (uint8, error) {
	if d == nil {
		return 0, ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return 0, ErrClosed
	}

	w := [1]byte{reg}
	var r [1]byte

	msgs := [2]i2cMsg{
		{addr: d.addr, len: 1, buf: &w[0]},
		{addr: d.addr, flags: I2C_M_RD, len: 1, buf: &r[0]},
	}
	data := i2cRdwrIoctlData{msgs: &msgs[0], nmsgs: uint32(len(msgs))}

	if err := ioctl(uintptr(d.fd), I2C_RDWR, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, fmt.Errorf("%s: read %#02x: %w", d, reg, err)
	}

	return r[0], nil
}

// WriteReg writes one register.
func (d *I2CDev) WriteReg(reg, val uint8) error {
	if d == nil {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return ErrClosed
	}

	n, err := unix.Write(d.fd, []byte{reg, val})
	if err != nil {
		return fmt.Errorf("%s: write %#02x=%#02x: %w", d, reg, val, err)
	}

	if n != 2 {
		return fmt.Errorf("%s: write %#02x: short write %d", d, reg, n)
	}

	return nil
}

// Close releases the device.
func (d *I2CDev) Close() error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}

	err := unix.Close(d.fd)
	d.fd = -1

	return err
}
