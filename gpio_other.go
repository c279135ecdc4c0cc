//go:build !linux

package hifiberry

import "fmt"

// CdevLine is an output line requested from the GPIO character device.
type CdevLine struct{}

// OpenLine is only supported on Linux.
func OpenLine(chip string, offset int, activeLow bool) (*CdevLine, error) {
	return nil, fmt.Errorf("gpio character device %s: %w", chip, ErrInvalidArgument)
}

// Set drives the line.
func (l *CdevLine) Set(bool) error {
	return ErrClosed
}

// Close releases the line.
func (l *CdevLine) Close() error {
	return nil
}
