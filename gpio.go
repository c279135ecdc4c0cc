package hifiberry

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// OutputPin is a single GPIO output line.
type OutputPin interface {
	Set(high bool) error
}

// PeriphPin drives a periph.io output pin.
type PeriphPin struct {
	Pin gpio.PinOut
	// ActiveLow inverts the level written to the pin.
	ActiveLow bool
}

// Set drives the pin.
func (p PeriphPin) Set(high bool) error {
	if p.Pin == nil {
		return ErrClosed
	}

	if err := p.Pin.Out(gpio.Level(high != p.ActiveLow)); err != nil {
		return fmt.Errorf("gpio %s: %w", p.Pin.Name(), err)
	}

	return nil
}

// PinFunc adapts a function to OutputPin.
type PinFunc func(high bool) error

// Set calls f(high).
func (f PinFunc) Set(high bool) error {
	return f(high)
}

// LatchedPin remembers the last level written through it.
type LatchedPin struct {
	mu    sync.Mutex
	pin   OutputPin
	level bool
	set   bool
}

// NewLatchedPin wraps pin.
func NewLatchedPin(pin OutputPin) *LatchedPin {
	return &LatchedPin{pin: pin}
}

// Set drives the wrapped pin and records the level on success.
func (l *LatchedPin) Set(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pin != nil {
		if err := l.pin.Set(high); err != nil {
			return err
		}
	}

	l.level = high
	l.set = true

	return nil
}

// Level returns the last level written and whether any was.
func (l *LatchedPin) Level() (high, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.level, l.set
}
