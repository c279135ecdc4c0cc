//go:build linux

package hifiberry

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// CdevLine is an output line requested from the GPIO character device.
type CdevLine struct {
	mu   sync.Mutex
	line *gpiocdev.Line
}

// OpenLine requests offset on chip (e.g. "gpiochip0") as an output, initially low.
func OpenLine(chip string, offset int, activeLow bool) (*CdevLine, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("hbclk"),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s:%d: %w", chip, offset, err)
	}

	return &CdevLine{line: line}, nil
}

// Set drives the line.
func (l *CdevLine) Set(high bool) error {
	if l == nil {
		return ErrClosed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return ErrClosed
	}

	v := 0
	if high {
		v = 1
	}

	return l.line.SetValue(v)
}

// Close releases the line.
func (l *CdevLine) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return nil
	}

	err := l.line.Close()
	l.line = nil

	return err
}
