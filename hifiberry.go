// Package hifiberry drives the clock and register setup of HiFiBerry DAC boards from userspace,
// modeled after the PCM512x and DAC2HD kernel drivers.
//
// The package computes PLL coefficients and divider chains for a requested stream,
// and sequences the resulting register writes over an I2C bus.
package hifiberry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/hifiberry/internal/logging"
)

var (
	// ErrInvalidArgument is returned for unsupported rates, widths, ratios and GPIO indices.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsatisfiable is returned when no clock or divider exists within the hardware bounds.
	ErrUnsatisfiable = errors.New("constraint unsatisfiable")
	// ErrBus wraps a failed register read or write.
	ErrBus = errors.New("bus error")
	// ErrTimeout is returned by register polling that did not reach its condition in time.
	ErrTimeout = errors.New("timeout")
	// ErrBusy is returned when a setting is changed while the device is active.
	ErrBusy = errors.New("device busy")
	// ErrRetryLater is returned when a collaborator (clock, GPIO) is not available yet.
	ErrRetryLater = errors.New("resource not ready, retry later")
	// ErrClosed is returned by operations on a closed bus or line.
	ErrClosed = errors.New("closed")
)

// Stage names the step of a rate change that failed.
type Stage string

const (
	StagePLLCoefficients Stage = "pll-coefficients"
	StageSCK             Stage = "sck"
	StageLRCLK           Stage = "lrclk"
	StageBCLKDivider     Stage = "bclk-divider"
	StageDACRate         Stage = "dac-rate"
	StageOSRDivider      Stage = "osr-divider"
	StageDACDivider      Stage = "dac-divider"
	StageNCPDivider      Stage = "ncp-divider"
	StageRegisterWrite   Stage = "register-write"
	StageRegisterRead    Stage = "register-read"
	StageTable           Stage = "table"
)

// StageError describes a failed stage of a rate change.
// Reg and Val are set for register writes.
type StageError struct {
	Stage Stage
	Reg   Reg
	Val   uint8
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	switch e.Stage {
	case StageRegisterWrite:
		return fmt.Sprintf("%s: reg 0x%03x = 0x%02x: %v", e.Stage, uint16(e.Reg), e.Val, e.Err)
	case StageRegisterRead:
		return fmt.Sprintf("%s: reg 0x%03x: %v", e.Stage, uint16(e.Reg), e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, format string, args ...any) error {
	return &StageError{Stage: stage, Err: fmt.Errorf(format, args...)}
}

func logger() *slog.Logger {
	return logging.GetLogger("clock")
}
