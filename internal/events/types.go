package events

import (
	"time"

	"github.com/gen2brain/hifiberry"
)

// Event type identifiers for kelindar/event.
const (
	TypeDividersApplied uint32 = iota + 1
	TypeRateChanged
	TypeMuteTimeout
	TypeBiasChanged
	TypeConfigReloaded
)

// Event is the interface kelindar/event requires.
type Event interface {
	Type() uint32
}

// DividersAppliedEvent is published after a codec latched a new clock plan.
type DividersAppliedEvent struct {
	Device    string
	Plan      hifiberry.ClockPlan
	Timestamp time.Time
}

// Type returns the event type identifier for DividersAppliedEvent.
func (e DividersAppliedEvent) Type() uint32 { return TypeDividersApplied }

// RateChangedEvent is published when a clock generator switched rate.
type RateChangedEvent struct {
	Device    string
	Rate      uint64
	Timestamp time.Time
}

// Type returns the event type identifier for RateChangedEvent.
func (e RateChangedEvent) Type() uint32 { return TypeRateChanged }

// MuteTimeoutEvent is published when the analog mute state did not settle.
type MuteTimeoutEvent struct {
	Device    string
	Timestamp time.Time
}

// Type returns the event type identifier for MuteTimeoutEvent.
func (e MuteTimeoutEvent) Type() uint32 { return TypeMuteTimeout }

// BiasChangedEvent is published after a codec changed power state.
type BiasChangedEvent struct {
	Device    string
	Level     hifiberry.BiasLevel
	Timestamp time.Time
}

// Type returns the event type identifier for BiasChangedEvent.
func (e BiasChangedEvent) Type() uint32 { return TypeBiasChanged }

// ConfigReloadedEvent is published by hbclk serve after applying a reloaded config file.
type ConfigReloadedEvent struct {
	Path      string
	Err       error
	Timestamp time.Time
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
