// Package events distributes device notifications to in-process subscribers.
package events

import (
	"time"

	"github.com/kelindar/event"

	"github.com/gen2brain/hifiberry"
)

// Bus wraps a kelindar/event dispatcher. It implements hifiberry.Observer,
// so devices publish on it directly. Handlers run asynchronously.
type Bus struct {
	dispatcher *event.Dispatcher
	now        func() time.Time
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
		now:        time.Now,
	}
}

// Publish publishes an event to all subscribers of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DividersAppliedEvent:
		event.Publish(b.dispatcher, e)
	case RateChangedEvent:
		event.Publish(b.dispatcher, e)
	case MuteTimeoutEvent:
		event.Publish(b.dispatcher, e)
	case BiasChangedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its argument and returns
// the unsubscribe function. Unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DividersAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MuteTimeoutEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BiasChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// DividersApplied implements hifiberry.Observer. The plan is copied.
func (b *Bus) DividersApplied(dev string, plan *hifiberry.ClockPlan) {
	if plan == nil {
		return
	}

	p := *plan
	if plan.PLL != nil {
		pll := *plan.PLL
		p.PLL = &pll
	}

	b.Publish(DividersAppliedEvent{Device: dev, Plan: p, Timestamp: b.now()})
}

// RateChanged implements hifiberry.Observer.
func (b *Bus) RateChanged(dev string, rate uint64) {
	b.Publish(RateChangedEvent{Device: dev, Rate: rate, Timestamp: b.now()})
}

// MuteTimeout implements hifiberry.Observer.
func (b *Bus) MuteTimeout(dev string) {
	b.Publish(MuteTimeoutEvent{Device: dev, Timestamp: b.now()})
}

// BiasChanged implements hifiberry.Observer.
func (b *Bus) BiasChanged(dev string, level hifiberry.BiasLevel) {
	b.Publish(BiasChangedEvent{Device: dev, Level: level, Timestamp: b.now()})
}
