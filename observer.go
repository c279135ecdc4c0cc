package hifiberry

// Observer receives notifications about clock and power changes.
// Implementations must not call back into the device that notifies them.
type Observer interface {
	// DividersApplied is called after a clock plan was written to dev.
	DividersApplied(dev string, plan *ClockPlan)
	// RateChanged is called when a clock generator switched to rate.
	RateChanged(dev string, rate uint64)
	// MuteTimeout is called when the analog mute state did not settle in time.
	MuteTimeout(dev string)
	// BiasChanged is called after dev entered level.
	BiasChanged(dev string, level BiasLevel)
}

// MultiObserver fans notifications out to several observers.
type MultiObserver []Observer

func (m MultiObserver) DividersApplied(dev string, plan *ClockPlan) {
	for _, o := range m {
		o.DividersApplied(dev, plan)
	}
}

func (m MultiObserver) RateChanged(dev string, rate uint64) {
	for _, o := range m {
		o.RateChanged(dev, rate)
	}
}

func (m MultiObserver) MuteTimeout(dev string) {
	for _, o := range m {
		o.MuteTimeout(dev)
	}
}

func (m MultiObserver) BiasChanged(dev string, level BiasLevel) {
	for _, o := range m {
		o.BiasChanged(dev, level)
	}
}

type nopObserver struct{}

func (nopObserver) DividersApplied(string, *ClockPlan) {}
func (nopObserver) RateChanged(string, uint64)         {}
func (nopObserver) MuteTimeout(string)                 {}
func (nopObserver) BiasChanged(string, BiasLevel)      {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}

	return o
}
