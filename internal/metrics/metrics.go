// Package metrics exposes computed clock state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gen2brain/hifiberry"
)

const namespace = "hifiberry"

// Observer records device notifications in Prometheus collectors.
type Observer struct {
	sampleRate *prometheus.GaugeVec
	rates      *prometheus.GaugeVec
	dividers   *prometheus.GaugeVec
	pll        *prometheus.GaugeVec
	pllApprox  *prometheus.GaugeVec
	dacGPIO    *prometheus.GaugeVec
	applied    *prometheus.CounterVec
	clockRate  *prometheus.GaugeVec
	timeouts   *prometheus.CounterVec
	bias       *prometheus.GaugeVec
}

// New registers the collectors with reg, the default registerer when nil.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Observer{
		sampleRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "sample_rate_hz",
			Help:      "Sample rate produced by the last applied divider set",
		}, []string{"device"}),

		rates: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "rate_hz",
			Help:      "Internal clock rates of the last applied plan",
		}, []string{"device", "clock"}),

		dividers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "divider",
			Help:      "Divider values of the last applied plan",
		}, []string{"device", "divider"}),

		pll: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pll",
			Name:      "coefficient",
			Help:      "PLL R, J, D and P coefficients, 0 in no-PLL mode",
		}, []string{"device", "coefficient"}),

		pllApprox: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pll",
			Name:      "approximate",
			Help:      "1 when the PLL runs on a rounded coefficient set",
		}, []string{"device"}),

		dacGPIO: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "dac_source_gpio",
			Help:      "1 when the DAC clock bypasses the PLL",
		}, []string{"device"}),

		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "plans_applied_total",
			Help:      "Number of divider sets written",
		}, []string{"device"}),

		clockRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clkgen",
			Name:      "rate_hz",
			Help:      "Rate selected on an external clock generator",
		}, []string{"device"}),

		timeouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "mute_timeouts_total",
			Help:      "Analog mute state changes that did not settle in time",
		}, []string{"device"}),

		bias: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "bias_level",
			Help:      "Codec power state: 0 off, 1 standby, 2 prepare, 3 on",
		}, []string{"device"}),
	}
}

// DividersApplied implements hifiberry.Observer.
func (o *Observer) DividersApplied(dev string, plan *hifiberry.ClockPlan) {
	if plan == nil {
		return
	}

	o.applied.WithLabelValues(dev).Inc()
	o.sampleRate.WithLabelValues(dev).Set(float64(plan.SampleRate))

	for clock, rate := range map[string]uint64{
		"sck":   plan.SCKRate,
		"mck":   plan.MCKRate,
		"bclk":  plan.BCLKRate,
		"pllin": plan.PLLInRate,
		"osr":   plan.OSRRate,
		"dac":   plan.DACRate,
	} {
		o.rates.WithLabelValues(dev, clock).Set(float64(rate))
	}

	d := plan.Dividers
	for name, v := range map[string]uint32{
		"dsp":   d.DSP,
		"dac":   d.DAC,
		"ncp":   d.NCP,
		"osr":   d.OSR,
		"bclk":  d.BCLK,
		"lrclk": d.LRCLK,
		"idac":  d.IDAC,
		"fssp":  uint32(d.FSSP),
	} {
		o.dividers.WithLabelValues(dev, name).Set(float64(v))
	}

	var pll hifiberry.PLLCoefficients
	if plan.PLL != nil {
		pll = *plan.PLL
	}

	for name, v := range map[string]uint32{"r": pll.R, "j": pll.J, "d": pll.D, "p": pll.P} {
		o.pll.WithLabelValues(dev, name).Set(float64(v))
	}
	o.pllApprox.WithLabelValues(dev).Set(boolFloat(pll.Approximate))
	o.dacGPIO.WithLabelValues(dev).Set(boolFloat(plan.DACSource == hifiberry.DACSourceGPIO))
}

// RateChanged implements hifiberry.Observer.
func (o *Observer) RateChanged(dev string, rate uint64) {
	o.clockRate.WithLabelValues(dev).Set(float64(rate))
}

// MuteTimeout implements hifiberry.Observer.
func (o *Observer) MuteTimeout(dev string) {
	o.timeouts.WithLabelValues(dev).Inc()
}

// BiasChanged implements hifiberry.Observer.
func (o *Observer) BiasChanged(dev string, level hifiberry.BiasLevel) {
	o.bias.WithLabelValues(dev).Set(float64(level))
}

// Delete removes every series of dev.
func (o *Observer) Delete(dev string) {
	labels := prometheus.Labels{"device": dev}

	for _, v := range []*prometheus.GaugeVec{o.sampleRate, o.rates, o.dividers, o.pll, o.pllApprox, o.dacGPIO, o.clockRate, o.bias} {
		v.DeletePartialMatch(labels)
	}

	o.applied.DeletePartialMatch(labels)
	o.timeouts.DeletePartialMatch(labels)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
