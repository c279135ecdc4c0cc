package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/gen2brain/hifiberry"
)

var _ hifiberry.Observer = (*Observer)(nil)

func TestDividersApplied(t *testing.T) {
	o := New(prometheus.NewRegistry())

	plan := &hifiberry.ClockPlan{
		SampleRate: 48000,
		SCKRate:    24576000,
		DACRate:    6144000,
		PLL:        &hifiberry.PLLCoefficients{R: 1, J: 8, D: 0, P: 1, RealRate: 98304000},
		DACSource:  hifiberry.DACSourceGPIO,
		Dividers:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 512},
	}

	o.DividersApplied("pcm512x", plan)
	o.DividersApplied("pcm512x", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.applied.WithLabelValues("pcm512x")))
	assert.Equal(t, 48000.0, testutil.ToFloat64(o.sampleRate.WithLabelValues("pcm512x")))
	assert.Equal(t, 24576000.0, testutil.ToFloat64(o.rates.WithLabelValues("pcm512x", "sck")))
	assert.Equal(t, 512.0, testutil.ToFloat64(o.dividers.WithLabelValues("pcm512x", "idac")))
	assert.Equal(t, 8.0, testutil.ToFloat64(o.pll.WithLabelValues("pcm512x", "j")))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.pllApprox.WithLabelValues("pcm512x")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.dacGPIO.WithLabelValues("pcm512x")))

	plan.PLL = nil
	o.DividersApplied("pcm512x", plan)
	assert.Equal(t, 0.0, testutil.ToFloat64(o.pll.WithLabelValues("pcm512x", "j")), "no-PLL mode clears coefficients")
}

func TestDeviceEvents(t *testing.T) {
	o := New(prometheus.NewRegistry())

	o.RateChanged("dac2hd-clk", 192000)
	o.MuteTimeout("pcm512x")
	o.MuteTimeout("pcm512x")
	o.BiasChanged("pcm512x", hifiberry.BiasStandby)

	assert.Equal(t, 192000.0, testutil.ToFloat64(o.clockRate.WithLabelValues("dac2hd-clk")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.timeouts.WithLabelValues("pcm512x")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.bias.WithLabelValues("pcm512x")))

	o.Delete("pcm512x")
	assert.Equal(t, 0, testutil.CollectAndCount(o.timeouts))
	assert.Equal(t, 1, testutil.CollectAndCount(o.clockRate), "other devices kept")

	// Deleting unknown devices must not panic.
	o.Delete("non-existent-device")
}

func TestRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)
	o.BiasChanged("pcm512x", hifiberry.BiasOn)

	n, err := testutil.GatherAndCount(reg, "hifiberry_codec_bias_level")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() { New(reg) }, "duplicate registration")
}
