package hifiberry

import (
	"fmt"
)

// Nominal clock limits of the PCM512x, before overclocking.
const (
	SCK_MIN_HZ      = 16000000
	PLL_MAX_HZ      = 25000000
	DSP_MAX_HZ      = 50000000
	DAC_MAX_HZ      = 6144000
	NCP_TARGET_HZ   = 1536000
	NCP_MAX_HZ      = 2048000
	PLL_IN_MAX_HZ   = 20000000
	PLL_IN_MIN_HZ   = 1000000
	PLL_IN_FRAC_MIN = 6667000
	DIVIDER_MAX     = 128
	BCLK_RATIO_MAX  = 256
	OVERCLOCK_MAX   = 100
)

// Overclock holds the user-tunable percentages above the nominal PLL, DSP and DAC limits.
type Overclock struct {
	PLL uint32 `toml:"pll"`
	DSP uint32 `toml:"dsp"`
	DAC uint32 `toml:"dac"`
}

// Validate checks every percentage against OVERCLOCK_MAX.
func (o Overclock) Validate() error {
	if o.PLL > OVERCLOCK_MAX || o.DSP > OVERCLOCK_MAX || o.DAC > OVERCLOCK_MAX {
		return fmt.Errorf("overclock %d/%d/%d above %d%%: %w", o.PLL, o.DSP, o.DAC, OVERCLOCK_MAX, ErrInvalidArgument)
	}

	return nil
}

// PLLMax returns the SCK ceiling used when the PLL synthesizes the clock.
func (o Overclock) PLLMax() uint64 {
	return PLL_MAX_HZ + PLL_MAX_HZ*uint64(o.PLL)/100
}

// DSPMax returns the rate above which the DSP clock is divided by two.
func (o Overclock) DSPMax() uint64 {
	return DSP_MAX_HZ + DSP_MAX_HZ*uint64(o.DSP)/100
}

// DACMax scales a nominal DAC-domain rate by the DAC overclock.
func (o Overclock) DACMax(rate uint64) uint64 {
	return rate + rate*uint64(o.DAC)/100
}

// SCKMax returns the highest SCK the codec accepts, which depends on whether a PLL output is routed.
func (o Overclock) SCKMax(pllOut bool) uint64 {
	if !pllOut {
		return PLL_MAX_HZ
	}

	return o.PLLMax()
}

// NCPTarget returns the charge pump rate aimed for at the given DAC rate.
func (o Overclock) NCPTarget(dacRate uint64) uint64 {
	if dacRate <= DAC_MAX_HZ {
		return NCP_TARGET_HZ
	}

	return o.DACMax(NCP_TARGET_HZ)
}

// FSSP returns the sampling speed band of a sample rate.
func (o Overclock) FSSP(sampleRate uint64) uint8 {
	switch {
	case sampleRate <= o.DACMax(48000):
		return PCM512x_FSSP_48KHZ
	case sampleRate <= o.DACMax(96000):
		return PCM512x_FSSP_96KHZ
	case sampleRate <= o.DACMax(192000):
		return PCM512x_FSSP_192KHZ
	default:
		return PCM512x_FSSP_384KHZ
	}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func divRoundClosest(n, d uint64) uint64 {
	return (n + d/2) / d
}

func divRoundUp(n, d uint64) uint64 {
	return (n + d - 1) / d
}

func roundDown(n, step uint64) uint64 {
	return n - n%step
}
