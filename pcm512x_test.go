package hifiberry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry"
)

func newPCM512x(t *testing.T, opt hifiberry.PCM512xOptions) (*hifiberry.PCM512x, *fakeBus, *sleeper) {
	t.Helper()

	bus := newFakeBus(true)
	sl := &sleeper{}

	cfg := hifiberry.PCM512xRegmapConfig()
	cfg.Sleep = sl.Sleep

	c := hifiberry.NewPCM512x(hifiberry.NewRegmap(bus, cfg), opt)
	require.NoError(t, c.Probe())
	bus.writes()

	return c, bus, sl
}

func TestPCM512xNil(t *testing.T) {
	var c *hifiberry.PCM512x

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, c.Probe(), hifiberry.ErrClosed)
		assert.ErrorIs(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S), hifiberry.ErrClosed)
		_, err := c.HwParams(hifiberry.HwParams{Rate: 48000, Width: 16, Channels: 2})
		assert.ErrorIs(t, err, hifiberry.ErrClosed)
		assert.ErrorIs(t, c.MuteStream(context.Background(), true), hifiberry.ErrClosed)
		assert.Nil(t, c.Controls())
	}, "nil codec should not panic")
}

func TestPCM512xProbe(t *testing.T) {
	bus := newFakeBus(true)
	pin := hifiberry.NewLatchedPin(nil)

	c := hifiberry.NewPCM512x(hifiberry.NewRegmap(bus, hifiberry.PCM512xRegmapConfig()), hifiberry.PCM512xOptions{MutePin: pin})
	require.NoError(t, c.Probe())

	want := []hifiberry.RegVal{
		{Reg: hifiberry.PCM512x_RESET, Val: hifiberry.PCM512x_RSTM | hifiberry.PCM512x_RSTR},
		{Reg: hifiberry.PCM512x_RESET, Val: 0},
		{Reg: hifiberry.PCM512x_MUTE, Val: hifiberry.PCM512x_RQML | hifiberry.PCM512x_RQMR},
		{Reg: hifiberry.PCM512x_POWER, Val: hifiberry.PCM512x_RQST},
	}
	assert.Equal(t, want, bus.writes())

	high, ok := pin.Level()
	assert.True(t, ok, "mute line should be driven at probe")
	assert.True(t, high, "mute line should unmute once at probe")

	assert.Equal(t, "pcm512x", c.Name())
	assert.Equal(t, hifiberry.BiasOff, c.BiasLevel())
}

func TestPCM512xProbePLLGPIO(t *testing.T) {
	tests := []struct {
		name    string
		in, out uint8
		wantErr bool
	}{
		{"None", 0, 0, false},
		{"Valid", 3, 4, false},
		{"Same", 4, 4, true},
		{"OnlyIn", 3, 0, true},
		{"OutOfRange", 7, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := hifiberry.NewPCM512x(hifiberry.NewRegmap(newFakeBus(true), hifiberry.PCM512xRegmapConfig()),
				hifiberry.PCM512xOptions{PLLIn: tt.in, PLLOut: tt.out})

			err := c.Probe()
			if tt.wantErr {
				assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPCM512xDisableStandby(t *testing.T) {
	bus := newFakeBus(true)
	c := hifiberry.NewPCM512x(hifiberry.NewRegmap(bus, hifiberry.PCM512xRegmapConfig()), hifiberry.PCM512xOptions{DisableStandby: true})
	require.NoError(t, c.Probe())

	assert.NotContains(t, regs(bus.writes()), hifiberry.PCM512x_POWER)

	require.NoError(t, c.SetBiasLevel(hifiberry.BiasStandby))
	assert.Empty(t, bus.writes(), "standby disabled")
}

func TestPCM512xSetFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  hifiberry.DAIFormat
		wantErr bool
	}{
		{"I2SConsumer", hifiberry.SND_SOC_DAIFMT_I2S | hifiberry.SND_SOC_DAIFMT_CBS_CFS, false},
		{"I2SProvider", hifiberry.SND_SOC_DAIFMT_I2S | hifiberry.SND_SOC_DAIFMT_CBM_CFM, false},
		{"DSPABitProvider", hifiberry.SND_SOC_DAIFMT_DSP_A | hifiberry.SND_SOC_DAIFMT_CBM_CFS, false},
		{"FrameOnlyProvider", hifiberry.SND_SOC_DAIFMT_I2S | hifiberry.SND_SOC_DAIFMT_CBS_CFM, true},
		{"NoFormat", hifiberry.SND_SOC_DAIFMT_CBS_CFS, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

			err := c.SetFormat(tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
				assert.Empty(t, bus.writes())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.format, c.Format())
		})
	}

	t.Run("DSPAOffset", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_DSP_A|hifiberry.SND_SOC_DAIFMT_CBS_CFS))
		assert.Equal(t, uint8(1), bus.value(hifiberry.PCM512x_I2S_2))
	})
}

func TestPCM512xSetBCLKRatio(t *testing.T) {
	c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

	assert.NoError(t, c.SetBCLKRatio(256))
	assert.ErrorIs(t, c.SetBCLKRatio(257), hifiberry.ErrInvalidArgument)
}

func TestPCM512xStartup(t *testing.T) {
	t.Run("NoRole", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

		_, err := c.Startup(64)
		assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
	})

	t.Run("ConsumerWithoutSCK", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBS_CFS))
		bus.writes()

		rc, err := c.Startup(64)
		require.NoError(t, err)
		assert.Equal(t, hifiberry.PCM512xRates, rc.Rates)

		assert.Equal(t, []hifiberry.Reg{hifiberry.PCM512x_ERROR_DETECT, hifiberry.PCM512x_PLL_REF}, regs(bus.writes()))
		assert.Equal(t, uint8(hifiberry.PCM512x_SREF_BCK), bus.value(hifiberry.PCM512x_PLL_REF)&hifiberry.PCM512x_SREF)
	})

	t.Run("ConsumerWithSCK", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 24576000})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBS_CFS))
		bus.writes()

		_, err := c.Startup(64)
		require.NoError(t, err)
		assert.Empty(t, bus.writes())
	})

	t.Run("Provider", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 24576000})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBM_CFM))

		rc, err := c.Startup(64)
		require.NoError(t, err)
		assert.True(t, rc.Allows(48000))
		assert.True(t, rc.Allows(384000))
		assert.False(t, rc.Allows(44100), "44.1k does not divide a 24.576 MHz SCK")
	})
}

func TestPCM512xMasterConstraints(t *testing.T) {
	t.Run("NoSCK", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

		_, err := c.MasterConstraints(64)
		assert.ErrorIs(t, err, hifiberry.ErrRetryLater)
	})

	t.Run("NoPLL", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 22579200})

		rc, err := c.MasterConstraints(64)
		require.NoError(t, err)
		assert.Equal(t, uint64(22579200/64), rc.Num)
		assert.Equal(t, uint64(1), rc.DenMin)
		assert.Equal(t, uint64(128), rc.DenMax)
		assert.True(t, rc.Allows(44100))
		assert.True(t, rc.Allows(352800))
		assert.False(t, rc.Allows(48000))
	})

	t.Run("PLL", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 24576000, PLLIn: 3, PLLOut: 4})

		rc, err := c.MasterConstraints(32)
		require.NoError(t, err)
		assert.Nil(t, rc, "32-bit frames are unconstrained")
		assert.True(t, rc.Allows(12345))

		rc, err = c.MasterConstraints(64)
		require.NoError(t, err)
		require.Len(t, rc.Ranges, 2)
		assert.Equal(t, uint64(8000), rc.Ranges[0].Min)
		assert.Equal(t, uint64(384000), rc.Ranges[1].Max)

		_, err = c.MasterConstraints(40)
		assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
	})
}

func TestPCM512xHwParams(t *testing.T) {
	t.Run("Consumer", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBS_CFS))
		bus.writes()

		plan, err := c.HwParams(hifiberry.HwParams{Rate: 48000, Width: 24, Channels: 2})
		require.NoError(t, err)
		assert.Nil(t, plan)

		assert.Equal(t, uint8(hifiberry.PCM512x_ALEN_24), bus.value(hifiberry.PCM512x_I2S_1)&hifiberry.PCM512x_ALEN)
		assert.NotContains(t, regs(bus.writes()), hifiberry.PCM512x_SYNCHRONIZE)
	})

	t.Run("BadWidth", func(t *testing.T) {
		c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

		_, err := c.HwParams(hifiberry.HwParams{Rate: 48000, Width: 8, Channels: 2})
		assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
	})

	t.Run("Provider", func(t *testing.T) {
		rec := &recorder{}
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 24576000, Observer: rec})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBM_CFM))
		bus.writes()

		plan, err := c.HwParams(hifiberry.HwParams{Rate: 48000, Width: 32, Channels: 2})
		require.NoError(t, err)
		require.NotNil(t, plan)

		want := hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 512, FSSP: 0}
		assert.Equal(t, want, plan.Dividers)
		assert.Same(t, plan, c.Plan())
		assert.Len(t, rec.plans, 1)

		w := bus.writes()
		require.GreaterOrEqual(t, len(w), 2)
		assert.Equal(t, hifiberry.RegVal{Reg: hifiberry.PCM512x_SYNCHRONIZE, Val: 0x11}, w[len(w)-2], "halt")
		assert.Equal(t, hifiberry.RegVal{Reg: hifiberry.PCM512x_SYNCHRONIZE, Val: 0x10}, w[len(w)-1], "resume")

		assert.Equal(t, uint8(3), bus.value(hifiberry.PCM512x_DAC_CLKDIV))
		assert.Equal(t, uint8(7), bus.value(hifiberry.PCM512x_OSR_CLKDIV))
		assert.Equal(t, uint8(63), bus.value(hifiberry.PCM512x_MASTER_CLKDIV_2))
		assert.Equal(t, uint8(2), bus.value(hifiberry.PCM512x_IDAC_1))
	})

	t.Run("BusFailureSkipsSync", func(t *testing.T) {
		rec := &recorder{}
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{Sysclk: 24576000, Observer: rec})
		require.NoError(t, c.SetFormat(hifiberry.SND_SOC_DAIFMT_I2S|hifiberry.SND_SOC_DAIFMT_CBM_CFM))
		bus.writes()
		bus.fail(hifiberry.PCM512x_OSR_CLKDIV)

		_, err := c.HwParams(hifiberry.HwParams{Rate: 48000, Width: 32, Channels: 2})
		require.ErrorIs(t, err, hifiberry.ErrBus)

		var se *hifiberry.StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, hifiberry.PCM512x_OSR_CLKDIV, se.Reg)

		assert.NotContains(t, regs(bus.writes()), hifiberry.PCM512x_SYNCHRONIZE)
		assert.Nil(t, c.Plan())
		assert.Empty(t, rec.plans)
	})
}

func TestPCM512xMuteStream(t *testing.T) {
	t.Run("Settles", func(t *testing.T) {
		pin := hifiberry.NewLatchedPin(nil)
		c, bus, sl := newPCM512x(t, hifiberry.PCM512xOptions{MutePin: pin, AutoMute: true})

		bus.set(hifiberry.PCM512x_ANALOG_MUTE_DET, 0x3)
		require.NoError(t, c.MuteStream(context.Background(), false))

		assert.Equal(t, uint8(0), bus.value(hifiberry.PCM512x_MUTE))
		high, _ := pin.Level()
		assert.True(t, high)
		assert.Zero(t, sl.total(), "already settled")

		bus.set(hifiberry.PCM512x_ANALOG_MUTE_DET, 0x0)
		require.NoError(t, c.MuteStream(context.Background(), true))

		assert.Equal(t, uint8(hifiberry.PCM512x_RQML|hifiberry.PCM512x_RQMR), bus.value(hifiberry.PCM512x_MUTE))
		high, _ = pin.Level()
		assert.False(t, high)
	})

	t.Run("TimeoutIsWarning", func(t *testing.T) {
		rec := &recorder{}
		c, bus, sl := newPCM512x(t, hifiberry.PCM512xOptions{Observer: rec})

		bus.set(hifiberry.PCM512x_ANALOG_MUTE_DET, 0x1)
		require.NoError(t, c.MuteStream(context.Background(), true))

		assert.Equal(t, 1, rec.timeouts)
		assert.Equal(t, 10*time.Millisecond, sl.total())
	})

	t.Run("ChannelSwitch", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

		bus.set(hifiberry.PCM512x_ANALOG_MUTE_DET, 0x3)
		require.NoError(t, c.MuteStream(context.Background(), false))

		changed, err := c.SetDigitalMute(false, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, uint8(hifiberry.PCM512x_RQML), bus.value(hifiberry.PCM512x_MUTE))

		left, right := c.DigitalMute()
		assert.False(t, left)
		assert.True(t, right)

		changed, err = c.SetDigitalMute(false, true)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestPCM512xBias(t *testing.T) {
	rec := &recorder{}
	c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{Observer: rec})

	require.NoError(t, c.SetBiasLevel(hifiberry.BiasStandby))
	assert.Zero(t, bus.value(hifiberry.PCM512x_POWER)&hifiberry.PCM512x_RQST, "standby removed")

	require.NoError(t, c.SetBiasLevel(hifiberry.BiasOn))
	require.NoError(t, c.SetBiasLevel(hifiberry.BiasOff))
	assert.NotZero(t, bus.value(hifiberry.PCM512x_POWER)&hifiberry.PCM512x_RQST, "standby requested")

	assert.Equal(t, []hifiberry.BiasLevel{hifiberry.BiasStandby, hifiberry.BiasOn, hifiberry.BiasOff}, rec.biases)
}

func TestPCM512xOverclock(t *testing.T) {
	c, _, _ := newPCM512x(t, hifiberry.PCM512xOptions{})

	assert.ErrorIs(t, c.SetOverclock(hifiberry.Overclock{PLL: 21}), hifiberry.ErrInvalidArgument)
	require.NoError(t, c.SetOverclock(hifiberry.Overclock{PLL: 20, DSP: 10}))
	assert.Equal(t, hifiberry.Overclock{PLL: 20, DSP: 10}, c.Overclock())

	require.NoError(t, c.SetBiasLevel(hifiberry.BiasOn))
	assert.ErrorIs(t, c.SetOverclock(hifiberry.Overclock{}), hifiberry.ErrBusy)

	_, err := c.Controls().Set("Max Overclock DAC", 5)
	assert.ErrorIs(t, err, hifiberry.ErrBusy)

	require.NoError(t, c.SetBiasLevel(hifiberry.BiasStandby))
	changed, err := c.Controls().Set("Max Overclock DAC", 5)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint32(5), c.Overclock().DAC)
}

func TestPCM512xSuspendResume(t *testing.T) {
	t.Run("Powerdown", func(t *testing.T) {
		pin := hifiberry.NewLatchedPin(nil)
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{MutePin: pin})

		_, err := c.Controls().Set("Digital Playback Volume", 100)
		require.NoError(t, err)
		bus.writes()

		require.NoError(t, c.Suspend())
		assert.NotZero(t, bus.value(hifiberry.PCM512x_POWER)&hifiberry.PCM512x_RQPD)
		high, _ := pin.Level()
		assert.False(t, high)

		bus.writes()
		require.NoError(t, c.Resume())
		assert.Contains(t, regs(bus.writes()), hifiberry.PCM512x_DIGITAL_VOLUME_2, "non-default volume restored")
		assert.Zero(t, bus.value(hifiberry.PCM512x_POWER)&hifiberry.PCM512x_RQPD)
		high, _ = pin.Level()
		assert.True(t, high)
	})

	t.Run("Disabled", func(t *testing.T) {
		c, bus, _ := newPCM512x(t, hifiberry.PCM512xOptions{DisablePowerdown: true})

		require.NoError(t, c.Suspend())
		require.NoError(t, c.Resume())
		assert.Empty(t, bus.writes())
	})
}
