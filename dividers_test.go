package hifiberry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		req    hifiberry.ClockRequest
		sysclk uint64
		oc     hifiberry.Overclock
		want   hifiberry.DividerSet
		sck    uint64
		mck    uint64
		src    hifiberry.DACSource
		pll    *hifiberry.PLLCoefficients
	}{
		{
			name:   "Sysclk48k",
			req:    hifiberry.ClockRequest{SampleRate: 48000, FrameBits: 64},
			sysclk: 24576000,
			want:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 512, FSSP: 0},
			sck:    24576000, mck: 24576000, src: hifiberry.DACSourceSCK,
		},
		{
			name:   "Sysclk44k1",
			req:    hifiberry.ClockRequest{SampleRate: 44100, FrameBits: 64},
			sysclk: 22579200,
			want:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 512, FSSP: 0},
			sck:    22579200, mck: 22579200, src: hifiberry.DACSourceSCK,
		},
		{
			name:   "Sysclk192k",
			req:    hifiberry.ClockRequest{SampleRate: 192000, FrameBits: 64},
			sysclk: 24576000,
			want:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 2, BCLK: 2, LRCLK: 64, IDAC: 128, FSSP: 2},
			sck:    24576000, mck: 24576000, src: hifiberry.DACSourceSCK,
		},
		{
			name:   "Sysclk384k",
			req:    hifiberry.ClockRequest{SampleRate: 384000, FrameBits: 64},
			sysclk: 24576000,
			want:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 1, BCLK: 1, LRCLK: 64, IDAC: 64, FSSP: 3},
			sck:    24576000, mck: 24576000, src: hifiberry.DACSourceSCK,
		},
		{
			name:   "Sysclk8kRatio32",
			req:    hifiberry.ClockRequest{SampleRate: 8000, FrameBits: 64, BCLKRatio: 32},
			sysclk: 24576000,
			want:   hifiberry.DividerSet{DSP: 1, DAC: 4, NCP: 4, OSR: 48, BCLK: 96, LRCLK: 32, IDAC: 3072, FSSP: 0},
			sck:    24576000, mck: 24576000, src: hifiberry.DACSourceSCK,
		},
		{
			name:   "PLLFromGPIO48k",
			req:    hifiberry.ClockRequest{SampleRate: 48000, FrameBits: 64, PLLIn: 3, PLLOut: 4},
			sysclk: 12288000,
			want:   hifiberry.DividerSet{DSP: 2, DAC: 2, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 1024, FSSP: 0},
			sck:    24576000, mck: 98304000, src: hifiberry.DACSourceGPIO,
			pll: &hifiberry.PLLCoefficients{R: 8, J: 1, D: 0, P: 1, RealRate: 98304000},
		},
		{
			name:   "PLLFromGPIO44k1",
			req:    hifiberry.ClockRequest{SampleRate: 44100, FrameBits: 64, PLLIn: 3, PLLOut: 4},
			sysclk: 12288000,
			want:   hifiberry.DividerSet{DSP: 2, DAC: 4, NCP: 4, OSR: 8, BCLK: 8, LRCLK: 64, IDAC: 1024, FSSP: 0},
			sck:    22579200, mck: 90316800, src: hifiberry.DACSourceSCK,
			pll: &hifiberry.PLLCoefficients{R: 1, J: 7, D: 3500, P: 1, RealRate: 90316800},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := hifiberry.Resolve(tt.req, hifiberry.ClockInputs{SysclkRate: tt.sysclk, Overclock: tt.oc})
			require.NoError(t, err)

			assert.Equal(t, tt.want, plan.Dividers)
			assert.Equal(t, tt.sck, plan.SCKRate, "sck")
			assert.Equal(t, tt.mck, plan.MCKRate, "mck")
			assert.Equal(t, tt.src, plan.DACSource, "dac source")
			assert.Equal(t, tt.pll, plan.PLL)
			assert.Equal(t, tt.req.SampleRate, plan.SampleRate)

			d := plan.Dividers
			assert.Equal(t, plan.MCKRate/(uint64(d.DSP)*plan.SampleRate), uint64(d.IDAC), "idac must match mck/(dsp*fs)")
		})
	}
}

func TestResolveIDACInvariant(t *testing.T) {
	for _, rate := range hifiberry.PCM512xRates {
		for _, frame := range []uint32{32, 48, 64} {
			for _, sysclk := range []uint64{22579200, 24576000} {
				req := hifiberry.ClockRequest{SampleRate: rate, FrameBits: frame}

				plan, err := hifiberry.Resolve(req, hifiberry.ClockInputs{SysclkRate: sysclk})
				if err != nil {
					continue
				}

				d := plan.Dividers
				assert.Equal(t, uint64(d.IDAC), plan.MCKRate/(uint64(d.DSP)*plan.SampleRate))

				for _, div := range []uint32{d.DSP, d.DAC, d.NCP, d.OSR, d.BCLK} {
					assert.True(t, div >= 1 && div <= 128, "divider %d out of range for %d/%d", div, rate, frame)
				}
			}
		}
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    hifiberry.ClockRequest
		sysclk uint64
		stage  hifiberry.Stage
		err    error
	}{
		{
			name:   "BCLKDividerOverflow",
			req:    hifiberry.ClockRequest{SampleRate: 8000, FrameBits: 16},
			sysclk: 24576000, stage: hifiberry.StageBCLKDivider, err: hifiberry.ErrUnsatisfiable,
		},
		{
			name:   "NoLRCLK",
			req:    hifiberry.ClockRequest{SampleRate: 48000},
			sysclk: 24576000, stage: hifiberry.StageLRCLK, err: hifiberry.ErrInvalidArgument,
		},
		{
			name:   "NoSCK",
			req:    hifiberry.ClockRequest{SampleRate: 300000, FrameBits: 48, PLLIn: 1, PLLOut: 2},
			sysclk: 12288000, stage: hifiberry.StageSCK, err: hifiberry.ErrUnsatisfiable,
		},
		{
			name:   "NoSysclk",
			req:    hifiberry.ClockRequest{SampleRate: 48000, FrameBits: 64},
			sysclk: 0, stage: hifiberry.StageSCK, err: hifiberry.ErrInvalidArgument,
		},
		{
			name:   "PLLInputTooSlow",
			req:    hifiberry.ClockRequest{SampleRate: 48000, FrameBits: 64, PLLIn: 1, PLLOut: 2},
			sysclk: 1000000, stage: hifiberry.StagePLLCoefficients, err: hifiberry.ErrUnsatisfiable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hifiberry.Resolve(tt.req, hifiberry.ClockInputs{SysclkRate: tt.sysclk})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			var se *hifiberry.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
		})
	}
}

func TestClockRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  hifiberry.ClockRequest
		ok   bool
	}{
		{"NoPLL", hifiberry.ClockRequest{}, true},
		{"PLL", hifiberry.ClockRequest{PLLIn: 3, PLLOut: 4}, true},
		{"OnlyIn", hifiberry.ClockRequest{PLLIn: 3}, false},
		{"OnlyOut", hifiberry.ClockRequest{PLLOut: 4}, false},
		{"Same", hifiberry.ClockRequest{PLLIn: 4, PLLOut: 4}, false},
		{"OutOfRange", hifiberry.ClockRequest{PLLIn: 7, PLLOut: 4}, false},
		{"Ratio256", hifiberry.ClockRequest{BCLKRatio: 256}, true},
		{"Ratio257", hifiberry.ClockRequest{BCLKRatio: 257}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
			}
		})
	}
}

func TestClockPlanOps(t *testing.T) {
	plan, err := hifiberry.Resolve(
		hifiberry.ClockRequest{SampleRate: 48000, FrameBits: 64, PLLIn: 3, PLLOut: 4},
		hifiberry.ClockInputs{SysclkRate: 12288000},
	)
	require.NoError(t, err)

	ops := plan.Ops()
	require.Len(t, ops, 5+2+9)

	for i, op := range ops[:5] {
		assert.Equal(t, hifiberry.PCM512x_PLL_COEFF_0+hifiberry.Reg(i), op.Reg, "pll coefficients come first")
	}

	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_DAC_REF, Mask: hifiberry.PCM512x_SDAC, Val: hifiberry.PCM512x_SDAC_GPIO}, ops[5])
	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_GPIO_DACIN, Mask: hifiberry.PCM512x_GREF, Val: 2}, ops[6])
	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_DSP_CLKDIV, Val: 1}, ops[7])
	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_MASTER_CLKDIV_2, Val: 63}, ops[12])
	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_IDAC_1, Val: 4}, ops[13])
	assert.Equal(t, hifiberry.RegOp{Reg: hifiberry.PCM512x_FS_SPEED_MODE, Mask: hifiberry.PCM512x_FSSP, Val: 0}, ops[15])
}
