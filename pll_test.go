package hifiberry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry"
)

func TestSolvePLL(t *testing.T) {
	tests := []struct {
		name       string
		pllin, pll uint64
		want       hifiberry.PLLCoefficients
	}{
		{
			// 24.576 MHz is above the 20 MHz input window, so P doubles and R follows.
			name: "Exact4x", pllin: 24576000, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 8, J: 1, D: 0, P: 2, RealRate: 98304000},
		},
		{
			name: "Exact8x", pllin: 12288000, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 8, J: 1, D: 0, P: 1, RealRate: 98304000},
		},
		{
			name: "ExactFromBCLK", pllin: 2822400, pll: 90316800,
			want: hifiberry.PLLCoefficients{R: 16, J: 2, D: 0, P: 1, RealRate: 90316800},
		},
		{
			name: "Fractional", pllin: 19200000, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 1, J: 5, D: 1200, P: 1, RealRate: 98304000},
		},
		{
			name: "FractionalP3", pllin: 27000000, pll: 90316800,
			want: hifiberry.PLLCoefficients{R: 1, J: 10, D: 352, P: 3, RealRate: 90316800},
		},
		{
			name: "FractionalLiteralBound", pllin: 24000000, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 1, J: 4, D: 960, P: 1, RealRate: 98304000},
		},
		{
			name: "Approximate", pllin: 13000000, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 1, J: 7, D: 5618, P: 1, RealRate: 98303400, Approximate: true},
		},
		{
			name: "ApproximateP2", pllin: 26000000, pll: 90316800,
			want: hifiberry.PLLCoefficients{R: 1, J: 6, D: 9474, P: 2, RealRate: 90316200, Approximate: true},
		},
		{
			name: "ApproximateRoundsUp", pllin: 11111111, pll: 98304000,
			want: hifiberry.PLLCoefficients{R: 1, J: 8, D: 8474, P: 1, RealRate: 98304443, Approximate: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hifiberry.SolvePLL(tt.pllin, tt.pll)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSolvePLLFailure(t *testing.T) {
	tests := []struct {
		name       string
		pllin, pll uint64
		want       error
	}{
		{"TooSlow", 1000000, 98304000, hifiberry.ErrUnsatisfiable},
		{"TooFast", 400000000, 98304000, hifiberry.ErrUnsatisfiable},
		{"NoInput", 0, 98304000, hifiberry.ErrInvalidArgument},
		{"NoOutput", 24576000, 0, hifiberry.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hifiberry.SolvePLL(tt.pllin, tt.pll)
			assert.ErrorIs(t, err, tt.want)

			var se *hifiberry.StageError
			if assert.ErrorAs(t, err, &se) {
				assert.Equal(t, hifiberry.StagePLLCoefficients, se.Stage)
			}
		})
	}
}

func TestSolvePLLBounds(t *testing.T) {
	for pllin := uint64(1000000); pllin <= 50000000; pllin += 999983 {
		for pll := uint64(64000000); pll <= 100000000; pll += 1234567 {
			c, err := hifiberry.SolvePLL(pllin, pll)
			if err != nil {
				assert.ErrorIs(t, err, hifiberry.ErrUnsatisfiable, "pllin=%d pll=%d", pllin, pll)
				continue
			}

			assert.True(t, c.R >= 1 && c.R <= 16, "R=%d pllin=%d pll=%d", c.R, pllin, pll)
			assert.True(t, c.J >= 1 && c.J <= 63, "J=%d pllin=%d pll=%d", c.J, pllin, pll)
			assert.True(t, c.D <= 9999, "D=%d pllin=%d pll=%d", c.D, pllin, pll)
			assert.True(t, c.P >= 1 && c.P <= 15, "P=%d pllin=%d pll=%d", c.P, pllin, pll)

			if c.D > 0 {
				assert.Equal(t, uint32(1), c.R, "fractional solutions use R=1")
			}

			if !c.Approximate {
				k := uint64(c.J)*10000 + uint64(c.D)
				assert.Equal(t, pll*uint64(c.P)*10000, pllin*uint64(c.R)*k, "exact solution must reproduce pll=%d", pll)
			}
		}
	}
}

func TestSolvePLLExactIntegerRatio(t *testing.T) {
	for _, pllin := range []uint64{1000000, 2822400, 3072000, 6144000, 11289600, 12288000, 19200000, 20000000} {
		for p := uint64(1); p <= 15; p++ {
			if pllin/p < 1000000 {
				continue
			}

			for r := uint64(1); r <= 16; r++ {
				for j := uint64(1); j <= 63; j++ {
					if pllin*r*j%p != 0 {
						continue
					}

					pll := pllin * r * j / p
					if pll < 64000000 || pll > 100000000 {
						continue
					}

					c, err := hifiberry.SolvePLL(pllin, pll)
					require.NoError(t, err)
					assert.Zero(t, c.D, "pllin=%d pll=%d should solve with D=0", pllin, pll)
					assert.False(t, c.Approximate)
					assert.Equal(t, pll*uint64(c.P), pllin*uint64(c.R)*uint64(c.J))
				}
			}
		}
	}
}

func TestPLLCoefficientsWrites(t *testing.T) {
	c := hifiberry.PLLCoefficients{R: 1, J: 10, D: 352, P: 3}

	assert.Equal(t, []hifiberry.RegVal{
		{Reg: hifiberry.PCM512x_PLL_COEFF_0, Val: 2},
		{Reg: hifiberry.PCM512x_PLL_COEFF_1, Val: 10},
		{Reg: hifiberry.PCM512x_PLL_COEFF_2, Val: 0x01},
		{Reg: hifiberry.PCM512x_PLL_COEFF_3, Val: 0x60},
		{Reg: hifiberry.PCM512x_PLL_COEFF_4, Val: 0},
	}, c.Writes())
}
