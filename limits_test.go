package hifiberry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gen2brain/hifiberry"
)

func TestOverclockLimits(t *testing.T) {
	var nominal hifiberry.Overclock

	assert.Equal(t, uint64(25000000), nominal.PLLMax())
	assert.Equal(t, uint64(30000000), hifiberry.Overclock{PLL: 20}.PLLMax())
	assert.Equal(t, uint64(50000000), nominal.DSPMax())
	assert.Equal(t, uint64(70000000), hifiberry.Overclock{DSP: 40}.DSPMax())
	assert.Equal(t, uint64(6144000), nominal.DACMax(6144000))
	assert.Equal(t, uint64(8601600), hifiberry.Overclock{DAC: 40}.DACMax(6144000))

	assert.Equal(t, uint64(25000000), hifiberry.Overclock{PLL: 20}.SCKMax(false), "without pll output the ceiling is fixed")
	assert.Equal(t, uint64(30000000), hifiberry.Overclock{PLL: 20}.SCKMax(true))

	assert.Equal(t, uint64(1536000), nominal.NCPTarget(6144000))
	assert.Equal(t, uint64(1843200), hifiberry.Overclock{DAC: 20}.NCPTarget(7372800))
}

func TestOverclockMonotonic(t *testing.T) {
	prev := uint64(0)
	for pct := uint32(0); pct <= 100; pct++ {
		got := hifiberry.Overclock{PLL: pct}.PLLMax()
		assert.Greater(t, got, prev, "pll max must grow with overclock %d", pct)
		prev = got
	}
}

func TestOverclockValidate(t *testing.T) {
	assert.NoError(t, hifiberry.Overclock{PLL: 100, DSP: 100, DAC: 100}.Validate())
	assert.ErrorIs(t, hifiberry.Overclock{DAC: 101}.Validate(), hifiberry.ErrInvalidArgument)
}

func TestFSSP(t *testing.T) {
	tests := []struct {
		oc   hifiberry.Overclock
		rate uint64
		want uint8
	}{
		{hifiberry.Overclock{}, 44100, hifiberry.PCM512x_FSSP_48KHZ},
		{hifiberry.Overclock{}, 48000, hifiberry.PCM512x_FSSP_48KHZ},
		{hifiberry.Overclock{}, 88200, hifiberry.PCM512x_FSSP_96KHZ},
		{hifiberry.Overclock{}, 192000, hifiberry.PCM512x_FSSP_192KHZ},
		{hifiberry.Overclock{}, 384000, hifiberry.PCM512x_FSSP_384KHZ},
		{hifiberry.Overclock{DAC: 10}, 52800, hifiberry.PCM512x_FSSP_48KHZ},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.oc.FSSP(tt.rate), "rate %d", tt.rate)
	}
}
