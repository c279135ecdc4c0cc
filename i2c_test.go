package hifiberry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/gen2brain/hifiberry"
)

func TestI2CBus(t *testing.T) {
	const addr = hifiberry.PCM1796_I2C_ADDR

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{23}, R: []byte{0x21}},
			{Addr: addr, W: []byte{18, 0xd1}},
		},
		DontPanic: true,
	}

	b := hifiberry.NewI2CBus(bus, addr)
	assert.Equal(t, "playback@0x4c", b.String())

	v, err := b.ReadReg(23)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x21), v)

	require.NoError(t, b.WriteReg(18, 0xd1))
	require.NoError(t, bus.Close(), "all transactions consumed")

	assert.Error(t, b.WriteReg(19, 0x01), "unexpected transaction")
}

func TestI2CBusRegmap(t *testing.T) {
	const addr = hifiberry.DAC2HD_CLK_I2C_ADDR

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{0x1a, 0x0c}},
			{Addr: addr, W: []byte{byte(hifiberry.DAC2HD_CLK_SOFT_RESET), hifiberry.DAC2HD_CLK_SOFT_RESET_VAL}},
		},
		DontPanic: true,
	}

	cfg := hifiberry.DAC2HDRegmapConfig()
	cfg.Sleep = (&sleeper{}).Sleep

	rm := hifiberry.NewRegmap(hifiberry.NewI2CBus(bus, addr), cfg)
	require.NoError(t, rm.Apply([]hifiberry.RegVal{{Reg: 0x1a, Val: 0x0c}}, true))
	require.NoError(t, bus.Close())
}

func TestI2CBusClosed(t *testing.T) {
	var b *hifiberry.I2CBus

	_, err := b.ReadReg(0)
	assert.ErrorIs(t, err, hifiberry.ErrClosed)
	assert.ErrorIs(t, b.WriteReg(0, 0), hifiberry.ErrClosed)
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "24.576MHz", hifiberry.FormatRate(hifiberry.CLK_48EN_RATE))
	assert.Equal(t, "44.100kHz", hifiberry.FormatRate(44100))
}
