package hifiberry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry"
)

func TestPcmFormat(t *testing.T) {
	tests := []struct {
		format hifiberry.PcmFormat
		name   string
		bits   uint32
		width  uint32
	}{
		{hifiberry.SNDRV_PCM_FORMAT_S16_LE, "S16_LE", 16, 16},
		{hifiberry.SNDRV_PCM_FORMAT_S24_LE, "S24_LE", 32, 24},
		{hifiberry.SNDRV_PCM_FORMAT_S32_LE, "S32_LE", 32, 32},
		{hifiberry.SNDRV_PCM_FORMAT_S24_3LE, "S24_3LE", 24, 24},
		{hifiberry.SNDRV_PCM_FORMAT_S20_3LE, "S20_3LE", 24, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.format.String())
			assert.Equal(t, tt.bits, hifiberry.PcmFormatToBits(tt.format))
			assert.Equal(t, tt.width, hifiberry.PcmFormatWidth(tt.format))

			f, err := hifiberry.ParsePcmFormat(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
		})
	}

	_, err := hifiberry.ParsePcmFormat("FLOAT_LE")
	assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument)
	assert.Equal(t, uint32(0), hifiberry.PcmFormatWidth(hifiberry.SNDRV_PCM_FORMAT_INVALID))
}

func TestDAIFormat(t *testing.T) {
	f := hifiberry.SND_SOC_DAIFMT_I2S | hifiberry.SND_SOC_DAIFMT_NB_NF | hifiberry.SND_SOC_DAIFMT_CBM_CFM

	assert.Equal(t, "i2s,nb_nf,cbm_cfm", f.String())
	assert.Equal(t, hifiberry.SND_SOC_DAIFMT_I2S, f.Format())
	assert.Equal(t, hifiberry.SND_SOC_DAIFMT_NB_NF, f.Inversion())
	assert.Equal(t, hifiberry.SND_SOC_DAIFMT_CBM_CFM, f.Master())

	tests := []struct {
		in      string
		want    hifiberry.DAIFormat
		wantErr bool
	}{
		{"i2s,nb_nf,cbm_cfm", f, false},
		{" DSP_A , cbs_cfs", hifiberry.SND_SOC_DAIFMT_DSP_A | hifiberry.SND_SOC_DAIFMT_CBS_CFS, false},
		{"", 0, false},
		{"i2s,left_j", 0, true},
		{"i2s,tdm", 0, true},
	}

	for _, tt := range tests {
		got, err := hifiberry.ParseDAIFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, hifiberry.ErrInvalidArgument, "input %q", tt.in)

			continue
		}

		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
