package hifiberry

import (
	"fmt"
	"strings"
)

// PcmFormat defines the sample format of a stream.
type PcmFormat int32

// Sample formats, numbered as in the kernel ABI.
const (
	SNDRV_PCM_FORMAT_INVALID PcmFormat = -1
	SNDRV_PCM_FORMAT_S16_LE  PcmFormat = 2
	SNDRV_PCM_FORMAT_S24_LE  PcmFormat = 6
	SNDRV_PCM_FORMAT_S32_LE  PcmFormat = 10
	SNDRV_PCM_FORMAT_S24_3LE PcmFormat = 32
	SNDRV_PCM_FORMAT_S20_3LE PcmFormat = 36
)

var pcmFormatNames = map[PcmFormat]string{
	SNDRV_PCM_FORMAT_S16_LE:  "S16_LE",
	SNDRV_PCM_FORMAT_S24_LE:  "S24_LE",
	SNDRV_PCM_FORMAT_S32_LE:  "S32_LE",
	SNDRV_PCM_FORMAT_S24_3LE: "S24_3LE",
	SNDRV_PCM_FORMAT_S20_3LE: "S20_3LE",
}

// String implements fmt.Stringer.
func (f PcmFormat) String() string {
	if name, ok := pcmFormatNames[f]; ok {
		return name
	}

	return fmt.Sprintf("PcmFormat(%d)", int32(f))
}

// ParsePcmFormat looks up a format by its ALSA name, e.g. "S24_LE".
func ParsePcmFormat(s string) (PcmFormat, error) {
	for f, name := range pcmFormatNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}

	return SNDRV_PCM_FORMAT_INVALID, fmt.Errorf("pcm format %q: %w", s, ErrInvalidArgument)
}

// PcmFormatToBits returns the number of bits one sample occupies in memory.
func PcmFormatToBits(f PcmFormat) uint32 {
	switch f {
	case SNDRV_PCM_FORMAT_S32_LE, SNDRV_PCM_FORMAT_S24_LE:
		return 32
	case SNDRV_PCM_FORMAT_S24_3LE, SNDRV_PCM_FORMAT_S20_3LE:
		return 24
	case SNDRV_PCM_FORMAT_S16_LE:
		return 16
	default:
		return 0
	}
}

// PcmFormatWidth returns the number of significant bits of a sample.
func PcmFormatWidth(f PcmFormat) uint32 {
	switch f {
	case SNDRV_PCM_FORMAT_S32_LE:
		return 32
	case SNDRV_PCM_FORMAT_S24_LE, SNDRV_PCM_FORMAT_S24_3LE:
		return 24
	case SNDRV_PCM_FORMAT_S20_3LE:
		return 20
	case SNDRV_PCM_FORMAT_S16_LE:
		return 16
	default:
		return 0
	}
}

// DAIFormat describes the digital audio interface: framing, clock inversion and clock provider.
type DAIFormat uint32

const (
	SND_SOC_DAIFMT_I2S     DAIFormat = 1
	SND_SOC_DAIFMT_RIGHT_J DAIFormat = 2
	SND_SOC_DAIFMT_LEFT_J  DAIFormat = 3
	SND_SOC_DAIFMT_DSP_A   DAIFormat = 4
	SND_SOC_DAIFMT_DSP_B   DAIFormat = 5

	SND_SOC_DAIFMT_NB_NF DAIFormat = 1 << 8
	SND_SOC_DAIFMT_NB_IF DAIFormat = 2 << 8
	SND_SOC_DAIFMT_IB_NF DAIFormat = 3 << 8
	SND_SOC_DAIFMT_IB_IF DAIFormat = 4 << 8

	// The codec drives BCLK and LRCLK.
	SND_SOC_DAIFMT_CBM_CFM DAIFormat = 1 << 12
	// The codec drives LRCLK only.
	SND_SOC_DAIFMT_CBS_CFM DAIFormat = 2 << 12
	// The codec drives BCLK only.
	SND_SOC_DAIFMT_CBM_CFS DAIFormat = 3 << 12
	// The codec is clocked by the host.
	SND_SOC_DAIFMT_CBS_CFS DAIFormat = 4 << 12

	SND_SOC_DAIFMT_FORMAT_MASK DAIFormat = 0x000f
	SND_SOC_DAIFMT_INV_MASK    DAIFormat = 0x0f00
	SND_SOC_DAIFMT_MASTER_MASK DAIFormat = 0xf000
)

var daiFormatNames = []struct {
	mask DAIFormat
	val  DAIFormat
	name string
}{
	{SND_SOC_DAIFMT_FORMAT_MASK, SND_SOC_DAIFMT_I2S, "i2s"},
	{SND_SOC_DAIFMT_FORMAT_MASK, SND_SOC_DAIFMT_RIGHT_J, "right_j"},
	{SND_SOC_DAIFMT_FORMAT_MASK, SND_SOC_DAIFMT_LEFT_J, "left_j"},
	{SND_SOC_DAIFMT_FORMAT_MASK, SND_SOC_DAIFMT_DSP_A, "dsp_a"},
	{SND_SOC_DAIFMT_FORMAT_MASK, SND_SOC_DAIFMT_DSP_B, "dsp_b"},
	{SND_SOC_DAIFMT_INV_MASK, SND_SOC_DAIFMT_NB_NF, "nb_nf"},
	{SND_SOC_DAIFMT_INV_MASK, SND_SOC_DAIFMT_NB_IF, "nb_if"},
	{SND_SOC_DAIFMT_INV_MASK, SND_SOC_DAIFMT_IB_NF, "ib_nf"},
	{SND_SOC_DAIFMT_INV_MASK, SND_SOC_DAIFMT_IB_IF, "ib_if"},
	{SND_SOC_DAIFMT_MASTER_MASK, SND_SOC_DAIFMT_CBM_CFM, "cbm_cfm"},
	{SND_SOC_DAIFMT_MASTER_MASK, SND_SOC_DAIFMT_CBS_CFM, "cbs_cfm"},
	{SND_SOC_DAIFMT_MASTER_MASK, SND_SOC_DAIFMT_CBM_CFS, "cbm_cfs"},
	{SND_SOC_DAIFMT_MASTER_MASK, SND_SOC_DAIFMT_CBS_CFS, "cbs_cfs"},
}

// Format returns the framing bits.
func (f DAIFormat) Format() DAIFormat {
	return f & SND_SOC_DAIFMT_FORMAT_MASK
}

// Master returns the clock provider bits.
func (f DAIFormat) Master() DAIFormat {
	return f & SND_SOC_DAIFMT_MASTER_MASK
}

// Inversion returns the clock inversion bits.
func (f DAIFormat) Inversion() DAIFormat {
	return f & SND_SOC_DAIFMT_INV_MASK
}

// String returns the comma separated field names, e.g. "i2s,nb_nf,cbm_cfm".
func (f DAIFormat) String() string {
	var parts []string
	for _, n := range daiFormatNames {
		if f&n.mask == n.val {
			parts = append(parts, n.name)
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("DAIFormat(0x%x)", uint32(f))
	}

	return strings.Join(parts, ",")
}

// ParseDAIFormat parses a comma separated list of field names as produced by String.
func ParseDAIFormat(s string) (DAIFormat, error) {
	var f DAIFormat

	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		found := false
		for _, n := range daiFormatNames {
			if n.name == part {
				if f&n.mask != 0 {
					return 0, fmt.Errorf("dai format %q sets %s twice: %w", s, part, ErrInvalidArgument)
				}
				f |= n.val
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("dai format %q: unknown field %q: %w", s, part, ErrInvalidArgument)
		}
	}

	return f, nil
}
