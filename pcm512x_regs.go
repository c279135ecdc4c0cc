package hifiberry

// PCM512x register addresses. Page 0 and page 1 are reached through virtual addresses from PageBase.
const (
	PCM512x_PAGE = 0

	PCM512x_RESET             = PageBase + 1
	PCM512x_POWER             = PageBase + 2
	PCM512x_MUTE              = PageBase + 3
	PCM512x_PLL_EN            = PageBase + 4
	PCM512x_SPI_MISO_FUNCTION = PageBase + 6
	PCM512x_DSP               = PageBase + 7
	PCM512x_GPIO_EN           = PageBase + 8
	PCM512x_BCLK_LRCLK_CFG    = PageBase + 9
	PCM512x_DSP_GPIO_INPUT    = PageBase + 10
	PCM512x_MASTER_MODE       = PageBase + 12
	PCM512x_PLL_REF           = PageBase + 13
	PCM512x_DAC_REF           = PageBase + 14
	PCM512x_GPIO_DACIN        = PageBase + 16
	PCM512x_GPIO_PLLIN        = PageBase + 18
	PCM512x_SYNCHRONIZE       = PageBase + 19
	PCM512x_PLL_COEFF_0       = PageBase + 20
	PCM512x_PLL_COEFF_1       = PageBase + 21
	PCM512x_PLL_COEFF_2       = PageBase + 22
	PCM512x_PLL_COEFF_3       = PageBase + 23
	PCM512x_PLL_COEFF_4       = PageBase + 24
	PCM512x_DSP_CLKDIV        = PageBase + 27
	PCM512x_DAC_CLKDIV        = PageBase + 28
	PCM512x_NCP_CLKDIV        = PageBase + 29
	PCM512x_OSR_CLKDIV        = PageBase + 30
	PCM512x_MASTER_CLKDIV_1   = PageBase + 32
	PCM512x_MASTER_CLKDIV_2   = PageBase + 33
	PCM512x_FS_SPEED_MODE     = PageBase + 34
	PCM512x_IDAC_1            = PageBase + 35
	PCM512x_IDAC_2            = PageBase + 36
	PCM512x_ERROR_DETECT      = PageBase + 37
	PCM512x_I2S_1             = PageBase + 40
	PCM512x_I2S_2             = PageBase + 41
	PCM512x_DAC_ROUTING       = PageBase + 42
	PCM512x_DSP_PROGRAM       = PageBase + 43
	PCM512x_CLKDET            = PageBase + 44
	PCM512x_AUTO_MUTE         = PageBase + 59
	PCM512x_DIGITAL_VOLUME_1  = PageBase + 60
	PCM512x_DIGITAL_VOLUME_2  = PageBase + 61
	PCM512x_DIGITAL_VOLUME_3  = PageBase + 62
	PCM512x_DIGITAL_MUTE_1    = PageBase + 63
	PCM512x_DIGITAL_MUTE_2    = PageBase + 64
	PCM512x_DIGITAL_MUTE_3    = PageBase + 65
	PCM512x_GPIO_OUTPUT_1     = PageBase + 80
	PCM512x_GPIO_OUTPUT_2     = PageBase + 81
	PCM512x_GPIO_OUTPUT_3     = PageBase + 82
	PCM512x_GPIO_OUTPUT_4     = PageBase + 83
	PCM512x_GPIO_OUTPUT_5     = PageBase + 84
	PCM512x_GPIO_OUTPUT_6     = PageBase + 85
	PCM512x_GPIO_CONTROL_1    = PageBase + 86
	PCM512x_GPIO_CONTROL_2    = PageBase + 87
	PCM512x_OVERFLOW          = PageBase + 90
	PCM512x_RATE_DET_1        = PageBase + 91
	PCM512x_RATE_DET_2        = PageBase + 92
	PCM512x_RATE_DET_3        = PageBase + 93
	PCM512x_RATE_DET_4        = PageBase + 94
	PCM512x_CLOCK_STATUS      = PageBase + 95
	PCM512x_ANALOG_MUTE_DET   = PageBase + 108
	PCM512x_GPIN              = PageBase + 119
	PCM512x_DIGITAL_MUTE_DET  = PageBase + 120

	PCM512x_OUTPUT_AMPLITUDE  = PageBase + PageLen + 1
	PCM512x_ANALOG_GAIN_CTRL  = PageBase + PageLen + 2
	PCM512x_UNDERVOLTAGE_PROT = PageBase + PageLen + 5
	PCM512x_ANALOG_MUTE_CTRL  = PageBase + PageLen + 6
	PCM512x_ANALOG_GAIN_BOOST = PageBase + PageLen + 7
	PCM512x_VCOM_CTRL_1       = PageBase + PageLen + 8
	PCM512x_VCOM_CTRL_2       = PageBase + PageLen + 9

	PCM512x_FLEX_A = PageBase + 253*PageLen + 63
	PCM512x_FLEX_B = PageBase + 253*PageLen + 64
)

// Page 0, register 1: reset.
const (
	PCM512x_RSTR = 1 << 0
	PCM512x_RSTM = 1 << 4
)

// Page 0, register 2: power.
const (
	PCM512x_RQPD = 1 << 0
	PCM512x_RQST = 1 << 4
)

// Page 0, register 3: mute.
const (
	PCM512x_RQMR = 1 << 0
	PCM512x_RQML = 1 << 4
)

// Page 0, register 4: PLL.
const (
	PCM512x_PLLE = 1 << 0
	PCM512x_PLCK = 1 << 4
)

// Page 0, register 9: BCK, LRCK configuration.
const (
	PCM512x_LRKO = 1 << 0
	PCM512x_BCKO = 1 << 4
	PCM512x_BCKP = 1 << 5
)

// Page 0, register 12: master mode BCK, LRCK reset.
const (
	PCM512x_RLRK = 1 << 0
	PCM512x_RBCK = 1 << 1
)

// Page 0, register 13: PLL reference.
const (
	PCM512x_SREF      = 7 << 4
	PCM512x_SREF_SCK  = 0 << 4
	PCM512x_SREF_BCK  = 1 << 4
	PCM512x_SREF_GPIO = 3 << 4
)

// Page 0, register 14: DAC clock source.
const (
	PCM512x_SDAC      = 7 << 4
	PCM512x_SDAC_MCK  = 0 << 4
	PCM512x_SDAC_PLL  = 1 << 4
	PCM512x_SDAC_SCK  = 3 << 4
	PCM512x_SDAC_BCK  = 4 << 4
	PCM512x_SDAC_GPIO = 5 << 4
)

// Page 0, registers 16 and 18: GPIO source for DAC and PLL.
const (
	PCM512x_GREF       = 7 << 0
	PCM512x_GREF_GPIO1 = 0 << 0
)

// Page 0, register 19: synchronize.
const (
	PCM512x_RQSY        = 1 << 0
	PCM512x_RQSY_RESUME = 0 << 0
	PCM512x_RQSY_HALT   = 1 << 0
)

// Page 0, register 34: sampling speed mode.
const (
	PCM512x_FSSP        = 3
	PCM512x_FSSP_48KHZ  = 0
	PCM512x_FSSP_96KHZ  = 1
	PCM512x_FSSP_192KHZ = 2
	PCM512x_FSSP_384KHZ = 3
)

// Page 0, register 37: error detection.
const (
	PCM512x_IPLK = 1 << 0
	PCM512x_DCAS = 1 << 1
	PCM512x_IDCM = 1 << 2
	PCM512x_IDCH = 1 << 3
	PCM512x_IDSK = 1 << 4
	PCM512x_IDBK = 1 << 5
	PCM512x_IDFS = 1 << 6
)

// Page 0, register 40: I2S configuration.
const (
	PCM512x_ALEN     = 3 << 0
	PCM512x_ALEN_16  = 0 << 0
	PCM512x_ALEN_20  = 1 << 0
	PCM512x_ALEN_24  = 2 << 0
	PCM512x_ALEN_32  = 3 << 0
	PCM512x_AFMT     = 3 << 4
	PCM512x_AFMT_I2S = 0 << 4
	PCM512x_AFMT_DSP = 1 << 4
	PCM512x_AFMT_RTJ = 2 << 4
	PCM512x_AFMT_LTJ = 3 << 4
)

// Page 0, register 80-85: GPIO output selection.
const (
	PCM512x_GxSL       = 31 << 0
	PCM512x_GxSL_REG   = 2
	PCM512x_GxSL_PLLCK = 16
)

// Page 0, register 94: clock detection status.
const (
	PCM512x_CDST = 1 << 6
)

// pcm512xDefaults are the power-on values of the cached registers.
var pcm512xDefaults = []RegVal{
	{PCM512x_RESET, 0x00},
	{PCM512x_POWER, 0x00},
	{PCM512x_MUTE, 0x00},
	{PCM512x_DSP, 0x00},
	{PCM512x_PLL_REF, 0x00},
	{PCM512x_DAC_REF, 0x00},
	{PCM512x_DAC_ROUTING, 0x11},
	{PCM512x_DSP_PROGRAM, 0x01},
	{PCM512x_CLKDET, 0x00},
	{PCM512x_AUTO_MUTE, 0x00},
	{PCM512x_ERROR_DETECT, 0x00},
	{PCM512x_DIGITAL_VOLUME_1, 0x00},
	{PCM512x_DIGITAL_VOLUME_2, 0x30},
	{PCM512x_DIGITAL_VOLUME_3, 0x30},
	{PCM512x_DIGITAL_MUTE_1, 0x22},
	{PCM512x_DIGITAL_MUTE_2, 0x00},
	{PCM512x_DIGITAL_MUTE_3, 0x07},
	{PCM512x_OUTPUT_AMPLITUDE, 0x00},
	{PCM512x_ANALOG_GAIN_CTRL, 0x00},
	{PCM512x_UNDERVOLTAGE_PROT, 0x00},
	{PCM512x_ANALOG_MUTE_CTRL, 0x00},
	{PCM512x_ANALOG_GAIN_BOOST, 0x00},
	{PCM512x_VCOM_CTRL_1, 0x00},
	{PCM512x_VCOM_CTRL_2, 0x01},
	{PCM512x_BCLK_LRCLK_CFG, 0x00},
	{PCM512x_MASTER_MODE, 0x7c},
	{PCM512x_GPIO_DACIN, 0x00},
	{PCM512x_GPIO_PLLIN, 0x00},
	{PCM512x_SYNCHRONIZE, 0x10},
	{PCM512x_PLL_COEFF_0, 0x00},
	{PCM512x_PLL_COEFF_1, 0x00},
	{PCM512x_PLL_COEFF_2, 0x00},
	{PCM512x_PLL_COEFF_3, 0x00},
	{PCM512x_PLL_COEFF_4, 0x00},
	{PCM512x_DSP_CLKDIV, 0x00},
	{PCM512x_DAC_CLKDIV, 0x00},
	{PCM512x_NCP_CLKDIV, 0x00},
	{PCM512x_OSR_CLKDIV, 0x00},
	{PCM512x_MASTER_CLKDIV_1, 0x00},
	{PCM512x_MASTER_CLKDIV_2, 0x00},
	{PCM512x_FS_SPEED_MODE, 0x00},
	{PCM512x_IDAC_1, 0x01},
	{PCM512x_IDAC_2, 0x00},
}

// pcm512xVolatile reports registers reflecting live device state.
func pcm512xVolatile(reg Reg) bool {
	switch reg {
	case PCM512x_PLL_EN, PCM512x_OVERFLOW, PCM512x_RATE_DET_1, PCM512x_RATE_DET_2,
		PCM512x_RATE_DET_3, PCM512x_RATE_DET_4, PCM512x_CLOCK_STATUS,
		PCM512x_ANALOG_MUTE_DET, PCM512x_GPIN, PCM512x_DIGITAL_MUTE_DET:
		return true
	}

	return false
}

// PCM512xRegmapConfig returns the register map layout of a PCM512x.
func PCM512xRegmapConfig() RegmapConfig {
	return RegmapConfig{
		Name:     "pcm512x",
		Paged:    true,
		Cache:    true,
		Defaults: pcm512xDefaults,
		Volatile: pcm512xVolatile,
	}
}
