package hifiberry

// DAC2HD clock generator registers.
const (
	DAC2HD_CLK_SOFT_RESET     Reg   = 177
	DAC2HD_CLK_SOFT_RESET_VAL uint8 = 0xAC
	// DAC2HD_MAX_TABLE is the largest number of writes one table may hold.
	DAC2HD_MAX_TABLE = 256
	// DAC2HD_DEFAULT_RATE is the rate selected at probe.
	DAC2HD_DEFAULT_RATE = 44100
)

// DAC2HDRates are the sample rates the clock generator has tables for.
var DAC2HDRates = []uint64{44100, 48000, 88200, 96000, 176400, 192000}

// dac2hdCommon is written once after the power-on defaults, whatever the rate.
var dac2hdCommon = []RegVal{
	{0x02, 0x53}, {0x03, 0x00}, {0x07, 0x20}, {0x0F, 0x00},
	{0x10, 0x0D}, {0x11, 0x1D}, {0x12, 0x0D}, {0x13, 0x8C},
	{0x14, 0x8C}, {0x15, 0x8C}, {0x16, 0x8C}, {0x17, 0x8C},
	{0x18, 0x2A}, {0x1C, 0x00}, {0x1D, 0x0F}, {0x1F, 0x00},
	{0x2A, 0x00}, {0x2C, 0x00}, {0x2F, 0x00}, {0x30, 0x00},
	{0x31, 0x00}, {0x32, 0x00}, {0x34, 0x00}, {0x37, 0x00},
	{0x38, 0x00}, {0x39, 0x00}, {0x3A, 0x00}, {0x3B, 0x01},
	{0x3E, 0x00}, {0x3F, 0x00}, {0x40, 0x00}, {0x41, 0x00},
	{0x5A, 0x00}, {0x5B, 0x00}, {0x95, 0x00}, {0x96, 0x00},
	{0x97, 0x00}, {0x98, 0x00}, {0x99, 0x00}, {0x9A, 0x00},
	{0x9B, 0x00}, {0xA2, 0x00}, {0xA3, 0x00}, {0xA4, 0x00},
	{0xB7, 0x92},
}

// dac2hdPLLExtra completes the common table into the power-on defaults, a 44.1 kHz
// setup without the 0x33 divider, enough to start the PLL so the DAC answers on the bus.
var dac2hdPLLExtra = []RegVal{
	{0x1A, 0x3D}, {0x1B, 0x09}, {0x1E, 0xF3}, {0x20, 0x13},
	{0x21, 0x75}, {0x2B, 0x04}, {0x2D, 0x11}, {0x2E, 0xE0},
	{0x35, 0x9D}, {0x36, 0x00}, {0x3C, 0x42}, {0x3D, 0x7A},
}

// dac2hdDedicatedRegs are the registers every rate table writes, in order.
var dac2hdDedicatedRegs = [13]Reg{0x1A, 0x1B, 0x1E, 0x20, 0x21, 0x2B, 0x2D, 0x2E, 0x33, 0x35, 0x36, 0x3C, 0x3D}

var dac2hdDedicated = map[RateBucket][13]uint8{
	Bucket192k:  {0x0C, 0x35, 0xF0, 0x09, 0x50, 0x02, 0x10, 0x40, 0x01, 0x22, 0x80, 0x22, 0x46},
	Bucket96k:   {0x0C, 0x35, 0xF0, 0x09, 0x50, 0x02, 0x10, 0x40, 0x01, 0x47, 0x00, 0x32, 0x46},
	Bucket48k:   {0x0C, 0x35, 0xF0, 0x09, 0x50, 0x02, 0x10, 0x40, 0x01, 0x90, 0x00, 0x42, 0x46},
	Bucket176k4: {0x3D, 0x09, 0xF3, 0x13, 0x75, 0x04, 0x11, 0xE0, 0x02, 0x25, 0xC0, 0x22, 0x7A},
	Bucket88k2:  {0x3D, 0x09, 0xF3, 0x13, 0x75, 0x04, 0x11, 0xE0, 0x01, 0x4D, 0x80, 0x32, 0x7A},
	Bucket44k1:  {0x3D, 0x09, 0xF3, 0x13, 0x75, 0x04, 0x11, 0xE0, 0x01, 0x9D, 0x00, 0x42, 0x7A},
}

// DAC2HDPLLDefaults returns the power-on register values of the clock generator.
func DAC2HDPLLDefaults() []RegVal {
	regs := make([]RegVal, 0, len(dac2hdCommon)+len(dac2hdPLLExtra))
	regs = append(regs, dac2hdCommon...)

	return append(regs, dac2hdPLLExtra...)
}

// DAC2HDRegmapConfig returns the register layout of the clock generator.
func DAC2HDRegmapConfig() RegmapConfig {
	return RegmapConfig{
		Name:      "dac2hd-clk",
		Cache:     true,
		Defaults:  DAC2HDPLLDefaults(),
		SoftReset: &RegVal{DAC2HD_CLK_SOFT_RESET, DAC2HD_CLK_SOFT_RESET_VAL},
	}
}

func compiledTables() map[RateBucket][]RegVal {
	tables := make(map[RateBucket][]RegVal, len(dac2hdDedicated)+1)
	tables[BucketCommon] = append([]RegVal(nil), dac2hdCommon...)

	for bucket, vals := range dac2hdDedicated {
		regs := make([]RegVal, len(vals))
		for i, v := range vals {
			regs[i] = RegVal{dac2hdDedicatedRegs[i], v}
		}
		tables[bucket] = regs
	}

	return tables
}
