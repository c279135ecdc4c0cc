package hifiberry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gen2brain/hifiberry/internal/logging"
)

// DAC2HD_BCLK_RATIO is the fixed number of bit clocks per frame on the DAC2 HD.
const DAC2HD_BCLK_RATIO = 64

// DAC2HDClock is the PLL clock generator of the DAC2 HD. Its rate is the sample rate
// it was last set to; each rate has a register table.
type DAC2HDClock struct {
	mu     sync.Mutex
	rm     *Regmap
	tables *PLLTables
	rate   uint64
	obs    Observer
	log    *slog.Logger
}

// NewDAC2HDClock creates the clock generator on rm, a map built with DAC2HDRegmapConfig.
// A nil tables uses the compiled-in tables.
func NewDAC2HDClock(rm *Regmap, tables *PLLTables, obs Observer) *DAC2HDClock {
	if tables == nil {
		tables, _ = NewPLLTables(nil)
	}

	return &DAC2HDClock{
		rm:     rm,
		tables: tables,
		obs:    observerOrNop(obs),
		log:    logging.GetLogger("dac2hd"),
	}
}

// Probe starts the PLL from its power-on defaults so the DAC answers on the bus,
// loads the common table and selects DAC2HD_DEFAULT_RATE.
func (c *DAC2HDClock) Probe() error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	if err := c.rm.Apply(DAC2HDPLLDefaults(), true); err != nil {
		return fmt.Errorf("dac2hd-clk: pll defaults: %w", err)
	}

	if err := c.rm.Apply(c.tables.Table(BucketCommon), false); err != nil {
		return fmt.Errorf("dac2hd-clk: common table: %w", err)
	}

	return c.SetRate(DAC2HD_DEFAULT_RATE)
}

// SetRate loads the table of rate and resets the PLL. Setting the current rate
// writes nothing. On failure the previous rate stays selected.
func (c *DAC2HDClock) SetRate(rate uint64) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rate == c.rate {
		return nil
	}

	table, err := c.tables.ForRate(rate)
	if err != nil {
		return &StageError{Stage: StageTable, Err: err}
	}

	if err := c.rm.Apply(table, true); err != nil {
		return fmt.Errorf("dac2hd-clk: rate %d: %w", rate, err)
	}

	c.log.Debug("Rate changed", "from", c.rate, "to", rate, "writes", len(table))
	c.rate = rate
	c.obs.RateChanged("dac2hd-clk", rate)

	return nil
}

// Rate returns the selected rate, 0 before the first SetRate.
func (c *DAC2HDClock) Rate() uint64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rate
}

// RoundRate returns rate; the generator reports any rate as reachable and
// SetRate rejects the ones without a table.
func (c *DAC2HDClock) RoundRate(rate uint64) uint64 {
	return rate
}

// Tables returns the register tables in use.
func (c *DAC2HDClock) Tables() *PLLTables {
	if c == nil {
		return nil
	}

	return c.tables
}

// DAC2HD is the DAC2 HD board: a PCM1796 clocked by the DAC2HDClock, with the
// codec as bit and frame clock provider.
type DAC2HD struct {
	clk   *DAC2HDClock
	codec *PCM1796
	log   *slog.Logger
}

// NewDAC2HD creates the board glue. The codec SCLK should be clk.
func NewDAC2HD(clk *DAC2HDClock, codec *PCM1796) *DAC2HD {
	return &DAC2HD{
		clk:   clk,
		codec: codec,
		log:   logging.GetLogger("dac2hd"),
	}
}

// Name returns the board name.
func (d *DAC2HD) Name() string {
	return "HiFiBerry DAC2 HD"
}

// Clock returns the clock generator.
func (d *DAC2HD) Clock() *DAC2HDClock {
	if d == nil {
		return nil
	}

	return d.clk
}

// Codec returns the PCM1796.
func (d *DAC2HD) Codec() *PCM1796 {
	if d == nil {
		return nil
	}

	return d.codec
}

// Format returns the interface format of the board.
func (d *DAC2HD) Format() DAIFormat {
	return SND_SOC_DAIFMT_I2S | SND_SOC_DAIFMT_NB_NF | SND_SOC_DAIFMT_CBM_CFM
}

// BCLKRatio returns the number of bit clocks per frame.
func (d *DAC2HD) BCLKRatio() uint32 {
	return DAC2HD_BCLK_RATIO
}

// Init sets the interface format on the codec.
func (d *DAC2HD) Init() error {
	if d == nil || d.codec == nil {
		return ErrClosed
	}

	return d.codec.SetFormat(d.Format())
}

// Startup returns the rates the clock generator has tables for.
func (d *DAC2HD) Startup() *RateConstraint {
	return &RateConstraint{Rates: slices.Clone(DAC2HDRates)}
}

// HwParams switches the clock generator to rate, selects the codec oversampling
// and programs the sample format.
func (d *DAC2HD) HwParams(rate uint64, format PcmFormat) error {
	if d == nil || d.codec == nil {
		return ErrClosed
	}

	if !d.Startup().Allows(rate) {
		return fmt.Errorf("dac2hd: rate %d: %w", rate, ErrInvalidArgument)
	}

	width := PcmFormatWidth(format)
	if width == 0 {
		return fmt.Errorf("dac2hd: format %s: %w", format, ErrInvalidArgument)
	}

	d.log.Debug("Hw params", "rate", rate, "format", format)

	if err := d.codec.SetSysclk(rate); err != nil {
		return err
	}

	if err := d.codec.SetOversampling(rate); err != nil {
		return err
	}

	return d.codec.HwParams(width)
}
