package hifiberry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/hifiberry/internal/logging"
)

// DAC+ Pro oscillators.
const (
	// CLK_44EN_RATE is the 44.1 kHz family oscillator, enabled through codec GPIO6.
	CLK_44EN_RATE = 22579200
	// CLK_48EN_RATE is the 48 kHz family oscillator, enabled through codec GPIO3.
	CLK_48EN_RATE = 24576000
)

// Codec GPIO_CONTROL_1 bits on the DAC+ boards.
const (
	DACPLUS_GPIO_CLK48EN = 1 << 2
	DACPLUS_GPIO_LED     = 1 << 3
	DACPLUS_GPIO_CLK44EN = 1 << 5
	DACPLUS_GPIO_CLKS    = DACPLUS_GPIO_CLK48EN | DACPLUS_GPIO_CLK44EN
)

// Board settle times.
const (
	DACPLUS_CLK_SETTLE   = 2 * time.Millisecond
	DACPLUS_RESET_SETTLE = time.Millisecond
)

// DACPLUS_VOLUME_LIMIT caps Digital Playback Volume at 0 dB.
const DACPLUS_VOLUME_LIMIT = 207

// Oscillator selects one of the DAC+ Pro oscillators.
type Oscillator int

const (
	OscillatorNone Oscillator = iota
	Oscillator44k1
	Oscillator48k
)

// String implements fmt.Stringer.
func (o Oscillator) String() string {
	switch o {
	case Oscillator44k1:
		return "clk44en"
	case Oscillator48k:
		return "clk48en"
	default:
		return "none"
	}
}

// Rate returns the oscillator frequency, 0 for none.
func (o Oscillator) Rate() uint64 {
	switch o {
	case Oscillator44k1:
		return CLK_44EN_RATE
	case Oscillator48k:
		return CLK_48EN_RATE
	default:
		return 0
	}
}

// OscillatorFor returns the oscillator whose family contains sampleRate.
func OscillatorFor(sampleRate uint64) Oscillator {
	switch sampleRate {
	case 11025, 22050, 44100, 88200, 176400, 352800:
		return Oscillator44k1
	default:
		return Oscillator48k
	}
}

// DACPlusProClock models the fixed-frequency oscillator pair as a clock with two rates.
type DACPlusProClock struct {
	mu  sync.Mutex
	osc Oscillator
	log *slog.Logger
}

// NewDACPlusProClock returns the clock with the 48 kHz oscillator selected.
func NewDACPlusProClock() *DACPlusProClock {
	return &DACPlusProClock{
		osc: Oscillator48k,
		log: logging.GetLogger("clock").With("device", "dacpluspro"),
	}
}

// RoundRate returns the oscillator rate closest to rate. Ties go to the 48 kHz oscillator.
func (c *DACPlusProClock) RoundRate(rate uint64) uint64 {
	switch {
	case rate <= CLK_44EN_RATE:
		return CLK_44EN_RATE
	case rate >= CLK_48EN_RATE:
		return CLK_48EN_RATE
	case rate-CLK_44EN_RATE < CLK_48EN_RATE-rate:
		return CLK_44EN_RATE
	default:
		return CLK_48EN_RATE
	}
}

// SetRate selects the oscillator closest to rate.
func (c *DACPlusProClock) SetRate(rate uint64) error {
	if c == nil {
		return ErrClosed
	}

	osc := Oscillator48k
	if c.RoundRate(rate) == CLK_44EN_RATE {
		osc = Oscillator44k1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("Set rate", "rate", rate, "oscillator", osc)
	c.osc = osc

	return nil
}

// Rate returns the selected oscillator rate.
func (c *DACPlusProClock) Rate() uint64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.osc.Rate()
}

// Oscillator returns the selected oscillator.
func (c *DACPlusProClock) Oscillator() Oscillator {
	if c == nil {
		return OscillatorNone
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.osc
}

// DACPlusOptions configure the DAC+ board glue.
type DACPlusOptions struct {
	// Slave keeps the codec a clock consumer and skips oscillator detection.
	Slave bool
	// LEDsOff keeps the board LED dark.
	LEDsOff bool
	// AutoMute drives MutePin with stream startup and shutdown.
	AutoMute bool
	// MutePin is the external amplifier mute line. High unmutes.
	MutePin OutputPin
	// MuteExt is the initial external mute state, exposed as the Mute(ext) control.
	MuteExt bool
	// ResetPin is pulsed at init when set.
	ResetPin OutputPin
	// DigitalGain24dB lifts the 0 dB cap of Digital Playback Volume.
	DigitalGain24dB bool
	// Sleep replaces time.Sleep, used by tests.
	Sleep func(time.Duration)
}

// DACPlus is the DAC+ family board: a PCM512x with an optional oscillator pair (Pro), LED and mute line.
type DACPlus struct {
	mu      sync.Mutex
	codec   *PCM512x
	clk     *DACPlusProClock
	opt     DACPlusOptions
	sleep   func(time.Duration)
	log     *slog.Logger
	pro     bool
	muteExt bool
	ctls    *Controls
}

// NewDACPlus creates the board glue around codec.
func NewDACPlus(codec *PCM512x, opt DACPlusOptions) *DACPlus {
	d := &DACPlus{
		codec:   codec,
		clk:     NewDACPlusProClock(),
		opt:     opt,
		sleep:   opt.Sleep,
		log:     logging.GetLogger("dacplus"),
		muteExt: opt.MuteExt,
	}

	if d.sleep == nil {
		d.sleep = time.Sleep
	}

	return d
}

// Codec returns the PCM512x of the board.
func (d *DACPlus) Codec() *PCM512x {
	if d == nil {
		return nil
	}

	return d.codec
}

// Clock returns the oscillator pair. Only meaningful on a Pro board.
func (d *DACPlus) Clock() *DACPlusProClock {
	if d == nil {
		return nil
	}

	return d.clk
}

// IsPro reports whether Init found both oscillators.
func (d *DACPlus) IsPro() bool {
	if d == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pro
}

// Name returns the board name.
func (d *DACPlus) Name() string {
	if d.IsPro() {
		return "HiFiBerry DAC+ Pro"
	}

	return "HiFiBerry DAC+"
}

// Init detects the board variant and configures clocks, LED, reset and mute lines.
// The codec must be probed.
func (d *DACPlus) Init() error {
	if d == nil || d.codec == nil {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rm := d.codec.Regmap()

	pro := false
	if !d.opt.Slave {
		var err error
		if pro, err = d.detectPro(); err != nil {
			return fmt.Errorf("detect pro: %w", err)
		}
	}
	d.pro = pro

	if pro {
		d.log.Info("Detected DAC+ Pro")

		if err := d.codec.SetFormat(SND_SOC_DAIFMT_I2S | SND_SOC_DAIFMT_NB_NF | SND_SOC_DAIFMT_CBM_CFM); err != nil {
			return err
		}

		ops := []RegOp{
			{PCM512x_BCLK_LRCLK_CFG, 0x31, 0x11},
			{PCM512x_MASTER_MODE, 0x03, 0x03},
			{PCM512x_MASTER_CLKDIV_2, 0x7f, 63},
		}
		if err := rm.Exec(ops); err != nil {
			return fmt.Errorf("pro clock outputs: %w", err)
		}

		d.codec.SetSysclk(d.clk.Rate())
	} else {
		if err := d.codec.SetFormat(SND_SOC_DAIFMT_I2S | SND_SOC_DAIFMT_NB_NF | SND_SOC_DAIFMT_CBS_CFS); err != nil {
			return err
		}

		d.codec.SetSysclk(0)
	}

	led := uint8(DACPLUS_GPIO_LED)
	if d.opt.LEDsOff {
		led = 0
	}

	ops := []RegOp{
		{PCM512x_GPIO_EN, DACPLUS_GPIO_LED, DACPLUS_GPIO_LED},
		{PCM512x_GPIO_OUTPUT_4, 0x0f, PCM512x_GxSL_REG},
		{PCM512x_GPIO_CONTROL_1, DACPLUS_GPIO_LED, led},
	}
	if err := rm.Exec(ops); err != nil {
		return fmt.Errorf("led: %w", err)
	}

	if !d.opt.DigitalGain24dB {
		if err := d.codec.Controls().Limit("Digital Playback Volume", DACPLUS_VOLUME_LIMIT); err != nil {
			d.log.Warn("Failed to set volume limit", "error", err)
		}
	}

	if d.opt.ResetPin != nil {
		for i, level := range []bool{false, true, false} {
			if err := d.opt.ResetPin.Set(level); err != nil {
				return fmt.Errorf("reset gpio: %w", err)
			}

			if i < 2 {
				d.sleep(DACPLUS_RESET_SETTLE)
			}
		}
	}

	if d.opt.MutePin != nil {
		if err := d.opt.MutePin.Set(!d.muteExt); err != nil {
			return fmt.Errorf("mute gpio: %w", err)
		}
	}

	return nil
}

// SelectOscillator enables osc through the codec GPIOs and waits for it to settle.
func (d *DACPlus) SelectOscillator(osc Oscillator) error {
	if d == nil || d.codec == nil {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.selectOscillator(osc)
}

func (d *DACPlus) selectOscillator(osc Oscillator) error {
	var val uint8
	switch osc {
	case Oscillator44k1:
		val = DACPLUS_GPIO_CLK44EN
	case Oscillator48k:
		val = DACPLUS_GPIO_CLK48EN
	}

	if err := d.codec.Regmap().UpdateBits(PCM512x_GPIO_CONTROL_1, DACPLUS_GPIO_CLKS, val); err != nil {
		return fmt.Errorf("select %s: %w", osc, err)
	}

	d.sleep(DACPLUS_CLK_SETTLE)

	return nil
}

func (d *DACPlus) setupClockGPIO() error {
	ops := []RegOp{
		{PCM512x_GPIO_EN, DACPLUS_GPIO_CLKS, DACPLUS_GPIO_CLKS},
		{PCM512x_GPIO_OUTPUT_3, 0x0f, PCM512x_GxSL_REG},
		{PCM512x_GPIO_OUTPUT_6, 0x0f, PCM512x_GxSL_REG},
	}

	return d.codec.Regmap().Exec(ops)
}

func (d *DACPlus) sclkPresent() (bool, error) {
	v, err := d.codec.Regmap().Read(PCM512x_RATE_DET_4)
	if err != nil {
		return false, err
	}

	return v&PCM512x_CDST == 0, nil
}

// detectPro enables each oscillator in turn and checks SCK detection.
// A Pro board sees SCK with either oscillator and none with both off.
func (d *DACPlus) detectPro() (bool, error) {
	if err := d.setupClockGPIO(); err != nil {
		return false, err
	}

	seen := make(map[Oscillator]bool, 3)
	for _, osc := range []Oscillator{Oscillator44k1, OscillatorNone, Oscillator48k} {
		if err := d.selectOscillator(osc); err != nil {
			return false, err
		}

		ok, err := d.sclkPresent()
		if err != nil {
			return false, err
		}
		seen[osc] = ok
	}

	d.log.Debug("Oscillator detection", "clk44en", seen[Oscillator44k1], "none", seen[OscillatorNone], "clk48en", seen[Oscillator48k])

	return seen[Oscillator44k1] && seen[Oscillator48k] && !seen[OscillatorNone], nil
}

// Startup lights the LED and unmutes the amplifier for a stream of frameSize bits.
// It returns the rates the codec accepts.
func (d *DACPlus) Startup(frameSize uint32) (*RateConstraint, error) {
	if d == nil || d.codec == nil {
		return nil, ErrClosed
	}

	d.mu.Lock()
	if d.opt.AutoMute && d.opt.MutePin != nil {
		if err := d.opt.MutePin.Set(true); err != nil {
			d.mu.Unlock()

			return nil, fmt.Errorf("mute gpio: %w", err)
		}
	}

	if !d.opt.LEDsOff {
		if err := d.codec.Regmap().UpdateBits(PCM512x_GPIO_CONTROL_1, DACPLUS_GPIO_LED, DACPLUS_GPIO_LED); err != nil {
			d.mu.Unlock()

			return nil, fmt.Errorf("led: %w", err)
		}
	}
	d.mu.Unlock()

	return d.codec.Startup(frameSize)
}

// HwParams switches the Pro oscillator to the family of the stream rate, sets the
// bit clock ratio to channels times the sample container width and programs the codec.
func (d *DACPlus) HwParams(rate uint64, format PcmFormat, channels uint32) (*ClockPlan, error) {
	if d == nil || d.codec == nil {
		return nil, ErrClosed
	}

	width := PcmFormatWidth(format)
	if width == 0 {
		return nil, fmt.Errorf("format %s: %w", format, ErrInvalidArgument)
	}

	d.mu.Lock()
	pro := d.pro

	container := uint32(32)
	if pro {
		container = PcmFormatToBits(format)

		osc := OscillatorFor(rate)
		if err := d.clk.SetRate(osc.Rate()); err != nil {
			d.mu.Unlock()

			return nil, err
		}

		if err := d.selectOscillator(osc); err != nil {
			d.mu.Unlock()

			return nil, err
		}

		d.codec.SetSysclk(d.clk.Rate())
	}
	d.mu.Unlock()

	ratio := channels * container
	d.log.Debug("Hw params", "rate", rate, "format", format, "channels", channels, "bclk_ratio", ratio)

	if err := d.codec.SetBCLKRatio(ratio); err != nil {
		return nil, err
	}

	return d.codec.HwParams(HwParams{Rate: rate, Width: width, Channels: channels})
}

// Shutdown turns the LED off, mutes the amplifier and parks the Pro clock on 48 kHz,
// so the next provider-mode startup does not lose the 384 kHz rate.
func (d *DACPlus) Shutdown() error {
	if d == nil || d.codec == nil {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.codec.Regmap().UpdateBits(PCM512x_GPIO_CONTROL_1, DACPLUS_GPIO_LED, 0); err != nil {
		return fmt.Errorf("led: %w", err)
	}

	if d.opt.AutoMute && d.opt.MutePin != nil {
		if err := d.opt.MutePin.Set(false); err != nil {
			return fmt.Errorf("mute gpio: %w", err)
		}
	}

	if d.pro {
		if err := d.clk.SetRate(CLK_48EN_RATE); err != nil {
			return err
		}

		d.codec.SetSysclk(d.clk.Rate())
	}

	return nil
}

// SetMuteExt drives the external mute line; it reports whether the state changed.
func (d *DACPlus) SetMuteExt(mute bool) (bool, error) {
	if d == nil {
		return false, ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.muteExt == mute {
		return false, nil
	}

	if d.opt.MutePin != nil {
		if err := d.opt.MutePin.Set(!mute); err != nil {
			return false, fmt.Errorf("mute gpio: %w", err)
		}
	}
	d.muteExt = mute

	return true, nil
}

// MuteExt returns the external mute state.
func (d *DACPlus) MuteExt() bool {
	if d == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.muteExt
}

// Controls returns the codec controls plus Mute(ext) when a mute line is present.
func (d *DACPlus) Controls() *Controls {
	if d == nil || d.codec == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctls != nil {
		return d.ctls
	}

	ctls := append([]*Control(nil), d.codec.Controls().Ctls...)
	if d.opt.MutePin != nil {
		ctls = append(ctls, &Control{
			name:   "Mute(ext)",
			typ:    ControlBoolean,
			max:    1,
			values: 1,
			get:    func() []int { return []int{boolInt(d.MuteExt())} },
			put:    func(v []int) (bool, error) { return d.SetMuteExt(v[0] != 0) },
		})
	}
	d.ctls = newControls(ctls...)

	return d.ctls
}
