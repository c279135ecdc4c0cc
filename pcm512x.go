package hifiberry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gen2brain/hifiberry/internal/logging"
)

// PCM512xRates are the sample rates the codec accepts as a clock consumer.
var PCM512xRates = []uint64{
	8000, 11025, 16000, 22050, 32000, 44100, 48000,
	64000, 88200, 96000, 176400, 192000, 352800, 384000,
}

// Analog mute confirmation polling.
const (
	PCM512x_MUTE_POLL_INTERVAL = 200 * time.Microsecond
	PCM512x_MUTE_POLL_TIMEOUT  = 10 * time.Millisecond
)

// Overclock control ranges exposed at runtime.
const (
	PCM512x_OVERCLOCK_PLL_MAX = 20
	PCM512x_OVERCLOCK_DSP_MAX = 40
	PCM512x_OVERCLOCK_DAC_MAX = 40
)

// Mute request bits. The stream mute is driven by the host,
// the channel bits by the Digital Playback Switch control.
const (
	muteStream = 1 << 0
	muteRight  = 1 << 1
	muteLeft   = 1 << 2
)

// BiasLevel is the power state of a codec.
type BiasLevel int

const (
	BiasOff BiasLevel = iota
	BiasStandby
	BiasPrepare
	BiasOn
)

// String implements fmt.Stringer.
func (b BiasLevel) String() string {
	switch b {
	case BiasOff:
		return "off"
	case BiasStandby:
		return "standby"
	case BiasPrepare:
		return "prepare"
	case BiasOn:
		return "on"
	default:
		return fmt.Sprintf("BiasLevel(%d)", int(b))
	}
}

// PCM512xOptions configure a PCM512x codec.
type PCM512xOptions struct {
	// Name is used in logs and observer notifications. Defaults to "pcm512x".
	Name string
	// PLLIn and PLLOut are the GPIO (1-6) carrying the PLL reference and the PLL output.
	PLLIn  uint8
	PLLOut uint8
	// Sysclk is the rate of the external clock on SCK, 0 when the board has none.
	Sysclk uint64
	// DisableStandby keeps the codec out of standby whatever the bias level.
	DisableStandby bool
	// DisablePowerdown makes Suspend and Resume no-ops.
	DisablePowerdown bool
	// AutoMute drives MutePin together with the stream mute instead of once at probe.
	AutoMute bool
	// MutePin is an external amplifier mute line. High unmutes.
	MutePin   OutputPin
	Overclock Overclock
	Observer  Observer
}

// HwParams are the negotiated stream parameters.
type HwParams struct {
	Rate     uint64
	Width    uint32
	Channels uint32
}

// FrameBits returns the number of bits in one frame.
func (p HwParams) FrameBits() uint32 {
	return p.Width * p.Channels
}

// RateRange is an inclusive range of sample rates.
type RateRange struct {
	Min, Max uint64
}

// RateConstraint restricts the sample rates a stream may use.
// A nil constraint allows every rate.
type RateConstraint struct {
	// Rates is a list of allowed rates.
	Rates []uint64
	// Ranges is a list of allowed rate intervals.
	Ranges []RateRange
	// Num, DenMin and DenMax allow every Num/den for an integer den in [DenMin, DenMax].
	Num            uint64
	DenMin, DenMax uint64
}

// Allows reports whether rate satisfies the constraint.
func (c *RateConstraint) Allows(rate uint64) bool {
	if c == nil {
		return true
	}

	if slices.Contains(c.Rates, rate) {
		return true
	}

	for _, r := range c.Ranges {
		if rate >= r.Min && rate <= r.Max {
			return true
		}
	}

	if c.Num != 0 && rate != 0 && c.Num%rate == 0 {
		den := c.Num / rate

		return den >= c.DenMin && den <= c.DenMax
	}

	return false
}

// PCM512x is a PCM5121/5122/5141/5142 codec.
type PCM512x struct {
	mu  sync.Mutex
	rm  *Regmap
	opt PCM512xOptions
	obs Observer
	log *slog.Logger

	format    DAIFormat
	bclkRatio uint32
	sysclk    uint64
	overclock Overclock
	mute      uint8
	bias      BiasLevel
	plan      *ClockPlan
	controls  *Controls
}

// NewPCM512x creates a codec on rm. Call Probe before use.
func NewPCM512x(rm *Regmap, opt PCM512xOptions) *PCM512x {
	if opt.Name == "" {
		opt.Name = "pcm512x"
	}

	c := &PCM512x{
		rm:        rm,
		opt:       opt,
		obs:       observerOrNop(opt.Observer),
		log:       logging.GetLogger("pcm512x").With("device", opt.Name),
		sysclk:    opt.Sysclk,
		overclock: opt.Overclock,
		bias:      BiasOff,
	}
	c.controls = newPCM512xControls(c)

	return c
}

// Name returns the device name.
func (c *PCM512x) Name() string {
	if c == nil {
		return ""
	}

	return c.opt.Name
}

// Regmap returns the register map of the codec.
func (c *PCM512x) Regmap() *Regmap {
	if c == nil {
		return nil
	}

	return c.rm
}

// Probe resets the codec, mutes both channels and validates the PLL GPIO assignment.
func (c *PCM512x) Probe() error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reset := []RegOp{
		{Reg: PCM512x_RESET, Val: PCM512x_RSTM | PCM512x_RSTR},
		{Reg: PCM512x_RESET, Val: 0},
	}
	if err := c.rm.Exec(reset); err != nil {
		return fmt.Errorf("%s: reset: %w", c.opt.Name, err)
	}

	if err := c.rm.UpdateBits(PCM512x_MUTE, PCM512x_RQML|PCM512x_RQMR, PCM512x_RQML|PCM512x_RQMR); err != nil {
		return fmt.Errorf("%s: mute: %w", c.opt.Name, err)
	}

	if err := validatePLLGPIO(c.opt.PLLIn, c.opt.PLLOut); err != nil {
		return fmt.Errorf("%s: %w", c.opt.Name, err)
	}

	if c.opt.PLLOut != 0 {
		c.log.Info("Using PLL", "in", c.opt.PLLIn, "out", c.opt.PLLOut)
	}

	if c.opt.MutePin == nil {
		c.opt.AutoMute = false
	}

	if !c.opt.DisableStandby {
		if err := c.rm.UpdateBits(PCM512x_POWER, PCM512x_RQST, PCM512x_RQST); err != nil {
			return fmt.Errorf("%s: standby: %w", c.opt.Name, err)
		}
	}

	if c.opt.MutePin != nil && !c.opt.AutoMute {
		if err := c.opt.MutePin.Set(true); err != nil {
			return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
		}
	}

	c.mute = muteStream
	c.bias = BiasOff

	return nil
}

// Remove mutes the external amplifier.
func (c *PCM512x) Remove() error {
	if c == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opt.MutePin != nil {
		return c.opt.MutePin.Set(false)
	}

	return nil
}

// SetSysclk records the rate of the clock on SCK, 0 when it is gone.
func (c *PCM512x) SetSysclk(hz uint64) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sysclk = hz
}

// Sysclk returns the recorded SCK rate.
func (c *PCM512x) Sysclk() uint64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sysclk
}

// SetBCLKRatio forces the number of bit clocks per frame, 0 to derive it from the stream.
func (c *PCM512x) SetBCLKRatio(ratio uint32) error {
	if c == nil {
		return ErrClosed
	}

	if ratio > BCLK_RATIO_MAX {
		return fmt.Errorf("%s: bclk ratio %d: %w", c.opt.Name, ratio, ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.bclkRatio = ratio

	return nil
}

// SetFormat configures the clock provider role and the audio framing.
func (c *PCM512x) SetFormat(f DAIFormat) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	var clockOutput, masterMode uint8
	switch f.Master() {
	case SND_SOC_DAIFMT_CBS_CFS:
	case SND_SOC_DAIFMT_CBM_CFM:
		clockOutput = PCM512x_BCKO | PCM512x_LRKO
		masterMode = PCM512x_RLRK | PCM512x_RBCK
	case SND_SOC_DAIFMT_CBM_CFS:
		clockOutput = PCM512x_BCKO
		masterMode = PCM512x_RBCK
	default:
		return fmt.Errorf("%s: unsupported clock provider %s: %w", c.opt.Name, f.Master(), ErrInvalidArgument)
	}

	var afmt, offset uint8
	switch f.Format() {
	case SND_SOC_DAIFMT_I2S:
		afmt = PCM512x_AFMT_I2S
	case SND_SOC_DAIFMT_RIGHT_J:
		afmt = PCM512x_AFMT_RTJ
	case SND_SOC_DAIFMT_LEFT_J:
		afmt = PCM512x_AFMT_LTJ
	case SND_SOC_DAIFMT_DSP_A:
		offset = 1
		afmt = PCM512x_AFMT_DSP
	case SND_SOC_DAIFMT_DSP_B:
		afmt = PCM512x_AFMT_DSP
	default:
		return fmt.Errorf("%s: unsupported dai format %s: %w", c.opt.Name, f.Format(), ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ops := []RegOp{
		{PCM512x_BCLK_LRCLK_CFG, PCM512x_BCKP | PCM512x_BCKO | PCM512x_LRKO, clockOutput},
		{PCM512x_MASTER_MODE, PCM512x_RLRK | PCM512x_RBCK, masterMode},
		{PCM512x_I2S_1, PCM512x_AFMT, afmt},
		{PCM512x_I2S_2, 0xff, offset},
	}
	if err := c.rm.Exec(ops); err != nil {
		return fmt.Errorf("%s: set format: %w", c.opt.Name, err)
	}

	c.format = f

	return nil
}

// Format returns the last accepted interface format.
func (c *PCM512x) Format() DAIFormat {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.format
}

// Startup returns the rates a stream of frameSize bits may use in the current role.
// In consumer mode without SCK the codec is switched to derive its clock from BCLK.
func (c *PCM512x) Startup(frameSize uint32) (*RateConstraint, error) {
	if c == nil || c.rm == nil {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.format.Master() {
	case SND_SOC_DAIFMT_CBM_CFM, SND_SOC_DAIFMT_CBM_CFS:
		return c.masterConstraints(frameSize)
	case SND_SOC_DAIFMT_CBS_CFS:
	default:
		return nil, fmt.Errorf("%s: no clock provider role set: %w", c.opt.Name, ErrInvalidArgument)
	}

	if c.sysclk == 0 {
		c.log.Info("No SCK, using BCLK")

		ops := []RegOp{
			{PCM512x_ERROR_DETECT, PCM512x_IDCH, PCM512x_IDCH},
			{PCM512x_PLL_REF, PCM512x_SREF, PCM512x_SREF_BCK},
		}
		if err := c.rm.Exec(ops); err != nil {
			return nil, fmt.Errorf("%s: bclk reference: %w", c.opt.Name, err)
		}
	}

	return &RateConstraint{Rates: slices.Clone(PCM512xRates)}, nil
}

// MasterConstraints returns the rates the codec can generate as clock provider for frameSize bits.
func (c *PCM512x) MasterConstraints(frameSize uint32) (*RateConstraint, error) {
	if c == nil {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.masterConstraints(frameSize)
}

func (c *PCM512x) masterConstraints(frameSize uint32) (*RateConstraint, error) {
	if c.sysclk == 0 {
		return nil, fmt.Errorf("%s: provider mode needs SCK: %w", c.opt.Name, ErrRetryLater)
	}

	if c.opt.PLLOut == 0 {
		return &RateConstraint{Num: c.sysclk / 64, DenMin: 1, DenMax: DIVIDER_MAX}, nil
	}

	switch frameSize {
	case 32:
		return nil, nil
	case 48, 64:
		sckMax := c.overclock.SCKMax(true)

		return &RateConstraint{Ranges: []RateRange{
			{Min: 8000, Max: sckMax / uint64(frameSize) / 2},
			{Min: divRoundUp(SCK_MIN_HZ, uint64(frameSize)), Max: 384000},
		}}, nil
	default:
		return nil, fmt.Errorf("%s: frame size %d: %w", c.opt.Name, frameSize, ErrInvalidArgument)
	}
}

// HwParams programs sample width and, as clock provider, the whole clock tree for p.
// It returns the applied plan, nil in consumer mode.
func (c *PCM512x) HwParams(p HwParams) (*ClockPlan, error) {
	if c == nil || c.rm == nil {
		return nil, ErrClosed
	}

	var alen uint8
	switch p.Width {
	case 16:
		alen = PCM512x_ALEN_16
	case 20:
		alen = PCM512x_ALEN_20
	case 24:
		alen = PCM512x_ALEN_24
	case 32:
		alen = PCM512x_ALEN_32
	default:
		return nil, fmt.Errorf("%s: bad frame size %d: %w", c.opt.Name, p.Width, ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("Hw params", "rate", p.Rate, "width", p.Width, "channels", p.Channels)

	if err := c.rm.UpdateBits(PCM512x_I2S_1, PCM512x_ALEN, alen); err != nil {
		return nil, fmt.Errorf("%s: word length: %w", c.opt.Name, err)
	}

	if c.format.Master() == SND_SOC_DAIFMT_CBS_CFS {
		if err := c.rm.UpdateBits(PCM512x_ERROR_DETECT, PCM512x_DCAS, 0); err != nil {
			return nil, fmt.Errorf("%s: clock auto set: %w", c.opt.Name, err)
		}

		return nil, nil
	}

	req := ClockRequest{
		SampleRate: p.Rate,
		FrameBits:  p.FrameBits(),
		BCLKRatio:  c.bclkRatio,
		PLLIn:      c.opt.PLLIn,
		PLLOut:     c.opt.PLLOut,
	}

	plan, err := Resolve(req, ClockInputs{SysclkRate: c.sysclk, Overclock: c.overclock})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.opt.Name, err)
	}

	const detectMask = PCM512x_IDFS | PCM512x_IDBK | PCM512x_IDSK | PCM512x_IDCH | PCM512x_IDCM | PCM512x_DCAS | PCM512x_IPLK

	var ops []RegOp
	if req.PLLMode() {
		ops = append(ops,
			RegOp{Reg: PCM512x_FLEX_A, Val: 0x11},
			RegOp{Reg: PCM512x_FLEX_B, Val: 0xff},
			RegOp{PCM512x_ERROR_DETECT, detectMask, PCM512x_IDFS | PCM512x_IDBK | PCM512x_IDSK | PCM512x_IDCH | PCM512x_DCAS},
		)
	} else {
		ops = append(ops,
			RegOp{PCM512x_ERROR_DETECT, detectMask, PCM512x_IDFS | PCM512x_IDBK | PCM512x_IDSK | PCM512x_IDCH | PCM512x_DCAS | PCM512x_IPLK},
			RegOp{PCM512x_PLL_EN, PCM512x_PLLE, 0},
		)
	}

	ops = append(ops, plan.Ops()...)

	if req.PLLMode() {
		gpio := uint8(1) << (req.PLLOut - 1)
		ops = append(ops,
			RegOp{PCM512x_PLL_REF, PCM512x_SREF, PCM512x_SREF_GPIO},
			RegOp{PCM512x_GPIO_PLLIN, PCM512x_GREF, PCM512x_GREF_GPIO1 + req.PLLIn - 1},
			RegOp{PCM512x_PLL_EN, PCM512x_PLLE, PCM512x_PLLE},
			RegOp{PCM512x_GPIO_EN, gpio, gpio},
			RegOp{PCM512x_GPIO_OUTPUT_1 + Reg(req.PLLOut-1), PCM512x_GxSL, PCM512x_GxSL_PLLCK},
		)
	}

	ops = append(ops,
		RegOp{PCM512x_SYNCHRONIZE, PCM512x_RQSY, PCM512x_RQSY_HALT},
		RegOp{PCM512x_SYNCHRONIZE, PCM512x_RQSY, PCM512x_RQSY_RESUME},
	)

	if err := c.rm.Exec(ops); err != nil {
		return nil, fmt.Errorf("%s: apply clock plan: %w", c.opt.Name, err)
	}

	c.log.Debug("Clock plan applied", "sck", plan.SCKRate, "sample_rate", plan.SampleRate, "dividers", plan.Dividers.String())

	c.plan = plan
	c.obs.DividersApplied(c.opt.Name, plan)

	return plan, nil
}

// Plan returns the last applied clock plan, nil before the first HwParams in provider mode.
func (c *PCM512x) Plan() *ClockPlan {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.plan
}

// MuteStream mutes or unmutes playback and waits for the analog mute state to follow.
// A mute state that does not settle is logged and reported to the observer, not returned.
func (c *PCM512x) MuteStream(ctx context.Context, mute bool) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if mute {
		c.mute |= muteStream
		if err := c.updateMute(); err != nil {
			return fmt.Errorf("%s: mute: %w", c.opt.Name, err)
		}

		c.waitMute(ctx, func(v uint8) bool { return v&0x3 == 0 })

		if c.opt.MutePin != nil && c.opt.AutoMute {
			if err := c.opt.MutePin.Set(false); err != nil {
				return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
			}
		}

		return nil
	}

	if c.opt.MutePin != nil && c.opt.AutoMute {
		if err := c.opt.MutePin.Set(true); err != nil {
			return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
		}
	}

	c.mute &^= muteStream
	if err := c.updateMute(); err != nil {
		return fmt.Errorf("%s: unmute: %w", c.opt.Name, err)
	}

	want := (^c.mute >> 1) & 0x3
	c.waitMute(ctx, func(v uint8) bool { return v&0x3 == want })

	return nil
}

func (c *PCM512x) waitMute(ctx context.Context, cond func(uint8) bool) {
	_, err := c.rm.Poll(ctx, PCM512x_ANALOG_MUTE_DET, cond, PCM512x_MUTE_POLL_INTERVAL, PCM512x_MUTE_POLL_TIMEOUT)
	if err != nil {
		c.log.Warn("Failed to update digital mute", "error", err)
		c.obs.MuteTimeout(c.opt.Name)
	}
}

func (c *PCM512x) updateMute() error {
	var val uint8
	if c.mute&(muteStream|muteLeft) != 0 {
		val |= PCM512x_RQML
	}
	if c.mute&(muteStream|muteRight) != 0 {
		val |= PCM512x_RQMR
	}

	return c.rm.UpdateBits(PCM512x_MUTE, PCM512x_RQML|PCM512x_RQMR, val)
}

// DigitalMute reports the Digital Playback Switch state; true means the channel plays.
func (c *PCM512x) DigitalMute() (left, right bool) {
	if c == nil {
		return false, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mute&muteLeft == 0, c.mute&muteRight == 0
}

// SetDigitalMute sets the Digital Playback Switch; true lets the channel play.
// It reports whether the state changed.
func (c *PCM512x) SetDigitalMute(left, right bool) (bool, error) {
	if c == nil || c.rm == nil {
		return false, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	if (c.mute&muteLeft != 0) == left {
		c.mute ^= muteLeft
		changed = true
	}
	if (c.mute&muteRight != 0) == right {
		c.mute ^= muteRight
		changed = true
	}

	if changed {
		if err := c.updateMute(); err != nil {
			return false, fmt.Errorf("%s: playback switch: %w", c.opt.Name, err)
		}
	}

	return changed, nil
}

// SetBiasLevel moves the codec between power states.
func (c *PCM512x) SetBiasLevel(level BiasLevel) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opt.DisableStandby {
		switch level {
		case BiasStandby:
			if c.bias == BiasOff {
				if err := c.rm.UpdateBits(PCM512x_POWER, PCM512x_RQST, 0); err != nil {
					return fmt.Errorf("%s: remove standby: %w", c.opt.Name, err)
				}
			}
		case BiasOff:
			if err := c.rm.UpdateBits(PCM512x_POWER, PCM512x_RQST, PCM512x_RQST); err != nil {
				return fmt.Errorf("%s: request standby: %w", c.opt.Name, err)
			}
		}
	}

	if c.bias != level {
		c.log.Debug("Bias level", "from", c.bias, "to", level)
		c.bias = level
		c.obs.BiasChanged(c.opt.Name, level)
	}

	return nil
}

// BiasLevel returns the current power state.
func (c *PCM512x) BiasLevel() BiasLevel {
	if c == nil {
		return BiasOff
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bias
}

// Suspend powers the codec down.
func (c *PCM512x) Suspend() error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	if c.opt.DisablePowerdown {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opt.MutePin != nil && !c.opt.AutoMute {
		if err := c.opt.MutePin.Set(false); err != nil {
			return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
		}
	}

	if err := c.rm.UpdateBits(PCM512x_POWER, PCM512x_RQPD, PCM512x_RQPD); err != nil {
		return fmt.Errorf("%s: power down: %w", c.opt.Name, err)
	}

	return nil
}

// Resume restores the cached registers and powers the codec up.
func (c *PCM512x) Resume() error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	if c.opt.DisablePowerdown {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.rm.Sync(); err != nil {
		return fmt.Errorf("%s: sync cache: %w", c.opt.Name, err)
	}

	if err := c.rm.UpdateBits(PCM512x_POWER, PCM512x_RQPD, 0); err != nil {
		return fmt.Errorf("%s: power up: %w", c.opt.Name, err)
	}

	if c.opt.MutePin != nil && !c.opt.AutoMute {
		if err := c.opt.MutePin.Set(true); err != nil {
			return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
		}
	}

	return nil
}

// Overclock returns the current overclock percentages.
func (c *PCM512x) Overclock() Overclock {
	if c == nil {
		return Overclock{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.overclock
}

// SetOverclock changes the overclock percentages.
// The codec must be off or in standby.
func (c *PCM512x) SetOverclock(o Overclock) error {
	if c == nil {
		return ErrClosed
	}

	if o.PLL > PCM512x_OVERCLOCK_PLL_MAX || o.DSP > PCM512x_OVERCLOCK_DSP_MAX || o.DAC > PCM512x_OVERCLOCK_DAC_MAX {
		return fmt.Errorf("%s: overclock %d/%d/%d: %w", c.opt.Name, o.PLL, o.DSP, o.DAC, ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bias != BiasOff && c.bias != BiasStandby {
		return fmt.Errorf("%s: overclock while %s: %w", c.opt.Name, c.bias, ErrBusy)
	}

	c.overclock = o

	return nil
}

// Controls returns the runtime controls of the codec.
func (c *PCM512x) Controls() *Controls {
	if c == nil {
		return nil
	}

	return c.controls
}
