package hifiberry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/hifiberry/internal/logging"
)

// PCM1796 registers.
const (
	PCM1796_REG16 Reg = 16 // left attenuation
	PCM1796_REG17 Reg = 17 // right attenuation
	PCM1796_REG18 Reg = 18
	PCM1796_REG19 Reg = 19
	PCM1796_REG20 Reg = 20
	PCM1796_REG21 Reg = 21
	PCM1796_REG22 Reg = 22 // zero flags, read only
	PCM1796_REG23 Reg = 23 // device id, read only
)

// Register 18 bits.
const (
	PCM1796_ATLD       = 1 << 7
	PCM1796_FMT        = 7 << 4
	PCM1796_FMT_RJ16   = 0 << 4
	PCM1796_FMT_RJ20   = 1 << 4
	PCM1796_FMT_RJ24   = 2 << 4
	PCM1796_FMT_LJ24   = 3 << 4
	PCM1796_FMT_I2S16  = 4 << 4
	PCM1796_FMT_I2S24  = 5 << 4
	PCM1796_DMF        = 3 << 2
	PCM1796_DMF_SHIFT  = 2
	PCM1796_DME        = 1 << 1
	PCM1796_MUTE       = 1 << 0
	PCM1796_REV        = 1 << 7
	PCM1796_ATS        = 3 << 5
	PCM1796_ATS_SHIFT  = 5
	PCM1796_OPE        = 1 << 4 // set disables the outputs
	PCM1796_DFMS       = 1 << 2
	PCM1796_FLT        = 1 << 1
	PCM1796_INZD       = 1 << 0
	PCM1796_SRST       = 1 << 6
	PCM1796_DSD        = 1 << 5
	PCM1796_DFTH       = 1 << 4
	PCM1796_MONO       = 1 << 3
	PCM1796_CHSL       = 1 << 2
	PCM1796_OS         = 3 << 0
	PCM1796_OS_64      = 0
	PCM1796_OS_32      = 1
	PCM1796_OS_128     = 2
	PCM1796_ID         = 0x1f
	PCM1796_VOLUME_MIN = 0x0f
	PCM1796_VOLUME_MAX = 0xff
)

// PCM1796_MAX_SYSCLK is the highest system clock the codec accepts.
const PCM1796_MAX_SYSCLK = 36864000

var pcm1796Defaults = []RegVal{
	{PCM1796_REG16, 0xff},
	{PCM1796_REG17, 0xff},
	{PCM1796_REG18, 0x50},
	{PCM1796_REG19, 0x00},
	{PCM1796_REG20, 0x00},
	{PCM1796_REG21, 0x01},
}

// PCM1796RegmapConfig returns the register layout of the codec.
func PCM1796RegmapConfig() RegmapConfig {
	return RegmapConfig{
		Name:     "pcm1796",
		Cache:    true,
		Defaults: pcm1796Defaults,
		Volatile: func(r Reg) bool { return r == PCM1796_REG22 || r == PCM1796_REG23 },
	}
}

// Clock is a rate-settable clock source.
type Clock interface {
	SetRate(rate uint64) error
	Rate() uint64
}

// PCM1796Options configure a PCM1796 codec.
type PCM1796Options struct {
	// Name is used in logs. Defaults to "pcm1796".
	Name string
	// SCLK is the clock feeding the codec system clock input.
	SCLK Clock
	// ResetPin is the active-low reset line, pulsed at probe when set.
	ResetPin OutputPin
	// MutePin is an external mute line. High unmutes.
	MutePin OutputPin
	// AutoMute drives MutePin together with the stream mute instead of once at probe.
	AutoMute bool
	// Sleep replaces time.Sleep, used by tests.
	Sleep func(time.Duration)
}

// PCM1796 is a PCM1796 codec, the DAC of the DAC2 HD.
type PCM1796 struct {
	mu    sync.Mutex
	rm    *Regmap
	opt   PCM1796Options
	sleep func(time.Duration)
	log   *slog.Logger

	format   DAIFormat
	sysclk   uint64
	muted    bool
	controls *Controls
}

// NewPCM1796 creates a codec on rm. Call Probe before use.
func NewPCM1796(rm *Regmap, opt PCM1796Options) *PCM1796 {
	if opt.Name == "" {
		opt.Name = "pcm1796"
	}

	c := &PCM1796{
		rm:    rm,
		opt:   opt,
		sleep: opt.Sleep,
		log:   logging.GetLogger("pcm1796").With("device", opt.Name),
		muted: true,
	}

	if c.sleep == nil {
		c.sleep = time.Sleep
	}

	c.controls = newPCM1796Controls(c)

	return c
}

// Name returns the device name.
func (c *PCM1796) Name() string {
	if c == nil {
		return ""
	}

	return c.opt.Name
}

// Regmap returns the register map of the codec.
func (c *PCM1796) Regmap() *Regmap {
	if c == nil {
		return nil
	}

	return c.rm
}

// Probe resets the codec, waits 1024 system clocks and leaves it muted with outputs disabled.
func (c *PCM1796) Probe() error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opt.ResetPin != nil {
		if err := c.opt.ResetPin.Set(false); err != nil {
			return fmt.Errorf("%s: reset gpio: %w", c.opt.Name, err)
		}
		c.sleep(time.Microsecond)

		if err := c.opt.ResetPin.Set(true); err != nil {
			return fmt.Errorf("%s: reset gpio: %w", c.opt.Name, err)
		}
	}

	if c.opt.SCLK != nil {
		if rate := c.opt.SCLK.Rate(); rate != 0 {
			c.sleep(time.Duration(divRoundUp(1024_000_000, rate)) * time.Microsecond)
		}
	}

	ops := []RegOp{
		{PCM1796_REG18, PCM1796_ATLD, PCM1796_ATLD},
		{PCM1796_REG18, PCM1796_MUTE, PCM1796_MUTE},
		{PCM1796_REG19, PCM1796_OPE, PCM1796_OPE},
	}
	if err := c.rm.Exec(ops); err != nil {
		return fmt.Errorf("%s: init: %w", c.opt.Name, err)
	}
	c.muted = true

	if c.opt.MutePin == nil {
		c.opt.AutoMute = false
	}

	if c.opt.MutePin != nil && !c.opt.AutoMute {
		if err := c.opt.MutePin.Set(true); err != nil {
			return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
		}
	}

	if id, err := c.rm.Read(PCM1796_REG23); err == nil {
		c.log.Debug("Probed", "id", id&PCM1796_ID)
	}

	return nil
}

// SetFormat records the interface format; it is applied by HwParams.
func (c *PCM1796) SetFormat(f DAIFormat) error {
	if c == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.format = f

	return nil
}

// SetSysclk sets the system clock to hz through SCLK. Zero is ignored.
func (c *PCM1796) SetSysclk(hz uint64) error {
	if c == nil {
		return ErrClosed
	}

	if hz > PCM1796_MAX_SYSCLK {
		return fmt.Errorf("%s: sysclk %d above %d: %w", c.opt.Name, hz, PCM1796_MAX_SYSCLK, ErrInvalidArgument)
	}

	if hz == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opt.SCLK != nil {
		if err := c.opt.SCLK.SetRate(hz); err != nil {
			return fmt.Errorf("%s: sclk: %w", c.opt.Name, err)
		}
	}
	c.sysclk = hz

	return nil
}

// Sysclk returns the last accepted system clock.
func (c *PCM1796) Sysclk() uint64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sysclk
}

// HwParams selects the audio format for samples of width significant bits.
// Only right-justified and I2S framing are supported.
func (c *PCM1796) HwParams(width uint32) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var fmtVal uint8
	switch c.format.Format() {
	case SND_SOC_DAIFMT_RIGHT_J:
		switch width {
		case 24, 32:
			fmtVal = PCM1796_FMT_RJ24
		case 16:
			fmtVal = PCM1796_FMT_RJ16
		default:
			return fmt.Errorf("%s: bad frame size %d: %w", c.opt.Name, width, ErrInvalidArgument)
		}
	case SND_SOC_DAIFMT_I2S:
		switch width {
		case 24, 32:
			fmtVal = PCM1796_FMT_I2S24
		case 16:
			fmtVal = PCM1796_FMT_I2S16
		default:
			return fmt.Errorf("%s: bad frame size %d: %w", c.opt.Name, width, ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%s: unsupported dai format %s: %w", c.opt.Name, c.format.Format(), ErrInvalidArgument)
	}

	if err := c.rm.UpdateBits(PCM1796_REG18, PCM1796_FMT|PCM1796_ATLD, fmtVal|PCM1796_ATLD); err != nil {
		return fmt.Errorf("%s: format: %w", c.opt.Name, err)
	}

	return nil
}

// Oversampling returns the REG20 oversampling setting for rate.
func Oversampling(rate uint64) uint8 {
	switch {
	case rate > 96000:
		return PCM1796_OS_32
	case rate > 48000:
		return PCM1796_OS_64
	default:
		return PCM1796_OS_128
	}
}

// SetOversampling selects the delta-sigma oversampling rate for a stream at rate.
func (c *PCM1796) SetOversampling(rate uint64) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.rm.UpdateBits(PCM1796_REG20, PCM1796_OS, Oversampling(rate)); err != nil {
		return fmt.Errorf("%s: oversampling: %w", c.opt.Name, err)
	}

	return nil
}

// MuteStream mutes or unmutes the outputs, with the external mute line
// switched outside the digital mute.
func (c *PCM1796) MuteStream(mute bool) error {
	if c == nil || c.rm == nil {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.muteStream(mute)
}

func (c *PCM1796) muteStream(mute bool) error {
	auto := c.opt.AutoMute && c.opt.MutePin != nil

	if !mute {
		if auto {
			if err := c.opt.MutePin.Set(true); err != nil {
				return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
			}
		}

		if err := c.rm.UpdateBits(PCM1796_REG19, PCM1796_OPE, 0); err != nil {
			return fmt.Errorf("%s: enable outputs: %w", c.opt.Name, err)
		}
	}

	var val uint8
	if mute {
		val = PCM1796_MUTE
	}
	if err := c.rm.UpdateBits(PCM1796_REG18, PCM1796_MUTE, val); err != nil {
		return fmt.Errorf("%s: mute: %w", c.opt.Name, err)
	}
	c.muted = mute

	if mute {
		if err := c.rm.UpdateBits(PCM1796_REG19, PCM1796_OPE, PCM1796_OPE); err != nil {
			return fmt.Errorf("%s: disable outputs: %w", c.opt.Name, err)
		}

		if auto {
			if err := c.opt.MutePin.Set(false); err != nil {
				return fmt.Errorf("%s: mute gpio: %w", c.opt.Name, err)
			}
		}
	}

	return nil
}

// Muted reports whether the digital mute is engaged.
func (c *PCM1796) Muted() bool {
	if c == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.muted
}

// Controls returns the runtime controls of the codec.
func (c *PCM1796) Controls() *Controls {
	if c == nil {
		return nil
	}

	return c.controls
}

func newPCM1796Controls(c *PCM1796) *Controls {
	field := func(name string, reg Reg, mask uint8, shift uint, items ...string) *Control {
		ctl := &Control{
			name:   name,
			typ:    ControlEnumerated,
			max:    len(items) - 1,
			values: 1,
			items:  items,
			get: func() []int {
				v, err := c.rm.Read(reg)
				if err != nil {
					return []int{0}
				}

				return []int{int(v&mask) >> shift}
			},
			put: func(v []int) (bool, error) {
				c.mu.Lock()
				defer c.mu.Unlock()

				old, err := c.rm.Read(reg)
				if err != nil {
					return false, err
				}

				val := uint8(v[0]) << shift
				if err := c.rm.UpdateBits(reg, mask, val); err != nil {
					return false, fmt.Errorf("%s: %s: %w", c.opt.Name, name, err)
				}

				return old&mask != val, nil
			},
		}

		if items == nil {
			ctl.typ = ControlBoolean
			ctl.max = 1
		}

		return ctl
	}

	volume := &Control{
		name:   "Digital Playback Volume",
		typ:    ControlInteger,
		max:    PCM1796_VOLUME_MAX - PCM1796_VOLUME_MIN,
		values: 2,
		get: func() []int {
			l, errl := c.rm.Read(PCM1796_REG16)
			r, errr := c.rm.Read(PCM1796_REG17)
			if errl != nil || errr != nil {
				return []int{0, 0}
			}

			return []int{max(int(l)-PCM1796_VOLUME_MIN, 0), max(int(r)-PCM1796_VOLUME_MIN, 0)}
		},
		put: func(v []int) (bool, error) {
			left, _ := c.rm.Read(PCM1796_REG16)
			right, _ := c.rm.Read(PCM1796_REG17)

			ops := []RegOp{
				{Reg: PCM1796_REG16, Val: uint8(v[0] + PCM1796_VOLUME_MIN)},
				{Reg: PCM1796_REG17, Val: uint8(v[1] + PCM1796_VOLUME_MIN)},
			}
			if err := c.rm.Exec(ops); err != nil {
				return false, fmt.Errorf("%s: volume: %w", c.opt.Name, err)
			}

			return left != ops[0].Val || right != ops[1].Val, nil
		},
	}

	playback := &Control{
		name:   "Digital Playback Switch",
		typ:    ControlBoolean,
		max:    1,
		values: 1,
		get:    func() []int { return []int{boolInt(!c.Muted())} },
		put: func(v []int) (bool, error) {
			c.mu.Lock()
			defer c.mu.Unlock()

			mute := v[0] == 0
			if mute == c.muted {
				return false, nil
			}

			return true, c.muteStream(mute)
		},
	}

	return newControls(
		volume,
		playback,
		field("Phase", PCM1796_REG19, PCM1796_REV, 7, "Normal", "Invert"),
		field("Filter", PCM1796_REG19, PCM1796_FLT, 1, "Sharp Roll-Off", "Slow Roll-Off"),
		field("De-Em", PCM1796_REG18, PCM1796_DME, 1),
		field("De-Em Fq", PCM1796_REG18, PCM1796_DMF, PCM1796_DMF_SHIFT, "Disabled", "48kHz", "44.1kHz", "32kHz"),
		field("Atten Rate", PCM1796_REG19, PCM1796_ATS, PCM1796_ATS_SHIFT, "LRCK", "LRCK/2", "LRCK/4", "LRCK/8"),
		field("InfZeroDetectMute", PCM1796_REG19, PCM1796_INZD, 0, "Disable", "Enable"),
	)
}
