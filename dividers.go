package hifiberry

import (
	"fmt"
	"strings"
)

// DACSource is the clock the DAC divider runs from.
type DACSource int

const (
	// DACSourceSCK derives the DAC clock from SCK.
	DACSourceSCK DACSource = iota
	// DACSourceGPIO takes the PLL reference straight from its GPIO, bypassing PLL jitter.
	DACSourceGPIO
)

// String implements fmt.Stringer.
func (s DACSource) String() string {
	if s == DACSourceGPIO {
		return "gpio"
	}

	return "sck"
}

// ClockRequest describes the stream a codec in master mode must clock.
type ClockRequest struct {
	SampleRate uint64
	// FrameBits is channels times sample width.
	FrameBits uint32
	// BCLKRatio overrides FrameBits as the LRCLK divider when set.
	BCLKRatio uint32
	// PLLIn and PLLOut are the GPIO (1-6) carrying the PLL reference and output.
	// Both zero selects the no-PLL mode.
	PLLIn  uint8
	PLLOut uint8
}

// PLLMode reports whether the PLL synthesizes SCK.
func (r ClockRequest) PLLMode() bool {
	return r.PLLOut != 0
}

// Validate checks ratio and GPIO assignments.
func (r ClockRequest) Validate() error {
	if r.BCLKRatio > BCLK_RATIO_MAX {
		return fmt.Errorf("bclk ratio %d: %w", r.BCLKRatio, ErrInvalidArgument)
	}

	return validatePLLGPIO(r.PLLIn, r.PLLOut)
}

func validatePLLGPIO(in, out uint8) error {
	switch {
	case in > 6 || out > 6:
		return fmt.Errorf("pll gpio in=%d out=%d out of range 1-6: %w", in, out, ErrInvalidArgument)
	case (in == 0) != (out == 0):
		return fmt.Errorf("pll-in and pll-out must both be set: %w", ErrInvalidArgument)
	case in != 0 && in == out:
		return fmt.Errorf("pll-in and pll-out are both gpio %d: %w", in, ErrInvalidArgument)
	}

	return nil
}

// ClockInputs is the persistent codec state the resolver reads.
type ClockInputs struct {
	// SysclkRate is the external clock: SCK without PLL, the PLL reference with it.
	SysclkRate uint64
	Overclock  Overclock
}

// DividerSet holds the divider values of one negotiation. Registers store each divider minus one.
type DividerSet struct {
	DSP   uint32
	DAC   uint32
	NCP   uint32
	OSR   uint32
	BCLK  uint32
	LRCLK uint32
	IDAC  uint32
	FSSP  uint8
}

// String returns a human-readable representation of the dividers.
func (d DividerSet) String() string {
	return fmt.Sprintf("dsp=%d dac=%d ncp=%d osr=%d bclk=%d lrclk=%d idac=%d fssp=%d",
		d.DSP, d.DAC, d.NCP, d.OSR, d.BCLK, d.LRCLK, d.IDAC, d.FSSP)
}

// ClockPlan is the resolved clock tree for a request.
type ClockPlan struct {
	Request ClockRequest

	SCKRate    uint64
	MCKRate    uint64
	BCLKRate   uint64
	PLLInRate  uint64
	SampleRate uint64
	OSRRate    uint64
	DACRate    uint64
	DACSource  DACSource

	// PLL is nil in no-PLL mode.
	PLL      *PLLCoefficients
	Dividers DividerSet
}

// Ops returns the register steps applying the plan, PLL coefficients first.
// The halt/resume pulse latching them is not included.
func (p *ClockPlan) Ops() []RegOp {
	ops := make([]RegOp, 0, 18)

	if p.PLL != nil {
		for _, w := range p.PLL.Writes() {
			ops = append(ops, RegOp{Reg: w.Reg, Val: w.Val})
		}
	}

	if p.DACSource == DACSourceGPIO {
		ops = append(ops,
			RegOp{PCM512x_DAC_REF, PCM512x_SDAC, PCM512x_SDAC_GPIO},
			RegOp{PCM512x_GPIO_DACIN, PCM512x_GREF, PCM512x_GREF_GPIO1 + p.Request.PLLIn - 1},
		)
	} else {
		ops = append(ops, RegOp{PCM512x_DAC_REF, PCM512x_SDAC, PCM512x_SDAC_SCK})
	}

	d := p.Dividers
	ops = append(ops,
		RegOp{Reg: PCM512x_DSP_CLKDIV, Val: uint8(d.DSP - 1)},
		RegOp{Reg: PCM512x_DAC_CLKDIV, Val: uint8(d.DAC - 1)},
		RegOp{Reg: PCM512x_NCP_CLKDIV, Val: uint8(d.NCP - 1)},
		RegOp{Reg: PCM512x_OSR_CLKDIV, Val: uint8(d.OSR - 1)},
		RegOp{Reg: PCM512x_MASTER_CLKDIV_1, Val: uint8(d.BCLK - 1)},
		RegOp{Reg: PCM512x_MASTER_CLKDIV_2, Val: uint8(d.LRCLK - 1)},
		RegOp{Reg: PCM512x_IDAC_1, Val: uint8(d.IDAC >> 8)},
		RegOp{Reg: PCM512x_IDAC_2, Val: uint8(d.IDAC & 0xff)},
		RegOp{PCM512x_FS_SPEED_MODE, PCM512x_FSSP, d.FSSP},
	)

	return ops
}

// String returns a multi-line summary of the plan.
func (p *ClockPlan) String() string {
	var b strings.Builder

	mode := "sysclk"
	if p.PLL != nil {
		mode = "pll"
	}

	fmt.Fprintf(&b, "mode:     %s\n", mode)
	fmt.Fprintf(&b, "sck:      %d Hz\n", p.SCKRate)
	fmt.Fprintf(&b, "mck:      %d Hz\n", p.MCKRate)
	fmt.Fprintf(&b, "bclk:     %d Hz\n", p.BCLKRate)
	fmt.Fprintf(&b, "sample:   %d Hz\n", p.SampleRate)
	fmt.Fprintf(&b, "dac:      %d Hz from %s\n", p.DACRate, p.DACSource)
	if p.PLL != nil {
		fmt.Fprintf(&b, "pll:      %s\n", p.PLL)
	}
	fmt.Fprintf(&b, "dividers: %s\n", p.Dividers)

	return b.String()
}

// Resolve computes the clock tree for req in master mode.
// It never touches hardware; every stage failing returns a *StageError.
func Resolve(req ClockRequest, in ClockInputs) (*ClockPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate 0: %w", ErrInvalidArgument)
	}

	log := logger()
	oc := in.Overclock
	plan := &ClockPlan{Request: req}

	lrclk := uint64(req.BCLKRatio)
	if lrclk == 0 {
		lrclk = uint64(req.FrameBits)
		if lrclk == 0 {
			return nil, stageErr(StageLRCLK, "%w: no lrclk", ErrInvalidArgument)
		}
	}

	var bclkDiv uint64
	if !req.PLLMode() {
		if in.SysclkRate == 0 {
			return nil, stageErr(StageSCK, "%w: no system clock", ErrInvalidArgument)
		}

		plan.SCKRate = in.SysclkRate
		plan.BCLKRate = req.SampleRate * lrclk
		bclkDiv = divRoundClosest(plan.SCKRate, plan.BCLKRate)
		plan.MCKRate = plan.SCKRate
	} else {
		if req.FrameBits == 0 {
			return nil, stageErr(StageBCLKDivider, "%w: no bclk", ErrInvalidArgument)
		}

		if in.SysclkRate == 0 {
			return nil, stageErr(StageSCK, "%w: no pll reference clock", ErrInvalidArgument)
		}

		plan.BCLKRate = req.SampleRate * uint64(req.FrameBits)
		plan.PLLInRate = in.SysclkRate

		sck, ok := FindSCK(plan.BCLKRate, oc.PLLMax())
		if !ok {
			return nil, stageErr(StageSCK, "%w: no sck for bclk %d Hz", ErrUnsatisfiable, plan.BCLKRate)
		}
		plan.SCKRate = sck

		coeff, err := SolvePLL(plan.PLLInRate, 4*sck)
		if err != nil {
			return nil, err
		}
		plan.PLL = &coeff

		plan.MCKRate = coeff.RealRate
		bclkDiv = divRoundClosest(plan.SCKRate, plan.BCLKRate)
	}

	if bclkDiv == 0 || bclkDiv > DIVIDER_MAX {
		return nil, stageErr(StageBCLKDivider, "%w: bclk divider %d", ErrUnsatisfiable, bclkDiv)
	}

	plan.SampleRate = plan.SCKRate / bclkDiv / lrclk
	if plan.SampleRate == 0 {
		return nil, stageErr(StageLRCLK, "%w: lrclk divider %d leaves no sample rate", ErrUnsatisfiable, lrclk)
	}
	plan.OSRRate = 16 * plan.SampleRate

	dspDiv := uint64(1)
	if plan.MCKRate > oc.DSPMax() {
		dspDiv = 2
	}

	var dacsrc uint64
	if dac := pllinDACRate(req, oc, plan.OSRRate, plan.PLLInRate); dac != 0 {
		log.Debug("Using pll input as dac input", "dac", dac, "pllin", plan.PLLInRate)

		plan.DACRate = dac
		plan.DACSource = DACSourceGPIO
		dacsrc = plan.PLLInRate
	} else {
		dacMul := oc.DACMax(DAC_MAX_HZ) / plan.OSRRate
		sckMul := plan.SCKRate / plan.OSRRate

		for ; dacMul > 0; dacMul-- {
			if sckMul%dacMul == 0 {
				break
			}
		}

		if dacMul == 0 {
			return nil, stageErr(StageDACRate, "%w: no dac rate for osr %d Hz", ErrUnsatisfiable, plan.OSRRate)
		}

		plan.DACRate = dacMul * plan.OSRRate
		plan.DACSource = DACSourceSCK
		dacsrc = plan.SCKRate
	}

	osrDiv := divRoundClosest(plan.DACRate, plan.OSRRate)
	if osrDiv > DIVIDER_MAX {
		return nil, stageErr(StageOSRDivider, "%w: osr divider %d", ErrUnsatisfiable, osrDiv)
	}

	dacDiv := divRoundClosest(dacsrc, plan.DACRate)
	if dacDiv == 0 || dacDiv > DIVIDER_MAX {
		return nil, stageErr(StageDACDivider, "%w: dac divider %d", ErrUnsatisfiable, dacDiv)
	}
	plan.DACRate = dacsrc / dacDiv

	ncpDiv := divRoundClosest(plan.DACRate, oc.NCPTarget(plan.DACRate))
	if ncpDiv == 0 || ncpDiv > DIVIDER_MAX || plan.DACRate/ncpDiv > NCP_MAX_HZ {
		// run NCP no faster than 2048000 Hz
		ncpDiv = divRoundUp(plan.DACRate, NCP_MAX_HZ)
		if ncpDiv > DIVIDER_MAX {
			return nil, stageErr(StageNCPDivider, "%w: ncp divider %d", ErrUnsatisfiable, ncpDiv)
		}
	}

	plan.Dividers = DividerSet{
		DSP:   uint32(dspDiv),
		DAC:   uint32(dacDiv),
		NCP:   uint32(ncpDiv),
		OSR:   uint32(osrDiv),
		BCLK:  uint32(bclkDiv),
		LRCLK: uint32(lrclk),
		IDAC:  uint32(plan.MCKRate / (dspDiv * plan.SampleRate)),
		FSSP:  oc.FSSP(plan.SampleRate),
	}

	log.Debug("Resolved dividers", "sample", plan.SampleRate, "sck", plan.SCKRate, "dividers", plan.Dividers.String())

	return plan, nil
}

// pllinDACRate returns a DAC rate dividing the PLL reference evenly, or 0 when
// the DAC has to run from SCK.
func pllinDACRate(req ClockRequest, oc Overclock, osr, pllin uint64) uint64 {
	if !req.PLLMode() || pllin == 0 {
		return 0
	}

	if pllin%osr != 0 {
		return 0
	}

	for dac := roundDown(oc.DACMax(DAC_MAX_HZ), osr); dac > 0; dac -= osr {
		if pllin/dac > DIVIDER_MAX {
			return 0
		}

		if pllin%dac == 0 {
			return dac
		}
	}

	return 0
}
