package hifiberry

import (
	"fmt"
	"log/slog"
)

// PLLCoefficients describe pll = pllin * R * J.D / P.
//
//	1 <= R <= 16, 1 <= J <= 63, 0 <= D <= 9999, 1 <= P <= 15
//	D == 0: 1 MHz <= pllin/P <= 20 MHz
//	D >  0: 6.667 MHz <= pllin/P <= 20 MHz, R == 1
type PLLCoefficients struct {
	R, J, D, P uint32
	// RealRate is the PLL output actually produced. It equals the requested rate unless Approximate.
	RealRate uint64
	// Approximate is set when no exact solution exists and K was rounded.
	Approximate bool
}

// String returns a human-readable representation of the coefficients.
func (c PLLCoefficients) String() string {
	approx := ""
	if c.Approximate {
		approx = "~"
	}

	return fmt.Sprintf("R=%d J.D=%d.%04d P=%d %s%d Hz", c.R, c.J, c.D, c.P, approx, c.RealRate)
}

// Writes returns the coefficient register writes, stored as P-1, J, D msb, D lsb, R-1.
func (c PLLCoefficients) Writes() []RegVal {
	return []RegVal{
		{PCM512x_PLL_COEFF_0, uint8(c.P - 1)},
		{PCM512x_PLL_COEFF_1, uint8(c.J)},
		{PCM512x_PLL_COEFF_2, uint8(c.D >> 8)},
		{PCM512x_PLL_COEFF_3, uint8(c.D & 0xff)},
		{PCM512x_PLL_COEFF_4, uint8(c.R - 1)},
	}
}

// SolvePLL finds coefficients turning pllin into pll.
// An exact solution with D == 0 is preferred, then an exact one with D > 0, and
// otherwise the closest reachable rate is returned with Approximate set.
// It fails only when pllin cannot feed the PLL at all.
func SolvePLL(pllin, pll uint64) (PLLCoefficients, error) {
	if pllin == 0 || pll == 0 {
		return PLLCoefficients{}, stageErr(StagePLLCoefficients, "%w: pllin=%d pll=%d", ErrInvalidArgument, pllin, pll)
	}

	log := logger()

	common := gcd(pll, pllin)
	num := pll / common
	den := pllin / common

	// pllin / P cannot be greater than 20 MHz
	if pllin/den > PLL_IN_MAX_HZ && num < 8 {
		scale := divRoundUp(pllin/den, PLL_IN_MAX_HZ)
		num *= scale
		den *= scale
	}

	log.Debug("Solving PLL", "pllin", pllin, "pll", pll, "num", num, "den", den)

	if den <= 15 && num <= 16*63 && PLL_IN_MIN_HZ <= pllin/den && pllin/den <= PLL_IN_MAX_HZ {
		// factor num into R and J, largest R first
		for r := uint64(16); r > 0; r-- {
			if num%r != 0 {
				continue
			}

			j := num / r
			if j == 0 || j > 63 {
				continue
			}

			return PLLCoefficients{R: uint32(r), J: uint32(j), D: 0, P: uint32(den), RealRate: pll}, nil
		}
	}

	if num <= 0xffffffff/10000 {
		if c, ok := solveFractional(pllin, pll, num, den); ok {
			return c, nil
		}
	}

	return solveApproximate(log, pllin, pll)
}

// solveFractional searches an exact J.D with R == 1.
func solveFractional(pllin, pll, num, den uint64) (PLLCoefficients, bool) {
	common := gcd(10000*num, den)
	num = 10000 * num / common
	den /= common

	for p := den; p <= 15; p++ {
		// 200 MHz is the bound the hardware driver checks; it never binds below 20 MHz inputs
		if pllin/p < PLL_IN_FRAC_MIN || 200000000 < pllin/p {
			continue
		}

		if num*p%den != 0 {
			continue
		}

		// J == 12 is only valid with D == 0
		k := num * p / den
		if k < 40000 || k > 120000 {
			continue
		}

		return PLLCoefficients{R: 1, J: uint32(k / 10000), D: uint32(k % 10000), P: uint32(p), RealRate: pll}, true
	}

	return PLLCoefficients{}, false
}

func solveApproximate(log *slog.Logger, pllin, pll uint64) (PLLCoefficients, error) {
	p := divRoundUp(pllin, PLL_IN_MAX_HZ)
	if p == 0 {
		p = 1
	}

	if p > 15 {
		return PLLCoefficients{}, stageErr(StagePLLCoefficients, "%w: pll input %d Hz too fast", ErrUnsatisfiable, pllin)
	}

	if pllin/p < PLL_IN_FRAC_MIN {
		return PLLCoefficients{}, stageErr(StagePLLCoefficients, "%w: pll input %d Hz too slow", ErrUnsatisfiable, pllin)
	}

	k := divRoundClosest(10000*pll*p, pllin)
	k = max(k, 40000)
	k = min(k, 120000)

	c := PLLCoefficients{
		R:           1,
		J:           uint32(k / 10000),
		D:           uint32(k % 10000),
		P:           uint32(p),
		RealRate:    k * pllin / (10000 * p),
		Approximate: true,
	}

	log.Debug("Approximate PLL", "pllin", pllin, "pll", pll, "real", c.RealRate, "j", c.J, "d", c.D, "p", c.P)

	return c, nil
}
