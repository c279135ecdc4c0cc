package hifiberry

import (
	"math/bits"
)

// FindSCK picks the system clock for a bit clock when the PLL synthesizes it.
// The result is a multiple of bclk within [SCK_MIN_HZ, ceiling], chosen with as many
// factors of two as possible so a fast DAC rate divides it.
func FindSCK(bclk, ceiling uint64) (uint64, bool) {
	if bclk == 0 || ceiling < SCK_MIN_HZ {
		return 0, false
	}

	pow2 := uint64(1)
	if x := (ceiling - SCK_MIN_HZ) / bclk; x > 0 {
		pow2 = 1 << (bits.Len64(x) - 1)
	}

	for ; pow2 > 0; pow2 >>= 1 {
		sck := roundDown(ceiling, bclk*pow2)
		if sck >= SCK_MIN_HZ {
			return sck, true
		}
	}

	return 0, false
}
