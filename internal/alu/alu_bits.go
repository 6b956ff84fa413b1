/*
   SVS ALU: bit-manipulation opcodes (pack/unpack, popcount, sign
   change, exponent adjust).

   Copyright (c) 2024, Richard Cornwell
   Copyright (c) 2024, the svs-cpu contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package alu

// Pack scans value/mask from bit 0 up; each masked-in bit of value is
// shifted into the result from the top (bit 47 down), so the result is
// top-justified: the *last* masked-in bit (the highest one) ends up at
// bit 47, and earlier ones settle just below it. This is the actual
// hardware layout, not the more obvious bottom-justified packing — Pack
// and Unpack only round-trip against each other (and against real
// hardware) if both honor it.
func Pack(value, mask uint64) uint64 {
	var result uint64
	for mask != 0 {
		if mask&1 != 0 {
			result >>= 1
			if value&1 != 0 {
				result |= uint64(1) << 47
			}
		}
		mask >>= 1
		value >>= 1
	}
	return result & Mask48
}

// Unpack is Pack's inverse: it scans mask from bit 47 down to bit 0,
// consuming value's bits from bit 47 down only at the positions mask
// marks, and restores each consumed bit to that same mask position in
// the result.
func Unpack(value, mask uint64) uint64 {
	var result uint64
	for i := 0; i < 48; i++ {
		result <<= 1
		if mask&(uint64(1)<<47) != 0 {
			if value&(uint64(1)<<47) != 0 {
				result |= 1
			}
			value <<= 1
		}
		mask <<= 1
	}
	return result & Mask48
}

// CountOnes returns the population count of the low 48 bits of value.
func CountOnes(value uint64) uint64 {
	var n uint64
	for v := value & Mask48; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// ChangeSign negates the mantissa of a stored word, clears RMR, and
// re-runs the epilogue so an all-ones mantissa (the most-negative
// value) still normalizes and a zero mantissa still collapses
// correctly; the exponent changes only when that renormalization
// shifts the mantissa.
func ChangeSign(mode Mode, accWord uint64) Result {
	return ChangeSignIf(mode, accWord, true)
}

// ChangeSignIf is avx's actual primitive: the sign flip only happens
// when negate is true, but the epilogue (clear RMR, normalize, round)
// always runs regardless.
func ChangeSignIf(mode Mode, accWord uint64, negate bool) Result {
	m, exponent := ToALU(accWord)
	delta := 0
	if negate {
		m, delta = negateWithCorrection(m)
	}
	return NormalizeAndRound(mode, m, exponent+delta, 0, 0, false)
}

// AddExponent adds delta to the stored exponent of accWord without
// touching the mantissa, clears RMR, and routes through the epilogue
// so the overflow/underflow checks still apply.
func AddExponent(mode Mode, accWord uint64, delta int) Result {
	m, exponent := ToALU(accWord)
	return NormalizeAndRound(mode, m, exponent+delta, 0, 0, false)
}

// HighestBit returns the position (1..40, matching the 1-based bit
// numbering the rest of the word format uses) of the highest set bit
// of a 40-bit mantissa field, or 0 if the field is all zero.
func HighestBit(mantissa uint64) int {
	hb := highestSetBit40(mantissa)
	if hb < 0 {
		return 0
	}
	return hb + 1
}
