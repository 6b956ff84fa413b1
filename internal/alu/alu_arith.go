/*
   SVS ALU: add/subtract/multiply/divide.

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

import "github.com/sergev/svs-cpu/internal/fault"

// AddVariant selects one of the four add/subtract forms, all sharing
// one alignment-and-add core.
type AddVariant uint8

const (
	AddNormal          AddVariant = iota // a+x
	AddSubtract                          // a-x  (negate operand)
	AddReverseSubtract                   // x-a  (negate accumulator)
	AddSubAbs                            // amx  (subtract absolute values)
)

// Add implements a+x / a-x / x-a / amx: align exponents, add the
// 42-bit mantissas, fix up a one-bit carry, and call the shared
// epilogue.
func Add(mode Mode, variant AddVariant, accWord, rmrWord, valWord uint64) Result {
	accM, accExp := ToALU(accWord)
	valM, valExp := ToALU(valWord)

	switch variant {
	case AddSubtract:
		var delta int
		valM, delta = negateWithCorrection(valM)
		valExp += delta
	case AddReverseSubtract:
		var delta int
		accM, delta = negateWithCorrection(accM)
		accExp += delta
	case AddSubAbs:
		if signOf(accM) == 1 {
			var delta int
			accM, delta = negateWithCorrection(accM)
			accExp += delta
		}
		valAbs := valM
		valAbsExp := valExp
		if signOf(valM) == 1 {
			var delta int
			valAbs, delta = negateWithCorrection(valM)
			valAbsExp += delta
		}
		var delta int
		valM, delta = negateWithCorrection(valAbs)
		valExp = valAbsExp + delta
	}

	var mr uint64
	var roundRequest bool
	resultExp := accExp
	if accExp >= valExp {
		diff := accExp - valExp
		valM, mr, roundRequest = shiftRightAlign(valM, diff)
	} else {
		resultExp = valExp
		diff := valExp - accExp
		accM, mr, roundRequest = shiftRightAlign(accM, diff)
	}

	sum := (accM & 0x3ffffffffff) + (valM & 0x3ffffffffff)

	sumSign := (sum >> signBit) & 1
	sumDual := (sum >> dualSignBit) & 1
	if sumSign != sumDual {
		dropped := sum & 1
		sum >>= 1
		mr = (mr >> 1) | (dropped << 39)
		resultExp++
		roundRequest = roundRequest || dropped != 0
		// Re-duplicate the sign bit that the shift just exposed.
		newSign := (sum >> signBit) & 1
		sum = (sum &^ (uint64(1) << dualSignBit)) | (newSign << dualSignBit)
	}

	return NormalizeAndRound(mode, sum&0x3ffffffffff, resultExp, rmrWord, mr, roundRequest)
}

// shiftRightAlign implements the exponent-alignment shift: bits
// shifted off the low end of the mantissa land in mr for shifts of
// 1..40, both replace mr and clear the mantissa for shifts of 41..80,
// or vanish entirely (only raising roundRequest) for shifts beyond 80.
// Negative values sign-extend with ones, and ones fill mr for long
// shifts.
func shiftRightAlign(m workReg, n int) (workReg, uint64, bool) {
	sign := signOf(m)
	mantissa := m & Mask40

	rebuild := func(newMantissa uint64) workReg {
		return (newMantissa & Mask40) | (sign << signBit) | (sign << dualSignBit)
	}

	switch {
	case n <= 0:
		return m, 0, false
	case n <= 40:
		shiftedOut := mantissa & ((uint64(1) << uint(n)) - 1)
		newMantissa := mantissa >> uint(n)
		if sign == 1 {
			fill := ^uint64(0) << uint(40-n) & Mask40
			newMantissa |= fill
		}
		mr := (shiftedOut << uint(40-n)) & Mask40
		return rebuild(newMantissa), mr, mr != 0
	case n <= 80:
		shiftWithinMR := n - 40
		mrVal := mantissa >> uint(shiftWithinMR)
		roundRequest := mantissa != 0
		if sign == 1 {
			fill := ^uint64(0) << uint(40-shiftWithinMR) & Mask40
			mrVal |= fill
			return rebuild(Mask40), mrVal, roundRequest
		}
		return rebuild(0), mrVal, roundRequest
	default:
		nonZero := mantissa != 0
		if sign == 1 {
			return rebuild(Mask40), Mask40, nonZero
		}
		return rebuild(0), 0, nonZero
	}
}

// Multiply implements a*x: absolute-value both operands, track the
// sign separately, form an 80-bit product via 20x20->40 partial
// products, and route the high/low halves to ACC/mr before the
// epilogue.
func Multiply(mode Mode, accWord, rmrWord, valWord uint64) Result {
	accM, accExp := ToALU(accWord)
	valM, valExp := ToALU(valWord)

	if accWord&Mask48 == 0 || valWord&Mask48 == 0 {
		// Exact zero (the whole stored word, not just its mantissa
		// field) bypasses the epilogue entirely.
		return Result{Acc: 0, Rmr: rmrWord &^ Mask40, Fault: fault.OK}
	}

	negative := signOf(accM) != signOf(valM)

	a := accM & Mask40
	if signOf(accM) == 1 {
		var delta int
		var corrected workReg
		corrected, delta = negateWithCorrection(accM)
		a = corrected & Mask40
		accExp += delta
	}
	b := valM & Mask40
	if signOf(valM) == 1 {
		var delta int
		var corrected workReg
		corrected, delta = negateWithCorrection(valM)
		b = corrected & Mask40
		valExp += delta
	}

	hi, lo := mul40(a, b)
	exponent := accExp + valExp - 64

	if negative {
		// Two's-complement the 80-bit (hi:lo) product.
		lo = (^lo + 1) & Mask40
		carry := uint64(0)
		if lo == 0 {
			carry = 1
		}
		hi = (^hi + carry) & Mask40
	}

	sign := uint64(0)
	if negative {
		sign = 1
	}
	m := hi | (sign << signBit) | (sign << dualSignBit)

	return NormalizeAndRound(mode, m, exponent, rmrWord, lo, lo != 0)
}

// mul40 multiplies two 40-bit unsigned values and returns the 80-bit
// product split into high/low 40-bit halves, via 20x20->40 partial
// products the way a machine with 40-bit-wide integer paths would
// build an 80-bit result.
func mul40(a, b uint64) (hi, lo uint64) {
	const half = 20
	const halfMask = (1 << half) - 1

	aLo, aHi := a&halfMask, a>>half
	bLo, bHi := b&halfMask, b>>half

	p00 := aLo * bLo
	p01 := aLo * bHi
	p10 := aHi * bLo
	p11 := aHi * bHi

	mid := p01 + p10
	midCarry := uint64(0)
	if mid < p01 { // overflow of the 40-bit mid add
		midCarry = 1 << half
	}

	low := p00 + ((mid & halfMask) << half)
	carryLow := low >> 40 // carry out of the low 40-bit half
	full := p11 + (mid >> half) + midCarry + carryLow

	lo = low & Mask40
	hi = full & Mask40
	return hi, lo
}

// Divide implements a/x: non-restoring division over 40
// signed-magnitude bits. A denormalized divisor (equal top two sign
// bits) raises DivZero before any epilogue call.
func Divide(mode Mode, accWord, rmrWord, valWord uint64) Result {
	accM, accExp := ToALU(accWord)
	valM, valExp := ToALU(valWord)

	if denormalized(valWord) {
		return Result{Fault: fault.DivZero}
	}

	nn := signExtend41(accM) * 2
	dd := signExtend41(valM) * 2
	exponent := accExp

	if abs64(nn) >= abs64(dd) {
		// Pre-shift the dividend right one place: without this the
		// quotient can exceed 40 bits and the loop below assumes it
		// doesn't.
		nn /= 2
		exponent++
	}

	res := int64(0)
	q := int64(1) << 40
	for q > 1 {
		if nn == 0 {
			break
		}
		if abs64(nn) < (int64(1) << 40) {
			nn *= 2 // this bit of the quotient is 0; just keep scaling
		} else if (nn > 0) != (dd > 0) {
			res -= q
			nn = 2*nn + dd
		} else {
			res += q
			nn = 2*nn - dd
		}
		q /= 2
	}

	quotient := res / 2
	exponent = exponent - valExp + 64
	qm := uint64(quotient) & Mask40
	sign := (qm >> mantissaBit) & 1 // replicate the computed sign into bit41
	m := qm | (sign << signBit) | (sign << dualSignBit)

	return NormalizeAndRound(mode, m, exponent, rmrWord, 0, false)
}

// denormalized reports whether a stored word's sign (bit 41) equals
// the top bit of its mantissa (bit 40).
func denormalized(val uint64) bool {
	const bit41 = uint64(1) << 40
	return ((val ^ (val << 1)) & bit41) == 0
}

func signExtend41(m workReg) int64 {
	v := int64(m & Mask40)
	if signOf(m) == 1 {
		v -= int64(1) << 40
	}
	return v
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
