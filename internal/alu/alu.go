/*
   SVS arithmetic-logic unit: toalu/negate primitives and the shared
   normalize-and-round epilogue every AU operation passes through.

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

// Package alu implements the BESM-6-style arithmetic the SVS processor
// uses: a redundant double-sign 40-bit mantissa, a 48-bit accumulator
// (ACC) paired with a 48-bit minor register (RMR) that catches
// shifted-out or low-order bits, and a single normalize-and-round
// epilogue shared by every add/sub/mul/div/shift/sign-change operation.
// No fault-handling conditionals are spread across the individual
// operations; they all converge on NormalizeAndRound.
package alu

import "github.com/sergev/svs-cpu/internal/fault"

// Mask48 / Mask40 bound a 48-bit word and a 40-bit mantissa field.
const (
	Mask48 = (1 << 48) - 1
	Mask40 = (1 << 40) - 1
)

// Bit positions; bit numbering is 1..48 from the LSB up. mantissaBit
// is the top bit (bit 40) of the 40-bit mantissa field; signBit is
// bit 41 (mantissa sign); dualSignBit is bit 42, the transient
// duplicate-sign bit that exists only during computation.
const (
	mantissaBit = 39
	signBit     = 40
	dualSignBit = 41
)

// Group selects which of the three RAU groups an AU instruction
// belongs to.
type Group uint8

const (
	GroupLogical Group = iota
	GroupMultiplicative
	GroupAdditive
)

// Mode is the subset of RAU that the epilogue consults.
type Mode struct {
	NormDisable  bool
	RoundDisable bool
	OvfDisable   bool
}

// Result is the post-state of one AU operation: the packed 48-bit ACC
// word, the packed 48-bit RMR word, and any fault raised. The epilogue
// itself only ever reports fault.OK or fault.Ovfl; Divide returns a
// Result carrying fault.DivZero directly, before any epilogue runs.
type Result struct {
	Acc   uint64
	Rmr   uint64
	Fault fault.Code
}

// workReg is the 42-bit-wide transient register the epilogue shifts:
// bits 0..39 are the 40-bit mantissa, bit 40 the sign, bit 41 the
// duplicate sign carried during computation.
type workReg = uint64

// signOf reports the sign bit (bit 41) of a work register.
func signOf(m workReg) uint64 { return (m >> signBit) & 1 }

// top2 packs (sign<<1 | topMantissaBit): {01,10} is normalized,
// {00,11} needs a left-normalize shift.
func top2(m workReg) uint64 { return (m >> mantissaBit) & 3 }

// highestSetBit40 returns the index (0=LSB .. 39=MSB) of the highest
// set bit within the low 40 bits of v, or -1 if all 40 bits are zero.
func highestSetBit40(v uint64) int {
	v &= Mask40
	for i := 39; i >= 0; i-- {
		if (v>>uint(i))&1 != 0 {
			return i
		}
	}
	return -1
}

// packWord assembles the stored 48-bit word {exponent(7) | sign(1) |
// mantissa(40)} from an epilogue's final pieces.
func packWord(exponent int, sign uint64, mantissa uint64) uint64 {
	e := uint64(exponent) & 0x7f
	return (e << 41) | ((sign & 1) << 40) | (mantissa & Mask40)
}

// UnpackExponent / UnpackSign / UnpackMantissa split a stored 48-bit
// word back into its fields, the inverse of packWord.
func UnpackExponent(w uint64) int   { return int((w >> 41) & 0x7f) }
func UnpackSign(w uint64) uint64    { return (w >> 40) & 1 }
func UnpackMantissa(w uint64) uint64 { return w & Mask40 }

// ToALU loads a stored 48-bit word into the transient work-register
// representation used by the epilogue and the arithmetic primitives:
// mantissa in bits 0..39, sign replicated into both bit 40 and bit 41
// (the BESM-6 "dual sign" invariant for an already-normalized value).
func ToALU(w uint64) (m workReg, exponent int) {
	exponent = UnpackExponent(w)
	sign := UnpackSign(w)
	m = (UnpackMantissa(w)) | (sign << signBit) | (sign << dualSignBit)
	return m, exponent
}

// Negate computes the two's-complement negative of a work register's
// 42-bit (mantissa+sign+dualsign) value, then re-tests bit 41 against
// the newly inverted bit 40: when they still disagree (the mantissa
// sign and its duplicate no longer match after the flip, which only
// happens at the one borderline magnitude whose negation overflows
// the 40-bit field), the register is shifted right one place and the
// exponent bumped to compensate. Callers that discard the returned
// exponent delta are implicitly asserting that borderline value cannot
// occur for them.
func Negate(m workReg) workReg {
	r, _ := negateWithCorrection(m)
	return r
}

// negateWithCorrection is Negate plus the exponent delta the rare
// post-negate renormalize applies (0 or +1).
func negateWithCorrection(m workReg) (workReg, int) {
	const width42 = (1 << 42) - 1
	if (m>>signBit)&1 != 0 {
		m |= 1 << dualSignBit
	}
	m = (^m + 1) & width42
	delta := 0
	if ((m>>1)^m)&(1<<signBit) != 0 {
		m >>= 1
		delta = 1
	}
	if (m>>signBit)&1 != 0 {
		m |= 1 << dualSignBit
	}
	return m, delta
}

// NormalizeAndRound is the shared AU epilogue. m is the 42-bit
// working mantissa+signs register, exponent the (possibly
// out-of-range, to detect overflow) biased exponent, rmrIn the
// existing 48-bit RMR value (its high 8 bits, 41..48, are preserved
// across the call), mr the 40 low bits shifted out of the computation
// so far (e.g. from add's alignment shift or multiply's low product
// half), and roundRequest the operation's request to round when
// nothing was shifted out.
func NormalizeAndRound(mode Mode, m workReg, exponent int, rmrIn uint64, mr uint64, roundRequest bool) Result {
	suppressRound := false // true once a normalize shift pulled a non-zero bit in from mr

	if !mode.NormDisable {
		switch top2(m) {
		case 1, 2:
			// Already normalized; no shift.
		case 0:
			m, exponent, mr, suppressRound = normalizeLeft(m, exponent, mr, false)
		case 3:
			m, exponent, mr, suppressRound = normalizeLeft(m, exponent, mr, true)
		}
	}

	rmrOut := rmrIn & (Mask48 ^ Mask40) // preserve bits 48..41
	rmrOut |= mr & Mask40

	// A left-normalize that ran off the end of both the mantissa and mr
	// drives the exponent deeply negative; that is a silent underflow
	// to zero, not an overflow fault, and it overrides even
	// NormDisable (the hardware reaches this collapse on the same path
	// regardless of which branch skipped straight to it).
	if exponent < 0 {
		return Result{Acc: 0, Rmr: rmrOut & (Mask48 ^ Mask40), Fault: fault.OK}
	}

	mantissa := m & Mask40
	sign := signOf(m)

	// Rounding applies whenever round is not disabled, the bits pulled
	// in from mr during normalize were all zero (so there is nothing of
	// substance to preserve), and the operation asked for it — this
	// runs even when NormDisable skipped normalization entirely.
	if !mode.RoundDisable && !suppressRound && roundRequest {
		mantissa |= 1
	}

	// A set sign with a zero mantissa field is -1.0, not zero.
	if mantissa == 0 && sign == 0 {
		if mode.NormDisable {
			// Preserve the stored exponent; ACC collapses to a
			// zero mantissa, RMR low bits follow mr as usual.
			return Result{Acc: packWord(exponent, sign, 0), Rmr: rmrOut, Fault: fault.OK}
		}
		// Exact zero: the whole word (ACC and low 40 of RMR) collapses.
		return Result{Acc: 0, Rmr: rmrOut & (Mask48 ^ Mask40), Fault: fault.OK}
	}

	acc := packWord(exponent, sign, mantissa)

	if (exponent & 0x80) != 0 && !mode.OvfDisable {
		return Result{Acc: acc, Rmr: rmrOut, Fault: fault.Ovfl}
	}
	return Result{Acc: acc, Rmr: rmrOut, Fault: fault.OK}
}

// normalizeLeft implements the positive/negative unnormalized branches
// of the normalization policy: shift m left until the highest
// informative bit (set, for positive; clear, for negative, found by
// probing the bitwise complement) of the 40-bit mantissa field lands
// at bit 40, pulling the vacated low bits in from mr's own top bits
// rather than zero/one-filling them blindly — this is the detail a
// naive port misses, since a shift that doesn't account for mr
// silently drops the low-order bits add/multiply left there. If the
// mantissa field is entirely uninformative, the shift continues from
// mr itself, subtracting a further 40 from the exponent for that
// whole-word move; if mr is uninformative too, an exact zero (clear
// mantissa, sign and mr) is returned, which the caller collapses to a
// hard zero. The returned bool reports
// whether the bits pulled in from mr were non-zero, which suppresses
// rounding (their presence means the result already carries low-order
// information beyond what a round-up bit would add).
func normalizeLeft(m workReg, exponent int, mr uint64, negative bool) (workReg, int, uint64, bool) {
	r := m & Mask40
	if negative {
		r = (^r) & Mask40
	}
	if r != 0 {
		cnt := mantissaBit - highestSetBit40(r)
		rr := (mr >> uint(40-cnt)) & ((uint64(1) << uint(cnt)) - 1)
		r = (r << uint(cnt)) & Mask40
		if negative {
			r |= (uint64(1) << uint(cnt)) - 1
		}
		var newM workReg
		if negative {
			newM = (uint64(1) << signBit) | ((^r) & Mask40) | rr
		} else {
			newM = r | rr
		}
		newMR := (mr << uint(cnt)) & Mask40
		return newM, exponent - cnt, newMR, rr != 0
	}

	r = mr & Mask40
	if negative {
		r = (^r) & Mask40
	}
	if r != 0 {
		cnt := mantissaBit - highestSetBit40(r)
		r = (r << uint(cnt)) & Mask40
		var newM workReg
		if negative {
			newM = (uint64(1) << signBit) | ((^r) & Mask40)
		} else {
			newM = r
		}
		return newM, exponent - 40 - cnt, 0, true
	}

	if negative {
		// Both the mantissa and mr are entirely uninformative (all
		// ones): collapses to exact zero, mirroring the positive case.
		return 0, exponent, 0, true
	}
	// Positive, both entirely zero: already exact zero.
	return 0, exponent, 0, true
}
