/*
   SVS ALU: the signed shift primitive shared by the shift/rotate
   family of opcodes.

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

// Shift implements the signed 80-bit (ACC:RMR) shift: a positive count
// shifts left, negative shifts right, over the full 80-bit field with
// RMR as the low 40 bits. Unlike add/mul/div it never calls the
// normalize-and-round epilogue; the exponent and sign pass straight
// through unchanged. Counts are reduced mod 128 with wraparound the
// way a 7-bit shift-count field would.
func Shift(accWord, rmrWord uint64, count int) (newAcc, newRmr uint64) {
	count = ((count % 128) + 128) % 128
	if count > 64 {
		count -= 128
	}

	exponent := UnpackExponent(accWord)
	sign := UnpackSign(accWord)

	hi := UnpackMantissa(accWord)
	lo := rmrWord & Mask40

	switch {
	case count == 0:
		// No-op.
	case count > 0:
		n := uint(count)
		if n >= 80 {
			hi, lo = 0, 0
		} else if n >= 40 {
			hi = (lo << (n - 40)) & Mask40
			lo = 0
		} else {
			hi = ((hi << n) | (lo >> (40 - n))) & Mask40
			lo = (lo << n) & Mask40
		}
	default:
		n := uint(-count)
		if n >= 80 {
			hi, lo = 0, 0
		} else if n >= 40 {
			lo = (hi >> (n - 40)) & Mask40
			hi = 0
		} else {
			lo = ((lo >> n) | (hi << (40 - n))) & Mask40
			hi = (hi >> n) & Mask40
		}
	}

	newAcc = packWord(exponent, sign, hi)
	newRmr = (rmrWord &^ Mask40) | lo
	return newAcc, newRmr
}
