/*
   SVS instruction decoder: half-instruction fetch and address
   formation.

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

package cpu

import "github.com/sergev/svs-cpu/internal/fault"

// halfInstr is one decoded 24-bit half-instruction.
type halfInstr struct {
	reg    uint8  // modifier register index, 0..15
	opcode uint8  // raw opcode as cpu_one_instr computes it: 000..077 short form, 0200..0370 long form
	long   bool   // bit 19 (the BBIT(20) flag in the companion reference)
	addr   uint32 // 15-bit address field, sign-extended for short form
}

// decodeHalf splits a 24-bit half-instruction exactly as cpu_one_instr
// does: bits 23..20 hold the register, bit 19 is the long-form flag.
// Long form takes opcode = (RK>>12)&0370 (an 8-bit field whose bit 19
// is always set, so its values never collide with short form's) and a
// full 15-bit address. Short form takes opcode = (RK>>12)&077 (a 6-bit
// field, NOT the 4 bits a simplified reading of the format suggests)
// and a 12-bit address, with bit 18 forcing the address's top three
// bits (070000) to 1 rather than ORing onto whatever was already
// there.
func decodeHalf(h uint32) halfInstr {
	h &= 0xffffff
	var d halfInstr
	d.reg = uint8((h >> 20) & 0xf)
	d.long = (h>>19)&1 != 0
	if d.long {
		d.opcode = uint8((h >> 12) & 0370)
		d.addr = h & 0x7fff
	} else {
		d.opcode = uint8((h >> 12) & 077)
		addr := h & 0xfff
		if (h>>18)&1 != 0 {
			addr |= 070000
		}
		d.addr = addr
	}
	return d
}

// fetchHalf loads the current half-instruction (left or right half of
// the word at PC) and advances the (PC, RIGHT_INSTR) two-phase clock
// is NOT done here; see Step, which performs the transition only
// after the instruction commits.
func (p *Processor) fetchHalf() (halfInstr, fault.Code) {
	w, _, code := p.fetch(p.PC)
	if code != fault.OK {
		return halfInstr{}, code
	}
	var h uint32
	if p.RUU&ruuRightInstr == 0 {
		h = uint32(w>>24) & 0xffffff
	} else {
		h = uint32(w) & 0xffffff
	}
	return decodeHalf(h), fault.OK
}

// advanceClock performs the two-phase (PC, RIGHT_INSTR) transition:
// after a left half, RIGHT_INSTR is set and PC holds still; after a
// right half, RIGHT_INSTR clears and PC increments.
func (p *Processor) advanceClock() {
	if p.RUU&ruuRightInstr == 0 {
		p.RUU |= ruuRightInstr
	} else {
		p.RUU &^= ruuRightInstr
		p.PC = (p.PC + 1) & 0x7fff
	}
}

// effectiveAddress forms Aex = addr + M[reg] (plain addr for vtm, vzm,
// v1m, э36 and vlm, whose reg field names the modifier they operate
// on rather than an index into their address), applying a pending
// MOD_RK adjustment from M[MOD] and clearing MOD_RK afterward. utc
// and wtc are exempt: a MOD_RK pending when one of them is the current
// instruction leaves their own address formation untouched and stays
// set for the instruction after them, since §4.4 says they "do NOT
// consume MOD_RK themselves" (they SET it for the next instruction,
// in their own opcode bodies).
func (p *Processor) effectiveAddress(h halfInstr) uint32 {
	aex := (h.addr + p.M[h.reg]) & 0x7fff
	switch opKey(h) {
	case opVtm, opVzm, opV1m, opVzm2, opVlm:
		aex = h.addr & 0x7fff
	}
	if p.RUU&ruuModRK != 0 {
		switch opKey(h) {
		case opUtc, opWtc:
			// leave Aex and MOD_RK untouched
		default:
			aex = (aex + p.M[mMOD]) & 0x7fff
			p.RUU &^= ruuModRK
		}
	}
	return aex
}
