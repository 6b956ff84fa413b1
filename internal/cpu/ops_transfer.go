/*
   SVS opcodes: load/store, logical, and control-transfer instructions.

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

import (
	"github.com/sergev/svs-cpu/internal/alu"
	"github.com/sergev/svs-cpu/internal/fault"
)

// isStackForm reports the reg=15,addr=0 stack convention used by atx
// and xta: atx pushes (increments M[15], recording stackCorr so a
// fault in the store can undo it, then stores at M[15]), xta pops
// (loads from M[15], then decrements it once the load succeeded).
func (p *Processor) isStackForm(h halfInstr) bool {
	return h.reg == mSP && h.addr == 0
}

func (p *Processor) opAtx(h halfInstr) fault.Code {
	addr := p.Aex
	if p.isStackForm(h) {
		p.M[mSP] = (p.M[mSP] + 1) & 0x7fff
		p.stackCorr = 1
		addr = p.M[mSP]
	}
	return p.store(addr, p.ACC)
}

func (p *Processor) opStx(h halfInstr) fault.Code {
	if code := p.store(p.Aex, p.ACC); code != fault.OK {
		return code
	}
	w, code := p.load(p.M[mSP])
	if code != fault.OK {
		return code
	}
	p.ACC = w
	p.M[mSP] = (p.M[mSP] - 1) & 0x7fff
	return fault.OK
}

func (p *Processor) opXta(h halfInstr) fault.Code {
	addr := p.Aex
	if p.isStackForm(h) {
		addr = p.M[mSP]
	}
	w, code := p.load(addr)
	if code != fault.OK {
		return code
	}
	if p.isStackForm(h) {
		// Decrement only runs after a confirmed Load, so there is
		// nothing left that can fault and need unwinding.
		p.M[mSP] = (p.M[mSP] - 1) & 0x7fff
	}
	p.ACC = w
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

func (p *Processor) opXts(h halfInstr) fault.Code {
	if code := p.store(p.M[mSP], p.ACC); code != fault.OK {
		return code
	}
	p.M[mSP] = (p.M[mSP] + 1) & 0x7fff
	p.stackCorr = 1
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = w
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

// opLogical covers aax (AND) / aox (OR) / aex (XOR), selected by
// which primary slot dispatched here.
func (p *Processor) opLogical(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	switch opKey(h) {
	case opAax:
		p.ACC &= w
	case opAox:
		p.ACC |= w
	case opAex:
		p.ACC ^= w
	}
	p.ACC &= alu.Mask48
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

// opArx is the ones-complement add-with-end-around-carry.
func (p *Processor) opArx(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = addEndAroundCarry(p.ACC, w)
	p.setGroup(alu.GroupAdditive)
	return fault.OK
}

// opUza/opU1a: RMR := ACC, branch on (ACC==0)/(ACC!=0); which of the
// two polarities applies is selected by opKey, and the zero-test
// granularity follows the current RAU group.
func (p *Processor) opUza(h halfInstr) fault.Code {
	p.RMR = p.ACC
	isZero := p.zeroTest()
	branchOnZero := opKey(h) == opUza
	if isZero == branchOnZero {
		p.PC = p.Aex & 0x7fff
		p.skipClockAdvance = true
	}
	return fault.OK
}

func (p *Processor) zeroTest() bool {
	group := (p.RAU >> 3) & 3
	switch alu.Group(group) {
	case alu.GroupAdditive:
		return (p.ACC>>40)&1 == 0
	case alu.GroupMultiplicative:
		return (p.ACC>>47)&1 == 0
	default:
		return p.ACC&alu.Mask48 == 0
	}
}

func (p *Processor) opUj(h halfInstr) fault.Code {
	p.PC = p.Aex & 0x7fff
	p.skipClockAdvance = true
	return fault.OK
}

// opVjm is jump-and-link: M[reg] receives the address of the
// following instruction before the jump.
func (p *Processor) opVjm(h halfInstr) fault.Code {
	next := p.linkAddress()
	p.setM(int(h.reg), next)
	p.PC = p.Aex & 0x7fff
	p.skipClockAdvance = true
	return fault.OK
}

// linkAddress is the word address vjm stores into M[reg]: a jump back
// to it always resumes at the left half, so the half currently in
// flight only matters when it is the right half (the next word).
func (p *Processor) linkAddress() uint32 {
	if p.RUU&ruuRightInstr != 0 {
		return (p.PC + 1) & 0x7fff
	}
	return p.PC
}

func (p *Processor) opVtm(h halfInstr) fault.Code {
	p.setM(int(h.reg), p.Aex)
	return fault.OK
}

func (p *Processor) opUtm(h halfInstr) fault.Code {
	p.setM(int(h.reg), (p.M[h.reg]+p.Aex)&0x7fff)
	return fault.OK
}

// opVzm/opV1m: branch if M[reg] is zero / non-zero. opVzm2 (э36) is
// wired to this same handler: hardware distinguishes it only by also
// pushing the return-address prefetch buffer, a microarchitectural
// detail this core does not model, so its architectural behavior is
// identical to opVzm.
func (p *Processor) opVzm(h halfInstr) fault.Code {
	isZero := p.M[h.reg] == 0
	branchOnZero := opKey(h) != opV1m
	if isZero == branchOnZero {
		p.PC = p.Aex & 0x7fff
		p.skipClockAdvance = true
	}
	return fault.OK
}

// opVlm: loop. Increment M[reg]; if still non-zero (as a 15-bit
// signed value), branch to Aex; on reaching zero, fall through.
func (p *Processor) opVlm(h halfInstr) fault.Code {
	v := int16(uint16(p.M[h.reg])<<1) >> 1 // sign-extend 15 bits (bit 14 is the sign)
	v++
	p.setM(int(h.reg), uint32(v)&0x7fff)
	if v != 0 {
		p.PC = p.Aex & 0x7fff
		p.skipClockAdvance = true
	}
	return fault.OK
}

// opUtc sets the modifier for the next instruction from this
// instruction's own effective address; it does not itself consume
// MOD_RK.
func (p *Processor) opUtc(h halfInstr) fault.Code {
	p.setM(mMOD, p.Aex)
	p.RUU |= ruuModRK
	return fault.OK
}

func (p *Processor) opWtc(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.setM(mMOD, uint32(w)&0x7fff)
	p.RUU |= ruuModRK
	return fault.OK
}

func (p *Processor) opIret(h halfInstr) fault.Code {
	if !p.supervisor() {
		return fault.BadCmd
	}
	p.M[mPSW] = p.M[mSPSW]
	vec := [4]int{mERET, mIRET, mIBP, mDWP}
	p.PC = p.M[vec[h.reg&3]] & 0x7fff
	p.skipClockAdvance = true
	return fault.OK
}

func (p *Processor) opStop(h halfInstr) fault.Code {
	if p.supervisor() {
		return fault.Halt
	}
	if p.M[mPSW]&pswCheckHalt != 0 {
		return fault.Halt
	}
	return p.doExtracode(063)
}

// opLd64/opSt64 are счп/зпп, the supervisor-only full-width forms
// spec.md §4.2 describes without naming a mnemonic: a single 64-bit
// quantity spans ACC's full 48 bits plus 16 more bits carried in RMR
// at bits 33..48 (RMR's bits 1..32 play no part in either direction).
func (p *Processor) opLd64(h halfInstr) fault.Code {
	if !p.supervisor() {
		return fault.BadCmd
	}
	low, high, code := p.MMU.Load64(p.Mem, p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = low
	p.RMR = uint64(high) << 32
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

func (p *Processor) opSt64(h halfInstr) fault.Code {
	if !p.supervisor() {
		return fault.BadCmd
	}
	high := uint16((p.RMR >> 32) & 0xffff)
	return p.MMU.Store64(p.Mem, p.Aex, p.ACC, high)
}
