/*
   SVS opcodes: the bit/exponent/shift/pack family (020..047 octal) and
   the extracode trap entry point shared by 050..077, 0200 and 0210.

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

// opAvx (знак) negates ACC's mantissa only when the memory operand's
// bit 40 is set; the epilogue (clear RMR, renormalize, round) always
// runs regardless of whether the sign actually flipped.
func (p *Processor) opAvx(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	negate := (w>>40)&1 != 0
	res := alu.ChangeSignIf(p.auMode(), p.ACC, negate)
	p.setGroup(alu.GroupAdditive)
	return p.applyResult(res)
}

// opApx (сбр) packs ACC under a mask loaded from memory; opAux (рзб)
// unpacks it.
func (p *Processor) opApx(h halfInstr) fault.Code {
	mask, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = alu.Pack(p.ACC, mask)
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

func (p *Processor) opAux(h halfInstr) fault.Code {
	mask, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = alu.Unpack(p.ACC, mask)
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

// addEndAroundCarry is the ones-complement add that acx/anx/arx share:
// a plain 48-bit add whose carry out of bit 48 wraps back into bit 1,
// with no exponent/epilogue handling at all.
func addEndAroundCarry(a, b uint64) uint64 {
	sum := (a & alu.Mask48) + (b & alu.Mask48)
	if sum > alu.Mask48 {
		sum = (sum & alu.Mask48) + 1
	}
	return sum & alu.Mask48
}

// opAcx (чед) replaces ACC with popcount(ACC) added to the memory
// operand via end-around carry.
func (p *Processor) opAcx(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.ACC = addEndAroundCarry(alu.CountOnes(p.ACC), w)
	p.setGroup(alu.GroupAdditive)
	return fault.OK
}

// highestBit48 is svs_highest_bit's convention: the 1-indexed bit
// position counting down from the top of the full 48-bit word (1 for
// the MSB, 48 for the LSB), and 48 for an all-zero word. This differs
// from internal/alu's HighestBit, which counts up from the bottom of a
// 40-bit mantissa field only.
func highestBit48(v uint64) int {
	v &= alu.Mask48
	for i := 0; i < 48; i++ {
		if v&(uint64(1)<<(47-i)) != 0 {
			return i + 1
		}
	}
	return 48
}

// opAnx (нед): when ACC is nonzero, find its highest set bit n, shift
// ACC:RMR right by 48-n keeping the vacated bits in RMR, then replace
// ACC with n added to the memory operand via end-around carry. A zero
// ACC skips the shift and just loads the memory operand with RMR
// cleared.
func (p *Processor) opAnx(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	if p.ACC&alu.Mask48 == 0 {
		p.RMR = 0
		p.ACC = w & alu.Mask48
		p.setGroup(alu.GroupAdditive)
		return fault.OK
	}
	n := highestBit48(p.ACC)
	_, rmr := alu.Shift(p.ACC, p.RMR, n-48)
	p.RMR = rmr
	p.ACC = addEndAroundCarry(uint64(n), w)
	p.setGroup(alu.GroupAdditive)
	return fault.OK
}

// opEplusX/opEminusX (слп/вчп): exponent add/subtract by the memory
// operand's own exponent field, biased by 64. Both primary opcodes
// share this handler; opKey tells them apart.
func (p *Processor) opEplusX(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	delta := alu.UnpackExponent(w) - 64
	if opKey(h) == opEminusX {
		delta = -delta
	}
	res := alu.AddExponent(p.auMode(), p.ACC, delta)
	p.setGroup(alu.GroupMultiplicative)
	return p.applyResult(res)
}

// opAsx (сд) shifts ACC:RMR by a count taken from the memory operand's
// exponent field, biased by 64.
func (p *Processor) opAsx(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	count := alu.UnpackExponent(w) - 64
	p.ACC, p.RMR = alu.Shift(p.ACC, p.RMR, count)
	p.setGroup(alu.GroupMultiplicative)
	return fault.OK
}

// opXtr (рж) loads RAU from the memory operand's exponent field.
func (p *Processor) opXtr(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	p.RAU = uint8(alu.UnpackExponent(w)) & 0x3f
	return fault.OK
}

// opRte (счрж) reads RAU masked by Aex into ACC's exponent field.
func (p *Processor) opRte(h halfInstr) fault.Code {
	p.ACC = (uint64(p.RAU) & uint64(p.Aex) & 0177) << 41
	p.setGroup(alu.GroupLogical)
	return fault.OK
}

// opEplusN/opEminusN (слпа/вчпа): exponent add/subtract by an
// immediate delta carried in Aex itself rather than loaded from
// memory.
func (p *Processor) opEplusN(h halfInstr) fault.Code {
	delta := int(p.Aex&0177) - 64
	if opKey(h) == opEminusN {
		delta = -delta
	}
	res := alu.AddExponent(p.auMode(), p.ACC, delta)
	p.setGroup(alu.GroupMultiplicative)
	return p.applyResult(res)
}

// opAsn (сда) shifts ACC:RMR by an immediate count carried in Aex.
func (p *Processor) opAsn(h halfInstr) fault.Code {
	count := int(p.Aex&0177) - 64
	p.ACC, p.RMR = alu.Shift(p.ACC, p.RMR, count)
	p.setGroup(alu.GroupMultiplicative)
	return fault.OK
}

// opNtr (ржа) loads RAU directly from the low 6 bits of Aex.
func (p *Processor) opNtr(h halfInstr) fault.Code {
	p.RAU = uint8(p.Aex) & 077
	return fault.OK
}

// opAti (уи) copies ACC into a modifier register. Supervisor mode
// addresses the full M[0..037] range (bit 16 of the real instruction
// additionally tags M[IBP]/M[DWP] writes made while mapping is
// disabled; this core keeps no separate tag bit for M[] and so does
// not distinguish a tagged write from a plain one). User mode is
// restricted to M[0..017].
func (p *Processor) opAti(h halfInstr) fault.Code {
	if p.supervisor() {
		p.setM(int(p.Aex)&037, uint32(p.ACC)&0x7fff)
		return fault.OK
	}
	p.setM(int(p.Aex)&017, uint32(p.ACC)&0x7fff)
	return fault.OK
}

// opSti (уим) swaps the word on top of the stack with ACC, then
// records the pre-swap ACC into M[reg].
func (p *Processor) opSti(h halfInstr) fault.Code {
	oldAcc := p.ACC
	w, code := p.load(p.M[mSP])
	if code != fault.OK {
		return code
	}
	if code := p.store(p.M[mSP], oldAcc); code != fault.OK {
		return code
	}
	p.ACC = w
	p.setM(int(h.reg), uint32(oldAcc)&0x7fff)
	return fault.OK
}

// opIta (счи) loads ACC from a modifier register; supervisor mode
// reaches the full M[0..037] range, user mode only M[0..017].
func (p *Processor) opIta(h halfInstr) fault.Code {
	mask := uint32(017)
	if p.supervisor() {
		mask = 037
	}
	p.ACC = uint64(p.M[int(p.Aex)&int(mask)])
	return fault.OK
}

// opIts (счим) pushes ACC, then falls into opIta's body exactly as
// cpu_one_instr's switch does (a shared fallthrough, not two unrelated
// operations).
func (p *Processor) opIts(h halfInstr) fault.Code {
	p.M[mSP] = (p.M[mSP] + 1) & 0x7fff
	p.stackCorr = 1
	if code := p.store(p.M[mSP], p.ACC); code != fault.OK {
		return code
	}
	return p.opIta(h)
}

// opMtj (уии): M[Aex&037] := M[reg] in supervisor mode, M[Aex&017]
// := M[reg] in user mode.
func (p *Processor) opMtj(h halfInstr) fault.Code {
	if p.supervisor() {
		p.setM(int(p.Aex)&037, p.M[h.reg])
		return fault.OK
	}
	p.setM(int(p.Aex)&017, p.M[h.reg])
	return fault.OK
}

// opJplusM (сли): when bit 4 of Aex is set and the processor is in
// supervisor mode, this is mtj under another name; otherwise it adds
// M[reg] into M[Aex&017] in place.
func (p *Processor) opJplusM(h halfInstr) fault.Code {
	if p.Aex&020 != 0 && p.supervisor() {
		return p.opMtj(h)
	}
	idx := int(p.Aex) & 017
	p.setM(idx, (p.M[idx]+p.M[h.reg])&0x7fff)
	return fault.OK
}

// opSop (соп) is supervisor-only: a third full-width memory access
// alongside ld64/st64, unpacking a 64-bit quantity into ACC/RMR the
// same way opLd64 does. The companion reference reaches it through the
// same mmu_load64 helper opLd64 uses but with a different second
// argument whose meaning (a physical-vs-virtual selector? a
// cache-bypass flag?) is not resolved by anything this core's MMU
// models; see DESIGN.md.
func (p *Processor) opSop(h halfInstr) fault.Code {
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

// opX47 (э47) is supervisor-only: M[Aex&017] += Aex.
func (p *Processor) opX47(h halfInstr) fault.Code {
	if !p.supervisor() {
		return fault.BadCmd
	}
	idx := int(p.Aex) & 017
	p.setM(idx, (p.M[idx]+p.Aex)&0x7fff)
	return fault.OK
}

// opExtracode is the dispatch entry for every primary opcode that is
// not a real instruction: 050..077 octal, plus 0200 and 0210. All of
// them trap through the same extracode mechanism, already implemented
// by doExtracode for opStop's fallback path.
func (p *Processor) opExtracode(h halfInstr) fault.Code {
	return p.doExtracode(h.opcode)
}
