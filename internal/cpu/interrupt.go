/*
   SVS interrupt/extracode subsystem: the two internal-interrupt entry
   points, extracode entry, and the dispatch loop's fault-to-interrupt
   conversion.

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

const (
	vecInt1 = 0500
	vecInt2 = 0501
)

// saveModeBits copies PSW into SPSW. Only the PSW mode bits are saved:
// the RUU flags (supervisor mode, RIGHT_INSTR, MOD_RK) are not copied
// into SPSW.
func (p *Processor) saveModeBits() {
	p.M[mSPSW] = p.M[mPSW]
}

// opInt1 is the internal-interrupt entry point: save mode bits, link
// PC into M[IRET], disable interrupts/mapping/protection, clear
// RIGHT_INSTR, enter supervisor (INTERRUPT) mode, jump to vector 0500.
func (p *Processor) opInt1() {
	p.saveModeBits()
	p.M[mIRET] = p.PC
	p.M[mPSW] |= pswMapDisable | pswProtDisable | pswIntrDisable
	p.RUU &^= ruuRightInstr
	p.RUU |= ruuInterrupt
	p.PC = vecInt1
}

// opInt2 is the external-interrupt entry point: same as opInt1, vector
// 0501, and MOD_RK is cleared since external interrupts are never
// modified by M[MOD].
func (p *Processor) opInt2() {
	p.saveModeBits()
	p.M[mIRET] = p.PC
	p.M[mPSW] |= pswMapDisable | pswProtDisable | pswIntrDisable
	p.RUU &^= ruuRightInstr | ruuModRK
	p.RUU |= ruuInterrupt
	p.PC = vecInt2
}

// doExtracode saves PSW into SPSW (SPSW carries no EXTRACODE flag; the
// flag is set in RUU), disables PSW bits, saves Aex into M[14], and
// jumps to the extracode's vector.
func (p *Processor) doExtracode(opcode uint8) fault.Code {
	p.saveModeBits()
	p.setM(14, p.Aex)
	p.M[mPSW] |= pswMapDisable | pswProtDisable | pswIntrDisable
	p.RUU &^= ruuRightInstr
	p.RUU |= ruuExtracode

	var vec uint32
	switch {
	case opcode >= 050 && opcode <= 077:
		vec = 0500 + uint32(opcode)
	case opcode == 0200 || opcode == 0210:
		vec = 0540 + uint32(opcode)>>3
	default:
		return fault.BadCmd
	}
	p.PC = vec & 0x7fff
	p.skipClockAdvance = true
	return fault.OK
}

// enterFault converts a fault raised during Step into either a
// simulator stop or a delivered internal interrupt, per the taxonomy
// in internal/fault. It is the single point where fault classes are
// matched against PSW's halt bits.
func (p *Processor) enterFault(code fault.Code) fault.Code {
	switch fault.ClassOf(code) {
	case fault.ClassNone:
		return fault.OK
	case fault.ClassTermination, fault.ClassDebuggerStop, fault.ClassUnrecoverable, fault.ClassUnimplemented:
		return code
	case fault.ClassInternalInterrupt:
		if p.M[mPSW]&pswIntrHalt != 0 {
			return code
		}
		return p.deliverInternalInterrupt(code)
	case fault.ClassCheck:
		if p.M[mPSW]&pswCheckHalt != 0 && p.RUU&ruuAvostDisable == 0 {
			return code
		}
		return p.deliverInternalInterrupt(code)
	default:
		return code
	}
}

// deliverInternalInterrupt sets the RPR cause bit, applies the PC
// adjustment rule for fault classes that must skip the faulting
// half-instruction, and enters via opInt1. A fault raised while
// already servicing an interrupt (PSW.INTR_DISABLE still set) is a
// double interrupt, unrecoverable.
func (p *Processor) deliverInternalInterrupt(code fault.Code) fault.Code {
	if p.M[mPSW]&pswIntrDisable != 0 {
		return fault.DoubleIntr
	}
	p.RPR |= fault.InternalInterruptBit(code)
	if fault.AdvancesPC(code) {
		p.advanceClock()
	}
	p.opInt1()
	p.skipClockAdvance = true
	return fault.OK
}

// checkPendingInterrupts runs between instructions: if no interrupt is
// in flight and interrupts are enabled, it tests RPR (internal) and
// GRVP&GRM (external, also OR'd with a request bit whenever
// POP&RKP is non-zero) and delivers the higher-priority one.
func (p *Processor) checkPendingInterrupts() fault.Code {
	if p.M[mPSW]&pswIntrDisable != 0 {
		return fault.OK
	}
	if p.RPR != 0 {
		p.opInt1()
		return fault.OK
	}
	external := (p.GRVP & p.GRM) != 0 || (p.POP&p.RKP) != 0
	if external {
		p.opInt2()
	}
	return fault.OK
}
