/*
   SVS "special register" port: opcode 002 fans out into its
   sub-operations by Aex&0377 rather than re-opening the main
   dispatcher for every new one.

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

// regSubOp is one sub-operation of the special-register port.
type regSubOp func(p *Processor, h halfInstr) fault.Code

// Sub-address values, bit-exact with cmd_002's switch on Aex&0377.
// Ranges (page table and protection register writes, and the RUU
// mode-bit writes) are handled directly in opReg rather than listed
// here one index at a time.
const (
	regSetRP      = 020  // +0..7: load a user page register
	regSetRPS     = 060  // +0..7: load a supervisor page register
	regSetProt    = 030  // +0..3: load 8 bits of RZ
	regSetMemCfg  = 034  // memory configuration register: ignored
	regSetMemCtl  = 035  // memory control signal: ignored
	regReadMemCtl = 0235 // memory control signal readback: stub, reads 0
	regReadMemBsy = 0236 // memory busy-inhibit signals: stub, reads 0
	regClearRPR   = 037
	regReadRPR    = 0237
	regSetTagR    = 044
	regReadTagR   = 0244
	regReadTagBr  = 0245 // tag-branch register: stub, reads 0
	regSetGRM     = 046
	regReadGRM    = 0246
	regClearGRVP  = 047
	regReadGRVP   = 0247
	regSetPP      = 050
	regReadIndex  = 0250
	regSetOPP     = 051
	regClearPOP   = 052
	regReadPOP    = 0252
	regClearOPOP  = 053
	regReadOPOP   = 0253
	regSetRKP     = 054
	regReadRKP    = 0254
	regSetAlarm   = 055 // ignored
	regReadAlarm  = 0255
	regSetClock   = 056 // TODO: clock register is not modeled
	regReadClock  = 0256
	regSetTimer   = 057 // TODO: timer register is not modeled
	regReadTimer  = 0257
	regRuuModeLo  = 0100 // +0..7: AVOST_DISABLE/CHECK_RIGHT/CHECK_LEFT bits
	regClearCheck = 0140 // "СКП": TODO, clear check flags

	// regSetRUU names one real value in the 0100..0107 RUU mode-bit
	// range; it exists mainly so existing tests that pass it as an
	// arbitrary supervisor-only Aex literal keep compiling.
	regSetRUU = regRuuModeLo
)

var regSubTable = map[uint8]regSubOp{
	regSetMemCfg:  (*Processor).regIgnore,
	regSetMemCtl:  (*Processor).regIgnore,
	regReadMemCtl: (*Processor).regReadZero,
	regReadMemBsy: (*Processor).regReadZero,
	regClearRPR:   (*Processor).regClearRPR,
	regReadRPR:    (*Processor).regReadRPR,
	regSetTagR:    (*Processor).regSetTagR,
	regReadTagR:   (*Processor).regReadTagR,
	regReadTagBr:  (*Processor).regReadZero,
	regSetGRM:     (*Processor).regSetGRM,
	regReadGRM:    (*Processor).regReadGRM,
	regClearGRVP:  (*Processor).regClearGRVP,
	regReadGRVP:   (*Processor).regReadGRVP,
	regSetPP:      (*Processor).regSetPP,
	regReadIndex:  (*Processor).regReadIndex,
	regSetOPP:     (*Processor).regSetOPP,
	regClearPOP:   (*Processor).regClearPOP,
	regReadPOP:    (*Processor).regReadPOP,
	regClearOPOP:  (*Processor).regClearOPOP,
	regReadOPOP:   (*Processor).regReadOPOP,
	regSetRKP:     (*Processor).regSetRKP,
	regReadRKP:    (*Processor).regReadRKP,
	regSetAlarm:   (*Processor).regIgnore,
	regReadAlarm:  (*Processor).regReadZero,
	regSetClock:   (*Processor).regIgnore,
	regReadClock:  (*Processor).regReadZero,
	regSetTimer:   (*Processor).regIgnore,
	regReadTimer:  (*Processor).regReadZero,
	regClearCheck: (*Processor).regIgnore,
}

// opReg is the opcode-002 entry point: supervisor-only, selects a
// sub-operation by Aex&0377 exactly as cmd_002 does.
func (p *Processor) opReg(h halfInstr) fault.Code {
	if !p.supervisor() {
		return fault.BadCmd
	}
	sub := uint8(p.Aex & 0377)

	switch {
	case sub >= regSetRP && sub < regSetRP+8:
		p.MMU.SetRP(int(sub-regSetRP), p.ACC, false)
		return fault.OK
	case sub >= regSetRPS && sub < regSetRPS+8:
		p.MMU.SetRP(int(sub-regSetRPS), p.ACC, true)
		return fault.OK
	case sub >= regSetProt && sub < regSetProt+4:
		p.MMU.SetProtection(int(sub-regSetProt), uint8(p.ACC))
		return fault.OK
	case sub >= regRuuModeLo && sub < regRuuModeLo+8:
		p.setRuuModeBits(sub - regRuuModeLo)
		return fault.OK
	}

	if fn, ok := regSubTable[sub]; ok {
		return fn(p, h)
	}
	// Unrecognized sub-address: cmd_002's default case logs and
	// otherwise ignores it.
	return fault.OK
}

// setRuuModeBits implements the real 0100..0107 sub-range: each of the
// three low bits of the sub-address selects one RUU mode bit, and
// every selected bit is set or cleared according to ACC's bit 0,
// rather than replacing the whole register the way a "write RUU"
// operation would.
func (p *Processor) setRuuModeBits(bits uint8) {
	apply := func(sel uint8, mask uint16) {
		if bits&sel == 0 {
			return
		}
		if p.ACC&1 != 0 {
			p.RUU |= mask
		} else {
			p.RUU &^= mask
		}
	}
	apply(1, ruuAvostDisable)
	apply(2, ruuCheckRight)
	apply(4, ruuCheckLeft)
}

func (p *Processor) regIgnore(h halfInstr) fault.Code  { return fault.OK }
func (p *Processor) regReadZero(h halfInstr) fault.Code { p.ACC = 0; return fault.OK }

func (p *Processor) regReadRPR(h halfInstr) fault.Code { p.ACC = p.RPR; return fault.OK }

// regClearRPR preserves the wired-always-set bits rather than zeroing
// the register outright.
func (p *Processor) regClearRPR(h halfInstr) fault.Code {
	p.RPR &= p.ACC | rprWiredBits
	return fault.OK
}

func (p *Processor) regSetTagR(h halfInstr) fault.Code  { p.TagR = p.ACC; return fault.OK }
func (p *Processor) regReadTagR(h halfInstr) fault.Code { p.ACC = p.TagR; return fault.OK }

func (p *Processor) regSetGRM(h halfInstr) fault.Code {
	p.GRM = uint32(p.ACC) & 0xffffff
	return fault.OK
}

func (p *Processor) regReadGRM(h halfInstr) fault.Code { p.ACC = uint64(p.GRM); return fault.OK }

func (p *Processor) regClearGRVP(h halfInstr) fault.Code {
	p.GRVP &= uint32(p.ACC) | grvpWiredBits
	return fault.OK
}

func (p *Processor) regReadGRVP(h halfInstr) fault.Code { p.ACC = uint64(p.GRVP); return fault.OK }

func (p *Processor) regReadIndex(h halfInstr) fault.Code { p.ACC = uint64(p.Index); return fault.OK }

// Inter-processor registers: PP/OPP (this/other processor's presence),
// POP/OPOP (this/other's pending-operation flags), RKP (register of
// the processor requesting an inter-processor interrupt). The real
// writes to PP/OPP additionally kick an IOM/MPD side channel this
// simulator has no model for; only the register value itself is kept.
func (p *Processor) regSetPP(h halfInstr) fault.Code {
	p.PP = uint32(p.ACC) & (ppIomMask | ppCpuMask | ppDataMask)
	return fault.OK
}

func (p *Processor) regSetOPP(h halfInstr) fault.Code {
	p.OPP = uint32(p.ACC) & (ppIomMask | ppCpuMask | ppDataMask)
	return fault.OK
}

func (p *Processor) regClearPOP(h halfInstr) fault.Code {
	p.POP &= uint32(p.ACC) | popConfMT
	return fault.OK
}

func (p *Processor) regReadPOP(h halfInstr) fault.Code { p.ACC = uint64(p.POP); return fault.OK }

func (p *Processor) regClearOPOP(h halfInstr) fault.Code {
	p.OPOP &= uint32(p.ACC)
	return fault.OK
}

func (p *Processor) regReadOPOP(h halfInstr) fault.Code { p.ACC = uint64(p.OPOP); return fault.OK }

func (p *Processor) regSetRKP(h halfInstr) fault.Code {
	p.RKP = uint32(p.ACC) & (ppIomMask | ppCpuMask | rkpMR | rkpMT)
	return fault.OK
}

func (p *Processor) regReadRKP(h halfInstr) fault.Code { p.ACC = uint64(p.RKP); return fault.OK }
