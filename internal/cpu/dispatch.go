/*
   SVS dispatch loop: the opcode table and the per-instruction
   fetch/execute/interrupt-check cycle.

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

// Primary opcode numbering: the bit-exact values cpu_one_instr in the
// companion reference (svs_cpu.c) switches on, not an independent
// allocation. Short-form opcodes occupy 000..077 octal; long-form
// opcodes occupy 0200..0370 in steps of 010 octal and, because bit 19
// (the long-form flag) is folded into the value itself, never collide
// with the short-form range. 050..077, 0200 and 0210 are not real
// instructions: they trap into the extracode entry point through
// opExtracode, the same doExtracode path a user-mode stop takes. Any
// other unassigned slot dispatches to opBadCmd.
const (
	opAtx     = 0000 // зп
	opStx     = 0001 // зпм
	opReg     = 0002 // рег — supervisor-only, fans out by Aex&0377
	opXts     = 0003 // счм
	opAplusX  = 0004 // сл, a+x
	opAminusX = 0005 // вч, a-x
	opXminusA = 0006 // вчоб, x-a
	opAmx     = 0007 // вчаб, amx
	opXta     = 0010 // сч
	opAax     = 0011 // и, aax
	opAex     = 0012 // нтж, aex
	opArx     = 0013 // слц, arx
	opAvx     = 0014 // знак, avx
	opAox     = 0015 // или, aox
	opDivA    = 0016 // дел, a/x
	opMulA    = 0017 // умн, a*x
	opApx     = 0020 // сбр, apx
	opAux     = 0021 // рзб, aux
	opAcx     = 0022 // чед, acx
	opAnx     = 0023 // нед, anx
	opEplusX  = 0024 // слп, e+x
	opEminusX = 0025 // вчп, e-x
	opAsx     = 0026 // сд, asx
	opXtr     = 0027 // рж, xtr
	opRte     = 0030 // счрж, rte
	opYta     = 0031 // счмр, yta
	opSt64    = 0032 // зпп — supervisor-only full-width store
	opLd64    = 0033 // счп — supervisor-only full-width load
	opEplusN  = 0034 // слпа, e+n
	opEminusN = 0035 // вчпа, e-n
	opAsn     = 0036 // сда, asn
	opNtr     = 0037 // ржа, ntr
	opAti     = 0040 // уи, ati
	opSti     = 0041 // уим, sti
	opIta     = 0042 // счи, ita
	opIts     = 0043 // счим, its
	opMtj     = 0044 // уии, mtj
	opJplusM  = 0045 // сли, j+m
	opSop     = 0046 // соп — supervisor-only special memory access
	opX47     = 0047 // э47 — supervisor-only M-register add

	opUtc  = 0220 // мода, utc
	opWtc  = 0230 // мод, wtc
	opVtm  = 0240 // уиа, vtm
	opUtm  = 0250 // слиа, utm
	opUza  = 0260 // по, uza
	opU1a  = 0270 // пе, u1a
	opUj   = 0300 // пб, uj
	opVjm  = 0310 // пв, vjm
	opIret = 0320 // выпр, iret
	opStop = 0330 // стоп, stop
	opVzm  = 0340 // пио, vzm
	opV1m  = 0350 // пино, v1m
	opVzm2 = 0360 // э36 — vzm that also pushes the return-address stack
	opVlm  = 0370 // цикл, vlm
)

type handler func(p *Processor, h halfInstr) fault.Code

var opcodeTable [256]handler

func init() {
	for i := range opcodeTable {
		opcodeTable[i] = (*Processor).opBadCmd
	}
	opcodeTable[opAtx] = (*Processor).opAtx
	opcodeTable[opStx] = (*Processor).opStx
	opcodeTable[opReg] = (*Processor).opReg
	opcodeTable[opXts] = (*Processor).opXts
	opcodeTable[opAplusX] = (*Processor).opAdd
	opcodeTable[opAminusX] = (*Processor).opAdd
	opcodeTable[opXminusA] = (*Processor).opAdd
	opcodeTable[opAmx] = (*Processor).opAdd
	opcodeTable[opXta] = (*Processor).opXta
	opcodeTable[opAax] = (*Processor).opLogical
	opcodeTable[opAex] = (*Processor).opLogical
	opcodeTable[opArx] = (*Processor).opArx
	opcodeTable[opAvx] = (*Processor).opAvx
	opcodeTable[opAox] = (*Processor).opLogical
	opcodeTable[opDivA] = (*Processor).opDiv
	opcodeTable[opMulA] = (*Processor).opMul
	opcodeTable[opApx] = (*Processor).opApx
	opcodeTable[opAux] = (*Processor).opAux
	opcodeTable[opAcx] = (*Processor).opAcx
	opcodeTable[opAnx] = (*Processor).opAnx
	opcodeTable[opEplusX] = (*Processor).opEplusX
	opcodeTable[opEminusX] = (*Processor).opEplusX
	opcodeTable[opAsx] = (*Processor).opAsx
	opcodeTable[opXtr] = (*Processor).opXtr
	opcodeTable[opRte] = (*Processor).opRte
	opcodeTable[opYta] = (*Processor).opYta
	opcodeTable[opSt64] = (*Processor).opSt64
	opcodeTable[opLd64] = (*Processor).opLd64
	opcodeTable[opEplusN] = (*Processor).opEplusN
	opcodeTable[opEminusN] = (*Processor).opEplusN
	opcodeTable[opAsn] = (*Processor).opAsn
	opcodeTable[opNtr] = (*Processor).opNtr
	opcodeTable[opAti] = (*Processor).opAti
	opcodeTable[opSti] = (*Processor).opSti
	opcodeTable[opIta] = (*Processor).opIta
	opcodeTable[opIts] = (*Processor).opIts
	opcodeTable[opMtj] = (*Processor).opMtj
	opcodeTable[opJplusM] = (*Processor).opJplusM
	opcodeTable[opSop] = (*Processor).opSop
	opcodeTable[opX47] = (*Processor).opX47
	for op := 0o50; op <= 0o77; op++ {
		opcodeTable[op] = (*Processor).opExtracode
	}
	opcodeTable[0200] = (*Processor).opExtracode
	opcodeTable[0210] = (*Processor).opExtracode
	opcodeTable[opUtc] = (*Processor).opUtc
	opcodeTable[opWtc] = (*Processor).opWtc
	opcodeTable[opVtm] = (*Processor).opVtm
	opcodeTable[opUtm] = (*Processor).opUtm
	opcodeTable[opUza] = (*Processor).opUza
	opcodeTable[opU1a] = (*Processor).opUza
	opcodeTable[opUj] = (*Processor).opUj
	opcodeTable[opVjm] = (*Processor).opVjm
	opcodeTable[opIret] = (*Processor).opIret
	opcodeTable[opStop] = (*Processor).opStop
	opcodeTable[opVzm] = (*Processor).opVzm
	opcodeTable[opV1m] = (*Processor).opVzm
	opcodeTable[opVzm2] = (*Processor).opVzm
	opcodeTable[opVlm] = (*Processor).opVlm
}

// opKey maps a decoded half-instruction to its primary opcode table
// slot. Since the real opcode field already uniquely identifies the
// instruction (short and long form never share a value), this is the
// decoded opcode itself.
func opKey(h halfInstr) uint8 {
	return h.opcode
}

// Step executes exactly one half-instruction: fetch, address
// formation, dispatch, post-instruction interrupt check. It returns a
// non-OK status only when the instruction caused the simulator to
// stop (HALT, a debugger stop, or an unrecoverable condition);
// internal interrupts delivered in response to a fault are handled
// internally and Step returns fault.OK so the caller's loop continues.
func (p *Processor) Step() fault.Code {
	h, code := p.fetchHalf()
	if code != fault.OK {
		return p.enterFault(code)
	}

	p.RK = uint32(h.opcode)
	p.Aex = p.effectiveAddress(h)
	p.Log.Debug("insn", "pc", p.PC, "op", h.opcode, "aex", p.Aex)
	p.stackCorr = 0
	p.skipClockAdvance = false

	handlerFn := opcodeTable[opKey(h)]
	code = handlerFn(p, h)
	p.Cycles++

	if code != fault.OK {
		if code == fault.Halt {
			return fault.Halt
		}
		p.unwindStack()
		return p.enterFault(code)
	}

	if p.skipClockAdvance {
		// A jump target always resumes at the left half of its word.
		p.RUU &^= ruuRightInstr
	} else {
		p.advanceClock()
	}
	p.M[0] = 0

	if intrCode := p.checkPendingInterrupts(); intrCode != fault.OK {
		return intrCode
	}
	return fault.OK
}

// Run drives Step in a loop until a stop condition is reached.
func (p *Processor) Run() fault.Code {
	for {
		if code := p.Step(); code != fault.OK {
			return code
		}
	}
}

func (p *Processor) opBadCmd(_ halfInstr) fault.Code { return fault.BadCmd }

// unwindStack restores M[15] if the faulted instruction had already
// applied its stack-pointer side effect (the corr_stack mechanism).
func (p *Processor) unwindStack() {
	if p.stackCorr != 0 {
		p.M[mSP] = uint32(int32(p.M[mSP]) - p.stackCorr)
		p.stackCorr = 0
	}
}
