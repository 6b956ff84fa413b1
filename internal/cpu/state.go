/*
   SVS processor state: registers and the allocate/reset lifecycle.

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

// Package cpu implements one SVS processor: its registers, the
// half-instruction fetch/decode loop, the opcode dispatcher, and the
// interrupt/extracode subsystem built on top of internal/alu and
// internal/mmu.
package cpu

import (
	"log/slog"

	"github.com/sergev/svs-cpu/internal/alu"
	"github.com/sergev/svs-cpu/internal/mmu"
	"github.com/sergev/svs-cpu/internal/word"
)

// Named M[] register indices.
const (
	mMOD  = 16
	mPSW  = 17
	mSPSW = 23
	mERET = 26
	mIRET = 27
	mIBP  = 28
	mDWP  = 29
	mSP   = 15
)

// RUU (control-unit mode register) bits.
const (
	ruuRightInstr = 1 << iota
	ruuModRK
	ruuAvostDisable
	ruuCheckLeft
	ruuCheckRight
	ruuExtracode
	ruuInterrupt
)

// PSW / SPSW bit layout, mirrored in both M[PSW] and M[SPSW].
const (
	pswMapDisable  = 1 << 0
	pswProtDisable = 1 << 1
	pswIntrDisable = 1 << 2
	pswIntrHalt    = 1 << 3
	pswCheckHalt   = 1 << 4
)

// Inter-processor register masks and the RPR/GRVP "wired bits" that
// survive a clear-write. svs_defs.h's exact bit assignments for these
// were not located in the retrieval pack; these values reproduce the
// documented shape (PP/OPP carry an IOM selector, a CPU selector, and
// a data nibble; POP keeps a multiprocessor-configuration bit across
// a clear) rather than a specific bit-for-bit hardware layout. See
// DESIGN.md.
const (
	ppIomMask  = 0x7 << 0
	ppCpuMask  = 0x7 << 3
	ppDataMask = 0xf << 6
	rkpMR      = 1 << 10
	rkpMT      = 1 << 11
	popConfMT  = 1 << 11

	rprWiredBits  = 0
	grvpWiredBits = 0
)

// Processor is one SVS CPU, including its own MMU but sharing the
// word store with any sibling processors the caller composes.
type Processor struct {
	Index int

	PC   uint32 // 15-bit program counter
	RK   uint32 // current half-instruction register
	Aex  uint32 // effective address of the current instruction
	ACC  uint64
	RMR  uint64
	RAU  uint8 // NORM_DISABLE | ROUND_DISABLE | OVF_DISABLE | group(2 bits)
	RUU  uint16

	M [30]uint32 // M[0] is hardwired to 0

	RPR  uint64 // internal interrupt cause register
	GRVP uint32 // external interrupt register
	GRM  uint32 // external interrupt mask
	TagR uint64 // tag register, opcode 002 sub-address 044/0244

	PP, OPP, POP, OPOP, RKP uint32 // inter-processor registers

	ConsoleSwitches uint64

	Mem *word.Store
	MMU *mmu.MMU

	Log *slog.Logger

	// Cycles is a running count of half-instructions executed, the
	// approximate per-instruction tick a caller can use for scheduling
	// without this core modeling real timing.
	Cycles uint64

	stackCorr int32 // pending M[15] correction if the current instruction faults

	// skipClockAdvance is set by any instruction that directly
	// assigns PC (jumps, IRET, extracode entry): the two-phase
	// (PC, RIGHT_INSTR) transition only applies to straight-line
	// execution falling through to the next half-instruction.
	skipClockAdvance bool
}

// Allocate constructs a processor sharing the given memory, with its
// own private MMU.
func Allocate(cpuIndex int, mem *word.Store, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{
		Index: cpuIndex,
		Mem:   mem,
		MMU:   mmu.New(),
		Log:   log.With("cpu", cpuIndex),
	}
	p.Reset()
	return p
}

// Reset zero-initializes registers and sets PSW/SPSW to the
// all-disabled, halted state a freshly powered-on processor starts in.
func (p *Processor) Reset() {
	p.PC = 0
	p.RK = 0
	p.Aex = 0
	p.ACC = 0
	p.RMR = 0
	p.RAU = 0
	p.RUU = 0
	p.Cycles = 0
	for i := range p.M {
		p.M[i] = 0
	}
	p.M[mPSW] = pswMapDisable | pswProtDisable | pswIntrDisable | pswIntrHalt | pswCheckHalt
	p.M[mSPSW] = p.M[mPSW]
	p.RPR = 0
	p.GRVP = 0
	p.GRM = 0
	p.TagR = 0
	p.PP, p.OPP, p.POP, p.OPOP, p.RKP = 0, 0, 0, 0, 0
	p.MMU.Setup()
}

// GetPC / SetPC are the test-harness reflection accessors.
func (p *Processor) GetPC() uint32   { return p.PC }
func (p *Processor) SetPC(addr uint32) { p.PC = addr & 0x7fff }

// StoreData pokes a 48-bit data word into memory with a NUMBER tag,
// bypassing translation (harness access is always physical).
func (p *Processor) StoreData(addr uint32, value uint64) {
	p.Mem.Write(addr, value, word.TagNumber48)
}

// StoreInstruction assembles a 48-bit instruction word from two
// half-instruction triples and pokes it in with an INSN tag.
func (p *Processor) StoreInstruction(addr uint32, regL uint8, opL uint8, addrL uint32, regR uint8, opR uint8, addrR uint32) {
	left := encodeHalf(regL, opL, addrL)
	right := encodeHalf(regR, opR, addrR)
	w := (uint64(left) << 24) | uint64(right)
	p.Mem.Write(addr, w, word.TagInsn48)
}

// encodeHalf takes op in the same numbering opKey/decodeHalf use: the
// real opcode value cpu_one_instr computes, 000..077 octal short form
// or 0200..0370 octal long form (the long-form flag is already folded
// into values at or above 0200, so no separate flag parameter is
// needed). Short form only carries a 12-bit address, whose top three
// bits are force-set from bit 18 rather than included verbatim — the
// same one-way fold decodeHalf performs, reproduced here so a round
// trip through StoreInstruction lands on the address the caller asked
// for whenever it falls within the representable ranges (0x000-0xFFF
// or 0x7000-0x7FFF).
func encodeHalf(reg, op uint8, addr uint32) uint32 {
	addr &= 0x7fff
	h := uint32(reg&0xf) << 20
	if op >= 0200 {
		h |= uint32(op) << 12
		h |= addr
	} else {
		h |= uint32(op&077) << 12
		if addr&0x7000 == 0x7000 {
			h |= 1 << 18
		}
		h |= addr & 0xfff
	}
	return h
}

// auMode reads the three epilogue flags out of RAU.
func (p *Processor) auMode() alu.Mode {
	return alu.Mode{
		NormDisable:  p.RAU&1 != 0,
		RoundDisable: p.RAU&2 != 0,
		OvfDisable:   p.RAU&4 != 0,
	}
}

// setGroup records which RAU group the instruction that just wrote ACC
// belongs to.
func (p *Processor) setGroup(g alu.Group) {
	p.RAU = (p.RAU &^ 0x18) | (uint8(g) << 3)
}

func (p *Processor) supervisor() bool {
	return p.RUU&(ruuExtracode|ruuInterrupt) != 0
}

func (p *Processor) psw() uint32  { return p.M[mPSW] }
func (p *Processor) spsw() uint32 { return p.M[mSPSW] }

// setM writes a modifier register, silently discarding writes to
// M[0] per the hardwired-zero invariant.
func (p *Processor) setM(idx int, value uint32) {
	if idx == 0 {
		return
	}
	p.M[idx] = value & 0x7fff
}
