/*
   SVS fault channel: status codes shared by the ALU, MMU and CPU.

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

// Package fault carries the non-local exit taken by the ALU, MMU and
// decoder back to the single dispatch-loop match point. Every core
// operation returns a Code instead of panicking or using error
// wrapping; zero means no fault.
package fault

// Code is a status/fault code. Zero means no fault occurred.
type Code uint16

// Status codes, stable ABI values.
const (
	OK Code = iota
	Halt
	IBkpt
	RWatch
	WWatch
	Runout
	BadCmd
	InsnCheck
	InsnProt
	OperandProt
	RAMCheck
	CacheCheck
	Ovfl
	DivZero
	DoubleIntr
	DrumInvData
	DiskInvData
	InsnAddrMatch
	LoadAddrMatch
	StoreAddrMatch
	Unimplemented
)

var names = map[Code]string{
	OK:             "OK",
	Halt:           "HALT",
	IBkpt:          "IBKPT",
	RWatch:         "RWATCH",
	WWatch:         "WWATCH",
	Runout:         "RUNOUT",
	BadCmd:         "BADCMD",
	InsnCheck:      "INSN_CHECK",
	InsnProt:       "INSN_PROT",
	OperandProt:    "OPERAND_PROT",
	RAMCheck:       "RAM_CHECK",
	CacheCheck:     "CACHE_CHECK",
	Ovfl:           "OVFL",
	DivZero:        "DIVZERO",
	DoubleIntr:     "DOUBLE_INTR",
	DrumInvData:    "DRUMINVDATA",
	DiskInvData:    "DISKINVDATA",
	InsnAddrMatch:  "INSN_ADDR_MATCH",
	LoadAddrMatch:  "LOAD_ADDR_MATCH",
	StoreAddrMatch: "STORE_ADDR_MATCH",
	Unimplemented:  "UNIMPLEMENTED",
}

// String renders the stable mnemonic, not the numeric value, so logs
// and test failures read like the hardware reference manual.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "UNKNOWN_FAULT"
}

// Error satisfies error so a Code can be passed to log/slog or wrapped
// in a Go error at the harness boundary; the dispatcher itself never
// compares with errors.Is, only switches on the concrete Code.
func (c Code) Error() string {
	return c.String()
}

// Class groups fault codes by how the dispatch loop must react, so it
// can decide HALT-vs-interrupt with one lookup instead of scattering
// per-code conditionals.
type Class int

const (
	ClassNone Class = iota
	ClassTermination
	ClassDebuggerStop
	ClassInternalInterrupt
	ClassCheck
	ClassUnrecoverable
	ClassUnimplemented
)

// ClassOf reports which taxonomy row a fault belongs to.
func ClassOf(c Code) Class {
	switch c {
	case OK:
		return ClassNone
	case Halt:
		return ClassTermination
	case IBkpt, RWatch, WWatch:
		return ClassDebuggerStop
	case BadCmd, InsnProt, InsnAddrMatch, LoadAddrMatch, StoreAddrMatch, OperandProt:
		return ClassInternalInterrupt
	case InsnCheck, RAMCheck, CacheCheck, Ovfl, DivZero:
		return ClassCheck
	case DoubleIntr, Runout:
		return ClassUnrecoverable
	case Unimplemented:
		return ClassUnimplemented
	default:
		return ClassUnrecoverable
	}
}

// AdvancesPC reports whether this fault's interrupt entry must skip
// past the faulting half-instruction (toggle RIGHT_INSTR, bump PC) so
// that IRET resumes at the following instruction.
func AdvancesPC(c Code) bool {
	switch c {
	case OperandProt, InsnAddrMatch, LoadAddrMatch, StoreAddrMatch, InsnProt:
		return true
	default:
		return false
	}
}

// InternalInterruptBit is the RPR bit (or bits) set when the dispatch
// loop converts a fault of the internal-interrupt or check class into
// a delivered internal interrupt.
func InternalInterruptBit(c Code) uint64 {
	switch c {
	case BadCmd:
		return rprIllInsn
	case InsnCheck:
		return rprInsnCheck
	case InsnProt:
		return rprInsnProt
	case OperandProt:
		return rprOprndProt
	case RAMCheck:
		return rprRAMCheck
	case CacheCheck:
		return rprCacheCheck
	case Ovfl:
		return rprOverflow | rprRAMCheck
	case DivZero:
		return rprDivZero | rprRAMCheck
	case IBkpt, InsnAddrMatch:
		return rprBreakpoint
	case RWatch, LoadAddrMatch:
		return rprWatchR
	case WWatch, StoreAddrMatch:
		return rprWatchW
	default:
		return 0
	}
}

// RPR bit layout: a 48-bit OR-accumulation of internal-interrupt
// causes.
const (
	rprIllInsn     uint64 = 1 << 0
	rprInsnCheck   uint64 = 1 << 1
	rprInsnProt    uint64 = 1 << 2
	rprOprndProt   uint64 = 1 << 3
	rprRAMCheck    uint64 = 1 << 4
	rprCacheCheck  uint64 = 1 << 5
	rprOverflow    uint64 = 1 << 6
	rprDivZero     uint64 = 1 << 7
	rprWatchR      uint64 = 1 << 8
	rprWatchW      uint64 = 1 << 9
	rprBreakpoint  uint64 = 1 << 10
	rprPageNumber  uint64 = 0x3f << 11 // page-number sub-field
	rprBlockNumber uint64 = 0x1f << 17 // block-number sub-field
)
