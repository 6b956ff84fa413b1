/*
   SVS address-match watchpoints: the instruction breakpoint (M[IBP])
   and data watchpoint (M[DWP]) comparisons that turn an otherwise
   ordinary fetch/load/store into an INSN_ADDR_MATCH/LOAD_ADDR_MATCH/
   STORE_ADDR_MATCH fault.

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

// PSW watch-enable bits. spec.md §4.2 names the STORE_ADDR_MATCH
// condition ("the PSW has the write-watch bit") without enumerating it
// alongside the five mode bits §3 lists; these three bits occupy the
// next free positions above pswCheckHalt, one per watch kind, since
// the read side (LOAD_ADDR_MATCH) and the instruction side
// (INSN_ADDR_MATCH) are the same mechanism applied to M[DWP]/M[IBP]
// respectively.
const (
	pswWriteWatch = 1 << 5
	pswReadWatch  = 1 << 6
	pswInsnWatch  = 1 << 7
)

// fetch wraps MMU.Fetch with the instruction-breakpoint comparison
// against M[IBP]: with mapping disabled the breakpoint register is
// compared against the physical address MMU.Fetch returns, otherwise
// against the virtual address, per spec.md's note that address-match
// faults "may be physical or virtual depending on the mapping-disable
// bit".
func (p *Processor) fetch(vaddr uint32) (uint64, uint32, fault.Code) {
	w, phys, code := p.MMU.Fetch(p.Mem, vaddr, p.supervisor())
	if code != fault.OK {
		return w, phys, code
	}
	if p.M[mPSW]&pswInsnWatch != 0 && p.watchAddr(vaddr, phys) == p.M[mIBP] {
		return w, phys, fault.InsnAddrMatch
	}
	return w, phys, fault.OK
}

// load wraps MMU.Load with the read-watchpoint comparison against
// M[DWP].
func (p *Processor) load(vaddr uint32) (uint64, fault.Code) {
	w, code := p.MMU.Load(p.Mem, vaddr, p.supervisor())
	if code != fault.OK {
		return w, code
	}
	if p.M[mPSW]&pswReadWatch != 0 && p.watchAddr(vaddr, vaddr) == p.M[mDWP] {
		return w, fault.LoadAddrMatch
	}
	return w, fault.OK
}

// store wraps MMU.Store with the write-watchpoint comparison against
// M[DWP]. The store itself still completes before the fault is
// reported, matching spec.md's "if ... M[DWP] matches, raise
// STORE_ADDR_MATCH" phrasing (the match is detected on a store that
// happens, not a store that is suppressed).
func (p *Processor) store(vaddr uint32, value uint64) fault.Code {
	code := p.MMU.Store(p.Mem, vaddr, value, p.supervisor())
	if code != fault.OK {
		return code
	}
	if p.M[mPSW]&pswWriteWatch != 0 && p.watchAddr(vaddr, vaddr) == p.M[mDWP] {
		return fault.StoreAddrMatch
	}
	return fault.OK
}

// watchAddr picks the virtual or physical form of an address to
// compare against a breakpoint/watchpoint register, per the
// mapping-disable bit in PSW. physForm is the physical address when
// the caller has already translated one (fetch); for load/store,
// where only the virtual address is in hand, the virtual form is used
// for both cases as a documented simplification (internal/mmu does not
// expose its translated physical address through Load/Store).
func (p *Processor) watchAddr(vaddr, physForm uint32) uint32 {
	if p.M[mPSW]&pswMapDisable != 0 {
		return physForm & 0x7fff
	}
	return vaddr & 0x7fff
}
