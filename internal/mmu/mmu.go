/*
   SVS memory management unit: virtual-to-physical translation,
   per-page protection, and the tag-check policy the fetch/load/store
   path enforces.

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

// Package mmu implements the paged virtual-memory translation sitting
// between the processor and the word store: two 8-register page
// tables (user and supervisor), a 32-bit protection register, and a
// per-page TLB cache expanded from the page registers on setup.
package mmu

import (
	"github.com/sergev/svs-cpu/internal/fault"
	"github.com/sergev/svs-cpu/internal/word"
)

const (
	numPageRegs   = 8
	subpagesPerRP = 4  // four 12-bit descriptors packed into each 48-bit RP entry
	numLogPages   = numPageRegs * subpagesPerRP
	pageWords     = 1024
	vaddrMask     = (1 << 15) - 1
)

// pageEntry is one expanded TLB slot: the physical page number and
// whether this logical page is currently protected.
type pageEntry struct {
	physPage   uint32
	protected  bool
}

// MMU owns the page-register tables and their expanded TLB caches for
// one processor. It holds no reference to the processor itself; the
// word store it translates into is passed to every operation,
// matching the "shared memory, owned translation" split the processor
// wrapper is built around.
type MMU struct {
	rp  [numPageRegs]uint64 // user page registers
	rps [numPageRegs]uint64 // supervisor page registers
	rz  uint32              // protection register, one bit per logical page

	tlbUser [numLogPages]pageEntry
	tlbSup  [numLogPages]pageEntry

	// BadAddr is the last virtual page number that missed protection,
	// visible to the interrupt handler after a fault.
	BadAddr uint32
}

// New returns a zero-initialized MMU; callers must call Setup once
// page registers are loaded (and again after any SetRP/SetProtection
// call that mutates them in bulk).
func New() *MMU {
	return &MMU{}
}

// SetRP writes one page-register slot (0..7) of the user or
// supervisor table and invalidates the TLB entries it feeds.
func (m *MMU) SetRP(idx int, value uint64, supervisor bool) {
	if supervisor {
		m.rps[idx] = value
	} else {
		m.rp[idx] = value
	}
	m.expandSlot(idx, supervisor)
}

// SetProtection updates 8 bits of RZ at a time, as the hardware's
// "special register" port does, and refreshes the protection flags
// of every TLB entry.
func (m *MMU) SetProtection(byteIdx int, bits uint8) {
	shift := uint(byteIdx) * 8
	m.rz = (m.rz &^ (0xff << shift)) | (uint32(bits) << shift)
	m.refreshProtection()
}

// Setup expands every page register into its TLB entries; call once
// after the page tables are initially loaded.
func (m *MMU) Setup() {
	for i := 0; i < numPageRegs; i++ {
		m.expandSlot(i, false)
		m.expandSlot(i, true)
	}
}

func (m *MMU) expandSlot(idx int, supervisor bool) {
	var reg uint64
	var tlb *[numLogPages]pageEntry
	if supervisor {
		reg = m.rps[idx]
		tlb = &m.tlbSup
	} else {
		reg = m.rp[idx]
		tlb = &m.tlbUser
	}
	for sub := 0; sub < subpagesPerRP; sub++ {
		desc := (reg >> uint(sub*12)) & 0xfff
		logPage := idx*subpagesPerRP + sub
		tlb[logPage].physPage = uint32(desc & 0x3ff)
		tlb[logPage].protected = m.protectedBit(logPage)
	}
}

func (m *MMU) refreshProtection() {
	for i := 0; i < numLogPages; i++ {
		m.tlbUser[i].protected = m.protectedBit(i)
		m.tlbSup[i].protected = m.protectedBit(i)
	}
}

func (m *MMU) protectedBit(logPage int) bool {
	return (m.rz>>uint(logPage))&1 != 0
}

// translate resolves a 15-bit virtual address to a physical word
// address and reports whether the owning logical page is protected.
func (m *MMU) translate(vaddr uint32, supervisor bool) (physAddr uint32, protected bool) {
	vaddr &= vaddrMask
	logPage := int(vaddr) / pageWords
	offset := vaddr % pageWords

	tlb := &m.tlbUser
	if supervisor {
		tlb = &m.tlbSup
	}
	entry := tlb[logPage%numLogPages]
	phys := entry.physPage*pageWords + uint32(offset)
	return phys, entry.protected
}

// Fetch translates vaddr, loads the word, and requires it be tagged
// as an instruction; a protection hit while crossing pages raises
// INSN_PROT, a non-instruction tag raises INSN_CHECK regardless of
// protection.
func (m *MMU) Fetch(store *word.Store, vaddr uint32, supervisor bool) (uint64, uint32, fault.Code) {
	phys, protected := m.translate(vaddr, supervisor)
	w, tag := store.Read(phys)
	if tag != word.TagInsn48 {
		return 0, phys, fault.InsnCheck
	}
	if protected && !supervisor {
		m.BadAddr = vaddr >> 10
		return 0, phys, fault.InsnProt
	}
	return w, phys, fault.OK
}

// Load translates vaddr and loads it as a data value; a page owned by
// another protection domain raises OPERAND_PROT with BadAddr set to
// the offending logical page.
func (m *MMU) Load(store *word.Store, vaddr uint32, supervisor bool) (uint64, fault.Code) {
	phys, protected := m.translate(vaddr, supervisor)
	if protected && !supervisor {
		m.BadAddr = vaddr >> 10
		return 0, fault.OperandProt
	}
	w, _ := store.Read(phys)
	return w, fault.OK
}

// Store translates vaddr and writes value as a NUMBER-tagged word.
func (m *MMU) Store(store *word.Store, vaddr uint32, value uint64, supervisor bool) fault.Code {
	phys, protected := m.translate(vaddr, supervisor)
	if protected && !supervisor {
		m.BadAddr = vaddr >> 10
		return fault.OperandProt
	}
	store.Write(phys, value, word.TagNumber48)
	return fault.OK
}

// Load64 is the supervisor-only 64-bit-wide load used by the two
// full-width opcodes: the low 48 bits come from the addressed word,
// the high 16 from the following physical word.
func (m *MMU) Load64(store *word.Store, vaddr uint32) (low uint64, high uint16, code fault.Code) {
	phys, _ := m.translate(vaddr, true)
	w, _ := store.Read(phys)
	next, _ := store.Read(phys + 1)
	return w, uint16(next & 0xffff), fault.OK
}

// Store64 is Load64's write counterpart.
func (m *MMU) Store64(store *word.Store, vaddr uint32, low uint64, high uint16) fault.Code {
	phys, _ := m.translate(vaddr, true)
	store.Write(phys, low, word.TagNumber48)
	store.Write(phys+1, uint64(high), word.TagNumber48)
	return fault.OK
}
