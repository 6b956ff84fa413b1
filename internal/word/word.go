/*
   SVS word & tag store: the byte-exact 2^20-entry memory container.

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

// Package word implements the SVS word & tag store: a 2^20-entry array
// of 48-bit words, each paired with a 5-bit tag. It is a byte-exact
// container with no semantics beyond read/write, and is an owned,
// constructible type so a process can host more than one independent
// memory at once.
package word

// NumWords is 2^20 physical words.
const NumWords = 1 << 20

// Mask48 keeps a value within the 48-bit word width.
const Mask48 = (1 << 48) - 1

// Tag values. The core distinguishes at minimum these three groups;
// BitsetGroup covers structured/bitset-tagged data the core does not
// otherwise interpret.
type Tag uint8

const (
	TagNumber48 Tag = iota
	TagInsn48
	TagBitsetGroup
)

// Store is one simulator instance's physical memory: NumWords 48-bit
// words plus their tags. Out-of-range access is a programming error —
// the MMU guarantees it cannot happen — so Read/Write do not
// bounds-check; callers index only through physical addresses the MMU
// produced.
type Store struct {
	words [NumWords]uint64
	tags  [NumWords]Tag
}

// NewStore allocates a zero-initialized physical memory.
func NewStore() *Store {
	return &Store{}
}

// Read returns the word and tag at a physical address. Tag-write and
// word-write for a given address are always performed together (see
// Write), so a Read always observes a consistent (word, tag) pair:
// a subsequent load sees both the new word and its new tag, or
// neither.
func (s *Store) Read(physAddr uint32) (uint64, Tag) {
	return s.words[physAddr] & Mask48, s.tags[physAddr]
}

// Write stores a word and its tag atomically with respect to Read.
func (s *Store) Write(physAddr uint32, value uint64, tag Tag) {
	s.words[physAddr] = value & Mask48
	s.tags[physAddr] = tag
}

// ReadWord is a convenience for callers that already know the tag is
// irrelevant (e.g. test fixtures poking raw memory).
func (s *Store) ReadWord(physAddr uint32) uint64 {
	return s.words[physAddr] & Mask48
}
