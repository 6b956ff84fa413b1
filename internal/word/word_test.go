package word

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	s := NewStore()
	s.Write(100, 0o123456701234, TagInsn48)
	w, tag := s.Read(100)
	if w != 0o123456701234 {
		t.Errorf("got word %o, want %o", w, 0o123456701234)
	}
	if tag != TagInsn48 {
		t.Errorf("got tag %d, want %d", tag, TagInsn48)
	}
}

func TestWriteMasksTo48Bits(t *testing.T) {
	s := NewStore()
	s.Write(0, ^uint64(0), TagNumber48)
	if w := s.ReadWord(0); w != Mask48 {
		t.Errorf("got %#x, want %#x", w, uint64(Mask48))
	}
}

func TestZeroValueIsCleanStore(t *testing.T) {
	s := NewStore()
	w, tag := s.Read(12345)
	if w != 0 || tag != TagNumber48 {
		t.Errorf("fresh store cell not zero: word=%o tag=%d", w, tag)
	}
}

func TestIndependentAddressesDoNotAlias(t *testing.T) {
	s := NewStore()
	s.Write(1, 0o7777, TagNumber48)
	s.Write(2, 0o1111, TagInsn48)
	if w := s.ReadWord(1); w != 0o7777 {
		t.Errorf("address 1 got clobbered: %o", w)
	}
	if w := s.ReadWord(2); w != 0o1111 {
		t.Errorf("address 2 got clobbered: %o", w)
	}
}
