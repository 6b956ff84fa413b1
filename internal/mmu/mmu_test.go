package mmu

import (
	"testing"

	"github.com/sergev/svs-cpu/internal/fault"
	"github.com/sergev/svs-cpu/internal/word"
)

func TestIdentityMapAfterSetupReadsPhysicalZero(t *testing.T) {
	m := New()
	m.Setup()
	store := word.NewStore()
	store.Write(5, 0o1234567, word.TagInsn48)

	w, phys, code := m.Fetch(store, 5, false)
	if code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if phys != 5 {
		t.Errorf("identity map: phys = %d, want 5", phys)
	}
	if w != 0o1234567 {
		t.Errorf("got word %o, want %o", w, 0o1234567)
	}
}

func TestSetRPRemapsLogicalPage(t *testing.T) {
	m := New()
	m.SetRP(0, 7, false) // subpage 0 of register 0 -> physical page 7, rest -> 0
	store := word.NewStore()
	store.Write(7*pageWords+5, 0o777, word.TagNumber48)

	w, code := m.Load(store, 5, false)
	if code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if w != 0o777 {
		t.Errorf("got %o, want %o", w, 0o777)
	}
}

func TestProtectionBlocksUserNotSupervisor(t *testing.T) {
	m := New()
	m.SetRP(0, 7, false)
	m.SetProtection(0, 0x01) // protect logical page 0
	store := word.NewStore()
	store.Write(7*pageWords+5, 0o42, word.TagNumber48)

	if _, code := m.Load(store, 5, false); code != fault.OperandProt {
		t.Errorf("user load of protected page: got %v, want OperandProt", code)
	}
	if m.BadAddr != 0 {
		t.Errorf("BadAddr = %d, want 0 (the logical page number)", m.BadAddr)
	}
	if _, code := m.Load(store, 5, true); code != fault.OK {
		t.Errorf("supervisor load of protected page: got %v, want OK", code)
	}
}

func TestStoreRespectsProtection(t *testing.T) {
	m := New()
	m.SetRP(0, 7, false)
	m.SetProtection(0, 0x01)
	store := word.NewStore()
	store.Write(7*pageWords+5, 0o654321, word.TagNumber48)

	if code := m.Store(store, 5, 0o1, false); code != fault.OperandProt {
		t.Errorf("user store to protected page: got %v, want OperandProt", code)
	}
	if w := store.ReadWord(7*pageWords + 5); w != 0o654321 {
		t.Errorf("protected store clobbered memory: got %o, want unchanged 0o654321", w)
	}
}

func TestFetchRequiresInsnTagRegardlessOfProtection(t *testing.T) {
	m := New()
	m.Setup()
	store := word.NewStore()
	store.Write(5, 0o1, word.TagNumber48)

	if _, _, code := m.Fetch(store, 5, true); code != fault.InsnCheck {
		t.Errorf("fetch of non-instruction word: got %v, want InsnCheck", code)
	}
}

func TestSetProtectionOnlyTouchesItsOwnByte(t *testing.T) {
	m := New()
	m.SetProtection(0, 0xff)
	m.SetProtection(1, 0x00)
	if !m.protectedBit(0) {
		t.Errorf("page 0 should still be protected")
	}
	if m.protectedBit(8) {
		t.Errorf("page 8 (byte 1) should not be protected")
	}
}
