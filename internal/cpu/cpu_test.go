package cpu

import (
	"testing"

	"github.com/sergev/svs-cpu/internal/fault"
	"github.com/sergev/svs-cpu/internal/word"
)

func newTestProcessor() *Processor {
	return Allocate(0, word.NewStore(), nil)
}

func TestM0HardwiredZero(t *testing.T) {
	p := newTestProcessor()
	p.setM(0, 0o1234)
	if p.M[0] != 0 {
		t.Fatalf("setM(0, ...) wrote M[0]: %o", p.M[0])
	}

	// uj at address 0o10 targeting itself, reg=0 (would write M[0] if
	// the dispatcher ever let an instruction address it).
	p.StoreInstruction(0o10, 0, opUj, 0o10, 0, opUj, 0o10)
	p.SetPC(0o10)
	if code := p.Step(); code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if p.M[0] != 0 {
		t.Errorf("M[0] corrupted after Step: %o", p.M[0])
	}
}

func TestOpRegRequiresSupervisorMode(t *testing.T) {
	p := newTestProcessor()
	if p.supervisor() {
		t.Fatal("fresh processor should not start in supervisor mode")
	}
	p.ACC = 0o777
	p.StoreInstruction(0o20, 0, opReg, regSetRUU, 0, opUj, 0o20)
	p.SetPC(0o20)

	code := p.Step()
	if code != fault.BadCmd {
		t.Fatalf("opReg outside supervisor mode: got %v, want BadCmd", code)
	}
	if p.RUU != 0 {
		t.Errorf("opReg had a side effect despite being rejected: RUU=%#x", p.RUU)
	}
}

func TestUnconditionalJump(t *testing.T) {
	p := newTestProcessor()
	const target = uint32(0o74321) // high octal digit already 7, so the
	// short-form legacy sign-extension (bit 18 forces bits 14..12 to 1)
	// is a no-op here.
	p.StoreInstruction(0o10, 0, opUj, target, 0, opUj, target)
	p.SetPC(0o10)

	if code := p.Step(); code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if p.GetPC() != target {
		t.Errorf("uj: PC = %o, want %o", p.GetPC(), target)
	}
	if p.RUU&ruuRightInstr != 0 {
		t.Errorf("uj must resume at the left half: RUU=%#x", p.RUU)
	}
}

func TestVtmVzmV1m(t *testing.T) {
	p := newTestProcessor()
	const (
		w0 = 0o20
		w1 = 0o21
		w2 = 0o22
	)
	const vzmTarget = 0o7123
	const v1mTarget = 0o7456

	// w0: vtm M[1] := 0o1234 | vzm on M[2] (M[2]==0, branch taken)
	p.StoreInstruction(w0, 1, opVtm, 0o1234, 2, opVzm, vzmTarget)
	// w1 (reached only if the vzm branch misfires): poison value.
	p.StoreInstruction(w1, 0, opUj, 0o77777, 0, opUj, 0o77777)
	// at vzmTarget: vtm M[3] := 5, then v1m on M[3] (M[3]!=0, branch
	// taken). v1m's reg field names the modifier it tests and does not
	// feed address formation, so its addr operand is v1mTarget itself.
	p.StoreInstruction(vzmTarget, 3, opVtm, 5, 3, opV1m, v1mTarget)

	// Both targets lie in logical page 3; give pages 0..3 an identity
	// mapping so the fetches there read what StoreInstruction wrote.
	p.MMU.SetRP(0, 1<<12|2<<24|3<<36, false)
	p.SetPC(w0)

	if code := p.Step(); code != fault.OK { // vtm M[1]
		t.Fatalf("vtm: unexpected fault %v", code)
	}
	if p.M[1] != 0o1234 {
		t.Fatalf("vtm: M[1] = %o, want %o", p.M[1], 0o1234)
	}

	if code := p.Step(); code != fault.OK { // vzm M[2] (zero, branches)
		t.Fatalf("vzm: unexpected fault %v", code)
	}
	if p.GetPC() != vzmTarget {
		t.Fatalf("vzm: PC = %o, want %o (branch on zero M[2])", p.GetPC(), vzmTarget)
	}

	if code := p.Step(); code != fault.OK { // vtm M[3] := 5
		t.Fatalf("vtm: unexpected fault %v", code)
	}
	if p.M[3] != 5 {
		t.Fatalf("vtm: M[3] = %o, want 5", p.M[3])
	}

	if code := p.Step(); code != fault.OK { // v1m M[3] (non-zero, branches)
		t.Fatalf("v1m: unexpected fault %v", code)
	}
	if p.GetPC() != v1mTarget {
		t.Fatalf("v1m: PC = %o, want %o (branch on non-zero M[3])", p.GetPC(), v1mTarget)
	}
}

func TestVlmLoopWithArxAccumulate(t *testing.T) {
	p := newTestProcessor()

	// arx is a short-form opcode, so an address above 0o7777 is only
	// reachable through the legacy bit-18 sign extension, which puts
	// dataAddr in the top 4096 words (0o70000..0o77777); give that range
	// an identity mapping so StoreData's physical write matches what
	// arx's MMU.Load resolves.
	const identityReg = 7
	var rpValue uint64
	for sub := 0; sub < 4; sub++ {
		physPage := uint64(28 + sub)
		rpValue |= physPage << uint(sub*12)
	}
	p.MMU.SetRP(identityReg, rpValue, false)

	const loopAddr = 0o100
	const dataAddr = 0o70010
	const idxReg = 5
	const iterations = 4096

	p.StoreData(dataAddr, 1)
	// M[idxReg] = -4096 in 15-bit two's complement.
	p.M[idxReg] = uint32(0o70000)
	p.StoreInstruction(loopAddr, 0, opArx, dataAddr, idxReg, opVlm, loopAddr)
	p.SetPC(loopAddr)

	for i := 0; i < iterations*2; i++ {
		if code := p.Step(); code != fault.OK {
			t.Fatalf("iteration %d: unexpected fault %v", i, code)
		}
	}

	if p.ACC != iterations {
		t.Errorf("ACC = %o, want %o (sum of %d ones)", p.ACC, iterations, iterations)
	}
	if p.M[idxReg] != 0 {
		t.Errorf("M[%d] = %o, want 0 (loop counter reached zero)", idxReg, p.M[idxReg])
	}
	if p.GetPC() != loopAddr+1 {
		t.Errorf("PC = %o, want %o (fell through after the loop exited)", p.GetPC(), loopAddr+1)
	}
}

func TestDivideByDenormalizedHaltsWithDivZero(t *testing.T) {
	p := newTestProcessor()
	const valAddr = 0o100
	const acc = uint64(0o4110_0000_0000_0000)
	const val = uint64(0o2000_0000_0000_0000)

	p.ACC = acc
	p.StoreData(valAddr, val)
	p.StoreInstruction(0o20, 0, opDivA, valAddr, 0, opUj, 0o20)
	p.SetPC(0o20)

	// PSW.CHECK_HALT is set by Reset, so Step must surface DivZero
	// directly rather than deliver it as an internal interrupt.
	code := p.Step()
	if code != fault.DivZero {
		t.Fatalf("divide by denormalized: got %v, want DivZero", code)
	}
}

func TestMultiplyExactProductThenYta(t *testing.T) {
	p := newTestProcessor()
	const valAddr = 0o100
	const acc = uint64(0o6400_0000_0000_0005)
	const val = uint64(0o2400_0000_0000_0015)
	const want = uint64(0o5000_0000_0000_0000)

	// RAU = NormDisable|RoundDisable, so the raw product is kept.
	p.RAU = 3
	p.ACC = acc
	p.StoreData(valAddr, val)
	p.StoreInstruction(0o20, 0, opMulA, valAddr, 0, opUj, 0o777)
	p.SetPC(0o20)

	if code := p.Step(); code != fault.OK {
		t.Fatalf("multiply: unexpected fault %v", code)
	}
	if p.ACC != want {
		t.Fatalf("multiply: ACC = %#o, want %#o", p.ACC, want)
	}
	rmrAfterMul := p.RMR

	// yta with Aex=0o100: exponent delta is (0o100&0x7f)-64 = 0, so the
	// multiplicative-group branch leaves the exponent untouched and
	// swaps RMR's low 40 bits in as the new mantissa. The multiply ran
	// as a left half, which left the right-half bit set; clear it so
	// the yta in the left half of 0o21 is the one fetched.
	p.StoreInstruction(0o21, 0, opYta, 0o100, 0, opUj, 0o777)
	p.SetPC(0o21)
	p.RUU &^= ruuRightInstr
	if code := p.Step(); code != fault.OK {
		t.Fatalf("yta: unexpected fault %v", code)
	}
	wantMantissa := rmrAfterMul & 0xffffffffff // alu.Mask40
	if p.ACC&0xffffffffff != wantMantissa {
		t.Errorf("yta: mantissa = %#o, want %#o (from RMR)", p.ACC&0xffffffffff, wantMantissa)
	}
	if (p.ACC>>41)&0x7f != (want>>41)&0x7f {
		t.Errorf("yta: exponent changed, got %o, want unchanged %o", (p.ACC>>41)&0x7f, (want>>41)&0x7f)
	}
}

func TestStackPushPopLIFO(t *testing.T) {
	p := newTestProcessor()
	const (
		w0 = 0o300
		w1 = 0o301
		w2 = 0o302
	)
	const initialSP = 0o200
	const v1, v2, v3 = uint64(0o111), uint64(0o222), uint64(0o333)

	p.M[mSP] = initialSP
	p.StoreInstruction(w0, 15, opAtx, 0, 15, opAtx, 0)
	p.StoreInstruction(w1, 15, opAtx, 0, 15, opXta, 0)
	p.StoreInstruction(w2, 15, opXta, 0, 15, opXta, 0)
	p.SetPC(w0)

	p.ACC = v1
	if code := p.Step(); code != fault.OK { // push v1
		t.Fatalf("push v1: unexpected fault %v", code)
	}
	p.ACC = v2
	if code := p.Step(); code != fault.OK { // push v2
		t.Fatalf("push v2: unexpected fault %v", code)
	}
	p.ACC = v3
	if code := p.Step(); code != fault.OK { // push v3
		t.Fatalf("push v3: unexpected fault %v", code)
	}
	if p.M[mSP] != initialSP+3 {
		t.Fatalf("after 3 pushes: M[15] = %o, want %o", p.M[mSP], initialSP+3)
	}

	if code := p.Step(); code != fault.OK { // pop -> v3
		t.Fatalf("pop 1: unexpected fault %v", code)
	}
	if p.ACC != v3 {
		t.Errorf("pop 1: ACC = %o, want %o (LIFO)", p.ACC, v3)
	}
	if code := p.Step(); code != fault.OK { // pop -> v2
		t.Fatalf("pop 2: unexpected fault %v", code)
	}
	if p.ACC != v2 {
		t.Errorf("pop 2: ACC = %o, want %o (LIFO)", p.ACC, v2)
	}
	if code := p.Step(); code != fault.OK { // pop -> v1
		t.Fatalf("pop 3: unexpected fault %v", code)
	}
	if p.ACC != v1 {
		t.Errorf("pop 3: ACC = %o, want %o (LIFO)", p.ACC, v1)
	}
	if p.M[mSP] != initialSP {
		t.Errorf("after 3 pops: M[15] = %o, want restored %o", p.M[mSP], initialSP)
	}
}

func TestCyclesIncrementsPerHalfInstruction(t *testing.T) {
	p := newTestProcessor()
	p.StoreInstruction(0o10, 0, opVtm, 1, 0, opVtm, 2)
	p.SetPC(0o10)
	if p.Cycles != 0 {
		t.Fatalf("fresh processor Cycles = %d, want 0", p.Cycles)
	}
	if code := p.Step(); code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if p.Cycles != 1 {
		t.Errorf("Cycles after 1 half-instruction = %d, want 1", p.Cycles)
	}
	if code := p.Step(); code != fault.OK {
		t.Fatalf("unexpected fault: %v", code)
	}
	if p.Cycles != 2 {
		t.Errorf("Cycles after 2 half-instructions = %d, want 2", p.Cycles)
	}
	p.Reset()
	if p.Cycles != 0 {
		t.Errorf("Cycles after Reset = %d, want 0", p.Cycles)
	}
}
