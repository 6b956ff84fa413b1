package alu

import (
	"testing"

	"github.com/sergev/svs-cpu/internal/fault"
)

func TestAddCarryRenormalizes(t *testing.T) {
	// 0.5 + 0.5 = 1.0: mantissa 1<<39 at exponent 64 (true exponent 0)
	// on both sides; the sum carries out of the mantissa field and the
	// epilogue must absorb that carry into the exponent.
	half := packWord(64, 0, 1<<39)
	res := Add(Mode{}, AddNormal, half, 0, half)
	want := packWord(65, 0, 1<<39)
	if res.Fault != fault.OK {
		t.Fatalf("unexpected fault: %v", res.Fault)
	}
	if res.Acc != want {
		t.Errorf("0.5+0.5: got acc %#o, want %#o", res.Acc, want)
	}
}

func TestAddSubtractToZeroCollapses(t *testing.T) {
	half := packWord(64, 0, 1<<39)
	res := Add(Mode{}, AddSubtract, half, 0, half)
	if res.Fault != fault.OK {
		t.Fatalf("unexpected fault: %v", res.Fault)
	}
	if res.Acc != 0 {
		t.Errorf("x-x: got acc %#o, want 0", res.Acc)
	}
}

func TestMultiplyExactProduct(t *testing.T) {
	// Scenario fixed in the documented test suite: a known product
	// whose high/low halves are given bit-for-bit. Normalization and
	// rounding are disabled so the raw product (high half 0, low half
	// 0o101) is kept as computed.
	acc := uint64(0o6400_0000_0000_0005)
	val := uint64(0o2400_0000_0000_0015)
	res := Multiply(Mode{NormDisable: true, RoundDisable: true}, acc, 0, val)
	want := uint64(0o5000_0000_0000_0000)
	if res.Fault != fault.OK {
		t.Fatalf("unexpected fault: %v", res.Fault)
	}
	if res.Acc != want {
		t.Errorf("multiply: got acc %#o, want %#o", res.Acc, want)
	}
}

func TestMultiplyByZeroIsZero(t *testing.T) {
	acc := packWord(64, 0, 1<<39)
	rmrIn := uint64(0xff)<<40 | 0o777 // high bits (48..41) plus low mantissa noise
	res := Multiply(Mode{}, acc, rmrIn, 0)
	if res.Acc != 0 {
		t.Errorf("x*0: got acc %#o, want 0", res.Acc)
	}
	wantRmr := rmrIn &^ uint64(Mask40)
	if res.Rmr != wantRmr {
		t.Errorf("x*0: rmr = %#x, want high bits preserved and low 40 cleared: %#x", res.Rmr, wantRmr)
	}
	if res.Rmr&Mask40 != 0 {
		t.Errorf("x*0: low 40 bits of rmr not cleared: %#x", res.Rmr)
	}
}

func TestDivideByDenormalizedRaisesDivZero(t *testing.T) {
	acc := uint64(0o4110_0000_0000_0000)
	val := uint64(0o2000_0000_0000_0000)
	res := Divide(Mode{}, acc, 0, val)
	if res.Fault != fault.DivZero {
		t.Errorf("got fault %v, want DivZero", res.Fault)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	mask := uint64(0o525252525252) // alternating bits
	value := uint64(0o777000111222) & Mask48
	packed := Pack(value, mask)
	got := Unpack(packed, mask)
	want := value & mask
	if got != want {
		t.Errorf("unpack(pack(v,m),m) = %#o, want %#o", got, want)
	}
}

func TestCountOnesMatchesPopcountIdentity(t *testing.T) {
	v := uint64(0o654321012345)
	full := CountOnes(v)
	bit48 := (v >> 47) & 1
	rest := CountOnes(v &^ (uint64(1) << 47))
	if full != rest+bit48 {
		t.Errorf("count_ones(w) != count_ones(w &^ bit48) + bit48: %d != %d+%d", full, rest, bit48)
	}
}

func TestHighestBitConvention(t *testing.T) {
	cases := []struct {
		mantissa uint64
		want     int
	}{
		{0, 0},
		{1, 1},
		{1 << 39, 40},
		{Mask40, 40},
	}
	for _, c := range cases {
		if got := HighestBit(c.mantissa); got != c.want {
			t.Errorf("HighestBit(%#o) = %d, want %d", c.mantissa, got, c.want)
		}
	}
}

func TestShiftLeftThenRightRestoresWhenNothingLost(t *testing.T) {
	acc := packWord(64, 0, 1<<20)
	var rmr uint64
	acc2, rmr2 := Shift(acc, rmr, 10)
	acc3, rmr3 := Shift(acc2, rmr2, -10)
	if acc3 != acc || rmr3 != rmr {
		t.Errorf("shift(shift(acc,+10),-10) = (%#o,%#o), want (%#o,%#o)", acc3, rmr3, acc, rmr)
	}
}

func TestShiftByZeroIsIdentity(t *testing.T) {
	acc := packWord(70, 1, 0o1234567012)
	rmr := uint64(0o7654321)
	gotAcc, gotRmr := Shift(acc, rmr, 0)
	if gotAcc != acc || gotRmr != rmr {
		t.Errorf("shift by 0 changed state: acc %#o->%#o rmr %#o->%#o", acc, gotAcc, rmr, gotRmr)
	}
}

func TestChangeSignFlipsSignBit(t *testing.T) {
	acc := packWord(64, 0, 1<<39)
	res := ChangeSign(Mode{}, acc)
	if UnpackSign(res.Acc) != 1 {
		t.Errorf("ChangeSign did not set sign bit: %#o", res.Acc)
	}
}

func TestAddExponentPreservesMantissaAndClearsRmr(t *testing.T) {
	acc := packWord(64, 0, 1<<39)
	res := AddExponent(Mode{}, acc, 3)
	if UnpackExponent(res.Acc) != 67 {
		t.Errorf("exponent = %d, want 67", UnpackExponent(res.Acc))
	}
	if UnpackMantissa(res.Acc) != 1<<39 {
		t.Errorf("mantissa changed: %#o", UnpackMantissa(res.Acc))
	}
	if res.Rmr != 0 {
		t.Errorf("rmr = %#o, want 0 (e+n/e-n/yta's own caller restores it when needed)", res.Rmr)
	}
}
