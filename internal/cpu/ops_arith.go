/*
   SVS opcodes: the arithmetic family (add/sub/mul/div/yta), wiring the
   dispatcher into internal/alu.

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

import (
	"github.com/sergev/svs-cpu/internal/alu"
	"github.com/sergev/svs-cpu/internal/fault"
)

func (p *Processor) applyResult(res alu.Result) fault.Code {
	p.ACC = res.Acc
	p.RMR = res.Rmr
	return res.Fault
}

// opAdd covers all four variants (a+x/a-x/x-a/amx); which one is
// selected by opKey.
func (p *Processor) opAdd(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	var variant alu.AddVariant
	switch opKey(h) {
	case opAminusX:
		variant = alu.AddSubtract
	case opXminusA:
		variant = alu.AddReverseSubtract
	case opAmx:
		variant = alu.AddSubAbs
	default:
		variant = alu.AddNormal
	}
	res := alu.Add(p.auMode(), variant, p.ACC, p.RMR, w)
	p.setGroup(alu.GroupAdditive)
	return p.applyResult(res)
}

func (p *Processor) opMul(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	res := alu.Multiply(p.auMode(), p.ACC, p.RMR, w)
	p.setGroup(alu.GroupMultiplicative)
	return p.applyResult(res)
}

func (p *Processor) opDiv(h halfInstr) fault.Code {
	w, code := p.load(p.Aex)
	if code != fault.OK {
		return code
	}
	res := alu.Divide(p.auMode(), p.ACC, p.RMR, w)
	p.setGroup(alu.GroupMultiplicative)
	return p.applyResult(res)
}

// opYta reads RMR into ACC. When RAU is in the logical group this is
// a straight copy; otherwise ACC's mantissa is replaced by RMR's low
// 40 bits with the sign forced to zero, its exponent is adjusted by
// the low 7 bits of Aex (biased by 64) through AddExponent — so the
// result still renormalizes and can still overflow — and RMR, which
// AddExponent clears as a side effect, is restored to its pre-swap
// value afterward: externally RMR passes through opYta unchanged.
func (p *Processor) opYta(h halfInstr) fault.Code {
	group := alu.Group((p.RAU >> 3) & 3)
	if group == alu.GroupLogical {
		p.ACC = p.RMR
		return fault.OK
	}
	savedRMR := p.RMR
	exponent := alu.UnpackExponent(p.ACC)
	mantissa := p.RMR & alu.Mask40
	p.ACC = (uint64(exponent&0x7f) << 41) | mantissa
	delta := int(p.Aex&0x7f) - 64
	res := alu.AddExponent(p.auMode(), p.ACC, delta)
	code := p.applyResult(res)
	p.RMR = savedRMR
	return code
}
