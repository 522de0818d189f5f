package frame

import (
	"github.com/raymyers/framegen/pkg/regs"
)

// regPair is one save/restore unit: two adjacent same-class registers
// covered by a single paired store, or one register when no legal
// partner exists.
type regPair struct {
	reg1 regs.Reg
	reg2 regs.Reg // regs.None for a singleton
	// useContinuation marks a pair whose unwind record may say
	// "continues the previous save" instead of naming registers and
	// offset again.
	useContinuation bool
}

func (p regPair) isPair() bool {
	return p.reg2 != regs.None
}

func (p regPair) slots() int64 {
	if p.isPair() {
		return 2
	}
	return 1
}

// buildRegPairs partitions mask into save units, lowest register
// first. x28 never pairs with fp; fp and lr always go together.
func buildRegPairs(mask regs.Mask) []regPair {
	pairs := make([]regPair, 0, mask.Count())
	for !mask.IsEmpty() {
		reg1 := mask.Lowest()
		mask = mask.WithoutLowest()
		p := regPair{reg1: reg1, reg2: regs.None}
		if !mask.IsEmpty() {
			next := mask.Lowest()
			if next == reg1.Next() && next.IsFloat() == reg1.IsFloat() && reg1 != regs.X28 {
				p.reg2 = next
				mask = mask.WithoutLowest()
			}
		}
		pairs = append(pairs, p)
	}
	markContinuations(pairs)
	return pairs
}

// markContinuations sets useContinuation on every pair that directly
// extends the one before it: both true pairs, same class, and the
// register numbering running straight through.
func markContinuations(pairs []regPair) {
	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1], pairs[i]
		if !prev.isPair() || !cur.isPair() {
			continue
		}
		if prev.reg2.IsFloat() != cur.reg1.IsFloat() {
			continue
		}
		if cur.reg1 == prev.reg2.Next() {
			pairs[i].useContinuation = true
		}
	}
}
