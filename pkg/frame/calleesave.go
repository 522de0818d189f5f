package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// saveRegPair stores one pair at [sp+spOffset]. A pending SP decrement
// folds into a pre-indexed store when the pair lands at the bottom of
// the new region and the delta is in pre-index range; otherwise the
// adjustment is emitted on its own first.
func (g *Generator) saveRegPair(p regPair, spOffset, spDelta int64, scratch regs.Reg) {
	if spDelta > 0 || spDelta%stackAlign != 0 {
		panic("frame: save-side SP delta must be a non-positive multiple of 16")
	}
	if p.reg1.IsFloat() != p.reg2.IsFloat() {
		panic("frame: mixed-class register pair")
	}
	store := true
	if spDelta != 0 {
		if p.useContinuation {
			panic("frame: continuation save cannot carry the SP adjustment")
		}
		if spOffset == 0 && spDelta >= asm.PairIndexMin {
			g.emit(asm.STPpre{Rt1: p.reg1, Rt2: p.reg2, Rn: regs.SP, Ofs: spDelta, Is64: true})
			g.unwind.SavePairPreIndexed(p.reg1, p.reg2, spDelta)
			store = false
		} else {
			g.adjustSP(spDelta, scratch, true)
		}
	}
	if store {
		if !asm.FitsPairOffset(spOffset, registerWidth) {
			panic("frame: pair store offset out of range")
		}
		g.emit(asm.STP{Rt1: p.reg1, Rt2: p.reg2, Rn: regs.SP, Ofs: spOffset, Is64: true})
		if p.useContinuation {
			g.unwind.ContinuesPreviousSave()
		} else {
			g.unwind.SavePair(p.reg1, p.reg2, spOffset)
		}
	}
}

// saveReg stores one register at [sp+spOffset]. Singletons never fold
// the SP adjustment; it is emitted separately first.
func (g *Generator) saveReg(r regs.Reg, spOffset, spDelta int64, scratch regs.Reg) {
	if spDelta > 0 || spDelta%stackAlign != 0 {
		panic("frame: save-side SP delta must be a non-positive multiple of 16")
	}
	if spDelta != 0 {
		g.adjustSP(spDelta, scratch, true)
	}
	if !asm.FitsLoadStoreOffset(spOffset, registerWidth) {
		panic("frame: register store offset out of range")
	}
	g.emit(asm.STR{Rt: r, Rn: regs.SP, Ofs: spOffset, Is64: true})
	g.unwind.SaveRegister(r, spOffset)
}

// restoreRegPair reverses saveRegPair. A pending SP increment folds
// into a post-indexed load at offset 0; otherwise the load comes first
// and the adjustment after.
func (g *Generator) restoreRegPair(p regPair, spOffset, spDelta int64, scratch regs.Reg) {
	if spDelta < 0 || spDelta%stackAlign != 0 {
		panic("frame: restore-side SP delta must be a non-negative multiple of 16")
	}
	if p.reg1.IsFloat() != p.reg2.IsFloat() {
		panic("frame: mixed-class register pair")
	}
	if spDelta != 0 {
		if p.useContinuation {
			panic("frame: continuation restore cannot carry the SP adjustment")
		}
		if spOffset == 0 && spDelta <= asm.PairIndexMax {
			g.emit(asm.LDPpost{Rt1: p.reg1, Rt2: p.reg2, Rn: regs.SP, Ofs: spDelta, Is64: true})
			g.unwind.SavePairPreIndexed(p.reg1, p.reg2, -spDelta)
			return
		}
		if !asm.FitsPairOffset(spOffset, registerWidth) {
			panic("frame: pair load offset out of range")
		}
		g.emit(asm.LDP{Rt1: p.reg1, Rt2: p.reg2, Rn: regs.SP, Ofs: spOffset, Is64: true})
		g.unwind.SavePair(p.reg1, p.reg2, spOffset)
		g.adjustSP(spDelta, scratch, true)
		return
	}
	if !asm.FitsPairOffset(spOffset, registerWidth) {
		panic("frame: pair load offset out of range")
	}
	g.emit(asm.LDP{Rt1: p.reg1, Rt2: p.reg2, Rn: regs.SP, Ofs: spOffset, Is64: true})
	if p.useContinuation {
		g.unwind.ContinuesPreviousSave()
	} else {
		g.unwind.SavePair(p.reg1, p.reg2, spOffset)
	}
}

// restoreReg reverses saveReg: load first, then any SP adjustment.
func (g *Generator) restoreReg(r regs.Reg, spOffset, spDelta int64, scratch regs.Reg) {
	if spDelta < 0 || spDelta%stackAlign != 0 {
		panic("frame: restore-side SP delta must be a non-negative multiple of 16")
	}
	if !asm.FitsLoadStoreOffset(spOffset, registerWidth) {
		panic("frame: register load offset out of range")
	}
	g.emit(asm.LDR{Rt: r, Rn: regs.SP, Ofs: spOffset, Is64: true})
	g.unwind.SaveRegister(r, spOffset)
	if spDelta != 0 {
		g.adjustSP(spDelta, scratch, true)
	}
}

// saveGroup saves every register in mask at increasing offsets from
// baseOffset, lowest register lowest. Only the first unit may consume
// spDelta; every later unit stores at a plain offset.
func (g *Generator) saveGroup(mask regs.Mask, baseOffset, spDelta int64, scratch regs.Reg) {
	if mask.IsEmpty() {
		if spDelta != 0 {
			g.adjustSP(spDelta, scratch, true)
		}
		return
	}
	pairs := buildRegPairs(mask)
	offset := baseOffset
	for i, p := range pairs {
		delta := int64(0)
		if i == 0 {
			delta = spDelta
		}
		if p.isPair() {
			g.saveRegPair(p, offset, delta, scratch)
		} else {
			g.saveReg(p.reg1, offset, delta, scratch)
		}
		offset += p.slots() * registerWidth
	}
}

// restoreGroup mirrors saveGroup: the same units walked from the top,
// offsets descending, with the SP adjustment attached to the last
// restore so a post-indexed load can fold it.
func (g *Generator) restoreGroup(mask regs.Mask, baseOffset, spDelta int64, scratch regs.Reg) {
	if mask.IsEmpty() {
		if spDelta != 0 {
			g.adjustSP(spDelta, scratch, true)
		}
		return
	}
	pairs := buildRegPairs(mask)
	offset := baseOffset + int64(mask.Count())*registerWidth
	for i := len(pairs) - 1; i >= 0; i-- {
		p := pairs[i]
		offset -= p.slots() * registerWidth
		delta := int64(0)
		if i == 0 {
			delta = spDelta
		}
		if p.isPair() {
			g.restoreRegPair(p, offset, delta, scratch)
		} else {
			g.restoreReg(p.reg1, offset, delta, scratch)
		}
	}
}

// saveCalleeSaved saves a mixed-class mask with the float group at the
// lower offsets and the general group above it, handing spDelta to the
// first group emitted.
func (g *Generator) saveCalleeSaved(mask regs.Mask, baseOffset, spDelta int64, scratch regs.Reg) {
	if mask.IsEmpty() {
		if spDelta != 0 {
			g.adjustSP(spDelta, scratch, true)
		}
		return
	}
	float, general := mask.Float(), mask.General()
	if !float.IsEmpty() {
		g.saveGroup(float, baseOffset, spDelta, scratch)
		baseOffset += int64(float.Count()) * registerWidth
		spDelta = 0
	}
	if !general.IsEmpty() {
		g.saveGroup(general, baseOffset, spDelta, scratch)
	}
}

// restoreCalleeSaved restores the general group first and the float
// group last, so the closing adjustment rides on the final load.
func (g *Generator) restoreCalleeSaved(mask regs.Mask, baseOffset, spDelta int64, scratch regs.Reg) {
	if mask.IsEmpty() {
		if spDelta != 0 {
			g.adjustSP(spDelta, scratch, true)
		}
		return
	}
	float, general := mask.Float(), mask.General()
	if !general.IsEmpty() {
		delta := int64(0)
		if float.IsEmpty() {
			delta = spDelta
		}
		g.restoreGroup(general, baseOffset+int64(float.Count())*registerWidth, delta, scratch)
	}
	if !float.IsEmpty() {
		g.restoreGroup(float, baseOffset, spDelta, scratch)
	}
}
