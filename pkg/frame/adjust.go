package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// adjustSP moves SP by delta, a nonzero multiple of 16. When the
// magnitude does not fit an add/sub immediate it is built in scratch
// first. The unwind report is always the magnitude, never the
// direction.
func (g *Generator) adjustSP(delta int64, scratch regs.Reg, reportUnwind bool) {
	if delta == 0 || delta%stackAlign != 0 {
		panic("frame: SP adjustment must be a nonzero multiple of 16")
	}
	magnitude := delta
	sub := false
	if magnitude < 0 {
		magnitude = -magnitude
		sub = true
	}
	if asm.FitsAddImm(magnitude) {
		if sub {
			g.emit(asm.SUBi{Rd: regs.SP, Rn: regs.SP, Imm: magnitude, Is64: true})
		} else {
			g.emit(asm.ADDi{Rd: regs.SP, Rn: regs.SP, Imm: magnitude, Is64: true})
		}
	} else {
		if scratch == regs.None {
			panic("frame: SP adjustment out of immediate range and no scratch register")
		}
		g.materializeImm(scratch, magnitude, reportUnwind)
		if sub {
			g.emit(asm.SUB{Rd: regs.SP, Rn: regs.SP, Rm: scratch, Is64: true})
		} else {
			g.emit(asm.ADD{Rd: regs.SP, Rn: regs.SP, Rm: scratch, Is64: true})
		}
	}
	if reportUnwind {
		g.unwind.StackAlloc(magnitude)
	}
}

// materializeImm builds imm in reg with a movz/movk sequence and
// returns the instruction count. Inside an unwind region each
// instruction gets a padding report so the recorder's code walk stays
// in step with the stream.
func (g *Generator) materializeImm(reg regs.Reg, imm int64, reportUnwind bool) int {
	if imm < 0 {
		panic("frame: materialized immediates are magnitudes")
	}
	u := uint64(imm)
	n := 0
	for shift := 0; shift < 64; shift += 16 {
		chunk := uint16(u >> shift)
		if chunk == 0 && !(u == 0 && shift == 0) {
			continue
		}
		if n == 0 {
			g.emit(asm.MOVZ{Rd: reg, Imm: chunk, Shift: shift, Is64: true})
		} else {
			g.emit(asm.MOVK{Rd: reg, Imm: chunk, Shift: shift, Is64: true})
		}
		if reportUnwind {
			g.unwind.Padding()
		}
		n++
	}
	return n
}

// emitAddImm computes rd = rn + imm, flipping to a subtract for
// negative imm and going through scratch when the magnitude does not
// fit. rd and scratch may be the same register.
func (g *Generator) emitAddImm(rd, rn regs.Reg, imm int64, scratch regs.Reg, reportUnwind bool) {
	magnitude := imm
	sub := false
	if magnitude < 0 {
		magnitude = -magnitude
		sub = true
	}
	if asm.FitsAddImm(magnitude) {
		if sub {
			g.emit(asm.SUBi{Rd: rd, Rn: rn, Imm: magnitude, Is64: true})
		} else {
			g.emit(asm.ADDi{Rd: rd, Rn: rn, Imm: magnitude, Is64: true})
		}
		return
	}
	if scratch == regs.None {
		panic("frame: add immediate out of range and no scratch register")
	}
	g.materializeImm(scratch, magnitude, reportUnwind)
	if sub {
		g.emit(asm.SUB{Rd: rd, Rn: rn, Rm: scratch, Is64: true})
	} else {
		g.emit(asm.ADD{Rd: rd, Rn: rn, Rm: scratch, Is64: true})
	}
}

// emitStore writes rt to [base+offset], using a register-offset store
// through scratch when the immediate does not fit.
func (g *Generator) emitStore(rt, base regs.Reg, offset int64, scratch regs.Reg) {
	if asm.FitsLoadStoreOffset(offset, registerWidth) {
		g.emit(asm.STR{Rt: rt, Rn: base, Ofs: offset, Is64: true})
		return
	}
	if scratch == regs.None {
		panic("frame: store offset out of range and no scratch register")
	}
	g.materializeImm(scratch, offset, false)
	g.emit(asm.STRr{Rt: rt, Rn: base, Rm: scratch, Is64: true})
}

// emitLoad reads [base+offset] into rt, mirroring emitStore.
func (g *Generator) emitLoad(rt, base regs.Reg, offset int64, scratch regs.Reg) {
	if asm.FitsLoadStoreOffset(offset, registerWidth) {
		g.emit(asm.LDR{Rt: rt, Rn: base, Ofs: offset, Is64: true})
		return
	}
	if scratch == regs.None {
		panic("frame: load offset out of range and no scratch register")
	}
	g.materializeImm(scratch, offset, false)
	g.emit(asm.LDRr{Rt: rt, Rn: base, Rm: scratch, Is64: true})
}

// establishFramePointer anchors fp at sp+delta and, in the prologue,
// reports it so the unwinder can recover SP through fp from then on.
func (g *Generator) establishFramePointer(delta int64, reportUnwind bool) {
	if delta == 0 {
		g.emit(asm.MOV{Rd: regs.FP, Rm: regs.SP, Is64: true})
	} else {
		if !asm.FitsAddImm(delta) {
			panic("frame: frame pointer offset does not fit an add immediate")
		}
		g.emit(asm.ADDi{Rd: regs.FP, Rn: regs.SP, Imm: delta, Is64: true})
	}
	if reportUnwind {
		g.unwind.SetFrameRegister(regs.FP, delta)
	}
}
