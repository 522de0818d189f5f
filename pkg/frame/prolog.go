package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// Prologue scratch registers. x9 materializes large adjustments and
// the caller-SP value for the parent frame slot; x10 forms the slot
// address when its offset is out of store range.
const (
	prologScratch     = regs.X9
	prologAddrScratch = regs.X10
)

// frameLinkPreIndexed reports whether the fp/lr pair itself performs
// the whole-frame adjustment. The post-indexed epilogue form tops out
// at 504, below the pre-indexed store's 512, so the bound is the
// tighter of the two.
func frameLinkPreIndexed(f *Frame) bool {
	return !f.Ctx.ColocateFrameLink && f.Ctx.OutgoingArgSize == 0 && f.TotalSize <= asm.PairIndexMax
}

// EmitFunctionPrologue establishes the main frame: allocate, save the
// callee-saved set, anchor fp, and publish the parent frame slot once
// the unwindable region is closed.
func (g *Generator) EmitFunctionPrologue() {
	f := g.Frame()
	ctx := &f.Ctx
	g.unwind.BeginPrologue()

	count := int64(ctx.SaveRegs.Count())
	restMask := ctx.SaveRegs.Without(regs.FrameLink)
	restSize := int64(restMask.Count()) * registerWidth

	switch {
	case ctx.ColocateFrameLink && f.TotalSize <= compactFrameLimit:
		base := f.TotalSize - ctx.varArgsSpace() - count*registerWidth
		g.saveCalleeSaved(ctx.SaveRegs, base, -f.TotalSize, prologScratch)
		g.establishFramePointer(f.SpToFp, true)

	case ctx.ColocateFrameLink:
		// Save region first, locals and outgoing args second; fp is
		// anchored while its offset is still small.
		region1 := alignUp(ctx.varArgsSpace() + count*registerWidth)
		base := region1 - ctx.varArgsSpace() - count*registerWidth
		g.saveCalleeSaved(ctx.SaveRegs, base, -region1, prologScratch)
		g.establishFramePointer(region1-ctx.varArgsSpace()-2*registerWidth, true)
		g.adjustSP(-(f.TotalSize - region1), prologScratch, true)

	case f.TotalSize <= compactFrameLimit:
		if frameLinkPreIndexed(f) {
			g.emit(asm.STPpre{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: -f.TotalSize, Is64: true})
			g.unwind.SavePairPreIndexed(regs.FP, regs.LR, -f.TotalSize)
		} else {
			g.adjustSP(-f.TotalSize, prologScratch, true)
			g.emit(asm.STP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: ctx.OutgoingArgSize, Is64: true})
			g.unwind.SavePair(regs.FP, regs.LR, ctx.OutgoingArgSize)
		}
		g.saveCalleeSaved(restMask, f.TotalSize-ctx.varArgsSpace()-restSize, 0, prologScratch)
		g.establishFramePointer(f.SpToFp, true)

	default:
		region1 := alignUp(ctx.varArgsSpace() + restSize)
		base := region1 - ctx.varArgsSpace() - restSize
		g.saveCalleeSaved(restMask, base, -region1, prologScratch)
		g.adjustSP(-(f.TotalSize - region1), prologScratch, true)
		g.emit(asm.STP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: ctx.OutgoingArgSize, Is64: true})
		g.unwind.SavePair(regs.FP, regs.LR, ctx.OutgoingArgSize)
		g.establishFramePointer(f.SpToFp, true)
	}

	g.unwind.EndPrologue()

	if ctx.HasParentFrameSlot {
		// The slot holds the caller's SP value. Not part of the
		// unwindable prologue.
		g.emitAddImm(prologScratch, regs.SP, f.TotalSize, prologScratch, false)
		g.emitStore(prologScratch, regs.SP, f.SpToParentSlot, prologAddrScratch)
	}
}

// EmitFunctionEpilogue tears the main frame down as the exact mirror
// of the prologue, reporting each restore as the prologue operation it
// reverses.
func (g *Generator) EmitFunctionEpilogue() {
	f := g.Frame()
	ctx := &f.Ctx
	g.unwind.BeginEpilogue()

	if ctx.UsesLocalAlloc {
		// SP is untrusted after a runtime allocation; recover it from
		// fp before touching the frame.
		g.emitAddImm(regs.SP, regs.FP, -f.SpToFp, prologScratch, true)
		g.unwind.SetFrameRegister(regs.FP, f.SpToFp)
	}

	count := int64(ctx.SaveRegs.Count())
	restMask := ctx.SaveRegs.Without(regs.FrameLink)
	restSize := int64(restMask.Count()) * registerWidth

	switch {
	case ctx.ColocateFrameLink && f.TotalSize <= compactFrameLimit:
		base := f.TotalSize - ctx.varArgsSpace() - count*registerWidth
		g.restoreCalleeSaved(ctx.SaveRegs, base, f.TotalSize, prologScratch)

	case ctx.ColocateFrameLink:
		region1 := alignUp(ctx.varArgsSpace() + count*registerWidth)
		g.adjustSP(f.TotalSize-region1, prologScratch, true)
		base := region1 - ctx.varArgsSpace() - count*registerWidth
		g.restoreCalleeSaved(ctx.SaveRegs, base, region1, prologScratch)

	case f.TotalSize <= compactFrameLimit:
		g.restoreCalleeSaved(restMask, f.TotalSize-ctx.varArgsSpace()-restSize, 0, prologScratch)
		if frameLinkPreIndexed(f) {
			g.emit(asm.LDPpost{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: f.TotalSize, Is64: true})
			g.unwind.SavePairPreIndexed(regs.FP, regs.LR, -f.TotalSize)
		} else {
			g.emit(asm.LDP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: ctx.OutgoingArgSize, Is64: true})
			g.unwind.SavePair(regs.FP, regs.LR, ctx.OutgoingArgSize)
			g.adjustSP(f.TotalSize, prologScratch, true)
		}

	default:
		region1 := alignUp(ctx.varArgsSpace() + restSize)
		g.emit(asm.LDP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: ctx.OutgoingArgSize, Is64: true})
		g.unwind.SavePair(regs.FP, regs.LR, ctx.OutgoingArgSize)
		g.adjustSP(f.TotalSize-region1, prologScratch, true)
		base := region1 - ctx.varArgsSpace() - restSize
		g.restoreCalleeSaved(restMask, base, region1, prologScratch)
	}

	g.emit(asm.RET{Rn: regs.LR})
	g.unwind.Return(regs.LR)
	g.unwind.EndEpilogue()
}
