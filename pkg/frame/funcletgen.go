package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// Funclet scratch registers. x1 carries the enclosing function's
// caller SP into a filter; x2 is free in every funclet kind, x3 in all
// but filters.
const (
	funcletScratch   = regs.X2
	funcletSlotValue = regs.X3
)

// EmitFuncletPrologue emits the prologue shared by every funclet of
// the method. A filter funclet receives the enclosing function's
// caller SP in x1 and loads the true parent slot value through it,
// since the filter may itself run nested inside another funclet; the
// other kinds derive the value from the frame pointer the dispatcher
// hands them.
func (g *Generator) EmitFuncletPrologue(isFilter bool) {
	fi := g.FuncletInfo()
	g.unwind.BeginPrologue()

	saveMask := fi.SaveRegs
	base := fi.SpToCalleeSaveArea + fi.SpDelta2

	switch fi.FrameType {
	case 1, 3:
		g.emit(asm.STPpre{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: fi.SpDelta1, Is64: true})
		g.unwind.SavePairPreIndexed(regs.FP, regs.LR, fi.SpDelta1)
		saveMask = saveMask.Without(regs.FrameLink)
	case 2:
		g.adjustSP(fi.SpDelta1, regs.None, true)
		g.emit(asm.STP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: fi.SpToFrameLinkSave, Is64: true})
		g.unwind.SavePair(regs.FP, regs.LR, fi.SpToFrameLinkSave)
		saveMask = saveMask.Without(regs.FrameLink)
	case 4, 5:
		// fp/lr sit inside the save area here, so the decrement always
		// stands alone and the saves never fold into it.
		g.adjustSP(fi.SpDelta1, regs.None, true)
	default:
		panic("frame: unknown funclet frame type")
	}

	g.saveCalleeSaved(saveMask, base, 0, regs.None)

	if fi.SpDelta2 != 0 {
		g.adjustSP(fi.SpDelta2, funcletScratch, true)
	}

	g.unwind.EndPrologue()

	if g.Frame().Ctx.HasParentFrameSlot {
		if isFilter {
			g.emitLoad(regs.X1, regs.X1, fi.CallerSpToParentSlot, funcletScratch)
			g.emitStore(regs.X1, regs.SP, fi.SpToParentSlot, funcletScratch)
			g.emitAddImm(regs.FP, regs.X1, fi.CallerSpToFrameLink, funcletScratch, false)
		} else {
			g.emitAddImm(funcletSlotValue, regs.FP, -fi.CallerSpToFrameLink, funcletScratch, false)
			g.emitStore(funcletSlotValue, regs.SP, fi.SpToParentSlot, funcletScratch)
		}
	}
}

// EmitFuncletEpilogue reverses EmitFuncletPrologue: undo the second
// adjustment, restore the save block, then take fp/lr and the first
// adjustment down together where the shape folded them.
func (g *Generator) EmitFuncletEpilogue() {
	fi := g.FuncletInfo()
	g.unwind.BeginEpilogue()

	if fi.SpDelta2 != 0 {
		g.adjustSP(-fi.SpDelta2, funcletScratch, true)
	}

	restoreMask := fi.SaveRegs
	base := fi.SpToCalleeSaveArea + fi.SpDelta2
	switch fi.FrameType {
	case 1, 2, 3:
		restoreMask = restoreMask.Without(regs.FrameLink)
	}

	g.restoreCalleeSaved(restoreMask, base, 0, regs.None)

	switch fi.FrameType {
	case 4, 5:
		g.adjustSP(-fi.SpDelta1, regs.None, true)
	case 1, 3:
		g.emit(asm.LDPpost{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: -fi.SpDelta1, Is64: true})
		g.unwind.SavePairPreIndexed(regs.FP, regs.LR, fi.SpDelta1)
	case 2:
		g.emit(asm.LDP{Rt1: regs.FP, Rt2: regs.LR, Rn: regs.SP, Ofs: fi.SpToFrameLinkSave, Is64: true})
		g.unwind.SavePair(regs.FP, regs.LR, fi.SpToFrameLinkSave)
		g.adjustSP(-fi.SpDelta1, regs.None, true)
	}

	g.emit(asm.RET{Rn: regs.LR})
	g.unwind.Return(regs.LR)
	g.unwind.EndEpilogue()
}
