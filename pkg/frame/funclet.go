package frame

import (
	"fmt"

	"github.com/raymyers/framegen/pkg/regs"
)

// FuncletFrameInfo is the frozen frame shape shared by every funclet
// of one method. The five shapes:
//
//	type 1  compact, fp/lr anchored, no outgoing args
//	        stp fp, lr, [sp, #-frame]!
//	type 2  compact, fp/lr anchored above the outgoing args
//	        sub sp, sp, #frame ; stp fp, lr, [sp, #outgoing]
//	type 3  two adjustments, fp/lr anchored
//	        stp fp, lr, [sp, #-save]! ; ... ; sub sp, sp, #outgoing
//	type 4  compact, fp/lr saved with the other registers
//	        sub sp, sp, #frame ; saves, fp/lr highest
//	type 5  two adjustments, fp/lr saved with the other registers
//	        sub sp, sp, #save ; saves ; sub sp, sp, #outgoing
//
// A funclet frame, from the caller's SP down (anchored shapes):
//
//	+-------------------------+ <- caller SP
//	|   varargs home space    |
//	|   callee-saved regs     |
//	|   parent frame slot     |
//	|   pad, if misaligned    |
//	|   saved fp, lr          |
//	|   outgoing arguments    |
//	+-------------------------+ <- SP
type FuncletFrameInfo struct {
	FrameType int

	// SaveRegs is the register set every funclet saves, fp and lr
	// included.
	SaveRegs regs.Mask

	// SpDelta1 and SpDelta2 are the prologue SP adjustments, both
	// non-positive multiples of 16. SpDelta2 is zero for the compact
	// types. Offsets below are relative to the final SP; while SP sits
	// between the two adjustments, instruction offsets shift by
	// SpDelta2.
	SpDelta1 int64
	SpDelta2 int64

	// SpToFrameLinkSave is the store offset of the fp/lr pair at the
	// moment it is emitted: zero for the pre-indexed shapes.
	SpToFrameLinkSave int64

	// SpToParentSlot and CallerSpToParentSlot locate the parent frame
	// slot. CallerSpToParentSlot matches the main Frame's value
	// exactly; the unwinder walks nested handlers through it.
	SpToParentSlot       int64
	CallerSpToParentSlot int64

	// SpToCalleeSaveArea is where the callee-save block begins.
	SpToCalleeSaveArea int64

	// CallerSpToFrameLink is the caller-relative offset of the main
	// function's established frame pointer. Filter funclets rebuild
	// fp from it.
	CallerSpToFrameLink int64
}

// computeFuncletInfo derives the funclet shape from the resolved main
// frame. All funclets of a method share the result.
func computeFuncletInfo(f *Frame) FuncletFrameInfo {
	ctx := &f.Ctx

	count := int64(ctx.SaveRegs.Count())
	saveSize := count*registerWidth + ctx.parentSlotSize() + ctx.varArgsSpace()
	alignedSave := alignUp(saveSize)
	alignedOutgoing := alignUp(ctx.OutgoingArgSize)

	fi := FuncletFrameInfo{SaveRegs: ctx.SaveRegs, CallerSpToFrameLink: f.CallerSpToFp}

	if alignedSave+alignedOutgoing <= compactFrameLimit {
		frameSize := saveSize + ctx.OutgoingArgSize
		frameAligned := alignUp(frameSize)
		pad := frameAligned - frameSize

		switch {
		case ctx.ColocateFrameLink:
			fi.FrameType = 4
		case ctx.OutgoingArgSize == 0:
			fi.FrameType = 1
		default:
			fi.FrameType = 2
		}
		fi.SpDelta1 = -frameAligned
		fi.SpDelta2 = 0

		fi.SpToParentSlot = ctx.OutgoingArgSize + pad
		switch fi.FrameType {
		case 1, 2:
			fi.SpToParentSlot += 2 * registerWidth
			fi.SpToFrameLinkSave = ctx.OutgoingArgSize
		case 4:
			fi.SpToFrameLinkSave = frameAligned - ctx.varArgsSpace() - 2*registerWidth
		}
	} else {
		savePad := alignedSave - saveSize
		if alignedSave > saveAreaLimit {
			panic("frame: funclet save region exceeds its compact limit")
		}
		fi.SpDelta1 = -alignedSave
		fi.SpDelta2 = -alignedOutgoing

		fi.SpToParentSlot = alignedOutgoing + savePad
		if ctx.ColocateFrameLink {
			fi.FrameType = 5
			fi.SpToFrameLinkSave = alignedOutgoing + alignedSave - ctx.varArgsSpace() - 2*registerWidth
		} else {
			fi.FrameType = 3
			fi.SpToParentSlot += 2 * registerWidth
			fi.SpToFrameLinkSave = 0
		}
	}

	fi.SpToCalleeSaveArea = fi.SpToParentSlot + ctx.parentSlotSize()

	totalFrame := -(fi.SpDelta1 + fi.SpDelta2)
	fi.CallerSpToParentSlot = fi.SpToParentSlot - totalFrame

	if fi.SpDelta1%stackAlign != 0 || fi.SpDelta2%stackAlign != 0 {
		panic("frame: funclet SP adjustment not 16-byte aligned")
	}
	if ctx.HasParentFrameSlot && fi.CallerSpToParentSlot != f.CallerSpToParentSlot {
		panic(fmt.Sprintf("frame: funclet parent slot offset %d disagrees with main frame %d",
			fi.CallerSpToParentSlot, f.CallerSpToParentSlot))
	}
	return fi
}
