package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
)

// Frame is the frozen layout of a method's stack frame.
//
// The normal shape, from the caller's SP down:
//
//	|   incoming arguments    |
//	+-------------------------+ <- caller SP
//	|   varargs home space    |  variadic methods only
//	|   callee-saved regs     |  floats low, generals above
//	|   parent frame slot     |  methods with funclets only
//	|   locals, spill temps   |
//	|   saved fp, lr          |  <- fp
//	|   outgoing arguments    |
//	+-------------------------+ <- SP
//
// With ColocateFrameLink the fp/lr pair instead sits at the top of the
// callee-save block, directly under the varargs space, and fp points
// there:
//
//	+-------------------------+ <- caller SP
//	|   varargs home space    |
//	|   saved fp, lr          |  <- fp
//	|   callee-saved regs     |
//	|   parent frame slot     |
//	|   locals, spill temps   |
//	|   outgoing arguments    |
//	+-------------------------+ <- SP
type Frame struct {
	// Ctx is the resolved input: the co-location policy may have been
	// forced and the local frame padded for 16-byte total alignment.
	Ctx Context

	// TotalSize is the full frame size the prologue allocates.
	TotalSize int64

	// SpToFp is the offset from the final SP to the established frame
	// pointer.
	SpToFp int64

	// CallerSpToFp is the offset from the caller's SP to the
	// established frame pointer, never positive.
	CallerSpToFp int64

	// SpToParentSlot and CallerSpToParentSlot locate the parent frame
	// slot from the final SP and from the caller's SP. Zero when the
	// method has no such slot. Every funclet layout of the method must
	// reproduce CallerSpToParentSlot exactly.
	SpToParentSlot       int64
	CallerSpToParentSlot int64
}

// ComputeFrame freezes the main frame layout for ctx.
//
// Two policy resolutions happen here rather than in the caller. An
// outgoing argument area of 504 bytes or more pushes the fp/lr store
// offset past the paired-store immediate range, so such methods get
// the co-located shape regardless of the requested policy. A method
// that allocates stack at runtime needs fp within add-immediate reach
// of the final SP, so it keeps the anchored shape.
func ComputeFrame(ctx Context) Frame {
	ctx.check()
	if ctx.OutgoingArgSize >= asm.PairIndexMax {
		if ctx.UsesLocalAlloc {
			panic("frame: runtime stack allocation with an outgoing area past paired-store range")
		}
		ctx.ColocateFrameLink = true
	}
	if ctx.UsesLocalAlloc {
		ctx.ColocateFrameLink = false
	}

	count := int64(ctx.SaveRegs.Count())
	total := ctx.varArgsSpace() + count*registerWidth + ctx.LocalFrameSize
	// An odd save count leaves the total 8 short of alignment; the pad
	// is absorbed into the local area, below the parent frame slot.
	pad := alignUp(total) - total
	ctx.LocalFrameSize += pad
	total += pad

	f := Frame{Ctx: ctx, TotalSize: total}
	if ctx.ColocateFrameLink {
		f.SpToFp = total - ctx.varArgsSpace() - 2*registerWidth
	} else {
		f.SpToFp = ctx.OutgoingArgSize
	}
	f.CallerSpToFp = -total + f.SpToFp

	if ctx.HasParentFrameSlot {
		saveSize := count*registerWidth + ctx.parentSlotSize() + ctx.varArgsSpace()
		f.CallerSpToParentSlot = -saveSize
		if !ctx.ColocateFrameLink {
			// fp and lr live at the bottom of the frame, outside the
			// region the slot is measured against.
			f.CallerSpToParentSlot += 2 * registerWidth
		}
		f.SpToParentSlot = total + f.CallerSpToParentSlot
	}
	return f
}
