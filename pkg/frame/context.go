// Package frame computes AArch64 stack frame layouts and emits the
// prologue and epilogue instruction sequences that establish and tear
// them down, reporting every stack-affecting instruction to an unwind
// recorder as it goes.
//
// A method's frame is laid out once, after the register allocator has
// fixed the callee-saved set and the call scanner has fixed the
// outgoing argument area. The layout is frozen in a Frame and, for
// methods with exception handler funclets, a FuncletFrameInfo; the
// emitters translate those frozen shapes into instructions.
package frame

import (
	"github.com/raymyers/framegen/pkg/regs"
)

const (
	registerWidth = 8
	stackAlign    = 16

	// varArgsHomeSize is the space kept above the callee-save area of
	// a variadic method so x0-x7 can be homed contiguously with the
	// incoming stack arguments.
	varArgsHomeSize = 64

	// compactFrameLimit is the largest frame a single pre-indexed pair
	// store can allocate in one instruction.
	compactFrameLimit = 512

	// saveAreaLimit bounds the register-save region of a two-adjustment
	// frame: fp and lr, ten general and eight float registers, the
	// parent frame slot, varargs homing space and one alignment slot.
	saveAreaLimit = 240
)

// Context describes one method to the frame engine. The phases that
// precede code generation fill it in; the engine treats it as
// read-only input.
type Context struct {
	// SaveRegs is the callee-saved register set the method modifies,
	// always including fp and lr.
	SaveRegs regs.Mask

	// OutgoingArgSize is the outgoing argument area in bytes, a
	// multiple of 8.
	OutgoingArgSize int64

	// LocalFrameSize covers locals, spill temps, the parent frame slot
	// and the outgoing argument area, a multiple of 8.
	LocalFrameSize int64

	// IsVarArgs reserves homing space for x0-x7 above the callee-save
	// area.
	IsVarArgs bool

	// UsesLocalAlloc marks a method whose SP moves after the prologue.
	// Its epilogue recovers SP from fp before unwinding the frame.
	UsesLocalAlloc bool

	// HasParentFrameSlot reserves the slot through which handler
	// funclets and the unwinder reach the main frame's locals.
	HasParentFrameSlot bool

	// ColocateFrameLink saves fp and lr at the top of the callee-save
	// block instead of anchoring them above the outgoing argument
	// area.
	ColocateFrameLink bool
}

func (c *Context) varArgsSpace() int64 {
	if c.IsVarArgs {
		return varArgsHomeSize
	}
	return 0
}

func (c *Context) parentSlotSize() int64 {
	if c.HasParentFrameSlot {
		return registerWidth
	}
	return 0
}

func (c *Context) check() {
	if !c.SaveRegs.Has(regs.FP) || !c.SaveRegs.Has(regs.LR) {
		panic("frame: callee-save set must include fp and lr")
	}
	allowed := regs.CalleeSavedGeneral | regs.CalleeSavedFloat | regs.FrameLink
	if !c.SaveRegs.Without(allowed).IsEmpty() {
		panic("frame: callee-save set contains a non-callee-saved register")
	}
	if c.OutgoingArgSize < 0 || c.OutgoingArgSize%registerWidth != 0 {
		panic("frame: outgoing argument area must be a non-negative multiple of 8")
	}
	if c.LocalFrameSize < 0 || c.LocalFrameSize%registerWidth != 0 {
		panic("frame: local frame size must be a non-negative multiple of 8")
	}
	if c.LocalFrameSize < c.OutgoingArgSize+c.parentSlotSize() {
		panic("frame: local frame does not cover the outgoing argument area")
	}
}

func alignUp(n int64) int64 {
	return (n + stackAlign - 1) &^ (stackAlign - 1)
}
