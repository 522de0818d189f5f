package frame

import (
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// Emitter appends encoded instructions to the method's code buffer.
// Every offset and immediate handed to it has already been validated
// against the encodable ranges.
type Emitter interface {
	Emit(ins asm.Instruction)
}

// UnwindRecorder accumulates unwind metadata, one report per emitted
// stack-affecting instruction, in program order. Epilogue restores
// report the code of the prologue operation they reverse: unwind
// metadata describes construction, never destruction.
type UnwindRecorder interface {
	BeginPrologue()
	EndPrologue()
	BeginEpilogue()
	EndEpilogue()

	// StackAlloc reports an SP adjustment by its magnitude; direction
	// is implicit in the prologue or epilogue context.
	StackAlloc(bytes int64)
	SavePair(r1, r2 regs.Reg, offset int64)
	SavePairPreIndexed(r1, r2 regs.Reg, delta int64)
	SaveRegister(r regs.Reg, offset int64)
	ContinuesPreviousSave()
	SetFrameRegister(r regs.Reg, offset int64)
	// Padding covers an in-region instruction with no unwind effect,
	// keeping the recorder's code walk in step with the instruction
	// stream.
	Padding()
	Return(r regs.Reg)
}

// Generator drives frame layout and prologue/epilogue emission for one
// method compilation. It is not safe for concurrent use; each
// compilation owns its own Generator, emitter and recorder.
type Generator struct {
	ctx     Context
	emitter Emitter
	unwind  UnwindRecorder

	frame       *Frame
	funcletInfo *FuncletFrameInfo
}

// New returns a Generator for one method.
func New(ctx Context, emitter Emitter, unwind UnwindRecorder) *Generator {
	if emitter == nil || unwind == nil {
		panic("frame: generator needs an emitter and an unwind recorder")
	}
	return &Generator{ctx: ctx, emitter: emitter, unwind: unwind}
}

// Frame returns the main frame layout, computing and freezing it on
// first use.
func (g *Generator) Frame() *Frame {
	if g.frame == nil {
		f := ComputeFrame(g.ctx)
		g.frame = &f
	}
	return g.frame
}

// FuncletInfo returns the frame shape shared by every funclet of the
// method, computing and checking it against the main frame on first
// use.
func (g *Generator) FuncletInfo() *FuncletFrameInfo {
	if g.funcletInfo == nil {
		fi := computeFuncletInfo(g.Frame())
		g.funcletInfo = &fi
	}
	return g.funcletInfo
}

func (g *Generator) emit(ins asm.Instruction) {
	g.emitter.Emit(ins)
}

// ComputeFuncletFrameInfo freezes the funclet frame shape for ctx,
// laying out the main frame first so the shared parent-slot offset can
// be cross-checked.
func ComputeFuncletFrameInfo(ctx Context) FuncletFrameInfo {
	f := ComputeFrame(ctx)
	return computeFuncletInfo(&f)
}
