package frame

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/regs"
)

// recordingUnwind captures reported unwind events as readable strings
// so tests can compare whole sequences at once.
type recordingUnwind struct {
	events []string
}

func (r *recordingUnwind) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingUnwind) BeginPrologue()  { r.add("begin-prologue") }
func (r *recordingUnwind) EndPrologue()    { r.add("end-prologue") }
func (r *recordingUnwind) BeginEpilogue()  { r.add("begin-epilogue") }
func (r *recordingUnwind) EndEpilogue()    { r.add("end-epilogue") }
func (r *recordingUnwind) StackAlloc(size int64) {
	r.add("alloc %d", size)
}
func (r *recordingUnwind) SavePair(r1, r2 regs.Reg, offset int64) {
	r.add("save-pair %s %s %d", r1, r2, offset)
}
func (r *recordingUnwind) SavePairPreIndexed(r1, r2 regs.Reg, delta int64) {
	r.add("save-pair-pre %s %s %d", r1, r2, delta)
}
func (r *recordingUnwind) SaveRegister(reg regs.Reg, offset int64) {
	r.add("save-reg %s %d", reg, offset)
}
func (r *recordingUnwind) ContinuesPreviousSave() { r.add("save-next") }
func (r *recordingUnwind) SetFrameRegister(reg regs.Reg, offset int64) {
	r.add("set-fp %s %d", reg, offset)
}
func (r *recordingUnwind) Padding()            { r.add("pad") }
func (r *recordingUnwind) Return(reg regs.Reg) { r.add("ret %s", reg) }

// listing renders emitted instructions through the printer so tests
// can assert on exact assembly text.
func listing(f *asm.Function) string {
	var buf bytes.Buffer
	p := asm.NewPrinter(&buf)
	for _, inst := range f.Code {
		p.PrintInstruction(inst)
	}
	return buf.String()
}

func mask(rs ...regs.Reg) regs.Mask {
	return regs.NewMask(rs...)
}

func newTestGenerator(ctx Context) (*Generator, *asm.Function, *recordingUnwind) {
	fn := &asm.Function{Name: "test"}
	rec := &recordingUnwind{}
	return New(ctx, fn, rec), fn, rec
}

func TestNewPanicsOnNilSinks(t *testing.T) {
	ctx := Context{SaveRegs: regs.FrameLink}
	fn := &asm.Function{Name: "test"}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("nil emitter: expected panic")
			}
		}()
		New(ctx, nil, &recordingUnwind{})
	}()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("nil recorder: expected panic")
			}
		}()
		New(ctx, fn, nil)
	}()
}

func TestGeneratorFrameMemoized(t *testing.T) {
	g, _, _ := newTestGenerator(Context{
		SaveRegs:       mask(regs.X19, regs.X20, regs.FP, regs.LR),
		LocalFrameSize: 32,
	})
	f1 := g.Frame()
	f2 := g.Frame()
	if f1 != f2 {
		t.Error("Frame() returned distinct values across calls")
	}
	fi1 := g.FuncletInfo()
	fi2 := g.FuncletInfo()
	if fi1 != fi2 {
		t.Error("FuncletInfo() returned distinct values across calls")
	}
}
