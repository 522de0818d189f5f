// Package unwind turns the stack-affecting instruction reports of a
// prologue or epilogue into packed ARM64 unwind codes, one code per
// reported instruction.
//
// Codes are recorded in program order. For the prologue the packed
// form runs in reverse program order, the order an unwinder undoes the
// frame in; epilogue codes run forward. Either way each code describes
// the construction-side operation, so the two regions of a well-formed
// function pack to mirrored sequences.
package unwind

import (
	"fmt"
	"strings"

	"github.com/raymyers/framegen/pkg/regs"
)

// Single-byte opcodes and two-byte opcode bases.
const (
	opAllocS      = 0x00 // 000xxxxx: sub sp, sp, #x*16, x < 32
	opSaveR19R20X = 0x20 // 001zzzzz: stp x19, x20, [sp, #-z*8]!
	opSaveFpLr    = 0x40 // 01zzzzzz: stp x29, x30, [sp, #z*8]
	opSaveFpLrX   = 0x80 // 10zzzzzz: stp x29, x30, [sp, #-(z+1)*8]!
	opAllocM      = 0xC0 // 11000xxx xxxxxxxx: sub sp, sp, #x*16, x < 0x800
	opSaveRegP    = 0xC8 // 110010xx xxzzzzzz: stp x(19+x), x(20+x), [sp, #z*8]
	opSaveRegPX   = 0xCC // 110011xx xxzzzzzz: stp x(19+x), x(20+x), [sp, #-(z+1)*8]!
	opSaveReg     = 0xD0 // 110100xx xxzzzzzz: str x(19+x), [sp, #z*8]
	opSaveFRegP   = 0xD8 // 1101100x xxzzzzzz: stp d(8+x), d(9+x), [sp, #z*8]
	opSaveFRegPX  = 0xDA // 1101101x xxzzzzzz: stp d(8+x), d(9+x), [sp, #-(z+1)*8]!
	opSaveFReg    = 0xDC // 1101110x xxzzzzzz: str d(8+x), [sp, #z*8]
	opAllocL      = 0xE0 // 11100000 + 3 bytes: sub sp, sp, #x*16, x < 0x1000000
	opSetFp       = 0xE1 // mov x29, sp
	opAddFp       = 0xE2 // 11100010 xxxxxxxx: add x29, sp, #x*8
	opNop         = 0xE3
	opEnd         = 0xE4
	opSaveNext    = 0xE6
)

// code is one packed unwind code with its listing form.
type code struct {
	bytes []byte
	text  string
}

type region int

const (
	outside region = iota
	inPrologue
	inEpilogue
)

// Recorder implements the frame engine's unwind sink for one emitted
// function: a single prologue region and any number of epilogue
// regions.
type Recorder struct {
	prologue   []code
	epilogues  [][]code
	state      region
	prologDone bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(text string, bytes ...byte) {
	c := code{bytes: bytes, text: text}
	switch r.state {
	case inPrologue:
		r.prologue = append(r.prologue, c)
	case inEpilogue:
		r.epilogues[len(r.epilogues)-1] = append(r.epilogues[len(r.epilogues)-1], c)
	default:
		panic("unwind: report outside a prologue or epilogue region")
	}
}

func (r *Recorder) BeginPrologue() {
	if r.state != outside {
		panic("unwind: region already open")
	}
	if r.prologDone {
		panic("unwind: a function has one prologue")
	}
	r.state = inPrologue
}

func (r *Recorder) EndPrologue() {
	if r.state != inPrologue {
		panic("unwind: no open prologue")
	}
	r.state = outside
	r.prologDone = true
}

func (r *Recorder) BeginEpilogue() {
	if r.state != outside {
		panic("unwind: region already open")
	}
	r.state = inEpilogue
	r.epilogues = append(r.epilogues, nil)
}

func (r *Recorder) EndEpilogue() {
	if r.state != inEpilogue {
		panic("unwind: no open epilogue")
	}
	r.state = outside
}

// StackAlloc records an SP move of size bytes, picking the smallest
// alloc form that holds it.
func (r *Recorder) StackAlloc(size int64) {
	if size <= 0 || size%16 != 0 {
		panic("unwind: allocation size must be a positive multiple of 16")
	}
	units := size / 16
	switch {
	case units < 0x20:
		r.add(fmt.Sprintf("alloc_s #%d", size), byte(opAllocS|units))
	case units < 0x800:
		r.add(fmt.Sprintf("alloc_m #%d", size),
			byte(opAllocM|units>>8), byte(units))
	case units < 0x1000000:
		r.add(fmt.Sprintf("alloc_l #%d", size),
			opAllocL, byte(units>>16), byte(units>>8), byte(units))
	default:
		panic("unwind: allocation size past alloc_l range")
	}
}

// SavePair records a pair store at [sp + offset].
func (r *Recorder) SavePair(r1, r2 regs.Reg, offset int64) {
	z := scaledOffset(offset)
	switch {
	case r1 == regs.FP && r2 == regs.LR:
		r.add(fmt.Sprintf("save_fplr #%d", offset), byte(opSaveFpLr|z))
	case generalPair(r1, r2):
		x := int64(r1 - regs.X19)
		r.add(fmt.Sprintf("save_regp %s, %s, #%d", r1, r2, offset),
			byte(opSaveRegP|x>>2), byte(x<<6|z))
	case floatPair(r1, r2):
		x := int64(r1 - regs.D8)
		r.add(fmt.Sprintf("save_fregp %s, %s, #%d", r1, r2, offset),
			byte(opSaveFRegP|x>>2), byte(x<<6|z))
	default:
		panic(fmt.Sprintf("unwind: unencodable register pair %s, %s", r1, r2))
	}
}

// SavePairPreIndexed records a pre-indexed pair store that moves SP by
// delta, a negative multiple of 8 within the pre-index range.
func (r *Recorder) SavePairPreIndexed(r1, r2 regs.Reg, delta int64) {
	if delta >= 0 || delta%8 != 0 || delta < -512 {
		panic(fmt.Sprintf("unwind: pre-indexed delta %d out of range", delta))
	}
	z := -delta/8 - 1
	switch {
	case r1 == regs.FP && r2 == regs.LR:
		r.add(fmt.Sprintf("save_fplr_x #%d", delta), byte(opSaveFpLrX|z))
	case r1 == regs.X19 && r2 == regs.X20 && delta >= -248:
		r.add(fmt.Sprintf("save_r19r20_x #%d", delta), byte(opSaveR19R20X|(-delta/8)))
	case generalPair(r1, r2):
		x := int64(r1 - regs.X19)
		r.add(fmt.Sprintf("save_regp_x %s, %s, #%d", r1, r2, delta),
			byte(opSaveRegPX|x>>2), byte(x<<6|z))
	case floatPair(r1, r2):
		x := int64(r1 - regs.D8)
		r.add(fmt.Sprintf("save_fregp_x %s, %s, #%d", r1, r2, delta),
			byte(opSaveFRegPX|x>>2), byte(x<<6|z))
	default:
		panic(fmt.Sprintf("unwind: unencodable register pair %s, %s", r1, r2))
	}
}

// SaveRegister records a singleton store at [sp + offset].
func (r *Recorder) SaveRegister(reg regs.Reg, offset int64) {
	z := scaledOffset(offset)
	switch {
	case reg >= regs.X19 && reg <= regs.X28:
		x := int64(reg - regs.X19)
		r.add(fmt.Sprintf("save_reg %s, #%d", reg, offset),
			byte(opSaveReg|x>>2), byte(x<<6|z))
	case reg >= regs.D8 && reg <= regs.D15:
		x := int64(reg - regs.D8)
		r.add(fmt.Sprintf("save_freg %s, #%d", reg, offset),
			byte(opSaveFReg|x>>2), byte(x<<6|z))
	default:
		panic(fmt.Sprintf("unwind: %s is not a callee-saved register", reg))
	}
}

func (r *Recorder) ContinuesPreviousSave() {
	r.add("save_next", opSaveNext)
}

// SetFrameRegister records the fp anchor at sp+offset.
func (r *Recorder) SetFrameRegister(reg regs.Reg, offset int64) {
	if reg != regs.FP {
		panic("unwind: only fp can be the frame register")
	}
	if offset == 0 {
		r.add("set_fp", opSetFp)
		return
	}
	if offset%8 != 0 || offset < 0 || offset/8 > 0xff {
		panic(fmt.Sprintf("unwind: frame pointer offset %d past add_fp range", offset))
	}
	r.add(fmt.Sprintf("add_fp #%d", offset), opAddFp, byte(offset/8))
}

func (r *Recorder) Padding() {
	r.add("nop", opNop)
}

// Return closes the epilogue's code walk.
func (r *Recorder) Return(reg regs.Reg) {
	if r.state != inEpilogue {
		panic("unwind: return outside an epilogue")
	}
	if reg != regs.LR {
		panic("unwind: return through a register other than lr")
	}
	r.add("end", opEnd)
}

// PrologCodes packs the prologue region: recorded codes in reverse
// program order, closed by the end code.
func (r *Recorder) PrologCodes() []byte {
	if r.state == inPrologue {
		panic("unwind: prologue still open")
	}
	var out []byte
	for i := len(r.prologue) - 1; i >= 0; i-- {
		out = append(out, r.prologue[i].bytes...)
	}
	return append(out, opEnd)
}

// EpilogCount returns the number of recorded epilogue regions.
func (r *Recorder) EpilogCount() int {
	return len(r.epilogues)
}

// EpilogCodes packs epilogue region i in program order. The end code
// recorded by Return is already in place.
func (r *Recorder) EpilogCodes(i int) []byte {
	if r.state == inEpilogue && i == len(r.epilogues)-1 {
		panic("unwind: epilogue still open")
	}
	var out []byte
	for _, c := range r.epilogues[i] {
		out = append(out, c.bytes...)
	}
	return out
}

// String lists every region in packed order, one code per line.
func (r *Recorder) String() string {
	var b strings.Builder
	b.WriteString("prolog:\n")
	for i := len(r.prologue) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  %s\n", r.prologue[i].text)
	}
	b.WriteString("  end\n")
	for i, ep := range r.epilogues {
		fmt.Fprintf(&b, "epilog %d:\n", i)
		for _, c := range ep {
			fmt.Fprintf(&b, "  %s\n", c.text)
		}
	}
	return b.String()
}

func scaledOffset(offset int64) int64 {
	if offset < 0 || offset%8 != 0 || offset/8 > 0x3f {
		panic(fmt.Sprintf("unwind: save offset %d out of range", offset))
	}
	return offset / 8
}

func generalPair(r1, r2 regs.Reg) bool {
	return r1 >= regs.X19 && r1 <= regs.X27 && r2 == r1.Next()
}

func floatPair(r1, r2 regs.Reg) bool {
	return r1 >= regs.D8 && r1 <= regs.D14 && r2 == r1.Next()
}
