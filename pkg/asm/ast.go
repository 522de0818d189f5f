// Package asm defines the AArch64 instruction forms emitted by the frame
// engine, together with the immediate-range predicates that decide whether
// an operand can be encoded directly. The representation is a small
// instruction sum type; byte encoding belongs to a later phase.
package asm

import "github.com/raymyers/framegen/pkg/regs"

// MReg is the machine register type, shared with pkg/regs.
type MReg = regs.Reg

// Register aliases used throughout prologue/epilogue emission.
const (
	SP = regs.SP
	FP = regs.FP
	LR = regs.LR
)

// Instruction is the interface for AArch64 instructions.
type Instruction interface {
	implInstruction()
}

// --- Data Processing Instructions ---

// ADD - Add (register)
type ADD struct {
	Rd, Rn, Rm MReg
	Is64       bool // true for X registers, false for W
}

// ADDi - Add immediate
type ADDi struct {
	Rd, Rn MReg
	Imm    int64
	Is64   bool
}

// SUB - Subtract (register)
type SUB struct {
	Rd, Rn, Rm MReg
	Is64       bool
}

// SUBi - Subtract immediate
type SUBi struct {
	Rd, Rn MReg
	Imm    int64
	Is64   bool
}

// --- Move Instructions ---

// MOV - Move register
type MOV struct {
	Rd, Rm MReg
	Is64   bool
}

// MOVZ - Move wide with zero
type MOVZ struct {
	Rd    MReg
	Imm   uint16
	Shift int // 0, 16, 32, or 48
	Is64  bool
}

// MOVK - Move wide with keep
type MOVK struct {
	Rd    MReg
	Imm   uint16
	Shift int
	Is64  bool
}

// --- Load/Store Instructions ---

// LDR - Load register (immediate offset)
type LDR struct {
	Rt   MReg
	Rn   MReg // base register
	Ofs  int64
	Is64 bool
}

// LDRr - Load register (register offset)
type LDRr struct {
	Rt, Rn, Rm MReg
	Is64       bool
}

// STR - Store register (immediate offset)
type STR struct {
	Rt   MReg
	Rn   MReg
	Ofs  int64
	Is64 bool
}

// STRr - Store register (register offset)
type STRr struct {
	Rt, Rn, Rm MReg
	Is64       bool
}

// LDP - Load pair
type LDP struct {
	Rt1, Rt2 MReg
	Rn       MReg
	Ofs      int64
	Is64     bool
}

// LDPpost - Load pair, post-indexed: ldp rt1, rt2, [rn], #ofs
type LDPpost struct {
	Rt1, Rt2 MReg
	Rn       MReg
	Ofs      int64
	Is64     bool
}

// STP - Store pair
type STP struct {
	Rt1, Rt2 MReg
	Rn       MReg
	Ofs      int64
	Is64     bool
}

// STPpre - Store pair, pre-indexed: stp rt1, rt2, [rn, #ofs]!
type STPpre struct {
	Rt1, Rt2 MReg
	Rn       MReg
	Ofs      int64
	Is64     bool
}

// --- Branch Instructions ---

// RET - Return (branch to the register, conventionally LR)
type RET struct {
	Rn MReg
}

func (ADD) implInstruction()     {}
func (ADDi) implInstruction()    {}
func (SUB) implInstruction()     {}
func (SUBi) implInstruction()    {}
func (MOV) implInstruction()     {}
func (MOVZ) implInstruction()    {}
func (MOVK) implInstruction()    {}
func (LDR) implInstruction()     {}
func (LDRr) implInstruction()    {}
func (STR) implInstruction()     {}
func (STRr) implInstruction()    {}
func (LDP) implInstruction()     {}
func (LDPpost) implInstruction() {}
func (STP) implInstruction()     {}
func (STPpre) implInstruction()  {}
func (RET) implInstruction()     {}

// Function is a code buffer that instructions are appended to.
type Function struct {
	Name string
	Code []Instruction
}

// Emit appends one instruction.
func (f *Function) Emit(ins Instruction) {
	f.Code = append(f.Code, ins)
}
