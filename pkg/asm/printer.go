package asm

import (
	"fmt"
	"io"
	"runtime"

	"github.com/raymyers/framegen/pkg/regs"
)

// Printer outputs AArch64 assembly in GNU as syntax
type Printer struct {
	w        io.Writer
	isDarwin bool
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, isDarwin: runtime.GOOS == "darwin"}
}

// symbolName returns the symbol name with platform-appropriate prefix
func (p *Printer) symbolName(name string) string {
	if p.isDarwin {
		return "_" + name
	}
	return name
}

// PrintFunction outputs one function with its directives and body
func (p *Printer) PrintFunction(f *Function) {
	name := p.symbolName(f.Name)
	fmt.Fprintf(p.w, "\t.align\t2\n")
	fmt.Fprintf(p.w, "\t.global\t%s\n", name)
	if !p.isDarwin {
		fmt.Fprintf(p.w, "\t.type\t%s, %%function\n", name)
	}
	fmt.Fprintf(p.w, "%s:\n", name)

	for _, inst := range f.Code {
		p.PrintInstruction(inst)
	}

	if !p.isDarwin {
		fmt.Fprintf(p.w, "\t.size\t%s, .-%s\n", name, name)
	}
	fmt.Fprintf(p.w, "\n")
}

// regName32 returns the 32-bit register name
func regName32(r MReg) string {
	if r.IsFloat() {
		return fmt.Sprintf("s%d", r-regs.D0)
	}
	if r == SP {
		return "wsp"
	}
	return fmt.Sprintf("w%d", r)
}

// regName returns register name based on Is64 flag
func regName(r MReg, is64 bool) string {
	if is64 {
		return r.String()
	}
	return regName32(r)
}

// PrintInstruction outputs one instruction
func (p *Printer) PrintInstruction(inst Instruction) {
	switch i := inst.(type) {
	// Data processing
	case ADD:
		fmt.Fprintf(p.w, "\tadd\t%s, %s, %s\n", regName(i.Rd, i.Is64), regName(i.Rn, i.Is64), regName(i.Rm, i.Is64))
	case ADDi:
		fmt.Fprintf(p.w, "\tadd\t%s, %s, #%d\n", regName(i.Rd, i.Is64), regName(i.Rn, i.Is64), i.Imm)
	case SUB:
		fmt.Fprintf(p.w, "\tsub\t%s, %s, %s\n", regName(i.Rd, i.Is64), regName(i.Rn, i.Is64), regName(i.Rm, i.Is64))
	case SUBi:
		fmt.Fprintf(p.w, "\tsub\t%s, %s, #%d\n", regName(i.Rd, i.Is64), regName(i.Rn, i.Is64), i.Imm)

	// Moves
	case MOV:
		fmt.Fprintf(p.w, "\tmov\t%s, %s\n", regName(i.Rd, i.Is64), regName(i.Rm, i.Is64))
	case MOVZ:
		p.printWideMove("movz", i.Rd, i.Imm, i.Shift, i.Is64)
	case MOVK:
		p.printWideMove("movk", i.Rd, i.Imm, i.Shift, i.Is64)

	// Loads and stores
	case LDR:
		p.printMem("ldr", i.Rt, i.Rn, i.Ofs, i.Is64)
	case STR:
		p.printMem("str", i.Rt, i.Rn, i.Ofs, i.Is64)
	case LDRr:
		fmt.Fprintf(p.w, "\tldr\t%s, [%s, %s]\n", regName(i.Rt, i.Is64), i.Rn.String(), i.Rm.String())
	case STRr:
		fmt.Fprintf(p.w, "\tstr\t%s, [%s, %s]\n", regName(i.Rt, i.Is64), i.Rn.String(), i.Rm.String())
	case LDP:
		p.printMemPair("ldp", i.Rt1, i.Rt2, i.Rn, i.Ofs, i.Is64)
	case STP:
		p.printMemPair("stp", i.Rt1, i.Rt2, i.Rn, i.Ofs, i.Is64)
	case LDPpost:
		fmt.Fprintf(p.w, "\tldp\t%s, %s, [%s], #%d\n", regName(i.Rt1, i.Is64), regName(i.Rt2, i.Is64), i.Rn.String(), i.Ofs)
	case STPpre:
		fmt.Fprintf(p.w, "\tstp\t%s, %s, [%s, #%d]!\n", regName(i.Rt1, i.Is64), regName(i.Rt2, i.Is64), i.Rn.String(), i.Ofs)

	// Branches
	case RET:
		if i.Rn == LR {
			fmt.Fprintf(p.w, "\tret\n")
		} else {
			fmt.Fprintf(p.w, "\tret\t%s\n", i.Rn.String())
		}

	default:
		fmt.Fprintf(p.w, "\t// unknown instruction %T\n", inst)
	}
}

func (p *Printer) printWideMove(op string, rd MReg, imm uint16, shift int, is64 bool) {
	if shift == 0 {
		fmt.Fprintf(p.w, "\t%s\t%s, #%d\n", op, regName(rd, is64), imm)
	} else {
		fmt.Fprintf(p.w, "\t%s\t%s, #%d, lsl #%d\n", op, regName(rd, is64), imm, shift)
	}
}

func (p *Printer) printMem(op string, rt, rn MReg, ofs int64, is64 bool) {
	if ofs == 0 {
		fmt.Fprintf(p.w, "\t%s\t%s, [%s]\n", op, regName(rt, is64), rn.String())
	} else {
		fmt.Fprintf(p.w, "\t%s\t%s, [%s, #%d]\n", op, regName(rt, is64), rn.String(), ofs)
	}
}

func (p *Printer) printMemPair(op string, rt1, rt2, rn MReg, ofs int64, is64 bool) {
	if ofs == 0 {
		fmt.Fprintf(p.w, "\t%s\t%s, %s, [%s]\n", op, regName(rt1, is64), regName(rt2, is64), rn.String())
	} else {
		fmt.Fprintf(p.w, "\t%s\t%s, %s, [%s, #%d]\n", op, regName(rt1, is64), regName(rt2, is64), rn.String(), ofs)
	}
}
