// Package regs defines AArch64 machine registers and register masks as
// used by the frame engine: general registers x0-x30, the stack pointer,
// and the floating-point registers d0-d31.
package regs

import (
	"fmt"
	"math/bits"
	"strings"
)

// Reg identifies one machine register. General registers come first,
// then sp, then the floating-point registers, so that Reg ordering is
// the architecture's register-number ordering within each class and the
// two classes are never numerically adjacent.
type Reg uint8

const (
	X0 Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	SP
	D0
	D1
	D2
	D3
	D4
	D5
	D6
	D7
	D8
	D9
	D10
	D11
	D12
	D13
	D14
	D15
	D16
	D17
	D18
	D19
	D20
	D21
	D22
	D23
	D24
	D25
	D26
	D27
	D28
	D29
	D30
	D31

	numRegs

	// None marks an absent register (e.g. the second slot of a
	// singleton save).
	None Reg = 0xff
)

// AAPCS64 role aliases.
const (
	FP = X29 // frame pointer
	LR = X30 // link register
)

// IsFloat reports whether r is a floating-point register.
func (r Reg) IsFloat() bool {
	return r >= D0 && r <= D31
}

// Next returns the register with the next higher number.
func (r Reg) Next() Reg {
	return r + 1
}

func (r Reg) String() string {
	switch {
	case r == SP:
		return "sp"
	case r == None:
		return "none"
	case r.IsFloat():
		return fmt.Sprintf("d%d", r-D0)
	case r <= X30:
		return fmt.Sprintf("x%d", r)
	}
	return fmt.Sprintf("reg(%d)", uint8(r))
}

// Parse converts a register name ("x19", "fp", "lr", "sp", "d8") to a Reg.
func Parse(name string) (Reg, error) {
	switch strings.ToLower(name) {
	case "fp":
		return FP, nil
	case "lr":
		return LR, nil
	case "sp":
		return SP, nil
	}
	var n int
	if _, err := fmt.Sscanf(strings.ToLower(name), "x%d", &n); err == nil && n >= 0 && n <= 30 {
		return X0 + Reg(n), nil
	}
	if _, err := fmt.Sscanf(strings.ToLower(name), "d%d", &n); err == nil && n >= 0 && n <= 31 {
		return D0 + Reg(n), nil
	}
	return None, fmt.Errorf("unknown register %q", name)
}

// Mask is a register bitmask; bit i corresponds to Reg(i).
type Mask uint64

// NewMask builds a mask from a register list.
func NewMask(rs ...Reg) Mask {
	var m Mask
	for _, r := range rs {
		m |= r.Bit()
	}
	return m
}

// Bit returns the single-bit mask for r.
func (r Reg) Bit() Mask {
	if r >= numRegs {
		panic("regs: bit of invalid register " + r.String())
	}
	return Mask(1) << r
}

// span returns the mask covering lo..hi inclusive.
func span(lo, hi Reg) Mask {
	var m Mask
	for r := lo; r <= hi; r++ {
		m |= r.Bit()
	}
	return m
}

var (
	// CalleeSavedGeneral is x19-x28, the general registers a callee
	// must preserve.
	CalleeSavedGeneral = span(X19, X28)
	// CalleeSavedFloat is d8-d15; only the low 64 bits are preserved,
	// so each occupies one 8-byte save slot.
	CalleeSavedFloat = span(D8, D15)
	// FrameLink is the frame-pointer/return-address pair.
	FrameLink = NewMask(FP, LR)
	// AllFloat covers every floating-point register.
	AllFloat = span(D0, D31)
)

// Has reports whether r is in the mask.
func (m Mask) Has(r Reg) bool {
	return m&r.Bit() != 0
}

// IsEmpty reports whether no register is in the mask.
func (m Mask) IsEmpty() bool {
	return m == 0
}

// Count returns the number of registers in the mask.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Lowest returns the lowest-numbered register in the mask, or None if
// the mask is empty.
func (m Mask) Lowest() Reg {
	if m == 0 {
		return None
	}
	return Reg(bits.TrailingZeros64(uint64(m)))
}

// WithoutLowest returns the mask with its lowest register removed.
func (m Mask) WithoutLowest() Mask {
	return m & (m - 1)
}

// Without returns the registers of m not present in rm.
func (m Mask) Without(rm Mask) Mask {
	return m &^ rm
}

// Float returns the floating-point registers of the mask.
func (m Mask) Float() Mask {
	return m & AllFloat
}

// General returns the general registers of the mask.
func (m Mask) General() Mask {
	return m &^ AllFloat
}

func (m Mask) String() string {
	if m == 0 {
		return "{}"
	}
	var names []string
	for w := m; w != 0; w = w.WithoutLowest() {
		names = append(names, w.Lowest().String())
	}
	return "{" + strings.Join(names, " ") + "}"
}
