package asm

// Immediate ranges differ per instruction family and are not uniform:
// add/sub take a 12-bit unsigned immediate optionally shifted left 12,
// plain load/store offsets are scaled by the access size, and the
// pre/post-indexed forms only accept a small signed range near zero.
// Callers that cannot prove an offset is in range must reserve a scratch
// register and materialize the constant instead.

const (
	// PairIndexMin and PairIndexMax bound the pre/post-indexed paired
	// load/store delta for 8-byte operands (signed 7 bits, scaled by 8).
	PairIndexMin = -512
	PairIndexMax = 504

	// RegIndexMin and RegIndexMax bound the pre/post-indexed singleton
	// load/store delta (signed 9 bits, unscaled).
	RegIndexMin = -256
	RegIndexMax = 255
)

// FitsAddImm reports whether imm can be encoded directly by an add/sub
// immediate instruction. A negative immediate reports the fit of the
// flipped operation (add of -imm becomes sub of imm).
func FitsAddImm(imm int64) bool {
	if imm < 0 {
		imm = -imm
	}
	if imm <= 0xfff {
		return true
	}
	return imm&0xfff == 0 && imm>>12 <= 0xfff
}

// FitsLoadStoreOffset reports whether imm can be encoded as the offset of
// a singleton load/store of the given access size (1, 2, 4, 8 or 16).
// Either the signed 9-bit unscaled form or the unsigned 12-bit
// size-scaled form may apply.
func FitsLoadStoreOffset(imm, size int64) bool {
	if imm == 0 {
		return true
	}
	if imm >= RegIndexMin && imm <= RegIndexMax {
		return true
	}
	if imm < 0 {
		return false
	}
	return imm%size == 0 && imm/size < 0x1000
}

// FitsPairOffset reports whether imm can be encoded as the offset of a
// paired load/store of the given access size (signed 7 bits, scaled).
func FitsPairOffset(imm, size int64) bool {
	return imm%size == 0 && imm/size >= -64 && imm/size <= 63
}

// FitsPrePostPairIndex reports whether imm can be folded into a
// pre/post-indexed paired load/store of 8-byte operands.
func FitsPrePostPairIndex(imm int64) bool {
	return imm%8 == 0 && imm >= PairIndexMin && imm <= PairIndexMax
}

// FitsPrePostIndex reports whether imm can be folded into a
// pre/post-indexed singleton load/store.
func FitsPrePostIndex(imm int64) bool {
	return imm >= RegIndexMin && imm <= RegIndexMax
}
