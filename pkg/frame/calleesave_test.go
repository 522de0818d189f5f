package frame

import (
	"testing"

	"github.com/raymyers/framegen/pkg/regs"
)

func newBareGenerator() (*Generator, func() string, *recordingUnwind) {
	g, fn, rec := newTestGenerator(Context{SaveRegs: regs.FrameLink})
	return g, func() string { return listing(fn) }, rec
}

func TestSaveRegPairFoldsAdjustment(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, -96, regs.X9)
	if got, want := asmText(), "\tstp\tx19, x20, [sp, #-96]!\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-pair-pre x19 x20 -96"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveRegPairOffsetBlocksFold(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 16, -96, regs.X9)
	want := "\tsub\tsp, sp, #96\n\tstp\tx19, x20, [sp, #16]\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "alloc 96\nsave-pair x19 x20 16"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveRegPairDeltaPastPreIndexRange(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, -528, regs.X9)
	want := "\tsub\tsp, sp, #528\n\tstp\tx19, x20, [sp]\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "alloc 528\nsave-pair x19 x20 0"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveRegNeverFolds(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveReg(regs.X19, 0, -16, regs.X9)
	want := "\tsub\tsp, sp, #16\n\tstr\tx19, [sp]\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "alloc 16\nsave-reg x19 0"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestRestoreRegPairFoldsAdjustment(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.restoreRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, 96, regs.X9)
	if got, want := asmText(), "\tldp\tx19, x20, [sp], #96\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	// The restore reports the construction-side code.
	if got, want := joinEvents(rec), "save-pair-pre x19 x20 -96"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestRestoreRegPairDeltaPastPostIndexRange(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.restoreRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, 512, regs.X9)
	want := "\tldp\tx19, x20, [sp]\n\tadd\tsp, sp, #512\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-pair x19 x20 0\nalloc 512"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveGroupContinuation(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveGroup(mask(regs.X19, regs.X20, regs.X21, regs.X22), 0, -64, regs.X9)
	want := "\tstp\tx19, x20, [sp, #-64]!\n\tstp\tx21, x22, [sp, #16]\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-pair-pre x19 x20 -64\nsave-next"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestRestoreGroupContinuation(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.restoreGroup(mask(regs.X19, regs.X20, regs.X21, regs.X22), 0, 64, regs.X9)
	want := "\tldp\tx21, x22, [sp, #16]\n\tldp\tx19, x20, [sp], #64\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-next\nsave-pair-pre x19 x20 -64"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveCalleeSavedFloatGroupFirst(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveCalleeSaved(mask(regs.X19, regs.X20, regs.D8, regs.D9), 0, -48, regs.X9)
	want := "\tstp\td8, d9, [sp, #-48]!\n\tstp\tx19, x20, [sp, #16]\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-pair-pre d8 d9 -48\nsave-pair x19 x20 16"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestRestoreCalleeSavedFloatGroupLast(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.restoreCalleeSaved(mask(regs.X19, regs.X20, regs.D8, regs.D9), 0, 48, regs.X9)
	want := "\tldp\tx19, x20, [sp, #16]\n\tldp\td8, d9, [sp], #48\n"
	if got := asmText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "save-pair x19 x20 16\nsave-pair-pre d8 d9 -48"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveCalleeSavedEmptyMaskStillAdjusts(t *testing.T) {
	g, asmText, rec := newBareGenerator()
	g.saveCalleeSaved(regs.Mask(0), 0, -32, regs.X9)
	if got, want := asmText(), "\tsub\tsp, sp, #32\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := joinEvents(rec), "alloc 32"; got != want {
		t.Errorf("events %q, want %q", got, want)
	}
}

func TestSaveRestoreAsserts(t *testing.T) {
	mustPanic(t, "positive save delta", func() {
		g, _, _ := newBareGenerator()
		g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, 16, regs.X9)
	})
	mustPanic(t, "unaligned save delta", func() {
		g, _, _ := newBareGenerator()
		g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, -8, regs.X9)
	})
	mustPanic(t, "mixed-class pair", func() {
		g, _, _ := newBareGenerator()
		g.saveRegPair(regPair{reg1: regs.X28, reg2: regs.D8}, 0, 0, regs.X9)
	})
	mustPanic(t, "continuation carrying the adjustment", func() {
		g, _, _ := newBareGenerator()
		g.saveRegPair(regPair{reg1: regs.X21, reg2: regs.X22, useContinuation: true}, 0, -32, regs.X9)
	})
	mustPanic(t, "pair offset out of range", func() {
		g, _, _ := newBareGenerator()
		g.saveRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 512, 0, regs.X9)
	})
	mustPanic(t, "negative restore delta", func() {
		g, _, _ := newBareGenerator()
		g.restoreRegPair(regPair{reg1: regs.X19, reg2: regs.X20}, 0, -16, regs.X9)
	})
	mustPanic(t, "zero sp adjustment", func() {
		g, _, _ := newBareGenerator()
		g.adjustSP(0, regs.X9, true)
	})
	mustPanic(t, "adjustment needs scratch", func() {
		g, _, _ := newBareGenerator()
		g.adjustSP(-65552, regs.None, true)
	})
	mustPanic(t, "negative materialized immediate", func() {
		g, _, _ := newBareGenerator()
		g.materializeImm(regs.X9, -1, false)
	})
}
