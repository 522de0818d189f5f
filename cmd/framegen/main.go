package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/raymyers/framegen/internal/logger"
	"github.com/raymyers/framegen/pkg/asm"
	"github.com/raymyers/framegen/pkg/frame"
	"github.com/raymyers/framegen/pkg/regs"
	"github.com/raymyers/framegen/pkg/unwind"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

var version = "0.1.0"

// Method description flags
var (
	nameFlag       string
	saveRegsFlag   string
	outgoingFlag   int64
	localsFlag     int64
	varArgsFlag    bool
	localAllocFlag bool
	colocateFlag   bool
	parentSlotFlag bool
	filterFlag     bool
)

// Dump flags for the individual layout views
var (
	dFrame   bool
	dFunclet bool
	dUnwind  bool
)

// Logging flags, defaulted from the environment
var (
	debugFlag   bool
	noColorFlag bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash dump flags like -dframe alongside --dframe
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// dumpFlagNames lists all dump flags that should accept single-dash style
var dumpFlagNames = []string{"dframe", "dfunclet", "dunwind"}

// normalizeFlags converts single-dash dump flags like -dframe to --dframe
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range dumpFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "framegen",
		Short: "framegen lays out AArch64 stack frames and emits their prologues and epilogues",
		Long: `framegen computes the stack frame layout for a method described by
flags, then emits the prologue and epilogue for the method and for an
exception handler funclet, together with the unwind codes describing
them. Dump flags print a single layout view instead.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(debugFlag, noColorFlag)

			ctx, err := buildContext()
			if err != nil {
				fmt.Fprintf(errOut, "framegen: %v\n", err)
				return err
			}

			// Handle -dframe: dump the main frame layout
			if dFrame {
				return doFrame(ctx, out)
			}

			// Handle -dfunclet: dump the funclet frame shape
			if dFunclet {
				return doFunclet(ctx, out)
			}

			// Handle -dunwind: dump the packed unwind codes
			if dUnwind {
				return doUnwind(ctx, out)
			}

			return doListing(ctx, out)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Method description flags
	rootCmd.Flags().StringVar(&nameFlag, "name", "method", "Symbol name for the emitted listings")
	rootCmd.Flags().StringVar(&saveRegsFlag, "save-regs", "", "Callee-saved registers the method modifies, comma-separated (fp and lr are implied)")
	rootCmd.Flags().Int64Var(&outgoingFlag, "outgoing", 0, "Outgoing argument area in bytes")
	rootCmd.Flags().Int64Var(&localsFlag, "locals", 0, "Local variable and spill area in bytes")
	rootCmd.Flags().BoolVar(&varArgsFlag, "varargs", false, "Reserve homing space for a variadic method")
	rootCmd.Flags().BoolVar(&localAllocFlag, "localloc", false, "Method allocates stack at runtime")
	rootCmd.Flags().BoolVar(&colocateFlag, "colocate", env.Bool("FRAMEGEN_COLOCATE"), "Save fp/lr with the other callee-saved registers")
	rootCmd.Flags().BoolVar(&parentSlotFlag, "parent-slot", false, "Reserve the parent frame slot funclets publish through")
	rootCmd.Flags().BoolVar(&filterFlag, "filter", false, "Emit the funclet prologue in its filter form")

	// Dump flags
	rootCmd.Flags().BoolVar(&dFrame, "dframe", false, "Dump the frame layout")
	rootCmd.Flags().BoolVar(&dFunclet, "dfunclet", false, "Dump the funclet frame shape")
	rootCmd.Flags().BoolVar(&dUnwind, "dunwind", false, "Dump the packed unwind codes")

	// Logging flags
	rootCmd.Flags().BoolVar(&debugFlag, "debug", env.Bool("FRAMEGEN_DEBUG"), "Trace frame computation")
	rootCmd.Flags().BoolVar(&noColorFlag, "no-color", env.Bool("FRAMEGEN_NO_COLOR"), "Disable colored log output")

	return rootCmd
}

// buildContext validates the description flags and assembles the
// engine's input. Flag mistakes come back as errors; the engine itself
// panics on violated invariants, so everything it would reject is
// caught here first.
func buildContext() (frame.Context, error) {
	saveMask, err := parseSaveRegs(saveRegsFlag)
	if err != nil {
		return frame.Context{}, err
	}
	if outgoingFlag < 0 || outgoingFlag%8 != 0 {
		return frame.Context{}, fmt.Errorf("--outgoing must be a non-negative multiple of 8, got %d", outgoingFlag)
	}
	if localsFlag < 0 || localsFlag%8 != 0 {
		return frame.Context{}, fmt.Errorf("--locals must be a non-negative multiple of 8, got %d", localsFlag)
	}
	if localAllocFlag && outgoingFlag >= asm.PairIndexMax {
		return frame.Context{}, fmt.Errorf("--localloc cannot be combined with an outgoing area of %d bytes or more", asm.PairIndexMax)
	}
	if localAllocFlag && colocateFlag {
		log.Warn("runtime stack allocation keeps the frame link anchored; --colocate is ignored")
	}

	ctx := frame.Context{
		SaveRegs:           saveMask,
		OutgoingArgSize:    outgoingFlag,
		LocalFrameSize:     localsFlag + outgoingFlag,
		IsVarArgs:          varArgsFlag,
		UsesLocalAlloc:     localAllocFlag,
		HasParentFrameSlot: parentSlotFlag,
		ColocateFrameLink:  colocateFlag,
	}
	if parentSlotFlag {
		ctx.LocalFrameSize += 8
	}

	log.Debug("method described",
		"saveRegs", saveMask.String(),
		"outgoing", outgoingFlag,
		"locals", localsFlag,
		"varargs", varArgsFlag,
		"localloc", localAllocFlag,
		"colocate", colocateFlag,
		"parentSlot", parentSlotFlag)
	return ctx, nil
}

// parseSaveRegs builds the callee-save mask from a comma-separated
// register list. fp and lr are always saved and need not be listed.
func parseSaveRegs(list string) (regs.Mask, error) {
	m := regs.FrameLink
	if list == "" {
		return m, nil
	}
	allowed := regs.CalleeSavedGeneral | regs.CalleeSavedFloat | regs.FrameLink
	for _, name := range strings.Split(list, ",") {
		r, err := regs.Parse(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		if !allowed.Has(r) {
			return 0, fmt.Errorf("%s is not callee-saved", r)
		}
		m |= regs.NewMask(r)
	}
	return m, nil
}

// doFrame computes and dumps the main frame layout
func doFrame(ctx frame.Context, out io.Writer) error {
	f := frame.ComputeFrame(ctx)
	log.Debug("frame computed", "totalSize", f.TotalSize, "colocated", f.Ctx.ColocateFrameLink)

	fmt.Fprintf(out, "total size               %d\n", f.TotalSize)
	fmt.Fprintf(out, "sp to fp                 %d\n", f.SpToFp)
	fmt.Fprintf(out, "caller sp to fp          %d\n", f.CallerSpToFp)
	if f.Ctx.HasParentFrameSlot {
		fmt.Fprintf(out, "sp to parent slot        %d\n", f.SpToParentSlot)
		fmt.Fprintf(out, "caller sp to parent slot %d\n", f.CallerSpToParentSlot)
	}
	fmt.Fprintf(out, "frame link               %s\n", frameLinkPlacement(f.Ctx.ColocateFrameLink))
	return nil
}

// doFunclet computes and dumps the funclet frame shape
func doFunclet(ctx frame.Context, out io.Writer) error {
	fi := frame.ComputeFuncletFrameInfo(ctx)
	log.Debug("funclet shape selected", "frameType", fi.FrameType)

	fmt.Fprintf(out, "frame type               %d\n", fi.FrameType)
	fmt.Fprintf(out, "sp delta 1               %d\n", fi.SpDelta1)
	fmt.Fprintf(out, "sp delta 2               %d\n", fi.SpDelta2)
	fmt.Fprintf(out, "sp to frame link save    %d\n", fi.SpToFrameLinkSave)
	fmt.Fprintf(out, "sp to callee-save area   %d\n", fi.SpToCalleeSaveArea)
	if ctx.HasParentFrameSlot {
		fmt.Fprintf(out, "sp to parent slot        %d\n", fi.SpToParentSlot)
		fmt.Fprintf(out, "caller sp to parent slot %d\n", fi.CallerSpToParentSlot)
	}
	return nil
}

// doUnwind emits both the method and funclet sequences and dumps the
// packed unwind codes recorded for each
func doUnwind(ctx frame.Context, out io.Writer) error {
	rec := unwind.NewRecorder()
	g := frame.New(ctx, &asm.Function{Name: nameFlag}, rec)
	g.EmitFunctionPrologue()
	g.EmitFunctionEpilogue()
	fmt.Fprintf(out, "%s:\n%s", nameFlag, rec.String())

	rec = unwind.NewRecorder()
	g = frame.New(ctx, &asm.Function{Name: nameFlag + "_funclet"}, rec)
	g.EmitFuncletPrologue(filterFlag)
	g.EmitFuncletEpilogue()
	fmt.Fprintf(out, "%s_funclet:\n%s", nameFlag, rec.String())
	return nil
}

// doListing emits the method and funclet prologue/epilogue pairs as an
// assembly listing
func doListing(ctx frame.Context, out io.Writer) error {
	printer := asm.NewPrinter(out)

	fn := &asm.Function{Name: nameFlag}
	g := frame.New(ctx, fn, unwind.NewRecorder())
	g.EmitFunctionPrologue()
	g.EmitFunctionEpilogue()
	log.Debug("method emitted", "instructions", len(fn.Code), "totalSize", g.Frame().TotalSize)
	printer.PrintFunction(fn)

	funclet := &asm.Function{Name: nameFlag + "_funclet"}
	g = frame.New(ctx, funclet, unwind.NewRecorder())
	g.EmitFuncletPrologue(filterFlag)
	g.EmitFuncletEpilogue()
	log.Debug("funclet emitted", "instructions", len(funclet.Code), "frameType", g.FuncletInfo().FrameType)
	printer.PrintFunction(funclet)

	return nil
}

func frameLinkPlacement(colocated bool) string {
	if colocated {
		return "colocated"
	}
	return "anchored"
}
