package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

// resetFlags restores every bound flag variable to its default so test
// cases do not leak state into each other.
func resetFlags() {
	nameFlag = "method"
	saveRegsFlag = ""
	outgoingFlag = 0
	localsFlag = 0
	varArgsFlag = false
	localAllocFlag = false
	colocateFlag = false
	parentSlotFlag = false
	filterFlag = false
	dFrame = false
	dFunclet = false
	dUnwind = false
	debugFlag = false
	noColorFlag = true
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{
		"name", "save-regs", "outgoing", "locals", "varargs", "localloc",
		"colocate", "parent-slot", "filter",
		"dframe", "dfunclet", "dunwind",
		"debug", "no-color",
	}
	for _, flagName := range expectedFlags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "single-dash dframe",
			input:    []string{"-dframe"},
			expected: []string{"--dframe"},
		},
		{
			name:     "single-dash dunwind with other flags",
			input:    []string{"-dunwind", "--save-regs", "x19"},
			expected: []string{"--dunwind", "--save-regs", "x19"},
		},
		{
			name:     "double-dash untouched",
			input:    []string{"--dfunclet"},
			expected: []string{"--dfunclet"},
		},
		{
			name:     "non-dump flags untouched",
			input:    []string{"--locals", "16"},
			expected: []string{"--locals", "16"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeFlags(tc.input)
			if len(got) != len(tc.expected) {
				t.Fatalf("normalizeFlags(%v) = %v, want %v", tc.input, got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("normalizeFlags(%v)[%d] = %q, want %q", tc.input, i, got[i], tc.expected[i])
				}
			}
		})
	}
}

func TestDefaultListingEmitsMethodAndFunclet(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--save-regs", "x19,x20", "--locals", "16", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	output := out.String()
	for _, exp := range []string{
		"method:",
		"method_funclet:",
		"stp\tx29, x30",
		"stp\tx19, x20",
		"ldp\tx29, x30",
		"ret",
	} {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
		}
	}
}

func TestDFrameDump(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--dframe", "--save-regs", "x19", "--locals", "8", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	want := "total size               32\n" +
		"sp to fp                 0\n" +
		"caller sp to fp          -32\n" +
		"frame link               anchored\n"
	if got := out.String(); got != want {
		t.Errorf("frame dump:\n%s\nwant:\n%s", got, want)
	}
}

func TestDFuncletDump(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--dfunclet", "--save-regs", "x19,x20", "--outgoing", "16", "--parent-slot", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	want := "frame type               2\n" +
		"sp delta 1               -64\n" +
		"sp delta 2               0\n" +
		"sp to frame link save    16\n" +
		"sp to callee-save area   48\n" +
		"sp to parent slot        40\n" +
		"caller sp to parent slot -24\n"
	if got := out.String(); got != want {
		t.Errorf("funclet dump:\n%s\nwant:\n%s", got, want)
	}
}

func TestDUnwindDump(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--dunwind", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	output := out.String()
	for _, exp := range []string{
		"method:",
		"method_funclet:",
		"prolog:",
		"set_fp",
		"save_fplr_x #-16",
		"end",
		"epilog 0:",
	} {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
		}
	}
}

func TestFlagErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "caller-saved register",
			args:    []string{"--save-regs", "x5"},
			wantMsg: "not callee-saved",
		},
		{
			name:    "unknown register",
			args:    []string{"--save-regs", "blah"},
			wantMsg: "unknown register",
		},
		{
			name:    "unaligned outgoing",
			args:    []string{"--outgoing", "12"},
			wantMsg: "multiple of 8",
		},
		{
			name:    "negative locals",
			args:    []string{"--locals=-8"},
			wantMsg: "multiple of 8",
		},
		{
			name:    "localloc with huge outgoing",
			args:    []string{"--localloc", "--outgoing", "504"},
			wantMsg: "cannot be combined",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags()

			var out, errOut bytes.Buffer
			cmd := newRootCmd(&out, &errOut)
			cmd.SetArgs(append(tc.args, "--no-color"))
			err := cmd.Execute()

			if err == nil {
				t.Fatalf("expected error for %v, got nil", tc.args)
			}
			if !strings.Contains(errOut.String(), tc.wantMsg) {
				t.Errorf("expected stderr to contain %q, got %q", tc.wantMsg, errOut.String())
			}
		})
	}
}

// Runtime stack allocation pins the frame link to the anchored shape;
// a --colocate request is overridden, not rejected.
func TestLocallocKeepsFrameLinkAnchored(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--dframe", "--localloc", "--colocate", "--save-regs", "x19,x20", "--locals", "16", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	if !strings.Contains(out.String(), "frame link               anchored") {
		t.Errorf("expected anchored frame link, got:\n%s", out.String())
	}
}

// A large outgoing area pushes the fp/lr store out of paired-store
// range, forcing the co-located shape on.
func TestLargeOutgoingForcesColocation(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--dframe", "--save-regs", "x19,x20", "--outgoing", "504", "--no-color"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("framegen failed: %v\nStderr: %s", err, errOut.String())
	}

	if !strings.Contains(out.String(), "frame link               colocated") {
		t.Errorf("expected colocated frame link, got:\n%s", out.String())
	}
}
