package bristol

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// A tiny old-style circuit: two 1-bit inputs and one XOR gate producing
// the output, plus an EQW alias off one of the inputs.
const oldStyleFixture = `2 4
1 1 1

2 1 0 1 2 XOR
1 1 0 3 EQW
`

func TestAnalyzeOldStyle(t *testing.T) {
	path := writeFixture(t, "old.txt", oldStyleFixture)

	a, err := Analyze(path, true, false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Variables.NTot != 4 {
		t.Errorf("NTot = %d, want 4", a.Variables.NTot)
	}
	if a.Variables.NIn1Bits != 1 || a.Variables.NIn2Bits != 1 || a.Variables.NOut1Bits != 1 {
		t.Errorf("io bits = %d/%d/%d, want 1/1/1", a.Variables.NIn1Bits, a.Variables.NIn2Bits, a.Variables.NOut1Bits)
	}
	if a.Functions.NXor != 1 || a.Functions.NEqw != 1 {
		t.Errorf("counts: xor=%d eqw=%d, want 1/1", a.Functions.NXor, a.Functions.NEqw)
	}
	if got := a.MaxFanIn(); got != 1 {
		t.Errorf("MaxFanIn = %d, want 1", got)
	}
}

// New-style header: gate/wire counts, then nInputs/in1/in2, then
// nOutputs/out1, then a blank line.
const newStyleFixture = `2 4
2 1 1
1 1

2 1 0 1 2 AND
1 1 2 3 INV
`

func TestAnalyzeNewStyle(t *testing.T) {
	path := writeFixture(t, "new.txt", newStyleFixture)

	a, err := Analyze(path, false, true)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.Variables.NewStyle {
		t.Error("NewStyle = false, want true")
	}
	if a.Variables.NInputs != 2 || a.Variables.NOutputs != 1 {
		t.Errorf("NInputs/NOutputs = %d/%d, want 2/1", a.Variables.NInputs, a.Variables.NOutputs)
	}
	if a.Functions.NAnd != 1 || a.Functions.NNot != 1 {
		t.Errorf("counts: and=%d not=%d, want 1/1", a.Functions.NAnd, a.Functions.NNot)
	}
	if a.Variables.FanIn != nil {
		t.Error("FanIn should be nil when genFan is false")
	}
}

func TestAnalyzeEQIsFatal(t *testing.T) {
	const fixture = `1 2
1 1 1

2 1 0 1 2 EQ
`
	path := writeFixture(t, "eq.txt", fixture)

	_, err := Analyze(path, false, false)
	if err == nil {
		t.Fatal("Analyze: want error for EQ gate, got nil")
	}
	var pe *ParseError
	if !asParseError(err, &pe) {
		t.Fatalf("Analyze: want *ParseError, got %T: %v", err, err)
	}
}

func TestAnalyzeUnrecognizedOpSkipped(t *testing.T) {
	const fixture = `2 3
1 1 1

1 1 0 1 FROB
1 1 1 2 INV
`
	path := writeFixture(t, "frob.txt", fixture)

	a, err := Analyze(path, true, false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Functions.NNot != 1 {
		t.Errorf("NNot = %d, want 1 (unrecognized op should be skipped, not fatal)", a.Functions.NNot)
	}
	if len(a.Functions.CallList) != 1 {
		t.Errorf("len(CallList) = %d, want 1", len(a.Functions.CallList))
	}

	// Wires 0 and 1, touched only by the unrecognized FROB line, must still
	// show up in fan-in/fan-out and wire-lifetime bookkeeping: the original
	// analyzer records var_low_water/var_high_water and the fan lists from
	// every function line's argument list unconditionally, before it even
	// looks at the opcode token, so a "bad parse" only drops the call tally,
	// never the wire accounting.
	if got := a.Variables.FanOut[0]; got != 1 {
		t.Errorf("FanOut[0] = %d, want 1 (wire 0 is read by the unrecognized-op line)", got)
	}
	if got := a.Variables.FanIn[1]; got != 1 {
		t.Errorf("FanIn[1] = %d, want 1 (wire 1 is written by the unrecognized-op line)", got)
	}
	if a.Variables.LowWater[0] != 0 || a.Variables.HighWater[0] != 0 {
		t.Errorf("wire 0 low/high water = %d/%d, want 0/0", a.Variables.LowWater[0], a.Variables.HighWater[0])
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "does-not-exist.txt"), false, false)
	if err == nil {
		t.Fatal("Analyze: want error for missing file, got nil")
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}
