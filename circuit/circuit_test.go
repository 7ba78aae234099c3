package circuit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcousins-njit/hecircuit/binfhe"
)

func newTestCircuit(t *testing.T) *Circuit {
	t.Helper()
	ctx, err := binfhe.Setup(binfhe.TOY, binfhe.GINX)
	if err != nil {
		t.Fatalf("binfhe.Setup: %v", err)
	}
	return New(ctx)
}

func runPlaintext(t *testing.T, path string, inputs [][]byte) [][]byte {
	t.Helper()
	c := newTestCircuit(t)
	if err := c.Load(path); err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	c.Plaintext = true
	c.Reset()
	if err := c.SetInput(inputs); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	out, err := c.Clock()
	if err != nil {
		t.Fatalf("Clock: %v", err)
	}
	return out
}

func TestParityEvenAndOdd(t *testing.T) {
	cases := []struct {
		name  string
		bits  []byte
		even  byte
		odd   byte
	}{
		{"four-ones-even", []byte{1, 0, 1, 1, 1}, 1, 0},
		{"three-ones-odd", []byte{1, 0, 1, 1, 0}, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := runPlaintext(t, "testdata/parity.out", [][]byte{tc.bits})
			if len(out) != 1 || len(out[0]) != 2 {
				t.Fatalf("output shape = %v, want [1][2]", out)
			}
			if out[0][0] != tc.even || out[0][1] != tc.odd {
				t.Errorf("{even,odd} = {%d,%d}, want {%d,%d}", out[0][0], out[0][1], tc.even, tc.odd)
			}
		})
	}
}

func TestAdder2RippleCarry(t *testing.T) {
	// A = (A1 A0) = (1 1) = 3, B = (B1 B0) = (0 1) = 1, sum = 4 = (c s1 s0)
	// with c=1, s1=0, s0=0.
	out := runPlaintext(t, "testdata/adder2.out", [][]byte{{1, 1}, {1, 0}})
	want := []byte{0, 0, 1}
	if len(out) != 1 || len(out[0]) != 3 {
		t.Fatalf("output shape = %v, want [1][3]", out)
	}
	for i := range want {
		if out[0][i] != want[i] {
			t.Errorf("bit %d = %d, want %d", i, out[0][i], want[i])
		}
	}
}

func TestResetIdempotence(t *testing.T) {
	c := newTestCircuit(t)
	if err := c.Load("testdata/parity.out"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Plaintext = true

	inputs := [][]byte{{1, 0, 1, 1, 1}}
	var results [][][]byte
	for i := 0; i < 2; i++ {
		c.Reset()
		if err := c.SetInput(inputs); err != nil {
			t.Fatalf("SetInput run %d: %v", i, err)
		}
		out, err := c.Clock()
		if err != nil {
			t.Fatalf("Clock run %d: %v", i, err)
		}
		results = append(results, out)
	}
	if results[0][0][0] != results[1][0][0] || results[0][0][1] != results[1][0][1] {
		t.Errorf("Reset was not idempotent: run0=%v run1=%v", results[0], results[1])
	}
}

func TestConservationAndFanoutDrain(t *testing.T) {
	c := newTestCircuit(t)
	if err := c.Load("testdata/adder2.out"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Plaintext = true
	c.Reset()
	if err := c.SetInput([][]byte{{0, 1}, {1, 1}}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if _, err := c.Clock(); err != nil {
		t.Fatalf("Clock: %v", err)
	}

	nInputs, nOther := c.NumGates()
	if got := c.DoneGateCount(); got != nOther {
		t.Errorf("DoneGateCount = %d, want %d (nInputGates=%d not counted in doneGates)", got, nOther, nInputs)
	}
	if !c.Done() {
		t.Error("Done() = false after successful Clock")
	}
	if got := c.WaitingWireCount(); got != 0 {
		t.Errorf("WaitingWireCount = %d, want 0 at termination", got)
	}
	if c.activeWires.Len() != 0 {
		t.Errorf("activeWires.Len() = %d, want 0 at termination", c.activeWires.Len())
	}
}

func TestPlaintextEncryptedAgreementWithVerify(t *testing.T) {
	c := newTestCircuit(t)
	if err := c.Load("testdata/adder2.out"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Plaintext = true
	c.Encrypted = true
	c.Verify = true
	c.Reset()
	if err := c.SetInput([][]byte{{1, 1}, {1, 0}}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	out, err := c.Clock()
	if err != nil {
		t.Fatalf("Clock: %v (verify would fail this if plaintext/encrypted disagreed)", err)
	}
	want := []byte{0, 0, 1}
	for i := range want {
		if out[0][i] != want[i] {
			t.Errorf("bit %d = %d, want %d", i, out[0][i], want[i])
		}
	}
}

func TestDirectXORRejected(t *testing.T) {
	c := newTestCircuit(t)
	if err := c.Load("testdata/adder2.out"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Encrypted = true
	c.DirectXOR = true
	c.Reset()
	if err := c.SetInput([][]byte{{1, 1}, {1, 0}}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if _, err := c.Clock(); err == nil {
		t.Fatal("Clock: want error with DirectXOR set (oracle has no direct XOR primitive), got nil")
	}
}

const cyclicFixture = `R0 = LOAD(In1, 0)
R1 = AND(R0, R2)
R2 = NOT(R1)
`

func TestSchedulerDetectsCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclic.out")
	if err := os.WriteFile(path, []byte(cyclicFixture), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c := newTestCircuit(t)
	if err := c.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Plaintext = true
	c.Reset()
	if err := c.SetInput([][]byte{{1}}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	_, err := c.Clock()
	if err == nil {
		t.Fatal("Clock: want SchedulerInvariantViolation on a cyclic circuit, got nil")
	}
	var sched *SchedulerInvariantViolation
	if !errors.As(err, &sched) {
		t.Fatalf("Clock: want *SchedulerInvariantViolation, got %T: %v", err, err)
	}
}

func TestVerifyMismatchIsFatalWithoutRepair(t *testing.T) {
	c := newTestCircuit(t)
	if err := c.Load("testdata/adder2.out"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Plaintext = true
	c.Encrypted = true
	c.Verify = true
	c.Reset()
	if err := c.SetInput([][]byte{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}

	// White-box: flip one active wire's ciphertext to the complement of
	// its plaintext value, forcing the encrypted and plaintext paths to
	// disagree from the first gate that consumes it onward.
	front := c.activeWires.Front()
	w := front.Value.(*Wire)
	ct, err := c.ctx.Encrypt(c.sk, w.Value^1)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	w.Cipher = ct

	_, err = c.Clock()
	if err == nil {
		t.Fatal("Clock: want ErrVerifyMismatch with a corrupted wire, got nil")
	}
	var mismatch *ErrVerifyMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("Clock: want *ErrVerifyMismatch, got %T: %v", err, err)
	}
}
