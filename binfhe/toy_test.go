package binfhe

import "testing"

func newTestContext(t *testing.T) (*ToyContext, *SecretKey) {
	t.Helper()
	ctx, err := Setup(TOY, GINX)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	sk := ctx.KeyGen()
	ctx.BTKeyGen(sk)
	return ctx, sk
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx, sk := newTestContext(t)

	for _, bit := range []byte{0, 1} {
		for i := 0; i < 20; i++ {
			ct, err := ctx.Encrypt(sk, bit)
			if err != nil {
				t.Fatalf("Encrypt(%d): %v", bit, err)
			}
			got, err := ctx.Decrypt(sk, ct)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != bit {
				t.Fatalf("round trip: encrypted %d, decrypted %d", bit, got)
			}
		}
	}
}

func TestEvalBinGate(t *testing.T) {
	ctx, sk := newTestContext(t)

	cases := []struct {
		op      BinGate
		a, b, w byte
	}{
		{AND, 0, 0, 0},
		{AND, 0, 1, 0},
		{AND, 1, 0, 0},
		{AND, 1, 1, 1},
		{OR, 0, 0, 0},
		{OR, 0, 1, 1},
		{OR, 1, 0, 1},
		{OR, 1, 1, 1},
	}
	for _, c := range cases {
		ca, err := ctx.Encrypt(sk, c.a)
		if err != nil {
			t.Fatalf("Encrypt(a): %v", err)
		}
		cb, err := ctx.Encrypt(sk, c.b)
		if err != nil {
			t.Fatalf("Encrypt(b): %v", err)
		}
		out, err := ctx.EvalBinGate(c.op, ca, cb)
		if err != nil {
			t.Fatalf("EvalBinGate(%v, %d, %d): %v", c.op, c.a, c.b, err)
		}
		got, err := ctx.Decrypt(sk, out)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != c.w {
			t.Errorf("%v(%d,%d) = %d, want %d", c.op, c.a, c.b, got, c.w)
		}
	}
}

func TestEvalNOT(t *testing.T) {
	ctx, sk := newTestContext(t)

	for _, bit := range []byte{0, 1} {
		ct, err := ctx.Encrypt(sk, bit)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		out := ctx.EvalNOT(ct)
		got, err := ctx.Decrypt(sk, out)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != bit^1 {
			t.Errorf("NOT(%d) = %d, want %d", bit, got, bit^1)
		}
	}
}

func TestInjectedNoiseFailureThenRetry(t *testing.T) {
	ctx, sk := newTestContext(t)

	ct1, _ := ctx.Encrypt(sk, 1)
	ct2, _ := ctx.Encrypt(sk, 1)

	ctx.InjectNoiseFailures(1)
	if _, err := ctx.EvalBinGate(AND, ct1, ct2); err != ErrNoiseFailure {
		t.Fatalf("EvalBinGate: got err %v, want ErrNoiseFailure", err)
	}

	// Retry: re-encrypt the decrypted operands and try again, as the
	// executor does on a noise failure.
	b1, _ := ctx.Decrypt(sk, ct1)
	b2, _ := ctx.Decrypt(sk, ct2)
	ct1, _ = ctx.Encrypt(sk, b1)
	ct2, _ = ctx.Encrypt(sk, b2)

	out, err := ctx.EvalBinGate(AND, ct1, ct2)
	if err != nil {
		t.Fatalf("EvalBinGate after retry: %v", err)
	}
	got, _ := ctx.Decrypt(sk, out)
	if got != 1 {
		t.Fatalf("AND(1,1) after retry = %d, want 1", got)
	}
}

func TestSetupRejectsUnknownEnums(t *testing.T) {
	if _, err := Setup(ParamSet(99), AP); err == nil {
		t.Fatal("Setup: want error for unknown ParamSet, got nil")
	}
	if _, err := Setup(TOY, Method(99)); err == nil {
		t.Fatal("Setup: want error for unknown Method, got nil")
	}
}
