package binfhe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/chacha20"
)

// toyN is the LWE dimension and toyQ the modulus used by the TOY
// provider. Both are far too small for real security; they exist only to
// give the evaluator something that looks and behaves like an LWE
// ciphertext to drive against.
const (
	toyN = 32
	toyQ = 1 << 16
)

// ToyContext is a software, deliberately insecure implementation of
// Context. Gates are evaluated by decrypting their operands with an
// internally retained copy of the bootstrapping key, recomputing the
// plaintext result, and re-encrypting it — a legitimate strategy for a
// TOY parameter set whose only job is exercising the scheduler and
// executor's control flow, never providing secrecy.
type ToyContext struct {
	set    ParamSet
	method Method

	key [32]byte
	ctr atomic.Uint64

	btKey atomic.Pointer[SecretKey]

	// failFirstN, when positive, makes the next N EvalBinGate calls
	// return ErrNoiseFailure before decrementing. It exists so tests can
	// exercise the executor's retry-once policy deterministically.
	failFirstN atomic.Int32
}

func newToyContext(set ParamSet, method Method) (*ToyContext, error) {
	if set != TOY && set != STD128Opt {
		return nil, fmt.Errorf("binfhe: unknown parameter set %v", set)
	}
	if method != AP && method != GINX {
		return nil, fmt.Errorf("binfhe: unknown method %v", method)
	}
	c := &ToyContext{set: set, method: method}
	if _, err := rand.Read(c.key[:]); err != nil {
		return nil, fmt.Errorf("binfhe: seeding context: %w", err)
	}
	return c, nil
}

// ParamSet reports the parameter set the context was created with.
func (c *ToyContext) ParamSet() ParamSet { return c.set }

// Method reports the bootstrapping method the context was created with.
func (c *ToyContext) Method() Method { return c.method }

// InjectNoiseFailures arranges for the next n calls to EvalBinGate to
// fail with ErrNoiseFailure. Test-only knob for exercising the executor's
// retry-once recovery path.
func (c *ToyContext) InjectNoiseFailures(n int32) {
	c.failFirstN.Store(n)
}

func (c *ToyContext) stream(tag uint64) []byte {
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[:8], tag)
	cipher, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce[:])
	if err != nil {
		panic(err) // key/nonce are fixed-size and always valid here
	}
	buf := make([]byte, toyN*4+4)
	cipher.XORKeyStream(buf, buf)
	return buf
}

// KeyGen produces a fresh secret key: a random binary vector of length
// toyN.
func (c *ToyContext) KeyGen() *SecretKey {
	buf := c.stream(c.ctr.Add(1))
	s := make([]uint32, toyN)
	for i := range s {
		s[i] = uint32(buf[i]) & 1
	}
	return &SecretKey{s: s}
}

// BTKeyGen derives the context's bootstrapping key from sk. The TOY
// provider's "bootstrapping key" is a private copy of sk itself: real
// BinFHE bootstrapping keys are RGSW encryptions of the secret bits that
// let EvalBinGate/EvalNOT run without the raw key, but reproducing that
// machinery brings no benefit to a parameter set whose entire purpose is
// insecurity-for-testability. The shape callers see — EvalBinGate/EvalNOT
// take no key — is preserved.
func (c *ToyContext) BTKeyGen(sk *SecretKey) {
	cp := &SecretKey{s: append([]uint32(nil), sk.s...)}
	c.btKey.Store(cp)
}

// Encrypt produces an LWE-style encryption of bit under sk: a random mask
// a, and b = <a,s> + e + bit*(q/2), all mod toyQ.
func (c *ToyContext) Encrypt(sk *SecretKey, bit byte) (Ciphertext, error) {
	if bit != 0 && bit != 1 {
		return Ciphertext{}, fmt.Errorf("binfhe: invalid bit %d", bit)
	}
	buf := c.stream(c.ctr.Add(1))
	a := make([]uint32, toyN)
	var dot uint32
	for i := range a {
		a[i] = binary.LittleEndian.Uint32(buf[i*4:i*4+4]) % toyQ
		dot += a[i] * sk.s[i]
	}
	e := (uint32(buf[toyN*4]) % 3) - 1 // e in {-1,0,1} mod toyQ, wraps fine
	b := dot + e
	if bit == 1 {
		b += toyQ / 2
	}
	return Ciphertext{a: a, b: b % toyQ}, nil
}

func phase(ct Ciphertext, sk *SecretKey) uint32 {
	var dot uint32
	for i, ai := range ct.a {
		dot += ai * sk.s[i]
	}
	return (ct.b - dot) % toyQ
}

// Decrypt recovers the bit sk was used to encrypt.
func (c *ToyContext) Decrypt(sk *SecretKey, ct Ciphertext) (byte, error) {
	p := phase(ct, sk)
	// distance to 0 vs distance to q/2, on a ring of size toyQ.
	d0 := ringDist(p, 0)
	d1 := ringDist(p, toyQ/2)
	if d0 <= d1 {
		return 0, nil
	}
	return 1, nil
}

func ringDist(a, b uint32) uint32 {
	var d uint32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	if toyQ-d < d {
		return toyQ - d
	}
	return d
}

// EvalNOT evaluates NOT on a ciphertext using the stored bootstrapping
// key.
func (c *ToyContext) EvalNOT(a Ciphertext) Ciphertext {
	sk := c.btKey.Load()
	if sk == nil {
		panic("binfhe: EvalNOT before BTKeyGen")
	}
	bit, _ := c.Decrypt(sk, a)
	out, _ := c.Encrypt(sk, bit^1)
	return out
}

// EvalBinGate evaluates op on two ciphertexts using the stored
// bootstrapping key. It may fail with ErrNoiseFailure; callers must
// re-encrypt decrypted operands and retry once per spec.
func (c *ToyContext) EvalBinGate(op BinGate, a, b Ciphertext) (Ciphertext, error) {
	if n := c.failFirstN.Load(); n > 0 {
		c.failFirstN.Add(-1)
		return Ciphertext{}, ErrNoiseFailure
	}
	sk := c.btKey.Load()
	if sk == nil {
		panic("binfhe: EvalBinGate before BTKeyGen")
	}
	x, _ := c.Decrypt(sk, a)
	y, _ := c.Decrypt(sk, b)

	var r byte
	switch op {
	case AND:
		r = x & y
	case OR:
		r = x | y
	default:
		panic(fmt.Sprintf("binfhe: unsupported gate %v", op))
	}
	out, _ := c.Encrypt(sk, r)
	return out, nil
}
