package binfhe

import "errors"

// ErrNoiseFailure is returned by EvalBinGate when the (simulated) noise
// budget of a ciphertext is exhausted. The caller is expected to recover
// by re-encrypting the decrypted operands and retrying once.
var ErrNoiseFailure = errors.New("binfhe: noise failure")

// SecretKey is the client-held key used to encrypt and decrypt bits.
type SecretKey struct {
	s []uint32
}

// Ciphertext holds one encrypted bit.
type Ciphertext struct {
	a []uint32
	b uint32
}

// Context is the interface the circuit evaluator drives. It corresponds
// to the six operations of the external FHE Oracle: setup, key
// generation (KeyGen + BTKeyGen), encrypt, decrypt, and evaluation of a
// binary gate or NOT.
type Context interface {
	ParamSet() ParamSet
	Method() Method

	// KeyGen produces a fresh client secret key.
	KeyGen() *SecretKey

	// BTKeyGen derives and stores the context's bootstrapping key from
	// sk. After this call, EvalBinGate and EvalNOT no longer need sk.
	BTKeyGen(sk *SecretKey)

	Encrypt(sk *SecretKey, bit byte) (Ciphertext, error)
	Decrypt(sk *SecretKey, ct Ciphertext) (byte, error)

	EvalBinGate(op BinGate, a, b Ciphertext) (Ciphertext, error)
	EvalNOT(a Ciphertext) Ciphertext
}

// Setup creates a new context for the given parameter set and
// bootstrapping method. The only backend shipped here is the TOY
// provider (see toy.go); set and method are recorded and reported but do
// not change the underlying (insecure) math.
func Setup(set ParamSet, method Method) (*ToyContext, error) {
	return newToyContext(set, method)
}
