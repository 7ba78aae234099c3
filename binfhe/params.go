// Package binfhe models the binary fully-homomorphic-encryption oracle
// that the circuit evaluator drives: context setup, key generation,
// single-bit encryption/decryption, and evaluation of one two-input
// binary gate or one-input NOT on ciphertexts.
//
// The real BinFHE math is out of scope for this repository (it is an
// external cryptographic library in the system this package models); the
// Context interface pins down the shape the rest of the module needs, and
// the shipped ToyContext gives that shape a working, deliberately
// insecure implementation so the evaluator can be built and tested
// without linking a third-party FHE library.
package binfhe

import "fmt"

// ParamSet selects the security/performance profile of a context.
type ParamSet int

// Parameter set presets.
const (
	TOY ParamSet = iota
	STD128Opt
)

func (p ParamSet) String() string {
	switch p {
	case TOY:
		return "TOY"
	case STD128Opt:
		return "STD128_OPT"
	default:
		return fmt.Sprintf("{ParamSet %d}", int(p))
	}
}

// Method selects the bootstrapping method used by BTKeyGen.
type Method int

// Bootstrapping methods.
const (
	AP Method = iota
	GINX
)

func (m Method) String() string {
	switch m {
	case AP:
		return "AP"
	case GINX:
		return "GINX"
	default:
		return fmt.Sprintf("{Method %d}", int(m))
	}
}

// BinGate is a two-input gate the oracle can evaluate homomorphically.
type BinGate int

// Supported binary gates. XOR is intentionally absent: the executor lowers
// it to AND/OR/NOT (spec design note, noise-budget driven).
const (
	AND BinGate = iota
	OR
)

func (g BinGate) String() string {
	switch g {
	case AND:
		return "AND"
	case OR:
		return "OR"
	default:
		return fmt.Sprintf("{BinGate %d}", int(g))
	}
}
