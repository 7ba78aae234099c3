// Package circuit implements the evaluation engine: it loads an assembled
// program into a named wire/gate graph, drives it to completion with a
// wire-centric scheduler and a parallel per-batch gate executor, and
// writes decrypted results to an output bus.
package circuit

import (
	"fmt"

	"github.com/dcousins-njit/hecircuit/binfhe"
)

// GateOp identifies the operation a Gate performs.
type GateOp int

// Recognized gate operations. INPUT and OUTPUT are graph bookkeeping
// nodes; NOT/AND/OR/XOR are the compute gates the executor evaluates.
const (
	OpInput GateOp = iota
	OpOutput
	OpNot
	OpAnd
	OpOr
	OpXor
)

func (op GateOp) String() string {
	switch op {
	case OpInput:
		return "INPUT"
	case OpOutput:
		return "OUTPUT"
	case OpNot:
		return "NOT"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpXor:
		return "XOR"
	default:
		return fmt.Sprintf("{GateOp %d}", int(op))
	}
}

// Wire is a named half-edge carrying one bit, plaintext and/or encrypted.
// Fanout holds the names of gates that still need to consume this wire;
// it starts as a copy of the net list's entry for the wire's name and
// shrinks as the scheduler drains it.
type Wire struct {
	Name   string
	Value  byte
	Cipher binfhe.Ciphertext
	Fanout []string
}

// Gate is a named node in the circuit graph. Input-wire names, ready
// flags, and captured plaintext/ciphertext inputs are parallel slices
// indexed by input position (length 1 for NOT/OUTPUT, 2 for AND/OR/XOR;
// INPUT gates carry two descriptor strings but no true graph inputs).
type Gate struct {
	Name string
	Op   GateOp

	InWireNames  []string
	OutWireNames []string

	Ready   []bool
	PlainIn []byte
	EncIn   []binfhe.Ciphertext

	PlainOut []byte
	EncOut   []binfhe.Ciphertext
}

// NetList maps a wire name to the names of the gates that consume it.
// Built once by the Loader and never mutated afterward; per-run fanout
// tracking happens on copies held by Wire values.
type NetList map[string][]string
