package circuit

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dcousins-njit/hecircuit/binfhe"
)

// execute drains executingGates: every gate in the batch is evaluated
// concurrently (one goroutine per gate, joined before proceeding), then
// non-OUTPUT gates activate fresh output wires (in batch order, per the
// scheduler's wire-activation ordering guarantee) and OUTPUT gates write
// their bit into the output bus.
func (c *Circuit) execute() error {
	batch := c.executingGates
	c.executingGates = nil
	if len(batch) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(batch))
	for i, g := range batch {
		wg.Add(1)
		go func(i int, g *Gate) {
			defer wg.Done()
			errs[i] = c.evaluate(g)
		}(i, g)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for _, g := range batch {
		switch g.Op {
		case OpInput:
			c.nInputGates++
		case OpOutput:
			c.nOutputGates++
		case OpNot:
			c.nNotGates++
		case OpAnd:
			c.nAndGates++
		case OpOr:
			c.nOrGates++
		case OpXor:
			c.nXorGates++
		}

		if g.Op == OpOutput {
			if err := c.storeOutput(g); err != nil {
				return err
			}
			for _, outName := range g.OutWireNames {
				delete(c.waitingWireNames, outName)
			}
			c.doneGates = append(c.doneGates, g)
			continue
		}

		for i, outName := range g.OutWireNames {
			w := &Wire{Name: outName}
			if c.Plaintext {
				w.Value = g.PlainOut[i]
			}
			if c.Encrypted {
				w.Cipher = g.EncOut[i]
			}
			fanout, ok := c.nl[outName]
			if !ok {
				return &SchedulerInvariantViolation{Msg: fmt.Sprintf("wire %s missing from net list", outName)}
			}
			w.Fanout = append([]string(nil), fanout...)

			delete(c.waitingWireNames, outName)
			c.activeWires.PushBack(w)
		}
		c.doneGates = append(c.doneGates, g)
	}
	return nil
}

// evaluate computes a single gate's plaintext and/or encrypted outputs.
// It touches only g and the (concurrency-safe) FHE context, so it is
// safe to run concurrently with the evaluation of every other gate in
// the same batch.
func (c *Circuit) evaluate(g *Gate) error {
	switch g.Op {
	case OpInput:
		return fmt.Errorf("circuit: INPUT gate %s reached the executor", g.Name)

	case OpOutput:
		if c.Plaintext {
			g.PlainOut = []byte{g.PlainIn[0]}
		}
		if c.Encrypted {
			g.EncOut = []binfhe.Ciphertext{g.EncIn[0]}
			return c.verify(g)
		}
		return nil

	case OpNot:
		if c.Plaintext {
			g.PlainOut = []byte{g.PlainIn[0] ^ 1}
		}
		if c.Encrypted {
			g.EncOut = []binfhe.Ciphertext{c.ctx.EvalNOT(g.EncIn[0])}
			return c.verify(g)
		}
		return nil

	case OpAnd:
		if c.Plaintext {
			g.PlainOut = []byte{g.PlainIn[0] & g.PlainIn[1]}
		}
		if c.Encrypted {
			out, err := c.ctx.EvalBinGate(binfhe.AND, g.EncIn[0], g.EncIn[1])
			if errors.Is(err, binfhe.ErrNoiseFailure) {
				fmt.Fprintf(os.Stderr, "circuit: noise failure on %s, re-encrypting and retrying\n", g.Name)
				in0, in1, rerr := c.reencryptInputs(g)
				if rerr != nil {
					return rerr
				}
				out, err = c.ctx.EvalBinGate(binfhe.AND, in0, in1)
				if err != nil {
					return fmt.Errorf("circuit: gate %s failed after retry: %w", g.Name, err)
				}
			} else if err != nil {
				return fmt.Errorf("circuit: gate %s: %w", g.Name, err)
			}
			g.EncOut = []binfhe.Ciphertext{out}
			return c.verify(g)
		}
		return nil

	case OpOr:
		if c.Plaintext {
			g.PlainOut = []byte{g.PlainIn[0] | g.PlainIn[1]}
		}
		if c.Encrypted {
			out, err := c.ctx.EvalBinGate(binfhe.OR, g.EncIn[0], g.EncIn[1])
			if err != nil {
				return fmt.Errorf("circuit: gate %s: %w", g.Name, err)
			}
			g.EncOut = []binfhe.Ciphertext{out}
			return c.verify(g)
		}
		return nil

	case OpXor:
		if c.Plaintext {
			g.PlainOut = []byte{g.PlainIn[0] ^ g.PlainIn[1]}
		}
		if c.Encrypted {
			if c.DirectXOR {
				return fmt.Errorf("circuit: gate %s: direct XOR requested but this oracle backend only exposes AND/OR eval_bin", g.Name)
			}
			// Lowered at eval time for noise-budget reasons: a direct
			// XOR primitive measures a higher failure rate than this
			// AND/OR/NOT combination.
			notA := c.ctx.EvalNOT(g.EncIn[0])
			notB := c.ctx.EvalNOT(g.EncIn[1])
			t1, err := c.ctx.EvalBinGate(binfhe.AND, g.EncIn[0], notB)
			if err != nil {
				return fmt.Errorf("circuit: gate %s (xor and1): %w", g.Name, err)
			}
			t2, err := c.ctx.EvalBinGate(binfhe.AND, notA, g.EncIn[1])
			if err != nil {
				return fmt.Errorf("circuit: gate %s (xor and2): %w", g.Name, err)
			}
			out, err := c.ctx.EvalBinGate(binfhe.OR, t1, t2)
			if err != nil {
				return fmt.Errorf("circuit: gate %s (xor or): %w", g.Name, err)
			}
			g.EncOut = []binfhe.Ciphertext{out}
			return c.verify(g)
		}
		return nil

	default:
		return fmt.Errorf("circuit: gate %s: unknown op", g.Name)
	}
}

// verify cross-checks a gate's encrypted output against its plaintext
// output when both Encrypted and Verify are on. On mismatch it returns
// ErrVerifyMismatch unless Repair is set, in which case it loudly
// overwrites the ciphertext with a fresh encryption of the plaintext
// result and continues.
func (c *Circuit) verify(g *Gate) error {
	if !c.Verify || !c.Plaintext {
		return nil
	}
	bit, err := c.ctx.Decrypt(c.sk, g.EncOut[0])
	if err != nil {
		return fmt.Errorf("circuit: verify decrypt on %s: %w", g.Name, err)
	}
	if bit == g.PlainOut[0] {
		return nil
	}
	if !c.Repair {
		return &ErrVerifyMismatch{Gate: g.Name, Op: g.Op}
	}
	fmt.Fprintf(os.Stderr, "circuit: repairing %s mismatch on %s\n", g.Op, g.Name)
	ct, err := c.ctx.Encrypt(c.sk, g.PlainOut[0])
	if err != nil {
		return fmt.Errorf("circuit: repair-encrypt on %s: %w", g.Name, err)
	}
	g.EncOut[0] = ct
	return nil
}

// reencryptInputs decrypts and re-encrypts a gate's two captured
// ciphertext inputs in place, then returns the fresh pair. Used to
// recover from a noise failure on eval_bin.
func (c *Circuit) reencryptInputs(g *Gate) (binfhe.Ciphertext, binfhe.Ciphertext, error) {
	b0, err := c.ctx.Decrypt(c.sk, g.EncIn[0])
	if err != nil {
		return binfhe.Ciphertext{}, binfhe.Ciphertext{}, fmt.Errorf("circuit: retry-decrypt in[0] on %s: %w", g.Name, err)
	}
	ct0, err := c.ctx.Encrypt(c.sk, b0)
	if err != nil {
		return binfhe.Ciphertext{}, binfhe.Ciphertext{}, fmt.Errorf("circuit: retry-encrypt in[0] on %s: %w", g.Name, err)
	}
	b1, err := c.ctx.Decrypt(c.sk, g.EncIn[1])
	if err != nil {
		return binfhe.Ciphertext{}, binfhe.Ciphertext{}, fmt.Errorf("circuit: retry-decrypt in[1] on %s: %w", g.Name, err)
	}
	ct1, err := c.ctx.Encrypt(c.sk, b1)
	if err != nil {
		return binfhe.Ciphertext{}, binfhe.Ciphertext{}, fmt.Errorf("circuit: retry-encrypt in[1] on %s: %w", g.Name, err)
	}
	g.EncIn[0], g.EncIn[1] = ct0, ct1
	return ct0, ct1, nil
}

// storeOutput parses an OUTPUT gate's descriptor wire names ("OUT:<i>",
// "BIT:<k>"), decrypts the gate's result if necessary, and writes the
// bit into the output bus.
func (c *Circuit) storeOutput(g *Gate) error {
	outIdx, err := wireIndex(g.OutWireNames[0])
	if err != nil {
		return fmt.Errorf("circuit: %s: %w", g.Name, err)
	}
	bitIdx, err := wireIndex(g.OutWireNames[1])
	if err != nil {
		return fmt.Errorf("circuit: %s: %w", g.Name, err)
	}

	var bit byte
	if c.Encrypted {
		bit, err = c.ctx.Decrypt(c.sk, g.EncOut[0])
		if err != nil {
			return fmt.Errorf("circuit: decrypting output on %s: %w", g.Name, err)
		}
	} else {
		bit = g.PlainOut[0]
	}

	if outIdx < 0 || outIdx >= len(c.outputs) || bitIdx < 0 || bitIdx >= len(c.outputs[outIdx]) {
		return fmt.Errorf("circuit: %s: output bus %d bit %d out of range", g.Name, outIdx, bitIdx)
	}
	c.outputs[outIdx][bitIdx] = bit
	return nil
}
