package circuit

import (
	"container/list"
	"fmt"
	"strconv"
	"strings"

	"github.com/dcousins-njit/hecircuit/binfhe"
)

// Circuit owns the static graph produced by Load and the run-time queues
// the scheduler and executor mutate. All gates and wires belong to it;
// wires reference gates by name only, never by pointer, so Reset can
// rebuild run-time state from the immutable (inputGates, allGates, nl)
// triple without re-parsing.
type Circuit struct {
	ctx binfhe.Context
	sk  *binfhe.SecretKey

	// Plaintext and Encrypted select which semantics run; both may be on
	// at once. Verify cross-checks encrypted results against plaintext
	// ones (both must then be on). Repair opts back into the original
	// silent-correction behavior on a verify mismatch; off by default,
	// a mismatch is a hard error. DirectXOR, if set, refuses to lower
	// XOR to AND/OR/NOT and fails instead, since this module's oracle
	// backend never exposes a direct XOR primitive.
	Plaintext bool
	Encrypted bool
	Verify    bool
	Repair    bool
	DirectXOR bool

	inputGates []*Gate
	allGates   []*Gate
	nl         NetList
	outputBits int

	waitingWireNames map[string]struct{}
	activeWires      *list.List // *Wire
	waitingGates     *list.List // *Gate
	executingGates   []*Gate
	doneGates        []*Gate

	nInputGates, nOutputGates, nNotGates, nAndGates, nOrGates, nXorGates int

	outputs [][]byte
	done    bool
}

// New creates a Circuit bound to ctx, generating a fresh secret key and
// deriving the context's bootstrapping key from it. Load the circuit
// description and call Reset before SetInput/Clock.
func New(ctx binfhe.Context) *Circuit {
	sk := ctx.KeyGen()
	ctx.BTKeyGen(sk)
	return &Circuit{ctx: ctx, sk: sk}
}

// Reset restores the Circuit to pre-run state without re-parsing: it
// clears every gate and wire queue, repopulates waitingGates from
// allGates in source order, repopulates waitingWireNames from the net
// list's keys, clears the per-op counters, and clears the done flag. It
// does not touch Plaintext/Encrypted/Verify/Repair — those are run
// configuration, not run state.
func (c *Circuit) Reset() {
	c.activeWires = list.New()
	c.waitingGates = list.New()
	for _, g := range c.allGates {
		for i := range g.Ready {
			g.Ready[i] = false
		}
		c.waitingGates.PushBack(g)
	}
	c.executingGates = nil
	c.doneGates = nil

	c.waitingWireNames = make(map[string]struct{}, len(c.nl))
	for w := range c.nl {
		c.waitingWireNames[w] = struct{}{}
	}

	c.nInputGates, c.nOutputGates = 0, 0
	c.nNotGates, c.nAndGates, c.nOrGates, c.nXorGates = 0, 0, 0, 0
	c.done = false

	c.outputs = [][]byte{make([]byte, c.outputBits)}
}

// NumGates returns the number of input gates and other gates. Input gates
// are bound by SetInput and never enter doneGates, so at termination
// DoneGateCount equals other, not inputs + other.
func (c *Circuit) NumGates() (inputs, other int) {
	return len(c.inputGates), len(c.allGates)
}

// Done reports whether the last Clock run drove every gate to
// completion.
func (c *Circuit) Done() bool { return c.done }

// DoneGateCount returns the number of gates the executor has retired.
func (c *Circuit) DoneGateCount() int { return len(c.doneGates) }

// WaitingWireCount returns the number of wire names still unclaimed;
// zero at termination is the fanout-drain invariant.
func (c *Circuit) WaitingWireCount() int { return len(c.waitingWireNames) }

// SetInput drives plaintext bits from inputs (indexed [bus][bit]) onto
// the circuit's INPUT gates, encrypting each bit when Encrypted is on.
// It fails if the number of bits consumed does not match the number
// supplied.
func (c *Circuit) SetInput(inputs [][]byte) error {
	total := 0
	for _, bus := range inputs {
		total += len(bus)
	}

	used := 0
	for _, g := range c.inputGates {
		bus, err := wireIndex(g.InWireNames[0])
		if err != nil {
			return fmt.Errorf("circuit: %s: %w", g.Name, err)
		}
		bit, err := wireIndex(g.InWireNames[1])
		if err != nil {
			return fmt.Errorf("circuit: %s: %w", g.Name, err)
		}
		if bus < 0 || bus >= len(inputs) || bit < 0 || bit >= len(inputs[bus]) {
			return fmt.Errorf("circuit: %s: input bus %d bit %d out of range", g.Name, bus, bit)
		}
		value := inputs[bus][bit]

		outName := g.OutWireNames[0]
		fanout, ok := c.nl[outName]
		if !ok {
			return &SchedulerInvariantViolation{Msg: fmt.Sprintf("wire %s missing from net list", outName)}
		}
		w := &Wire{Name: outName, Value: value, Fanout: append([]string(nil), fanout...)}
		if c.Encrypted {
			ct, err := c.ctx.Encrypt(c.sk, value)
			if err != nil {
				return fmt.Errorf("circuit: encrypting %s: %w", outName, err)
			}
			w.Cipher = ct
		}

		delete(c.waitingWireNames, outName)
		c.activeWires.PushBack(w)
		used++
	}
	c.nInputGates = len(c.inputGates)

	if used != total {
		return fmt.Errorf("circuit: input mismatch: %d bits supplied, %d consumed", total, used)
	}
	return nil
}

// Clock runs manage/execute macro-cycles until every gate is done,
// returning the output bus. The Circuit must be reset (or freshly
// loaded) and have had SetInput called first.
func (c *Circuit) Clock() ([][]byte, error) {
	if c.done {
		return nil, fmt.Errorf("circuit: already done, call Reset before clocking again")
	}
	for c.activeWires.Len() > 0 && !c.done {
		if err := c.manage(); err != nil {
			return nil, err
		}
		if err := c.execute(); err != nil {
			return nil, err
		}
		if len(c.doneGates) == len(c.allGates) {
			c.done = true
		}
	}
	if !c.done {
		return nil, &SchedulerInvariantViolation{
			Msg: fmt.Sprintf("no active wires remain but only %d/%d gates are done (cyclic or unreachable gate)", len(c.doneGates), len(c.allGates)),
		}
	}
	return c.outputs, nil
}

// RunPlaintext resets the circuit, runs it in plaintext-only mode, and
// returns the output bus. It forces Plaintext on and Encrypted and Verify
// off for the run and leaves Repair untouched, mirroring the plaintext
// half of the original test-bench's per-case flow.
func (c *Circuit) RunPlaintext(inputs [][]byte) ([][]byte, error) {
	c.Plaintext = true
	c.Encrypted = false
	c.Verify = false
	c.Reset()
	if err := c.SetInput(inputs); err != nil {
		return nil, err
	}
	return c.Clock()
}

// RunEncrypted resets the circuit, runs it in encrypted mode with
// plaintext cross-checking on (Verify requires Plaintext), and returns
// the decrypted output bus. Repair is left at its current value.
func (c *Circuit) RunEncrypted(inputs [][]byte) ([][]byte, error) {
	c.Plaintext = true
	c.Encrypted = true
	c.Verify = true
	c.Reset()
	if err := c.SetInput(inputs); err != nil {
		return nil, err
	}
	return c.Clock()
}

// wireIndex splits a descriptor wire name of the form "PREFIX:<n>" and
// returns n.
func wireIndex(name string) (int, error) {
	_, num, ok := strings.Cut(name, ":")
	if !ok {
		return 0, fmt.Errorf("malformed wire name %q", name)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("malformed wire name %q: %w", name, err)
	}
	return n, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func removeAt(names []string, i int) []string {
	return append(names[:i], names[i+1:]...)
}
