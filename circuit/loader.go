package circuit

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dcousins-njit/hecircuit/binfhe"
)

var (
	reLoad  = regexp.MustCompile(`^R(\d+)\s*=\s*LOAD\(In(\d+),\s*(\d+)\)$`)
	reStore = regexp.MustCompile(`^Out(\d+)\s*=\s*STORE\(R(\d+)\)$`)
	reNot   = regexp.MustCompile(`^R(\d+)\s*=\s*NOT\(R(\d+)\)$`)
	reAnd   = regexp.MustCompile(`^R(\d+)\s*=\s*AND\(R(\d+),\s*R(\d+)\)$`)
	reOr    = regexp.MustCompile(`^R(\d+)\s*=\s*OR\(R(\d+),\s*R(\d+)\)$`)
	reXor   = regexp.MustCompile(`^R(\d+)\s*=\s*XOR\(R(\d+),\s*R(\d+)\)$`)
)

// Load parses the assembled program at filename, building inputGates,
// allGates, and the net list. It leaves the run-time queues empty; call
// Reset before SetInput/Clock.
func (c *Circuit) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrMissingInputFile
		}
		return fmt.Errorf("circuit: opening %s: %w", filename, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var inputGates, allGates []*Gate
	gateNo := 0
	maxOutputBit := -1

	line := 0
	for sc.Scan() {
		line++
		tline := strings.TrimSpace(sc.Text())
		if tline == "" || strings.HasPrefix(tline, "#") {
			continue
		}
		if strings.Contains(tline, "BOOT") {
			continue
		}

		switch {
		case reLoad.MatchString(tline):
			m := reLoad.FindStringSubmatch(tline)
			a, b, k := atoi(m[1]), atoi(m[2]), atoi(m[3])
			g := newInputGate(gateNo, a, b, k)
			gateNo++
			inputGates = append(inputGates, g)

		case reStore.MatchString(tline):
			m := reStore.FindStringSubmatch(tline)
			a, b := atoi(m[1]), atoi(m[2])
			g := newGate(gateNo, OpOutput, []string{fmt.Sprintf("R:%d", b)},
				[]string{"OUT:0", fmt.Sprintf("BIT:%d", a)})
			gateNo++
			allGates = append(allGates, g)
			if a > maxOutputBit {
				maxOutputBit = a
			}

		case reNot.MatchString(tline):
			m := reNot.FindStringSubmatch(tline)
			a, b := atoi(m[1]), atoi(m[2])
			g := newGate(gateNo, OpNot, []string{fmt.Sprintf("R:%d", b)},
				[]string{fmt.Sprintf("R:%d", a)})
			gateNo++
			allGates = append(allGates, g)

		case reAnd.MatchString(tline):
			m := reAnd.FindStringSubmatch(tline)
			a, b, cc := atoi(m[1]), atoi(m[2]), atoi(m[3])
			g := newGate(gateNo, OpAnd, []string{fmt.Sprintf("R:%d", b), fmt.Sprintf("R:%d", cc)},
				[]string{fmt.Sprintf("R:%d", a)})
			gateNo++
			allGates = append(allGates, g)

		case reOr.MatchString(tline):
			m := reOr.FindStringSubmatch(tline)
			a, b, cc := atoi(m[1]), atoi(m[2]), atoi(m[3])
			g := newGate(gateNo, OpOr, []string{fmt.Sprintf("R:%d", b), fmt.Sprintf("R:%d", cc)},
				[]string{fmt.Sprintf("R:%d", a)})
			gateNo++
			allGates = append(allGates, g)

		case reXor.MatchString(tline):
			m := reXor.FindStringSubmatch(tline)
			a, b, cc := atoi(m[1]), atoi(m[2]), atoi(m[3])
			g := newGate(gateNo, OpXor, []string{fmt.Sprintf("R:%d", b), fmt.Sprintf("R:%d", cc)},
				[]string{fmt.Sprintf("R:%d", a)})
			gateNo++
			allGates = append(allGates, g)

		default:
			return &ParseError{File: filename, Line: line, Msg: fmt.Sprintf("unrecognized statement: %q", tline)}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("circuit: reading %s: %w", filename, err)
	}

	nl, err := buildNetList(filename, inputGates, allGates)
	if err != nil {
		return err
	}

	c.inputGates = inputGates
	c.allGates = allGates
	c.nl = nl
	c.outputBits = maxOutputBit + 1
	return nil
}

func newInputGate(gateNo, a, b, k int) *Gate {
	return &Gate{
		Name:         fmt.Sprintf("INPUT:%d", gateNo),
		Op:           OpInput,
		InWireNames:  []string{fmt.Sprintf("IN:%d", b-1), fmt.Sprintf("BIT:%d", k)},
		OutWireNames: []string{fmt.Sprintf("R:%d", a)},
	}
}

func newGate(gateNo int, op GateOp, in, out []string) *Gate {
	return &Gate{
		Name:         fmt.Sprintf("%s:%d", op, gateNo),
		Op:           op,
		InWireNames:  in,
		OutWireNames: out,
		Ready:        make([]bool, len(in)),
		PlainIn:      make([]byte, len(in)),
		EncIn:        make([]binfhe.Ciphertext, len(in)),
	}
}

// buildNetList builds the wire -> consumer-gate-names map in O(gates +
// wires): every gate's output wire names seed an entry (even if nothing
// ever consumes them, e.g. OUTPUT's descriptor wires), then a single
// pass over allGates' input wire names appends each gate as a consumer
// of the wires it reads. Fan-in (at most one producer) is enforced only
// for R:<n> register wires: OUT:0 is a shared bus identifier written by
// every STORE gate by design and is not subject to the invariant.
func buildNetList(filename string, inputGates, allGates []*Gate) (NetList, error) {
	nl := make(NetList)
	producer := make(map[string]string)

	seed := func(g *Gate) error {
		for _, ow := range g.OutWireNames {
			if strings.HasPrefix(ow, "R:") {
				if prev, ok := producer[ow]; ok && prev != g.Name {
					return &ParseError{File: filename, Msg: fmt.Sprintf("wire %s produced by both %s and %s (fan-in > 1)", ow, prev, g.Name)}
				}
				producer[ow] = g.Name
			}
			if _, ok := nl[ow]; !ok {
				nl[ow] = []string{}
			}
		}
		return nil
	}
	for _, g := range inputGates {
		if err := seed(g); err != nil {
			return nil, err
		}
	}
	for _, g := range allGates {
		if err := seed(g); err != nil {
			return nil, err
		}
	}

	for _, g := range allGates {
		for _, w := range g.InWireNames {
			if _, ok := nl[w]; !ok {
				return nil, &ParseError{File: filename, Msg: fmt.Sprintf("wire %s consumed by %s but never produced", w, g.Name)}
			}
			nl[w] = append(nl[w], g.Name)
		}
	}
	return nl, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
