// Package bristol analyzes Bristol Fashion circuit descriptions: it walks
// the header and function-call lines of the file once, tallying gate
// counts and (optionally) per-wire fan-in/fan-out and lifetime, without
// building an evaluable circuit. It is a read-only report generator; the
// circuit package's Loader is what actually builds something runnable.
package bristol

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/markkurossi/tabulate"
)

// Op names a Bristol function-call opcode after normalization. INV is
// renamed to NOT to match the rest of this module's vocabulary.
type Op string

// Recognized opcodes.
const (
	XOR Op = "XOR"
	AND Op = "AND"
	NOT Op = "NOT"
	EQ  Op = "EQ"
	EQW Op = "EQW"
)

// Variables holds the per-file, per-wire statistics gathered while
// parsing the header and walking every function call once.
type Variables struct {
	InFname   string
	NewStyle  bool
	NTot      int
	NInputs   int
	NIn1Bits  int
	NIn2Bits  int
	NOutputs  int
	NOut1Bits int

	// HighWater[w]/LowWater[w] are the indices of the last/first function
	// call that references wire w, either as an input or an output.
	// Life is HighWater-LowWater. FanIn/FanOut are nil unless the caller
	// asked Analyze to compute them.
	HighWater []int
	LowWater  []int
	Life      []int
	FanIn     []int
	FanOut    []int
}

// Functions holds the flattened list of function calls found in the
// file, plus per-opcode counts.
type Functions struct {
	InFname  string
	NTot     int
	CallList []Op
	InList   [][]int
	OutList  [][]int

	NAnd, NOr, NXor, NNot, NEq, NEqw int
	Names                            []Op
}

// Analysis is the result of analyzing one circuit file.
type Analysis struct {
	Variables Variables
	Functions Functions
}

// MaxFanIn returns the largest fan-in value observed, or 0 if fan-in
// statistics were not requested. A well-formed circuit has MaxFanIn <= 1;
// the circuit Loader enforces that invariant, this function only reports
// it.
func (a *Analysis) MaxFanIn() int {
	return maxOf(a.Variables.FanIn)
}

// MaxFanOut returns the largest fan-out value observed, or 0 if fan-out
// statistics were not requested.
func (a *Analysis) MaxFanOut() int {
	return maxOf(a.Variables.FanOut)
}

// MaxLife returns the largest wire lifetime observed.
func (a *Analysis) MaxLife() int {
	return maxOf(a.Variables.Life)
}

// Report renders the analysis as a two-column field/value table using
// tabulate's UnicodeLight style.
func (a *Analysis) Report(w io.Writer) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Field").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)

	row := func(field, value string) {
		r := tab.Row()
		r.Column(field)
		r.Column(value)
	}

	row("new-style header", fmt.Sprintf("%v", a.Variables.NewStyle))
	row("total wires", fmt.Sprintf("%d", a.Variables.NTot))
	row("input1 bits", fmt.Sprintf("%d", a.Variables.NIn1Bits))
	row("input2 bits", fmt.Sprintf("%d", a.Variables.NIn2Bits))
	row("output1 bits", fmt.Sprintf("%d", a.Variables.NOut1Bits))
	row("AND gates", fmt.Sprintf("%d", a.Functions.NAnd))
	row("OR gates", fmt.Sprintf("%d", a.Functions.NOr))
	row("XOR gates", fmt.Sprintf("%d", a.Functions.NXor))
	row("NOT gates", fmt.Sprintf("%d", a.Functions.NNot))
	row("EQW aliases", fmt.Sprintf("%d", a.Functions.NEqw))

	if a.Variables.FanIn != nil {
		row("max fan-in", fmt.Sprintf("%d", a.MaxFanIn()))
		row("max fan-out", fmt.Sprintf("%d", a.MaxFanOut()))
		row("max wire lifetime", fmt.Sprintf("%d", a.MaxLife()))
	}

	tab.Print(w)
}

func maxOf(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

// Analyze parses the circuit description file at filename and returns its
// per-wire and per-function statistics. If genFan is true, fan-in and
// fan-out are computed for every wire (an O(functions*wires) pass);
// otherwise Variables.FanIn/FanOut are left nil. newStyle selects the
// "new Bristol Fashion" four-line header (gate/wire counts, then
// nInputs/in1/in2, then nOutputs/out1, then a blank line) over the
// three-line old-style header (in1/in2/out1, then a blank line).
func Analyze(filename string, genFan, newStyle bool) (*Analysis, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParseError{File: filename, Msg: fmt.Sprintf("opening file: %v", err)}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	nextLine := func() ([]string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, &ParseError{File: filename, Line: line, Msg: err.Error()}
			}
			return nil, &ParseError{File: filename, Line: line, Msg: "unexpected end of file"}
		}
		line++
		return strings.Fields(sc.Text()), nil
	}

	hdr, err := nextLine()
	if err != nil {
		return nil, err
	}
	if len(hdr) < 2 {
		return nil, &ParseError{File: filename, Line: line, Msg: "malformed header: want 'nTotFunc nTotVar'"}
	}
	nTotFunc, err := strconv.Atoi(hdr[0])
	if err != nil {
		return nil, &ParseError{File: filename, Line: line, Msg: fmt.Sprintf("bad function count: %v", err)}
	}
	nTotVar, err := strconv.Atoi(hdr[1])
	if err != nil {
		return nil, &ParseError{File: filename, Line: line, Msg: fmt.Sprintf("bad variable count: %v", err)}
	}

	var nInputs, nIn1, nIn2, nOutputs, nOut1 int
	if newStyle {
		l2, err := nextLine()
		if err != nil {
			return nil, err
		}
		if len(l2) < 3 {
			return nil, &ParseError{File: filename, Line: line, Msg: "malformed new-style input line"}
		}
		nInputs, _ = strconv.Atoi(l2[0])
		nIn1, _ = strconv.Atoi(l2[1])
		nIn2, _ = strconv.Atoi(l2[2])

		l3, err := nextLine()
		if err != nil {
			return nil, err
		}
		if len(l3) < 2 {
			return nil, &ParseError{File: filename, Line: line, Msg: "malformed new-style output line"}
		}
		nOutputs, _ = strconv.Atoi(l3[0])
		nOut1, _ = strconv.Atoi(l3[1])

		if _, err := nextLine(); err != nil {
			return nil, err
		}
	} else {
		nInputs, nOutputs = 2, 1
		l2, err := nextLine()
		if err != nil {
			return nil, err
		}
		if len(l2) < 3 {
			return nil, &ParseError{File: filename, Line: line, Msg: "malformed old-style io line"}
		}
		nIn1, _ = strconv.Atoi(l2[0])
		nIn2, _ = strconv.Atoi(l2[1])
		nOut1, _ = strconv.Atoi(l2[2])

		if _, err := nextLine(); err != nil {
			return nil, err
		}
	}

	varHigh := make([]int, nTotVar)
	varLow := make([]int, nTotVar)
	callList := make([]Op, 0, nTotFunc)
	inList := make([][]int, 0, nTotFunc)
	outList := make([][]int, 0, nTotFunc)

	touched := make([]bool, nTotVar)

	var nXor, nAnd, nNot, nEq, nEqw int

	touch := func(w int, ix int) error {
		if w < 0 || w >= nTotVar {
			return &ParseError{File: filename, Line: line, Msg: fmt.Sprintf("wire index %d out of range [0,%d)", w, nTotVar)}
		}
		if !touched[w] {
			varLow[w] = ix
			touched[w] = true
		}
		varHigh[w] = ix
		return nil
	}

	for ix := 0; ix < nTotFunc; ix++ {
		fields, err := nextLine()
		if err != nil {
			return nil, err
		}
		if len(fields) < 3 {
			return nil, &ParseError{File: filename, Line: line, Msg: "truncated function line"}
		}
		nin, _ := strconv.Atoi(fields[0])
		nout, _ := strconv.Atoi(fields[1])
		rest := fields[2:]
		if len(rest) < nin+nout+1 {
			return nil, &ParseError{File: filename, Line: line, Msg: "function line short of declared arity"}
		}

		in := make([]int, nin)
		for j := 0; j < nin; j++ {
			in[j], _ = strconv.Atoi(rest[j])
		}
		out := make([]int, nout)
		for j := 0; j < nout; j++ {
			out[j], _ = strconv.Atoi(rest[nin+j])
		}
		opTok := strings.ToUpper(rest[nin+nout])

		// inList/outList and the wire low/high-water marks are recorded for
		// every function line regardless of whether its opcode is
		// recognized; only the call tally below is conditional.
		inList = append(inList, in)
		outList = append(outList, out)
		for _, w := range in {
			if err := touch(w, ix); err != nil {
				return nil, err
			}
		}
		for _, w := range out {
			if err := touch(w, ix); err != nil {
				return nil, err
			}
		}

		var op Op
		switch opTok {
		case "XOR":
			nXor++
			op = XOR
		case "AND":
			nAnd++
			op = AND
		case "INV":
			nNot++
			op = NOT
		case "EQ":
			nEq++
			return nil, &ParseError{File: filename, Line: line, Msg: "EQ gate is unsupported"}
		case "EQW":
			nEqw++
			op = EQW
		default:
			fmt.Fprintf(os.Stderr, "bristol: %s:%d: unrecognized opcode %q, skipping\n", filename, line, opTok)
			continue
		}

		callList = append(callList, op)
	}

	life := make([]int, nTotVar)
	for i := range life {
		life[i] = varHigh[i] - varLow[i]
	}

	var fanIn, fanOut []int
	if genFan {
		fanIn = make([]int, nTotVar)
		fanOut = make([]int, nTotVar)
		for _, in := range inList {
			for _, w := range in {
				fanOut[w]++
			}
		}
		for _, out := range outList {
			for _, w := range out {
				fanIn[w]++
			}
		}
	}

	return &Analysis{
		Variables: Variables{
			InFname:   filename,
			NewStyle:  newStyle,
			NTot:      nTotVar,
			NInputs:   nInputs,
			NIn1Bits:  nIn1,
			NIn2Bits:  nIn2,
			NOutputs:  nOutputs,
			NOut1Bits: nOut1,
			HighWater: varHigh,
			LowWater:  varLow,
			Life:      life,
			FanIn:     fanIn,
			FanOut:    fanOut,
		},
		Functions: Functions{
			InFname:  filename,
			NTot:     nTotFunc,
			CallList: callList,
			InList:   inList,
			OutList:  outList,
			NAnd:     nAnd,
			NXor:     nXor,
			NNot:     nNot,
			NEq:      nEq,
			NEqw:     nEqw,
			Names:    []Op{XOR, AND, NOT, EQ, EQW},
		},
	}, nil
}

