// Command heval is the generic test-bench driver: it loads an assembled
// program, drives it with random inputs sized to the bus widths recorded
// in the file's header comment block, and reports whether the plaintext
// and encrypted evaluation paths agree.
//
// This is the property-3 (plaintext <-> encrypted agreement) test bench
// from spec.md's testable-properties list, generalized across any
// assembled program rather than one family; circuit-specific known-good
// assertions (parity, the ripple-carry adder) live in the circuit
// package's own tests, which have the domain knowledge this driver does
// not.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/dcousins-njit/hecircuit/binfhe"
	"github.com/dcousins-njit/hecircuit/bristol"
	"github.com/dcousins-njit/hecircuit/circuit"
	"github.com/markkurossi/tabulate"
)

func main() {
	assemble := flag.Bool("a", false, "assemble a Bristol circuit before evaluating (unsupported: no assembler ships in this module)")
	analyzeFlag := flag.Bool("z", false, "analyze the argument as a Bristol Fashion circuit instead of evaluating it")
	fanStats := flag.Bool("f", false, "with -z, also compute fan-in/fan-out statistics")
	nCases := flag.Int("c", 1, "number of random test cases per loop iteration")
	nLoops := flag.Int("n", 10, "number of test loop iterations")
	setName := flag.String("s", "TOY", "BinFHE parameter set: TOY or STD128_OPT")
	methodName := flag.String("m", "GINX", "BinFHE bootstrapping method: AP or GINX")
	repair := flag.Bool("repair", false, "re-encrypt (with a stderr warning) on a verify mismatch instead of failing")
	verbose := flag.Bool("v", false, "verbose")
	help := flag.Bool("h", false, "print usage and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *assemble {
		fmt.Fprintln(os.Stderr, "heval: -a (assemble) is not supported; this module has no Bristol assembler, pass an already-assembled program")
		os.Exit(1)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "heval: usage: heval [flags] file.out")
		os.Exit(1)
	}
	path := flag.Arg(0)

	if *analyzeFlag {
		runAnalyze(path, *fanStats)
		return
	}

	set, method, err := parseParams(*setName, *methodName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heval: %v\n", err)
		os.Exit(1)
	}

	stats, err := readHeaderStats(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heval: reading header stats from %s: %v\n", path, err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "heval: %s: input1=%d bits, input2=%d bits, output1=%d bits\n",
			path, stats.in1Bits, stats.in2Bits, stats.out1Bits)
	}

	ctx, err := binfhe.Setup(set, method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heval: %v\n", err)
		os.Exit(1)
	}
	c := circuit.New(ctx)
	c.Repair = *repair
	if err := c.Load(path); err != nil {
		if err == circuit.ErrMissingInputFile {
			fmt.Fprintf(os.Stderr, "heval: %v (re-run with -z on a Bristol source to check it exists)\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "heval: %v\n", err)
		}
		os.Exit(1)
	}

	nPassed, ePassed, total := 0, 0, 0
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Case").SetAlign(tabulate.MR)
	tab.Header("Plaintext").SetAlign(tabulate.ML)
	tab.Header("Encrypted").SetAlign(tabulate.ML)

	for loop := 0; loop < *nLoops; loop++ {
		rng := rand.New(rand.NewSource(int64(loop)))
		for caseIx := 0; caseIx < *nCases; caseIx++ {
			total++
			inputs := randomInputs(rng, stats)

			plainOut, perr := c.RunPlaintext(inputs)
			row := tab.Row()
			row.Column(fmt.Sprintf("%d.%d", loop, caseIx))
			if perr != nil {
				row.Column("FAIL")
				fmt.Fprintf(os.Stderr, "heval: plaintext run: %v\n", perr)
			} else {
				row.Column("pass")
				nPassed++
			}

			encOut, eerr := c.RunEncrypted(inputs)
			if eerr != nil {
				row.Column("FAIL")
				fmt.Fprintf(os.Stderr, "heval: encrypted run: %v\n", eerr)
				continue
			}
			if perr == nil && !equalBuses(plainOut, encOut) {
				row.Column("FAIL (disagrees with plaintext)")
				continue
			}
			row.Column("pass")
			ePassed++
		}
	}

	tab.Print(os.Stdout)
	fmt.Printf("# tests total: %d\n", total)
	fmt.Printf("# passed plaintext: %d\n", nPassed)
	fmt.Printf("# passed encrypted: %d\n", ePassed)

	if nPassed != total || ePassed != total {
		os.Exit(1)
	}
}

func runAnalyze(path string, fanStats bool) {
	a, err := bristol.Analyze(path, fanStats, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heval: %v\n", err)
		os.Exit(1)
	}
	a.Report(os.Stdout)
}

type headerStats struct {
	in1Bits, in2Bits, out1Bits int
}

// readHeaderStats scans the assembled program's leading comment block for
// the statistics lines described in spec.md/SPEC_FULL.md §6.
func readHeaderStats(path string) (headerStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return headerStats{}, circuit.ErrMissingInputFile
		}
		return headerStats{}, err
	}
	defer f.Close()

	var stats headerStats
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.Contains(line, "number input1 bits"):
			fmt.Sscanf(line, "# number input1 bits %d", &stats.in1Bits)
		case strings.Contains(line, "number input2 bits"):
			fmt.Sscanf(line, "# number input2 bits %d", &stats.in2Bits)
		case strings.Contains(line, "number output1 bits"):
			fmt.Sscanf(line, "# number output1 bits %d", &stats.out1Bits)
		}
	}
	if err := sc.Err(); err != nil {
		return headerStats{}, err
	}
	if stats.in1Bits == 0 {
		return headerStats{}, fmt.Errorf("no \"# number input1 bits\" header line found")
	}
	return stats, nil
}

func randomInputs(rng *rand.Rand, stats headerStats) [][]byte {
	inputs := make([][]byte, 0, 2)
	inputs = append(inputs, randomBits(rng, stats.in1Bits))
	if stats.in2Bits > 0 {
		inputs = append(inputs, randomBits(rng, stats.in2Bits))
	}
	return inputs
}

func randomBits(rng *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(rng.Intn(2))
	}
	return bits
}

func equalBuses(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func parseParams(setName, methodName string) (binfhe.ParamSet, binfhe.Method, error) {
	var set binfhe.ParamSet
	switch setName {
	case "TOY":
		set = binfhe.TOY
	case "STD128_OPT":
		set = binfhe.STD128Opt
	default:
		return 0, 0, fmt.Errorf("unknown parameter set %q (want TOY or STD128_OPT)", setName)
	}
	var method binfhe.Method
	switch methodName {
	case "AP":
		method = binfhe.AP
	case "GINX":
		method = binfhe.GINX
	default:
		return 0, 0, fmt.Errorf("unknown method %q (want AP or GINX)", methodName)
	}
	return set, method, nil
}
