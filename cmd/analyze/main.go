// Command analyze reports gate and wire statistics for a Bristol Fashion
// circuit description: header counts, per-opcode tallies, and (with -f)
// per-wire fan-in/fan-out and lifetime extremes. It never builds an
// evaluable circuit; for that, assemble the file and run it with heval.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dcousins-njit/hecircuit/bristol"
)

func main() {
	genFan := flag.Bool("f", false, "compute fan-in/fan-out and lifetime statistics")
	newStyle := flag.Bool("new-style", false, "parse the new-style Bristol header (nInputs/in1/in2, nOutputs/out1)")
	verbose := flag.Bool("v", false, "verbose")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "analyze: usage: analyze [-f] [-new-style] file...")
		os.Exit(1)
	}

	status := 0
	for _, file := range flag.Args() {
		if *verbose {
			fmt.Fprintf(os.Stderr, "analyze: %s\n", file)
		}
		a, err := bristol.Analyze(file, *genFan, *newStyle)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			status = 1
			continue
		}
		fmt.Printf("%s:\n", file)
		a.Report(os.Stdout)
	}
	os.Exit(status)
}
