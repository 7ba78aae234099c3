package circuit

import (
	"errors"
	"fmt"
)

// ParseError reports a fatal problem with an assembled-program file: a
// line that matches a keyword but fails to scan its expected fields, or
// a wire produced by more than one gate.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("circuit: %s:%d: %s", e.File, e.Line, e.Msg)
}

// ErrMissingInputFile is returned when the assembled program named on
// the command line does not exist. Callers print it with a hint to
// re-run with the analyze/assemble flags.
var ErrMissingInputFile = errors.New("circuit: input file not found")

// SchedulerInvariantViolation is raised when the manage phase finds
// waitingGates empty while a wire is still active, or a wire missing
// from the net list — both indicate a cyclic or malformed circuit.
type SchedulerInvariantViolation struct {
	Msg string
}

func (e *SchedulerInvariantViolation) Error() string {
	return fmt.Sprintf("circuit: scheduler invariant violated: %s", e.Msg)
}

// ErrVerifyMismatch is returned when verify mode is on, repair is off,
// and a gate's encrypted result disagrees with its plaintext result.
type ErrVerifyMismatch struct {
	Gate string
	Op   GateOp
}

func (e *ErrVerifyMismatch) Error() string {
	return fmt.Sprintf("circuit: verify mismatch on %s gate %s (encrypted result disagrees with plaintext; rerun with Repair to tolerate)", e.Op, e.Gate)
}
