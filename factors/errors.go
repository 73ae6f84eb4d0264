package factors

import "fmt"

// DegeneracyError reports numerically degenerate but structurally legal
// input to an update rule, e.g. a zero-variance point mass feeding the
// zeta update. It is fatal to the current block; the caller must not
// attempt a local repair.
type DegeneracyError struct {
	Op     string
	Detail string
	Values map[string]float64
}

func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("gosem/factors: %s: degenerate input: %s %v", e.Op, e.Detail, e.Values)
}

// NonFiniteError reports a NaN or Inf where a finite value is an internal
// invariant. It indicates upstream numerical failure and carries every
// operand involved so the failure site is diagnosable.
type NonFiniteError struct {
	Op     string
	Values map[string]float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("gosem/factors: %s: non-finite value: %v", e.Op, e.Values)
}
