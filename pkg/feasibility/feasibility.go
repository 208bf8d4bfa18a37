// Package feasibility describes the outcome of a synthesis stage that ran to
// completion but could not satisfy all of its constraints.
//
// Structural problems (cycles, unknown modules, malformed files) are errors
// and are reported through package errors. Everything a scheduler, placer or
// router can get wrong at run time is reported here instead: a [Report]
// carries a feasibility flag, a reason code and the individual violations so
// that callers can decide to abort or continue in a degraded mode.
package feasibility

import (
	"fmt"
	"sort"
	"strings"
)

// Reason classifies why a stage result is not feasible.
type Reason string

const (
	// ReasonNone is used for feasible results.
	ReasonNone Reason = ""

	// ReasonConstraintViolation means the result breaks one or more hard
	// constraints (overlap, precedence, collision and so on).
	ReasonConstraintViolation Reason = "constraint_violation"

	// ReasonBudgetExhausted means a search ran out of generations,
	// node expansions or wall-clock time before finding a valid answer.
	ReasonBudgetExhausted Reason = "budget_exhausted"

	// ReasonSkipped marks a stage that did not run because an earlier
	// stage was infeasible.
	ReasonSkipped Reason = "skipped"
)

// Kind names the constraint a [Violation] breaks.
type Kind string

// Violation kinds shared by the validators of all stages.
const (
	KindMissing       Kind = "missing"
	KindUnknown       Kind = "unknown"
	KindDuration      Kind = "duration"
	KindPrecedence    Kind = "precedence"
	KindResource      Kind = "resource"
	KindOverlap       Kind = "overlap"
	KindBounds        Kind = "bounds"
	KindObstacle      Kind = "obstacle"
	KindCollision     Kind = "collision"
	KindAdjacency     Kind = "adjacency"
	KindDiscontinuity Kind = "discontinuity"
	KindEndpoint      Kind = "endpoint"
	KindDeadline      Kind = "deadline"
	KindUnroutable    Kind = "unroutable"
)

// Violation is a single broken constraint.
type Violation struct {
	Kind     Kind   `json:"kind"`
	Subjects []int  `json:"subjects,omitempty"`
	Message  string `json:"message"`
}

// String formats the violation for logs and CLI output.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Report is the feasibility outcome of one stage.
type Report struct {
	Feasible   bool        `json:"feasible"`
	Reason     Reason      `json:"reason,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// OK returns a feasible report.
func OK() Report {
	return Report{Feasible: true}
}

// Skipped returns the report for a stage that never ran.
func Skipped(why string) Report {
	return Report{
		Reason:     ReasonSkipped,
		Violations: []Violation{{Kind: KindMissing, Message: why}},
	}
}

// Builder accumulates violations while a validator walks a solution.
// The zero value is ready to use.
type Builder struct {
	violations []Violation
}

// Add records a violation.
func (b *Builder) Add(kind Kind, subjects []int, format string, args ...any) {
	b.violations = append(b.violations, Violation{
		Kind:     kind,
		Subjects: subjects,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Len returns the number of recorded violations.
func (b *Builder) Len() int {
	return len(b.violations)
}

// Report finalizes the builder. A builder without violations yields a
// feasible report; otherwise the report carries the given reason (defaulting
// to ReasonConstraintViolation). Violations are sorted by kind, then by
// their first subject, then by message, so repeated validation of the same
// input always produces identical reports.
func (b *Builder) Report(reason Reason) Report {
	if len(b.violations) == 0 {
		return OK()
	}
	if reason == ReasonNone {
		reason = ReasonConstraintViolation
	}
	vs := make([]Violation, len(b.violations))
	copy(vs, b.violations)
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Kind != vs[j].Kind {
			return vs[i].Kind < vs[j].Kind
		}
		fi, fj := first(vs[i].Subjects), first(vs[j].Subjects)
		if fi != fj {
			return fi < fj
		}
		return vs[i].Message < vs[j].Message
	})
	return Report{Reason: reason, Violations: vs}
}

func first(s []int) int {
	if len(s) == 0 {
		return -1
	}
	return s[0]
}

// Count returns how many violations of the given kind the report carries.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// Summary returns a one-line description of the report.
func (r Report) Summary() string {
	if r.Feasible {
		return "feasible"
	}
	if len(r.Violations) == 0 {
		return string(r.Reason)
	}
	counts := make(map[Kind]int)
	for _, v := range r.Violations {
		counts[v.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s", counts[Kind(k)], k)
	}
	return fmt.Sprintf("%s (%s)", r.Reason, strings.Join(parts, ", "))
}
