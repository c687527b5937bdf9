package types

import (
	"fmt"
	"time"
)

// Classification is the static policy attached to a test id, deciding
// whether and where the test may run.
type Classification string

const (
	// RunAnywhere tests run directly in whatever environment the
	// orchestrator finds itself in.
	RunAnywhere Classification = "run"
	// NeverRun tests are permanently disabled.
	NeverRun Classification = "never"
	// ChrootOnly tests must execute inside the chroot; outside of it
	// they are re-entered through the chroot tool or skipped.
	ChrootOnly Classification = "chroot-only"
	// HostOnly tests must execute outside the chroot.
	HostOnly Classification = "host-only"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case RunAnywhere, NeverRun, ChrootOnly, HostOnly:
		return true
	}
	return false
}

// TestSpec identifies one test and carries its classification.
// Immutable once built by the registry.
type TestSpec struct {
	// ID is the test path relative to the test root.
	ID string
	// Class decides where the test may run.
	Class Classification
	// Slow marks tests excluded from quick runs.
	Slow bool
}

// ExecAction says what the wrapper should do with a test.
type ExecAction int

const (
	ActionRunDirect ExecAction = iota
	ActionRunChroot
	ActionSkip
)

func (a ExecAction) String() string {
	switch a {
	case ActionRunDirect:
		return "run"
	case ActionRunChroot:
		return "run-chroot"
	case ActionSkip:
		return "skip"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// Plan is the resolved execution mode for one test: classification
// combined with the ambient environment and the runtime flags.
type Plan struct {
	Action ExecAction
	// Reason is set for ActionSkip.
	Reason string
}

// Skip builds a skip plan with the given reason.
func Skip(reason string) Plan {
	return Plan{Action: ActionSkip, Reason: reason}
}

// Outcome is the final state of one test execution attempt.
type Outcome string

const (
	OutcomePass      Outcome = "pass"
	OutcomeFail      Outcome = "fail"
	OutcomeSkip      Outcome = "skip"
	OutcomeCancelled Outcome = "cancelled"
)

// TestRun captures one execution attempt of one test. Exactly one
// TestRun exists per selected TestSpec, whatever its fate.
type TestRun struct {
	Spec TestSpec
	Plan Plan

	Outcome  Outcome
	Start    time.Time
	Duration time.Duration

	// LogPath points at the scratch log while it exists. Empty once
	// the log has been consumed by the collector or deleted on pass.
	LogPath string
	// Err carries the spawn or wait error for failed runs.
	Err error
	// TimedOut is set when the wall-clock ceiling killed the test.
	TimedOut bool
	// Planned marks dry-run results: reported, never spawned.
	Planned bool
}

// Failed reports whether this run counts against the overall result.
func (r *TestRun) Failed() bool {
	return r.Outcome == OutcomeFail || r.Outcome == OutcomeCancelled
}

func (r *TestRun) String() string {
	switch r.Outcome {
	case OutcomeSkip:
		return fmt.Sprintf("%s: skipped (%s)", r.Spec.ID, r.Plan.Reason)
	case OutcomeFail:
		if r.TimedOut {
			return fmt.Sprintf("%s: failed (timed out after %s)", r.Spec.ID, r.Duration.Round(time.Millisecond))
		}
		return fmt.Sprintf("%s: failed in %s", r.Spec.ID, r.Duration.Round(time.Millisecond))
	case OutcomeCancelled:
		return fmt.Sprintf("%s: cancelled after %s", r.Spec.ID, r.Duration.Round(time.Millisecond))
	default:
		return fmt.Sprintf("%s: %s in %s", r.Spec.ID, r.Outcome, r.Duration.Round(time.Millisecond))
	}
}
