package runner

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cros-infra/runtests/types"
)

// FailureSection is one test's contribution to the aggregate report:
// the id plus everything its process wrote.
type FailureSection struct {
	TestID   string
	Outcome  types.Outcome
	Output   string
	Duration time.Duration
	TimedOut bool
}

// RunReport is the process-wide accumulator. Every TestRun is recorded
// through it, and it is the single serialization point for failure
// output: appends hold the mutex, so concurrent completions never
// interleave inside one section.
type RunReport struct {
	RunID   string
	Started time.Time

	mu          sync.Mutex
	runs        []*types.TestRun
	failures    []FailureSection
	interrupted bool
}

// NewRunReport creates the accumulator for one invocation.
func NewRunReport(runID string) *RunReport {
	return &RunReport{RunID: runID, Started: time.Now()}
}

// Record appends one finished TestRun, in completion order. For failed
// and cancelled runs the scratch log is consumed into a failure section
// and removed.
func (r *RunReport) Record(run *types.TestRun) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, run)
	if !run.Failed() {
		return
	}

	section := FailureSection{
		TestID:   run.Spec.ID,
		Outcome:  run.Outcome,
		Duration: run.Duration,
		TimedOut: run.TimedOut,
	}
	if run.LogPath != "" {
		if data, err := os.ReadFile(run.LogPath); err == nil {
			section.Output = string(data)
		} else {
			section.Output = "log unavailable: " + err.Error()
		}
		_ = os.Remove(run.LogPath)
		run.LogPath = ""
	} else if run.Err != nil {
		section.Output = run.Err.Error()
	}
	r.failures = append(r.failures, section)
}

// MarkInterrupted records that the run was cancelled externally. An
// interrupted run always reports overall failure.
func (r *RunReport) MarkInterrupted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interrupted = true
}

// Interrupted reports whether the run was cancelled externally.
func (r *RunReport) Interrupted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupted
}

// Runs returns every recorded TestRun in completion order.
func (r *RunReport) Runs() []*types.TestRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.TestRun, len(r.runs))
	copy(out, r.runs)
	return out
}

// Failures returns the failure sections in completion order.
func (r *RunReport) Failures() []FailureSection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FailureSection, len(r.failures))
	copy(out, r.failures)
	return out
}

// FailingIDs returns the sorted ids of failed and cancelled tests.
func (r *RunReport) FailingIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.failures))
	for _, f := range r.failures {
		ids = append(ids, f.TestID)
	}
	sort.Strings(ids)
	return ids
}

// Failed reports whether the run as a whole failed: any failed or
// cancelled test, or an external interrupt.
func (r *RunReport) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupted || len(r.failures) > 0
}

// Stats summarizes outcomes. Dry-run results count as Planned, never
// as passes.
type Stats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	Cancelled int
	Planned   int
}

// Stats tallies the recorded outcomes.
func (r *RunReport) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Total: len(r.runs)}
	for _, run := range r.runs {
		if run.Planned {
			s.Planned++
			continue
		}
		switch run.Outcome {
		case types.OutcomePass:
			s.Passed++
		case types.OutcomeFail:
			s.Failed++
		case types.OutcomeSkip:
			s.Skipped++
		case types.OutcomeCancelled:
			s.Cancelled++
		}
	}
	return s
}
