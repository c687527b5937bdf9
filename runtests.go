// Package runtests orchestrates a parallel unittest run: every selected
// test is classified against the exception table, launched immediately
// as its own child process, joined, and folded into one report.
package runtests

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cros-infra/runtests/chroot"
	"github.com/cros-infra/runtests/discovery"
	"github.com/cros-infra/runtests/logging"
	"github.com/cros-infra/runtests/metrics"
	"github.com/cros-infra/runtests/registry"
	"github.com/cros-infra/runtests/reporting"
	"github.com/cros-infra/runtests/runner"
	"github.com/cros-infra/runtests/service"
	"github.com/cros-infra/runtests/types"
)

// Orchestrator is the top-level coordinator for one invocation.
type Orchestrator struct {
	config *Config
	probe  chroot.Probe
	enter  chroot.Enter
	out    io.Writer
	log    log.Logger
}

// New validates the config and builds an Orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.TestDir == "" {
		return nil, fmt.Errorf("test directory is required")
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	probe := cfg.Probe
	if probe == nil {
		probe = chroot.NewProbe()
	}
	return &Orchestrator{
		config: cfg,
		probe:  probe,
		enter:  chroot.NewEnter(cfg.ChrootTool),
		out:    os.Stdout,
		log:    logger,
	}, nil
}

// SetOutput redirects report output; used by tests.
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Run executes the whole orchestration. It returns nil on success,
// a TestFailureError when any test failed or the run was interrupted,
// and a RuntimeError for operational problems.
func (o *Orchestrator) Run(ctx context.Context) error {
	ids, err := o.resolveTests()
	if err != nil {
		return NewRuntimeError(err)
	}
	if len(ids) == 0 {
		o.log.Warn("No tests found", "testdir", o.config.TestDir)
		return nil
	}

	work, err := o.classify(ids)
	if err != nil {
		return NewRuntimeError(err)
	}

	if o.config.List {
		for _, w := range work {
			fmt.Fprintln(o.out, w.Spec.ID)
		}
		return nil
	}

	runID := uuid.New().String()[:8]
	o.log.Info("Starting test run", "run_id", runID, "tests", len(work),
		"quick", o.config.Quick, "dry_run", o.config.DryRun)

	var svc *service.Service
	if o.config.MetricsAddr != "" {
		svc = service.New(o.config.MetricsAddr, o.log)
		svc.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svc.Shutdown(shutdownCtx)
		}()
	}

	logs, err := logging.NewRunDirectory(runID, o.log)
	if err != nil {
		return NewRuntimeError(err)
	}
	defer logs.Cleanup()

	procs := runner.NewProcessTable()
	executor, err := runner.NewExecutor(runner.ExecutorConfig{
		WorkDir: o.config.TestDir,
		Runner:  o.config.Runner,
		Enter:   o.enter,
		Timeout: o.config.Timeout,
		Logs:    logs,
		Table:   procs,
		Log:     o.log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	scheduler := runner.NewScheduler(runner.SchedulerConfig{
		Executor:    executor,
		Table:       procs,
		MaxParallel: o.config.MaxParallel,
		Log:         o.log,
	})

	report := runner.NewRunReport(runID)
	scheduler.RunAll(ctx, report, work, o.config.DryRun)
	elapsed := time.Since(report.Started)

	reporting.WriteFailures(o.out, report)
	o.printSummary(report, elapsed)
	o.recordMetrics(report, elapsed)

	stats := report.Stats()
	o.log.Info("Test run completed", "run_id", runID,
		"passed", stats.Passed, "failed", stats.Failed,
		"skipped", stats.Skipped, "cancelled", stats.Cancelled,
		"elapsed", elapsed.Round(time.Millisecond))

	if report.Failed() {
		if report.Interrupted() {
			return NewTestFailureError("run interrupted")
		}
		return NewTestFailureError(fmt.Sprintf("%d of %d tests failed",
			stats.Failed+stats.Cancelled, stats.Total))
	}
	return nil
}

// resolveTests returns the sorted test ids: the positional arguments if
// given, otherwise everything discovery finds.
func (o *Orchestrator) resolveTests() ([]string, error) {
	if len(o.config.Tests) > 0 {
		ids := make([]string, len(o.config.Tests))
		copy(ids, o.config.Tests)
		sort.Strings(ids)
		return ids, nil
	}
	return discovery.FindTests(discovery.Config{
		Root: o.config.TestDir,
		Log:  o.log,
	})
}

// classify builds the exception table once and resolves a plan for
// every test. The chroot-availability probe runs here, before any test
// launches.
func (o *Orchestrator) classify(ids []string) ([]runner.Work, error) {
	tbl, err := registry.Build(registry.Config{
		Log:         o.log,
		OverlayFile: o.config.ExceptionFile,
	})
	if err != nil {
		return nil, err
	}

	inside := o.probe.InsideChroot()
	skipChroot := o.config.SkipChroot
	if !inside && !skipChroot && !o.enter.Available() {
		o.log.Warn("Chroot tool not found; chroot-only tests will be skipped",
			"tool", o.enter.Tool)
		skipChroot = true
	}
	env := registry.Env{
		InsideChroot: inside,
		SkipChroot:   skipChroot,
		Quick:        o.config.Quick,
	}
	o.log.Debug("Classification environment", "inside_chroot", env.InsideChroot,
		"skip_chroot", env.SkipChroot, "quick", env.Quick)

	work := make([]runner.Work, 0, len(ids))
	for _, id := range ids {
		spec := tbl.Spec(id)
		work = append(work, runner.Work{Spec: spec, Plan: registry.Classify(spec, env)})
	}
	return work, nil
}

// printSummary renders the per-test outcome table.
func (o *Orchestrator) printSummary(report *runner.RunReport, elapsed time.Duration) {
	stats := report.Stats()

	t := table.NewWriter()
	t.SetOutputMirror(o.out)
	title := fmt.Sprintf("Test Results (%s)", formatDuration(elapsed))
	if o.config.DryRun {
		title = "Test Plan (dry run)"
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Test", "Outcome", "Duration", "Notes"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Notes", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, run := range report.Runs() {
		t.AppendRow(table.Row{
			run.Spec.ID,
			outcomeLabel(run),
			formatDuration(run.Duration),
			runNotes(run),
		})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", stats.Total),
		overallLabel(report),
		formatDuration(elapsed),
		statsSummary(stats),
	})
	t.Render()
}

func statsSummary(stats runner.Stats) string {
	s := fmt.Sprintf("%d passed, %d failed, %d skipped, %d cancelled",
		stats.Passed, stats.Failed, stats.Skipped, stats.Cancelled)
	if stats.Planned > 0 {
		s = fmt.Sprintf("%d planned, %s", stats.Planned, s)
	}
	return s
}

// recordMetrics counts executed tests only; a dry run never ran
// anything and must not inflate the pass counters.
func (o *Orchestrator) recordMetrics(report *runner.RunReport, elapsed time.Duration) {
	for _, run := range report.Runs() {
		if run.Planned {
			continue
		}
		metrics.RecordTest(report.RunID, string(run.Outcome), run.Duration)
	}
	metrics.RecordRun(report.RunID, report.Failed(), elapsed)
}

func outcomeLabel(run *types.TestRun) string {
	if run.Planned {
		return "PLANNED"
	}
	return strings.ToUpper(string(run.Outcome))
}

func overallLabel(report *runner.RunReport) string {
	if report.Failed() {
		return "FAIL"
	}
	return "PASS"
}

func runNotes(run *types.TestRun) string {
	switch {
	case run.Plan.Action == types.ActionSkip:
		return run.Plan.Reason
	case run.TimedOut:
		return "timed out"
	case run.Plan.Action == types.ActionRunChroot:
		return "via chroot"
	default:
		return ""
	}
}
