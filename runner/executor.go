package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/cros-infra/runtests/chroot"
	"github.com/cros-infra/runtests/logging"
	"github.com/cros-infra/runtests/types"
)

const (
	// DefaultTimeout is the wall-clock ceiling for one test.
	DefaultTimeout = 20 * time.Minute
	// DefaultGrace is how long a test gets between SIGTERM and SIGKILL.
	DefaultGrace = 5 * time.Second
	// VerboseFlag is passed to every test invocation.
	VerboseFlag = "-v"
)

// Executor runs one test as a child process under a timeout, with its
// combined output redirected to a private scratch log.
type Executor struct {
	workDir string
	runner  string
	enter   chroot.Enter
	timeout time.Duration
	grace   time.Duration
	logs    *logging.RunDirectory
	table   *ProcessTable
	log     log.Logger
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// WorkDir is the test root; test ids are resolved against it.
	WorkDir string
	// Runner optionally wraps each test: `<runner> <path> -v` instead
	// of executing the test file directly.
	Runner string
	// Enter re-enters the chroot for chroot-only tests.
	Enter chroot.Enter
	// Timeout is the per-test ceiling; 0 means DefaultTimeout.
	Timeout time.Duration
	// Grace is the SIGTERM-to-SIGKILL window; 0 means DefaultGrace.
	Grace time.Duration
	Logs  *logging.RunDirectory
	Table *ProcessTable
	Log   log.Logger
}

// NewExecutor validates the config and builds an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("workDir cannot be empty")
	}
	if cfg.Logs == nil {
		return nil, fmt.Errorf("run directory cannot be nil")
	}
	if cfg.Table == nil {
		return nil, fmt.Errorf("process table cannot be nil")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Grace == 0 {
		cfg.Grace = DefaultGrace
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	return &Executor{
		workDir: cfg.WorkDir,
		runner:  cfg.Runner,
		enter:   cfg.Enter,
		timeout: cfg.Timeout,
		grace:   cfg.Grace,
		logs:    cfg.Logs,
		table:   cfg.Table,
		log:     logger,
	}, nil
}

// Execute runs one test according to its plan and returns its TestRun.
// Skips and dry-runs never spawn a process. Failures — nonzero exit,
// timeout, or a spawn error — leave the scratch log in place for the
// collector; the log of a passing test is deleted immediately.
func (e *Executor) Execute(ctx context.Context, spec types.TestSpec, plan types.Plan, dryRun bool) *types.TestRun {
	run := &types.TestRun{Spec: spec, Plan: plan, Start: time.Now()}

	if plan.Action == types.ActionSkip {
		run.Outcome = types.OutcomeSkip
		e.log.Info("Skipping test", "test", spec.ID, "reason", plan.Reason)
		return run
	}

	argv := e.buildArgv(spec, plan)

	if dryRun {
		run.Outcome = types.OutcomePass
		run.Planned = true
		e.log.Info("Would run test", "test", spec.ID, "cmd", argv)
		return run
	}

	e.log.Info("Starting test", "test", spec.ID, "mode", plan.Action)
	e.runProcess(ctx, run, argv)
	run.Duration = time.Since(run.Start)

	switch run.Outcome {
	case types.OutcomePass:
		e.log.Info("Test passed", "test", spec.ID, "elapsed", run.Duration.Round(time.Millisecond))
	case types.OutcomeCancelled:
		e.log.Warn("Test cancelled", "test", spec.ID, "elapsed", run.Duration.Round(time.Millisecond))
	default:
		e.log.Error("Test failed", "test", spec.ID, "elapsed", run.Duration.Round(time.Millisecond),
			"timed_out", run.TimedOut, "err", run.Err)
	}
	return run
}

// buildArgv constructs the child argv for one test.
func (e *Executor) buildArgv(spec types.TestSpec, plan types.Plan) []string {
	var argv []string
	path := filepath.Join(e.workDir, spec.ID)
	if e.runner != "" {
		argv = []string{e.runner, path, VerboseFlag}
	} else {
		argv = []string{path, VerboseFlag}
	}
	if plan.Action == types.ActionRunChroot {
		argv = e.enter.Wrap(argv)
	}
	return argv
}

// runProcess spawns the child, joins it, and fills in the outcome.
func (e *Executor) runProcess(ctx context.Context, run *types.TestRun, argv []string) {
	// A test still queued when the run is cancelled never spawns; it
	// is cancelled work, not a spawn failure.
	if ctx.Err() != nil {
		run.Outcome = types.OutcomeCancelled
		run.Err = ctx.Err()
		return
	}

	logPath, err := e.logs.ScratchLog(run.Spec.ID)
	if err != nil {
		run.Outcome = types.OutcomeFail
		run.Err = err
		return
	}
	run.LogPath = logPath

	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		run.Outcome = types.OutcomeFail
		run.Err = err
		return
	}
	defer func() {
		_ = logFile.Close()
	}()

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, argv[0], argv[1:]...)
	cmd.Dir = e.workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// Graceful first, forced after the grace window.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.grace

	if err := cmd.Start(); err != nil {
		// The run context can be cancelled between the check above and
		// Start, which then returns the context error.
		if ctx.Err() != nil {
			run.Outcome = types.OutcomeCancelled
			run.Err = ctx.Err()
			return
		}
		// A spawn failure is a test failure with the spawn error as
		// its log content.
		run.Outcome = types.OutcomeFail
		run.Err = err
		fmt.Fprintf(logFile, "failed to spawn test process: %v\n", err)
		return
	}

	e.table.Add(run.Spec.ID, cmd.Process)
	waitErr := cmd.Wait()
	e.table.Remove(run.Spec.ID)

	switch {
	case ctx.Err() != nil:
		run.Outcome = types.OutcomeCancelled
		run.Err = waitErr
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		run.Outcome = types.OutcomeFail
		run.TimedOut = true
		run.Err = waitErr
		fmt.Fprintf(logFile, "\ntest timed out after %s and was killed\n", e.timeout)
	case waitErr != nil:
		run.Outcome = types.OutcomeFail
		run.Err = waitErr
	default:
		run.Outcome = types.OutcomePass
		// Passing output is noise; drop it. The deferred close
		// releases the handle after the unlink.
		_ = os.Remove(logPath)
		run.LogPath = ""
	}
}
