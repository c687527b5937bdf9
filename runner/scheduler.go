package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/cros-infra/runtests/types"
)

// Work pairs a classified test with its resolved plan.
type Work struct {
	Spec types.TestSpec
	Plan types.Plan
}

// Scheduler fans out one executor call per test. Every selected test
// launches immediately; concurrency is bounded only by the OS unless
// MaxParallel caps it. All units are joined before RunAll returns,
// interrupt or not.
type Scheduler struct {
	executor *Executor
	table    *ProcessTable
	grace    time.Duration
	max      int
	intr     <-chan os.Signal
	log      log.Logger
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Executor *Executor
	Table    *ProcessTable
	// Grace is the interrupt grace window; 0 means DefaultGrace.
	Grace time.Duration
	// MaxParallel bounds concurrency when positive; 0 means unbounded.
	MaxParallel int
	// Interrupts overrides the OS signal channel. Nil installs a
	// handler for SIGINT and SIGTERM.
	Interrupts <-chan os.Signal
	Log        log.Logger
}

// NewScheduler builds a Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	return &Scheduler{
		executor: cfg.Executor,
		table:    cfg.Table,
		grace:    cfg.Grace,
		max:      cfg.MaxParallel,
		intr:     cfg.Interrupts,
		log:      logger,
	}
}

// RunAll executes every work item concurrently and accumulates the
// outcomes into report, in completion order. Exactly one outcome is
// recorded per item. If an interrupt arrives mid-run, the canceller
// drains all in-flight processes before RunAll returns and the report
// is marked interrupted.
func (s *Scheduler) RunAll(ctx context.Context, report *RunReport, work []Work, dryRun bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	intr := s.intr
	if intr == nil {
		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigc)
		intr = sigc
	}

	joined := make(chan struct{})
	canceller := NewCanceller(s.table, s.grace, cancel, s.log)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		canceller.Watch(intr, joined)
	}()

	s.log.Info("Launching tests", "count", len(work), "max_parallel", s.max, "dry_run", dryRun)

	p := pool.New()
	if s.max > 0 {
		p = p.WithMaxGoroutines(s.max)
	}
	for _, w := range work {
		w := w
		p.Go(func() {
			report.Record(s.executor.Execute(runCtx, w.Spec, w.Plan, dryRun))
		})
	}
	p.Wait()
	close(joined)
	<-watchDone

	if canceller.Interrupted() {
		report.MarkInterrupted()
		s.log.Warn("Run interrupted; all in-flight tests drained",
			"state", canceller.State())
	}
}
