package runner

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// CancelState tracks the interrupt escalation sequence.
type CancelState int32

const (
	StateRunning CancelState = iota
	StateInterruptReceived
	StateGraceWait
	StateForceKilled
	StateDrained
)

func (s CancelState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateInterruptReceived:
		return "interrupt-received"
	case StateGraceWait:
		return "grace-wait"
	case StateForceKilled:
		return "force-killed"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// Canceller turns an external interrupt into a graceful-then-forced
// shutdown of every in-flight test. The first signal cancels the run
// context and SIGTERMs every registered process; if the grace window
// expires before everything is joined, survivors get SIGKILL. Repeat
// signals are absorbed.
type Canceller struct {
	table     *ProcessTable
	grace     time.Duration
	cancelRun context.CancelFunc
	log       log.Logger

	state       atomic.Int32
	interrupted atomic.Bool
}

// NewCanceller wires a canceller to the process table and the run
// context's cancel function.
func NewCanceller(table *ProcessTable, grace time.Duration, cancelRun context.CancelFunc, logger log.Logger) *Canceller {
	if grace == 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Canceller{
		table:     table,
		grace:     grace,
		cancelRun: cancelRun,
		log:       logger,
	}
}

// State returns the current escalation state.
func (c *Canceller) State() CancelState {
	return CancelState(c.state.Load())
}

// Interrupted reports whether an external interrupt arrived.
func (c *Canceller) Interrupted() bool {
	return c.interrupted.Load()
}

func (c *Canceller) setState(s CancelState) {
	c.state.Store(int32(s))
	c.log.Debug("Cancellation state", "state", s)
}

// Watch runs the escalation state machine. joined must be closed once
// every launched process has been waited on; Watch returns when that
// happens, whether or not an interrupt ever arrived.
func (c *Canceller) Watch(interrupts <-chan os.Signal, joined <-chan struct{}) {
	select {
	case <-joined:
		return
	case sig := <-interrupts:
		c.interrupted.Store(true)
		c.setState(StateInterruptReceived)
		c.log.Warn("Interrupt received; stopping in-flight tests", "signal", sig)
	}

	c.cancelRun()
	n := c.table.SignalAll(syscall.SIGTERM)
	c.log.Info("Sent graceful termination to active tests", "count", n)
	c.setState(StateGraceWait)

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	for {
		select {
		case <-joined:
			c.setState(StateDrained)
			return
		case <-timer.C:
			k := c.table.KillAll()
			c.setState(StateForceKilled)
			c.log.Warn("Grace window expired; force-killed remaining tests", "count", k)
			<-joined
			c.setState(StateDrained)
			return
		case <-interrupts:
			// Already cancelling; absorb.
		}
	}
}
