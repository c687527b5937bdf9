package runner

import (
	"os"
	"sync"
	"syscall"
)

// ProcessTable is the registry of active child processes. The scheduler
// inserts on launch and removes on join; the canceller iterates it to
// deliver signals. Signalling a process that already exited is a no-op.
type ProcessTable struct {
	mu    sync.Mutex
	procs map[string]*os.Process
}

// NewProcessTable returns an empty registry.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{procs: make(map[string]*os.Process)}
}

// Add registers the process running the given test.
func (t *ProcessTable) Add(testID string, p *os.Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[testID] = p
}

// Remove drops a test's process after it has been joined.
func (t *ProcessTable) Remove(testID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, testID)
}

// Len reports the number of processes currently registered.
func (t *ProcessTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}

// SignalAll delivers sig to every registered process and returns how
// many were signalled. Delivery errors are ignored: a process may exit
// between registry iteration and signal delivery.
func (t *ProcessTable) SignalAll(sig os.Signal) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.procs {
		_ = p.Signal(sig)
	}
	return len(t.procs)
}

// KillAll force-terminates every registered process.
func (t *ProcessTable) KillAll() int {
	return t.SignalAll(syscall.SIGKILL)
}
