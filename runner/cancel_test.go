package runner

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellerNoInterrupt(t *testing.T) {
	table := NewProcessTable()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewCanceller(table, time.Second, cancel, nil)

	intr := make(chan os.Signal, 1)
	joined := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Watch(intr, joined)
	}()

	close(joined)
	<-done

	assert.False(t, c.Interrupted())
	assert.Equal(t, StateRunning, c.State())
}

func TestCancellerGracefulShutdown(t *testing.T) {
	table := NewProcessTable()
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	table.Add("hang_unittest", cmd.Process)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewCanceller(table, 10*time.Second, cancel, nil)

	intr := make(chan os.Signal, 2)
	joined := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		c.Watch(intr, joined)
	}()

	intr <- os.Interrupt

	// The graceful SIGTERM should take down the sleep promptly.
	err := cmd.Wait()
	require.Error(t, err)
	table.Remove("hang_unittest")

	// Run context is cancelled as part of the cascade.
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run context was not cancelled")
	}

	close(joined)
	<-watchDone

	assert.True(t, c.Interrupted())
	assert.Equal(t, StateDrained, c.State())
}

func TestCancellerForceKillsAfterGrace(t *testing.T) {
	table := NewProcessTable()
	// The child ignores SIGTERM, so only the forced kill can end it.
	cmd := exec.Command("sh", "-c", `trap "" TERM; while true; do sleep 1; done`)
	require.NoError(t, cmd.Start())
	table.Add("stubborn_unittest", cmd.Process)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewCanceller(table, 200*time.Millisecond, cancel, nil)

	intr := make(chan os.Signal, 1)
	joined := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		c.Watch(intr, joined)
	}()

	var waitErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		waitErr = cmd.Wait()
		table.Remove("stubborn_unittest")
		close(joined)
	}()

	start := time.Now()
	intr <- os.Interrupt
	wg.Wait()
	<-watchDone

	require.Error(t, waitErr)
	assert.Less(t, time.Since(start), 10*time.Second, "force kill must not wait for the child")
	assert.Equal(t, StateDrained, c.State())

	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, ws.Signal())
}

func TestCancellerAbsorbsRepeatedInterrupts(t *testing.T) {
	table := NewProcessTable()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewCanceller(table, 5*time.Second, cancel, nil)

	intr := make(chan os.Signal, 3)
	joined := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		c.Watch(intr, joined)
	}()

	intr <- os.Interrupt
	intr <- os.Interrupt
	intr <- os.Interrupt

	// Give the state machine a moment, then drain.
	time.Sleep(100 * time.Millisecond)
	close(joined)
	<-watchDone

	assert.True(t, c.Interrupted())
	assert.Equal(t, StateDrained, c.State())
}

func TestCancelStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "interrupt-received", StateInterruptReceived.String())
	assert.Equal(t, "grace-wait", StateGraceWait.String())
	assert.Equal(t, "force-killed", StateForceKilled.String())
	assert.Equal(t, "drained", StateDrained.String())
}
