package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cros-infra/runtests/runner"
	"github.com/cros-infra/runtests/types"
)

func recordFailure(t *testing.T, report *runner.RunReport, id, output string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "scratch.log")
	require.NoError(t, os.WriteFile(logPath, []byte(output), 0644))
	report.Record(&types.TestRun{
		Spec:    types.TestSpec{ID: id},
		Outcome: types.OutcomeFail,
		LogPath: logPath,
	})
}

func TestWriteFailuresEmpty(t *testing.T) {
	report := runner.NewRunReport("run-1")
	report.Record(&types.TestRun{Spec: types.TestSpec{ID: "a"}, Outcome: types.OutcomePass})

	var buf bytes.Buffer
	wrote := WriteFailures(&buf, report)
	assert.False(t, wrote)
	assert.Empty(t, buf.String())
}

func TestWriteFailuresSectionsAndSummary(t *testing.T) {
	report := runner.NewRunReport("run-1")
	recordFailure(t, report, "lib/gs_unittest", "expected 3, got 4\n")
	recordFailure(t, report, "lib/patch_unittest", "traceback follows\n")

	var buf bytes.Buffer
	wrote := WriteFailures(&buf, report)
	assert.True(t, wrote)

	out := buf.String()
	assert.Contains(t, out, "FAILED: lib/gs_unittest")
	assert.Contains(t, out, "expected 3, got 4")
	assert.Contains(t, out, "FAILED: lib/patch_unittest")

	// Terse summary lists just the ids, one per line, grep-friendly.
	idx := strings.Index(out, "The following tests failed:")
	require.GreaterOrEqual(t, idx, 0)
	tail := out[idx:]
	assert.Contains(t, tail, "  lib/gs_unittest\n")
	assert.Contains(t, tail, "  lib/patch_unittest\n")
}

func TestWriteFailuresStripsANSI(t *testing.T) {
	report := runner.NewRunReport("run-1")
	recordFailure(t, report, "lib/color_unittest", "\x1b[31mred failure\x1b[0m\n")

	var buf bytes.Buffer
	WriteFailures(&buf, report)
	assert.Contains(t, buf.String(), "red failure")
	assert.NotContains(t, buf.String(), "\x1b[31m")
}

func TestWriteFailuresTimeoutLabel(t *testing.T) {
	report := runner.NewRunReport("run-1")
	logPath := filepath.Join(t.TempDir(), "scratch.log")
	require.NoError(t, os.WriteFile(logPath, []byte("partial output\n"), 0644))
	report.Record(&types.TestRun{
		Spec:     types.TestSpec{ID: "slow_unittest"},
		Outcome:  types.OutcomeFail,
		TimedOut: true,
		LogPath:  logPath,
	})

	var buf bytes.Buffer
	WriteFailures(&buf, report)
	assert.Contains(t, buf.String(), "TIMED OUT: slow_unittest")
}

func TestWriteFailuresInterrupted(t *testing.T) {
	report := runner.NewRunReport("run-1")
	report.MarkInterrupted()

	var buf bytes.Buffer
	wrote := WriteFailures(&buf, report)
	assert.True(t, wrote)
	assert.Contains(t, buf.String(), "interrupted")
}
