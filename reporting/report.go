// Package reporting renders the aggregate failure report.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/cros-infra/runtests/runner"
	"github.com/cros-infra/runtests/types"
)

const bannerWidth = 70

// WriteFailures prints every failure section in completion order,
// followed by a terse list of the failing test ids. With no failures
// it prints nothing. Returns whether anything was written.
func WriteFailures(w io.Writer, report *runner.RunReport) bool {
	failures := report.Failures()
	if len(failures) == 0 && !report.Interrupted() {
		return false
	}

	for _, f := range failures {
		writeSection(w, f)
	}

	if report.Interrupted() {
		fmt.Fprintln(w, "\nRun was interrupted before completion.")
	}

	ids := report.FailingIDs()
	if len(ids) > 0 {
		fmt.Fprintln(w, "\nThe following tests failed:")
		for _, id := range ids {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
	return true
}

func writeSection(w io.Writer, f runner.FailureSection) {
	banner := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "%s: %s (%s)\n", sectionLabel(f), f.TestID, f.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, banner)

	output := strings.TrimRight(stripansi.Strip(f.Output), "\n")
	if output == "" {
		output = "(no output captured)"
	}
	fmt.Fprintln(w, output)
	fmt.Fprintln(w)
}

func sectionLabel(f runner.FailureSection) string {
	switch {
	case f.TimedOut:
		return "TIMED OUT"
	case f.Outcome == types.OutcomeCancelled:
		return "CANCELLED"
	default:
		return "FAILED"
	}
}
