// Package exitcodes defines the standard exit codes used by runtests.
package exitcodes

// Exit code constants used by the orchestrator:
//
// * Success (0): all non-skipped tests passed, or list/dry-run completed
// * TestFailure (1): one or more tests failed, or the run was interrupted
// * RuntimeErr (2): configuration errors, bad flags, or other runtime failures
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
