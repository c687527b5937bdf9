package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "RUNTESTS"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   ".",
		EnvVars: prefixEnvVars("TESTDIR"),
		Usage:   "Root of the source tree to discover tests under",
	}
	Runner = &cli.StringFlag{
		Name:    "runner",
		Value:   "",
		EnvVars: prefixEnvVars("RUNNER"),
		Usage:   "Wrapper binary to invoke each test with; empty executes the test file directly",
	}
	ChrootTool = &cli.StringFlag{
		Name:    "chroot-tool",
		Value:   "cros_sdk",
		EnvVars: prefixEnvVars("CHROOT_TOOL"),
		Usage:   "Command used to re-enter the chroot for chroot-only tests",
	}
	Exceptions = &cli.StringFlag{
		Name:    "exceptions",
		Value:   "",
		EnvVars: prefixEnvVars("EXCEPTIONS"),
		Usage:   "YAML file layered over the built-in test exception table",
	}
	Quick = &cli.BoolFlag{
		Name:    "quick",
		Aliases: []string{"q"},
		EnvVars: prefixEnvVars("QUICK"),
		Usage:   "Exclude slow and network-dependent tests",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Aliases: []string{"n"},
		EnvVars: prefixEnvVars("DRY_RUN"),
		Usage:   "Plan the run without executing anything",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Aliases: []string{"l"},
		EnvVars: prefixEnvVars("LIST"),
		Usage:   "Print the resolved test set, sorted, and exit",
	}
	SkipChroot = &cli.BoolFlag{
		Name:    "skip-chroot",
		EnvVars: prefixEnvVars("SKIP_CHROOT"),
		Usage:   "Skip chroot-only tests instead of re-entering the chroot",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   20 * time.Minute,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Wall-clock ceiling per test before it is killed",
	}
	MaxParallel = &cli.IntFlag{
		Name:    "max-parallel",
		Value:   0,
		EnvVars: prefixEnvVars("MAX_PARALLEL"),
		Usage:   "Cap on concurrently running tests (0 = unbounded)",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
		Usage:   "Serve /healthz and /metrics on this address for the duration of the run",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: debug, info, warn, error",
	}
)

var Flags = []cli.Flag{
	TestDir,
	Runner,
	ChrootTool,
	Exceptions,
	Quick,
	DryRun,
	List,
	SkipChroot,
	Timeout,
	MaxParallel,
	MetricsAddr,
	LogLevel,
}
