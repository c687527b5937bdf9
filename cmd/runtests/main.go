package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	runtests "github.com/cros-infra/runtests"
	"github.com/cros-infra/runtests/exitcodes"
	"github.com/cros-infra/runtests/flags"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "runtests"
	app.Usage = "Parallel unittest orchestrator"
	app.ArgsUsage = "[test ...]"
	app.Description = "runtests classifies and runs every selected unittest concurrently,\n" +
		"re-entering the chroot where a test requires it, and aggregates failure\n" +
		"output into one report."
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if runtests.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				// Configuration and runtime errors alike.
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already reported; this is unreachable unless
		// the handler declined to exit.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcodes.RuntimeErr)
	}
}

func run(ctx *cli.Context) error {
	logger, err := setupLogger(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return runtests.NewRuntimeError(err)
	}

	cfg, err := runtests.NewConfig(ctx, logger)
	if err != nil {
		return runtests.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	orch, err := runtests.New(cfg)
	if err != nil {
		return runtests.NewRuntimeError(err)
	}

	return orch.Run(ctx.Context)
}

func setupLogger(level string) (log.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
