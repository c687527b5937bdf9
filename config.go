package runtests

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/cros-infra/runtests/chroot"
	"github.com/cros-infra/runtests/flags"
)

// Config holds the application configuration.
type Config struct {
	TestDir       string   // Root of the source tree
	Tests         []string // Explicit test ids; empty means discover
	Runner        string   // Optional wrapper binary per test
	ChrootTool    string   // Chroot entry command
	ExceptionFile string   // Optional YAML exception overlay
	Quick         bool     // Exclude slow tests
	DryRun        bool     // Plan without executing
	List          bool     // Print the resolved test set and exit
	SkipChroot    bool     // Skip chroot-only tests instead of re-entering
	Timeout       time.Duration
	MaxParallel   int    // 0 = unbounded
	MetricsAddr   string // Empty disables the metrics listener

	// Probe answers "inside the chroot?". Defaults to the sentinel
	// file check; tests substitute it.
	Probe chroot.Probe
	Log   log.Logger
}

// NewConfig creates a Config from the cli context.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	testDir, err := filepath.Abs(ctx.String(flags.TestDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve test directory: %w", err)
	}

	timeout := ctx.Duration(flags.Timeout.Name)
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	maxParallel := ctx.Int(flags.MaxParallel.Name)
	if maxParallel < 0 {
		return nil, fmt.Errorf("max-parallel cannot be negative, got %d", maxParallel)
	}

	return &Config{
		TestDir:       testDir,
		Tests:         ctx.Args().Slice(),
		Runner:        ctx.String(flags.Runner.Name),
		ChrootTool:    ctx.String(flags.ChrootTool.Name),
		ExceptionFile: ctx.String(flags.Exceptions.Name),
		Quick:         ctx.Bool(flags.Quick.Name),
		DryRun:        ctx.Bool(flags.DryRun.Name),
		List:          ctx.Bool(flags.List.Name),
		SkipChroot:    ctx.Bool(flags.SkipChroot.Name),
		Timeout:       timeout,
		MaxParallel:   maxParallel,
		MetricsAddr:   ctx.String(flags.MetricsAddr.Name),
		Probe:         chroot.NewProbe(),
		Log:           logger,
	}, nil
}
