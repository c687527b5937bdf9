// Package logging manages the per-run scratch space for test logs.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// RunDirectory owns one temporary directory per invocation. Each
// in-flight test gets a private scratch log inside it; the whole tree
// is removed at finalization.
type RunDirectory struct {
	path  string
	runID string
	log   log.Logger
}

// NewRunDirectory creates the scratch directory for a run.
func NewRunDirectory(runID string, logger log.Logger) (*RunDirectory, error) {
	if logger == nil {
		logger = log.Root()
	}
	path, err := os.MkdirTemp("", "runtests-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	logger.Debug("Created run directory", "path", path, "run_id", runID)
	return &RunDirectory{path: path, runID: runID, log: logger}, nil
}

// Path returns the scratch directory root.
func (d *RunDirectory) Path() string {
	return d.path
}

// ScratchLog creates the private log file for one test and returns its
// path. The file name is derived from the test id with path separators
// flattened, so concurrent tests never collide.
func (d *RunDirectory) ScratchLog(testID string) (string, error) {
	name := strings.ReplaceAll(testID, string(os.PathSeparator), "_") + ".log"
	path := filepath.Join(d.path, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch log for %s: %w", testID, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup removes the scratch directory and anything left in it.
func (d *RunDirectory) Cleanup() {
	if err := os.RemoveAll(d.path); err != nil {
		d.log.Warn("Failed to remove run directory", "path", d.path, "err", err)
	}
}
