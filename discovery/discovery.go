// Package discovery finds test files under a source tree.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// DefaultPattern matches the unittest naming convention.
	DefaultPattern = "*_unittest"
	// IgnoreMarker excludes a directory and everything below it.
	IgnoreMarker = ".testignore"
)

// Config controls a discovery walk.
type Config struct {
	// Root is the directory to walk.
	Root string
	// Pattern is a filepath.Match pattern against base names.
	// Defaults to DefaultPattern.
	Pattern string
	// Marker is the per-directory ignore file. Defaults to IgnoreMarker.
	Marker string
	Log    log.Logger
}

// FindTests walks cfg.Root and returns the sorted list of test paths,
// relative to the root. A directory containing the ignore marker is
// pruned along with its entire subtree.
func FindTests(cfg Config) ([]string, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("discovery root is required")
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.Marker == "" {
		cfg.Marker = IgnoreMarker
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}

	var tests []string
	err := filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, serr := os.Stat(filepath.Join(path, cfg.Marker)); serr == nil {
				logger.Debug("Skipping ignored directory", "dir", path)
				return fs.SkipDir
			}
			return nil
		}
		matched, merr := filepath.Match(cfg.Pattern, d.Name())
		if merr != nil {
			return fmt.Errorf("bad test pattern %q: %w", cfg.Pattern, merr)
		}
		if !matched {
			return nil
		}
		rel, rerr := filepath.Rel(cfg.Root, path)
		if rerr != nil {
			return rerr
		}
		tests = append(tests, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("test discovery failed under %s: %w", cfg.Root, err)
	}

	sort.Strings(tests)
	logger.Debug("Discovered tests", "root", cfg.Root, "count", len(tests))
	return tests, nil
}
