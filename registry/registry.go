// Package registry holds the test exception table and resolves each
// test id into an execution plan.
package registry

import (
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/cros-infra/runtests/types"
)

// Entry is one exception-table record. Tests absent from the table
// default to RunAnywhere.
type Entry struct {
	Class types.Classification `yaml:"class"`
	Slow  bool                 `yaml:"slow,omitempty"`
}

// builtinEntries is the static exception table. An overlay file can
// replace entries, once, in Build.
var builtinEntries = map[string]Entry{
	// Needs the full board sysroot; meaningless on the host.
	"lib/cgroups_unittest":  {Class: types.ChrootOnly},
	"lib/cros_sdk_unittest": {Class: types.HostOnly},
	// Depends on network fixtures; excluded from quick runs.
	"lib/gs_unittest":    {Class: types.RunAnywhere, Slow: true},
	"lib/patch_unittest": {Class: types.RunAnywhere, Slow: true},
	// Broken against the current portage snapshot.
	"scripts/cros_portage_upgrade_unittest": {Class: types.NeverRun},
}

// Config controls table construction.
type Config struct {
	Log log.Logger
	// OverlayFile is an optional YAML file layered over the built-in
	// table.
	OverlayFile string
}

// overlay is the YAML shape of an exception file.
type overlay struct {
	Tests map[string]Entry `yaml:"tests"`
}

// Table is the immutable exception table. Build it once at startup,
// before any test launches; afterwards it is only read.
type Table struct {
	entries map[string]Entry
	log     log.Logger
}

// Build merges the built-in table with the optional overlay file.
// Runtime-detected environment state (chroot availability, run flags)
// is passed to Classify through Env instead of mutating the table.
func Build(cfg Config) (*Table, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}

	entries := make(map[string]Entry, len(builtinEntries))
	for id, e := range builtinEntries {
		entries[id] = e
	}

	if cfg.OverlayFile != "" {
		data, err := os.ReadFile(cfg.OverlayFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read exception file: %w", err)
		}
		var o overlay
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("failed to parse exception file %s: %w", cfg.OverlayFile, err)
		}
		for id, e := range o.Tests {
			if !e.Class.Valid() {
				return nil, fmt.Errorf("exception file %s: test %q has unknown class %q", cfg.OverlayFile, id, e.Class)
			}
			entries[id] = e
		}
		logger.Debug("Loaded exception overlay", "file", cfg.OverlayFile, "entries", len(o.Tests))
	}

	return &Table{entries: entries, log: logger}, nil
}

// Lookup returns the entry for a test id, defaulting to RunAnywhere.
func (t *Table) Lookup(id string) Entry {
	if e, ok := t.entries[id]; ok {
		return e
	}
	return Entry{Class: types.RunAnywhere}
}

// Spec builds the immutable TestSpec for a test id.
func (t *Table) Spec(id string) types.TestSpec {
	e := t.Lookup(id)
	return types.TestSpec{ID: id, Class: e.Class, Slow: e.Slow}
}

// IDs returns the sorted ids present in the table. Diagnostic only.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Env is the ambient state and runtime flags classification depends on.
type Env struct {
	// InsideChroot is the probed ambient environment.
	InsideChroot bool
	// SkipChroot turns chroot re-entry into a skip (chroot tool
	// unavailable, or the caller asked to stay out).
	SkipChroot bool
	// Quick excludes slow tests.
	Quick bool
}

// Classify resolves a spec against the ambient environment. The quick
// exclusion is checked last, after the chroot-boundary rules.
func Classify(spec types.TestSpec, env Env) types.Plan {
	switch {
	case spec.Class == types.NeverRun:
		return types.Skip("explicitly disabled")
	case spec.Class == types.HostOnly && env.InsideChroot:
		return types.Skip("must run outside the chroot")
	case spec.Class == types.ChrootOnly && !env.InsideChroot:
		if env.SkipChroot {
			return types.Skip("chroot unavailable")
		}
		return types.Plan{Action: types.ActionRunChroot}
	case env.Quick && spec.Slow:
		return types.Skip("excluded from quick run")
	default:
		return types.Plan{Action: types.ActionRunDirect}
	}
}
