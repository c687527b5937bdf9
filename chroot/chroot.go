// Package chroot answers "are we inside the chroot?" and knows how to
// re-enter it to run a single command.
package chroot

import (
	"os"
	"os/exec"
)

// SentinelFile marks the inside of the chroot.
const SentinelFile = "/etc/cros_chroot_version"

// DefaultTool is the command used to re-enter the chroot.
const DefaultTool = "cros_sdk"

// Probe reports which side of the chroot boundary we are on.
// It is an interface so tests can substitute the ambient check.
type Probe interface {
	InsideChroot() bool
}

// FileProbe checks for the chroot sentinel file.
type FileProbe struct {
	Sentinel string
}

var _ Probe = FileProbe{}

// NewProbe returns a probe against the standard sentinel location.
func NewProbe() Probe {
	return FileProbe{Sentinel: SentinelFile}
}

func (p FileProbe) InsideChroot() bool {
	_, err := os.Stat(p.Sentinel)
	return err == nil
}

// StaticProbe always answers the same; for tests and forced modes.
type StaticProbe bool

var _ Probe = StaticProbe(false)

func (p StaticProbe) InsideChroot() bool { return bool(p) }

// Enter wraps commands so they run inside the chroot.
type Enter struct {
	// Tool is the chroot entry binary, e.g. "cros_sdk".
	Tool string
}

// NewEnter builds an Enter around the given tool, defaulting to cros_sdk.
func NewEnter(tool string) Enter {
	if tool == "" {
		tool = DefaultTool
	}
	return Enter{Tool: tool}
}

// Available reports whether the entry tool can be found on PATH.
func (e Enter) Available() bool {
	_, err := exec.LookPath(e.Tool)
	return err == nil
}

// Wrap rewrites argv so it executes inside the chroot.
func (e Enter) Wrap(argv []string) []string {
	wrapped := make([]string, 0, len(argv)+2)
	wrapped = append(wrapped, e.Tool, "--")
	return append(wrapped, argv...)
}
