// SPDX-License-Identifier:Apache-2.0

// Package version reports the build the agent was made from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/onewifi-go/easymesh/internal/version.release=...".
var (
	release   string
	gitCommit string
	gitBranch string
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Build identifies one agent binary.
type Build struct {
	Release string
	Commit  string
	Branch  string
	// Modified is set when the commit came from a dirty tree.
	Modified bool
	Go       string
}

// Current returns the running build. Without ldflags the commit is
// taken from the VCS stamp the go tool embeds.
func Current() Build {
	b := Build{
		Release: release,
		Commit:  gitCommit,
		Branch:  gitBranch,
		Go:      runtime.Version(),
	}
	if b.Commit != "" {
		return b
	}
	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

func (b Build) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "-dirty"
	}
	switch {
	case b.Release != "" && commit != "":
		return fmt.Sprintf("version %s (commit %s, branch %s)", b.Release, commit, b.Branch)
	case commit != "":
		return fmt.Sprintf("(commit %s, branch %s)", commit, b.Branch)
	case b.Release != "":
		return fmt.Sprintf("version %s (no build information)", b.Release)
	default:
		return "(no version or build info)"
	}
}

// Keyvals returns the build as go-kit log key/value pairs.
func (b Build) Keyvals() []interface{} {
	return []interface{}{
		"version", b.Release,
		"commit", b.Commit,
		"branch", b.Branch,
		"goversion", b.Go,
	}
}
