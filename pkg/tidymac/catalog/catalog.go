// Package catalog defines the declarative scan-target table. Targets
// are immutable configuration assembled at startup; the profile
// resolver selects the active subset.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
)

// ResolveKind selects how a target's paths are produced.
type ResolveKind int

// Resolution kinds.
const (
	// Literal paths are used as-is.
	Literal ResolveKind = iota
	// Tilde paths have a leading ~ expanded to the home directory.
	Tilde
	// Glob paths are tilde-expanded then glob-matched.
	Glob
	// Detector targets delegate discovery to a detector rule run
	// over the user's project roots.
	Detector
)

// DetectorRule names a discovery rule for Detector targets.
type DetectorRule string

// Detector rules.
const (
	RuleNone        DetectorRule = ""
	RuleDevProjects DetectorRule = "dev_projects"
	RuleLargeFiles  DetectorRule = "large_files"
)

// Env supplies the environment resolution runs against. Tests inject a
// fake home to keep resolution hermetic.
type Env struct {
	Home string
}

// DefaultEnv returns the resolution environment for the current user.
func DefaultEnv() Env {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return Env{Home: home}
}

// ScanTarget declares where to look and how to classify what is found.
type ScanTarget struct {
	// Name is the stable target name referenced by profiles.
	Name string

	// Category groups targets for presentation.
	Category string

	// Kind selects the resolution method.
	Kind ResolveKind

	// Paths are the declared paths (literal, tilde or glob form).
	// Empty for detector targets.
	Paths []string

	// Rule names the detector rule for Detector targets.
	Rule DetectorRule

	// Safety is the default label for items from this target.
	Safety types.SafetyLabel

	// Reason is the user-facing explanation for flagging.
	Reason string

	// Recursive controls whether the walker descends below the
	// resolved roots.
	Recursive bool

	// MinSize excludes files below this many bytes.
	MinSize int64

	// MinAgeDays excludes files modified within the last N days.
	MinAgeDays int

	// Extensions restricts matches to these extensions (lowercase,
	// without dot). Empty means no restriction.
	Extensions []string
}

// Resolve produces the concrete roots for this target. Detector
// targets resolve to the project search roots their rule scans;
// missing directories are dropped silently.
func (t *ScanTarget) Resolve(env Env) ([]string, error) {
	switch t.Kind {
	case Literal:
		return existing(t.Paths), nil

	case Tilde:
		var roots []string
		for _, p := range t.Paths {
			roots = append(roots, expandTilde(p, env.Home))
		}
		return existing(roots), nil

	case Glob:
		var roots []string
		for _, p := range t.Paths {
			matches, err := filepath.Glob(expandTilde(p, env.Home))
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", p, err)
			}
			roots = append(roots, matches...)
		}
		return existing(roots), nil

	case Detector:
		return existing(ProjectRoots(env)), nil

	default:
		return nil, fmt.Errorf("unknown resolve kind %d", t.Kind)
	}
}

// expandTilde replaces a leading ~ with the home directory.
func expandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

// existing filters out paths that do not exist.
func existing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Lstat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// ProjectRoots returns the directories searched by detector rules:
// the conventional project locations under the home directory.
func ProjectRoots(env Env) []string {
	if env.Home == "" {
		return nil
	}
	names := []string{
		"Projects", "projects", "Code", "code", "Development",
		"dev", "workspace", "repos", "src",
	}
	roots := make([]string, 0, len(names))
	for _, n := range names {
		roots = append(roots, filepath.Join(env.Home, n))
	}
	return roots
}

// ByName returns the named target from the built-in table.
func ByName(name string) (*ScanTarget, bool) {
	for i := range builtins {
		if builtins[i].Name == name {
			return &builtins[i], true
		}
	}
	return nil, false
}

// All returns a copy of the built-in target table.
func All() []ScanTarget {
	out := make([]ScanTarget, len(builtins))
	copy(out, builtins)
	return out
}

// Names returns the built-in target names in table order.
func Names() []string {
	names := make([]string, len(builtins))
	for i := range builtins {
		names[i] = builtins[i].Name
	}
	return names
}
