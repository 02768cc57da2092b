// Package safety implements the protected-path guard consulted before
// any inspection or deletion. The guard fails closed: when a path
// cannot be canonicalized, the answer is deny.
package safety

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
)

// systemRoots are absolute prefixes that must never be touched.
var systemRoots = []string{
	"/",
	"/System",
	"/Applications",
	"/Users",
	"/Library",
	"/usr",
	"/bin",
	"/sbin",
	"/var",
	"/etc",
	"/opt",
	"/private",
	"/cores",
	"/Volumes",
}

// protectedHomeDirs are home subdirectories that must never be removed.
// The empty entry protects the home directory itself.
var protectedHomeDirs = []string{
	"",
	"Desktop",
	"Documents",
	"Downloads",
	"Pictures",
	"Music",
	"Movies",
	"Library",
	"Applications",
	".ssh",
	".gnupg",
}

// allowedHomeDirs are known-cleanable prefixes under the home directory.
var allowedHomeDirs = []string{
	"Library/Caches",
	"Library/Logs",
	"Library/Developer/Xcode/DerivedData",
	"Library/Developer/Xcode/Archives",
	"Library/Developer/CoreSimulator",
	"Library/Containers/com.docker.docker/Data",
	"Library/Containers/com.apple.mail/Data/Library/Mail Downloads",
	"Library/Mail Downloads",
	"Library/Saved Application State",
	"Library/Application Support/MobileSync/Backup",
	"Library/pnpm/store",
	".local/share/pnpm/store",
	".Trash",
	".npm/_cacache",
	".cargo/registry",
	".gradle/caches",
	".m2/repository",
	".conda/pkgs",
	".docker",
	".cache",
	"go/pkg/mod/cache",
}

// allowedSystemDirs are known-cleanable prefixes outside home.
var allowedSystemDirs = []string{
	"/tmp",
	"/var/folders",
	"/var/log",
	"/private/tmp",
	"/private/var/folders",
}

// Decision is the guard's answer for a single path.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

func deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }

// Guard decides whether a candidate path may be inspected or deleted.
type Guard struct {
	home string

	// extraAllowed holds additional allowed prefixes, such as the
	// staging root and per-scan roots supplied by the caller.
	extraAllowed []string
}

// NewGuard builds a guard for the current user. The staging root is
// always allowed so that staged trees can be purged and restored.
func NewGuard() *Guard {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Guard{
		home:         home,
		extraAllowed: []string{config.StateDir()},
	}
}

// AllowPrefix adds a prefix to the allowlist. Used for caller-supplied
// duplicate-scan roots and test sandboxes.
func (g *Guard) AllowPrefix(prefix string) {
	abs, err := filepath.Abs(prefix)
	if err != nil {
		return
	}
	g.extraAllowed = append(g.extraAllowed, abs)
}

// IsDeletable reports whether the path may be deleted. Symbolic links
// are resolved first; errors during resolution deny.
func (g *Guard) IsDeletable(path string) Decision {
	canonical, err := g.canonicalize(path)
	if err != nil {
		return deny("cannot canonicalize: " + err.Error())
	}
	return g.check(canonical)
}

// MayDescend reports whether the walker may descend into a directory.
// Descent is refused only into ~/.ssh, ~/.gnupg and paths that cannot
// be canonicalized; blocklisted roots may be traversed. Deletion is
// stricter.
func (g *Guard) MayDescend(path string) bool {
	canonical, err := g.canonicalize(path)
	if err != nil {
		return false
	}
	if g.isProtected(canonical) {
		// Protected roots may still be traversed when a target
		// points inside them; only sensitive leaves are opaque.
		return !g.isSensitiveLeaf(canonical)
	}
	return true
}

// isSensitiveLeaf reports prefixes whose contents must not even be read.
func (g *Guard) isSensitiveLeaf(canonical string) bool {
	if g.home == "" {
		return false
	}
	for _, dir := range []string{".ssh", ".gnupg"} {
		p := filepath.Join(g.home, dir)
		if canonical == p || strings.HasPrefix(canonical, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// canonicalize resolves symlinks in the longest existing ancestor of
// path and rebases the remainder onto it. A path that does not exist
// yet is still canonicalized through its parent.
func (g *Guard) canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	parent, base := filepath.Split(filepath.Clean(abs))
	resolvedParent, err := filepath.EvalSymlinks(filepath.Clean(parent))
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, base), nil
}

// check applies the blocklist and allowlist to a canonical path.
func (g *Guard) check(canonical string) Decision {
	if g.isProtected(canonical) {
		return deny("protected location")
	}

	// Anything at depth <= 2 under the filesystem root is too broad
	// to delete, whatever list it is on.
	if pathDepth(canonical) <= 2 {
		return deny("path too close to filesystem root")
	}

	if g.isAllowed(canonical) {
		return Decision{Allow: true}
	}
	return deny("unrecognized location")
}

// isProtected reports whether canonical equals a blocklist entry or is
// an ancestor of one, or is the home directory itself.
func (g *Guard) isProtected(canonical string) bool {
	for _, root := range systemRoots {
		if canonical == root {
			return true
		}
	}

	if g.home == "" {
		return false
	}

	for _, dir := range protectedHomeDirs {
		protected := g.home
		if dir != "" {
			protected = filepath.Join(g.home, dir)
		}
		if canonical == protected {
			return true
		}
		// An ancestor of a protected path is at least as dangerous.
		if strings.HasPrefix(protected, canonical+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isAllowed reports whether canonical sits inside an allowlist prefix.
// External-drive trash directories are recognized by component, since
// their mount points are not enumerable ahead of time.
func (g *Guard) isAllowed(canonical string) bool {
	if filepath.Base(canonical) == ".Trashes" ||
		strings.Contains(canonical, string(filepath.Separator)+".Trashes"+string(filepath.Separator)) {
		return true
	}
	var prefixes []string
	if g.home != "" {
		for _, dir := range allowedHomeDirs {
			prefixes = append(prefixes, filepath.Join(g.home, dir))
		}
	}
	prefixes = append(prefixes, allowedSystemDirs...)
	prefixes = append(prefixes, g.extraAllowed...)

	for _, prefix := range prefixes {
		if canonical == prefix {
			return true
		}
		if strings.HasPrefix(canonical, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// pathDepth counts path components below the root.
func pathDepth(path string) int {
	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) {
		return 0
	}
	return strings.Count(clean, string(filepath.Separator))
}

// CheckAll returns the subset of paths the guard refuses, with reasons.
func (g *Guard) CheckAll(paths []string) map[string]string {
	refused := make(map[string]string)
	for _, p := range paths {
		if d := g.IsDeletable(p); !d.Allow {
			refused[p] = d.Reason
		}
	}
	return refused
}
