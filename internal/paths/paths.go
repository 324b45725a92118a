// Package paths provides the default, platform-appropriate cache root and
// the fixed directory names within it.
package paths

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
)

const (
	appName = "chariot"

	// DefaultDirMode is applied to directories chariot creates.
	DefaultDirMode os.FileMode = 0755

	// DefaultFileMode is applied to files chariot creates.
	DefaultFileMode os.FileMode = 0644
)

// Default cache root.
//	Linux:   $XDG_CACHE_HOME/chariot or ~/.cache/chariot
//	macOS:   ~/Library/Caches/chariot
func CacheRoot() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Layout describes the fixed subpaths of a cache root.
type Layout struct {
	Root string
}

// Creates a Layout rooted at root. An empty root resolves to CacheRoot().
func NewLayout(root string) Layout {
	if root == "" {
		root = CacheRoot()
	}
	return Layout{Root: root}
}

// Path to the whole-process advisory lock file.
func (l Layout) Lock() string { return filepath.Join(l.Root, "cache.lock") }

// Path to the cache format version marker.
func (l Layout) State() string { return filepath.Join(l.Root, "cache_state.toml") }

// Root of the managed base/subset rootfs tree.
func (l Layout) RootFS() string { return filepath.Join(l.Root, "rootfs") }

// Root of all recipe on-disk state, keyed by namespace/name/options.
func (l Layout) Recipes() string { return filepath.Join(l.Root, "recipes") }

// Root of all per-process scratch directories.
func (l Layout) Proc() string { return filepath.Join(l.Root, "proc") }

// Per-process scratch directory for the given PID.
func (l Layout) ProcDir(pid int) string {
	return filepath.Join(l.Proc(), strconv.Itoa(pid))
}

// OptionBinding is one resolved (name, value) pair consumed by a recipe,
// contributing an "opt/<name>/<value>" segment to its on-disk path
type OptionBinding struct {
	Name  string
	Value string
}

// RecipePath returns the on-disk directory for one recipe under one set of
// option bindings. Bindings must already be
// sorted by Name for the path to be deterministic across callers; pipeline
// hashing and path construction share the same sorted order.
func (l Layout) RecipePath(namespace, name string, bindings []OptionBinding) string {
	parts := []string{l.Recipes(), namespace, name}
	for _, b := range bindings {
		parts = append(parts, "opt", b.Name, b.Value)
	}
	return filepath.Join(parts...)
}
