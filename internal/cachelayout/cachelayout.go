// Package cachelayout owns the on-disk directory discipline under a chariot
// cache root: the process-level advisory lock, the cache
// format version marker, and the per-process scratch directory protocol.
// internal/rootfs and internal/pipeline both take their paths.Layout from
// an opened Cache, so the lock and the version check have already run by
// the time either touches the tree.
package cachelayout

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/paths"
)

// CacheVersion is chariot's built-in cache format version. A cache root
// written by a different version is a fatal mismatch.
const CacheVersion = 1

var (
	ErrVersionMismatch = fmt.Errorf("cache version mismatch")
	ErrLock            = fmt.Errorf("failed to acquire cache lock")
)

// cacheState mirrors cache_state.toml.
type cacheState struct {
	Version int `toml:"version"`
}

// Cache wraps a paths.Layout with the held process-level lock and the
// per-process scratch directory it owns.
type Cache struct {
	Layout paths.Layout
	lock   *flock.Flock

	PID     int
	procDir string
}

// Open acquires the whole-process exclusive lock, checks (or initializes)
// the cache format version, purges stale per-process scratch directories
// left behind by dead processes, and creates this process's own scratch
// directory.
// skipLock bypasses the whole-process lock for operator use.
func Open(root string, skipLock bool) (*Cache, error) {
	layout := paths.NewLayout(root)

	if err := os.MkdirAll(layout.Root, paths.DefaultDirMode); err != nil {
		return nil, errs.Wrap(ErrLock, err)
	}

	c := &Cache{Layout: layout, PID: os.Getpid()}

	if !skipLock {
		lk := flock.New(layout.Lock())
		ok, err := lk.TryLock()
		if err != nil {
			return nil, errs.Wrap(ErrLock, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: cache root %q is in use by another process", ErrLock, layout.Root)
		}
		c.lock = lk
	}

	if err := c.checkVersion(); err != nil {
		return nil, err
	}

	if err := c.purgeStaleProc(); err != nil {
		return nil, err
	}

	if err := c.claimProcDir(); err != nil {
		return nil, err
	}

	return c, nil
}

// Close releases the process lock and removes this process's scratch
// directory. The scratch directory removal is best-effort: a future run's
// startup purge (purgeStaleProc) is the backstop.
func (c *Cache) Close() error {
	os.RemoveAll(c.procDir)
	if c.lock != nil {
		return c.lock.Unlock()
	}
	return nil
}

func (c *Cache) checkVersion() error {
	statePath := c.Layout.State()
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return c.writeState(cacheState{Version: CacheVersion})
	} else if err != nil {
		return errs.Wrap(ErrLock, err)
	}

	var state cacheState
	if _, err := toml.DecodeFile(statePath, &state); err != nil {
		return errs.Wrap(ErrLock, err)
	}
	if state.Version != CacheVersion {
		return fmt.Errorf("%w: cache root %q is version %d, chariot is version %d",
			ErrVersionMismatch, c.Layout.Root, state.Version, CacheVersion)
	}
	return nil
}

func (c *Cache) writeState(state cacheState) error {
	f, err := os.Create(c.Layout.State())
	if err != nil {
		return errs.Wrap(ErrLock, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(state)
}

// purgeStaleProc scans proc/ for entries left by a previous invocation.
// Acquiring an existing per-process lock successfully means its owner is
// dead (a live process still holds its own proc.lock); such directories are
// released and deleted. This bounds garbage from crashed or killed runs
// without any central coordination.
func (c *Cache) purgeStaleProc() error {
	procRoot := c.Layout.Proc()
	entries, err := os.ReadDir(procRoot)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errs.Wrap(ErrLock, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := procRoot + "/" + entry.Name()
		lk := flock.New(dir + "/proc.lock")
		ok, err := lk.TryLock()
		if err != nil || !ok {
			// Either the lock is held by a live process, or we failed to
			// even attempt it (e.g. permissions); leave it alone either
			// way rather than risk deleting an in-use directory.
			continue
		}
		lk.Unlock()
		os.RemoveAll(dir)
	}
	return nil
}

// claimProcDir creates proc/<pid>/ and its depcache subdirectories, and
// acquires proc.lock within it so other processes can tell this one is
// alive.
func (c *Cache) claimProcDir() error {
	dir := c.Layout.ProcDir(c.PID)
	for _, sub := range []string{"depcache/sources", "depcache/tools", "depcache/packages"} {
		if err := os.MkdirAll(dir+"/"+sub, paths.DefaultDirMode); err != nil {
			return errs.Wrap(ErrLock, err)
		}
	}

	lk := flock.New(dir + "/proc.lock")
	ok, err := lk.TryLock()
	if err != nil {
		return errs.Wrap(ErrLock, err)
	}
	if !ok {
		return fmt.Errorf("%w: proc dir %q already locked", ErrLock, dir)
	}

	c.procDir = dir
	return nil
}

// DepcacheDir returns one of this process's depcache subdirectories
// ("sources", "tools", "packages").
func (c *Cache) DepcacheDir(kind string) string {
	return c.procDir + "/depcache/" + kind
}

// WipeDepcache removes and recreates all three depcache subdirectories, as
// done at the start of each recipe context assembly.
func (c *Cache) WipeDepcache() error {
	for _, kind := range []string{"sources", "tools", "packages"} {
		dir := c.DepcacheDir(kind)
		if err := os.RemoveAll(dir); err != nil {
			return errs.Wrap(ErrLock, err)
		}
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return errs.Wrap(ErrLock, err)
		}
	}
	return nil
}
