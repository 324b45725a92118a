package rootfs

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// Subset returns the path to a rootfs layer with the given extra packages
// installed on top of the base rootfs, building any missing prefix layers
// along the way.
// Packages are sorted (BTreeSet-style) before layering so that two subsets
// sharing a package prefix share the same on-disk layer directories.
func (m *Manager) Subset(packages []string) (string, error) {
	if _, err := m.Ensure(); err != nil {
		return "", err
	}
	if len(packages) == 0 {
		return m.basePath(), nil
	}

	sorted := append([]string(nil), packages...)
	sort.Strings(sorted)

	parent := m.basePath()
	layerRoot := filepath.Join(m.basePath(), "subset")

	for _, pkg := range sorted {
		layerRoot = filepath.Join(layerRoot, pkg)
		rootfsDir := filepath.Join(layerRoot, "rootfs")
		statePath := filepath.Join(layerRoot, "state.toml")

		st, ok, err := readState(statePath)
		if err != nil {
			return "", err
		}
		if ok && st.Intact {
			parent = rootfsDir
			continue
		}

		if err := m.buildLayer(parent, rootfsDir, statePath, pkg); err != nil {
			return "", err
		}
		parent = rootfsDir
	}

	return parent, nil
}

// buildLayer materializes one subset layer: wipe, hard-link the parent
// layer's tree in full, mark intact:false, install pkg under the sandbox,
// then mark intact:true.
func (m *Manager) buildLayer(parent, rootfsDir, statePath, pkg string) error {
	if err := wipeAndRecreate(rootfsDir); err != nil {
		return errs.Wrap(ErrRootFS, err)
	}
	if err := hardlinkTree(parent, rootfsDir); err != nil {
		return errs.Wrapf(ErrRootFS, "hard-link layer from %s: %w", parent, err)
	}
	if err := writeState(statePath, state{Intact: false}); err != nil {
		return err
	}

	argv := sandbox.ShellArgv("set -e\napt-get install -y " + pkg + "\n")
	cfg := sandbox.Config{
		RootfsPath: rootfsDir,
		ReadOnly:   false,
		UID:        0,
		GID:        0,
		Cwd:        "/",
	}
	if err := sandbox.Run(cfg, argv); err != nil {
		return errs.Wrapf(ErrRootFS, "install package %q: %w", pkg, err)
	}

	return writeState(statePath, state{Intact: true})
}

// hardlinkTree recursively replicates src into dst, hard-linking regular
// files and recreating directories and symlinks.
func hardlinkTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return os.Link(path, target)
		}
	})
}
