// Package rootfs manages chariot's base and subset sandbox root filesystems:
// acquiring a Debian base image, seeding it with locales and a fixed
// package set, and layering extra distro packages on top as
// hard-link-deduplicated subset directories.
package rootfs

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/paths"
	"github.com/chariotdev/chariot/internal/sandbox"
)

var (
	ErrRootFS = errors.New("rootfs error")
)

// archiveURLTemplate is the well-known base rootfs release location
const archiveURLTemplate = "https://github.com/mintsuki/debian-rootfs/releases/download/%s/debian-rootfs-amd64.tar.xz"

// state mirrors rootfs/state.toml and rootfs/subset/**/state.toml. Version and RootPkgs are only meaningful for the base state;
// subset layers only use Intact.
type state struct {
	Intact   bool     `toml:"intact"`
	Version  string   `toml:"version"`
	RootPkgs []string `toml:"root_pkgs"`
}

func readState(path string) (state, bool, error) {
	var s state
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		if isNotExist(err) {
			return state{}, false, nil
		}
		return state{}, false, errs.Wrap(ErrRootFS, err)
	}
	_ = meta
	return s, true, nil
}

func writeState(path string, s state) error {
	f, err := createFile(path)
	if err != nil {
		return errs.Wrap(ErrRootFS, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// Manager owns one cache root's rootfs/ tree.
type Manager struct {
	Layout  paths.Layout
	Version string
	// RootPkgs is the fixed package set installed into every base image,
	// in addition to "locales".
	RootPkgs []string
}

// New returns a Manager for the given layout, base image version, and root
// package set.
func New(layout paths.Layout, version string, rootPkgs []string) *Manager {
	return &Manager{Layout: layout, Version: version, RootPkgs: rootPkgs}
}

// basePath returns rootfs/.
func (m *Manager) basePath() string {
	return m.Layout.RootFS()
}

func (m *Manager) statePath() string {
	return filepath.Join(m.basePath(), "state.toml")
}

// Ensure guarantees the base rootfs exists, is version/package-set current,
// and returns its path. It rebuilds from scratch whenever state is missing,
// not intact, or its version/root-pkgs no longer match.
func (m *Manager) Ensure() (string, error) {
	existing, ok, err := readState(m.statePath())
	if err != nil {
		return "", err
	}

	if ok && existing.Intact && existing.Version == m.Version && samePkgSet(existing.RootPkgs, m.RootPkgs) {
		return m.basePath(), nil
	}

	if err := m.rebuild(); err != nil {
		return "", err
	}
	return m.basePath(), nil
}

func (m *Manager) rebuild() error {
	root := m.basePath()
	if err := wipeAndRecreate(root); err != nil {
		return errs.Wrap(ErrRootFS, err)
	}

	archive, err := m.fetchArchive(root)
	if err != nil {
		return err
	}

	if err := extractArchive(archive, root); err != nil {
		return err
	}

	if err := m.seedPackages(root); err != nil {
		return err
	}

	return writeState(m.statePath(), state{Intact: true, Version: m.Version, RootPkgs: m.RootPkgs})
}

// fetchArchive downloads the version's rootfs tarball via wget.
func (m *Manager) fetchArchive(root string) (string, error) {
	url := fmt.Sprintf(archiveURLTemplate, m.Version)
	archive := filepath.Join(root, "..", "debian-rootfs-"+m.Version+".tar.xz")

	cmd := exec.Command("wget", "-O", archive, url)
	if err := cmd.Run(); err != nil {
		return "", errs.Wrapf(ErrRootFS, "fetch rootfs archive: %w", err)
	}
	return archive, nil
}

// extractArchive unpacks the tarball with bsdtar.
func extractArchive(archive, root string) error {
	cmd := exec.Command("bsdtar", "--strip-components", "1", "-x", "--zstd", "-C", root, "-f", archive)
	if err := cmd.Run(); err != nil {
		return errs.Wrapf(ErrRootFS, "extract rootfs archive: %w", err)
	}
	return nil
}

// seedPackages runs a writable, root sandbox session over the freshly
// extracted rootfs to seed locales and install the root package set
func (m *Manager) seedPackages(root string) error {
	script := seedScript(m.RootPkgs)
	argv := sandbox.ShellArgv(script)

	cfg := sandbox.Config{
		RootfsPath: root,
		ReadOnly:   false,
		UID:        0,
		GID:        0,
		Cwd:        "/",
	}

	if err := sandbox.Run(cfg, argv); err != nil {
		return errs.Wrapf(ErrRootFS, "seed root packages: %w", err)
	}
	return nil
}

func samePkgSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		if !seen[p] {
			return false
		}
	}
	return true
}
