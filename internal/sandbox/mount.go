package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// devFiles are the character/block device nodes Stage 3 creates as empty
// regular files inside the rootfs before bind-mounting the host's real
// device over each one.
var devFiles = []string{"tty", "random", "urandom", "null", "zero", "full"}

// devDirs are the directories Stage 3 creates under <rootfs>/dev ahead of
// mounting devpts/tmpfs onto them.
var devDirs = []string{"pts", "shm"}

// buildRootfsView assembles the sandbox's view of the filesystem: bind the
// rootfs onto itself, populate /dev, remount read-only if requested, mount
// the pseudo-filesystems, apply the caller's configured mounts, then chroot
// and chdir.
func buildRootfsView(cfg Config) error {
	root := cfg.RootfsPath

	// Step 1: bind-mount the rootfs onto itself so later remounts (which
	// require a mount point, not a plain directory) have one to act on.
	if err := unix.Mount(root, root, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind rootfs onto itself: %w", err)
	}

	// Step 2: populate /dev with empty placeholders for the host devices
	// bind-mounted in step 5, and the directories devpts/tmpfs mount onto
	// in step 6.
	devRoot := filepath.Join(root, "dev")
	if err := os.MkdirAll(devRoot, 0755); err != nil {
		return fmt.Errorf("create rootfs /dev: %w", err)
	}
	for _, name := range devFiles {
		if err := touch(filepath.Join(devRoot, name)); err != nil {
			return fmt.Errorf("create /dev/%s placeholder: %w", name, err)
		}
	}
	for _, name := range devDirs {
		if err := os.MkdirAll(filepath.Join(devRoot, name), 0755); err != nil {
			return fmt.Errorf("create /dev/%s: %w", name, err)
		}
	}

	// Step 3: normalize each configured mount destination so the kind
	// (file vs directory) the caller expects actually exists.
	for _, m := range cfg.Mounts {
		if err := normalizeMountPoint(filepath.Join(root, m.To), m.IsFile); err != nil {
			return fmt.Errorf("normalize mount point %q: %w", m.To, err)
		}
	}

	// Step 4: remount with MS_NODEV|MS_NOSUID (+MS_RDONLY if requested).
	// MS_RDONLY cannot be applied atomically together with the initial
	// MS_BIND, hence the separate remount here.
	remountFlags := uintptr(unix.MS_BIND | unix.MS_REMOUNT | unix.MS_NODEV | unix.MS_NOSUID)
	if cfg.ReadOnly {
		remountFlags |= unix.MS_RDONLY
	}
	if err := unix.Mount("", root, "", remountFlags, ""); err != nil {
		return fmt.Errorf("remount rootfs: %w", err)
	}

	// Step 5: bind-mount host devices, and resolv.conf unless network
	// isolation was requested.
	for _, name := range devFiles {
		hostDev := filepath.Join("/dev", name)
		if _, err := os.Stat(hostDev); err != nil {
			continue
		}
		if err := unix.Mount(hostDev, filepath.Join(devRoot, name), "", unix.MS_BIND, ""); err != nil {
			return fmt.Errorf("bind /dev/%s: %w", name, err)
		}
	}
	if !cfg.NetworkIsolation {
		resolvConf, err := filepath.EvalSymlinks("/etc/resolv.conf")
		if err == nil {
			dst := filepath.Join(root, "etc", "resolv.conf")
			if err := touch(dst); err == nil {
				unix.Mount(resolvConf, dst, "", unix.MS_BIND, "")
			}
		}
	}

	// Step 6: pseudo-filesystems.
	if err := unix.Mount("devpts", filepath.Join(devRoot, "pts"), "devpts", 0, ""); err != nil {
		return fmt.Errorf("mount devpts: %w", err)
	}
	if err := unix.Mount("tmpfs", filepath.Join(devRoot, "shm"), "tmpfs", 0, ""); err != nil {
		return fmt.Errorf("mount tmpfs on /dev/shm: %w", err)
	}
	for _, dir := range []string{"run", "tmp"} {
		dst := filepath.Join(root, dir)
		if err := os.MkdirAll(dst, 0755); err != nil {
			return fmt.Errorf("create /%s: %w", dir, err)
		}
		if err := unix.Mount("tmpfs", dst, "tmpfs", 0, ""); err != nil {
			return fmt.Errorf("mount tmpfs on /%s: %w", dir, err)
		}
	}
	procDst := filepath.Join(root, "proc")
	if err := os.MkdirAll(procDst, 0755); err != nil {
		return fmt.Errorf("create /proc: %w", err)
	}
	if err := unix.Mount("proc", procDst, "proc", 0, ""); err != nil {
		return fmt.Errorf("mount /proc: %w", err)
	}

	// Step 7: configured mounts.
	for _, m := range cfg.Mounts {
		dst := filepath.Join(root, m.To)
		flags := uintptr(unix.MS_BIND)
		if !m.IsFile {
			flags |= unix.MS_REC
		}
		if err := unix.Mount(m.From, dst, "", flags, ""); err != nil {
			return fmt.Errorf("bind mount %s -> %s: %w", m.From, m.To, err)
		}
		if m.ReadOnly {
			if err := unix.Mount("", dst, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
				return fmt.Errorf("remount %s read-only: %w", m.To, err)
			}
		}
	}

	// Step 8: chroot and chdir.
	if err := unix.Chroot(root); err != nil {
		return fmt.Errorf("chroot %q: %w", root, err)
	}
	if err := unix.Chdir(cfg.Cwd); err != nil {
		return fmt.Errorf("chdir %q: %w", cfg.Cwd, err)
	}

	return nil
}

// normalizeMountPoint ensures path exists as a file or directory per
// isFile, removing and recreating it if it already exists as the wrong
// kind.
func normalizeMountPoint(path string, isFile bool) error {
	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		// fall through to creation below
	case err != nil:
		return err
	case info.IsDir() == isFile:
		// existing kind is wrong (dir-but-want-file, or file-but-want-dir)
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	default:
		return nil
	}

	if isFile {
		return touch(path)
	}
	return os.MkdirAll(path, 0755)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}
