// Package sandbox implements chariot's userland container runtime: a
// three-stage fork cascade that enters a fresh user/PID/mount namespace,
// assembles a bind-mounted rootfs view, chroots into it, and executes a
// command with output streamed to a log file and the host terminal.
// Run executes one command per call, streaming its combined output and
// reaping the leaf process non-blockingly. The
// cascade is built on direct golang.org/x/sys/unix syscalls, re-exec'ing
// this same binary as the namespace-entering child at each stage: the Go
// runtime is multi-threaded, so unshare/setns must happen in a freshly
// exec'd process, not merely a forked one — see doc.go.
package sandbox

import (
	"fmt"
)

// Mount describes one bind mount applied inside the sandbox's mount
// namespace, beyond the base rootfs view.
type Mount struct {
	From     string
	To       string
	ReadOnly bool
	IsFile   bool
}

// OutputConfig controls how a Run's combined stdout/stderr is handled
type OutputConfig struct {
	// Quiet buffers output in memory instead of streaming it to the host
	// terminal; the buffer is flushed to stdout only if the command exits
	// non-zero.
	Quiet bool
	// LogPath, if set, receives a raw copy of all output regardless of
	// Quiet.
	LogPath string
}

// Config is the full description of one sandboxed invocation.
type Config struct {
	RootfsPath        string
	ReadOnly          bool
	NetworkIsolation  bool
	UID               int
	GID               int
	Cwd               string
	Mounts            []Mount
	Environment       map[string]string
	Output            *OutputConfig
}

var ErrNonZeroExit = fmt.Errorf("sandboxed command exited non-zero")

// NonZeroExitError reports the exit code of a command that ran to
// completion but returned non-zero.
type NonZeroExitError struct {
	Code int
}

func (e *NonZeroExitError) Error() string {
	return fmt.Sprintf("%s: exit code %d", ErrNonZeroExit, e.Code)
}

func (e *NonZeroExitError) Unwrap() error { return ErrNonZeroExit }
