package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Entrypoint is called at the very start of cmd/chariot's main, before any
// flag parsing, so that a re-exec'd stage2/stage3 process never reaches the
// normal CLI path. It reports whether this process is a sandbox stage (in
// which case the caller should os.Exit with the returned code) or an
// ordinary top-level invocation (in which case the caller proceeds as
// normal).
func Entrypoint() (isStage bool, exitCode int) {
	switch os.Getenv(reexecStageEnv) {
	case "stage2":
		return true, runStage2()
	case "stage3":
		return true, runStage3()
	default:
		return false, 0
	}
}

// Run executes argv inside a sandbox built from cfg. It is
// Stage 1: fork (via re-exec) into Stage 2, wait, and translate the child's
// exit status into a result. Non-zero status is reported as
// *NonZeroExitError, not a general error, so callers can distinguish a
// user-script failure from a sandbox construction failure.
func Run(cfg Config, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty argv", ErrSandbox)
	}

	reqFile, err := writeRequest(request{Config: cfg, Argv: argv})
	if err != nil {
		return err
	}
	defer reqFile.Close()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: resolve self executable: %w", ErrSandbox, err)
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(), reexecStageEnv+"=stage2", fmt.Sprintf("%s=3", reexecFDEnv))
	cmd.ExtraFiles = []*os.File{reqFile}
	// Stage 2 and Stage 3 pass the host's stdio straight through, so the
	// leaf's relayed output (output.go) reaches host stdout and a Run
	// without an OutputConfig is interactive.
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER | syscall.CLONE_NEWPID,
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			code := exitErr.ExitCode()
			if code != 0 {
				return &NonZeroExitError{Code: code}
			}
			return nil
		}
		return fmt.Errorf("%w: %w", ErrSandbox, err)
	}
	return nil
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

// runStage2 enters the new user+PID namespace created by Run's Cloneflags,
// drops to the configured uid/gid, and re-execs itself a second time with
// CLONE_NEWNS so that the mount namespace is entered by a fresh descendant
// of the PID-namespace-owning process.
func runStage2() int {
	req, err := readRequest()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := os.WriteFile("/proc/self/setgroups", []byte("deny"), 0); err != nil {
		fmt.Fprintf(os.Stderr, "%s: deny setgroups: %v\n", ErrSandbox, err)
		return 1
	}
	if err := os.WriteFile("/proc/self/uid_map", []byte(fmt.Sprintf("%d %d 1", req.Config.UID, os.Geteuid())), 0); err != nil {
		fmt.Fprintf(os.Stderr, "%s: write uid_map: %v\n", ErrSandbox, err)
		return 1
	}
	if err := os.WriteFile("/proc/self/gid_map", []byte(fmt.Sprintf("%d %d 1", req.Config.GID, os.Getegid())), 0); err != nil {
		fmt.Fprintf(os.Stderr, "%s: write gid_map: %v\n", ErrSandbox, err)
		return 1
	}
	if err := syscall.Setgid(req.Config.GID); err != nil {
		fmt.Fprintf(os.Stderr, "%s: setgid: %v\n", ErrSandbox, err)
		return 1
	}
	if err := syscall.Setuid(req.Config.UID); err != nil {
		fmt.Fprintf(os.Stderr, "%s: setuid: %v\n", ErrSandbox, err)
		return 1
	}

	reqFile, err := writeRequest(*req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer reqFile.Close()

	self, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: resolve self executable: %v\n", ErrSandbox, err)
		return 1
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(), reexecStageEnv+"=stage3", fmt.Sprintf("%s=3", reexecFDEnv))
	cmd.ExtraFiles = []*os.File{reqFile}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS,
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if asExitError(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSandbox, err)
		return 1
	}
	return 0
}

// runStage3 enters the new mount namespace, builds the sandbox rootfs view,
// chroots into it, and execs the final leaf process as the third fork of
// the cascade.
func runStage3() int {
	req, err := readRequest()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := buildRootfsView(req.Config); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSandbox, err)
		return 1
	}

	code, err := runLeaf(req.Config, req.Argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSandbox, err)
		return 1
	}
	return code
}
