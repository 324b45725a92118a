package sandbox

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// pollTimeoutMillis is the tick used while draining the leaf process's
// combined stdout/stderr pipe.
const pollTimeoutMillis = 300

// rootPath and userPath are the minimal PATH values set for the leaf
// process, distinguished by target uid.
const (
	rootPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	userPath = "/usr/local/bin:/usr/bin:/bin"
)

// runLeaf starts argv as the cascade's third fork: a plain
// os/exec child with cleared environment, minimal PATH, and cfg.Environment
// overlaid. If cfg.Output is set, the child's combined stdout/stderr is
// piped back and drained on a 300ms poll tick; otherwise stdio is inherited
// directly for interactive use.
func runLeaf(cfg Config, argv []string) (int, error) {
	environ := buildEnviron(cfg)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = environ

	if cfg.Output == nil {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return exitCodeOf(err)
		}
		return 0, nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return 0, fmt.Errorf("start leaf process: %w", err)
	}
	w.Close() // our copy; the child holds the only other reference

	var logFile *os.File
	if cfg.Output.LogPath != "" {
		logFile, err = os.OpenFile(cfg.Output.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// Missing log-file creation is a warn-and-continue case, not
			// fatal.
			fmt.Fprintf(os.Stderr, "warning: could not open log file %q: %v\n", cfg.Output.LogPath, err)
		} else {
			defer logFile.Close()
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	quiet := cfg.Output.Quiet
	var buffered []byte
	var lineRemainder []byte

	drain := func() bool {
		fds := []unix.PollFd{{Fd: int32(r.Fd()), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil || n == 0 {
			return false
		}
		buf := make([]byte, 64*1024)
		read, err := r.Read(buf)
		if read == 0 {
			return false
		}
		chunk := buf[:read]
		if logFile != nil {
			logFile.Write(chunk)
		}
		if quiet {
			buffered = append(buffered, chunk...)
		} else {
			lineRemainder = streamPrefixed(lineRemainder, chunk)
		}
		return true
	}

	for {
		select {
		case werr := <-done:
			for drain() {
			}
			r.Close()
			code, cerr := exitCodeOf(werr)
			if code != 0 && quiet {
				os.Stdout.Write(buffered)
			}
			return code, cerr
		default:
			drain()
		}
	}
}

// streamPrefixed writes chunk to stdout, prefixing every complete line with
// "\x1b[0m| ". remainder carries a partial trailing line
// across calls and is returned for the next call.
func streamPrefixed(remainder, chunk []byte) []byte {
	data := append(remainder, chunk...)
	for {
		idx := indexByte(data, '\n')
		if idx < 0 {
			return data
		}
		fmt.Fprintf(os.Stdout, "\x1b[0m| %s\n", data[:idx])
		data = data[idx+1:]
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func exitCodeOf(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

// buildEnviron clears the ambient environment and builds the leaf's from
// scratch: minimal PATH (root vs non-root), LD_LIBRARY_PATH, HOME=cwd,
// LANG=C, LC_COLLATE=C, TERM=xterm-256color, then cfg.Environment overlaid
func buildEnviron(cfg Config) []string {
	path := userPath
	if cfg.UID == 0 {
		path = rootPath
	}

	base := map[string]string{
		"PATH":            path,
		"LD_LIBRARY_PATH": "/usr/local/lib:/usr/lib",
		"HOME":            cfg.Cwd,
		"LANG":            "C",
		"LC_COLLATE":      "C",
		"TERM":            "xterm-256color",
	}
	for k, v := range cfg.Environment {
		base[k] = v
	}

	env := make([]string, 0, len(base))
	for k, v := range base {
		env = append(env, k+"="+v)
	}
	return env
}
