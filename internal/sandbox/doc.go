package sandbox

// Design note on the three-stage fork cascade.
// Go's runtime is multi-threaded, and raw unshare(2)/fork(2) only ever affect the calling
// thread and its *future* children — calling unshare(CLONE_NEWUSER|...) from
// one goroutine does not move the rest of the Go runtime's OS threads into
// the new namespace, and a bare fork() of a multi-threaded process inherits
// a single copy of one thread's stack while every other thread silently
// vanishes, corrupting the runtime. The only safe boundary for "this process
// is now the sole thread in a fresh namespace" is a freshly exec'd process
// image.
// So each of the cascade's three stages is realized as a
// genuine, freshly exec'd OS process rather than an in-process fork:
//   - Stage 1 (host) is Run's caller: an ordinary goroutine in the chariot
//     process. It re-execs this same binary with Cloneflags
//     (CLONE_NEWUSER|CLONE_NEWPID) set on the child's SysProcAttr — the
//     kernel creates the new namespaces and the child's very first
//     instruction already runs inside them, so there is no window where a
//     multi-threaded Go runtime exists inside a half-constructed namespace.
//   - Stage 2 is that re-exec'd process (entered via Entrypoint). The
//     kernel places a CLONE_NEWPID child directly into the new PID
//     namespace, so Stage 2 is that namespace's init process. It denies
//     setgroups, writes uid_map/gid_map, setuid/setgid's into the target
//     ids, then re-execs itself *again* with CLONE_NEWNS set — this second
//     re-exec is the "fork again": a descendant inside the new PID
//     namespace that enters the fresh mount namespace.
//   - Stage 3 is that second re-exec'd process: it builds the rootfs view
//     (bind mounts, /dev population, chroot), then starts the final leaf
//     command as an ordinary os/exec child with its own stdio pipe — this
//     is the third fork, and the one whose child execvp's the user's
//     argv[] without ever having touched the namespace-construction code.
// The three processes cooperate through a single JSON-encoded Config passed
// via an inherited pipe fd (protocol.go), not command-line flags, so that
// code blocks and environment maps of arbitrary size and content survive
// the exec boundary intact.
