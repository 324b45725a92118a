package main

import (
	"log/slog"
	"os"

	"github.com/chariotdev/chariot/internal/buildinfo"
	"github.com/chariotdev/chariot/internal/cli"
	"github.com/chariotdev/chariot/internal/logx"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// main either re-executes as a sandbox namespace stage or
// runs the normal chariot CLI.
// sandbox.Entrypoint must run before any flag parsing: the re-exec'd stage
// processes are this same binary, distinguished only by an environment
// variable, and carry none of the user's CLI arguments.
func main() {
	if isStage, code := sandbox.Entrypoint(); isStage {
		os.Exit(code)
	}

	slog.SetDefault(logger())
	slog.Debug("build", "version", buildinfo.VersionString())

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// logger creates a logger seeded from build-time linker flags. It
// is reconfigured after flag parsing via cli.Execute (see cli.configureLogger).
func logger() *slog.Logger {
	handler := logx.NewHandler()
	handler.SetLevel(logLevel())
	return slog.New(handler.WithGroup(buildinfo.Name))
}

func logLevel() slog.Level {
	if buildinfo.IsDebug() {
		return slog.LevelDebug
	}
	if buildinfo.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
