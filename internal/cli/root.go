package cli

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/chariotdev/chariot/internal/buildinfo"
	"github.com/chariotdev/chariot/internal/logx"
)

// RootCmd is chariot's top-level command: global flags shared by every
// subcommand, plus the build/exec/version subcommands themselves.
var RootCmd struct {
	Quiet   bool   `short:"q" help:"Suppress informational output."`
	Verbose bool   `short:"v" help:"Enable verbose output."`
	Debug   bool   `short:"d" help:"Enable debug output."`
	Config  string `short:"c" default:"chariot.conf" help:"Path to the root config file." placeholder:"PATH"`
	Cache   string `help:"Override the default cache root." placeholder:"PATH"`

	Build   BuildCmd   `cmd:"" help:"Build one or more recipes."`
	Exec    ExecCmd    `cmd:"" help:"Run an ad-hoc command inside a recipe's sandbox environment."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Execute parses arguments, configures logging, and runs the selected
// subcommand.
func Execute() error {
	kongCtx := kong.Parse(&RootCmd,
		kong.Name(buildinfo.Name),
		kong.Description("Builds reproducible distributions from a recipe graph, sandboxed by a userland Linux container runtime."),
		kong.UsageOnError(),
		kong.Vars{
			"version": buildinfo.VersionString(),
		},
	)

	configureLogger()

	return kongCtx.Run()
}

// configureLogger applies the root command's verbosity flags to the global
// logger: a sensible default is installed before flag parsing, then
// reconfigured in place once flags are known.
func configureLogger() {
	handler, ok := slog.Default().Handler().(*logx.Handler)
	if !ok {
		return
	}

	debug := RootCmd.Debug || buildinfo.IsDebug()
	quiet := RootCmd.Quiet || buildinfo.IsQuiet()
	verbose := RootCmd.Verbose || buildinfo.IsVerbose()

	formatter := logx.NewPrettyFormatter(isatty(os.Stderr))
	formatter.SetVerbose(verbose)

	switch {
	case debug:
		handler.SetLevel(slog.LevelDebug)
	case quiet:
		handler.SetLevel(slog.LevelWarn)
	default:
		handler.SetLevel(slog.LevelInfo)
	}

	handler.SetFormatter(formatter)
	handler.SetStream(os.Stderr)
	handler.Flush()
}

// isatty reports whether f is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
