package cli

import (
	"github.com/chariotdev/chariot/internal/cachelayout"
	"github.com/chariotdev/chariot/internal/dsl/semantics"
	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/pipeline"
	"github.com/chariotdev/chariot/internal/rootfs"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// ExecCmd is the 'chariot exec' command. It assembles the same recipe context a build stage would
// run under, then execs an interactive or one-off command in it without
// touching on-disk recipe state.
type ExecCmd struct {
	Recipe  string   `arg:"" help:"Recipe whose context to run against, as namespace/name." placeholder:"NAMESPACE/NAME"`
	Command []string `arg:"" optional:"" help:"Command to run; defaults to an interactive shell."`

	Options          []string `short:"o" help:"Option binding name=value; may be repeated." placeholder:"NAME=VALUE"`
	ExtraPackages    []string `help:"Extra distro packages unioned into the recipe's rootfs subset."`
	NetworkIsolation bool     `help:"Do not bind the host's resolv.conf into the sandbox."`
	RootfsVersion    string   `default:"2024-01-01" help:"Base rootfs image release tag."`
}

// Run assembles the selected recipe's sandbox context and execs Command (or
// an interactive shell) inside it, with stdio inherited directly.
func (c *ExecCmd) Run() error {
	cfg, err := semantics.Load(RootCmd.Config)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	cache, err := cachelayout.Open(resolveCacheRoot(), false)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}
	defer cache.Close()

	optionValues, err := parseOptionBindings(c.Options)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	rm := rootfs.New(cache.Layout, c.RootfsVersion, cfg.GlobalPkgs)

	ids, err := resolveSelectors(cfg, []string{c.Recipe})
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	pl := pipeline.New(pipeline.Options{
		Config:           cfg,
		Cache:            cache,
		RootFS:           rm,
		OptionValues:     optionValues,
		NetworkIsolation: c.NetworkIsolation,
		ExtraPackages:    c.ExtraPackages,
	})

	sbCfg, err := pl.Context(ids[0], nil)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	argv := c.Command
	if len(argv) == 0 {
		argv = []string{"bash"}
	}

	if err := sandbox.Run(sbCfg, argv); err != nil {
		return errs.Wrap(ErrCLI, err)
	}
	return nil
}
