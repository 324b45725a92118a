package cli

import (
	"fmt"
	"strings"

	"github.com/chariotdev/chariot/internal/cachelayout"
	"github.com/chariotdev/chariot/internal/dsl/semantics"
	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/paths"
	"github.com/chariotdev/chariot/internal/pipeline"
	"github.com/chariotdev/chariot/internal/recipe"
	"github.com/chariotdev/chariot/internal/rootfs"
)

var ErrCLI = fmt.Errorf("chariot")

// BuildCmd is the 'chariot build' command.
type BuildCmd struct {
	Recipes []string `arg:"" help:"Recipes to build, as namespace/name." placeholder:"NAMESPACE/NAME"`

	Prefix           string   `default:"/usr/local" help:"Install prefix for package/custom recipes."`
	Parallelism      int      `default:"1" help:"Value exposed to stage scripts as PARALLELISM."`
	Clean            bool     `help:"Force a clean build of the selected recipes' build/ directories."`
	Options          []string `short:"o" help:"Option binding name=value; may be repeated." placeholder:"NAME=VALUE"`
	ExtraPackages    []string `help:"Extra distro packages unioned into every recipe's rootfs subset."`
	IgnoreChanges    bool     `help:"Skip the structural-hash comparison when checking staleness."`
	NetworkIsolation bool     `help:"Do not bind the host's resolv.conf into the sandbox."`
	SkipLock         bool     `help:"Bypass the cache root's process lock (unsafe)."`
	RootfsVersion    string   `default:"2024-01-01" help:"Base rootfs image release tag."`
}

// Run resolves the selected recipes against the loaded config, invalidates
// each one, and executes the pipeline over the resulting worklist.
func (c *BuildCmd) Run() error {
	cfg, err := semantics.Load(RootCmd.Config)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	cache, err := cachelayout.Open(resolveCacheRoot(), c.SkipLock)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}
	defer cache.Close()

	optionValues, err := parseOptionBindings(c.Options)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	rm := rootfs.New(cache.Layout, c.RootfsVersion, cfg.GlobalPkgs)

	ids, err := resolveSelectors(cfg, c.Recipes)
	if err != nil {
		return errs.Wrap(ErrCLI, err)
	}

	cleanSet := make(map[int]bool, len(ids))
	if c.Clean {
		for _, id := range ids {
			cleanSet[id] = true
		}
	}

	pl := pipeline.New(pipeline.Options{
		Config:           cfg,
		Cache:            cache,
		RootFS:           rm,
		UserPrefix:       c.Prefix,
		Parallelism:      c.Parallelism,
		OptionValues:     optionValues,
		CleanSet:         cleanSet,
		IgnoreChanges:    c.IgnoreChanges,
		NetworkIsolation: c.NetworkIsolation,
		ExtraPackages:    c.ExtraPackages,
	})

	for _, id := range ids {
		if err := pl.Invalidate(id); err != nil {
			return errs.Wrap(ErrCLI, err)
		}
	}

	return pl.Execute()
}

// resolveCacheRoot returns the root command's cache override, or the
// package default if unset.
func resolveCacheRoot() string {
	if RootCmd.Cache != "" {
		return RootCmd.Cache
	}
	return paths.CacheRoot()
}

// resolveSelectors resolves each "namespace/name" selector to a recipe id.
func resolveSelectors(cfg *recipe.Config, selectors []string) ([]int, error) {
	ids := make([]int, 0, len(selectors))
	for _, sel := range selectors {
		ns, name, ok := strings.Cut(sel, "/")
		if !ok {
			return nil, fmt.Errorf("%w: invalid recipe selector %q, want namespace/name", ErrCLI, sel)
		}
		id, ok := cfg.Lookup(recipe.Namespace(ns), name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown recipe %q", ErrCLI, sel)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseOptionBindings parses a list of "name=value" strings into a map.
func parseOptionBindings(bindings []string) (map[string]string, error) {
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		name, value, ok := strings.Cut(b, "=")
		if !ok {
			return nil, fmt.Errorf("%w: invalid option binding %q, want name=value", ErrCLI, b)
		}
		out[name] = value
	}
	return out, nil
}
