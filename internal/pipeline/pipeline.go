// Package pipeline walks a resolved recipe graph and drives each recipe's
// build through the sandbox runtime, consulting and updating on-disk state
// so unchanged recipes are skipped.
package pipeline

import (
	"log/slog"
	"sort"

	"github.com/chariotdev/chariot/internal/cachelayout"
	"github.com/chariotdev/chariot/internal/paths"
	"github.com/chariotdev/chariot/internal/recipe"
	"github.com/chariotdev/chariot/internal/rootfs"
)

// Options controls one pipeline run over a resolved config.
type Options struct {
	Config *recipe.Config
	Cache  *cachelayout.Cache
	RootFS *rootfs.Manager

	// UserPrefix is installed as PREFIX for package/custom recipes; tool
	// recipes always use /usr/local regardless.
	UserPrefix string
	// Parallelism is exposed to stage scripts as PARALLELISM.
	Parallelism int
	// OptionValues binds each declared option name to its chosen value
	// (the CLI's "-o K=V"); every option a recipe consumes must have an
	// entry here.
	OptionValues map[string]string
	// CleanSet names recipes chosen for a clean build by the caller
	CleanSet map[int]bool
	// IgnoreChanges disables the hash comparison in Fresh, an operator
	// escape hatch.
	IgnoreChanges bool
	// NetworkIsolation skips bind-mounting the host's resolv.conf into the
	// sandbox; no separate network namespace is created.
	NetworkIsolation bool
	// ExtraPackages are caller-provided additional distro packages unioned
	// into every recipe's rootfs subset selection.
	ExtraPackages []string
}

// Pipeline executes recipes and tracks invalidation/attempt state across one
// run.
type Pipeline struct {
	opts        Options
	invalidated []int
	attempted   map[int]bool
	failed      map[int]bool
	results     map[int]int64
}

// New returns a ready-to-use Pipeline for opts.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts:      opts,
		attempted: make(map[int]bool),
		failed:    make(map[int]bool),
		results:   make(map[int]int64),
	}
}

// Invalidate appends id to the invalidated list and, if its on-disk state
// exists, rewrites it with invalidated=true, preserving every other field
func (p *Pipeline) Invalidate(id int) error {
	p.invalidated = append(p.invalidated, id)

	st, ok, err := p.readState(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	st.Invalidated = true
	return p.writeState(id, st)
}

// Execute dedups the invalidated list and calls process on each id not yet
// attempted this run.
func (p *Pipeline) Execute() error {
	seen := make(map[int]bool, len(p.invalidated))
	var ids []int
	for _, id := range p.invalidated {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if p.attempted[id] {
			continue
		}
		if _, err := p.process(id, map[int]bool{}, false); err != nil {
			return err
		}
	}
	return nil
}

// recipePath returns the on-disk directory for r under the option bindings
// this pipeline was configured with.
func (p *Pipeline) recipePath(r *recipe.Recipe) string {
	return p.opts.Cache.Layout.RecipePath(string(r.Namespace), r.Name, p.optionBindings(r))
}

// optionBindings resolves r.UsedOptions against p.opts.OptionValues, sorted
// by name so RecipePath produces a deterministic path (paths.Layout.
// RecipePath contract).
func (p *Pipeline) optionBindings(r *recipe.Recipe) []paths.OptionBinding {
	if len(r.UsedOptions) == 0 {
		return nil
	}
	names := append([]string(nil), r.UsedOptions...)
	sort.Strings(names)

	bindings := make([]paths.OptionBinding, 0, len(names))
	for _, name := range names {
		bindings = append(bindings, paths.OptionBinding{Name: name, Value: p.opts.OptionValues[name]})
	}
	return bindings
}

func (p *Pipeline) logRecipe(r *recipe.Recipe) *slog.Logger {
	return slog.With("namespace", string(r.Namespace), "name", r.Name, "id", r.ID)
}
