package pipeline

import (
	"path/filepath"
	"sort"
	"strconv"

	copyfs "github.com/otiai10/copy"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/recipe"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// Context assembles the runtime configuration that would back r's stage
// scripts, without invoking process or writing any recipe's state — used
// for ad-hoc exec sessions against an already-built recipe's environment.
// Like every context assembly it wipes this process's depcache and may
// build missing rootfs subset layers.
func (p *Pipeline) Context(id int, output *sandbox.OutputConfig) (sandbox.Config, error) {
	r := p.opts.Config.Recipe(id)
	return p.buildSandboxConfig(r, p.recipePath(r), output)
}

// buildSandboxConfig assembles the runtime configuration for one recipe's
// stage scripts: a rootfs subset selected by image packages, every
// dependency installed (bind-mounted or copied per namespace), and a merged
// environment.
func (p *Pipeline) buildSandboxConfig(r *recipe.Recipe, recipePath string, output *sandbox.OutputConfig) (sandbox.Config, error) {
	if err := p.opts.Cache.WipeDepcache(); err != nil {
		return sandbox.Config{}, err
	}

	pkgs := p.imagePackages(r)
	pkgs = dedupSortedUnion(pkgs, p.opts.ExtraPackages)

	rootfsPath, err := p.opts.RootFS.Subset(pkgs)
	if err != nil {
		return sandbox.Config{}, err
	}

	mounts, err := p.installDepMounts(r)
	if err != nil {
		return sandbox.Config{}, err
	}

	env := make(map[string]string, len(p.opts.Config.GlobalEnv)+8)
	for k, v := range p.opts.Config.GlobalEnv {
		env[k] = v
	}
	env["SOURCES_DIR"] = "/chariot/sources"
	env["CUSTOM_DIR"] = "/chariot/custom"
	env["SYSROOT_DIR"] = "/chariot/sysroot"

	var cwd string
	if r.Namespace == recipe.Source {
		cwd = "/chariot/source"
		mounts = append(mounts, sandbox.Mount{From: filepath.Join(recipePath, "src"), To: "/chariot/source"})
	} else {
		cwd = "/chariot/build"
		env["BUILD_DIR"] = "/chariot/build"
		env["INSTALL_DIR"] = "/chariot/install"
		env["PREFIX"] = r.InstallPrefix(p.opts.UserPrefix)
		env["PARALLELISM"] = strconv.Itoa(p.opts.Parallelism)
		mounts = append(mounts,
			sandbox.Mount{From: filepath.Join(recipePath, "build"), To: "/chariot/build"},
			sandbox.Mount{From: filepath.Join(recipePath, "install"), To: "/chariot/install"},
		)
	}

	for _, name := range r.UsedOptions {
		env["OPTION_"+name] = p.opts.OptionValues[name]
	}

	return sandbox.Config{
		RootfsPath:       rootfsPath,
		NetworkIsolation: p.opts.NetworkIsolation,
		UID:              0,
		GID:              0,
		Cwd:              cwd,
		Mounts:           mounts,
		Environment:      env,
		Output:           output,
	}, nil
}

// imagePackages returns r's own image-dependency packages unioned with the
// runtime image-deps of every direct dependency, extended transitively
// through runtime-only sub-edges.
func (p *Pipeline) imagePackages(r *recipe.Recipe) []string {
	pkgs := make(map[string]bool)
	for _, d := range r.ImageDependencies {
		pkgs[d.Name] = true
	}

	visited := map[int]bool{r.ID: true}
	var walk func(id int, onlyRuntime bool)
	walk = func(id int, onlyRuntime bool) {
		for _, dep := range p.opts.Config.DependencyMap[id] {
			if onlyRuntime && !dep.Runtime {
				continue
			}
			if visited[dep.To] {
				continue
			}
			visited[dep.To] = true

			target := p.opts.Config.Recipe(dep.To)
			for _, d := range target.ImageDependencies {
				if d.Runtime {
					pkgs[d.Name] = true
				}
			}
			walk(dep.To, true)
		}
	}
	walk(r.ID, false)

	out := make([]string, 0, len(pkgs))
	for name := range pkgs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// installDepMounts recursively installs every outgoing dependency of r,
// deduped and depth-first, into mounts or the shared depcache directories
// per namespace, then mounts the merged package/tool depcaches at their
// fixed sandbox paths.
func (p *Pipeline) installDepMounts(r *recipe.Recipe) ([]sandbox.Mount, error) {
	var mounts []sandbox.Mount
	visited := map[int]bool{r.ID: true}

	var walk func(id int) error
	walk = func(id int) error {
		for _, dep := range p.opts.Config.DependencyMap[id] {
			if visited[dep.To] {
				continue
			}
			visited[dep.To] = true

			target := p.opts.Config.Recipe(dep.To)
			targetPath := p.recipePath(target)

			switch target.Namespace {
			case recipe.Source:
				srcDir := filepath.Join(targetPath, "src")
				if dep.Mutable {
					dst := filepath.Join(p.opts.Cache.DepcacheDir("sources"), target.Name)
					if err := copyfs.Copy(srcDir, dst); err != nil {
						return errs.Wrapf(ErrFileSystem, "stage mutable source %q: %w", target.Name, err)
					}
					mounts = append(mounts, sandbox.Mount{From: dst, To: "/chariot/sources/" + target.Name})
				} else {
					mounts = append(mounts, sandbox.Mount{From: srcDir, To: "/chariot/sources/" + target.Name, ReadOnly: true})
				}
			case recipe.Package:
				src := filepath.Join(targetPath, "install")
				if err := copyfs.Copy(src, p.opts.Cache.DepcacheDir("packages")); err != nil {
					return errs.Wrapf(ErrFileSystem, "stage package %q: %w", target.Name, err)
				}
			case recipe.Tool:
				src := filepath.Join(targetPath, "install", "usr", "local")
				if err := copyfs.Copy(src, p.opts.Cache.DepcacheDir("tools")); err != nil {
					return errs.Wrapf(ErrFileSystem, "stage tool %q: %w", target.Name, err)
				}
			case recipe.Custom:
				src := filepath.Join(targetPath, "install")
				mounts = append(mounts, sandbox.Mount{From: src, To: "/chariot/custom/" + target.Name, ReadOnly: true})
			}

			if err := walk(dep.To); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(r.ID); err != nil {
		return nil, err
	}

	mounts = append(mounts,
		sandbox.Mount{From: p.opts.Cache.DepcacheDir("packages"), To: "/chariot/sysroot", ReadOnly: true},
		sandbox.Mount{From: p.opts.Cache.DepcacheDir("tools"), To: "/usr/local", ReadOnly: true},
	)
	return mounts, nil
}

func dedupSortedUnion(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
