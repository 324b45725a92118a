package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	copyfs "github.com/otiai10/copy"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/recipe"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// runSource fetches, patches, and optionally regenerates a source recipe's
// tree.
func (p *Pipeline) runSource(r *recipe.Recipe, recipePath, logsDir string) error {
	src := r.Source

	srcDir := filepath.Join(recipePath, "src")
	auxDir := filepath.Join(recipePath, "aux")
	if err := wipeAndRecreate(srcDir); err != nil {
		return err
	}
	if err := wipeAndRecreate(auxDir); err != nil {
		return err
	}

	cfg, err := p.buildSandboxConfig(r, recipePath, &sandbox.OutputConfig{LogPath: filepath.Join(logsDir, "fetch.log")})
	if err != nil {
		return err
	}

	var argv []string
	switch src.Kind {
	case recipe.Local:
		if err := copyfs.Copy(src.URL, srcDir); err != nil {
			return errs.Wrapf(ErrFileSystem, "copy local source %q: %w", src.URL, err)
		}
	case recipe.Git:
		argv = sandbox.ShellArgv(fmt.Sprintf(
			"set -e\ngit clone --depth=1 %s /chariot/source\n"+
				"cd /chariot/source\ngit fetch --depth=1 origin %s\ngit checkout FETCH_HEAD\n",
			shellQuote(src.URL), shellQuote(src.Revision)))
	case recipe.TarGz, recipe.TarXz:
		argv, err = p.tarFetchScript(src, auxDir)
		if err != nil {
			return err
		}
		cfg.Mounts = append(cfg.Mounts, sandbox.Mount{From: auxDir, To: "/chariot/aux"})
	}

	if argv != nil {
		if err := sandbox.Run(cfg, argv); err != nil {
			return errs.Wrapf(ErrStage, "fetch %s/%s: %w", r.Namespace, r.Name, err)
		}
	}

	if src.Patch != "" {
		if err := p.applyPatch(r, recipePath, logsDir, src.Patch); err != nil {
			return err
		}
	}

	if src.Regenerate != nil {
		regenCfg, err := p.buildSandboxConfig(r, recipePath, &sandbox.OutputConfig{LogPath: filepath.Join(logsDir, "regenerate.log")})
		if err != nil {
			return err
		}
		argv, err := sandbox.ScriptArgv(src.Regenerate.Lang, src.Regenerate.Code)
		if err != nil {
			return err
		}
		if err := sandbox.Run(regenCfg, argv); err != nil {
			return errs.Wrapf(ErrStage, "regenerate %s/%s: %w", r.Namespace, r.Name, err)
		}
	}

	return nil
}

// tarFetchScript writes aux/b2sums.txt and returns the argv of a script that
// downloads the tar source with wget into /chariot/aux, verifies its b2sum,
// and extracts it into /chariot/source.
func (p *Pipeline) tarFetchScript(src *recipe.SourceSpec, auxDir string) ([]string, error) {
	archiveName := "archive.tar"
	flag := "--gzip"
	if src.Kind == recipe.TarXz {
		flag = "--zstd"
	}

	sumsFile := filepath.Join(auxDir, "b2sums.txt")
	if err := os.WriteFile(sumsFile, []byte(fmt.Sprintf("%s  %s\n", src.B2Sum, archiveName)), 0644); err != nil {
		return nil, errs.Wrap(ErrFileSystem, err)
	}

	script := fmt.Sprintf(
		"set -e\ncd /chariot/aux\n"+
			"wget -O %s %s\n"+
			"b2sum --check b2sums.txt\n"+
			"tar --no-same-owner --no-same-permissions --strip-components 1 -x %s -C /chariot/source -f %s\n",
		archiveName, shellQuote(src.URL), flag, archiveName)
	return sandbox.ShellArgv(script), nil
}

// applyPatch re-mounts src.Patch read-only at /chariot/patch and applies it
// with patch -p1.
func (p *Pipeline) applyPatch(r *recipe.Recipe, recipePath, logsDir, patchFile string) error {
	cfg, err := p.buildSandboxConfig(r, recipePath, &sandbox.OutputConfig{LogPath: filepath.Join(logsDir, "patch.log")})
	if err != nil {
		return err
	}
	cfg.Mounts = append(cfg.Mounts, sandbox.Mount{From: patchFile, To: "/chariot/patch", ReadOnly: true, IsFile: true})

	argv := sandbox.ShellArgv("set -e\npatch -p1 -i /chariot/patch\n")
	if err := sandbox.Run(cfg, argv); err != nil {
		return errs.Wrapf(ErrStage, "patch %s/%s: %w", r.Namespace, r.Name, err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + replaceAllSingleQuotes(s) + "'"
}

func replaceAllSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\\', '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func wipeAndRecreate(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(ErrFileSystem, err)
	}
	return errs.Wrap(ErrFileSystem, os.MkdirAll(dir, 0755))
}
