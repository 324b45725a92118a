package pipeline

import (
	"os"
	"path/filepath"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/recipe"
	"github.com/chariotdev/chariot/internal/sandbox"
)

// runBuildStages runs a package/tool/custom recipe's configure, build, and
// install stages in that order, skipping any stage that is absent.
func (p *Pipeline) runBuildStages(r *recipe.Recipe, recipePath, logsDir string) error {
	buildDir := filepath.Join(recipePath, "build")
	installDir := filepath.Join(recipePath, "install")

	if r.AlwaysClean || p.opts.CleanSet[r.ID] {
		if err := wipeAndRecreate(buildDir); err != nil {
			return err
		}
	} else if err := ensureDir(buildDir); err != nil {
		return err
	}
	if err := wipeAndRecreate(installDir); err != nil {
		return err
	}

	stages := []struct {
		name string
		cb   *recipe.CodeBlock
	}{
		{"configure", r.Stages.Configure},
		{"build", r.Stages.Build},
		{"install", r.Stages.Install},
	}

	for _, stage := range stages {
		if stage.cb == nil {
			continue
		}
		cfg, err := p.buildSandboxConfig(r, recipePath, &sandbox.OutputConfig{LogPath: filepath.Join(logsDir, stage.name+".log")})
		if err != nil {
			return err
		}
		argv, err := sandbox.ScriptArgv(stage.cb.Lang, stage.cb.Code)
		if err != nil {
			return err
		}
		if err := sandbox.Run(cfg, argv); err != nil {
			return errs.Wrapf(ErrStage, "%s %s/%s: %w", stage.name, r.Namespace, r.Name, err)
		}
	}

	return nil
}

func ensureDir(dir string) error {
	return errs.Wrap(ErrFileSystem, os.MkdirAll(dir, 0755))
}
