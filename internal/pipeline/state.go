package pipeline

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/recipe"
)

func statePath(recipePath string) string {
	return filepath.Join(recipePath, "state.toml")
}

func (p *Pipeline) readState(id int) (recipe.State, bool, error) {
	r := p.opts.Config.Recipe(id)
	path := statePath(p.recipePath(r))

	var st recipe.State
	if _, err := toml.DecodeFile(path, &st); err != nil {
		if os.IsNotExist(err) {
			return recipe.State{}, false, nil
		}
		return recipe.State{}, false, errs.Wrap(ErrFileSystem, err)
	}
	return st, true, nil
}

func (p *Pipeline) writeState(id int, st recipe.State) error {
	r := p.opts.Config.Recipe(id)
	path := statePath(p.recipePath(r))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errs.Wrap(ErrFileSystem, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(ErrFileSystem, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(st)
}
