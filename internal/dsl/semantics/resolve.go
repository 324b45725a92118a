package semantics

import (
	"fmt"

	"github.com/chariotdev/chariot/internal/recipe"
)

// Load parses path (and anything it @imports) and resolves the result into
// a fully validated recipe.Config.
func Load(path string) (*recipe.Config, error) {
	b := newBuilder()

	if err := b.loadFile(path); err != nil {
		return nil, err
	}

	collections, err := b.expandCollections()
	if err != nil {
		return nil, err
	}

	if err := b.resolveRecipeDeps(collections); err != nil {
		return nil, err
	}

	b.cfg.Collections = make(map[string][]int, len(collections))
	for name, deps := range collections {
		ids := make([]int, 0, len(deps))
		for _, d := range deps {
			if recipe.Namespace(d.Namespace) == recipe.Image {
				continue
			}
			id, ok := b.cfg.Lookup(recipe.Namespace(d.Namespace), d.Name)
			if !ok {
				return nil, fmt.Errorf("@collection: %w: %s", ErrUnknownDependency, d.describe())
			}
			ids = append(ids, id)
		}
		b.cfg.Collections[name] = ids
	}

	if err := b.checkUsedOptions(); err != nil {
		return nil, err
	}

	return b.cfg, nil
}

// expandCollections resolves every named collection's entries to a fixpoint:
// a collection/X entry inside collection Y expands to X's own entries
// in place, recursively, until no entry names a collection. The collection
// table itself is not consulted for recipe resolution until this has
// converged, so that order of @collection declarations does not matter.
func (b *builder) expandCollections() (map[string][]rawDep, error) {
	expanded := make(map[string][]rawDep, len(b.rawCollections))
	inProgress := make(map[string]bool)

	var expandOne func(name string) ([]rawDep, error)
	expandOne = func(name string) ([]rawDep, error) {
		if done, ok := expanded[name]; ok {
			return done, nil
		}
		if inProgress[name] {
			return nil, fmt.Errorf("@collection %q: %w", name, errCollectionCycle)
		}
		raw, ok := b.rawCollections[name]
		if !ok {
			return nil, fmt.Errorf("@collection: %w: %q", ErrUnknownDependency, name)
		}
		inProgress[name] = true

		var out []rawDep
		for _, d := range raw {
			if recipe.Namespace(d.Namespace) == recipe.Collection {
				sub, err := expandOne(d.Name)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				continue
			}
			out = append(out, d)
		}

		inProgress[name] = false
		expanded[name] = out
		return out, nil
	}

	for _, name := range b.collOrder {
		if _, err := expandOne(name); err != nil {
			return nil, err
		}
	}

	return expanded, nil
}

var errCollectionCycle = fmt.Errorf("collection reference cycle")

// resolveRecipeDeps walks every recipe's raw dependency expressions,
// expanding collection/<name> entries into the collection's expanded
// dependency list and resolving every remaining (namespace, name) pair to a
// recipe id or an image-package entry.
func (b *builder) resolveRecipeDeps(collections map[string][]rawDep) error {
	for _, id := range b.cfg.SortedRecipeIDs() {
		r := b.cfg.Recipe(id)
		raw := b.rawDeps[id]

		flat, err := flattenDeps(raw, collections)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", r.Namespace, r.Name, err)
		}

		for _, d := range flat {
			if recipe.Namespace(d.Namespace) == recipe.Image {
				r.ImageDependencies = append(r.ImageDependencies, recipe.ImageDependency{
					Name:    d.Name,
					Runtime: d.Runtime,
				})
				continue
			}

			targetNS := recipe.Namespace(d.Namespace)
			targetID, ok := b.cfg.Lookup(targetNS, d.Name)
			if !ok {
				return fmt.Errorf("%s/%s: %w: %s", r.Namespace, r.Name, ErrUnknownDependency, d.describe())
			}

			if d.Mutable {
				target := b.cfg.Recipe(targetID)
				if target.Namespace != recipe.Source {
					return fmt.Errorf("%s/%s: %w: mutable dependency %s/%s is not a source",
						r.Namespace, r.Name, ErrModifierMisuse, targetNS, d.Name)
				}
			}

			b.cfg.DependencyMap[id] = append(b.cfg.DependencyMap[id], recipe.RecipeDependency{
				To:      targetID,
				Runtime: d.Runtime,
				Mutable: d.Mutable,
				Loose:   d.Loose,
			})
		}
	}
	return nil
}

// flattenDeps expands collection/<name> entries in-place, producing a flat
// list of recipe/image dep expressions.
func flattenDeps(raw []rawDep, collections map[string][]rawDep) ([]rawDep, error) {
	var out []rawDep
	for _, d := range raw {
		if recipe.Namespace(d.Namespace) != recipe.Collection {
			out = append(out, d)
			continue
		}
		sub, ok := collections[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: collection/%s", ErrUnknownDependency, d.Name)
		}
		out = append(out, sub...)
	}
	return out, nil
}

// checkUsedOptions verifies every recipe's UsedOptions names a declared
// option.
func (b *builder) checkUsedOptions() error {
	for _, id := range b.cfg.SortedRecipeIDs() {
		r := b.cfg.Recipe(id)
		for _, name := range r.UsedOptions {
			if _, ok := b.cfg.Options[name]; !ok {
				return fmt.Errorf("%s/%s: %w: %q", r.Namespace, r.Name, ErrOptionNotDeclared, name)
			}
		}
	}
	return nil
}
