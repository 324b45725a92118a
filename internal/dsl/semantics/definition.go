package semantics

import (
	"fmt"
	"strings"

	"github.com/chariotdev/chariot/internal/dsl/parser"
	"github.com/chariotdev/chariot/internal/recipe"
)

// pendingRecipe pairs a partially built recipe with its not-yet-resolved
// dependency expressions. The loader does not use it: phase 1 keeps those
// expressions in builder.rawDeps, keyed by recipe id, for phase 2.
type pendingRecipe struct {
	r    *recipe.Recipe
	deps []rawDep
}

// processDefinition parses one top-level "namespace/name { ... }" recipe
// declaration.
func (b *builder) processDefinition(d *parser.Definition) error {
	if d.Key.Kind != parser.FragRecipeRef {
		return fmt.Errorf("%w: recipe key must be namespace/name, got %v", ErrUnexpectedFragment, d.Key.Kind)
	}
	ns := recipe.Namespace(d.Key.Namespace)
	name := d.Key.Name

	switch ns {
	case recipe.Source, recipe.Package, recipe.Tool, recipe.Custom:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, d.Key.Namespace)
	}

	if _, exists := b.cfg.Lookup(ns, name); exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateRecipe, ns, name)
	}

	fs, err := newFieldSet(d.Value)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", ns, name, err)
	}

	b.idCounter++
	r := &recipe.Recipe{ID: b.idCounter, Namespace: ns, Name: name}

	if ns == recipe.Source {
		if err := b.fillSource(fs, r); err != nil {
			return fmt.Errorf("%s/%s: %w", ns, name, err)
		}
	} else {
		if err := b.fillStages(fs, r); err != nil {
			return fmt.Errorf("%s/%s: %w", ns, name, err)
		}
	}

	deps, err := b.fillCommon(fs, r)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", ns, name, err)
	}

	if leftover, ok := fs.leftover(); ok {
		return fmt.Errorf("%s/%s: %w: %q", ns, name, ErrUnknownField, leftover)
	}

	b.cfg.Register(r)
	b.rawDeps[r.ID] = deps
	return nil
}

func (b *builder) fillSource(fs *fieldSet, r *recipe.Recipe) error {
	urlFrag, ok := fs.take("url")
	if !ok {
		return fieldErr(ErrMissingField, "url", fmt.Errorf("required for source recipes"))
	}
	url, err := asString(urlFrag)
	if err != nil {
		return fieldErr(ErrMissingField, "url", err)
	}

	kindFrag, ok := fs.take("type")
	if !ok {
		return fieldErr(ErrMissingField, "type", fmt.Errorf("required for source recipes"))
	}
	kindStr, err := asName(kindFrag)
	if err != nil {
		return fieldErr(ErrMissingField, "type", err)
	}

	spec := &recipe.SourceSpec{URL: url, Kind: recipe.SourceKind(kindStr)}

	switch spec.Kind {
	case recipe.Local:
	case recipe.Git:
		revFrag, ok := fs.take("revision")
		if !ok {
			return fieldErr(ErrMissingField, "revision", fmt.Errorf("required for type \"git\""))
		}
		rev, err := asString(revFrag)
		if err != nil {
			return fieldErr(ErrMissingField, "revision", err)
		}
		spec.Revision = rev
	case recipe.TarGz, recipe.TarXz:
		sumFrag, ok := fs.take("b2sum")
		if !ok {
			return fieldErr(ErrMissingField, "b2sum", fmt.Errorf("required for type %q", kindStr))
		}
		sum, err := asString(sumFrag)
		if err != nil {
			return fieldErr(ErrMissingField, "b2sum", err)
		}
		spec.B2Sum = sum
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrUnexpectedFragment, kindStr)
	}

	if patchFrag, ok := fs.take("patch"); ok {
		patch, err := asString(patchFrag)
		if err != nil {
			return fieldErr(ErrUnexpectedFragment, "patch", err)
		}
		spec.Patch = patch
	}

	if regenFrag, ok := fs.take("regenerate"); ok {
		code, err := asCode(regenFrag)
		if err != nil {
			return fieldErr(ErrUnexpectedFragment, "regenerate", err)
		}
		spec.Regenerate = code
	}

	r.Source = spec
	return nil
}

func (b *builder) fillStages(fs *fieldSet, r *recipe.Recipe) error {
	for _, name := range []string{"configure", "build", "install"} {
		frag, ok := fs.take(name)
		if !ok {
			continue
		}
		code, err := asCode(frag)
		if err != nil {
			return fieldErr(ErrUnexpectedFragment, name, err)
		}
		switch name {
		case "configure":
			r.Stages.Configure = code
		case "build":
			r.Stages.Build = code
		case "install":
			r.Stages.Install = code
		}
	}

	if acFrag, ok := fs.take("always_clean"); ok {
		ac, err := asBool(acFrag)
		if err != nil {
			return fieldErr(ErrUnexpectedFragment, "always_clean", err)
		}
		r.AlwaysClean = ac
	}

	return nil
}

// fillCommon consumes the fields shared by every namespace (dependencies,
// options, image_dependencies) and returns the recipe's raw (unresolved)
// dependency expressions.
func (b *builder) fillCommon(fs *fieldSet, r *recipe.Recipe) ([]rawDep, error) {
	var deps []rawDep

	if depFrag, ok := fs.take("dependencies"); ok {
		d, err := parseDepList(depFrag)
		if err != nil {
			return nil, fieldErr(ErrUnexpectedFragment, "dependencies", err)
		}
		deps = append(deps, d...)
	}

	if imgFrag, ok := fs.take("image_dependencies"); ok {
		imgDeps, err := parseImageDepList(imgFrag)
		if err != nil {
			return nil, fieldErr(ErrUnexpectedFragment, "image_dependencies", err)
		}
		r.ImageDependencies = append(r.ImageDependencies, imgDeps...)
	}

	if optFrag, ok := fs.take("options"); ok {
		items, err := asList(optFrag)
		if err != nil {
			return nil, fieldErr(ErrUnexpectedFragment, "options", err)
		}
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			name, err := asName(it)
			if err != nil {
				return nil, fieldErr(ErrUnexpectedFragment, "options", err)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: option %q listed more than once", ErrUnexpectedFragment, name)
			}
			seen[name] = true
			r.UsedOptions = append(r.UsedOptions, name)
		}
	}

	return deps, nil
}

// describe renders a rawDep for error messages.
func (d rawDep) describe() string {
	var mods strings.Builder
	if d.Runtime {
		mods.WriteByte('*')
	}
	if d.Mutable {
		mods.WriteByte('%')
	}
	if d.Loose {
		mods.WriteByte('!')
	}
	return fmt.Sprintf("%s%s/%s", mods.String(), d.Namespace, d.Name)
}
