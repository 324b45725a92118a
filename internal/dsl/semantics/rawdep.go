package semantics

import (
	"fmt"

	"github.com/chariotdev/chariot/internal/dsl/parser"
	"github.com/chariotdev/chariot/internal/recipe"
)

// rawDep is a dependency expression as written in the DSL, before its
// (namespace, name) pair is resolved to a recipe id. The dep-expr grammar
// declares three unary symbols ('*' runtime, '%' mutable, '!'), and
// RecipeDependency carries a matching third boolean, loose, with no other
// use for '!' anywhere in the DSL. '!' is taken here as the loose
// modifier — see DESIGN.md.
type rawDep struct {
	Runtime   bool
	Mutable   bool
	Loose     bool
	Namespace string
	Name      string
}

// parseDepExpr unwraps at most one of each '*'/'%'/'!' unary modifier (in any
// order) around a RecipeRef, enforcing the modifier rules for the special
// "image" and "collection" namespaces.
func parseDepExpr(f parser.Fragment) (rawDep, error) {
	var d rawDep

	for f.Kind == parser.FragUnary {
		switch f.Op {
		case '*':
			if d.Runtime {
				return rawDep{}, fmt.Errorf("%w: duplicate '*' modifier", ErrModifierMisuse)
			}
			d.Runtime = true
		case '%':
			if d.Mutable {
				return rawDep{}, fmt.Errorf("%w: duplicate '%%' modifier", ErrModifierMisuse)
			}
			d.Mutable = true
		case '!':
			if d.Loose {
				return rawDep{}, fmt.Errorf("%w: duplicate '!' modifier", ErrModifierMisuse)
			}
			d.Loose = true
		}
		f = f.Items[0]
	}

	if f.Kind != parser.FragRecipeRef {
		return rawDep{}, fmt.Errorf("%w: expected recipe reference, got %v", ErrUnexpectedFragment, f.Kind)
	}

	d.Namespace = f.Namespace
	d.Name = f.Name

	switch recipe.Namespace(d.Namespace) {
	case recipe.Image:
		if d.Mutable || d.Loose {
			return rawDep{}, fmt.Errorf("%w: image dependency %q only supports '*'", ErrModifierMisuse, d.Name)
		}
	case recipe.Collection:
		if d.Mutable || d.Runtime || d.Loose {
			return rawDep{}, fmt.Errorf("%w: collection dependency %q cannot carry modifiers", ErrModifierMisuse, d.Name)
		}
	}

	return d, nil
}

// parseDepList parses a FragList of dependency expressions.
func parseDepList(f parser.Fragment) ([]rawDep, error) {
	items, err := asList(f)
	if err != nil {
		return nil, err
	}
	deps := make([]rawDep, 0, len(items))
	for _, item := range items {
		d, err := parseDepExpr(item)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// parseImageDepList parses a FragList of image_dependencies entries: bare
// names optionally prefixed with '*' for the runtime-propagating flag, with
// no RecipeRef namespace.
func parseImageDepList(f parser.Fragment) ([]recipe.ImageDependency, error) {
	items, err := asList(f)
	if err != nil {
		return nil, err
	}

	deps := make([]recipe.ImageDependency, 0, len(items))
	for _, item := range items {
		runtime := false
		if item.Kind == parser.FragUnary {
			if item.Op != '*' {
				return nil, fmt.Errorf("%w: image_dependencies only support '*'", ErrModifierMisuse)
			}
			runtime = true
			item = item.Items[0]
		}
		name, err := asName(item)
		if err != nil {
			return nil, err
		}
		deps = append(deps, recipe.ImageDependency{Name: name, Runtime: runtime})
	}
	return deps, nil
}
