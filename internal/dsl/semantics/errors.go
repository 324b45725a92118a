// Package semantics resolves a parsed configuration fragment tree into a
// validated recipe graph: it walks directives and recipe
// definitions, expands collections and options, type-checks recipe fields,
// and produces the recipe.Config consumed by internal/pipeline.
package semantics

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDirective   = errors.New("unknown directive")
	ErrUnknownField       = errors.New("unknown field")
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidNamespace   = errors.New("invalid namespace")
	ErrDuplicateRecipe    = errors.New("duplicate recipe")
	ErrUnknownDependency  = errors.New("unknown dependency")
	ErrModifierMisuse     = errors.New("invalid dependency modifier")
	ErrOptionNotDeclared  = errors.New("option not declared")
	ErrOptionRedefined    = errors.New("option redefined")
	ErrDuplicateGlobalPkg = errors.New("duplicate global package")
	ErrUnexpectedFragment = errors.New("unexpected fragment shape")
	ErrUnsupportedLang    = errors.New("unsupported code block language")
)

func fieldErr(sentinel error, field string, err error) error {
	return fmt.Errorf("%w %q: %w", sentinel, field, err)
}
