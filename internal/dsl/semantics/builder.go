package semantics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chariotdev/chariot/internal/dsl/lexer"
	"github.com/chariotdev/chariot/internal/dsl/parser"
	"github.com/chariotdev/chariot/internal/recipe"
)

// builder accumulates state across the recursive phase-1 walk of @import'd
// files: the id counter, global env/package list, option and collection
// tables, and each recipe's not-yet-resolved dependency expressions.
type builder struct {
	cfg       *recipe.Config
	idCounter int

	rawDeps        map[int][]rawDep
	rawCollections map[string][]rawDep
	collOrder      []string // declaration order, for deterministic fixpoint iteration

	visited map[string]bool // absolute paths already loaded, @import is idempotent
}

func newBuilder() *builder {
	return &builder{
		cfg:            recipe.NewConfig(),
		rawDeps:        make(map[int][]rawDep),
		rawCollections: make(map[string][]rawDep),
		visited:        make(map[string]bool),
	}
}

// loadFile lexes and parses path, then walks its top-level items in source
// order, applying each directive's effect as it is reached (an @import in
// the middle of a file is followed before later items are processed, a
// straightforward top-to-bottom interpretation).
func (b *builder) loadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path %q: %w", path, err)
	}
	if b.visited[abs] {
		return nil
	}
	b.visited[abs] = true

	src, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %q: %w", abs, err)
	}

	toks, err := lexer.Lex(string(src))
	if err != nil {
		return fmt.Errorf("lex %q: %w", abs, err)
	}

	file, err := parser.Parse(toks)
	if err != nil {
		return fmt.Errorf("parse %q: %w", abs, err)
	}

	dir := filepath.Dir(abs)
	for _, item := range file.Items {
		switch {
		case item.Directive != nil:
			if err := b.processDirective(dir, item.Directive); err != nil {
				return fmt.Errorf("%s: %w", abs, err)
			}
		case item.Definition != nil:
			if err := b.processDefinition(item.Definition); err != nil {
				return fmt.Errorf("%s: %w", abs, err)
			}
		}
	}

	return nil
}

func (b *builder) processDirective(dir string, d *parser.Directive) error {
	switch d.Name {
	case "import":
		return b.processImport(dir, d.Arg)
	case "env":
		return b.processEnv(d.Arg)
	case "option":
		return b.processOption(d.Arg)
	case "collection":
		return b.processCollection(d.Arg)
	case "global_pkg":
		return b.processGlobalPkg(d.Arg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirective, d.Name)
	}
}

func (b *builder) processImport(dir string, arg parser.Fragment) error {
	pattern, err := asName(arg)
	if err != nil {
		return fmt.Errorf("@import: %w", err)
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("@import %q: %w", pattern, err)
	}
	for _, m := range matches {
		if err := b.loadFile(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) processEnv(arg parser.Fragment) error {
	if arg.Kind != parser.FragBinary || arg.Op != '=' {
		return fmt.Errorf("@env: %w: expected \"K\" = \"V\"", ErrUnexpectedFragment)
	}
	key, err := asName(arg.Items[0])
	if err != nil {
		return fmt.Errorf("@env key: %w", err)
	}
	val, err := asString(arg.Items[1])
	if err != nil {
		return fmt.Errorf("@env value: %w", err)
	}
	b.cfg.GlobalEnv[key] = val
	return nil
}

func (b *builder) processOption(arg parser.Fragment) error {
	if arg.Kind != parser.FragBinary || arg.Op != '=' {
		return fmt.Errorf("@option: %w: expected \"name\" = [...]", ErrUnexpectedFragment)
	}
	name, err := asName(arg.Items[0])
	if err != nil {
		return fmt.Errorf("@option name: %w", err)
	}
	if _, exists := b.cfg.Options[name]; exists {
		return fmt.Errorf("%w: %q", ErrOptionRedefined, name)
	}

	items, err := asList(arg.Items[1])
	if err != nil {
		return fmt.Errorf("@option %q values: %w", name, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: option %q requires at least one value", ErrMissingField, name)
	}

	values := make([]string, 0, len(items))
	for _, it := range items {
		v, err := asName(it)
		if err != nil {
			return fmt.Errorf("@option %q value: %w", name, err)
		}
		values = append(values, v)
	}

	b.cfg.Options[name] = recipe.Option{Name: name, Values: values}
	return nil
}

func (b *builder) processCollection(arg parser.Fragment) error {
	if arg.Kind != parser.FragBinary || arg.Op != '=' {
		return fmt.Errorf("@collection: %w: expected \"name\" = [...]", ErrUnexpectedFragment)
	}
	name, err := asName(arg.Items[0])
	if err != nil {
		return fmt.Errorf("@collection name: %w", err)
	}

	deps, err := parseDepList(arg.Items[1])
	if err != nil {
		return fmt.Errorf("@collection %q: %w", name, err)
	}

	if _, exists := b.rawCollections[name]; !exists {
		b.collOrder = append(b.collOrder, name)
	}
	b.rawCollections[name] = append(b.rawCollections[name], deps...)
	return nil
}

func (b *builder) processGlobalPkg(arg parser.Fragment) error {
	var names []string
	if arg.Kind == parser.FragList {
		for _, it := range arg.Items {
			n, err := asName(it)
			if err != nil {
				return fmt.Errorf("@global_pkg: %w", err)
			}
			names = append(names, n)
		}
	} else {
		n, err := asName(arg)
		if err != nil {
			return fmt.Errorf("@global_pkg: %w", err)
		}
		names = append(names, n)
	}

	for _, n := range names {
		for _, existing := range b.cfg.GlobalPkgs {
			if existing == n {
				return fmt.Errorf("%w: %q", ErrDuplicateGlobalPkg, n)
			}
		}
		b.cfg.GlobalPkgs = append(b.cfg.GlobalPkgs, n)
	}
	return nil
}
