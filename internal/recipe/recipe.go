// Package recipe defines chariot's data model: recipes, their
// code blocks, dependency edges, collections, options, and the resolved
// configuration graph produced by internal/dsl/semantics.
package recipe

import "sort"

// Namespace tags a recipe's allowed fields and stage semantics.
type Namespace string

const (
	Source  Namespace = "source"
	Package Namespace = "package"
	Tool    Namespace = "tool"
	Custom  Namespace = "custom"

	// Image is not a recipe namespace; it tags dependency edges that name a
	// distro package to install into the sandbox rootfs rather than another
	// recipe.
	Image Namespace = "image"

	// Collection is not a recipe namespace; it tags dependency edges that
	// expand to a named, pre-declared list of dependencies.
	Collection Namespace = "collection"
)

// SourceKind distinguishes how a source recipe's content is obtained.
type SourceKind string

const (
	Local SourceKind = "local"
	Git   SourceKind = "git"
	TarGz SourceKind = "tar.gz"
	TarXz SourceKind = "tar.xz"
)

// CodeBlock is an embedded script in one of the two supported shell dialects
// or one of the two supported Python spellings.
type CodeBlock struct {
	Lang string
	Code string
}

// SupportedLang reports whether lang is an accepted CodeBlock language.
func SupportedLang(lang string) bool {
	switch lang {
	case "sh", "bash", "python", "py":
		return true
	default:
		return false
	}
}

// SourceSpec holds the fields specific to a source-namespace recipe.
type SourceSpec struct {
	URL        string
	Kind       SourceKind
	Revision   string     // required for Git
	B2Sum      string     // required for TarGz/TarXz
	Patch      string     // optional patch file path
	Regenerate *CodeBlock // optional regenerate stage
}

// Stages holds the three optional code blocks shared by package, tool, and
// custom recipes.
type Stages struct {
	Configure *CodeBlock
	Build     *CodeBlock
	Install   *CodeBlock
}

// ImageDependency names a distro package installed into the sandbox rootfs
// that backs a recipe's build. Runtime image deps propagate to consumers the
// same way runtime recipe deps do.
type ImageDependency struct {
	Name    string
	Runtime bool
}

// RecipeDependency is a resolved edge in the dependency graph.
type RecipeDependency struct {
	To      int // target recipe id
	Runtime bool
	Mutable bool
	Loose   bool
}

// Modifiers returns the 3-char "[l-|m-|r-]"-per-flag encoding used in the
// structural hash: one character per flag, in
// loose/mutable/runtime order, '-' where the flag is unset.
func (d RecipeDependency) Modifiers() string {
	b := [3]byte{'-', '-', '-'}
	if d.Loose {
		b[0] = 'l'
	}
	if d.Mutable {
		b[1] = 'm'
	}
	if d.Runtime {
		b[2] = 'r'
	}
	return string(b[:])
}

// Recipe is a build unit identified by (namespace, name, option bindings).
// The option bindings are not stored on the Recipe itself; they are supplied
// by the caller of the pipeline and combined with UsedOptions to select an
// on-disk path.
type Recipe struct {
	ID        int
	Namespace Namespace
	Name      string

	Source *SourceSpec // set iff Namespace == Source
	Stages Stages      // set iff Namespace != Source

	ImageDependencies []ImageDependency
	UsedOptions       []string // ordered, each name appears at most once
	AlwaysClean       bool
}

// InstallPrefix returns the default install prefix for the recipe's
// namespace: tool recipes are forced to /usr/local.
func (r *Recipe) InstallPrefix(userPrefix string) string {
	if r.Namespace == Tool {
		return "/usr/local"
	}
	return userPrefix
}

// Option is a user-selectable parameter with a finite allowed-value set.
type Option struct {
	Name   string
	Values []string
}

// Allows reports whether value is one of the option's declared values.
func (o Option) Allows(value string) bool {
	for _, v := range o.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Config is the fully resolved configuration graph: global
// environment and packages, declared options, the recipe table, the
// dependency map keyed by recipe id, and expanded collections.
type Config struct {
	GlobalEnv     map[string]string
	GlobalPkgs    []string // ordered, deduplicated
	Options       map[string]Option
	Recipes       map[int]*Recipe
	DependencyMap map[int][]RecipeDependency
	Collections   map[string][]int

	// ids indexes recipes by (namespace, name) for dependency resolution.
	ids map[Key]int
}

// Key identifies a recipe by namespace and name, independent of option
// bindings" — Key covers the first two components).
type Key struct {
	Namespace Namespace
	Name      string
}

// NewConfig returns an empty, ready-to-populate Config.
func NewConfig() *Config {
	return &Config{
		GlobalEnv:     make(map[string]string),
		Options:       make(map[string]Option),
		Recipes:       make(map[int]*Recipe),
		DependencyMap: make(map[int][]RecipeDependency),
		Collections:   make(map[string][]int),
		ids:           make(map[Key]int),
	}
}

// AddGlobalPkg appends a package name to GlobalPkgs if not already present.
func (c *Config) AddGlobalPkg(name string) {
	for _, p := range c.GlobalPkgs {
		if p == name {
			return
		}
	}
	c.GlobalPkgs = append(c.GlobalPkgs, name)
}

// Register indexes r by its (namespace, name) key. The caller must ensure
// r.ID is already set and unique.
func (c *Config) Register(r *Recipe) {
	c.Recipes[r.ID] = r
	c.ids[Key{r.Namespace, r.Name}] = r.ID
}

// Lookup resolves a (namespace, name) pair to a recipe id.
func (c *Config) Lookup(ns Namespace, name string) (int, bool) {
	id, ok := c.ids[Key{ns, name}]
	return id, ok
}

// Recipe returns the recipe with the given id, or nil.
func (c *Config) Recipe(id int) *Recipe {
	return c.Recipes[id]
}

// SortedRecipeIDs returns every registered recipe id in ascending order, for
// deterministic iteration (e.g. size-walk ordering, test fixtures).
func (c *Config) SortedRecipeIDs() []int {
	ids := make([]int, 0, len(c.Recipes))
	for id := range c.Recipes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
