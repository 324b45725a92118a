package semantics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chariotdev/chariot/internal/recipe"
)

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.chariot")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadLocalSourceAndTool(t *testing.T) {
	path := writeConfig(t, `
source/a { url: "./a", type: "local" }
tool/b { dependencies: [source/a], build: <sh>echo $SOURCES_DIR</sh> }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	aID, ok := cfg.Lookup(recipe.Source, "a")
	if !ok {
		t.Fatal("source/a not registered")
	}
	bID, ok := cfg.Lookup(recipe.Tool, "b")
	if !ok {
		t.Fatal("tool/b not registered")
	}

	deps := cfg.DependencyMap[bID]
	if len(deps) != 1 || deps[0].To != aID {
		t.Fatalf("unexpected dependency map for tool/b: %+v", deps)
	}

	b := cfg.Recipe(bID)
	if b.Stages.Build == nil || b.Stages.Build.Lang != "sh" {
		t.Fatalf("unexpected build stage: %+v", b.Stages.Build)
	}
}

func TestLoadOptionDeclarationAndUse(t *testing.T) {
	path := writeConfig(t, `
@option "mode" = ["d", "r"]
package/p { options: ["mode"], build: <sh>echo $OPTION_mode</sh> }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	opt, ok := cfg.Options["mode"]
	if !ok || !opt.Allows("d") || !opt.Allows("r") || opt.Allows("z") {
		t.Fatalf("unexpected option table: %+v", cfg.Options)
	}

	p, ok := cfg.Lookup(recipe.Package, "p")
	if !ok {
		t.Fatal("package/p not registered")
	}
	r := cfg.Recipe(p)
	if len(r.UsedOptions) != 1 || r.UsedOptions[0] != "mode" {
		t.Fatalf("unexpected used options: %+v", r.UsedOptions)
	}
}

func TestLoadUnknownOptionIsError(t *testing.T) {
	path := writeConfig(t, `package/p { options: ["mode"] }`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for undeclared option")
	}
}

func TestLoadUnknownDependencyIsError(t *testing.T) {
	path := writeConfig(t, `package/p { dependencies: [source/missing] }`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestLoadMutableOnNonSourceIsError(t *testing.T) {
	path := writeConfig(t, `
package/a { }
package/b { dependencies: [%package/a] }
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mutable dependency on a non-source recipe")
	}
}

func TestLoadDuplicateRecipeIsError(t *testing.T) {
	path := writeConfig(t, `
package/a { }
package/a { }
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate recipe")
	}
}

func TestLoadCollectionExpansionIsFullyTransitive(t *testing.T) {
	path := writeConfig(t, `
source/a { url: "./a", type: "local" }
package/lib { dependencies: [source/a], image_dependencies: ["libfoo-dev"] }
@collection "base" = [package/lib]
@collection "extended" = [collection/base, *image/curl]
package/consumer { dependencies: [collection/extended] }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	consumerID, ok := cfg.Lookup(recipe.Package, "consumer")
	if !ok {
		t.Fatal("package/consumer not registered")
	}
	consumer := cfg.Recipe(consumerID)

	libID, ok := cfg.Lookup(recipe.Package, "lib")
	if !ok {
		t.Fatal("package/lib not registered")
	}

	deps := cfg.DependencyMap[consumerID]
	if len(deps) != 1 || deps[0].To != libID {
		t.Fatalf("expected consumer to depend directly on package/lib via collection expansion, got %+v", deps)
	}

	foundCurl := false
	for _, d := range consumer.ImageDependencies {
		if d.Name == "curl" && d.Runtime {
			foundCurl = true
		}
	}
	if !foundCurl {
		t.Fatalf("expected runtime image dependency curl on consumer, got %+v", consumer.ImageDependencies)
	}

	collDeps, ok := cfg.Collections["extended"]
	if !ok || len(collDeps) != 1 || collDeps[0] != libID {
		t.Fatalf("unexpected expanded collection table: %+v", cfg.Collections)
	}
}

func TestLoadCollectionCycleIsError(t *testing.T) {
	path := writeConfig(t, `
@collection "a" = [collection/b]
@collection "b" = [collection/a]
package/p { dependencies: [collection/a] }
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for collection reference cycle")
	}
}

func TestLoadImportResolvesRelativeGlob(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sources.chariot")
	if err := os.WriteFile(sub, []byte(`source/a { url: "./a", type: "local" }`), 0644); err != nil {
		t.Fatalf("write sub config: %v", err)
	}
	main := filepath.Join(dir, "main.chariot")
	if err := os.WriteFile(main, []byte(`
@import "sources.chariot"
tool/b { dependencies: [source/a] }
`), 0644); err != nil {
		t.Fatalf("write main config: %v", err)
	}

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := cfg.Lookup(recipe.Source, "a"); !ok {
		t.Fatal("expected imported source/a to be registered")
	}
}

func TestLoadDuplicateGlobalPkgIsError(t *testing.T) {
	path := writeConfig(t, `
@global_pkg "curl"
@global_pkg "curl"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate global package")
	}
}

func TestLoadGitSourceRequiresRevision(t *testing.T) {
	path := writeConfig(t, `source/a { url: "https://example.com/a.git", type: "git" }`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for git source missing revision")
	}
}

func TestLoadTarSourceRequiresB2Sum(t *testing.T) {
	path := writeConfig(t, `source/a { url: "https://example.com/a.tar.gz", type: "tar.gz" }`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for tar.gz source missing b2sum")
	}
}

func TestLoadUnknownFieldIsError(t *testing.T) {
	path := writeConfig(t, `package/p { bogus_field: "x" }`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
