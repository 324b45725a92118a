package pipeline

import (
	"testing"

	"github.com/chariotdev/chariot/internal/cachelayout"
	"github.com/chariotdev/chariot/internal/paths"
	"github.com/chariotdev/chariot/internal/recipe"
)

func newTestConfig() *recipe.Config {
	cfg := recipe.NewConfig()
	cfg.Register(&recipe.Recipe{
		ID:        1,
		Namespace: recipe.Package,
		Name:      "zlib",
		Stages: recipe.Stages{
			Build: &recipe.CodeBlock{Lang: "sh", Code: "make"},
		},
	})
	return cfg
}

func TestDedupSortedUnion(t *testing.T) {
	got := dedupSortedUnion([]string{"git", "curl"}, []string{"curl", "make"})
	want := []string{"curl", "git", "make"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCurrentHashStable(t *testing.T) {
	cfg := newTestConfig()
	p := New(Options{Config: cfg, Cache: &cachelayout.Cache{Layout: paths.NewLayout("/tmp/chariot-test")}})

	r := cfg.Recipe(1)
	h1, err := p.currentHash(r)
	if err != nil {
		t.Fatalf("currentHash: %v", err)
	}
	h2, err := p.currentHash(r)
	if err != nil {
		t.Fatalf("currentHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}

	r.Stages.Build.Code = "make -j4"
	h3, err := p.currentHash(r)
	if err != nil {
		t.Fatalf("currentHash: %v", err)
	}
	if h3 == h1 {
		t.Fatal("hash did not change after editing build code")
	}
}

func TestOptionBindingsSortedByName(t *testing.T) {
	cfg := recipe.NewConfig()
	r := &recipe.Recipe{ID: 1, Namespace: recipe.Package, Name: "foo", UsedOptions: []string{"zeta", "alpha"}}
	cfg.Register(r)

	p := New(Options{
		Config:       cfg,
		Cache:        &cachelayout.Cache{Layout: paths.NewLayout("/tmp/chariot-test")},
		OptionValues: map[string]string{"zeta": "1", "alpha": "2"},
	})

	bindings := p.optionBindings(r)
	if len(bindings) != 2 || bindings[0].Name != "alpha" || bindings[1].Name != "zeta" {
		t.Fatalf("bindings not sorted by name: %+v", bindings)
	}
}
