package parser

import (
	"testing"

	"github.com/chariotdev/chariot/internal/dsl/lexer"
)

func parse(t *testing.T, src string) *File {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	f, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return f
}

func TestParseRecipeDefinition(t *testing.T) {
	f := parse(t, `source/a { url: "./a", type: "local" }`)
	if len(f.Items) != 1 || f.Items[0].Definition == nil {
		t.Fatalf("expected one definition, got %+v", f.Items)
	}

	key := f.Items[0].Definition.Key
	if key.Kind != FragRecipeRef || key.Namespace != "source" || key.Name != "a" {
		t.Fatalf("unexpected key fragment: %+v", key)
	}

	obj := f.Items[0].Definition.Value
	if obj.Kind != FragObject || len(obj.Fields) != 2 {
		t.Fatalf("unexpected value fragment: %+v", obj)
	}
	if obj.Fields[0].Key != "url" || obj.Fields[0].Value.Str != "./a" {
		t.Fatalf("unexpected field 0: %+v", obj.Fields[0])
	}
}

func TestParseDuplicateDependenciesMerge(t *testing.T) {
	f := parse(t, `package/p { dependencies: [source/a], dependencies: [source/b] }`)
	obj := f.Items[0].Definition.Value
	if len(obj.Fields) != 1 {
		t.Fatalf("expected merged dependencies field, got %d fields", len(obj.Fields))
	}
	deps := obj.Fields[0].Value
	if len(deps.Items) != 2 {
		t.Fatalf("expected 2 merged dependency items, got %d", len(deps.Items))
	}
}

func TestParseDuplicateOtherKeyIsError(t *testing.T) {
	toks, err := lexer.Lex(`package/p { url: "a", url: "b" }`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if _, err := Parse(toks); err == nil {
		t.Fatal("expected DuplicateObjectKeyError")
	}
}

func TestParseUnaryModifiers(t *testing.T) {
	f := parse(t, `@collection "c" = [*source/a, %source/b]`)
	arg := f.Items[0].Directive.Arg
	if arg.Kind != FragBinary || arg.Op != '=' {
		t.Fatalf("unexpected directive arg: %+v", arg)
	}
	list := arg.Items[1]
	if list.Kind != FragList || len(list.Items) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Items[0].Kind != FragUnary || list.Items[0].Op != '*' {
		t.Fatalf("unexpected item 0: %+v", list.Items[0])
	}
	if list.Items[1].Kind != FragUnary || list.Items[1].Op != '%' {
		t.Fatalf("unexpected item 1: %+v", list.Items[1])
	}
}

func TestParseCodeBlockField(t *testing.T) {
	f := parse(t, `tool/b { build: <sh>echo $SOURCES_DIR</sh> }`)
	obj := f.Items[0].Definition.Value
	code := obj.Fields[0].Value
	if code.Kind != FragCode || code.Lang != "sh" || code.Str != "echo $SOURCES_DIR" {
		t.Fatalf("unexpected code fragment: %+v", code)
	}
}

// Re-tokenizing a canonical pretty-print of a parsed fragment must reproduce
// the same fragment tree, modulo map ordering.
func TestRoundTrip(t *testing.T) {
	src := `package/p { dependencies: [*source/a, %source/b], build: <sh>echo hi</sh> }`
	f := parse(t, src)
	pretty := f.String()

	reparsed := parse(t, pretty)
	if len(reparsed.Items) != len(f.Items) {
		t.Fatalf("round-trip item count mismatch: %d vs %d", len(reparsed.Items), len(f.Items))
	}
	if reparsed.String() != pretty {
		t.Fatalf("round-trip not stable:\n%q\nvs\n%q", reparsed.String(), pretty)
	}
}

func TestUnexpectedEOF(t *testing.T) {
	toks, err := lexer.Lex(`package/p {`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if _, err := Parse(toks); err == nil {
		t.Fatal("expected error for truncated input")
	}
}
