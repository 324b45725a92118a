package lexer

import "testing"

func TestLexSymbolsAndIdentifiers(t *testing.T) {
	toks, err := Lex(`source/a { url: "./a" }`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}

	want := []Kind{Identifier, Symbol, Identifier, Symbol, Identifier, Symbol, String, Symbol}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[0].Value != "source" || toks[2].Value != "a" {
		t.Fatalf("unexpected identifier values: %q %q", toks[0].Value, toks[2].Value)
	}
}

func TestLexComments(t *testing.T) {
	toks, err := Lex("a // line comment\nb /* block\ncomment */ c")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	for i, want := range []string{"a", "b", "c"} {
		if toks[i].Value != want {
			t.Fatalf("token %d = %q, want %q", i, toks[i].Value, want)
		}
	}
}

func TestLexUnterminatedBlockComment(t *testing.T) {
	if _, err := Lex("a /* never closes"); err == nil {
		t.Fatal("expected error for unterminated block comment")
	}
}

func TestLexDirective(t *testing.T) {
	toks, err := Lex(`@import "pkgs/*.cfg"`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != Directive || toks[0].Value != "import" {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	if _, err := Lex(`"unterminated`); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexCodeBlock(t *testing.T) {
	toks, err := Lex(`<sh>echo hi</sh>`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(toks) != 1 {
		t.Fatalf("got %d tokens, want 1: %+v", len(toks), toks)
	}
	if toks[0].Kind != Code || toks[0].Value != "sh" || toks[0].Code != "echo hi" {
		t.Fatalf("unexpected token: %+v", toks[0])
	}
}

// A '<' inside a code block that is not part of the matching closing tag
// must be preserved verbatim as code content.
func TestLexCodeBlockInnerLessThan(t *testing.T) {
	toks, err := Lex(`<sh>if [ 1 -lt 2 ]; then echo "a<b"; fi</sh>`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != Code {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
	want := `if [ 1 -lt 2 ]; then echo "a<b"; fi`
	if toks[0].Code != want {
		t.Fatalf("code = %q, want %q", toks[0].Code, want)
	}
}

func TestLexCodeBlockUnterminated(t *testing.T) {
	if _, err := Lex(`<sh>echo hi`); err == nil {
		t.Fatal("expected error for unterminated code block")
	}
}

func TestLexUnexpectedChar(t *testing.T) {
	if _, err := Lex(`$`); err == nil {
		t.Fatal("expected error for unexpected character")
	}
}
