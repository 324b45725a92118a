package lexer

import "fmt"

// Error is returned for any lexical failure. It carries the offending
// character and its
// byte offset in the source.
type Error struct {
	Pos  int
	Char rune
	Msg  string
}

func (e *Error) Error() string {
	if e.Char == 0 {
		return fmt.Sprintf("lex error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("lex error at %d: %s (char %q)", e.Pos, e.Msg, e.Char)
}

func errAt(pos int, ch rune, msg string) error {
	return &Error{Pos: pos, Char: ch, Msg: msg}
}
