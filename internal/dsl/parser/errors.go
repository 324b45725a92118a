package parser

import (
	"errors"
	"fmt"

	"github.com/chariotdev/chariot/internal/dsl/lexer"
)

// ErrUnexpectedEOF is returned when the token stack is exhausted mid-rule.
var ErrUnexpectedEOF = errors.New("unexpected end of input")

// UnexpectedTokenError is returned when a token does not fit the current
// grammar position.
type UnexpectedTokenError struct {
	Token lexer.Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token %s at byte %d", e.Token, e.Token.Pos)
}

// DuplicateObjectKeyError is returned when an object literal repeats a key
// other than "dependencies".
type DuplicateObjectKeyError struct {
	Key string
}

func (e *DuplicateObjectKeyError) Error() string {
	return fmt.Sprintf("duplicate object key %q", e.Key)
}
