package parser

import (
	"github.com/chariotdev/chariot/internal/dsl/lexer"
)

// Parse builds a File from a token stream already produced by lexer.Lex.
// Parsing is recursive descent over a token stack consumed from the tail:
// tokens are reversed once up front so that "pop the next token" is an
// O(1) slice-shrink from the end rather than an index bump from the front.
func Parse(tokens []lexer.Token) (*File, error) {
	p := newParser(tokens)

	var items []Item
	for len(p.stack) > 0 {
		tok, _ := p.peek()
		if tok.Kind == lexer.Directive {
			d, err := p.parseDirective()
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Directive: d})
			continue
		}

		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Definition: def})
	}

	return &File{Items: items}, nil
}

type parser struct {
	stack []lexer.Token // tokens in reverse source order; pop from the end
}

func newParser(tokens []lexer.Token) *parser {
	rev := make([]lexer.Token, len(tokens))
	for i, t := range tokens {
		rev[len(tokens)-1-i] = t
	}
	return &parser{stack: rev}
}

func (p *parser) peek() (lexer.Token, bool) {
	if len(p.stack) == 0 {
		return lexer.Token{}, false
	}
	return p.stack[len(p.stack)-1], true
}

func (p *parser) pop() (lexer.Token, error) {
	tok, ok := p.peek()
	if !ok {
		return lexer.Token{}, ErrUnexpectedEOF
	}
	p.stack = p.stack[:len(p.stack)-1]
	return tok, nil
}

func (p *parser) popSymbol(sym string) error {
	tok, err := p.pop()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.Symbol || tok.Value != sym {
		return &UnexpectedTokenError{Token: tok}
	}
	return nil
}

func (p *parser) peekIsSymbol(sym string) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == lexer.Symbol && tok.Value == sym
}

func (p *parser) parseDirective() (*Directive, error) {
	tok, err := p.pop()
	if err != nil {
		return nil, err
	}
	if tok.Kind != lexer.Directive {
		return nil, &UnexpectedTokenError{Token: tok}
	}

	arg, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return &Directive{Name: tok.Value, Arg: arg}, nil
}

func (p *parser) parseDefinition() (*Definition, error) {
	key, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Definition{Key: key, Value: value}, nil
}

// Value := Primary ('=' Primary)*, left-associative.
func (p *parser) parseValue() (Fragment, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return Fragment{}, err
	}

	for p.peekIsSymbol("=") {
		p.pop()
		right, err := p.parsePrimary()
		if err != nil {
			return Fragment{}, err
		}
		left = Fragment{Kind: FragBinary, Op: '=', Items: []Fragment{left, right}}
	}

	return left, nil
}

func (p *parser) parsePrimary() (Fragment, error) {
	tok, ok := p.peek()
	if !ok {
		return Fragment{}, ErrUnexpectedEOF
	}

	switch {
	case tok.Kind == lexer.Symbol && tok.Value == "[":
		return p.parseList()
	case tok.Kind == lexer.Symbol && tok.Value == "{":
		return p.parseObject()
	case tok.Kind == lexer.Symbol && (tok.Value == "*" || tok.Value == "%" || tok.Value == "!"):
		return p.parseUnary()
	case tok.Kind == lexer.Identifier:
		return p.parseIdentifierOrRef()
	case tok.Kind == lexer.String:
		p.pop()
		return Fragment{Kind: FragString, Str: tok.Value}, nil
	case tok.Kind == lexer.Code:
		p.pop()
		return Fragment{Kind: FragCode, Lang: tok.Value, Str: tok.Code}, nil
	default:
		return Fragment{}, &UnexpectedTokenError{Token: tok}
	}
}

func (p *parser) parseUnary() (Fragment, error) {
	tok, _ := p.pop()
	operand, err := p.parseValue()
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Kind: FragUnary, Op: tok.Value[0], Items: []Fragment{operand}}, nil
}

// RecipeRef := ID '/' ID.
func (p *parser) parseIdentifierOrRef() (Fragment, error) {
	first, _ := p.pop()

	if p.peekIsSymbol("/") {
		p.pop()
		second, err := p.pop()
		if err != nil {
			return Fragment{}, err
		}
		if second.Kind != lexer.Identifier {
			return Fragment{}, &UnexpectedTokenError{Token: second}
		}
		return Fragment{Kind: FragRecipeRef, Namespace: first.Value, Name: second.Value}, nil
	}

	return Fragment{Kind: FragIdentifier, Name: first.Value}, nil
}

func (p *parser) parseList() (Fragment, error) {
	if err := p.popSymbol("["); err != nil {
		return Fragment{}, err
	}

	var items []Fragment
	for !p.peekIsSymbol("]") {
		v, err := p.parseValue()
		if err != nil {
			return Fragment{}, err
		}
		items = append(items, v)

		if p.peekIsSymbol(",") {
			p.pop()
			continue
		}
		break
	}

	if err := p.popSymbol("]"); err != nil {
		return Fragment{}, err
	}

	return Fragment{Kind: FragList, Items: items}, nil
}

// dependenciesKey is the one object key allowed to repeat; repeats append
// to the same list.
const dependenciesKey = "dependencies"

func (p *parser) parseObject() (Fragment, error) {
	if err := p.popSymbol("{"); err != nil {
		return Fragment{}, err
	}

	var fields []Field
	seen := make(map[string]int)

	for !p.peekIsSymbol("}") {
		keyTok, err := p.pop()
		if err != nil {
			return Fragment{}, err
		}
		if keyTok.Kind != lexer.Identifier {
			return Fragment{}, &UnexpectedTokenError{Token: keyTok}
		}

		if err := p.popSymbol(":"); err != nil {
			return Fragment{}, err
		}

		val, err := p.parseValue()
		if err != nil {
			return Fragment{}, err
		}

		if idx, ok := seen[keyTok.Value]; ok {
			if keyTok.Value != dependenciesKey {
				return Fragment{}, &DuplicateObjectKeyError{Key: keyTok.Value}
			}
			fields[idx].Value.Items = append(fields[idx].Value.Items, val.Items...)
		} else {
			seen[keyTok.Value] = len(fields)
			fields = append(fields, Field{Key: keyTok.Value, Value: val})
		}

		if p.peekIsSymbol(",") {
			p.pop()
			continue
		}
		break
	}

	if err := p.popSymbol("}"); err != nil {
		return Fragment{}, err
	}

	return Fragment{Kind: FragObject, Fields: fields}, nil
}
