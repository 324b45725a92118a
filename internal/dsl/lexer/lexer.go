package lexer

import "strings"

// symbols lists the single-character symbols recognized in Initial state
const symbols = "{}:[],*%!=/"

// lexer walks src as a byte slice, tracking a byte offset. The DSL's
// character classes (identifiers, directives, symbols) are all ASCII, so
// byte-indexing is sufficient and avoids repeated rune decoding.
type lexer struct {
	src []byte
	pos int
}

// Lex tokenizes src in full, returning every token in source order.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: []byte(src)}
	var tokens []Token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			break
		}
		tokens = append(tokens, *tok)
	}

	return tokens, nil
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.src)
}

func (l *lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(offset int) byte {
	i := l.pos + offset
	if i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

// next returns the next token, or (nil, nil) at end of input.
func (l *lexer) next() (*Token, error) {
	l.skipWhitespace()
	if l.eof() {
		return nil, nil
	}

	start := l.pos
	ch := l.peek()

	switch {
	case ch == '"':
		return l.lexString(start)
	case ch == '<':
		return l.lexCodeBlock(start)
	case ch == '@':
		return l.lexDirective(start)
	case ch == '/':
		return l.lexSlash(start)
	case isAlpha(ch):
		return l.lexIdentifier(start)
	case strings.IndexByte(symbols, ch) >= 0:
		l.pos++
		return &Token{Kind: Symbol, Value: string(ch), Pos: start}, nil
	default:
		return nil, errAt(start, rune(ch), "unexpected character")
	}
}

func (l *lexer) skipWhitespace() {
	for !l.eof() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

// lexSlash handles '/' disambiguation: a bare symbol, a line comment, or a
// block comment.
func (l *lexer) lexSlash(start int) (*Token, error) {
	switch l.peekAt(1) {
	case '/':
		l.pos += 2
		for !l.eof() && l.peek() != '\n' {
			l.pos++
		}
		return l.next()
	case '*':
		l.pos += 2
		for {
			if l.eof() {
				return nil, errAt(start, '/', "unterminated block comment")
			}
			if l.peek() == '*' && l.peekAt(1) == '/' {
				l.pos += 2
				return l.next()
			}
			l.pos++
		}
	default:
		l.pos++
		return &Token{Kind: Symbol, Value: "/", Pos: start}, nil
	}
}

func (l *lexer) lexString(start int) (*Token, error) {
	l.pos++ // opening quote
	begin := l.pos
	for {
		if l.eof() {
			return nil, errAt(start, '"', "unterminated string")
		}
		if l.peek() == '"' {
			value := string(l.src[begin:l.pos])
			l.pos++
			return &Token{Kind: String, Value: value, Pos: start}, nil
		}
		l.pos++
	}
}

func (l *lexer) lexIdentifier(start int) (*Token, error) {
	for !l.eof() && isIdentChar(l.peek()) {
		l.pos++
	}
	return &Token{Kind: Identifier, Value: string(l.src[start:l.pos]), Pos: start}, nil
}

func (l *lexer) lexDirective(start int) (*Token, error) {
	l.pos++ // '@'
	begin := l.pos
	for !l.eof() && isDirectiveChar(l.peek()) {
		l.pos++
	}
	if l.pos == begin {
		return nil, errAt(start, '@', "empty directive name")
	}
	return &Token{Kind: Directive, Value: string(l.src[begin:l.pos]), Pos: start}, nil
}

// lexCodeBlock lexes "<lang>...</lang>". An inner '<' that does not begin
// the exact matching closing tag is treated as ordinary code content
func (l *lexer) lexCodeBlock(start int) (*Token, error) {
	l.pos++ // '<'
	langStart := l.pos
	for !l.eof() && isAlpha(l.peek()) {
		l.pos++
	}
	lang := string(l.src[langStart:l.pos])
	if lang == "" {
		return nil, errAt(start, '<', "empty code block language")
	}
	if l.eof() || l.peek() != '>' {
		return nil, errAt(l.pos, l.runeAt(l.pos), "expected '>' after code block language")
	}
	l.pos++ // '>'

	closeTag := "</" + lang + ">"
	codeStart := l.pos

	for {
		idx := bytesIndexFrom(l.src, l.pos, '<')
		if idx < 0 {
			return nil, errAt(start, '<', "unterminated code block")
		}
		if matchesAt(l.src, idx, closeTag) {
			code := string(l.src[codeStart:idx])
			l.pos = idx + len(closeTag)
			return &Token{Kind: Code, Value: lang, Code: code, Pos: start}, nil
		}
		// Not the closing tag: this '<' is ordinary code content. Resume
		// scanning just past it.
		l.pos = idx + 1
	}
}

func (l *lexer) runeAt(pos int) rune {
	if pos >= len(l.src) {
		return 0
	}
	return rune(l.src[pos])
}

func bytesIndexFrom(b []byte, from int, target byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == target {
			return i
		}
	}
	return -1
}

func matchesAt(b []byte, at int, s string) bool {
	if at+len(s) > len(b) {
		return false
	}
	return string(b[at:at+len(s)]) == s
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isAlpha(ch) || isDigit(ch) || ch == '_' || ch == '-' || ch == '.' || ch == '+'
}

func isDirectiveChar(ch byte) bool {
	return isAlpha(ch) || isDigit(ch) || ch == '_' || ch == '-' || ch == '.'
}
