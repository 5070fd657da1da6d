// Package lexer turns Yul source text into a stream of positioned tokens.
//
// The scanner reads one byte at a time with one byte of lookahead. Tokens are
// produced in strictly increasing byte offset and the final token is always
// EOF. Lexing stops at the first error: tokens cannot be reliably resumed
// mid-literal, so the error is returned with an exact line and column and no
// partial token list.
package lexer

import (
	"strings"

	"github.com/r3e-network/neo-solc/compiler/token"
)

// byte classification tables, indexed by ASCII value
var (
	isIdentStart [128]bool
	isIdentPart  [128]bool
	isDigit      [128]bool
	isHexDigit   [128]bool
	isSpace      [128]bool
)

func init() {
	for c := 'a'; c <= 'z'; c++ {
		isIdentStart[c] = true
		isIdentPart[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		isIdentStart[c] = true
		isIdentPart[c] = true
	}
	isIdentStart['_'] = true
	isIdentPart['_'] = true
	for c := '0'; c <= '9'; c++ {
		isIdentPart[c] = true
		isDigit[c] = true
		isHexDigit[c] = true
	}
	for c := 'a'; c <= 'f'; c++ {
		isHexDigit[c] = true
	}
	for c := 'A'; c <= 'F'; c++ {
		isHexDigit[c] = true
	}
	isSpace[' '] = true
	isSpace['\t'] = true
	isSpace['\r'] = true
	isSpace['\n'] = true
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithFile records the source path used in error messages.
func WithFile(name string) Option {
	return func(l *Lexer) { l.file = name }
}

// Lexer scans a single source text.
type Lexer struct {
	input  string
	file   string
	pos    int // byte offset of the next unread byte
	line   int
	column int
}

// New creates a Lexer over the given source text.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{input: input, line: 1, column: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tokenize scans the whole input. On success the returned slice ends with an
// EOF token. On failure the first lexical error is returned and no tokens.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	// Rough preallocation: one token per five input bytes
	tokens := make([]token.Token, 0, len(l.input)/5+8)

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			return tokens, nil
		}
	}
}

// Tokenize is a convenience wrapper that scans source in one call.
func Tokenize(source string, opts ...Option) ([]token.Token, error) {
	return New(source, opts...).Tokenize()
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespace()

	start := l.position()

	if l.pos >= len(l.input) {
		return token.Token{Kind: token.EOF, Pos: start}, nil
	}

	ch := l.input[l.pos]

	if ch < 128 && isIdentStart[ch] {
		return l.lexIdentifier(start), nil
	}
	if ch < 128 && isDigit[ch] {
		return l.lexNumber(start)
	}

	switch ch {
	case '"':
		return l.lexString(start)
	case '/':
		if l.peek() == '/' || l.peek() == '*' {
			return l.lexComment(start)
		}
		return token.Token{}, l.errorf(ErrUnexpectedCharacter, start, "unexpected character '/'")
	case ':':
		l.advance()
		if l.current() == '=' {
			l.advance()
			return l.simple(token.ASSIGN, ":=", start), nil
		}
		return l.simple(token.COLON, ":", start), nil
	case '-':
		l.advance()
		if l.current() == '>' {
			l.advance()
			return l.simple(token.ARROW, "->", start), nil
		}
		// '-' only ever begins '->'
		return token.Token{}, l.errorf(ErrUnexpectedCharacter, start, "unexpected character '-' (did you mean '->'?)")
	case '{':
		l.advance()
		return l.simple(token.LBRACE, "{", start), nil
	case '}':
		l.advance()
		return l.simple(token.RBRACE, "}", start), nil
	case '(':
		l.advance()
		return l.simple(token.LPAREN, "(", start), nil
	case ')':
		l.advance()
		return l.simple(token.RPAREN, ")", start), nil
	case ',':
		l.advance()
		return l.simple(token.COMMA, ",", start), nil
	case '.':
		l.advance()
		return l.simple(token.DOT, ".", start), nil
	}

	l.advance()
	return token.Token{}, l.errorf(ErrUnexpectedCharacter, start, "unexpected character %q", string(ch))
}

func (l *Lexer) lexIdentifier(start token.Position) token.Token {
	from := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= 128 || !isIdentPart[ch] {
			break
		}
		l.advance()
	}
	text := l.input[from:l.pos]
	kind, category := token.Lookup(text)
	return token.Token{
		Kind:     kind,
		Lexeme:   text,
		Pos:      start,
		Length:   len(text),
		Category: category,
	}
}

func (l *Lexer) lexNumber(start token.Position) (token.Token, error) {
	from := l.pos

	// 0x / 0X begins a hex literal; at least one hex digit must follow
	if l.current() == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		l.advance()
		digits := 0
		for l.pos < len(l.input) {
			ch := l.input[l.pos]
			if ch >= 128 || !isHexDigit[ch] {
				break
			}
			l.advance()
			digits++
		}
		text := l.input[from:l.pos]
		if digits == 0 || (l.pos < len(l.input) && l.input[l.pos] < 128 && isIdentPart[l.input[l.pos]]) {
			return token.Token{}, l.errorf(ErrInvalidHexNumber, start, "invalid hex number %q", text)
		}
		return token.Token{Kind: token.HEXNUMBER, Lexeme: text, Pos: start, Length: len(text)}, nil
	}

	// Decimal numbers are arbitrary-precision text; magnitude is not
	// interpreted here.
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= 128 || !isDigit[ch] {
			break
		}
		l.advance()
	}
	text := l.input[from:l.pos]
	if l.pos < len(l.input) && l.input[l.pos] < 128 && isIdentPart[l.input[l.pos]] {
		return token.Token{}, l.errorf(ErrInvalidNumber, start, "invalid number %q", text)
	}
	return token.Token{Kind: token.NUMBER, Lexeme: text, Pos: start, Length: len(text)}, nil
}

func (l *Lexer) lexString(start token.Position) (token.Token, error) {
	l.advance() // opening quote
	var b strings.Builder

	for {
		if l.pos >= len(l.input) || l.current() == '\n' {
			return token.Token{}, l.errorf(ErrUnterminatedString, start, "unterminated string")
		}
		ch := l.current()
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				return token.Token{}, l.errorf(ErrUnterminatedString, start, "unterminated string")
			}
			esc := l.current()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '0':
				b.WriteByte(0)
			case 'x':
				l.advance()
				if l.pos+1 >= len(l.input) ||
					l.input[l.pos] >= 128 || !isHexDigit[l.input[l.pos]] ||
					l.input[l.pos+1] >= 128 || !isHexDigit[l.input[l.pos+1]] {
					return token.Token{}, l.errorf(ErrInvalidEscape, start, `invalid escape sequence '\x': exactly two hex digits required`)
				}
				b.WriteByte(hexValue(l.input[l.pos])<<4 | hexValue(l.input[l.pos+1]))
				l.advance()
				l.advance()
				continue
			default:
				return token.Token{}, l.errorf(ErrInvalidEscape, start, "invalid escape sequence '\\%s'", string(esc))
			}
			l.advance()
			continue
		}
		b.WriteByte(ch)
		l.advance()
	}

	return token.Token{
		Kind:   token.STRING,
		Lexeme: b.String(),
		Pos:    start,
		Length: l.pos - start.Offset,
	}, nil
}

func (l *Lexer) lexComment(start token.Position) (token.Token, error) {
	from := l.pos
	l.advance() // '/'

	if l.current() == '/' {
		for l.pos < len(l.input) && l.current() != '\n' {
			l.advance()
		}
		text := l.input[from:l.pos]
		return token.Token{Kind: token.COMMENT, Lexeme: text, Pos: start, Length: len(text)}, nil
	}

	// Block comment; /* */ pairs nest
	l.advance() // '*'
	depth := 1
	for depth > 0 {
		if l.pos >= len(l.input) {
			return token.Token{}, l.errorf(ErrUnterminatedComment, start, "unterminated comment")
		}
		if l.current() == '/' && l.peek() == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if l.current() == '*' && l.peek() == '/' {
			l.advance()
			l.advance()
			depth--
			continue
		}
		l.advance()
	}
	text := l.input[from:l.pos]
	return token.Token{Kind: token.COMMENT, Lexeme: text, Pos: start, Length: len(text)}, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= 128 || !isSpace[ch] {
			break
		}
		l.advance()
	}
}

func (l *Lexer) current() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) position() token.Position {
	return token.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) simple(kind token.Kind, lexeme string, start token.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Pos: start, Length: len(lexeme)}
}

func hexValue(ch byte) byte {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0'
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10
	default:
		return ch - 'A' + 10
	}
}
