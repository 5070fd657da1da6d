// Package parser builds the typed syntax tree from a token stream by
// recursive descent.
//
// On a parse error the parser records a ParseError and synchronizes by
// advancing to the next token that can open a statement. Up to maxErrors
// failures are tolerated; the tree returned in that case is a best-effort
// partial tree and the invocation as a whole fails.
package parser

import (
	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/token"
)

// Option configures a parse.
type Option func(*parser)

// WithFile records the source path attached to node locations and errors.
func WithFile(name string) Option {
	return func(p *parser) { p.file = name }
}

// WithMaxErrors overrides the error tolerance before the parser gives up.
func WithMaxErrors(n int) Option {
	return func(p *parser) { p.maxErrors = n }
}

// Result is the outcome of a parse: the tree (possibly partial) and every
// error collected along the way.
type Result struct {
	AST    *ast.AST
	Errors []ParseError
}

// Parse consumes a token stream produced by the lexer. The stream must end
// with an EOF token.
func Parse(tokens []token.Token, opts ...Option) *Result {
	p := &parser{
		tokens:    tokens,
		maxErrors: defaultMaxErrors,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.skipTrivia()

	unit := &ast.AST{}
	for !p.at(token.EOF) && len(p.errors) < p.maxErrors {
		item := p.parseItem()
		if item != nil {
			unit.Items = append(unit.Items, item)
		}
	}

	return &Result{AST: unit, Errors: p.errors}
}

const defaultMaxErrors = 20

type parser struct {
	tokens    []token.Token
	pos       int
	file      string
	maxErrors int
	errors    []ParseError
}

// statement openers used as synchronization points after an error
var syncSet = map[token.Kind]bool{
	token.FUNCTION: true,
	token.LET:      true,
	token.IF:       true,
	token.SWITCH:   true,
	token.FOR:      true,
	token.LBRACE:   true,
	token.EOF:      true,
}

func (p *parser) parseItem() ast.Item {
	switch p.current().Kind {
	case token.OBJECT:
		return p.parseObject()
	case token.FUNCTION:
		return p.parseFunction()
	case token.LBRACE:
		return p.parseBlock()
	default:
		p.errorExpected("top-level item", "an object, function, or block",
			token.OBJECT, token.FUNCTION, token.LBRACE)
		p.synchronize()
		return nil
	}
}

// Object := "object" STRING "{" (Code | Data | Object)* "}"
func (p *parser) parseObject() *ast.Object {
	start := p.current()
	p.advance() // object

	obj := &ast.Object{Children: make(map[string]*ast.Object)}

	name, ok := p.expectString("object declaration", `object "Name" { ... }`)
	if !ok {
		p.synchronize()
		return nil
	}
	obj.Name = name

	if !p.expect(token.LBRACE, "object body", `object "Name" { code { ... } }`) {
		p.synchronize()
		return nil
	}

	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		switch p.current().Kind {
		case token.CODE:
			p.advance()
			obj.Code = p.parseBlock()
		case token.DATA:
			p.advance()
			dataStart := p.previous()
			dataName, ok := p.expectString("data segment", `data "name" "payload"`)
			if !ok {
				p.synchronize()
				continue
			}
			dataValue, ok := p.expectString("data segment", `data "name" "payload"`)
			if !ok {
				p.synchronize()
				continue
			}
			obj.Data = append(obj.Data, ast.NamedData{
				Name:     dataName,
				Value:    dataValue,
				Location: p.locFrom(dataStart),
			})
		case token.OBJECT:
			child := p.parseObject()
			if child != nil {
				obj.Children[child.Name] = child
			}
		default:
			p.errorExpected("object body", `object "Name" { code { ... } }`,
				token.CODE, token.DATA, token.OBJECT, token.RBRACE)
			p.synchronize()
			if !p.at(token.CODE) && !p.at(token.DATA) && !p.at(token.OBJECT) && !p.at(token.RBRACE) {
				return obj
			}
		}
	}
	p.expect(token.RBRACE, "object body", "")

	obj.Location = p.locFrom(start)
	return obj
}

// Function := "function" IDENT "(" Params? ")" ("->" Returns)? Block
func (p *parser) parseFunction() *ast.Function {
	start := p.current()
	p.advance() // function

	fn := &ast.Function{}

	nameTok := p.current()
	if nameTok.Kind != token.IDENT {
		p.record(ParseError{
			File:       p.file,
			Position:   nameTok.Pos,
			Message:    "missing function name",
			Context:    "function declaration",
			Expected:   []token.Kind{token.IDENT},
			Got:        nameTok.Kind,
			Suggestion: "name the function after the 'function' keyword",
			Example:    "function transfer(from, to, amount) -> ok { ... }",
		})
		p.synchronize()
		return nil
	}
	fn.Name = nameTok.Lexeme
	p.advance()

	if !p.expect(token.LPAREN, "function signature", "function f(a, b) { ... }") {
		p.synchronize()
		return nil
	}
	if !p.at(token.RPAREN) {
		params, ok := p.parseTypedNameList("parameter list")
		if !ok {
			p.synchronize()
			return nil
		}
		fn.Params = params
	}
	if !p.expect(token.RPAREN, "parameter list", "function f(a, b) { ... }") {
		p.synchronize()
		return nil
	}

	if p.at(token.ARROW) {
		p.advance()
		returns, ok := p.parseTypedNameList("return list")
		if !ok {
			p.synchronize()
			return nil
		}
		fn.Returns = returns
	}

	fn.Body = p.parseBlock()
	if fn.Body == nil {
		return nil
	}
	fn.Location = p.locFrom(start)
	return fn
}

// TypedName ("," TypedName)*; a trailing comma is not allowed
func (p *parser) parseTypedNameList(context string) ([]ast.TypedName, bool) {
	var names []ast.TypedName
	for {
		name, ok := p.parseTypedName(context)
		if !ok {
			return nil, false
		}
		names = append(names, name)
		if !p.at(token.COMMA) {
			return names, true
		}
		p.advance()
	}
}

func (p *parser) parseTypedName(context string) (ast.TypedName, bool) {
	tok := p.current()
	if tok.Kind != token.IDENT {
		p.record(ParseError{
			File:       p.file,
			Position:   tok.Pos,
			Message:    "expected a name",
			Context:    context,
			Expected:   []token.Kind{token.IDENT},
			Got:        tok.Kind,
			Suggestion: "a trailing comma before ')' is not allowed",
		})
		return ast.TypedName{}, false
	}
	p.advance()

	name := ast.TypedName{
		Name:     tok.Lexeme,
		Type:     ast.TypeInfo{Name: ast.Unknown},
		Location: p.locFrom(tok),
	}

	// optional ":" type annotation; the type spelling address doubles as a
	// builtin name
	if p.at(token.COLON) {
		p.advance()
		typeTok := p.current()
		if typeTok.Kind != token.IDENT && typeTok.Kind != token.BUILTIN {
			p.record(ParseError{
				File:     p.file,
				Position: typeTok.Pos,
				Message:  "expected a type name after ':'",
				Context:  context,
				Expected: []token.Kind{token.IDENT},
				Got:      typeTok.Kind,
				Example:  "let total:u256 := 0",
			})
			return ast.TypedName{}, false
		}
		p.advance()
		name.Type = typeFromAnnotation(typeTok.Lexeme)
		name.Location = p.locFrom(tok)
	}
	return name, true
}

func typeFromAnnotation(spelling string) ast.TypeInfo {
	switch spelling {
	case "u256", "uint256":
		return ast.TypeInfo{Name: ast.Uint256, Size: 32}
	case "bool":
		return ast.TypeInfo{Name: ast.Bool, Size: 1}
	case "bytes32":
		return ast.TypeInfo{Name: ast.Bytes32, Size: 32}
	case "address":
		return ast.TypeInfo{Name: ast.Address, Size: 20}
	case "string":
		return ast.TypeInfo{Name: ast.String}
	case "bytes":
		return ast.TypeInfo{Name: ast.Bytes}
	default:
		return ast.TypeInfo{Name: ast.Unknown}
	}
}

// Block := "{" Statement* "}"
func (p *parser) parseBlock() *ast.Block {
	start := p.current()
	if !p.expect(token.LBRACE, "block", "{ ... }") {
		p.synchronize()
		return nil
	}

	block := &ast.Block{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) && len(p.errors) < p.maxErrors {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	p.expect(token.RBRACE, "block", "")

	block.Location = p.locFrom(start)
	return block
}

func (p *parser) parseStatement() ast.Statement {
	switch p.current().Kind {
	case token.LBRACE:
		return p.orNil(p.parseBlock())
	case token.FUNCTION:
		if fn := p.parseFunction(); fn != nil {
			return fn
		}
		return nil
	case token.LET:
		return p.parseLet()
	case token.IF:
		return p.parseIf()
	case token.SWITCH:
		return p.parseSwitch()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		tok := p.current()
		p.advance()
		return &ast.Break{Location: p.locFrom(tok)}
	case token.CONTINUE:
		tok := p.current()
		p.advance()
		return &ast.Continue{Location: p.locFrom(tok)}
	case token.LEAVE:
		tok := p.current()
		p.advance()
		return &ast.Leave{Location: p.locFrom(tok)}
	case token.IDENT:
		return p.parseAssignOrCall()
	case token.NUMBER, token.HEXNUMBER, token.STRING, token.TRUE, token.FALSE, token.BUILTIN:
		start := p.current()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		return &ast.ExpressionStatement{Expr: expr, Location: p.locFrom(start)}
	default:
		p.errorExpected("statement", "",
			token.LET, token.IF, token.SWITCH, token.FOR, token.LBRACE, token.IDENT)
		p.synchronize()
		return nil
	}
}

// orNil avoids a typed-nil Statement when parseBlock fails
func (p *parser) orNil(b *ast.Block) ast.Statement {
	if b == nil {
		return nil
	}
	return b
}

// Let := "let" TypedName ("," TypedName)* (":=" Expression)?
func (p *parser) parseLet() ast.Statement {
	start := p.current()
	p.advance() // let

	vars, ok := p.parseTypedNameList("variable declaration")
	if !ok {
		p.synchronize()
		return nil
	}

	decl := &ast.VariableDeclaration{Vars: vars}
	if p.at(token.ASSIGN) {
		p.advance()
		decl.Init = p.parseExpression()
		if decl.Init == nil {
			p.synchronize()
			return nil
		}
	}
	decl.Location = p.locFrom(start)
	return decl
}

// Assign := IDENT ("," IDENT)* ":=" Expression
// An identifier can also begin a call used as an expression statement.
func (p *parser) parseAssignOrCall() ast.Statement {
	start := p.current()

	if p.peek().Kind == token.LPAREN {
		expr := p.parseExpression()
		if expr == nil {
			p.synchronize()
			return nil
		}
		return &ast.ExpressionStatement{Expr: expr, Location: p.locFrom(start)}
	}

	var targets []*ast.Identifier
	for {
		tok := p.current()
		if tok.Kind != token.IDENT {
			p.record(ParseError{
				File:       p.file,
				Position:   tok.Pos,
				Message:    "expected a variable name",
				Context:    "assignment",
				Expected:   []token.Kind{token.IDENT},
				Got:        tok.Kind,
				Suggestion: "assignment targets must be plain identifiers",
				Example:    "x, y := f()",
			})
			p.synchronize()
			return nil
		}
		p.advance()
		targets = append(targets, &ast.Identifier{
			Name:     tok.Lexeme,
			Type:     ast.TypeInfo{Name: ast.Unknown},
			Location: p.locFrom(tok),
		})
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}

	if !p.expect(token.ASSIGN, "assignment", "x := add(x, 1)") {
		p.synchronize()
		return nil
	}
	value := p.parseExpression()
	if value == nil {
		p.synchronize()
		return nil
	}
	return &ast.Assignment{Targets: targets, Value: value, Location: p.locFrom(start)}
}

// If := "if" Expression Block
func (p *parser) parseIf() ast.Statement {
	start := p.current()
	p.advance() // if

	cond := p.parseExpression()
	if cond == nil {
		p.synchronize()
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.If{Cond: cond, Body: body, Location: p.locFrom(start)}
}

// Switch := "switch" Expression (Case)* ("default" Block)?
// A default clause, when present, terminates case parsing.
func (p *parser) parseSwitch() ast.Statement {
	start := p.current()
	p.advance() // switch

	scrutinee := p.parseExpression()
	if scrutinee == nil {
		p.synchronize()
		return nil
	}

	sw := &ast.Switch{Scrutinee: scrutinee}
	for p.at(token.CASE) {
		caseStart := p.current()
		p.advance()
		value := p.parseLiteral("case value")
		if value == nil {
			p.synchronize()
			return nil
		}
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		sw.Cases = append(sw.Cases, ast.SwitchCase{
			Value:    value,
			Body:     body,
			Location: p.locFrom(caseStart),
		})
	}
	if p.at(token.DEFAULT) {
		p.advance()
		sw.Default = p.parseBlock()
		if sw.Default == nil {
			return nil
		}
	}

	if len(sw.Cases) == 0 && sw.Default == nil {
		p.record(ParseError{
			File:       p.file,
			Position:   start.Pos,
			Message:    "switch with no cases",
			Context:    "switch statement",
			Suggestion: "add at least one 'case' clause or a 'default' block",
			Example:    "switch x case 0 { ... } default { ... }",
		})
		return nil
	}

	sw.Location = p.locFrom(start)
	return sw
}

// For := "for" Block Expression Block Block
func (p *parser) parseFor() ast.Statement {
	start := p.current()
	p.advance() // for

	initBlock := p.parseBlock()
	if initBlock == nil {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		p.synchronize()
		return nil
	}
	post := p.parseBlock()
	if post == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForLoop{
		Init:     initBlock,
		Cond:     cond,
		Post:     post,
		Body:     body,
		Location: p.locFrom(start),
	}
}

// Expression := Literal | IDENT | Call
func (p *parser) parseExpression() ast.Expression {
	tok := p.current()
	switch tok.Kind {
	case token.NUMBER, token.HEXNUMBER, token.STRING, token.TRUE, token.FALSE:
		return p.parseLiteral("expression")
	case token.IDENT, token.BUILTIN:
		p.advance()
		callee := &ast.Identifier{
			Name:     tok.Lexeme,
			Type:     ast.TypeInfo{Name: ast.Unknown},
			Location: p.locFrom(tok),
		}
		if !p.at(token.LPAREN) {
			if tok.Kind == token.BUILTIN {
				p.record(ParseError{
					File:       p.file,
					Position:   tok.Pos,
					Message:    "builtin used without arguments",
					Context:    "expression",
					Expected:   []token.Kind{token.LPAREN},
					Got:        p.current().Kind,
					Suggestion: "builtin functions must be called",
					Example:    "add(x, 1)",
				})
				return nil
			}
			return callee
		}
		return p.parseCallArgs(tok, callee)
	default:
		p.errorExpected("expression", "",
			token.NUMBER, token.HEXNUMBER, token.STRING, token.TRUE, token.FALSE, token.IDENT)
		return nil
	}
}

func (p *parser) parseCallArgs(start token.Token, callee *ast.Identifier) ast.Expression {
	p.advance() // (

	call := &ast.FunctionCall{Callee: callee}
	if !p.at(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if !p.expect(token.RPAREN, "call arguments", "f(a, b)") {
		return nil
	}
	call.Location = p.locFrom(start)
	return call
}

func (p *parser) parseLiteral(context string) *ast.Literal {
	tok := p.current()
	var kind ast.LiteralKind
	var typ ast.TypeInfo
	switch tok.Kind {
	case token.NUMBER:
		kind = ast.LiteralNumber
		typ = ast.TypeInfo{Name: ast.Uint256, Size: 32, IsConstant: true}
	case token.HEXNUMBER:
		kind = ast.LiteralHexNumber
		typ = ast.TypeInfo{Name: ast.Uint256, Size: 32, IsConstant: true}
	case token.STRING:
		kind = ast.LiteralString
		typ = ast.TypeInfo{Name: ast.String, IsConstant: true}
	case token.TRUE, token.FALSE:
		kind = ast.LiteralBoolean
		typ = ast.TypeInfo{Name: ast.Bool, Size: 1, IsConstant: true}
	default:
		p.errorExpected(context, "",
			token.NUMBER, token.HEXNUMBER, token.STRING, token.TRUE, token.FALSE)
		return nil
	}
	p.advance()
	return &ast.Literal{
		Kind:     kind,
		Value:    tok.Lexeme,
		Type:     typ,
		Location: p.locFrom(tok),
	}
}

// token cursor

func (p *parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() token.Token {
	i := p.pos + 1
	for i < len(p.tokens) && p.tokens[i].Kind == token.COMMENT {
		i++
	}
	if i >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[i]
}

func (p *parser) previous() token.Token {
	i := p.pos - 1
	for i > 0 && p.tokens[i].Kind == token.COMMENT {
		i--
	}
	if i < 0 {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[i]
}

func (p *parser) at(kind token.Kind) bool {
	return p.current().Kind == kind
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
	p.skipTrivia()
}

// skipTrivia drops comment tokens; called after every token advance
func (p *parser) skipTrivia() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind == token.COMMENT {
		p.pos++
	}
}

func (p *parser) expect(kind token.Kind, context, example string) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	p.record(ParseError{
		File:     p.file,
		Position: p.current().Pos,
		Message:  "unexpected token",
		Context:  context,
		Expected: []token.Kind{kind},
		Got:      p.current().Kind,
		Example:  example,
	})
	return false
}

func (p *parser) expectString(context, example string) (string, bool) {
	tok := p.current()
	if tok.Kind != token.STRING {
		p.record(ParseError{
			File:     p.file,
			Position: tok.Pos,
			Message:  "expected a string literal",
			Context:  context,
			Expected: []token.Kind{token.STRING},
			Got:      tok.Kind,
			Example:  example,
		})
		return "", false
	}
	p.advance()
	return tok.Lexeme, true
}

func (p *parser) errorExpected(context, suggestion string, expected ...token.Kind) {
	p.record(ParseError{
		File:       p.file,
		Position:   p.current().Pos,
		Message:    "unexpected token",
		Context:    context,
		Expected:   expected,
		Got:        p.current().Kind,
		Suggestion: suggestion,
	})
}

func (p *parser) record(err ParseError) {
	p.errors = append(p.errors, err)
}

// synchronize advances to the next token that can open a statement
func (p *parser) synchronize() {
	for !p.at(token.EOF) {
		if syncSet[p.current().Kind] {
			return
		}
		p.advance()
	}
}

// locFrom spans from the start token to the end of the last consumed token
func (p *parser) locFrom(start token.Token) ast.SourceLocation {
	end := p.previous()
	length := end.Pos.Offset + end.Length - start.Pos.Offset
	if length < start.Length {
		length = start.Length
	}
	return ast.SourceLocation{
		Line:   start.Pos.Line,
		Column: start.Pos.Column,
		Offset: start.Pos.Offset,
		Length: length,
		File:   p.file,
	}
}
