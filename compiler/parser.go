package compiler

import "fmt"

// Parse lexes and parses a whole program.
func Parse(src []byte) (*ASTNode, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses a token stream ending in EOF.
func ParseTokens(tokens []Token) (program *ASTNode, err error) {
	p := &parser{tokens: tokens}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			program, err = nil, e
		}
	}()

	program = &ASTNode{Kind: NodeProgram, Line: 1}
	for !p.check(EOF) {
		program.Children = append(program.Children, p.statement())
	}
	return program, nil
}

// parser is a recursive-descent parser. Errors unwind to ParseTokens as a
// panic carrying an *Error.
type parser struct {
	tokens []Token
	curr   int
}

func (p *parser) peek() Token {
	return p.tokens[p.curr]
}

func (p *parser) previous() Token {
	return p.tokens[p.curr-1]
}

func (p *parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *parser) checkNext(t TokenType) bool {
	return p.curr+1 < len(p.tokens) && p.tokens[p.curr+1].Type == t
}

func (p *parser) advance() Token {
	tok := p.tokens[p.curr]
	if tok.Type != EOF {
		p.curr++
	}
	return tok
}

func (p *parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) fail(format string, args ...any) {
	panic(errorf(SyntaxError, p.peek().Line, format, args...))
}

// want consumes a token of the given type or fails.
func (p *parser) want(t TokenType) Token {
	if !p.check(t) {
		p.fail("expected %s but got %s", describe(t), describeToken(p.peek()))
	}
	return p.advance()
}

func describe(t TokenType) string {
	switch t {
	case IDENT:
		return "identifier"
	case INT:
		return "integer"
	case STRING:
		return "string"
	case EOF:
		return "end of file"
	default:
		return fmt.Sprintf("'%s'", t)
	}
}

func describeToken(tok Token) string {
	if tok.Type == EOF {
		return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Text)
}

func (p *parser) statement() *ASTNode {
	tok := p.peek()
	switch tok.Type {
	case LET, CONST:
		p.advance()
		node := &ASTNode{
			Kind:    NodeAssignment,
			Line:    tok.Line,
			Mutable: tok.Type == LET,
			String:  p.want(IDENT).Text,
		}
		if p.match(COLON) {
			node.TypeName = p.want(IDENT).Text
		}
		p.want(ASSIGN)
		node.Children = []*ASTNode{p.expression()}
		p.want(SEMICOLON)
		return node

	case EXTERN:
		p.advance()
		return p.externBlock(tok.Line)

	case FN:
		p.advance()
		return p.function(tok.Line)

	case LBRACE:
		p.advance()
		return p.block(tok.Line)

	case WHILE:
		p.advance()
		cond := p.expression()
		open := p.want(LBRACE)
		return &ASTNode{
			Kind:     NodeWhile,
			Line:     tok.Line,
			Children: []*ASTNode{cond, p.block(open.Line)},
		}

	case RETURN:
		p.advance()
		node := &ASTNode{Kind: NodeReturn, Line: tok.Line}
		if !p.check(SEMICOLON) {
			node.Children = []*ASTNode{p.expression()}
		}
		p.want(SEMICOLON)
		return node

	case BREAK:
		p.advance()
		p.want(SEMICOLON)
		return &ASTNode{Kind: NodeBreak, Line: tok.Line}

	case UNREACHABLE:
		p.advance()
		p.want(SEMICOLON)
		return &ASTNode{Kind: NodeUnreachable, Line: tok.Line}

	case STRUCT:
		p.advance()
		return p.structDecl(tok.Line)

	default:
		expr := p.expression()
		if expr.Kind != NodeIf {
			p.want(SEMICOLON)
		}
		return expr
	}
}

// externBlock parses the body of `extern host { ... }`.
func (p *parser) externBlock(line int) *ASTNode {
	node := &ASTNode{Kind: NodeExtern, Line: line, String: p.want(IDENT).Text}
	p.want(LBRACE)
	for !p.match(RBRACE) {
		tok := p.advance()
		switch tok.Type {
		case FN:
			imp := &ASTNode{Kind: NodeExternFunc, Line: tok.Line, String: p.want(IDENT).Text}
			p.want(LPAREN)
			if !p.check(RPAREN) {
				for {
					imp.ArgTypes = append(imp.ArgTypes, p.want(IDENT).Text)
					if !p.match(COMMA) {
						break
					}
				}
			}
			p.want(RPAREN)
			imp.TypeName = p.want(IDENT).Text
			node.Children = append(node.Children, imp)
		case CONST:
			imp := &ASTNode{Kind: NodeExternVar, Line: tok.Line, String: p.want(IDENT).Text}
			p.want(COLON)
			imp.TypeName = p.want(IDENT).Text
			node.Children = append(node.Children, imp)
		default:
			p.curr--
			p.fail("expected 'fn' or 'const' in extern block but got %s", describeToken(tok))
		}
		p.want(SEMICOLON)
	}
	return node
}

func (p *parser) function(line int) *ASTNode {
	node := &ASTNode{Kind: NodeFunc, Line: line, String: p.want(IDENT).Text, TypeName: "void"}
	p.want(LPAREN)
	if !p.check(RPAREN) {
		for {
			name := p.want(IDENT)
			p.want(COLON)
			node.Children = append(node.Children, &ASTNode{
				Kind:     NodeFuncArg,
				Line:     name.Line,
				String:   name.Text,
				TypeName: p.want(IDENT).Text,
			})
			if !p.match(COMMA) {
				break
			}
		}
	}
	p.want(RPAREN)
	if p.check(IDENT) {
		node.TypeName = p.advance().Text
	}
	open := p.want(LBRACE)
	node.Children = append(node.Children, p.block(open.Line))
	return node
}

// block parses statements up to the closing brace; the opening brace has
// already been consumed.
func (p *parser) block(line int) *ASTNode {
	node := &ASTNode{Kind: NodeBlock, Line: line}
	for !p.check(RBRACE) && !p.check(EOF) {
		node.Children = append(node.Children, p.statement())
	}
	p.want(RBRACE)
	return node
}

func (p *parser) structDecl(line int) *ASTNode {
	node := &ASTNode{Kind: NodeStruct, Line: line, String: p.want(IDENT).Text}
	p.want(LBRACE)
	for p.check(IDENT) {
		node.FieldNames = append(node.FieldNames, p.advance().Text)
		p.want(COLON)
		node.FieldTypes = append(node.FieldTypes, p.want(IDENT).Text)
		if !p.match(COMMA) {
			break
		}
	}
	p.want(RBRACE)
	return node
}

func (p *parser) expression() *ASTNode {
	return p.reassign()
}

func (p *parser) reassign() *ASTNode {
	expr := p.or()
	if p.check(ASSIGN) {
		tok := p.advance()
		value := p.reassign()
		if expr.Kind != NodeVar {
			panic(errorf(SyntaxError, tok.Line, "invalid assignment target"))
		}
		return &ASTNode{
			Kind:     NodeReassign,
			Line:     tok.Line,
			String:   expr.String,
			Children: []*ASTNode{value},
		}
	}
	return expr
}

// binaryLevel parses a left-associative chain of the given operators whose
// operands are parsed by next.
func (p *parser) binaryLevel(next func() *ASTNode, ops ...TokenType) *ASTNode {
	expr := next()
	for p.match(ops...) {
		op := p.previous()
		right := next()
		expr = &ASTNode{
			Kind:     NodeBinary,
			Line:     op.Line,
			Op:       op.Text,
			Children: []*ASTNode{expr, right},
		}
	}
	return expr
}

func (p *parser) or() *ASTNode {
	return p.binaryLevel(p.and, OR)
}

func (p *parser) and() *ASTNode {
	return p.binaryLevel(p.equality, AND)
}

func (p *parser) equality() *ASTNode {
	return p.binaryLevel(p.comparison, EQ, NOT_EQ)
}

func (p *parser) comparison() *ASTNode {
	return p.binaryLevel(p.term, LT, LE, GT, GE)
}

func (p *parser) term() *ASTNode {
	return p.binaryLevel(p.factor, PLUS, MINUS)
}

func (p *parser) factor() *ASTNode {
	return p.binaryLevel(p.unary, ASTERISK, SLASH, PERCENT)
}

func (p *parser) unary() *ASTNode {
	if p.match(BANG, MINUS) {
		op := p.previous()
		return &ASTNode{
			Kind:     NodeUnary,
			Line:     op.Line,
			Op:       op.Text,
			Children: []*ASTNode{p.unary()},
		}
	}
	return p.call()
}

// call parses postfix calls and field accesses.
func (p *parser) call() *ASTNode {
	expr := p.primary()
	for {
		if p.check(LPAREN) {
			open := p.advance()
			node := &ASTNode{Kind: NodeCall, Line: open.Line, Children: []*ASTNode{expr}}
			if !p.check(RPAREN) {
				for {
					node.Children = append(node.Children, p.expression())
					if !p.match(COMMA) {
						break
					}
				}
			}
			p.want(RPAREN)
			expr = node
		} else if p.check(DOT) {
			dot := p.advance()
			expr = &ASTNode{
				Kind:     NodeAttr,
				Line:     dot.Line,
				String:   p.want(IDENT).Text,
				Children: []*ASTNode{expr},
			}
		} else {
			return expr
		}
	}
}

func (p *parser) primary() *ASTNode {
	tok := p.peek()
	switch tok.Type {
	case TRUE, FALSE:
		p.advance()
		return &ASTNode{Kind: NodeBoolean, Line: tok.Line, Boolean: tok.Type == TRUE}

	case INT:
		p.advance()
		return &ASTNode{Kind: NodeInteger, Line: tok.Line, Integer: tok.Int}

	case STRING:
		p.advance()
		return &ASTNode{Kind: NodeString, Line: tok.Line, String: tok.Literal}

	case POUND:
		p.advance()
		return p.structLiteral(tok.Line)

	case IF:
		p.advance()
		return p.ifExpr(tok.Line)

	case IDENT:
		p.advance()
		name := tok.Text
		// host:name
		if p.check(COLON) && p.checkNext(IDENT) {
			p.advance()
			name += ":" + p.advance().Text
		}
		return &ASTNode{Kind: NodeVar, Line: tok.Line, String: name}

	case LPAREN:
		p.advance()
		expr := p.expression()
		p.want(RPAREN)
		return expr

	default:
		p.fail("expected expression but got %s", describeToken(tok))
		return nil
	}
}

func (p *parser) ifExpr(line int) *ASTNode {
	cond := p.expression()
	open := p.want(LBRACE)
	node := &ASTNode{Kind: NodeIf, Line: line, Children: []*ASTNode{cond, p.block(open.Line)}}
	if p.match(ELSE) {
		if p.check(IF) {
			elif := p.advance()
			node.Children = append(node.Children, p.ifExpr(elif.Line))
		} else {
			open := p.want(LBRACE)
			node.Children = append(node.Children, p.block(open.Line))
		}
	}
	return node
}

func (p *parser) structLiteral(line int) *ASTNode {
	node := &ASTNode{Kind: NodeStructLiteral, Line: line}
	if p.check(IDENT) {
		node.TypeName = p.advance().Text
	}
	p.want(LBRACE)
	for p.check(IDENT) {
		node.FieldNames = append(node.FieldNames, p.advance().Text)
		p.want(COLON)
		node.Children = append(node.Children, p.expression())
		if !p.match(COMMA) {
			break
		}
	}
	p.want(RBRACE)
	return node
}
