package compiler

import (
	"math"
	"strings"
)

type lexer struct {
	input []byte // always ends with a 0 byte
	pos   int
	line  int
}

// Lex converts source text into tokens. The last token is always EOF.
func Lex(src []byte) ([]Token, error) {
	l := &lexer{
		input: append(append([]byte{}, src...), 0),
		line:  1,
	}
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *lexer) token(t TokenType, start int) Token {
	return Token{Type: t, Text: string(l.input[start:l.pos]), Line: l.line}
}

// op consumes a one-byte operator, or a two-byte one when the following byte
// is next.
func (l *lexer) op(one TokenType, next byte, two TokenType) Token {
	start := l.pos
	if l.input[l.pos+1] == next {
		l.pos += 2
		return l.token(two, start)
	}
	l.pos++
	return l.token(one, start)
}

func (l *lexer) nextToken() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	start := l.pos
	c := l.input[l.pos]

	if c == 0 && l.pos == len(l.input)-1 {
		return Token{Type: EOF, Line: l.line}, nil
	} else if c == '=' {
		return l.op(ASSIGN, '=', EQ), nil
	} else if c == '!' {
		return l.op(BANG, '=', NOT_EQ), nil
	} else if c == '<' {
		return l.op(LT, '=', LE), nil
	} else if c == '>' {
		return l.op(GT, '=', GE), nil
	} else if c == '&' {
		if l.input[l.pos+1] != '&' {
			return Token{}, errorf(SyntaxError, l.line, "unexpected character '&'")
		}
		l.pos += 2
		return l.token(AND, start), nil
	} else if c == '|' {
		if l.input[l.pos+1] != '|' {
			return Token{}, errorf(SyntaxError, l.line, "unexpected character '|'")
		}
		l.pos += 2
		return l.token(OR, start), nil
	} else if c == '"' {
		return l.readString()
	} else if isLetter(c) {
		lit := l.readIdentifier()
		tok := l.token(lookupKeyword(lit), start)
		return tok, nil
	} else if isDigit(c) {
		val, err := l.readNumber()
		if err != nil {
			return Token{}, err
		}
		tok := l.token(INT, start)
		tok.Int = val
		return tok, nil
	}

	var t TokenType
	switch c {
	case '+':
		t = PLUS
	case '-':
		t = MINUS
	case '*':
		t = ASTERISK
	case '/':
		t = SLASH
	case '%':
		t = PERCENT
	case ',':
		t = COMMA
	case ';':
		t = SEMICOLON
	case ':':
		t = COLON
	case '(':
		t = LPAREN
	case ')':
		t = RPAREN
	case '{':
		t = LBRACE
	case '}':
		t = RBRACE
	case '.':
		t = DOT
	case '#':
		t = POUND
	default:
		return Token{}, errorf(SyntaxError, l.line, "unexpected character %q", c)
	}
	l.pos++
	return l.token(t, start), nil
}

func (l *lexer) skipWhitespace() error {
	for {
		c := l.input[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.input[l.pos+1] == '/':
			l.skipLineComment()
		default:
			return nil
		}
	}
}

func (l *lexer) skipLineComment() {
	for l.input[l.pos] != '\n' && l.pos < len(l.input)-1 {
		l.pos++
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.input[l.pos]) || isDigit(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *lexer) readNumber() (int64, error) {
	var val int64
	for isDigit(l.input[l.pos]) {
		d := int64(l.input[l.pos] - '0')
		if val > (math.MaxInt64-d)/10 {
			return 0, errorf(SyntaxError, l.line, "integer literal is too large")
		}
		val = val*10 + d
		l.pos++
	}
	if isLetter(l.input[l.pos]) {
		return 0, errorf(SyntaxError, l.line, "invalid character %q in integer literal", l.input[l.pos])
	}
	return val, nil
}

func (l *lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // skip opening "
	var sb strings.Builder
	for {
		c := l.input[l.pos]
		if c == '"' {
			break
		}
		if c == '\n' {
			return Token{}, errorf(SyntaxError, l.line, "multiline string literals are not allowed")
		}
		if c == 0 && l.pos == len(l.input)-1 {
			return Token{}, errorf(SyntaxError, l.line, "unterminated string")
		}
		if c == '\\' {
			l.pos++
			switch l.input[l.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '0':
				sb.WriteByte(0)
			default:
				return Token{}, errorf(SyntaxError, l.line, "invalid escape sequence \\%c", l.input[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
	l.pos++ // skip closing "
	tok := l.token(STRING, start)
	tok.Literal = sb.String()
	return tok, nil
}
