package compiler

import (
	"testing"

	"github.com/nalgeon/be"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexOperators(t *testing.T) {
	tokens, err := Lex([]byte("= == ! != < <= > >= && || + - * / % , ; : ( ) { } . #"))
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(tokens), []TokenType{
		ASSIGN, EQ, BANG, NOT_EQ, LT, LE, GT, GE, AND, OR,
		PLUS, MINUS, ASTERISK, SLASH, PERCENT,
		COMMA, SEMICOLON, COLON, LPAREN, RPAREN, LBRACE, RBRACE, DOT, POUND,
		EOF,
	})
	be.Equal(t, tokens[1].Text, "==")
	be.Equal(t, tokens[8].Text, "&&")
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := Lex([]byte("let const fn struct while if else true false break return unreachable extern lets _x9"))
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(tokens), []TokenType{
		LET, CONST, FN, STRUCT, WHILE, IF, ELSE, TRUE, FALSE, BREAK, RETURN, UNREACHABLE, EXTERN,
		IDENT, IDENT, EOF,
	})
	be.Equal(t, tokens[13].Text, "lets")
	be.Equal(t, tokens[14].Text, "_x9")
}

func TestLexLiterals(t *testing.T) {
	tokens, err := Lex([]byte(`42 9223372036854775807 "a\tb\n\"q\"\\\0" ""`))
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(tokens), []TokenType{INT, INT, STRING, STRING, EOF})
	be.Equal(t, tokens[0].Int, int64(42))
	be.Equal(t, tokens[1].Int, int64(9223372036854775807))
	be.Equal(t, tokens[2].Literal, "a\tb\n\"q\"\\\x00")
	be.Equal(t, tokens[3].Literal, "")
	be.Equal(t, tokens[3].Text, `""`)
}

func TestLexLinesAndComments(t *testing.T) {
	src := "fn main() { // comment ; } \n\n  let x = 1;\r\n}\n// trailing"
	tokens, err := Lex([]byte(src))
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(tokens), []TokenType{
		FN, IDENT, LPAREN, RPAREN, LBRACE,
		LET, IDENT, ASSIGN, INT, SEMICOLON,
		RBRACE, EOF,
	})
	be.Equal(t, tokens[0].Line, 1)
	be.Equal(t, tokens[4].Line, 1)
	be.Equal(t, tokens[5].Line, 3)
	be.Equal(t, tokens[10].Line, 4)
	be.Equal(t, tokens[11].Line, 5)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a & b", "line 1: SyntaxError: unexpected character '&'"},
		{"a | b", "unexpected character '|'"},
		{"\n@", "line 2: SyntaxError: unexpected character '@'"},
		{`"abc`, "unterminated string"},
		{"\"ab\ncd\"", "multiline string literals are not allowed"},
		{`"a\qb"`, `invalid escape sequence \q`},
		{"12abc", "invalid character 'a' in integer literal"},
		{"9223372036854775808", "integer literal is too large"},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			_, err := Lex([]byte(test.src))
			be.Err(t, err, test.want)
			be.Equal(t, KindOf(err), SyntaxError)
		})
	}
}
