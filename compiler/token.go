package compiler

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types
const (
	// Special tokens
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // main, foo, _bar
	INT    = "INT"    // 12345
	STRING = "STRING" // "text"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LE     = "<="
	GE     = ">="

	AND = "&&"
	OR  = "||"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	DOT       = "."
	POUND     = "#"

	LET         = "LET"
	CONST       = "CONST"
	FN          = "FN"
	STRUCT      = "STRUCT"
	WHILE       = "WHILE"
	IF          = "IF"
	ELSE        = "ELSE"
	TRUE        = "TRUE"
	FALSE       = "FALSE"
	BREAK       = "BREAK"
	RETURN      = "RETURN"
	UNREACHABLE = "UNREACHABLE"
	EXTERN      = "EXTERN"
)

// Token is one lexeme. Literal holds the decoded value of a STRING token;
// Int holds the value of an INT token.
type Token struct {
	Type    TokenType
	Text    string
	Literal string
	Int     int64
	Line    int
}

func lookupKeyword(ident string) TokenType {
	switch ident {
	case "let":
		return LET
	case "const":
		return CONST
	case "fn":
		return FN
	case "struct":
		return STRUCT
	case "while":
		return WHILE
	case "if":
		return IF
	case "else":
		return ELSE
	case "true":
		return TRUE
	case "false":
		return FALSE
	case "break":
		return BREAK
	case "return":
		return RETURN
	case "unreachable":
		return UNREACHABLE
	case "extern":
		return EXTERN
	default:
		return IDENT
	}
}
