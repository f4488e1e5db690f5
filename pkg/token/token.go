package token

import "fmt"

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers & Literals
	IDENT    = "IDENT"
	INT      = "INT"
	FLOAT    = "FLOAT"
	STRING   = "STRING"
	TEMPLATE = "TEMPLATE"

	// Operators
	ASSIGN      = "="
	PLUS        = "+"
	MINUS       = "-"
	BANG        = "!"
	ASTERISK    = "*"
	SLASH       = "/"
	FLOOR_SLASH = "//"
	PERCENT     = "%"

	PLUS_PLUS   = "++"
	MINUS_MINUS = "--"

	PLUS_ASSIGN     = "+="
	MINUS_ASSIGN    = "-="
	ASTERISK_ASSIGN = "*="
	SLASH_ASSIGN    = "/="
	PERCENT_ASSIGN  = "%="

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LTE    = "<="
	GTE    = ">="

	QUESTION = "?"
	DOTDOT   = ".."

	// Delimiters
	COMMA     = ","
	COLON     = ":"
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	ARROW     = "=>"
	DOT       = "."

	// Keywords
	VAR       = "VAR"
	VAL       = "VAL"
	FN        = "FN"
	RETURN    = "RETURN"
	IF        = "IF"
	ELSE      = "ELSE"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"
	UNDEFINED = "UNDEFINED"
	FOR       = "FOR"
	WHILE     = "WHILE"
	DO        = "DO"
	LOOP      = "LOOP"
	BREAK     = "BREAK"
	CONTINUE  = "CONTINUE"
	AND       = "AND"
	OR        = "OR"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"var":       VAR,
	"val":       VAL,
	"fn":        FN,
	"return":    RETURN,
	"if":        IF,
	"else":      ELSE,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
	"for":       FOR,
	"while":     WHILE,
	"do":        DO,
	"loop":      LOOP,
	"break":     BREAK,
	"continue":  CONTINUE,
	"and":       AND,
	"or":        OR,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
