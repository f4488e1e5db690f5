package lexer

import (
	"strings"

	"lumen/pkg/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.position = l.readPosition
	l.readPosition += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	// # starts a line comment
	if l.ch == '#' {
		l.skipComment()
		return l.NextToken()
	}

	line, col := l.line, l.column

	switch l.ch {
	case '=':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Line: line, Column: col}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.ARROW, Literal: "=>", Line: line, Column: col}
		default:
			tok = newToken(token.ASSIGN, l.ch, line, col)
		}
	case '+':
		switch l.peekChar() {
		case '+':
			l.readChar()
			tok = token.Token{Type: token.PLUS_PLUS, Literal: "++", Line: line, Column: col}
		case '=':
			l.readChar()
			tok = token.Token{Type: token.PLUS_ASSIGN, Literal: "+=", Line: line, Column: col}
		default:
			tok = newToken(token.PLUS, l.ch, line, col)
		}
	case '-':
		switch l.peekChar() {
		case '-':
			l.readChar()
			tok = token.Token{Type: token.MINUS_MINUS, Literal: "--", Line: line, Column: col}
		case '=':
			l.readChar()
			tok = token.Token{Type: token.MINUS_ASSIGN, Literal: "-=", Line: line, Column: col}
		default:
			tok = newToken(token.MINUS, l.ch, line, col)
		}
	case '*':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.ASTERISK_ASSIGN, Literal: "*=", Line: line, Column: col}
		} else {
			tok = newToken(token.ASTERISK, l.ch, line, col)
		}
	case '/':
		switch l.peekChar() {
		case '/':
			l.readChar()
			tok = token.Token{Type: token.FLOOR_SLASH, Literal: "//", Line: line, Column: col}
		case '=':
			l.readChar()
			tok = token.Token{Type: token.SLASH_ASSIGN, Literal: "/=", Line: line, Column: col}
		default:
			tok = newToken(token.SLASH, l.ch, line, col)
		}
	case '%':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.PERCENT_ASSIGN, Literal: "%=", Line: line, Column: col}
		} else {
			tok = newToken(token.PERCENT, l.ch, line, col)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOT_EQ, Literal: "!=", Line: line, Column: col}
		} else {
			tok = newToken(token.BANG, l.ch, line, col)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<=", Line: line, Column: col}
		} else {
			tok = newToken(token.LT, l.ch, line, col)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">=", Line: line, Column: col}
		} else {
			tok = newToken(token.GT, l.ch, line, col)
		}
	case '?':
		tok = newToken(token.QUESTION, l.ch, line, col)
	case ',':
		tok = newToken(token.COMMA, l.ch, line, col)
	case ':':
		tok = newToken(token.COLON, l.ch, line, col)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, line, col)
	case '(':
		tok = newToken(token.LPAREN, l.ch, line, col)
	case ')':
		tok = newToken(token.RPAREN, l.ch, line, col)
	case '{':
		tok = newToken(token.LBRACE, l.ch, line, col)
	case '}':
		tok = newToken(token.RBRACE, l.ch, line, col)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, line, col)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, line, col)
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			tok = token.Token{Type: token.DOTDOT, Literal: "..", Line: line, Column: col}
		} else {
			tok = newToken(token.DOT, l.ch, line, col)
		}
	case '"':
		raw, interpolated := l.readString()
		typ := token.TokenType(token.STRING)
		if interpolated {
			typ = token.TEMPLATE
		}
		tok = token.Token{Type: typ, Literal: raw, Line: line, Column: col}
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Line = line
		tok.Column = col
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Line = line
			tok.Column = col
			return tok
		} else if isDigit(l.ch) {
			lit, isFloat := l.readNumber()
			tok.Literal = lit
			if isFloat {
				tok.Type = token.FLOAT
			} else {
				tok.Type = token.INT
			}
			tok.Line = line
			tok.Column = col
			return tok
		}
		tok = newToken(token.ILLEGAL, l.ch, line, col)
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func newToken(tokenType token.TokenType, ch byte, line, col int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Line: line, Column: col}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	// A '.' starts a fraction only when followed by a digit; `1..5` must
	// lex as INT DOTDOT INT.
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], isFloat
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// readString scans a double-quoted string. Escape sequences in static
// text are resolved here; interpolation segments `${...}` are kept raw so
// the parser can compile them, and their presence flags the token as a
// TEMPLATE. Positioned on the opening quote; leaves l.ch on the closing
// quote for the caller's readChar.
func (l *Lexer) readString() (string, bool) {
	var result strings.Builder
	interpolated := false
	l.readChar() // skip opening quote

	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			case '$':
				result.WriteByte('$')
			case '0':
				result.WriteByte('\x00')
			default:
				result.WriteByte('\\')
				result.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		if l.ch == '$' && l.peekChar() == '{' {
			interpolated = true
			result.WriteByte('$')
			result.WriteByte('{')
			l.readChar() // on '{'
			l.readChar() // first expression char
			depth := 1
			for depth > 0 && l.ch != 0 {
				if l.ch == '{' {
					depth++
				} else if l.ch == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				result.WriteByte(l.ch)
				l.readChar()
			}
			result.WriteByte('}')
			if l.ch != 0 {
				l.readChar()
			}
			continue
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	return result.String(), interpolated
}
