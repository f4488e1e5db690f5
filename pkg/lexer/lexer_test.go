package lexer

import (
	"testing"

	"lumen/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `fn add(x, y) {
  return x + y
}
# a comment
var n = 10
val pi = 3.14
n += 1
n++
--n
n // 3
n % 2 == 0 and n <= 9 or !done
arr(0).push(1..5)
x = flag ? "yes" : "no"
fn(a) => a * 2
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.RBRACE, "}"},
		{token.VAR, "var"},
		{token.IDENT, "n"},
		{token.ASSIGN, "="},
		{token.INT, "10"},
		{token.VAL, "val"},
		{token.IDENT, "pi"},
		{token.ASSIGN, "="},
		{token.FLOAT, "3.14"},
		{token.IDENT, "n"},
		{token.PLUS_ASSIGN, "+="},
		{token.INT, "1"},
		{token.IDENT, "n"},
		{token.PLUS_PLUS, "++"},
		{token.MINUS_MINUS, "--"},
		{token.IDENT, "n"},
		{token.IDENT, "n"},
		{token.FLOOR_SLASH, "//"},
		{token.INT, "3"},
		{token.IDENT, "n"},
		{token.PERCENT, "%"},
		{token.INT, "2"},
		{token.EQ, "=="},
		{token.INT, "0"},
		{token.AND, "and"},
		{token.IDENT, "n"},
		{token.LTE, "<="},
		{token.INT, "9"},
		{token.OR, "or"},
		{token.BANG, "!"},
		{token.IDENT, "done"},
		{token.IDENT, "arr"},
		{token.LPAREN, "("},
		{token.INT, "0"},
		{token.RPAREN, ")"},
		{token.DOT, "."},
		{token.IDENT, "push"},
		{token.LPAREN, "("},
		{token.INT, "1"},
		{token.DOTDOT, ".."},
		{token.INT, "5"},
		{token.RPAREN, ")"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.IDENT, "flag"},
		{token.QUESTION, "?"},
		{token.STRING, "yes"},
		{token.COLON, ":"},
		{token.STRING, "no"},
		{token.FN, "fn"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.RPAREN, ")"},
		{token.ARROW, "=>"},
		{token.IDENT, "a"},
		{token.ASTERISK, "*"},
		{token.INT, "2"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q, literal=%q",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestRangeDoesNotLexAsFloat(t *testing.T) {
	l := New("1..5")

	tok := l.NextToken()
	if tok.Type != token.INT || tok.Literal != "1" {
		t.Fatalf("expected INT 1, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.DOTDOT {
		t.Fatalf("expected DOTDOT, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.INT || tok.Literal != "5" {
		t.Fatalf("expected INT 5, got %s %q", tok.Type, tok.Literal)
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\t\"c\"\\d\$"`)

	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	expected := "a\nb\t\"c\"\\d$"
	if tok.Literal != expected {
		t.Fatalf("escapes wrong. expected=%q, got=%q", expected, tok.Literal)
	}
}

func TestTemplateDetection(t *testing.T) {
	l := New(`"plain" "hi ${name}!" "${a + {b: 1}(key)}"`)

	tok := l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "plain" {
		t.Fatalf("expected plain STRING, got %s %q", tok.Type, tok.Literal)
	}

	tok = l.NextToken()
	if tok.Type != token.TEMPLATE {
		t.Fatalf("expected TEMPLATE, got %s", tok.Type)
	}
	if tok.Literal != "hi ${name}!" {
		t.Fatalf("template raw wrong. got=%q", tok.Literal)
	}

	// nested braces inside the interpolation are kept intact
	tok = l.NextToken()
	if tok.Type != token.TEMPLATE {
		t.Fatalf("expected TEMPLATE, got %s", tok.Type)
	}
	if tok.Literal != "${a + {b: 1}(key)}" {
		t.Fatalf("template raw wrong. got=%q", tok.Literal)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("a\n  b")

	tok := l.NextToken()
	if tok.Line != 1 {
		t.Errorf("a: expected line 1, got %d", tok.Line)
	}

	tok = l.NextToken()
	if tok.Line != 2 {
		t.Errorf("b: expected line 2, got %d", tok.Line)
	}
	if tok.Column != 3 {
		t.Errorf("b: expected column 3, got %d", tok.Column)
	}
}
