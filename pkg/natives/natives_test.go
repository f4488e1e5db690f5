package natives

import (
	"strings"
	"testing"

	"lumen/pkg/compiler"
	"lumen/pkg/lexer"
	"lumen/pkg/parser"
	"lumen/pkg/value"
	"lumen/pkg/vm"
)

func run(t *testing.T, input string) value.Value {
	t.Helper()

	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}

	prog, err := compiler.New().Compile(program)
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	machine := vm.New(prog)
	InstallCore(machine)
	InstallAuth(machine)

	result, err := machine.Execute()
	if err != nil {
		t.Fatalf("input %q: vm error: %s", input, err)
	}
	return result
}

func runString(t *testing.T, input string) string {
	t.Helper()
	v := run(t, input)
	s, ok := v.(*value.String)
	if !ok {
		t.Fatalf("input %q: not String. got=%T (%s)", input, v, v.Inspect())
	}
	return s.Value
}

func TestTypeNative(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`type(1)`, "int"},
		{`type(1.5)`, "float"},
		{`type("x")`, "string"},
		{`type(true)`, "bool"},
		{`type(null)`, "null"},
		{`type([1])`, "array"},
		{`type({a: 1})`, "object"},
		{`type(fn() { })`, "closure"},
		{`type(2147483648)`, "bigint"},
	}

	for _, tt := range tests {
		if got := runString(t, tt.input); got != tt.expected {
			t.Errorf("%s: want=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestLenNative(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{`len("abc")`, 3},
		{`len([1, 2])`, 2},
		{`len({a: 1, b: 2, c: 3})`, 3},
		{`len("")`, 0},
	}

	for _, tt := range tests {
		v := run(t, tt.input)
		i, ok := v.(*value.Int)
		if !ok {
			t.Fatalf("%s: not Int. got=%T", tt.input, v)
		}
		if i.Value != tt.expected {
			t.Errorf("%s: want=%d, got=%d", tt.input, tt.expected, i.Value)
		}
	}
}

func TestStrNative(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`str(42)`, "42"},
		{`str(2.5)`, "2.5"},
		{`str(true)`, "true"},
		{`str(null)`, "null"},
	}

	for _, tt := range tests {
		if got := runString(t, tt.input); got != tt.expected {
			t.Errorf("%s: want=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestEnvNative(t *testing.T) {
	t.Setenv("LUMEN_TEST_VAR", "hello")

	if got := runString(t, `env("LUMEN_TEST_VAR")`); got != "hello" {
		t.Errorf("env: want=%q, got=%q", "hello", got)
	}

	v := run(t, `env("LUMEN_TEST_VAR_MISSING")`)
	if v != value.UNDEFINED {
		t.Errorf("missing env var: want undefined, got %s", v.Inspect())
	}
}

func TestClockNative(t *testing.T) {
	v := run(t, `clock()`)
	f, ok := v.(*value.Float)
	if !ok {
		t.Fatalf("clock: not Float. got=%T", v)
	}
	if f.Value <= 0 {
		t.Errorf("clock: implausible value %g", f.Value)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash := runString(t, `auth.hashPassword("s3cret")`)
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash does not look like bcrypt: %q", hash)
	}

	v := run(t, `auth.verifyPassword(auth.hashPassword("s3cret"), "s3cret")`)
	if v != value.TRUE {
		t.Errorf("matching password: want true, got %s", v.Inspect())
	}

	v = run(t, `auth.verifyPassword(auth.hashPassword("s3cret"), "wrong")`)
	if v != value.FALSE {
		t.Errorf("wrong password: want false, got %s", v.Inspect())
	}
}

func TestTokenRoundTrip(t *testing.T) {
	v := run(t, `
val token = auth.sign({sub: "user-1", admin: true}, "secret", "1h")
val claims = auth.verify(token, "secret")
claims.sub + ":" + claims.admin
`)
	s, ok := v.(*value.String)
	if !ok {
		t.Fatalf("not String. got=%T (%s)", v, v.Inspect())
	}
	if s.Value != "user-1:true" {
		t.Errorf("claims wrong: %q", s.Value)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	v := run(t, `
val token = auth.sign({sub: "user-1"}, "secret", "1h")
auth.verify(token, "other")
`)
	if v != value.UNDEFINED {
		t.Errorf("wrong secret: want undefined, got %s", v.Inspect())
	}
}

func TestTokenCarriesExpiry(t *testing.T) {
	v := run(t, `
val token = auth.sign({sub: "u"}, "secret", "1h")
val claims = auth.verify(token, "secret")
type(claims.exp)
`)
	s := v.(*value.String)
	if s.Value != "int" && s.Value != "bigint" {
		t.Errorf("exp claim type wrong: %q", s.Value)
	}
}
