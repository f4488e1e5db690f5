package vm

import (
	"math/big"
	"sync"
	"testing"

	"lumen/pkg/ast"
	"lumen/pkg/compiler"
	"lumen/pkg/lexer"
	"lumen/pkg/parser"
	"lumen/pkg/value"
)

type vmTestCase struct {
	input    string
	expected interface{}
}

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return program
}

func runVM(t *testing.T, input string) (value.Value, error) {
	t.Helper()
	prog, err := compiler.New().Compile(parse(t, input))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	return New(prog).Execute()
}

func runVmTests(t *testing.T, tests []vmTestCase) {
	t.Helper()

	for _, tt := range tests {
		result, err := runVM(t, tt.input)
		if err != nil {
			t.Fatalf("input %q: vm error: %s", tt.input, err)
		}
		testExpectedValue(t, tt.input, tt.expected, result)
	}
}

func testExpectedValue(t *testing.T, input string, expected interface{}, actual value.Value) {
	t.Helper()

	switch expected := expected.(type) {
	case int:
		v, ok := actual.(*value.Int)
		if !ok {
			t.Fatalf("input %q: not Int. got=%T (%s)", input, actual, actual.Inspect())
		}
		if int(v.Value) != expected {
			t.Errorf("input %q: want=%d, got=%d", input, expected, v.Value)
		}
	case float64:
		v, ok := actual.(*value.Float)
		if !ok {
			t.Fatalf("input %q: not Float. got=%T (%s)", input, actual, actual.Inspect())
		}
		if v.Value != expected {
			t.Errorf("input %q: want=%g, got=%g", input, expected, v.Value)
		}
	case string:
		v, ok := actual.(*value.String)
		if !ok {
			t.Fatalf("input %q: not String. got=%T (%s)", input, actual, actual.Inspect())
		}
		if v.Value != expected {
			t.Errorf("input %q: want=%q, got=%q", input, expected, v.Value)
		}
	case bool:
		v, ok := actual.(*value.Bool)
		if !ok {
			t.Fatalf("input %q: not Bool. got=%T (%s)", input, actual, actual.Inspect())
		}
		if v.Value != expected {
			t.Errorf("input %q: want=%t, got=%t", input, expected, v.Value)
		}
	case *big.Int:
		v, ok := actual.(*value.BigInt)
		if !ok {
			t.Fatalf("input %q: not BigInt. got=%T (%s)", input, actual, actual.Inspect())
		}
		if v.Value.Cmp(expected) != 0 {
			t.Errorf("input %q: want=%s, got=%s", input, expected, v.Value)
		}
	case nil:
		if actual != value.NULL {
			t.Errorf("input %q: want null, got=%T (%s)", input, actual, actual.Inspect())
		}
	default:
		t.Fatalf("input %q: unhandled expectation %T", input, expected)
	}
}

func expectRuntimeError(t *testing.T, input string, kind value.ErrorKind) {
	t.Helper()
	_, err := runVM(t, input)
	if err == nil {
		t.Fatalf("input %q: expected %s error, got none", input, kind)
	}
	re, ok := err.(*value.RuntimeError)
	if !ok {
		t.Fatalf("input %q: error is not RuntimeError: %v", input, err)
	}
	if re.ErrKind != kind {
		t.Fatalf("input %q: want %s, got %s (%s)", input, kind, re.ErrKind, re.Message)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"1 + 2", 3},
		{"4 - 7", -3},
		{"3 * (2 + 4)", 18},
		{"15 / 3", 5.0},
		{"7 / 2", 3.5},
		{"17 // 3", 5},
		{"-17 // 3", -6},
		{"17 % 3", 2},
		{"-17 % 3", -2},
		{"2.5 + 1", 3.5},
		{"-(5 + 3)", -8},
		{"2147483647 + 1", big.NewInt(2147483648)},
		{"100000 * 100000", big.NewInt(10000000000)},
		{"2147483648 - 1", 2147483647},
	}

	runVmTests(t, tests)
}

func TestStringOperations(t *testing.T) {
	tests := []vmTestCase{
		{`"foo" + "bar"`, "foobar"},
		{`"Aug " + 23`, "Aug 23"},
		{`1 + "x"`, "1x"},
		{`"abc".toUpper()`, "ABC"},
		{`"hello"(1)`, "e"},
		{`"a,b,c".split(",").length()`, 3},
	}

	runVmTests(t, tests)
}

func TestBooleansAndComparisons(t *testing.T) {
	tests := []vmTestCase{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"1 > 2", false},
		{"1 == 1.0", true},
		{"1 != 2", true},
		{`"a" == "a"`, true},
		{"!true", false},
		{"!0", false},
		{"null == null", true},
		{"null == undefined", false},
	}

	runVmTests(t, tests)
}

func TestShortCircuitEvaluation(t *testing.T) {
	tests := []vmTestCase{
		{"false and 1", false},
		{"2 and 3", 3},
		{"2 or 3", 2},
		{"false or 3", 3},
		{"null or \"fallback\"", "fallback"},
		// the right side must not run when the left decides
		{`
var calls = 0
fn bump() { calls += 1 return true }
false and bump()
true or bump()
calls
`, 0},
	}

	runVmTests(t, tests)
}

func TestConditionals(t *testing.T) {
	tests := []vmTestCase{
		{"if (true) { 10 }", 10},
		{"if (false) { 10 } else { 20 }", 20},
		{"if (1 < 2) { 10 } else { 20 }", 10},
		{"true ? 1 : 2", 1},
		{"false ? 1 : 2", 2},
		{"var x = 0 if (x == 0) { x = 5 } x", 5},
	}

	runVmTests(t, tests)
}

func TestGlobalsAndLocals(t *testing.T) {
	tests := []vmTestCase{
		{"var x = 5 x", 5},
		{"var x = 5 x = x + 1 x", 6},
		{"var x = 1 x += 4 x", 5},
		{"{ var a = 2 var b = 3 a * b }", 6},
		{"var a = 1 { var a = 2 } a", 1},
	}

	runVmTests(t, tests)
}

func TestImmutableGlobal(t *testing.T) {
	expectRuntimeError(t, "val x = 1 x = 2", value.ErrImmutableAssign)
	expectRuntimeError(t, "val x = 1 x += 1", value.ErrImmutableAssign)
}

func TestUndefinedGlobal(t *testing.T) {
	expectRuntimeError(t, "missing", value.ErrUndefinedVariable)
	expectRuntimeError(t, "y = 1", value.ErrUndefinedVariable)
}

func TestLoops(t *testing.T) {
	tests := []vmTestCase{
		{`
var sum = 0
for (var i = 0; i < 5; i++) { sum += i }
sum
`, 10},
		{`
var sum = 0
for (var i = 0; i < 5; i++) {
  if (i == 3) { continue }
  sum += i
}
sum
`, 7},
		{`
var n = 0
while (n < 4) { n++ }
n
`, 4},
		{`
var n = 0
do { n++ } while (false)
n
`, 1},
		{`
var n = 0
do {
  n++
  if (n < 9) { continue }
} while (n < 5)
n
`, 9},
		{`
var n = 0
loop {
  n++
  if (n == 3) { break }
}
n
`, 3},
	}

	runVmTests(t, tests)
}

func TestIncrementDecrement(t *testing.T) {
	tests := []vmTestCase{
		{"var x = 1 val old = x++ old * 10 + x", 12},
		{"var x = 1 val new = ++x new * 10 + x", 22},
		{"var x = 5 x-- x", 4},
		{"val o = {n: 1} o.n++ o.n", 2},
		{"val o = {n: 1} val old = o.n++ old", 1},
		{"val a = [5] a(0)++ a(0)", 6},
	}

	runVmTests(t, tests)
}

func TestFunctions(t *testing.T) {
	tests := []vmTestCase{
		{"fn add(a, b) { return a + b } add(2, 3)", 5},
		{"val f = fn(x) => x * 2 f(21)", 42},
		// falling off the end of a block body yields null
		{"fn noReturn() { 1 } noReturn()", nil},
		{"fn noReturn() { 1 } noReturn() == null", true},
		{"fn bare() { return } bare()", nil},
		// surplus arguments are dropped
		{"fn f(a) { return a } f(1, 2)", 1},
		{`
fn fib(n) {
  if (n < 2) { return n }
  return fib(n - 1) + fib(n - 2)
}
fib(10)
`, 55},
		{`
fn apply(f, x) { return f(x) }
apply(fn(n) => n + 1, 41)
`, 42},
	}

	runVmTests(t, tests)
}

func TestMissingArguments(t *testing.T) {
	expectRuntimeError(t, "fn f(a, b) { return a } f(1)", value.ErrTypeMismatch)
}

func TestNotCallable(t *testing.T) {
	expectRuntimeError(t, "1(2)", value.ErrNotCallable)
}

func TestClosures(t *testing.T) {
	tests := []vmTestCase{
		{`
fn makeCounter() {
  var count = 0
  return fn() {
    count++
    return count
  }
}
val c = makeCounter()
c()
c()
c()
`, 3},
		{`
fn makeAdder(x) { return fn(y) => x + y }
val add5 = makeAdder(5)
add5(37)
`, 42},
		// separate instances do not share cells
		{`
fn makeCounter() {
  var count = 0
  return fn() {
    count++
    return count
  }
}
val a = makeCounter()
val b = makeCounter()
a()
a()
b()
`, 1},
	}

	runVmTests(t, tests)
}

func TestStackOverflow(t *testing.T) {
	expectRuntimeError(t, "fn f() { return f() } f()", value.ErrStackOverflow)
}

func TestArrays(t *testing.T) {
	tests := []vmTestCase{
		{"[1, 2, 3](1)", 2},
		{"[1, 2, 3].length()", 3},
		{"val a = [1, 2, 3] a(1) = 9 a(1)", 9},
		{"val a = [1] a.push(2) a.length()", 2},
		{"[1, 2, 3].map(fn(x) => x * 2)(1)", 4},
		{"[1, 2, 3, 4].filter(fn(x) => x % 2 == 0).length()", 2},
	}

	runVmTests(t, tests)
}

func TestArrayBounds(t *testing.T) {
	expectRuntimeError(t, "[1, 2, 3](3)", value.ErrIndexOutOfBounds)
	expectRuntimeError(t, "[1](-1)", value.ErrIndexOutOfBounds)
}

func TestObjects(t *testing.T) {
	tests := []vmTestCase{
		{`val o = {a: 1, b: 2} o.a + o.b`, 3},
		{`val o = {a: 1} o.b == undefined`, true},
		{`val o = {a: 1} o("a")`, 1},
		{`val o = {a: 1} o("missing") == undefined`, true},
		{`val o = {a: 1} o.a = 9 o.a`, 9},
		{`val o = {} o.x = 3 o.x`, 3},
		{`val o = {n: 10} o.n += 5 o.n`, 15},
		{`val o = {a: 1, b: 2} o.keys()(1)`, "b"},
		// a callable property dispatches like a method with the object bound
		{`
val o = {n: 2}
o.twice = fn(x) => x * 2
o.twice(21)
`, 42},
	}

	runVmTests(t, tests)
}

func TestRanges(t *testing.T) {
	tests := []vmTestCase{
		{"(1..5).length()", 4},
		{"(1..5).toArray()(0)", 1},
		{"(1..5).toArray()(3)", 4},
	}

	runVmTests(t, tests)
}

func TestTemplateLiterals(t *testing.T) {
	tests := []vmTestCase{
		{`val name = "world" "hi ${name}!"`, "hi world!"},
		{`"${1 + 2} items"`, "3 items"},
		{`val x = 2.0 "x is ${x * 2}"`, "x is 4"},
	}

	runVmTests(t, tests)
}

func TestDivisionByZero(t *testing.T) {
	expectRuntimeError(t, "1 / 0", value.ErrDivisionByZero)
	expectRuntimeError(t, "1 // 0", value.ErrDivisionByZero)
	expectRuntimeError(t, "1 % 0", value.ErrDivisionByZero)
	expectRuntimeError(t, "1.5 / 0", value.ErrDivisionByZero)
}

func TestTypeMismatch(t *testing.T) {
	expectRuntimeError(t, "true + 1", value.ErrTypeMismatch)
	expectRuntimeError(t, `"a" < 1`, value.ErrTypeMismatch)
}

func TestHostGlobals(t *testing.T) {
	prog, err := compiler.New().Compile(parse(t, "limit * 2"))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	machine := New(prog)
	machine.SetGlobal("limit", value.NewInt(21))
	result, err := machine.Execute()
	if err != nil {
		t.Fatalf("vm error: %s", err)
	}
	testExpectedValue(t, "limit * 2", 42, result)
}

func TestWithProgramKeepsGlobals(t *testing.T) {
	first, err := compiler.New().Compile(parse(t, "var x = 40"))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	machine := New(first)
	if _, err := machine.Execute(); err != nil {
		t.Fatalf("vm error: %s", err)
	}

	second, err := compiler.New().Compile(parse(t, "x + 2"))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	result, err := machine.WithProgram(second).Execute()
	if err != nil {
		t.Fatalf("vm error: %s", err)
	}
	testExpectedValue(t, "x + 2", 42, result)
}

func TestDebugAnnotatesErrors(t *testing.T) {
	source := "var a = 1\nvar b = a / 0"
	prog, err := compiler.NewDebug().Compile(parse(t, source))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	_, err = New(prog).Execute()
	re, ok := err.(*value.RuntimeError)
	if !ok {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if re.ErrKind != value.ErrDivisionByZero {
		t.Fatalf("wrong kind: %s", re.ErrKind)
	}
	if re.Line != 2 {
		t.Errorf("wrong line: %d", re.Line)
	}
}

func TestCallValueFromHost(t *testing.T) {
	prog, err := compiler.New().Compile(parse(t, "fn double(x) { return x * 2 }"))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	machine := New(prog)
	if _, err := machine.Execute(); err != nil {
		t.Fatalf("vm error: %s", err)
	}

	double, ok := machine.GetGlobal("double")
	if !ok {
		t.Fatal("double not defined")
	}
	result, err := machine.CallValue(double, []value.Value{value.NewInt(21)})
	if err != nil {
		t.Fatalf("CallValue error: %s", err)
	}
	testExpectedValue(t, "double(21)", 42, result)
}

func TestRunClosureConcurrentGlobals(t *testing.T) {
	source := `
var counter = 0
fn bump(n) {
  counter = counter + n
  return counter
}
`
	prog, err := compiler.New().Compile(parse(t, source))
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	machine := New(prog)
	if _, err := machine.Execute(); err != nil {
		t.Fatalf("vm error: %s", err)
	}

	bump, ok := machine.GetGlobal("bump")
	if !ok {
		t.Fatal("bump not defined")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := machine.RunClosure(bump, []value.Value{value.NewInt(1)}); err != nil {
				t.Errorf("RunClosure error: %s", err)
			}
		}()
	}
	wg.Wait()

	counter, ok := machine.GetGlobal("counter")
	if !ok {
		t.Fatal("counter not defined")
	}
	if _, ok := counter.(*value.Int); !ok {
		t.Fatalf("counter is not an int: %T (%s)", counter, counter.Inspect())
	}
}
