package value

import (
	"math"
	"math/big"
	"testing"
)

func testInt(t *testing.T, v Value, expected int64) {
	t.Helper()
	i, ok := v.(*Int)
	if !ok {
		t.Fatalf("value is not Int. got=%T (%s)", v, v.Inspect())
	}
	if int64(i.Value) != expected {
		t.Errorf("wrong value. want=%d, got=%d", expected, i.Value)
	}
}

func testBigInt(t *testing.T, v Value, expected string) {
	t.Helper()
	b, ok := v.(*BigInt)
	if !ok {
		t.Fatalf("value is not BigInt. got=%T (%s)", v, v.Inspect())
	}
	if b.Value.String() != expected {
		t.Errorf("wrong value. want=%s, got=%s", expected, b.Value.String())
	}
}

func testFloat(t *testing.T, v Value, expected float64) {
	t.Helper()
	f, ok := v.(*Float)
	if !ok {
		t.Fatalf("value is not Float. got=%T (%s)", v, v.Inspect())
	}
	if f.Value != expected {
		t.Errorf("wrong value. want=%g, got=%g", expected, f.Value)
	}
}

func TestNewIntNormalization(t *testing.T) {
	testInt(t, NewInt(42), 42)
	testInt(t, NewInt(math.MaxInt32), math.MaxInt32)
	testInt(t, NewInt(math.MinInt32), math.MinInt32)
	testBigInt(t, NewInt(math.MaxInt32+1), "2147483648")
	testBigInt(t, NewInt(math.MinInt32-1), "-2147483649")
}

func TestAddOverflowPromotion(t *testing.T) {
	v, err := Add(&Int{Value: math.MaxInt32}, &Int{Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testBigInt(t, v, "2147483648")

	v, err = Sub(&Int{Value: math.MinInt32}, &Int{Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testBigInt(t, v, "-2147483649")

	v, err = Mul(&Int{Value: 100000}, &Int{Value: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testBigInt(t, v, "10000000000")

	// no overflow stays int32
	v, err = Add(&Int{Value: 1}, &Int{Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testInt(t, v, 3)
}

func TestNegateAtBoundary(t *testing.T) {
	v, err := Negate(&Int{Value: math.MinInt32})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testBigInt(t, v, "2147483648")

	v, err = Negate(&Int{Value: 5})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testInt(t, v, -5)
}

func TestBigIntArithmetic(t *testing.T) {
	big1 := &BigInt{Value: big.NewInt(0).Lsh(big.NewInt(1), 40)} // 2^40
	v, err := Add(big1, &Int{Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testBigInt(t, v, "1099511627777")

	// results that fit again demote back to int32
	v, err = Sub(&BigInt{Value: big.NewInt(math.MaxInt32 + 1)}, &Int{Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testInt(t, v, math.MaxInt32)
}

func TestDivAlwaysFloat(t *testing.T) {
	v, err := Div(&Int{Value: 15}, &Int{Value: 3})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testFloat(t, v, 5.0)

	v, err = Div(&Int{Value: 7}, &Int{Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testFloat(t, v, 3.5)
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(&Int{Value: 1}, &Int{Value: 0})
	if err == nil || err.ErrKind != ErrDivisionByZero {
		t.Fatalf("expected division by zero error, got %v", err)
	}

	_, err = FloorDiv(&Int{Value: 1}, &Int{Value: 0})
	if err == nil || err.ErrKind != ErrDivisionByZero {
		t.Fatalf("expected division by zero error, got %v", err)
	}

	_, err = Mod(&Int{Value: 1}, &Int{Value: 0})
	if err == nil || err.ErrKind != ErrDivisionByZero {
		t.Fatalf("expected modulo by zero error, got %v", err)
	}
}

func TestFloorDivSigns(t *testing.T) {
	tests := []struct {
		a, b     int32
		expected int64
	}{
		{17, 3, 5},
		{-17, 3, -6},
		{17, -3, -6},
		{-17, -3, 5},
		{6, 3, 2},
		{-6, 3, -2},
	}

	for _, tt := range tests {
		v, err := FloorDiv(&Int{Value: tt.a}, &Int{Value: tt.b})
		if err != nil {
			t.Fatalf("%d // %d: unexpected error: %s", tt.a, tt.b, err)
		}
		testInt(t, v, tt.expected)
	}
}

func TestFloorDivBigSigns(t *testing.T) {
	tests := []struct {
		a, b     int64
		expected string
	}{
		{17, 3, "5"},
		{-17, 3, "-6"},
		{17, -3, "-6"},
		{-17, -3, "5"},
	}

	for _, tt := range tests {
		v, err := FloorDiv(&BigInt{Value: big.NewInt(tt.a)}, &BigInt{Value: big.NewInt(tt.b)})
		if err != nil {
			t.Fatalf("%d // %d: unexpected error: %s", tt.a, tt.b, err)
		}
		i, ok := v.(*Int)
		if !ok {
			t.Fatalf("value is not Int. got=%T", v)
		}
		if i.Inspect() != tt.expected {
			t.Errorf("%d // %d: want=%s, got=%s", tt.a, tt.b, tt.expected, i.Inspect())
		}
	}
}

func TestFloorDivFloat(t *testing.T) {
	v, err := FloorDiv(&Float{Value: -17}, &Int{Value: 3})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	testFloat(t, v, -6.0)
}

func TestModKeepsDividendSign(t *testing.T) {
	tests := []struct {
		a, b     int32
		expected int64
	}{
		{17, 3, 2},
		{-17, 3, -2},
		{17, -3, 2},
		{-17, -3, -2},
	}

	for _, tt := range tests {
		v, err := Mod(&Int{Value: tt.a}, &Int{Value: tt.b})
		if err != nil {
			t.Fatalf("%d %% %d: unexpected error: %s", tt.a, tt.b, err)
		}
		testInt(t, v, tt.expected)
	}
}

func TestStringConcat(t *testing.T) {
	tests := []struct {
		left, right Value
		expected    string
	}{
		{&String{Value: "Aug "}, &Int{Value: 23}, "Aug 23"},
		{&Int{Value: 1}, &String{Value: "x"}, "1x"},
		{&String{Value: "v="}, &Float{Value: 2.5}, "v=2.5"},
		{&String{Value: "is "}, TRUE, "is true"},
		{&String{Value: ""}, NULL, "null"},
		{&String{Value: ""}, UNDEFINED, "undefined"},
	}

	for _, tt := range tests {
		v, err := Add(tt.left, tt.right)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		s, ok := v.(*String)
		if !ok {
			t.Fatalf("value is not String. got=%T", v)
		}
		if s.Value != tt.expected {
			t.Errorf("wrong concat. want=%q, got=%q", tt.expected, s.Value)
		}
	}
}

func TestStringifyFloats(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{5.0, "5"},
		{3.5, "3.5"},
		{3.14159265, "3.14159"},
		{1e20, "1e+20"},
	}

	for _, tt := range tests {
		if got := Stringify(&Float{Value: tt.in}); got != tt.expected {
			t.Errorf("Stringify(%g): want=%q, got=%q", tt.in, tt.expected, got)
		}
	}
}

func TestEquals(t *testing.T) {
	tests := []struct {
		left, right Value
		expected    bool
	}{
		{&Int{Value: 1}, &Int{Value: 1}, true},
		{&Int{Value: 1}, &Float{Value: 1.0}, true},
		{&Int{Value: 1}, &BigInt{Value: big.NewInt(1)}, true},
		{&Int{Value: 1}, &Int{Value: 2}, false},
		{&String{Value: "a"}, &String{Value: "a"}, true},
		{&String{Value: "a"}, &Int{Value: 1}, false},
		{TRUE, TRUE, true},
		{TRUE, FALSE, false},
		{NULL, NULL, true},
		{NULL, UNDEFINED, false},
	}

	for _, tt := range tests {
		if got := Equals(tt.left, tt.right); got != tt.expected {
			t.Errorf("Equals(%s, %s): want=%t, got=%t",
				tt.left.Inspect(), tt.right.Inspect(), tt.expected, got)
		}
	}
}

func TestCompare(t *testing.T) {
	c, err := Compare(&Int{Value: 1}, &Float{Value: 1.5})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c >= 0 {
		t.Errorf("1 < 1.5 expected, got cmp=%d", c)
	}

	c, err = Compare(&String{Value: "abc"}, &String{Value: "abd"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c >= 0 {
		t.Errorf("abc < abd expected, got cmp=%d", c)
	}

	_, err = Compare(&Int{Value: 1}, &String{Value: "x"})
	if err == nil || err.ErrKind != ErrTypeMismatch {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v        Value
		expected bool
	}{
		{TRUE, true},
		{FALSE, false},
		{NULL, false},
		{UNDEFINED, false},
		{&Int{Value: 0}, true},
		{&String{Value: ""}, true},
		{&Array{}, true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.expected {
			t.Errorf("Truthy(%s): want=%t, got=%t", tt.v.Inspect(), tt.expected, got)
		}
	}
}

func TestObjectInsertionOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("b", &Int{Value: 1})
	obj.Set("a", &Int{Value: 2})
	obj.Set("b", &Int{Value: 3}) // update must not duplicate the key

	if len(obj.Keys) != 2 || obj.Keys[0] != "b" || obj.Keys[1] != "a" {
		t.Fatalf("wrong key order: %v", obj.Keys)
	}
	if obj.Inspect() != "{b: 3, a: 2}" {
		t.Errorf("wrong Inspect: %s", obj.Inspect())
	}
}

func TestUpvalueCell(t *testing.T) {
	slot := Value(&Int{Value: 1})
	uv := &Upvalue{Location: &slot}

	testInt(t, uv.Get(), 1)
	uv.Set(&Int{Value: 2})
	testInt(t, slot, 2)

	uv.Close()
	slot = &Int{Value: 99} // stale slot must not be visible after close
	testInt(t, uv.Get(), 2)

	uv.Set(&Int{Value: 3})
	testInt(t, uv.Get(), 3)
}
