package value

import (
	"math"
	"math/big"
)

// Binary arithmetic over the numeric tower. int32 operands are widened
// to int64, combined, and the result normalized back through NewInt so
// overflow promotes to bigint instead of wrapping. If either side of +
// is a string the other side is stringified and concatenated.

func Add(left, right Value) (Value, *RuntimeError) {
	if left.Kind() == KindString || right.Kind() == KindString {
		return &String{Value: Stringify(left) + Stringify(right)}, nil
	}
	return numericBinary("+", left, right,
		func(a, b int64) Value { return NewInt(a + b) },
		func(a, b *big.Int) Value { return normalizeBig(new(big.Int).Add(a, b)) },
		func(a, b float64) (Value, *RuntimeError) { return &Float{Value: a + b}, nil })
}

func Sub(left, right Value) (Value, *RuntimeError) {
	return numericBinary("-", left, right,
		func(a, b int64) Value { return NewInt(a - b) },
		func(a, b *big.Int) Value { return normalizeBig(new(big.Int).Sub(a, b)) },
		func(a, b float64) (Value, *RuntimeError) { return &Float{Value: a - b}, nil })
}

func Mul(left, right Value) (Value, *RuntimeError) {
	return numericBinary("*", left, right,
		func(a, b int64) Value { return NewInt(a * b) },
		func(a, b *big.Int) Value { return normalizeBig(new(big.Int).Mul(a, b)) },
		func(a, b float64) (Value, *RuntimeError) { return &Float{Value: a * b}, nil })
}

// Div always produces a float, whatever the operand kinds.
func Div(left, right Value) (Value, *RuntimeError) {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, NewError(ErrTypeMismatch, "cannot divide %s by %s", left.Kind(), right.Kind())
	}
	if rf == 0 {
		return nil, NewError(ErrDivisionByZero, "division by zero")
	}
	return &Float{Value: lf / rf}, nil
}

// FloorDiv floors toward negative infinity for every sign combination.
func FloorDiv(left, right Value) (Value, *RuntimeError) {
	return numericBinary("//", left, right,
		func(a, b int64) Value {
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			return NewInt(q)
		},
		func(a, b *big.Int) Value {
			q := new(big.Int)
			m := new(big.Int)
			q.DivMod(a, b, m) // Euclidean; adjust for negative divisor
			if m.Sign() != 0 && b.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			}
			return normalizeBig(q)
		},
		func(a, b float64) (Value, *RuntimeError) { return &Float{Value: math.Floor(a / b)}, nil })
}

// Mod keeps the dividend's sign, matching Go's % and big.Int.Rem.
func Mod(left, right Value) (Value, *RuntimeError) {
	return numericBinary("%", left, right,
		func(a, b int64) Value { return NewInt(a % b) },
		func(a, b *big.Int) Value { return normalizeBig(new(big.Int).Rem(a, b)) },
		func(a, b float64) (Value, *RuntimeError) { return &Float{Value: math.Mod(a, b)}, nil })
}

func Negate(v Value) (Value, *RuntimeError) {
	switch v := v.(type) {
	case *Int:
		// -MinInt32 does not fit in int32
		return NewInt(-int64(v.Value)), nil
	case *BigInt:
		return normalizeBig(new(big.Int).Neg(v.Value)), nil
	case *Float:
		return &Float{Value: -v.Value}, nil
	}
	return nil, NewError(ErrTypeMismatch, "cannot negate %s", v.Kind())
}

// Increment and Decrement back the ++/-- operators; they promote at the
// int32 boundary like Add/Sub.
func Increment(v Value) (Value, *RuntimeError) {
	return Add(v, &Int{Value: 1})
}

func Decrement(v Value) (Value, *RuntimeError) {
	return Sub(v, &Int{Value: 1})
}

func Equals(left, right Value) bool {
	if isNumeric(left) && isNumeric(right) {
		c, ok := compareNumeric(left, right)
		return ok && c == 0
	}
	switch l := left.(type) {
	case *String:
		r, ok := right.(*String)
		return ok && l.Value == r.Value
	case *Bool:
		r, ok := right.(*Bool)
		return ok && l.Value == r.Value
	case *Null:
		_, ok := right.(*Null)
		return ok
	case *Undefined:
		_, ok := right.(*Undefined)
		return ok
	}
	return left == right
}

// Compare returns -1, 0 or 1 for ordered operands. Numbers compare
// across kinds; strings compare lexicographically.
func Compare(left, right Value) (int, *RuntimeError) {
	if isNumeric(left) && isNumeric(right) {
		c, _ := compareNumeric(left, right)
		return c, nil
	}
	if l, ok := left.(*String); ok {
		if r, ok := right.(*String); ok {
			switch {
			case l.Value < r.Value:
				return -1, nil
			case l.Value > r.Value:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, NewError(ErrTypeMismatch, "cannot compare %s with %s", left.Kind(), right.Kind())
}

func isNumeric(v Value) bool {
	switch v.Kind() {
	case KindInt, KindBigInt, KindFloat:
		return true
	}
	return false
}

func compareNumeric(left, right Value) (int, bool) {
	if left.Kind() == KindFloat || right.Kind() == KindFloat {
		lf, _ := toFloat(left)
		rf, _ := toFloat(right)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		}
		return 0, true
	}
	return asBig(left).Cmp(asBig(right)), true
}

// numericBinary dispatches on operand kinds: both int32 takes the widened
// int64 path, any bigint takes the big path, any float takes the float
// path. Division-like ops check for a zero divisor first.
func numericBinary(
	op string,
	left, right Value,
	intFn func(a, b int64) Value,
	bigFn func(a, b *big.Int) Value,
	floatFn func(a, b float64) (Value, *RuntimeError),
) (Value, *RuntimeError) {
	if !isNumeric(left) || !isNumeric(right) {
		return nil, NewError(ErrTypeMismatch, "unsupported operands for %s: %s and %s", op, left.Kind(), right.Kind())
	}

	divides := op == "//" || op == "%"
	if left.Kind() == KindFloat || right.Kind() == KindFloat {
		lf, _ := toFloat(left)
		rf, _ := toFloat(right)
		if divides && rf == 0 {
			return nil, divZeroError(op)
		}
		return floatFn(lf, rf)
	}

	if left.Kind() == KindBigInt || right.Kind() == KindBigInt {
		lb, rb := asBig(left), asBig(right)
		if divides && rb.Sign() == 0 {
			return nil, divZeroError(op)
		}
		return bigFn(lb, rb), nil
	}

	li := int64(left.(*Int).Value)
	ri := int64(right.(*Int).Value)
	if divides && ri == 0 {
		return nil, divZeroError(op)
	}
	return intFn(li, ri), nil
}

func divZeroError(op string) *RuntimeError {
	if op == "%" {
		return NewError(ErrDivisionByZero, "modulo by zero")
	}
	return NewError(ErrDivisionByZero, "division by zero")
}

func asBig(v Value) *big.Int {
	switch v := v.(type) {
	case *Int:
		return big.NewInt(int64(v.Value))
	case *BigInt:
		return v.Value
	}
	return nil
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case *Int:
		return float64(v.Value), true
	case *BigInt:
		f, _ := new(big.Float).SetInt(v.Value).Float64()
		return f, true
	case *Float:
		return v.Value, true
	}
	return 0, false
}

// normalizeBig demotes a bigint result back to int32 when it fits, so
// arithmetic that wanders above the boundary and back stays cheap.
func normalizeBig(b *big.Int) Value {
	if b.IsInt64() {
		return NewInt(b.Int64())
	}
	return &BigInt{Value: b}
}
