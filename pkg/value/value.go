package value

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"strings"
)

type Kind int

const (
	KindInt Kind = iota
	KindBigInt
	KindFloat
	KindBool
	KindNull
	KindUndefined
	KindString
	KindArray
	KindObject
	KindBuffer
	KindBuilder
	KindReader
	KindRange
	KindIterator
	KindFunction
	KindClosure
	KindNative
	KindBoundMethod
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindBuffer:
		return "buffer"
	case KindBuilder:
		return "builder"
	case KindReader:
		return "reader"
	case KindRange:
		return "range"
	case KindIterator:
		return "iterator"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindNative:
		return "native"
	case KindBoundMethod:
		return "bound method"
	}
	return "unknown"
}

type Value interface {
	Kind() Kind
	Inspect() string
}

type Int struct {
	Value int32
}

func (i *Int) Kind() Kind      { return KindInt }
func (i *Int) Inspect() string { return fmt.Sprintf("%d", i.Value) }

type BigInt struct {
	Value *big.Int
}

func (b *BigInt) Kind() Kind      { return KindBigInt }
func (b *BigInt) Inspect() string { return b.Value.String() }

type Float struct {
	Value float64
}

func (f *Float) Kind() Kind      { return KindFloat }
func (f *Float) Inspect() string { return formatFloat(f.Value) }

type Bool struct {
	Value bool
}

func (b *Bool) Kind() Kind      { return KindBool }
func (b *Bool) Inspect() string { return fmt.Sprintf("%t", b.Value) }

type Null struct{}

func (n *Null) Kind() Kind      { return KindNull }
func (n *Null) Inspect() string { return "null" }

type Undefined struct{}

func (u *Undefined) Kind() Kind      { return KindUndefined }
func (u *Undefined) Inspect() string { return "undefined" }

type String struct {
	Value string
}

func (s *String) Kind() Kind      { return KindString }
func (s *String) Inspect() string { return s.Value }

type Array struct {
	Elements []Value
}

func (a *Array) Kind() Kind { return KindArray }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, el := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(inspectQuoted(el))
	}
	out.WriteString("]")
	return out.String()
}

// Object is a string-keyed map with insertion-ordered keys so Inspect
// and keys() are deterministic.
type Object struct {
	Pairs map[string]Value
	Keys  []string
}

func NewObject() *Object {
	return &Object{Pairs: make(map[string]Value)}
}

func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Pairs[key]
	return v, ok
}

func (o *Object) Set(key string, v Value) {
	if _, exists := o.Pairs[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Pairs[key] = v
}

func (o *Object) Kind() Kind { return KindObject }
func (o *Object) Inspect() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range o.Keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k)
		out.WriteString(": ")
		out.WriteString(inspectQuoted(o.Pairs[k]))
	}
	out.WriteString("}")
	return out.String()
}

type Buffer struct {
	Data []byte
}

func (b *Buffer) Kind() Kind      { return KindBuffer }
func (b *Buffer) Inspect() string { return fmt.Sprintf("buffer(%d)", len(b.Data)) }

// Builder accumulates string parts; template literals compile to a
// builder construction followed by append calls.
type Builder struct {
	buf strings.Builder
}

func (b *Builder) Append(s string)  { b.buf.WriteString(s) }
func (b *Builder) String() string   { return b.buf.String() }
func (b *Builder) Kind() Kind       { return KindBuilder }
func (b *Builder) Inspect() string  { return fmt.Sprintf("builder(%d)", b.buf.Len()) }

// Reader walks a buffer or string byte by byte.
type Reader struct {
	Data []byte
	Pos  int
}

func (r *Reader) Kind() Kind      { return KindReader }
func (r *Reader) Inspect() string { return fmt.Sprintf("reader(%d/%d)", r.Pos, len(r.Data)) }

type Range struct {
	Start int64
	End   int64
}

func (r *Range) Kind() Kind      { return KindRange }
func (r *Range) Inspect() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// Iterator walks an array, string or range.
type Iterator struct {
	Source Value
	Pos    int
}

func (it *Iterator) Kind() Kind      { return KindIterator }
func (it *Iterator) Inspect() string { return "iterator" }

// Function is an immutable compiled unit: bytecode, constants, debug
// info, and slot bookkeeping. Closures wrap it with captured upvalues.
type Function struct {
	Name       string
	Chunk      *Chunk
	ParamNames []string
	NumParams  int
	NumLocals  int
	NumUpvalues int
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) Inspect() string {
	if f.Name != "" {
		return "fn " + f.Name
	}
	return "fn"
}

// Upvalue is a mutable cell shared between closures. While the owning
// frame is live it points into the VM stack; when the frame pops the
// value moves into Closed.
type Upvalue struct {
	Location *Value
	Closed   Value
}

func (uv *Upvalue) Get() Value {
	if uv.Location != nil {
		return *uv.Location
	}
	return uv.Closed
}

func (uv *Upvalue) Set(v Value) {
	if uv.Location != nil {
		*uv.Location = v
		return
	}
	uv.Closed = v
}

func (uv *Upvalue) Close() {
	if uv.Location != nil {
		uv.Closed = *uv.Location
		uv.Location = nil
	}
}

type Closure struct {
	Fn       *Function
	Upvalues []*Upvalue
}

func (c *Closure) Kind() Kind      { return KindClosure }
func (c *Closure) Inspect() string { return c.Fn.Inspect() }

// Caller lets natives call back into script closures without the value
// package depending on the VM.
type Caller interface {
	// CallValue invokes callee on the live VM and continues execution.
	CallValue(callee Value, args []Value) (Value, error)
	// RunClosure invokes callee on an isolated sub-VM sharing globals
	// and the function table.
	RunClosure(callee Value, args []Value) (Value, error)
}

type NativeFn func(c Caller, args []Value) (Value, error)

type Native struct {
	Name string
	Fn   NativeFn
}

func (n *Native) Kind() Kind      { return KindNative }
func (n *Native) Inspect() string { return "native fn " + n.Name }

// BoundMethod pairs a receiver with a method name; produced by member
// access on core types, invoked like any other callable.
type BoundMethod struct {
	Recv Value
	Name string
}

func (bm *BoundMethod) Kind() Kind      { return KindBoundMethod }
func (bm *BoundMethod) Inspect() string { return fmt.Sprintf("method %s of %s", bm.Name, bm.Recv.Kind()) }

var (
	TRUE      = &Bool{Value: true}
	FALSE     = &Bool{Value: false}
	NULL      = &Null{}
	UNDEFINED = &Undefined{}
)

// NewInt normalizes an int64 into the numeric tower: int32 when it fits,
// bigint otherwise.
func NewInt(v int64) Value {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return &Int{Value: int32(v)}
	}
	return &BigInt{Value: big.NewInt(v)}
}

func NewBool(v bool) *Bool {
	if v {
		return TRUE
	}
	return FALSE
}

func Truthy(v Value) bool {
	switch v {
	case FALSE, NULL, UNDEFINED:
		return false
	}
	switch v := v.(type) {
	case *Bool:
		return v.Value
	case *Null, *Undefined:
		return false
	}
	return true
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// Stringify renders a value for string concatenation and builder append.
func Stringify(v Value) string {
	switch v := v.(type) {
	case *String:
		return v.Value
	case *Float:
		return formatFloat(v.Value)
	case *Bool:
		if v.Value {
			return "true"
		}
		return "false"
	case *Null:
		return "null"
	case *Undefined:
		return "undefined"
	default:
		return v.Inspect()
	}
}

func inspectQuoted(v Value) string {
	if s, ok := v.(*String); ok {
		return "\"" + s.Value + "\""
	}
	return v.Inspect()
}
