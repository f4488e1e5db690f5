package value

import "strings"

// CallMethod dispatches name on the core-type receiver. The Caller is
// threaded through so higher-order methods (map, filter, each) can call
// back into script closures.
func CallMethod(c Caller, recv Value, name string, args []Value) (Value, error) {
	switch recv := recv.(type) {
	case *Array:
		return arrayMethod(c, recv, name, args)
	case *String:
		return stringMethod(recv, name, args)
	case *Object:
		return objectMethod(recv, name, args)
	case *Builder:
		return builderMethod(recv, name, args)
	case *Buffer:
		return bufferMethod(recv, name, args)
	case *Reader:
		return readerMethod(recv, name, args)
	case *Range:
		return rangeMethod(recv, name, args)
	case *Iterator:
		return iteratorMethod(recv, name, args)
	}
	return nil, NewError(ErrTypeMismatch, "%s has no method %s", recv.Kind(), name)
}

// HasMethod reports whether member access on recv should produce a bound
// method instead of a property read.
func HasMethod(recv Value, name string) bool {
	methods, ok := methodNames[recv.Kind()]
	if !ok {
		return false
	}
	for _, m := range methods {
		if m == name {
			return true
		}
	}
	return false
}

var methodNames = map[Kind][]string{
	KindArray:    {"length", "push", "pop", "map", "filter", "each", "join", "iterator"},
	KindString:   {"length", "toUpper", "toLower", "split", "contains", "trim", "iterator"},
	KindObject:   {"keys", "has", "remove"},
	KindBuilder:  {"append", "toString", "length"},
	KindBuffer:   {"size", "reader"},
	KindReader:   {"read", "remaining", "reset"},
	KindRange:    {"length", "toArray", "iterator"},
	KindIterator: {"next", "hasNext"},
}

func arityError(name string, want, got int) *RuntimeError {
	return NewError(ErrTypeMismatch, "%s expects %d argument(s), got %d", name, want, got)
}

func arrayMethod(c Caller, a *Array, name string, args []Value) (Value, error) {
	switch name {
	case "length":
		if len(args) != 0 {
			return nil, arityError("length", 0, len(args))
		}
		return NewInt(int64(len(a.Elements))), nil
	case "push":
		if len(args) != 1 {
			return nil, arityError("push", 1, len(args))
		}
		a.Elements = append(a.Elements, args[0])
		return a, nil
	case "pop":
		if len(args) != 0 {
			return nil, arityError("pop", 0, len(args))
		}
		if len(a.Elements) == 0 {
			return nil, NewError(ErrIndexOutOfBounds, "pop from empty array")
		}
		last := a.Elements[len(a.Elements)-1]
		a.Elements = a.Elements[:len(a.Elements)-1]
		return last, nil
	case "map":
		if len(args) != 1 {
			return nil, arityError("map", 1, len(args))
		}
		out := make([]Value, 0, len(a.Elements))
		for _, el := range a.Elements {
			v, err := c.CallValue(args[0], []Value{el})
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return &Array{Elements: out}, nil
	case "filter":
		if len(args) != 1 {
			return nil, arityError("filter", 1, len(args))
		}
		out := []Value{}
		for _, el := range a.Elements {
			v, err := c.CallValue(args[0], []Value{el})
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				out = append(out, el)
			}
		}
		return &Array{Elements: out}, nil
	case "each":
		if len(args) != 1 {
			return nil, arityError("each", 1, len(args))
		}
		for _, el := range a.Elements {
			if _, err := c.CallValue(args[0], []Value{el}); err != nil {
				return nil, err
			}
		}
		return NULL, nil
	case "join":
		sep := ""
		if len(args) == 1 {
			s, ok := args[0].(*String)
			if !ok {
				return nil, NewError(ErrTypeMismatch, "join separator must be a string, got %s", args[0].Kind())
			}
			sep = s.Value
		} else if len(args) > 1 {
			return nil, arityError("join", 1, len(args))
		}
		b := &Builder{}
		for i, el := range a.Elements {
			if i > 0 {
				b.Append(sep)
			}
			b.Append(Stringify(el))
		}
		return &String{Value: b.String()}, nil
	case "iterator":
		if len(args) != 0 {
			return nil, arityError("iterator", 0, len(args))
		}
		return &Iterator{Source: a}, nil
	}
	return nil, NewError(ErrTypeMismatch, "array has no method %s", name)
}

func stringMethod(s *String, name string, args []Value) (Value, error) {
	switch name {
	case "length":
		if len(args) != 0 {
			return nil, arityError("length", 0, len(args))
		}
		return NewInt(int64(len(s.Value))), nil
	case "toUpper":
		return &String{Value: strings.ToUpper(s.Value)}, nil
	case "toLower":
		return &String{Value: strings.ToLower(s.Value)}, nil
	case "trim":
		return &String{Value: strings.TrimSpace(s.Value)}, nil
	case "contains":
		if len(args) != 1 {
			return nil, arityError("contains", 1, len(args))
		}
		sub, ok := args[0].(*String)
		if !ok {
			return nil, NewError(ErrTypeMismatch, "contains expects a string, got %s", args[0].Kind())
		}
		return NewBool(strings.Contains(s.Value, sub.Value)), nil
	case "split":
		if len(args) != 1 {
			return nil, arityError("split", 1, len(args))
		}
		sep, ok := args[0].(*String)
		if !ok {
			return nil, NewError(ErrTypeMismatch, "split expects a string, got %s", args[0].Kind())
		}
		parts := strings.Split(s.Value, sep.Value)
		elems := make([]Value, len(parts))
		for i, p := range parts {
			elems[i] = &String{Value: p}
		}
		return &Array{Elements: elems}, nil
	case "iterator":
		if len(args) != 0 {
			return nil, arityError("iterator", 0, len(args))
		}
		return &Iterator{Source: s}, nil
	}
	return nil, NewError(ErrTypeMismatch, "string has no method %s", name)
}

func objectMethod(o *Object, name string, args []Value) (Value, error) {
	switch name {
	case "keys":
		if len(args) != 0 {
			return nil, arityError("keys", 0, len(args))
		}
		elems := make([]Value, len(o.Keys))
		for i, k := range o.Keys {
			elems[i] = &String{Value: k}
		}
		return &Array{Elements: elems}, nil
	case "has":
		if len(args) != 1 {
			return nil, arityError("has", 1, len(args))
		}
		k, ok := args[0].(*String)
		if !ok {
			return nil, NewError(ErrTypeMismatch, "has expects a string key, got %s", args[0].Kind())
		}
		_, present := o.Pairs[k.Value]
		return NewBool(present), nil
	case "remove":
		if len(args) != 1 {
			return nil, arityError("remove", 1, len(args))
		}
		k, ok := args[0].(*String)
		if !ok {
			return nil, NewError(ErrTypeMismatch, "remove expects a string key, got %s", args[0].Kind())
		}
		if _, present := o.Pairs[k.Value]; !present {
			return FALSE, nil
		}
		delete(o.Pairs, k.Value)
		for i, key := range o.Keys {
			if key == k.Value {
				o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
				break
			}
		}
		return TRUE, nil
	}
	return nil, NewError(ErrTypeMismatch, "object has no method %s", name)
}

func builderMethod(b *Builder, name string, args []Value) (Value, error) {
	switch name {
	case "append":
		if len(args) != 1 {
			return nil, arityError("append", 1, len(args))
		}
		b.Append(Stringify(args[0]))
		return b, nil
	case "toString":
		if len(args) != 0 {
			return nil, arityError("toString", 0, len(args))
		}
		return &String{Value: b.String()}, nil
	case "length":
		return NewInt(int64(b.buf.Len())), nil
	}
	return nil, NewError(ErrTypeMismatch, "builder has no method %s", name)
}

func bufferMethod(b *Buffer, name string, args []Value) (Value, error) {
	switch name {
	case "size":
		if len(args) != 0 {
			return nil, arityError("size", 0, len(args))
		}
		return NewInt(int64(len(b.Data))), nil
	case "reader":
		if len(args) != 0 {
			return nil, arityError("reader", 0, len(args))
		}
		return &Reader{Data: b.Data}, nil
	}
	return nil, NewError(ErrTypeMismatch, "buffer has no method %s", name)
}

func readerMethod(r *Reader, name string, args []Value) (Value, error) {
	switch name {
	case "read":
		if len(args) != 0 {
			return nil, arityError("read", 0, len(args))
		}
		if r.Pos >= len(r.Data) {
			return nil, NewError(ErrIndexOutOfBounds, "read past end of reader")
		}
		b := r.Data[r.Pos]
		r.Pos++
		return NewInt(int64(b)), nil
	case "remaining":
		return NewInt(int64(len(r.Data) - r.Pos)), nil
	case "reset":
		r.Pos = 0
		return r, nil
	}
	return nil, NewError(ErrTypeMismatch, "reader has no method %s", name)
}

func rangeMethod(r *Range, name string, args []Value) (Value, error) {
	switch name {
	case "length":
		n := r.End - r.Start
		if n < 0 {
			n = 0
		}
		return NewInt(n), nil
	case "toArray":
		elems := []Value{}
		for i := r.Start; i < r.End; i++ {
			elems = append(elems, NewInt(i))
		}
		return &Array{Elements: elems}, nil
	case "iterator":
		if len(args) != 0 {
			return nil, arityError("iterator", 0, len(args))
		}
		return &Iterator{Source: r}, nil
	}
	return nil, NewError(ErrTypeMismatch, "range has no method %s", name)
}

func iteratorMethod(it *Iterator, name string, args []Value) (Value, error) {
	switch name {
	case "hasNext":
		if len(args) != 0 {
			return nil, arityError("hasNext", 0, len(args))
		}
		return NewBool(it.Pos < iteratorLength(it.Source)), nil
	case "next":
		if len(args) != 0 {
			return nil, arityError("next", 0, len(args))
		}
		v, ok := iteratorElement(it.Source, it.Pos)
		if !ok {
			return UNDEFINED, nil
		}
		it.Pos++
		return v, nil
	}
	return nil, NewError(ErrTypeMismatch, "iterator has no method %s", name)
}

func iteratorLength(src Value) int {
	switch src := src.(type) {
	case *Array:
		return len(src.Elements)
	case *String:
		return len(src.Value)
	case *Range:
		if src.End < src.Start {
			return 0
		}
		return int(src.End - src.Start)
	}
	return 0
}

func iteratorElement(src Value, pos int) (Value, bool) {
	if pos < 0 || pos >= iteratorLength(src) {
		return nil, false
	}
	switch src := src.(type) {
	case *Array:
		return src.Elements[pos], true
	case *String:
		return &String{Value: string(src.Value[pos])}, true
	case *Range:
		return NewInt(src.Start + int64(pos)), true
	}
	return nil, false
}
