package vm

import (
	"sync"

	"lumen/pkg/compiler"
	"lumen/pkg/opcode"
	"lumen/pkg/value"
)

const (
	StackSize = 2048
	MaxFrames = 1024
)

type globalSlot struct {
	value   value.Value
	mutable bool
}

type VM struct {
	mainFn    *value.Function
	functions []*value.Function

	stack  []value.Value
	sp     int
	frames []Frame
	fi     int

	globals      map[string]*globalSlot
	gmu          *sync.RWMutex
	openUpvalues map[int]*value.Upvalue

	lastResult value.Value

	// debug-location register, updated by OpDebug
	debugLine   int
	debugColumn int
	debugText   string
}

func New(prog *compiler.Program) *VM {
	vm := &VM{
		mainFn:       prog.Main,
		functions:    prog.Functions,
		stack:        make([]value.Value, StackSize),
		frames:       make([]Frame, MaxFrames),
		globals:      make(map[string]*globalSlot),
		gmu:          &sync.RWMutex{},
		openUpvalues: make(map[int]*value.Upvalue),
		lastResult:   value.UNDEFINED,
	}
	vm.installIntrinsics()
	return vm
}

// installIntrinsics defines the globals the compiler's lowering relies
// on. Template literals compile against StringBuilder.
func (vm *VM) installIntrinsics() {
	vm.SetGlobal("StringBuilder", &value.Native{
		Name: "StringBuilder",
		Fn: func(_ value.Caller, args []value.Value) (value.Value, error) {
			if len(args) != 0 {
				return nil, value.NewError(value.ErrTypeMismatch, "StringBuilder expects no arguments")
			}
			return &value.Builder{}, nil
		},
	})
}

// WithProgram returns a fresh VM for prog that shares this VM's global
// bindings. REPL sessions use it so state persists across lines.
func (vm *VM) WithProgram(prog *compiler.Program) *VM {
	next := New(prog)
	next.globals = vm.globals
	next.gmu = vm.gmu
	return next
}

// SetGlobal installs an immutable global, the path hosts use to expose
// native functions.
func (vm *VM) SetGlobal(name string, v value.Value) {
	vm.defineGlobal(name, v, false)
}

func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	return vm.loadGlobal(name)
}

// The globals map is shared with REPL follow-up programs and with the
// sub-VMs RunClosure hands to connection-handler goroutines, so every
// slot access holds gmu.
func (vm *VM) defineGlobal(name string, v value.Value, mutable bool) {
	vm.gmu.Lock()
	vm.globals[name] = &globalSlot{value: v, mutable: mutable}
	vm.gmu.Unlock()
}

func (vm *VM) loadGlobal(name string) (value.Value, bool) {
	vm.gmu.RLock()
	defer vm.gmu.RUnlock()
	slot, ok := vm.globals[name]
	if !ok {
		return nil, false
	}
	return slot.value, true
}

func (vm *VM) storeGlobal(name string, v value.Value) error {
	vm.gmu.Lock()
	defer vm.gmu.Unlock()
	slot, ok := vm.globals[name]
	if !ok {
		return value.NewError(value.ErrUndefinedVariable, "undefined variable %s", name)
	}
	if !slot.mutable {
		return value.NewError(value.ErrImmutableAssign, "cannot assign to immutable binding %s", name)
	}
	slot.value = v
	return nil
}

// LastResult is the value of the most recently completed expression
// statement, which Execute also returns.
func (vm *VM) LastResult() value.Value { return vm.lastResult }

// Execute runs the top-level chunk to completion. The returned value is
// the last expression statement's result; errors come back annotated
// with the best known source location.
func (vm *VM) Execute() (value.Value, error) {
	main := &value.Closure{Fn: vm.mainFn}
	vm.frames[0] = Frame{closure: main, ip: 0, base: 0}
	vm.fi = 1
	for i := 0; i < vm.mainFn.NumLocals; i++ {
		vm.stack[i] = value.UNDEFINED
	}
	vm.sp = vm.mainFn.NumLocals

	if err := vm.run(0); err != nil {
		return nil, err
	}
	return vm.lastResult, nil
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= StackSize {
		return value.NewError(value.ErrStackOverflow, "value stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

// annotate fills in a source location on errors that carry no explicit
// location of their own: the debug-table entry for the faulting frame's
// instruction pointer when one exists, otherwise the debug-location
// register.
func (vm *VM) annotate(err error) error {
	re, ok := err.(*value.RuntimeError)
	if !ok {
		re = value.NewError(value.ErrTypeMismatch, "%v", err)
	}
	if re.Line != 0 {
		return re
	}
	if vm.fi > 0 {
		frame := &vm.frames[vm.fi-1]
		// ip has advanced past the faulting instruction's opcode
		if e, ok := frame.chunk().Debug.Locate(frame.ip - 1); ok {
			re.Line = e.Line
			re.Column = e.Column
			re.Text = e.Text
			return re
		}
	}
	re.Line = vm.debugLine
	re.Column = vm.debugColumn
	re.Text = vm.debugText
	return re
}

func (vm *VM) run(stopDepth int) error {
	for vm.fi > stopDepth {
		frame := &vm.frames[vm.fi-1]
		code := frame.chunk().Code
		constants := frame.chunk().Constants
		op := opcode.Opcode(code[frame.ip])
		frame.ip++

		switch op {
		case opcode.OpConstant:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			if err := vm.push(constants[idx]); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpNull:
			if err := vm.push(value.NULL); err != nil {
				return vm.annotate(err)
			}
		case opcode.OpTrue:
			if err := vm.push(value.TRUE); err != nil {
				return vm.annotate(err)
			}
		case opcode.OpFalse:
			if err := vm.push(value.FALSE); err != nil {
				return vm.annotate(err)
			}
		case opcode.OpUndefined:
			if err := vm.push(value.UNDEFINED); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpPop:
			vm.lastResult = vm.pop()

		case opcode.OpDup:
			if err := vm.push(vm.peek(0)); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpAdd, opcode.OpSub, opcode.OpMul, opcode.OpDiv,
			opcode.OpFloorDiv, opcode.OpMod:
			if err := vm.executeBinary(op); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpEqual, opcode.OpNotEqual, opcode.OpGreaterThan,
			opcode.OpGreaterEqual, opcode.OpLessThan, opcode.OpLessEqual:
			if err := vm.executeComparison(op); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpMinus:
			v, err := value.Negate(vm.pop())
			if err != nil {
				return vm.annotate(err)
			}
			if perr := vm.push(v); perr != nil {
				return vm.annotate(perr)
			}

		case opcode.OpBang:
			if err := vm.push(value.NewBool(!value.Truthy(vm.pop()))); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpJump:
			disp := int(opcode.ReadInt16(code[frame.ip:]))
			frame.ip += 2
			frame.ip += disp

		case opcode.OpJumpIfFalse:
			disp := int(opcode.ReadInt16(code[frame.ip:]))
			frame.ip += 2
			if !value.Truthy(vm.pop()) {
				frame.ip += disp
			}

		case opcode.OpJumpIfTrue:
			disp := int(opcode.ReadInt16(code[frame.ip:]))
			frame.ip += 2
			if value.Truthy(vm.pop()) {
				frame.ip += disp
			}

		case opcode.OpGetLocal:
			slot := int(code[frame.ip])
			frame.ip++
			if err := vm.push(vm.stack[frame.base+slot]); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpSetLocal:
			slot := int(code[frame.ip])
			frame.ip++
			vm.stack[frame.base+slot] = vm.pop()

		case opcode.OpGetUpvalue:
			idx := int(code[frame.ip])
			frame.ip++
			if err := vm.push(frame.closure.Upvalues[idx].Get()); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpSetUpvalue:
			idx := int(code[frame.ip])
			frame.ip++
			frame.closure.Upvalues[idx].Set(vm.pop())

		case opcode.OpDefineGlobal:
			idx := opcode.ReadUint16(code[frame.ip:])
			mutable := code[frame.ip+2] == 1
			frame.ip += 3
			name := constants[idx].(*value.String).Value
			vm.defineGlobal(name, vm.pop(), mutable)

		case opcode.OpGetGlobal:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			name := constants[idx].(*value.String).Value
			v, ok := vm.loadGlobal(name)
			if !ok {
				return vm.annotate(value.NewError(value.ErrUndefinedVariable, "undefined variable %s", name))
			}
			if err := vm.push(v); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpSetGlobal:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			name := constants[idx].(*value.String).Value
			if err := vm.storeGlobal(name, vm.pop()); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpArray:
			n := int(opcode.ReadUint16(code[frame.ip:]))
			frame.ip += 2
			elements := make([]value.Value, n)
			copy(elements, vm.stack[vm.sp-n:vm.sp])
			vm.sp -= n
			if err := vm.push(&value.Array{Elements: elements}); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpObject:
			n := int(opcode.ReadUint16(code[frame.ip:]))
			frame.ip += 2
			obj := value.NewObject()
			for i := vm.sp - 2*n; i < vm.sp; i += 2 {
				key := vm.stack[i].(*value.String).Value
				obj.Set(key, vm.stack[i+1])
			}
			vm.sp -= 2 * n
			if err := vm.push(obj); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpRange:
			end := vm.pop()
			start := vm.pop()
			r, err := makeRange(start, end)
			if err != nil {
				return vm.annotate(err)
			}
			if perr := vm.push(r); perr != nil {
				return vm.annotate(perr)
			}

		case opcode.OpGetProp:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			name := constants[idx].(*value.String).Value
			recv := vm.pop()
			v, err := vm.getProperty(recv, name)
			if err != nil {
				return vm.annotate(err)
			}
			if perr := vm.push(v); perr != nil {
				return vm.annotate(perr)
			}

		case opcode.OpSetProp:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			name := constants[idx].(*value.String).Value
			val := vm.pop()
			recv := vm.pop()
			obj, ok := recv.(*value.Object)
			if !ok {
				return vm.annotate(value.NewError(value.ErrTypeMismatch, "cannot set property %s on %s", name, recv.Kind()))
			}
			obj.Set(name, val)
			if err := vm.push(val); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpSetIndex:
			val := vm.pop()
			idx := vm.pop()
			recv := vm.pop()
			if err := vm.setIndex(recv, idx, val); err != nil {
				return vm.annotate(err)
			}
			if perr := vm.push(val); perr != nil {
				return vm.annotate(perr)
			}

		case opcode.OpCall:
			argc := int(opcode.ReadUint16(code[frame.ip:]))
			frame.ip += 2
			if err := vm.executeCall(argc); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpCallMethod:
			nameIdx := opcode.ReadUint16(code[frame.ip:])
			argc := int(opcode.ReadUint16(code[frame.ip+2:]))
			frame.ip += 4
			name := constants[nameIdx].(*value.String).Value
			if err := vm.executeMethodCall(name, argc); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpClosure:
			fnIdx := opcode.ReadUint16(code[frame.ip:])
			numCaptures := int(code[frame.ip+2])
			frame.ip += 3
			fn := vm.functions[fnIdx]
			upvalues := make([]*value.Upvalue, numCaptures)
			for i := 0; i < numCaptures; i++ {
				isLocal := code[frame.ip] == 1
				index := int(code[frame.ip+1])
				frame.ip += 2
				if isLocal {
					upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			if err := vm.push(&value.Closure{Fn: fn, Upvalues: upvalues}); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.fi--
			vm.sp = frame.base - 1 // also discards the callee
			if err := vm.push(result); err != nil {
				return vm.annotate(err)
			}

		case opcode.OpHalt:
			return nil

		case opcode.OpDebug:
			idx := opcode.ReadUint16(code[frame.ip:])
			frame.ip += 2
			if dt := frame.chunk().Debug; dt != nil && int(idx) < len(dt.Entries) {
				e := dt.Entries[idx]
				vm.debugLine = e.Line
				vm.debugColumn = e.Column
				vm.debugText = e.Text
			}

		default:
			return vm.annotate(value.NewError(value.ErrTypeMismatch, "unknown opcode %d", op))
		}
	}
	return nil
}

func (vm *VM) executeBinary(op opcode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	var result value.Value
	var err *value.RuntimeError
	switch op {
	case opcode.OpAdd:
		result, err = value.Add(left, right)
	case opcode.OpSub:
		result, err = value.Sub(left, right)
	case opcode.OpMul:
		result, err = value.Mul(left, right)
	case opcode.OpDiv:
		result, err = value.Div(left, right)
	case opcode.OpFloorDiv:
		result, err = value.FloorDiv(left, right)
	case opcode.OpMod:
		result, err = value.Mod(left, right)
	}
	if err != nil {
		return err
	}
	return vm.push(result)
}

func (vm *VM) executeComparison(op opcode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch op {
	case opcode.OpEqual:
		return vm.push(value.NewBool(value.Equals(left, right)))
	case opcode.OpNotEqual:
		return vm.push(value.NewBool(!value.Equals(left, right)))
	}

	c, err := value.Compare(left, right)
	if err != nil {
		return err
	}
	var result bool
	switch op {
	case opcode.OpGreaterThan:
		result = c > 0
	case opcode.OpGreaterEqual:
		result = c >= 0
	case opcode.OpLessThan:
		result = c < 0
	case opcode.OpLessEqual:
		result = c <= 0
	}
	return vm.push(value.NewBool(result))
}

func makeRange(start, end value.Value) (value.Value, error) {
	s, ok := start.(*value.Int)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "range start must be an int, got %s", start.Kind())
	}
	e, ok := end.(*value.Int)
	if !ok {
		return nil, value.NewError(value.ErrTypeMismatch, "range end must be an int, got %s", end.Kind())
	}
	return &value.Range{Start: int64(s.Value), End: int64(e.Value)}, nil
}

// getProperty resolves member access. Objects check their own entries
// first; every core type then exposes its built-in methods as bound
// methods; anything else is an error.
func (vm *VM) getProperty(recv value.Value, name string) (value.Value, error) {
	if obj, ok := recv.(*value.Object); ok {
		if v, found := obj.Get(name); found {
			return v, nil
		}
		if value.HasMethod(obj, name) {
			return &value.BoundMethod{Recv: obj, Name: name}, nil
		}
		return value.UNDEFINED, nil
	}
	if value.HasMethod(recv, name) {
		return &value.BoundMethod{Recv: recv, Name: name}, nil
	}
	return nil, value.NewError(value.ErrTypeMismatch, "%s has no property %s", recv.Kind(), name)
}

func (vm *VM) setIndex(recv, idx, val value.Value) error {
	switch recv := recv.(type) {
	case *value.Array:
		i, err := arrayIndex(idx, len(recv.Elements))
		if err != nil {
			return err
		}
		recv.Elements[i] = val
		return nil
	case *value.Object:
		key, ok := idx.(*value.String)
		if !ok {
			return value.NewError(value.ErrTypeMismatch, "object key must be a string, got %s", idx.Kind())
		}
		recv.Set(key.Value, val)
		return nil
	}
	return value.NewError(value.ErrTypeMismatch, "cannot index into %s", recv.Kind())
}

func arrayIndex(idx value.Value, length int) (int, error) {
	switch idx := idx.(type) {
	case *value.Int:
		i := int(idx.Value)
		if i < 0 || i >= length {
			return 0, value.NewError(value.ErrIndexOutOfBounds, "index %d out of bounds for length %d", i, length)
		}
		return i, nil
	case *value.BigInt:
		return 0, value.NewError(value.ErrIndexOutOfBounds, "index %s out of bounds for length %d", idx.Value, length)
	}
	return 0, value.NewError(value.ErrTypeMismatch, "index must be an int, got %s", idx.Kind())
}

// executeCall dispatches the callee sitting below argc arguments. Call
// syntax doubles as indexing: arrays, strings and objects are "called"
// with a single subscript.
func (vm *VM) executeCall(argc int) error {
	callee := vm.peek(argc)

	switch callee := callee.(type) {
	case *value.Closure:
		return vm.callClosure(callee, argc)

	case *value.Native:
		args := make([]value.Value, argc)
		copy(args, vm.stack[vm.sp-argc:vm.sp])
		vm.sp -= argc + 1
		result, err := callee.Fn(vm, args)
		if err != nil {
			return vm.wrapNativeError(callee.Name, err)
		}
		if result == nil {
			result = value.UNDEFINED
		}
		return vm.push(result)

	case *value.BoundMethod:
		args := make([]value.Value, argc)
		copy(args, vm.stack[vm.sp-argc:vm.sp])
		vm.sp -= argc + 1
		result, err := value.CallMethod(vm, callee.Recv, callee.Name, args)
		if err != nil {
			return err
		}
		return vm.push(result)

	case *value.Array:
		if argc != 1 {
			return value.NewError(value.ErrTypeMismatch, "array index takes one argument, got %d", argc)
		}
		idx := vm.pop()
		vm.pop()
		i, err := arrayIndex(idx, len(callee.Elements))
		if err != nil {
			return err
		}
		return vm.push(callee.Elements[i])

	case *value.String:
		if argc != 1 {
			return value.NewError(value.ErrTypeMismatch, "string index takes one argument, got %d", argc)
		}
		idx := vm.pop()
		vm.pop()
		i, err := arrayIndex(idx, len(callee.Value))
		if err != nil {
			return err
		}
		return vm.push(&value.String{Value: string(callee.Value[i])})

	case *value.Object:
		if argc != 1 {
			return value.NewError(value.ErrTypeMismatch, "object index takes one argument, got %d", argc)
		}
		idx := vm.pop()
		vm.pop()
		key, ok := idx.(*value.String)
		if !ok {
			return value.NewError(value.ErrTypeMismatch, "object key must be a string, got %s", idx.Kind())
		}
		if v, found := callee.Get(key.Value); found {
			return vm.push(v)
		}
		return vm.push(value.UNDEFINED)
	}

	return value.NewError(value.ErrNotCallable, "cannot call %s", callee.Kind())
}

// callClosure frames a script function. Missing arguments are an error;
// surplus arguments are dropped.
func (vm *VM) callClosure(c *value.Closure, argc int) error {
	if argc < c.Fn.NumParams {
		return value.NewError(value.ErrTypeMismatch,
			"%s expects %d argument(s), got %d", c.Fn.Inspect(), c.Fn.NumParams, argc)
	}
	if argc > c.Fn.NumParams {
		vm.sp -= argc - c.Fn.NumParams
	}
	if vm.fi >= MaxFrames {
		return value.NewError(value.ErrStackOverflow, "call stack overflow")
	}

	base := vm.sp - c.Fn.NumParams
	vm.frames[vm.fi] = Frame{closure: c, ip: 0, base: base}
	vm.fi++

	newSp := base + c.Fn.NumLocals
	if newSp >= StackSize {
		return value.NewError(value.ErrStackOverflow, "value stack overflow")
	}
	for i := vm.sp; i < newSp; i++ {
		vm.stack[i] = value.UNDEFINED
	}
	vm.sp = newSp
	return nil
}

func (vm *VM) executeMethodCall(name string, argc int) error {
	recv := vm.peek(argc)

	// objects can hold callables; obj.m(x) calls the stored value
	if obj, ok := recv.(*value.Object); ok {
		if prop, found := obj.Get(name); found {
			if isCallable(prop) {
				vm.stack[vm.sp-1-argc] = prop
				return vm.executeCall(argc)
			}
			return value.NewError(value.ErrNotCallable, "property %s is not callable", name)
		}
	}

	args := make([]value.Value, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])
	vm.sp -= argc + 1
	result, err := value.CallMethod(vm, recv, name, args)
	if err != nil {
		if re, ok := err.(*value.RuntimeError); ok {
			return re
		}
		return value.NewError(value.ErrTypeMismatch, "%s: %v", name, err)
	}
	return vm.push(result)
}

func isCallable(v value.Value) bool {
	switch v.Kind() {
	case value.KindClosure, value.KindNative, value.KindBoundMethod, value.KindFunction:
		return true
	}
	return false
}

func (vm *VM) wrapNativeError(name string, err error) error {
	if re, ok := err.(*value.RuntimeError); ok {
		return re
	}
	return value.NewError(value.ErrTypeMismatch, "in %s: %v", name, err)
}

func (vm *VM) captureUpvalue(slot int) *value.Upvalue {
	if uv, ok := vm.openUpvalues[slot]; ok {
		return uv
	}
	uv := &value.Upvalue{Location: &vm.stack[slot]}
	vm.openUpvalues[slot] = uv
	return uv
}

// closeUpvalues moves captured values out of stack slots at or above
// from, severing pointers into the popped frame.
func (vm *VM) closeUpvalues(from int) {
	for slot, uv := range vm.openUpvalues {
		if slot >= from {
			uv.Close()
			delete(vm.openUpvalues, slot)
		}
	}
}

// CallValue invokes a script or native callable on the live VM and runs
// it to completion before returning. This is the call-and-continue host
// path; natives receive it through the value.Caller interface.
func (vm *VM) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee := callee.(type) {
	case *value.Native:
		result, err := callee.Fn(vm, args)
		if err != nil {
			return nil, vm.wrapNativeError(callee.Name, err)
		}
		if result == nil {
			result = value.UNDEFINED
		}
		return result, nil

	case *value.BoundMethod:
		return value.CallMethod(vm, callee.Recv, callee.Name, args)

	case *value.Closure:
		if err := vm.push(callee); err != nil {
			return nil, err
		}
		for _, a := range args {
			if err := vm.push(a); err != nil {
				return nil, err
			}
		}
		stop := vm.fi
		if err := vm.callClosure(callee, len(args)); err != nil {
			return nil, err
		}
		if err := vm.run(stop); err != nil {
			return nil, err
		}
		return vm.pop(), nil
	}

	return nil, value.NewError(value.ErrNotCallable, "cannot call %s", callee.Kind())
}

// RunClosure invokes a callable on a fresh sub-VM that shares this VM's
// globals and function table but nothing else. Long-running host
// callbacks (connection handlers, timers) use this so they cannot
// disturb the parent's stack.
func (vm *VM) RunClosure(callee value.Value, args []value.Value) (value.Value, error) {
	sub := &VM{
		mainFn:       vm.mainFn,
		functions:    vm.functions,
		stack:        make([]value.Value, StackSize),
		frames:       make([]Frame, MaxFrames),
		globals:      vm.globals,
		gmu:          vm.gmu,
		openUpvalues: make(map[int]*value.Upvalue),
		lastResult:   value.UNDEFINED,
	}
	return sub.CallValue(callee, args)
}
