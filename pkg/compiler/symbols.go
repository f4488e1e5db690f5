package compiler

import (
	"lumen/pkg/opcode"
	"lumen/pkg/value"
)

// local is a resolved frame slot. Slots are handed out monotonically per
// function and never reused, so closing a captured slot at frame pop is
// always safe.
type local struct {
	name        string
	depth       int
	slot        int
	mutable     bool
	initialized bool
	captured    bool
}

type upvalue struct {
	isLocal bool
	index   int
	mutable bool
}

// loopInfo tracks the jumps a loop body emits. continuePos is -1 while
// the continue target (a for-loop's increment, a do-while's condition)
// has not been emitted yet; those jumps collect in continueJumps and are
// patched when the target is known.
type loopInfo struct {
	continuePos   int
	breakJumps    []int
	continueJumps []int
}

type funcContext struct {
	parent       *funcContext
	name         string
	instructions []byte
	constants    []value.Value
	locals       []local
	upvalues     []upvalue
	scopeDepth   int
	nextSlot     int
	loops        []*loopInfo
	debug        *value.DebugTable
	lastOp       opcode.Opcode
}

func newFuncContext(parent *funcContext, name string, withDebug bool) *funcContext {
	fc := &funcContext{parent: parent, name: name}
	if withDebug {
		fc.debug = &value.DebugTable{}
	}
	return fc
}

func (fc *funcContext) resolveLocal(name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (fc *funcContext) addUpvalue(isLocal bool, index int, mutable bool) int {
	for i, uv := range fc.upvalues {
		if uv.isLocal == isLocal && uv.index == index {
			return i
		}
	}
	fc.upvalues = append(fc.upvalues, upvalue{isLocal: isLocal, index: index, mutable: mutable})
	return len(fc.upvalues) - 1
}

// resolveUpvalue walks enclosing function contexts looking for name,
// threading capture records through every intermediate function.
func resolveUpvalue(fc *funcContext, name string) (int, bool, bool) {
	if fc.parent == nil {
		return 0, false, false
	}
	if li := fc.parent.resolveLocal(name); li >= 0 {
		fc.parent.locals[li].captured = true
		l := fc.parent.locals[li]
		return fc.addUpvalue(true, l.slot, l.mutable), l.mutable, true
	}
	if ui, mut, ok := resolveUpvalue(fc.parent, name); ok {
		return fc.addUpvalue(false, ui, mut), mut, true
	}
	return 0, false, false
}

func (fc *funcContext) beginScope() {
	fc.scopeDepth++
}

func (fc *funcContext) endScope() {
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

// tempSlot reserves an anonymous slot for compiler-generated temporaries
// in read-modify-write sequences. Anonymous slots can never be resolved
// by name.
func (fc *funcContext) tempSlot() int {
	slot := fc.nextSlot
	fc.nextSlot++
	return slot
}
