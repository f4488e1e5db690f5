package compiler

import (
	"fmt"
	"math"
	"strings"

	"lumen/pkg/ast"
	"lumen/pkg/opcode"
	"lumen/pkg/token"
	"lumen/pkg/value"
)

// Program is the compiler's output: the top-level chunk plus the table
// of compiled function bodies that OpClosure instructions index into.
type Program struct {
	Main      *value.Function
	Functions []*value.Function
}

type Compiler struct {
	current   *funcContext
	functions []*value.Function
	errors    []string
	debug     bool
}

func New() *Compiler {
	c := &Compiler{}
	c.current = newFuncContext(nil, "<main>", false)
	return c
}

// NewDebug builds debug tables and emits location-tracking instructions
// so runtime errors can be annotated with source positions.
func NewDebug() *Compiler {
	c := New()
	c.debug = true
	c.current.debug = &value.DebugTable{}
	return c
}

func (c *Compiler) Compile(program *ast.Program) (*Program, error) {
	for _, s := range program.Statements {
		c.compileStatement(s)
	}
	c.emit(opcode.OpHalt)

	if len(c.errors) > 0 {
		return nil, fmt.Errorf("compile failed:\n%s", strings.Join(c.errors, "\n"))
	}

	main := &value.Function{
		Name:      "<main>",
		Chunk:     c.current.chunk(),
		NumLocals: c.current.nextSlot,
	}
	return &Program{Main: main, Functions: c.functions}, nil
}

func (c *Compiler) Errors() []string { return c.errors }

func (fc *funcContext) chunk() *value.Chunk {
	return &value.Chunk{Code: fc.instructions, Constants: fc.constants, Debug: fc.debug}
}

// Compilation never stops at the first error; the error is recorded and
// codegen continues so one run reports everything it can.
func (c *Compiler) errorf(tok token.Token, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.errors = append(c.errors, fmt.Sprintf("line %d, column %d: %s", tok.Line, tok.Column, msg))
}

func (c *Compiler) emit(op opcode.Opcode, operands ...int) int {
	pos := len(c.current.instructions)
	c.current.instructions = append(c.current.instructions, opcode.Make(op, operands...)...)
	c.current.lastOp = op
	return pos
}

func (c *Compiler) addConstant(v value.Value) int {
	c.current.constants = append(c.current.constants, v)
	return len(c.current.constants) - 1
}

func (c *Compiler) stringConstant(s string) int {
	return c.addConstant(&value.String{Value: s})
}

// emitJump emits op with a placeholder displacement and returns the
// operand position for later patching.
func (c *Compiler) emitJump(op opcode.Opcode) int {
	c.emit(op, 0)
	return len(c.current.instructions) - 2
}

// patchJumpTo writes the signed displacement from the instruction after
// the operand to target.
func (c *Compiler) patchJumpTo(tok token.Token, operandPos, target int) {
	disp := target - (operandPos + 2)
	if disp < math.MinInt16 || disp > math.MaxInt16 {
		c.errorf(tok, "loop body too large")
		return
	}
	u := uint16(int16(disp))
	c.current.instructions[operandPos] = byte(u)
	c.current.instructions[operandPos+1] = byte(u >> 8)
}

func (c *Compiler) patchJump(tok token.Token, operandPos int) {
	c.patchJumpTo(tok, operandPos, len(c.current.instructions))
}

// emitLoop emits a backward OpJump to target.
func (c *Compiler) emitLoop(tok token.Token, target int) {
	pos := c.emitJump(opcode.OpJump)
	c.patchJumpTo(tok, pos, target)
}

func (c *Compiler) emitDebug(tok token.Token, text string) {
	if !c.debug || c.current.debug == nil {
		return
	}
	idx := len(c.current.debug.Entries)
	c.current.debug.Record(len(c.current.instructions), tok.Line, tok.Column, text)
	c.emit(opcode.OpDebug, idx)
}

func (c *Compiler) atTopLevel() bool {
	return c.current.parent == nil && c.current.scopeDepth == 0
}

// --- statements ---

func (c *Compiler) compileStatement(s ast.Statement) {
	switch s := s.(type) {
	case *ast.VarStatement:
		c.compileVarStatement(s)
	case *ast.FunctionStatement:
		c.compileFunctionStatement(s)
	case *ast.ReturnStatement:
		c.compileReturnStatement(s)
	case *ast.ExpressionStatement:
		c.emitDebug(s.Token, s.String())
		c.compileExpression(s.Expression)
		c.emit(opcode.OpPop)
	case *ast.BlockStatement:
		c.current.beginScope()
		for _, inner := range s.Statements {
			c.compileStatement(inner)
		}
		c.current.endScope()
	case *ast.IfStatement:
		c.compileIfStatement(s)
	case *ast.WhileStatement:
		c.compileWhileStatement(s)
	case *ast.DoWhileStatement:
		c.compileDoWhileStatement(s)
	case *ast.ForStatement:
		c.compileForStatement(s)
	case *ast.LoopStatement:
		c.compileLoopStatement(s)
	case *ast.BreakStatement:
		c.compileBreak(s)
	case *ast.ContinueStatement:
		c.compileContinue(s)
	default:
		c.errorf(token.Token{}, "cannot compile statement %T", s)
	}
}

func (c *Compiler) compileVarStatement(s *ast.VarStatement) {
	c.emitDebug(s.Token, s.String())

	if c.atTopLevel() {
		c.compileExpression(s.Value)
		mutable := 0
		if s.Mutable {
			mutable = 1
		}
		c.emit(opcode.OpDefineGlobal, c.stringConstant(s.Name.Value), mutable)
		return
	}

	slot, ok := c.declareLocal(s.Name, s.Mutable)
	if !ok {
		return
	}
	c.compileExpression(s.Value)
	c.markInitialized()
	c.emit(opcode.OpSetLocal, slot)
}

func (c *Compiler) declareLocal(name *ast.Identifier, mutable bool) (int, bool) {
	fc := c.current
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].depth < fc.scopeDepth {
			break
		}
		if fc.locals[i].name == name.Value {
			c.errorf(name.Token, "variable %s already declared in this scope", name.Value)
			return 0, false
		}
	}
	slot := fc.nextSlot
	fc.nextSlot++
	fc.locals = append(fc.locals, local{
		name:    name.Value,
		depth:   fc.scopeDepth,
		slot:    slot,
		mutable: mutable,
	})
	return slot, true
}

func (c *Compiler) markInitialized() {
	fc := c.current
	fc.locals[len(fc.locals)-1].initialized = true
}

func (c *Compiler) compileFunctionStatement(s *ast.FunctionStatement) {
	c.emitDebug(s.Token, "fn "+s.Name.Value)

	if c.atTopLevel() {
		c.compileFunctionBody(s.Name.Value, s.Parameters, s.Body, nil, s.Token)
		c.emit(opcode.OpDefineGlobal, c.stringConstant(s.Name.Value), 0)
		return
	}

	// The name is visible inside the body so the function can recurse.
	slot, ok := c.declareLocal(s.Name, false)
	if !ok {
		return
	}
	c.markInitialized()
	c.compileFunctionBody(s.Name.Value, s.Parameters, s.Body, nil, s.Token)
	c.emit(opcode.OpSetLocal, slot)
}

func (c *Compiler) compileFunctionBody(name string, params []*ast.Identifier, body *ast.BlockStatement, exprBody ast.Expression, tok token.Token) {
	fc := newFuncContext(c.current, name, c.debug)
	c.current = fc
	fc.beginScope()

	paramNames := make([]string, len(params))
	for i, p := range params {
		paramNames[i] = p.Value
		if _, ok := c.declareLocal(p, true); ok {
			c.markInitialized()
		}
	}

	if exprBody != nil {
		c.compileExpression(exprBody)
		c.emit(opcode.OpReturn)
	} else {
		for _, s := range body.Statements {
			c.compileStatement(s)
		}
		// Falling off the end of a block body yields null.
		if len(fc.instructions) == 0 || fc.lastOp != opcode.OpReturn {
			c.emit(opcode.OpNull)
			c.emit(opcode.OpReturn)
		}
	}

	fn := &value.Function{
		Name:        name,
		Chunk:       fc.chunk(),
		ParamNames:  paramNames,
		NumParams:   len(params),
		NumLocals:   fc.nextSlot,
		NumUpvalues: len(fc.upvalues),
	}
	idx := len(c.functions)
	c.functions = append(c.functions, fn)

	c.current = fc.parent
	c.emit(opcode.OpClosure, idx, len(fc.upvalues))
	for _, uv := range fc.upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.current.instructions = append(c.current.instructions, isLocal, byte(uv.index))
	}
}

func (c *Compiler) compileReturnStatement(s *ast.ReturnStatement) {
	if c.current.parent == nil {
		c.errorf(s.Token, "return outside function")
		return
	}
	c.emitDebug(s.Token, s.String())
	if s.ReturnValue != nil {
		c.compileExpression(s.ReturnValue)
	} else {
		c.emit(opcode.OpNull)
	}
	c.emit(opcode.OpReturn)
}

func (c *Compiler) compileIfStatement(s *ast.IfStatement) {
	c.emitDebug(s.Token, "if "+s.Condition.String())
	c.compileExpression(s.Condition)
	elseJump := c.emitJump(opcode.OpJumpIfFalse)
	c.compileStatement(s.Consequence)

	if s.Alternative != nil {
		endJump := c.emitJump(opcode.OpJump)
		c.patchJump(s.Token, elseJump)
		c.compileStatement(s.Alternative)
		c.patchJump(s.Token, endJump)
	} else {
		c.patchJump(s.Token, elseJump)
	}
}

func (c *Compiler) compileWhileStatement(s *ast.WhileStatement) {
	condStart := len(c.current.instructions)
	c.emitDebug(s.Token, "while "+s.Condition.String())
	c.compileExpression(s.Condition)
	exitJump := c.emitJump(opcode.OpJumpIfFalse)

	loop := &loopInfo{continuePos: condStart}
	c.current.loops = append(c.current.loops, loop)
	c.compileStatement(s.Body)
	c.current.loops = c.current.loops[:len(c.current.loops)-1]

	c.emitLoop(s.Token, condStart)
	c.patchJump(s.Token, exitJump)
	c.patchBreaks(s.Token, loop)
}

func (c *Compiler) compileDoWhileStatement(s *ast.DoWhileStatement) {
	bodyStart := len(c.current.instructions)

	loop := &loopInfo{continuePos: -1}
	c.current.loops = append(c.current.loops, loop)
	c.compileStatement(s.Body)
	c.current.loops = c.current.loops[:len(c.current.loops)-1]

	// continue lands on the condition, which runs even on the first pass
	// out of the body
	condStart := len(c.current.instructions)
	for _, pos := range loop.continueJumps {
		c.patchJumpTo(s.Token, pos, condStart)
	}
	c.emitDebug(s.Token, "while "+s.Condition.String())
	c.compileExpression(s.Condition)
	backJump := c.emitJump(opcode.OpJumpIfTrue)
	c.patchJumpTo(s.Token, backJump, bodyStart)
	c.patchBreaks(s.Token, loop)
}

func (c *Compiler) compileForStatement(s *ast.ForStatement) {
	// The init clause gets its own scope so a `var i` is visible to the
	// condition, increment and body but not past the loop.
	c.current.beginScope()
	if s.Init != nil {
		c.compileStatement(s.Init)
	}

	condStart := len(c.current.instructions)
	exitJump := -1
	if s.Condition != nil {
		c.emitDebug(s.Token, "for "+s.Condition.String())
		c.compileExpression(s.Condition)
		exitJump = c.emitJump(opcode.OpJumpIfFalse)
	}

	loop := &loopInfo{continuePos: -1}
	c.current.loops = append(c.current.loops, loop)
	c.compileStatement(s.Body)
	c.current.loops = c.current.loops[:len(c.current.loops)-1]

	incStart := len(c.current.instructions)
	for _, pos := range loop.continueJumps {
		c.patchJumpTo(s.Token, pos, incStart)
	}
	if s.Increment != nil {
		c.compileExpression(s.Increment)
		c.emit(opcode.OpPop)
	}
	c.emitLoop(s.Token, condStart)

	if exitJump >= 0 {
		c.patchJump(s.Token, exitJump)
	}
	c.patchBreaks(s.Token, loop)
	c.current.endScope()
}

func (c *Compiler) compileLoopStatement(s *ast.LoopStatement) {
	start := len(c.current.instructions)

	loop := &loopInfo{continuePos: start}
	c.current.loops = append(c.current.loops, loop)
	c.compileStatement(s.Body)
	c.current.loops = c.current.loops[:len(c.current.loops)-1]

	c.emitLoop(s.Token, start)
	c.patchBreaks(s.Token, loop)
}

func (c *Compiler) patchBreaks(tok token.Token, loop *loopInfo) {
	for _, pos := range loop.breakJumps {
		c.patchJump(tok, pos)
	}
}

func (c *Compiler) compileBreak(s *ast.BreakStatement) {
	if len(c.current.loops) == 0 {
		c.errorf(s.Token, "break outside loop")
		return
	}
	loop := c.current.loops[len(c.current.loops)-1]
	loop.breakJumps = append(loop.breakJumps, c.emitJump(opcode.OpJump))
}

func (c *Compiler) compileContinue(s *ast.ContinueStatement) {
	if len(c.current.loops) == 0 {
		c.errorf(s.Token, "continue outside loop")
		return
	}
	loop := c.current.loops[len(c.current.loops)-1]
	if loop.continuePos >= 0 {
		c.emitLoop(s.Token, loop.continuePos)
		return
	}
	loop.continueJumps = append(loop.continueJumps, c.emitJump(opcode.OpJump))
}

// --- expressions ---

func (c *Compiler) compileExpression(e ast.Expression) {
	switch e := e.(type) {
	case *ast.IntegerLiteral:
		c.emit(opcode.OpConstant, c.addConstant(value.NewInt(e.Value)))
	case *ast.FloatLiteral:
		c.emit(opcode.OpConstant, c.addConstant(&value.Float{Value: e.Value}))
	case *ast.StringLiteral:
		c.emit(opcode.OpConstant, c.stringConstant(e.Value))
	case *ast.TemplateLiteral:
		c.compileTemplateLiteral(e)
	case *ast.Boolean:
		if e.Value {
			c.emit(opcode.OpTrue)
		} else {
			c.emit(opcode.OpFalse)
		}
	case *ast.NullLiteral:
		c.emit(opcode.OpNull)
	case *ast.UndefinedLiteral:
		c.emit(opcode.OpUndefined)
	case *ast.Identifier:
		c.loadIdentifier(e)
	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.emit(opcode.OpArray, len(e.Elements))
	case *ast.ObjectLiteral:
		for i, k := range e.Keys {
			c.emit(opcode.OpConstant, c.stringConstant(k))
			c.compileExpression(e.Values[i])
		}
		c.emit(opcode.OpObject, len(e.Keys))
	case *ast.PrefixExpression:
		c.compilePrefix(e)
	case *ast.InfixExpression:
		c.compileInfix(e)
	case *ast.TernaryExpression:
		c.compileTernary(e)
	case *ast.RangeExpression:
		c.compileExpression(e.Start)
		c.compileExpression(e.End)
		c.emit(opcode.OpRange)
	case *ast.MemberExpression:
		c.compileExpression(e.Object)
		c.emit(opcode.OpGetProp, c.stringConstant(e.Property.Value))
	case *ast.CallExpression:
		c.compileCall(e)
	case *ast.AssignExpression:
		c.compileAssign(e)
	case *ast.IncDecExpression:
		c.compileIncDec(e)
	case *ast.FunctionLiteral:
		c.compileFunctionBody("", e.Parameters, e.Body, e.ExprBody, e.Token)
	default:
		c.errorf(token.Token{}, "cannot compile expression %T", e)
	}
}

func (c *Compiler) loadIdentifier(e *ast.Identifier) {
	fc := c.current
	if li := fc.resolveLocal(e.Value); li >= 0 {
		if !fc.locals[li].initialized {
			c.errorf(e.Token, "cannot read %s in its own initializer", e.Value)
			return
		}
		c.emit(opcode.OpGetLocal, fc.locals[li].slot)
		return
	}
	if ui, _, ok := resolveUpvalue(fc, e.Value); ok {
		c.emit(opcode.OpGetUpvalue, ui)
		return
	}
	c.emit(opcode.OpGetGlobal, c.stringConstant(e.Value))
}

// storeIdentifier pops the top of stack into the named binding.
// Immutable locals and upvalues are rejected here; globals carry their
// mutability at runtime.
func (c *Compiler) storeIdentifier(e *ast.Identifier) {
	fc := c.current
	if li := fc.resolveLocal(e.Value); li >= 0 {
		if !fc.locals[li].mutable {
			c.errorf(e.Token, "cannot assign to immutable binding %s", e.Value)
			return
		}
		c.emit(opcode.OpSetLocal, fc.locals[li].slot)
		return
	}
	if ui, mutable, ok := resolveUpvalue(fc, e.Value); ok {
		if !mutable {
			c.errorf(e.Token, "cannot assign to immutable binding %s", e.Value)
			return
		}
		c.emit(opcode.OpSetUpvalue, ui)
		return
	}
	c.emit(opcode.OpSetGlobal, c.stringConstant(e.Value))
}

func (c *Compiler) compilePrefix(e *ast.PrefixExpression) {
	c.compileExpression(e.Right)
	switch e.Operator {
	case "-":
		c.emit(opcode.OpMinus)
	case "!":
		c.emit(opcode.OpBang)
	default:
		c.errorf(e.Token, "unknown prefix operator %s", e.Operator)
	}
}

var infixOps = map[string]opcode.Opcode{
	"+":  opcode.OpAdd,
	"-":  opcode.OpSub,
	"*":  opcode.OpMul,
	"/":  opcode.OpDiv,
	"//": opcode.OpFloorDiv,
	"%":  opcode.OpMod,
	"==": opcode.OpEqual,
	"!=": opcode.OpNotEqual,
	">":  opcode.OpGreaterThan,
	">=": opcode.OpGreaterEqual,
	"<":  opcode.OpLessThan,
	"<=": opcode.OpLessEqual,
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) {
	switch e.Operator {
	case "and", "or":
		c.compileShortCircuit(e)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	op, ok := infixOps[e.Operator]
	if !ok {
		c.errorf(e.Token, "unknown operator %s", e.Operator)
		return
	}
	c.emit(op)
}

// compileShortCircuit keeps the left value as the result when it decides
// the outcome: the duplicate survives the conditional jump's pop.
func (c *Compiler) compileShortCircuit(e *ast.InfixExpression) {
	c.compileExpression(e.Left)
	c.emit(opcode.OpDup)
	var endJump int
	if e.Operator == "and" {
		endJump = c.emitJump(opcode.OpJumpIfFalse)
	} else {
		endJump = c.emitJump(opcode.OpJumpIfTrue)
	}
	c.emit(opcode.OpPop)
	c.compileExpression(e.Right)
	c.patchJump(e.Token, endJump)
}

func (c *Compiler) compileTernary(e *ast.TernaryExpression) {
	c.compileExpression(e.Condition)
	elseJump := c.emitJump(opcode.OpJumpIfFalse)
	c.compileExpression(e.Then)
	endJump := c.emitJump(opcode.OpJump)
	c.patchJump(e.Token, elseJump)
	c.compileExpression(e.Else)
	c.patchJump(e.Token, endJump)
}

// compileTemplateLiteral lowers interpolation onto the runtime's
// StringBuilder: construct, append each part, then toString.
func (c *Compiler) compileTemplateLiteral(e *ast.TemplateLiteral) {
	appendConst := c.stringConstant("append")

	c.emit(opcode.OpGetGlobal, c.stringConstant("StringBuilder"))
	c.emit(opcode.OpCall, 0)

	appendPart := func(compile func()) {
		c.emit(opcode.OpDup)
		compile()
		c.emit(opcode.OpCallMethod, appendConst, 1)
		c.emit(opcode.OpPop)
	}

	for i, part := range e.Parts {
		if part != "" {
			lit := part
			appendPart(func() {
				c.emit(opcode.OpConstant, c.stringConstant(lit))
			})
		}
		if i < len(e.Exprs) {
			expr := e.Exprs[i]
			appendPart(func() {
				c.compileExpression(expr)
			})
		}
	}

	c.emit(opcode.OpCallMethod, c.stringConstant("toString"), 0)
}

func (c *Compiler) compileCall(e *ast.CallExpression) {
	if me, ok := e.Function.(*ast.MemberExpression); ok {
		c.compileExpression(me.Object)
		for _, a := range e.Arguments {
			c.compileExpression(a)
		}
		c.emit(opcode.OpCallMethod, c.stringConstant(me.Property.Value), len(e.Arguments))
		return
	}
	c.compileExpression(e.Function)
	for _, a := range e.Arguments {
		c.compileExpression(a)
	}
	c.emit(opcode.OpCall, len(e.Arguments))
}

func (c *Compiler) compileAssign(e *ast.AssignExpression) {
	binOp, compound := compoundOp(e.Operator)
	if e.Operator != "=" && !compound {
		c.errorf(e.Token, "unknown assignment operator %s", e.Operator)
		return
	}

	switch target := e.Target.(type) {
	case *ast.Identifier:
		if compound {
			c.loadIdentifier(target)
			c.compileExpression(e.Value)
			c.emit(binOp)
		} else {
			c.compileExpression(e.Value)
		}
		c.emit(opcode.OpDup)
		c.storeIdentifier(target)

	case *ast.MemberExpression:
		nameConst := c.stringConstant(target.Property.Value)
		if !compound {
			c.compileExpression(target.Object)
			c.compileExpression(e.Value)
			c.emit(opcode.OpSetProp, nameConst)
			return
		}
		// Receiver is evaluated once into a temporary, read, combined,
		// then written back.
		tRecv := c.current.tempSlot()
		c.compileExpression(target.Object)
		c.emit(opcode.OpSetLocal, tRecv)
		c.emit(opcode.OpGetLocal, tRecv)
		c.emit(opcode.OpGetProp, nameConst)
		c.compileExpression(e.Value)
		c.emit(binOp)
		tVal := c.current.tempSlot()
		c.emit(opcode.OpSetLocal, tVal)
		c.emit(opcode.OpGetLocal, tRecv)
		c.emit(opcode.OpGetLocal, tVal)
		c.emit(opcode.OpSetProp, nameConst)

	case *ast.CallExpression:
		if len(target.Arguments) != 1 {
			c.errorf(e.Token, "invalid assignment target")
			return
		}
		if !compound {
			c.compileExpression(target.Function)
			c.compileExpression(target.Arguments[0])
			c.compileExpression(e.Value)
			c.emit(opcode.OpSetIndex)
			return
		}
		tRecv := c.current.tempSlot()
		tIdx := c.current.tempSlot()
		c.compileExpression(target.Function)
		c.emit(opcode.OpSetLocal, tRecv)
		c.compileExpression(target.Arguments[0])
		c.emit(opcode.OpSetLocal, tIdx)
		// the read goes through the same call-syntax path as any index
		c.emit(opcode.OpGetLocal, tRecv)
		c.emit(opcode.OpGetLocal, tIdx)
		c.emit(opcode.OpCall, 1)
		c.compileExpression(e.Value)
		c.emit(binOp)
		tVal := c.current.tempSlot()
		c.emit(opcode.OpSetLocal, tVal)
		c.emit(opcode.OpGetLocal, tRecv)
		c.emit(opcode.OpGetLocal, tIdx)
		c.emit(opcode.OpGetLocal, tVal)
		c.emit(opcode.OpSetIndex)

	default:
		c.errorf(e.Token, "invalid assignment target")
	}
}

func compoundOp(operator string) (opcode.Opcode, bool) {
	switch operator {
	case "+=":
		return opcode.OpAdd, true
	case "-=":
		return opcode.OpSub, true
	case "*=":
		return opcode.OpMul, true
	case "/=":
		return opcode.OpDiv, true
	case "%=":
		return opcode.OpMod, true
	}
	return 0, false
}

func (c *Compiler) compileIncDec(e *ast.IncDecExpression) {
	op := opcode.OpAdd
	if e.Operator == "--" {
		op = opcode.OpSub
	}
	one := func() {
		c.emit(opcode.OpConstant, c.addConstant(&value.Int{Value: 1}))
	}

	switch target := e.Target.(type) {
	case *ast.Identifier:
		c.loadIdentifier(target)
		if e.Prefix {
			one()
			c.emit(op)
			c.emit(opcode.OpDup)
			c.storeIdentifier(target)
		} else {
			c.emit(opcode.OpDup)
			one()
			c.emit(op)
			c.storeIdentifier(target)
		}

	case *ast.MemberExpression:
		nameConst := c.stringConstant(target.Property.Value)
		tRecv := c.current.tempSlot()
		c.compileExpression(target.Object)
		c.emit(opcode.OpSetLocal, tRecv)

		if e.Prefix {
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetProp, nameConst)
			one()
			c.emit(op)
			tVal := c.current.tempSlot()
			c.emit(opcode.OpSetLocal, tVal)
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tVal)
			c.emit(opcode.OpSetProp, nameConst)
		} else {
			tOld := c.current.tempSlot()
			tNew := c.current.tempSlot()
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetProp, nameConst)
			c.emit(opcode.OpSetLocal, tOld)
			c.emit(opcode.OpGetLocal, tOld)
			one()
			c.emit(op)
			c.emit(opcode.OpSetLocal, tNew)
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tNew)
			c.emit(opcode.OpSetProp, nameConst)
			c.emit(opcode.OpPop)
			c.emit(opcode.OpGetLocal, tOld)
		}

	case *ast.CallExpression:
		if len(target.Arguments) != 1 {
			c.errorf(e.Token, "invalid increment target")
			return
		}
		tRecv := c.current.tempSlot()
		tIdx := c.current.tempSlot()
		c.compileExpression(target.Function)
		c.emit(opcode.OpSetLocal, tRecv)
		c.compileExpression(target.Arguments[0])
		c.emit(opcode.OpSetLocal, tIdx)

		if e.Prefix {
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tIdx)
			c.emit(opcode.OpCall, 1)
			one()
			c.emit(op)
			tVal := c.current.tempSlot()
			c.emit(opcode.OpSetLocal, tVal)
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tIdx)
			c.emit(opcode.OpGetLocal, tVal)
			c.emit(opcode.OpSetIndex)
		} else {
			tOld := c.current.tempSlot()
			tNew := c.current.tempSlot()
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tIdx)
			c.emit(opcode.OpCall, 1)
			c.emit(opcode.OpSetLocal, tOld)
			c.emit(opcode.OpGetLocal, tOld)
			one()
			c.emit(op)
			c.emit(opcode.OpSetLocal, tNew)
			c.emit(opcode.OpGetLocal, tRecv)
			c.emit(opcode.OpGetLocal, tIdx)
			c.emit(opcode.OpGetLocal, tNew)
			c.emit(opcode.OpSetIndex)
			c.emit(opcode.OpPop)
			c.emit(opcode.OpGetLocal, tOld)
		}

	default:
		c.errorf(e.Token, "invalid increment target")
	}
}
