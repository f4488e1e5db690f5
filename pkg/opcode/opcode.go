package opcode

import (
	"fmt"
)

type Opcode byte

type Instructions []byte

const (
	// OpConstant pushes a constant from the chunk's constant pool
	OpConstant Opcode = iota
	// OpNull pushes null onto the stack
	OpNull
	// OpTrue pushes true onto the stack
	OpTrue
	// OpFalse pushes false onto the stack
	OpFalse
	// OpUndefined pushes undefined onto the stack
	OpUndefined
	// OpPop pops the top element of the stack
	OpPop
	// OpDup duplicates the top element of the stack
	OpDup
	// OpAdd adds the top two elements (or concatenates strings)
	OpAdd
	// OpSub subtracts the top two elements
	OpSub
	// OpMul multiplies the top two elements
	OpMul
	// OpDiv divides the top two elements; the result is always a float
	OpDiv
	// OpFloorDiv divides flooring toward negative infinity
	OpFloorDiv
	// OpMod computes the remainder, keeping the dividend's sign
	OpMod
	// OpMinus negates the top element
	OpMinus
	// OpBang logically negates the top element
	OpBang
	// OpEqual compares the top two elements for equality
	OpEqual
	// OpNotEqual compares the top two elements for inequality
	OpNotEqual
	// OpGreaterThan compares left > right
	OpGreaterThan
	// OpGreaterEqual compares left >= right
	OpGreaterEqual
	// OpLessThan compares left < right
	OpLessThan
	// OpLessEqual compares left <= right
	OpLessEqual
	// OpJump jumps unconditionally by a signed 16-bit displacement
	OpJump
	// OpJumpIfFalse pops the condition and jumps when it is falsy
	OpJumpIfFalse
	// OpJumpIfTrue pops the condition and jumps when it is truthy
	OpJumpIfTrue
	// OpGetLocal pushes a frame-local slot
	OpGetLocal
	// OpSetLocal pops into a frame-local slot
	OpSetLocal
	// OpGetUpvalue pushes a captured upvalue cell's contents
	OpGetUpvalue
	// OpSetUpvalue pops into a captured upvalue cell
	OpSetUpvalue
	// OpDefineGlobal defines a global; the byte operand is the mutable flag
	OpDefineGlobal
	// OpGetGlobal pushes a global by name constant
	OpGetGlobal
	// OpSetGlobal pops into an existing mutable global
	OpSetGlobal
	// OpArray builds an array from the top N elements
	OpArray
	// OpObject builds an object from the top 2*N stack entries
	OpObject
	// OpRange builds a range from the top two elements
	OpRange
	// OpGetProp reads a property from the value on top of the stack
	OpGetProp
	// OpSetProp stores into a property; leaves the stored value on the stack
	OpSetProp
	// OpSetIndex stores into an indexed element; leaves the stored value
	OpSetIndex
	// OpCall calls the value below the arguments
	OpCall
	// OpCallMethod calls a named method on the receiver below the arguments
	OpCallMethod
	// OpClosure builds a closure over a function-table slot; the byte
	// operand counts trailing (isLocal, index) pairs
	OpClosure
	// OpReturn returns the top of stack from the current frame
	OpReturn
	// OpHalt terminates execution of the top-level frame
	OpHalt
	// OpDebug updates the VM's debug-location register; the operand
	// indexes the chunk's debug table
	OpDebug
)

type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:     {"OpConstant", []int{2}},
	OpNull:         {"OpNull", []int{}},
	OpTrue:         {"OpTrue", []int{}},
	OpFalse:        {"OpFalse", []int{}},
	OpUndefined:    {"OpUndefined", []int{}},
	OpPop:          {"OpPop", []int{}},
	OpDup:          {"OpDup", []int{}},
	OpAdd:          {"OpAdd", []int{}},
	OpSub:          {"OpSub", []int{}},
	OpMul:          {"OpMul", []int{}},
	OpDiv:          {"OpDiv", []int{}},
	OpFloorDiv:     {"OpFloorDiv", []int{}},
	OpMod:          {"OpMod", []int{}},
	OpMinus:        {"OpMinus", []int{}},
	OpBang:         {"OpBang", []int{}},
	OpEqual:        {"OpEqual", []int{}},
	OpNotEqual:     {"OpNotEqual", []int{}},
	OpGreaterThan:  {"OpGreaterThan", []int{}},
	OpGreaterEqual: {"OpGreaterEqual", []int{}},
	OpLessThan:     {"OpLessThan", []int{}},
	OpLessEqual:    {"OpLessEqual", []int{}},
	OpJump:         {"OpJump", []int{2}},
	OpJumpIfFalse:  {"OpJumpIfFalse", []int{2}},
	OpJumpIfTrue:   {"OpJumpIfTrue", []int{2}},
	OpGetLocal:     {"OpGetLocal", []int{1}},
	OpSetLocal:     {"OpSetLocal", []int{1}},
	OpGetUpvalue:   {"OpGetUpvalue", []int{1}},
	OpSetUpvalue:   {"OpSetUpvalue", []int{1}},
	OpDefineGlobal: {"OpDefineGlobal", []int{2, 1}},
	OpGetGlobal:    {"OpGetGlobal", []int{2}},
	OpSetGlobal:    {"OpSetGlobal", []int{2}},
	OpArray:        {"OpArray", []int{2}},
	OpObject:       {"OpObject", []int{2}},
	OpRange:        {"OpRange", []int{}},
	OpGetProp:      {"OpGetProp", []int{2}},
	OpSetProp:      {"OpSetProp", []int{2}},
	OpSetIndex:     {"OpSetIndex", []int{}},
	OpCall:         {"OpCall", []int{2}},
	OpCallMethod:   {"OpCallMethod", []int{2, 2}},
	OpClosure:      {"OpClosure", []int{2, 1}},
	OpReturn:       {"OpReturn", []int{}},
	OpHalt:         {"OpHalt", []int{}},
	OpDebug:        {"OpDebug", []int{2}},
}

func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make assembles an instruction. Two-byte operands are encoded
// little-endian; signed jump displacements pass through two's complement
// unchanged.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			instruction[offset] = byte(o)
			instruction[offset+1] = byte(o >> 8)
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

func ReadOperands(def *Definition, ins []byte) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

func ReadUint16(ins []byte) uint16 {
	return uint16(ins[0]) | uint16(ins[1])<<8
}

// ReadInt16 decodes a signed 16-bit jump displacement.
func ReadInt16(ins []byte) int16 {
	return int16(ReadUint16(ins))
}

func ReadUint8(ins []byte) uint8 {
	return uint8(ins[0])
}

func (op Opcode) String() string {
	def, ok := definitions[op]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", op)
	}
	return def.Name
}
