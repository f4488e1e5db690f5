package opcode

import (
	"bytes"
	"fmt"
)

// String renders instructions one per line with byte offsets. OpClosure's
// trailing (isLocal, index) pairs and signed jump displacements are
// decoded so the output is readable as-is.
func (ins Instructions) String() string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, formatInstruction(def, ins, i, operands))
		i += 1 + read

		if Opcode(ins[i-1-read]) == OpClosure && len(operands) == 2 {
			for u := 0; u < operands[1]; u++ {
				kind := "upvalue"
				if ins[i] == 1 {
					kind = "local"
				}
				fmt.Fprintf(&out, "%04d    | capture %s %d\n", i, kind, ins[i+1])
				i += 2
			}
		}
	}

	return out.String()
}

func formatInstruction(def *Definition, ins Instructions, pos int, operands []int) string {
	operandCount := len(def.OperandWidths)
	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d", len(operands), operandCount)
	}

	switch Opcode(ins[pos]) {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		disp := int(int16(uint16(operands[0])))
		target := pos + 3 + disp
		return fmt.Sprintf("%s %+d -> %04d", def.Name, disp, target)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}

	return fmt.Sprintf("ERROR: unhandled operandCount for %s", def.Name)
}
