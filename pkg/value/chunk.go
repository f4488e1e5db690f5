package value

import "lumen/pkg/opcode"

// Chunk is one compiled function body: bytecode plus its constant pool.
// Debug is nil unless the compiler ran in debug mode.
type Chunk struct {
	Code      opcode.Instructions
	Constants []Value
	Debug     *DebugTable
}

// DebugEntry maps a bytecode offset to the source location that produced
// it. Entries are appended in offset order.
type DebugEntry struct {
	Offset int
	Line   int
	Column int
	Text   string
}

type DebugTable struct {
	Entries []DebugEntry
}

func (dt *DebugTable) Record(offset, line, column int, text string) {
	dt.Entries = append(dt.Entries, DebugEntry{Offset: offset, Line: line, Column: column, Text: text})
}

// Locate returns the last entry at or before offset, which is the
// location of the instruction being executed there.
func (dt *DebugTable) Locate(offset int) (DebugEntry, bool) {
	if dt == nil || len(dt.Entries) == 0 {
		return DebugEntry{}, false
	}
	best := -1
	for i, e := range dt.Entries {
		if e.Offset > offset {
			break
		}
		best = i
	}
	if best < 0 {
		return DebugEntry{}, false
	}
	return dt.Entries[best], true
}
