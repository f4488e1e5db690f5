package vm

import "lumen/pkg/value"

// Frame is one live function activation. base is the stack slot of the
// first argument; locals occupy base..base+NumLocals-1 and the working
// stack grows above them.
type Frame struct {
	closure *value.Closure
	ip      int
	base    int
}

func (f *Frame) chunk() *value.Chunk {
	return f.closure.Fn.Chunk
}
