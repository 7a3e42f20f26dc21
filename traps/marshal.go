package traps

import (
	"fmt"

	"github.com/Urethramancer/m68kmac/cpu"
)

// StackReader reads guest memory.
type StackReader interface {
	Read(addr uint32, size cpu.Size) (uint32, error)
}

// Marshal pops arguments of the given widths off the guest stack.
//
// Widths are read from sp upwards. Each value is inserted at the front of
// the result, so the value read last (the deepest, pushed first by a Pascal
// caller) ends up at index 0. The returned stack pointer is sp advanced by
// the total width; the caller stores it back to emulate the callee popping
// its own parameters.
func Marshal(params []cpu.Size, sp uint32, mem StackReader) ([]uint32, uint32, error) {
	if len(params) == 0 {
		return nil, sp, nil
	}
	args := make([]uint32, len(params))
	for i, p := range params {
		v, err := mem.Read(sp, p)
		if err != nil {
			return nil, 0, fmt.Errorf("argument %d (.%v) at %08X: %w", i, p, sp, err)
		}
		args[len(params)-1-i] = v
		sp += uint32(p.Bytes())
	}
	return args, sp, nil
}

// SignExtend16 interprets the low 16 bits of v as a two's complement value.
func SignExtend16(v uint32) int16 {
	return int16(uint16(v))
}
