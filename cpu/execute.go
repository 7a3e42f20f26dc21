package cpu

import (
	"context"
	"fmt"
)

// Execute fetches, decodes, and executes a single instruction.
func (c *CPU) Execute() error {
	if !c.Running {
		return nil
	}

	// Fetch
	opcode, err := c.fetch()
	if err != nil {
		return fmt.Errorf("fetch failed at %08X: %w", c.PC, err)
	}

	// Decode
	inst, err := c.Decode(opcode)
	if err != nil {
		return fmt.Errorf("decode failed at %08X: %w", c.PC-2, err)
	}

	if inst.Handler == nil {
		return fmt.Errorf("no handler for opcode %04X", opcode)
	}

	// Execute
	c.Steps++
	err = inst.Handler(c, inst)
	if err != nil {
		return fmt.Errorf("execution failed for opcode %04X: %w", opcode, err)
	}

	return nil
}

// Run executes instructions until the CPU halts, an instruction fails,
// ctx is cancelled or limit instructions have run. A limit of 0 means no
// limit. It returns the number of instructions executed.
func (c *CPU) Run(ctx context.Context, limit uint64) (uint64, error) {
	var n uint64
	for c.Running {
		if limit > 0 && n >= limit {
			break
		}
		// The context is polled every 1024 instructions.
		if n&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		if err := c.Execute(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
