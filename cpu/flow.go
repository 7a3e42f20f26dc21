package cpu

import "fmt"

func (c *CPU) opNOP(*DecodedInstruction) error {
	return nil
}

// opRTS handles the RTS (Return from Subroutine) instruction.
// Format: 0100 1110 0111 0101 (4E75)
func (c *CPU) opRTS(*DecodedInstruction) error {
	returnAddr, err := c.pop(SizeLong)
	if err != nil {
		return fmt.Errorf("RTS failed to pop return address: %w", err)
	}
	c.PC = returnAddr
	return nil
}

// opJSR handles JSR <ea>. The return address is the instruction after
// any extension words.
func (c *CPU) opJSR(inst *DecodedInstruction) error {
	target, err := c.controlAddress(inst.SrcMode, inst.SrcReg)
	if err != nil {
		return fmt.Errorf("JSR failed to resolve target: %w", err)
	}
	if err := c.push(SizeLong, c.PC); err != nil {
		return fmt.Errorf("JSR failed to push return address: %w", err)
	}
	c.PC = target
	return nil
}

// opJMP handles JMP <ea>.
func (c *CPU) opJMP(inst *DecodedInstruction) error {
	target, err := c.controlAddress(inst.SrcMode, inst.SrcReg)
	if err != nil {
		return fmt.Errorf("JMP failed to resolve target: %w", err)
	}
	c.PC = target
	return nil
}

// opBcc handles BRA, BSR and the conditional branches.
// Format: 0110 <cond> <8-bit displacement>, a zero displacement means a
// 16-bit displacement word follows.
func (c *CPU) opBcc(inst *DecodedInstruction) error {
	base := c.PC
	disp := int32(int8(inst.SrcReg & 0xFF))
	if disp == 0 {
		ext, err := c.fetch()
		if err != nil {
			return fmt.Errorf("branch failed to fetch displacement: %w", err)
		}
		disp = signExtend16(ext)
	}
	target := uint32(int32(base) + disp)

	switch inst.OpMode {
	case 0: // BRA
		c.PC = target
	case 1: // BSR
		if err := c.push(SizeLong, c.PC); err != nil {
			return fmt.Errorf("BSR failed to push return address: %w", err)
		}
		c.PC = target
	default:
		if c.testCondition(inst.OpMode) {
			c.PC = target
		}
	}
	return nil
}

// opSTOP loads SR from the immediate word and halts the CPU.
func (c *CPU) opSTOP(*DecodedInstruction) error {
	sr, err := c.fetch()
	if err != nil {
		return fmt.Errorf("STOP failed to fetch status word: %w", err)
	}
	c.SR = sr
	c.Running = false
	return nil
}
