package cpu

import "fmt"

// opMOVEQ loads a sign-extended byte into a data register.
func (c *CPU) opMOVEQ(inst *DecodedInstruction) error {
	v := uint32(int32(int8(inst.SrcReg)))
	c.D[inst.DstReg] = v
	c.moveFlags(v, SizeLong)
	return nil
}

// moveFlags sets N and Z from v and clears V and C.
func (c *CPU) moveFlags(v uint32, size Size) {
	c.SR &^= SRV | SRC
	c.setNZ(v, size)
}

// opMOVEA writes all 32 bits of an address register. Word sources are
// sign-extended and the condition codes are left alone.
func (c *CPU) opMOVEA(inst *DecodedInstruction) error {
	if inst.Size == SizeByte {
		return fmt.Errorf("movea: byte size not allowed")
	}
	v, err := c.GetOperand(inst.SrcMode, inst.SrcReg, inst.Size)
	if err != nil {
		return fmt.Errorf("movea source: %w", err)
	}
	if inst.Size == SizeWord {
		v = uint32(signExtend16(uint16(v)))
	}
	c.A[inst.DstReg] = v
	return nil
}

// opMOVE handles the general MOVE instruction. The source is resolved
// first so its extension words precede the destination's.
func (c *CPU) opMOVE(inst *DecodedInstruction) error {
	v, err := c.GetOperand(inst.SrcMode, inst.SrcReg, inst.Size)
	if err != nil {
		return fmt.Errorf("move source: %w", err)
	}
	if err := c.PutOperand(inst.DstMode, inst.DstReg, inst.Size, v); err != nil {
		return fmt.Errorf("move destination: %w", err)
	}
	c.moveFlags(v, inst.Size)
	return nil
}

// opCLR zeroes the destination and leaves only Z set among N, Z, V and C.
func (c *CPU) opCLR(inst *DecodedInstruction) error {
	if err := c.PutOperand(inst.DstMode, inst.DstReg, inst.Size, 0); err != nil {
		return fmt.Errorf("clr: %w", err)
	}
	c.moveFlags(0, inst.Size)
	return nil
}

// opLEA loads the effective address itself into An.
func (c *CPU) opLEA(inst *DecodedInstruction) error {
	addr, err := c.controlAddress(inst.SrcMode, inst.SrcReg)
	if err != nil {
		return fmt.Errorf("lea: %w", err)
	}
	c.A[inst.DstReg] = addr
	return nil
}

// controlAddress resolves a control addressing mode to its address.
func (c *CPU) controlAddress(mode, reg uint16) (uint32, error) {
	switch mode {
	case ModeData, ModeAddr, ModeAddrPostInc, ModeAddrPreDec:
		return 0, fmt.Errorf("mode %d is not a control addressing mode", mode)
	}
	if mode == ModeOther && reg == RegImmediate {
		return 0, fmt.Errorf("immediate is not a control addressing mode")
	}
	op, err := c.resolve(mode, reg, SizeLong)
	if err != nil {
		return 0, err
	}
	return op.addr, nil
}
