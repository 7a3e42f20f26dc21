package cpu

import "fmt"

// opADD adds Dn and <ea>. Opmode bit 2 clear stores into Dn, set stores
// into <ea>. Opmodes 3 and 7 are ADDA.
func (c *CPU) opADD(inst *DecodedInstruction) error {
	if inst.OpMode == 3 || inst.OpMode == 7 {
		return c.opADDA(inst)
	}

	ea, err := c.resolve(inst.SrcMode, inst.SrcReg, inst.Size)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	eaVal, err := c.load(ea)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	dn := operand{kind: kindData, reg: inst.DstReg, size: inst.Size}
	dnVal, _ := c.load(dn)

	result := eaVal + dnVal
	c.setFlagsAdd(eaVal, dnVal, result, inst.Size)

	target := dn
	if inst.OpMode&4 != 0 {
		target = ea
	}
	if err := c.store(target, result); err != nil {
		return fmt.Errorf("add result: %w", err)
	}
	return nil
}

// opADDA adds to an address register without touching the condition codes.
func (c *CPU) opADDA(inst *DecodedInstruction) error {
	size := SizeWord
	if inst.OpMode == 7 {
		size = SizeLong
	}
	src, err := c.GetOperand(inst.SrcMode, inst.SrcReg, size)
	if err != nil {
		return fmt.Errorf("adda source: %w", err)
	}
	if size == SizeWord {
		src = uint32(signExtend16(uint16(src)))
	}
	c.A[inst.DstReg] += src
	return nil
}

// opADDQ adds 1-8 to the destination.
func (c *CPU) opADDQ(inst *DecodedInstruction) error {
	return c.quick(inst, "addq", func(dst, src uint32) uint32 { return dst + src }, c.setFlagsAdd)
}

// opSUBQ subtracts 1-8 from the destination.
func (c *CPU) opSUBQ(inst *DecodedInstruction) error {
	return c.quick(inst, "subq", func(dst, src uint32) uint32 { return dst - src }, c.setFlagsSub)
}

func (c *CPU) quick(inst *DecodedInstruction, name string, apply func(dst, src uint32) uint32, flags func(src, dst, result uint32, size Size)) error {
	src := uint32(inst.SrcReg)

	// An destinations use all 32 bits and leave SR alone.
	if inst.DstMode == ModeAddr {
		if inst.Size == SizeByte {
			return fmt.Errorf("%s: byte size not allowed on A%d", name, inst.DstReg)
		}
		c.A[inst.DstReg] = apply(c.A[inst.DstReg], src)
		return nil
	}

	ea, err := c.resolve(inst.DstMode, inst.DstReg, inst.Size)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	dst, err := c.load(ea)
	if err != nil {
		return fmt.Errorf("%s destination: %w", name, err)
	}

	result := apply(dst, src)
	flags(src, dst, result, inst.Size)

	if err := c.store(ea, result); err != nil {
		return fmt.Errorf("%s result: %w", name, err)
	}
	return nil
}
